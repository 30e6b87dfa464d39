// Package plansync 把改编分集计划同步到大纲与剧情矩阵
package plansync

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"screenplay-ai-api/internal/application/projectstore"
	"screenplay-ai-api/internal/domain/entity"
	apperrors "screenplay-ai-api/pkg/errors"
	"screenplay-ai-api/pkg/logger"
)

const (
	// EventTitleRunes 事件标题截取的字符数
	EventTitleRunes = 20
	// EmotionSeparator 情绪列表拼接成情感弧线时的分隔符
	EmotionSeparator = " / "
)

// Result 同步结果，整体替换 outline 与 plotEvents
type Result struct {
	Outline    []entity.OutlineSection
	PlotEvents []entity.PlotEvent
}

// Sync 由分集计划生成大纲与剧情事件。
//
// 这是整体替换而不是合并：每集对应一个段落（按集数稳定排序），
// 每个事件条目对应一张主线事件卡。事件 ID 由 (分集 ID, 序号) 派生，重复同步结果一致。
func Sync(episodes []entity.AdaptationEpisode) Result {
	ordered := make([]entity.AdaptationEpisode, len(episodes))
	copy(ordered, episodes)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].EpisodeNumber < ordered[j].EpisodeNumber
	})

	res := Result{
		Outline:    make([]entity.OutlineSection, 0, len(ordered)),
		PlotEvents: []entity.PlotEvent{},
	}
	used := make(map[string]struct{}, len(ordered))
	for pos, ep := range ordered {
		id := sectionID(ep.ID, pos+1, used)
		res.Outline = append(res.Outline, entity.OutlineSection{
			ID:           id,
			Title:        ep.Title,
			Content:      ep.Summary,
			Scenes:       []string{},
			EmotionalArc: strings.Join(ep.Emotions, EmotionSeparator),
		})
		for i, text := range ep.Events {
			res.PlotEvents = append(res.PlotEvents, entity.PlotEvent{
				ID:          EventID(id, i),
				ActID:       id,
				Plotline:    entity.PlotlineMain,
				Title:       EventTitle(text),
				Description: text,
				Tension:     entity.DefaultTension,
			})
		}
	}
	return res
}

// EventID 事件的确定性 ID
func EventID(sectionID string, index int) string {
	return sectionID + "-evt-" + strconv.Itoa(index)
}

// EventTitle 取事件文本前若干字作为卡片标题，截断时追加省略号
func EventTitle(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= EventTitleRunes {
		return text
	}
	return string([]rune(text)[:EventTitleRunes]) + "..."
}

// sectionID 段落沿用分集 ID；缺失或重复时退回 ep-<序号>
func sectionID(episodeID string, pos int, used map[string]struct{}) string {
	id := strings.TrimSpace(episodeID)
	if id == "" {
		id = "ep-" + strconv.Itoa(pos)
	}
	base := id
	for n := 2; ; n++ {
		if _, ok := used[id]; !ok {
			break
		}
		id = base + "-" + strconv.Itoa(n)
	}
	used[id] = struct{}{}
	return id
}

// SyncProject 把项目当前的分集计划同步到大纲与剧情矩阵。
// 若主线已被删除会重新补上，保证生成的事件都有归属。
func SyncProject(ctx context.Context, store *projectstore.Store, projectID string) (*entity.Project, error) {
	return store.Mutate(ctx, projectID, func(cur *entity.Project) (entity.ProjectPatch, error) {
		if len(cur.NovelAdaptationPlan) == 0 {
			return entity.ProjectPatch{}, apperrors.ErrInvalidParam.WithDetail("adaptation plan is empty")
		}
		res := Sync(cur.NovelAdaptationPlan)
		patch := entity.ProjectPatch{Outline: &res.Outline, PlotEvents: &res.PlotEvents}
		if cur.FindPlotline(entity.PlotlineMain) < 0 {
			lines := append([]entity.PlotlineDefinition{entity.MainPlotline()}, cur.DefinedPlotlines...)
			patch.DefinedPlotlines = &lines
		}
		logger.Info(ctx, "adaptation plan synced",
			"project_id", projectID,
			"sections", len(res.Outline),
			"events", len(res.PlotEvents))
		return patch, nil
	})
}
