package entity

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ReconcileReport 记录一次归一化中被级联处理的条目数
type ReconcileReport struct {
	PrunedRelationships int `json:"prunedRelationships"`
	DeletedEvents       int `json:"deletedEvents"`
	UnscheduledEvents   int `json:"unscheduledEvents"`
}

// Changed 是否发生了级联修改
func (r ReconcileReport) Changed() bool {
	return r.PrunedRelationships+r.DeletedEvents+r.UnscheduledEvents > 0
}

// Reconcile 就地修复项目内部的弱引用：
//   - 引用了不存在角色的关系被删除；
//   - 剧情线不存在的事件被删除；
//   - actId 指向不存在大纲段落的事件被置为未排期；
//   - 张力值被限制在 [MinTension, MaxTension]，缺省为 DefaultTension。
func (p *Project) Reconcile() ReconcileReport {
	var report ReconcileReport

	characters := make(map[string]struct{}, len(p.Characters))
	for _, c := range p.Characters {
		characters[c.ID] = struct{}{}
	}
	relationships := p.Relationships[:0:0]
	for _, r := range p.Relationships {
		_, okSource := characters[r.SourceID]
		_, okTarget := characters[r.TargetID]
		if !okSource || !okTarget {
			report.PrunedRelationships++
			continue
		}
		relationships = append(relationships, r)
	}
	if p.Relationships != nil {
		p.Relationships = relationships
	}

	plotlines := make(map[string]struct{}, len(p.DefinedPlotlines))
	for _, l := range p.DefinedPlotlines {
		plotlines[l.ID] = struct{}{}
	}
	sections := make(map[string]struct{}, len(p.Outline))
	for _, s := range p.Outline {
		sections[s.ID] = struct{}{}
	}
	events := p.PlotEvents[:0:0]
	for _, e := range p.PlotEvents {
		if _, ok := plotlines[e.Plotline]; !ok {
			report.DeletedEvents++
			continue
		}
		if e.ActID != "" {
			if _, ok := sections[e.ActID]; !ok {
				e.ActID = ""
				report.UnscheduledEvents++
			}
		}
		e.Tension = ClampTension(e.Tension)
		events = append(events, e)
	}
	if p.PlotEvents != nil {
		p.PlotEvents = events
	}

	return report
}

// ClampTension 规范张力值
func ClampTension(t int) int {
	switch {
	case t == 0:
		return DefaultTension
	case t < MinTension:
		return MinTension
	case t > MaxTension:
		return MaxTension
	}
	return t
}

// ValidationError 项目校验失败
type ValidationError struct {
	Issues []string
}

func (e ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "project validation failed"
	}
	return "project validation failed: " + strings.Join(e.Issues, "; ")
}

// Validate 对项目做结构校验：ID 必填且唯一、分片字数一致、剧本块类型合法。
// 弱引用问题交给 Reconcile 修复，这里不重复检查。
func (p *Project) Validate() error {
	var issues []string
	if strings.TrimSpace(p.ID) == "" {
		issues = append(issues, "id is required")
	}

	issues = checkIDs(issues, "characters", len(p.Characters), func(i int) string { return p.Characters[i].ID })
	issues = checkIDs(issues, "relationships", len(p.Relationships), func(i int) string { return p.Relationships[i].ID })
	issues = checkIDs(issues, "outline", len(p.Outline), func(i int) string { return p.Outline[i].ID })
	issues = checkIDs(issues, "plotEvents", len(p.PlotEvents), func(i int) string { return p.PlotEvents[i].ID })
	issues = checkIDs(issues, "definedPlotlines", len(p.DefinedPlotlines), func(i int) string { return p.DefinedPlotlines[i].ID })
	issues = checkIDs(issues, "script", len(p.Script), func(i int) string { return p.Script[i].ID })
	issues = checkIDs(issues, "novelUploadChunks", len(p.NovelUploadChunks), func(i int) string { return p.NovelUploadChunks[i].ID })
	issues = checkIDs(issues, "storyboardRows", len(p.StoryboardRows), func(i int) string { return p.StoryboardRows[i].ID })

	for i, b := range p.Script {
		if !b.Type.Valid() {
			issues = append(issues, fmt.Sprintf("script[%d].type invalid: %s", i, b.Type))
		}
	}
	for i, c := range p.NovelUploadChunks {
		if n := utf8.RuneCountInString(c.Content); n != c.WordCount {
			issues = append(issues, fmt.Sprintf("novelUploadChunks[%d].wordCount %d != content length %d", i, c.WordCount, n))
		}
	}
	if p.NovelFullText != JoinNovelChunks(p.NovelUploadChunks) {
		issues = append(issues, "novelFullText does not match novelUploadChunks")
	}

	if len(issues) > 0 {
		return ValidationError{Issues: issues}
	}
	return nil
}

func checkIDs(issues []string, field string, n int, id func(int) string) []string {
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		v := strings.TrimSpace(id(i))
		if v == "" {
			issues = append(issues, fmt.Sprintf("%s[%d].id is required", field, i))
			continue
		}
		if _, ok := seen[v]; ok {
			issues = append(issues, fmt.Sprintf("%s[%d].id duplicated: %s", field, i, v))
			continue
		}
		seen[v] = struct{}{}
	}
	return issues
}
