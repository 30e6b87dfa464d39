// Package entity 定义领域实体
package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultProjectTitle 新建项目的默认标题
const DefaultProjectTitle = "未命名灵感"

// DefaultSceneHeading 新建项目的占位场景标题
const DefaultSceneHeading = "内景 地点 - 日"

// Project 剧本项目聚合根
//
// 子集合全部由项目持有，顺序敏感的集合：outline、script、characters、storyboardRows。
// 时间戳均为 Unix 毫秒。
type Project struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Logline   string `json:"logline"`
	Genre     string `json:"genre"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`

	Characters       []Character             `json:"characters"`
	Relationships    []CharacterRelationship `json:"relationships"`
	Outline          []OutlineSection        `json:"outline"`
	PlotEvents       []PlotEvent             `json:"plotEvents"`
	DefinedPlotlines []PlotlineDefinition    `json:"definedPlotlines"`
	Script           []ScriptBlock           `json:"script"`

	NovelUploadChunks   []NovelUploadChunk  `json:"novelUploadChunks"`
	NovelFullText       string              `json:"novelFullText,omitempty"`
	NovelDeepAnalysis   *NovelDeepAnalysis  `json:"novelDeepAnalysis,omitempty"`
	NovelAdaptationPlan []AdaptationEpisode `json:"novelAdaptationPlan"`
	StoryboardRows      []StoryboardRow     `json:"storyboardRows"`
	MarketAnalysis      *MarketAnalysis     `json:"marketAnalysis,omitempty"`
}

// ProjectSummary 项目列表摘要
type ProjectSummary struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Logline    string `json:"logline"`
	Genre      string `json:"genre"`
	CreatedAt  int64  `json:"createdAt"`
	UpdatedAt  int64  `json:"updatedAt"`
	Characters int    `json:"characterCount"`
	Sections   int    `json:"sectionCount"`
	Blocks     int    `json:"blockCount"`
}

// NewProject 创建新项目：空角色、空大纲、默认剧情线和一个占位剧本块
func NewProject(title string, now time.Time) *Project {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultProjectTitle
	}
	ms := now.UnixMilli()
	return &Project{
		ID:               uuid.NewString(),
		Title:            title,
		CreatedAt:        ms,
		UpdatedAt:        ms,
		Characters:       []Character{},
		Relationships:    []CharacterRelationship{},
		Outline:          []OutlineSection{},
		PlotEvents:       []PlotEvent{},
		DefinedPlotlines: DefaultPlotlines(),
		Script: []ScriptBlock{
			{ID: uuid.NewString(), Type: BlockSceneHeading, Content: DefaultSceneHeading},
		},
		NovelUploadChunks:   []NovelUploadChunk{},
		NovelAdaptationPlan: []AdaptationEpisode{},
		StoryboardRows:      []StoryboardRow{},
	}
}

// Summary 生成列表摘要
func (p *Project) Summary() ProjectSummary {
	return ProjectSummary{
		ID:         p.ID,
		Title:      p.Title,
		Logline:    p.Logline,
		Genre:      p.Genre,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
		Characters: len(p.Characters),
		Sections:   len(p.Outline),
		Blocks:     len(p.Script),
	}
}

// FindCharacter 按 ID 查找角色下标，不存在返回 -1
func (p *Project) FindCharacter(id string) int {
	for i := range p.Characters {
		if p.Characters[i].ID == id {
			return i
		}
	}
	return -1
}

// FindSection 按 ID 查找大纲段落下标
func (p *Project) FindSection(id string) int {
	for i := range p.Outline {
		if p.Outline[i].ID == id {
			return i
		}
	}
	return -1
}

// FindPlotline 按 ID 查找剧情线下标
func (p *Project) FindPlotline(id string) int {
	for i := range p.DefinedPlotlines {
		if p.DefinedPlotlines[i].ID == id {
			return i
		}
	}
	return -1
}

// FindEvent 按 ID 查找剧情事件下标
func (p *Project) FindEvent(id string) int {
	for i := range p.PlotEvents {
		if p.PlotEvents[i].ID == id {
			return i
		}
	}
	return -1
}

// FindBlock 按 ID 查找剧本块下标
func (p *Project) FindBlock(id string) int {
	for i := range p.Script {
		if p.Script[i].ID == id {
			return i
		}
	}
	return -1
}

// FindChunk 按 ID 查找原著分片下标
func (p *Project) FindChunk(id string) int {
	for i := range p.NovelUploadChunks {
		if p.NovelUploadChunks[i].ID == id {
			return i
		}
	}
	return -1
}

// Clone 深拷贝项目，调用方可以随意修改返回值
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Characters = cloneSlice(p.Characters, nil)
	cp.Relationships = cloneSlice(p.Relationships, nil)
	cp.Outline = cloneSlice(p.Outline, func(s OutlineSection) OutlineSection {
		s.Scenes = cloneSlice(s.Scenes, nil)
		return s
	})
	cp.PlotEvents = cloneSlice(p.PlotEvents, nil)
	cp.DefinedPlotlines = cloneSlice(p.DefinedPlotlines, nil)
	cp.Script = cloneSlice(p.Script, func(b ScriptBlock) ScriptBlock {
		if b.Storyboard != nil {
			sb := *b.Storyboard
			b.Storyboard = &sb
		}
		return b
	})
	cp.NovelUploadChunks = cloneSlice(p.NovelUploadChunks, nil)
	cp.NovelDeepAnalysis = p.NovelDeepAnalysis.Clone()
	cp.NovelAdaptationPlan = cloneSlice(p.NovelAdaptationPlan, AdaptationEpisode.Clone)
	cp.StoryboardRows = cloneSlice(p.StoryboardRows, nil)
	cp.MarketAnalysis = p.MarketAnalysis.Clone()
	return &cp
}

// cloneSlice 复制切片，nil 保持为 nil；fn 用于复制元素内部的引用字段
func cloneSlice[T any](s []T, fn func(T) T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	for i, v := range s {
		if fn != nil {
			v = fn(v)
		}
		out[i] = v
	}
	return out
}
