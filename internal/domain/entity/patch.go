package entity

// ProjectPatch 项目的部分更新
//
// nil 字段表示不修改；非 nil 的切片字段整体替换。ID、CreatedAt、UpdatedAt 不可通过补丁修改，
// NovelFullText 总是由 NovelUploadChunks 推导。
type ProjectPatch struct {
	Title   *string `json:"title,omitempty"`
	Logline *string `json:"logline,omitempty"`
	Genre   *string `json:"genre,omitempty"`

	Characters       *[]Character             `json:"characters,omitempty"`
	Relationships    *[]CharacterRelationship `json:"relationships,omitempty"`
	Outline          *[]OutlineSection        `json:"outline,omitempty"`
	PlotEvents       *[]PlotEvent             `json:"plotEvents,omitempty"`
	DefinedPlotlines *[]PlotlineDefinition    `json:"definedPlotlines,omitempty"`
	Script           *[]ScriptBlock           `json:"script,omitempty"`

	NovelUploadChunks   *[]NovelUploadChunk  `json:"novelUploadChunks,omitempty"`
	NovelDeepAnalysis   *NovelDeepAnalysis   `json:"novelDeepAnalysis,omitempty"`
	NovelAdaptationPlan *[]AdaptationEpisode `json:"novelAdaptationPlan,omitempty"`
	StoryboardRows      *[]StoryboardRow     `json:"storyboardRows,omitempty"`
	MarketAnalysis      *MarketAnalysis      `json:"marketAnalysis,omitempty"`
}

// IsEmpty 补丁是否没有任何字段
func (p ProjectPatch) IsEmpty() bool {
	return p.Title == nil && p.Logline == nil && p.Genre == nil &&
		p.Characters == nil && p.Relationships == nil && p.Outline == nil &&
		p.PlotEvents == nil && p.DefinedPlotlines == nil && p.Script == nil &&
		p.NovelUploadChunks == nil && p.NovelDeepAnalysis == nil &&
		p.NovelAdaptationPlan == nil && p.StoryboardRows == nil && p.MarketAnalysis == nil
}

// Fields 返回补丁涉及的字段名，用于日志和变更事件
func (p ProjectPatch) Fields() []string {
	var fields []string
	add := func(set bool, name string) {
		if set {
			fields = append(fields, name)
		}
	}
	add(p.Title != nil, "title")
	add(p.Logline != nil, "logline")
	add(p.Genre != nil, "genre")
	add(p.Characters != nil, "characters")
	add(p.Relationships != nil, "relationships")
	add(p.Outline != nil, "outline")
	add(p.PlotEvents != nil, "plotEvents")
	add(p.DefinedPlotlines != nil, "definedPlotlines")
	add(p.Script != nil, "script")
	add(p.NovelUploadChunks != nil, "novelUploadChunks")
	add(p.NovelDeepAnalysis != nil, "novelDeepAnalysis")
	add(p.NovelAdaptationPlan != nil, "novelAdaptationPlan")
	add(p.StoryboardRows != nil, "storyboardRows")
	add(p.MarketAnalysis != nil, "marketAnalysis")
	return fields
}

// Merge 将补丁合并到项目上，返回新的项目；入参不会被修改。
// 同一字段上后到的补丁覆盖先到的（last-write-wins）。
func Merge(p *Project, patch ProjectPatch) *Project {
	next := p.Clone()
	if patch.Title != nil {
		next.Title = *patch.Title
	}
	if patch.Logline != nil {
		next.Logline = *patch.Logline
	}
	if patch.Genre != nil {
		next.Genre = *patch.Genre
	}
	if patch.Characters != nil {
		next.Characters = cloneSlice(*patch.Characters, nil)
	}
	if patch.Relationships != nil {
		next.Relationships = cloneSlice(*patch.Relationships, nil)
	}
	if patch.Outline != nil {
		next.Outline = (&Project{Outline: *patch.Outline}).Clone().Outline
	}
	if patch.PlotEvents != nil {
		next.PlotEvents = cloneSlice(*patch.PlotEvents, nil)
	}
	if patch.DefinedPlotlines != nil {
		next.DefinedPlotlines = cloneSlice(*patch.DefinedPlotlines, nil)
	}
	if patch.Script != nil {
		next.Script = (&Project{Script: *patch.Script}).Clone().Script
	}
	if patch.NovelUploadChunks != nil {
		next.NovelUploadChunks = cloneSlice(*patch.NovelUploadChunks, nil)
		next.NovelFullText = JoinNovelChunks(next.NovelUploadChunks)
	}
	if patch.NovelDeepAnalysis != nil {
		next.NovelDeepAnalysis = patch.NovelDeepAnalysis.Clone()
	}
	if patch.NovelAdaptationPlan != nil {
		next.NovelAdaptationPlan = cloneSlice(*patch.NovelAdaptationPlan, AdaptationEpisode.Clone)
	}
	if patch.StoryboardRows != nil {
		next.StoryboardRows = cloneSlice(*patch.StoryboardRows, nil)
	}
	if patch.MarketAnalysis != nil {
		next.MarketAnalysis = patch.MarketAnalysis.Clone()
	}
	return next
}

// Ptr 返回值的指针，便于构造补丁
func Ptr[T any](v T) *T {
	return &v
}
