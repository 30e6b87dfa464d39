package entity

import "strings"

// NovelUploadChunk 原著文档分片
//
// WordCount 恒等于 Content 的字符（rune）数。
type NovelUploadChunk struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Content    string `json:"content"`
	WordCount  int    `json:"wordCount"`
	UploadedAt int64  `json:"uploadedAt"`
}

// NovelChunkSeparator 拼接全文时分片之间的分隔符
const NovelChunkSeparator = "\n\n"

// JoinNovelChunks 按顺序拼接分片内容，得到原著全文缓存
func JoinNovelChunks(chunks []NovelUploadChunk) string {
	var b strings.Builder
	for i, ch := range chunks {
		if i > 0 {
			b.WriteString(NovelChunkSeparator)
		}
		b.WriteString(ch.Content)
	}
	return b.String()
}

// CharacterCard 原著深度分析中的人物卡
type CharacterCard struct {
	Name        string   `json:"name"`
	Identity    string   `json:"identity,omitempty"`
	Personality string   `json:"personality,omitempty"`
	Arc         string   `json:"arc,omitempty"`
	KeyScenes   []string `json:"keyScenes,omitempty"`
}

// NovelDeepAnalysis 原著深度分析报告
type NovelDeepAnalysis struct {
	WorldView      string          `json:"worldView"`
	MainPlot       string          `json:"mainPlot"`
	CharacterCards []CharacterCard `json:"characterCards"`
}

// Clone 深拷贝
func (a *NovelDeepAnalysis) Clone() *NovelDeepAnalysis {
	if a == nil {
		return nil
	}
	cp := *a
	cp.CharacterCards = cloneSlice(a.CharacterCards, func(c CharacterCard) CharacterCard {
		c.KeyScenes = cloneSlice(c.KeyScenes, nil)
		return c
	})
	return &cp
}

// AdaptationEpisode 改编分集计划
type AdaptationEpisode struct {
	ID            string   `json:"id"`
	EpisodeNumber int      `json:"episodeNumber"`
	Title         string   `json:"title"`
	Summary       string   `json:"summary"`
	Characters    []string `json:"characters"`
	Events        []string `json:"events"`
	Emotions      []string `json:"emotions"`
	Beats         []string `json:"beats"`
}

// Clone 深拷贝
func (e AdaptationEpisode) Clone() AdaptationEpisode {
	e.Characters = cloneSlice(e.Characters, nil)
	e.Events = cloneSlice(e.Events, nil)
	e.Emotions = cloneSlice(e.Emotions, nil)
	e.Beats = cloneSlice(e.Beats, nil)
	return e
}

// MarketAnalysis 市场分析报告
type MarketAnalysis struct {
	TargetAudience  string   `json:"targetAudience"`
	Positioning     string   `json:"positioning"`
	Comparables     []string `json:"comparables"`
	SellingPoints   []string `json:"sellingPoints"`
	Risks           []string `json:"risks"`
	CommercialScore int      `json:"commercialScore"`
}

// Clone 深拷贝
func (m *MarketAnalysis) Clone() *MarketAnalysis {
	if m == nil {
		return nil
	}
	cp := *m
	cp.Comparables = cloneSlice(m.Comparables, nil)
	cp.SellingPoints = cloneSlice(m.SellingPoints, nil)
	cp.Risks = cloneSlice(m.Risks, nil)
	return &cp
}
