package entity

// 剧情线默认 ID
const (
	PlotlineMain     = "main"
	PlotlineConflict = "conflict"
	PlotlineSecrets  = "secrets"
	PlotlineArc      = "arc"
)

// 剧情张力取值范围
const (
	MinTension     = 1
	MaxTension     = 10
	DefaultTension = 5
)

// OutlineSection 大纲段落（一集或一幕），在剧情矩阵中作为列
type OutlineSection struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Content      string   `json:"content"`
	Scenes       []string `json:"scenes"`
	EmotionalArc string   `json:"emotionalArc,omitempty"`
}

// PlotlineDefinition 剧情线，在剧情矩阵中作为行
type PlotlineDefinition struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// PlotEvent 剧情事件卡片
//
// ActID 为空表示未排期；Plotline 必须指向已定义的剧情线。
type PlotEvent struct {
	ID          string `json:"id"`
	ActID       string `json:"actId"`
	Plotline    string `json:"plotline"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Tension     int    `json:"tension"`
}

// Scheduled 事件是否已落在某个大纲段落上
func (e PlotEvent) Scheduled() bool {
	return e.ActID != ""
}

// DefaultPlotlines 新项目默认的四条剧情线
func DefaultPlotlines() []PlotlineDefinition {
	return []PlotlineDefinition{
		{ID: PlotlineMain, Name: "主线剧情", Color: "#3b82f6"},
		{ID: PlotlineConflict, Name: "冲突副线", Color: "#ef4444"},
		{ID: PlotlineSecrets, Name: "悬念秘密", Color: "#a855f7"},
		{ID: PlotlineArc, Name: "人物成长", Color: "#22c55e"},
	}
}

// MainPlotline 返回默认主线定义
func MainPlotline() PlotlineDefinition {
	return DefaultPlotlines()[0]
}
