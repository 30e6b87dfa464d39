package entity

import (
	"strings"
)

// ScriptBlockType 剧本块类型
type ScriptBlockType string

const (
	BlockSceneHeading  ScriptBlockType = "scene_heading"
	BlockAction        ScriptBlockType = "action"
	BlockCharacter     ScriptBlockType = "character"
	BlockParenthetical ScriptBlockType = "parenthetical"
	BlockDialogue      ScriptBlockType = "dialogue"
	BlockTransition    ScriptBlockType = "transition"
)

// Valid 是否为已知的剧本块类型
func (t ScriptBlockType) Valid() bool {
	switch t {
	case BlockSceneHeading, BlockAction, BlockCharacter, BlockParenthetical, BlockDialogue, BlockTransition:
		return true
	}
	return false
}

// ScriptBlock 剧本块
type ScriptBlock struct {
	ID         string          `json:"id"`
	Type       ScriptBlockType `json:"type"`
	Content    string          `json:"content"`
	Storyboard *Storyboard     `json:"storyboard,omitempty"`
}

// Storyboard 挂在剧本块上的分镜
type Storyboard struct {
	ShotType    string `json:"shotType,omitempty"`
	CameraAngle string `json:"cameraAngle,omitempty"`
	Description string `json:"description,omitempty"`
	ImagePrompt string `json:"imagePrompt,omitempty"`
	// ImageData base64 编码的图片（data URL 或纯 base64）
	ImageData string `json:"imageData,omitempty"`
}

// StoryboardRow 分镜制作表中的一行
type StoryboardRow struct {
	ID              string `json:"id"`
	SceneNumber     int    `json:"sceneNumber"`
	ShotNumber      int    `json:"shotNumber"`
	ShotType        string `json:"shotType"`
	CameraMovement  string `json:"cameraMovement,omitempty"`
	Visual          string `json:"visual"`
	Dialogue        string `json:"dialogue,omitempty"`
	Sound           string `json:"sound,omitempty"`
	DurationSeconds int    `json:"durationSeconds,omitempty"`
	ImageData       string `json:"imageData,omitempty"`
}

// ScriptText 导出纯文本剧本：块内容之间用空行分隔
func ScriptText(blocks []ScriptBlock) string {
	parts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		parts = append(parts, b.Content)
	}
	return strings.Join(parts, "\n\n")
}
