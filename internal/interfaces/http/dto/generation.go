package dto

import (
	"screenplay-ai-api/internal/application/copilot"
	"screenplay-ai-api/internal/application/generation"
	wfmodel "screenplay-ai-api/internal/workflow/model"
)

// PlanRequest 改编计划请求
type PlanRequest struct {
	EpisodeCount int  `json:"episodeCount" binding:"min=0,max=200"`
	Sync         bool `json:"sync"`
}

// CharactersRequest 角色生成请求
type CharactersRequest struct {
	Instruction string `json:"instruction"`
}

// OutlineRequest 大纲生成请求
type OutlineRequest struct {
	SectionCount int    `json:"sectionCount" binding:"min=0,max=200"`
	Instruction  string `json:"instruction"`
	Replace      bool   `json:"replace"`
}

// ScriptRequest 剧本生成请求
type ScriptRequest struct {
	SectionID string `json:"sectionId" binding:"required"`
}

// RewriteRequest 改写请求
type RewriteRequest struct {
	BlockID     string `json:"blockId" binding:"required"`
	Instruction string `json:"instruction"`
}

// ImageRequest 图片生成请求，blockId 与 characterId 二选一
type ImageRequest struct {
	BlockID     string `json:"blockId"`
	CharacterID string `json:"characterId"`
}

// ImageEditRequest 图片编辑请求
type ImageEditRequest struct {
	BlockID     string `json:"blockId" binding:"required"`
	Instruction string `json:"instruction" binding:"required"`
}

// ChatRequest 助手对话请求
type ChatRequest struct {
	Message string             `json:"message" binding:"required"`
	History []wfmodel.ChatTurn `json:"history"`
}

// ChatResponse 助手对话响应
type ChatResponse = copilot.Reply

// ApplyRequest 应用修改请求
type ApplyRequest struct {
	Ops []generation.PatchOp `json:"ops" binding:"required,min=1"`
}
