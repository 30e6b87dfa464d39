package dto

import (
	"screenplay-ai-api/internal/domain/entity"
)

// CreateProjectRequest 创建项目请求；携带 project 时作为导入处理
type CreateProjectRequest struct {
	Title   string          `json:"title"`
	Project *entity.Project `json:"project,omitempty"`
}

// ProjectListResponse 项目列表响应
type ProjectListResponse struct {
	Projects []entity.ProjectSummary `json:"projects"`
	ActiveID string                  `json:"activeId"`
}

// MoveSectionRequest 大纲段落移动请求
type MoveSectionRequest struct {
	To *int `json:"to" binding:"required"`
}

// AddScriptBlockRequest 插入剧本块请求
type AddScriptBlockRequest struct {
	Type    entity.ScriptBlockType `json:"type"`
	Content string                 `json:"content"`
	AfterID string                 `json:"afterId,omitempty"`
}

// UpdateScriptBlockRequest 更新剧本块请求
type UpdateScriptBlockRequest struct {
	Type       entity.ScriptBlockType `json:"type"`
	Content    string                 `json:"content"`
	Storyboard *entity.Storyboard     `json:"storyboard,omitempty"`
}
