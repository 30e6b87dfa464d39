package dto

import (
	"screenplay-ai-api/internal/application/novel"
)

// DocumentRequest 上传的文本文档
type DocumentRequest struct {
	Name    string `json:"name" binding:"required"`
	Content string `json:"content"`
}

// UploadDocumentsRequest JSON 方式上传原著
type UploadDocumentsRequest struct {
	Documents []DocumentRequest `json:"documents" binding:"required,min=1,dive"`
}

// ToDocuments 转换为分片输入
func (r *UploadDocumentsRequest) ToDocuments() []novel.Document {
	out := make([]novel.Document, 0, len(r.Documents))
	for _, d := range r.Documents {
		out = append(out, novel.Document{Name: d.Name, Content: d.Content})
	}
	return out
}
