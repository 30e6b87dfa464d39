package model

import "time"

// LLMUsageMeta 单次模型调用的元信息
type LLMUsageMeta struct {
	Provider         string    `json:"provider"`
	Model            string    `json:"model"`
	PromptTokens     int       `json:"promptTokens"`
	CompletionTokens int       `json:"completionTokens"`
	GeneratedAt      time.Time `json:"generatedAt"`
}
