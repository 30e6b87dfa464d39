package model

// GenerateInput 一次生成调用的完整描述
//
// Schema 为空表示自由文本输出；非空时请求 json_schema 结构化输出，不支持时退回纯提示词约束。
type GenerateInput struct {
	Operation string
	Prompt    string
	Vars      map[string]any

	SchemaName string
	Schema     map[string]any

	// History 追加在模板消息之后的多轮对话（仅 copilot 使用）
	History []ChatTurn

	Provider string
	Model    string

	Temperature *float32
	MaxTokens   *int
}

// Structured 是否请求结构化输出
func (in *GenerateInput) Structured() bool {
	return in != nil && len(in.Schema) > 0
}

// ChatTurn 对话轮次
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerateOutput 生成结果
type GenerateOutput struct {
	Content string
	Meta    LLMUsageMeta
}
