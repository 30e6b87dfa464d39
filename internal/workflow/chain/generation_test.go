package chain

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wfmodel "screenplay-ai-api/internal/workflow/model"
)

type scriptedModel struct {
	replies []*schema.Message
	errs    []error
	calls   [][]*schema.Message
	opts    [][]model.Option
}

func (m *scriptedModel) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	i := len(m.calls)
	m.calls = append(m.calls, input)
	m.opts = append(m.opts, opts)
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i < len(m.replies) {
		return m.replies[i], nil
	}
	return schema.AssistantMessage("", nil), nil
}

func (m *scriptedModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

type staticFactory struct {
	m   model.BaseChatModel
	err error
}

func (f staticFactory) Get(context.Context, string) (model.BaseChatModel, error) {
	return f.m, f.err
}

func TestGenerationChain_RendersTemplateAndReturnsUsage(t *testing.T) {
	reply := schema.AssistantMessage("  改写后的台词  ", nil)
	reply.ResponseMeta = &schema.ResponseMeta{Usage: &schema.TokenUsage{PromptTokens: 12, CompletionTokens: 5}}
	fake := &scriptedModel{replies: []*schema.Message{reply}}
	c := NewGenerationChain(staticFactory{m: fake})

	out, err := c.Generate(context.Background(), &wfmodel.GenerateInput{
		Operation: "rewrite",
		Prompt:    "rewrite_v1",
		Vars: map[string]any{
			"block_type":    "dialogue",
			"context_block": "（无）",
			"content":       "走吧",
			"instruction":   "更有力",
		},
		Provider: "openai",
	})
	require.NoError(t, err)
	assert.Equal(t, "改写后的台词", out.Content)
	assert.Equal(t, 12, out.Meta.PromptTokens)
	assert.Equal(t, 5, out.Meta.CompletionTokens)
	assert.Equal(t, "openai", out.Meta.Provider)

	require.Len(t, fake.calls, 1)
	msgs := fake.calls[0]
	require.Len(t, msgs, 2)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Contains(t, msgs[1].Content, "走吧")
	assert.Contains(t, msgs[1].Content, "更有力")
}

func TestGenerationChain_FallsBackWithoutSchema(t *testing.T) {
	fake := &scriptedModel{
		errs:    []error{errors.New("400 response_format json_schema is not supported"), nil},
		replies: []*schema.Message{nil, schema.AssistantMessage(`{"reply":"好"}`, nil)},
	}
	c := NewGenerationChain(staticFactory{m: fake})

	out, err := c.Generate(context.Background(), &wfmodel.GenerateInput{
		Operation:  "chat",
		Prompt:     "copilot_chat_v1",
		Vars:       map[string]any{"allowed_paths": "/title", "project_block": "{}", "message": "起个名字"},
		SchemaName: "copilot_reply",
		Schema:     map[string]any{"type": "object"},
		History: []wfmodel.ChatTurn{
			{Role: "user", Content: "你好"},
			{Role: "assistant", Content: "你好，有什么可以帮你？"},
			{Role: "user", Content: "  "},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"reply":"好"}`, out.Content)

	require.Len(t, fake.calls, 2)
	assert.Len(t, fake.opts[0], len(fake.opts[1])+1)

	msgs := fake.calls[1]
	require.Len(t, msgs, 4)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Equal(t, schema.User, msgs[1].Role)
	assert.Equal(t, schema.Assistant, msgs[2].Role)
	assert.Equal(t, "起个名字", msgs[3].Content)
}

func TestGenerationChain_Errors(t *testing.T) {
	boom := errors.New("connection refused")
	c := NewGenerationChain(staticFactory{m: &scriptedModel{errs: []error{boom}}})

	_, err := c.Generate(context.Background(), &wfmodel.GenerateInput{
		Prompt: "copilot_chat_v1",
		Vars:   map[string]any{"allowed_paths": "", "project_block": "", "message": "x"},
		Schema: map[string]any{"type": "object"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	_, err = c.Generate(context.Background(), &wfmodel.GenerateInput{Prompt: "no_such_prompt"})
	require.Error(t, err)

	_, err = NewGenerationChain(nil).Generate(context.Background(), &wfmodel.GenerateInput{Prompt: "rewrite_v1"})
	require.Error(t, err)
}
