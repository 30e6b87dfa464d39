// Package chain 基于 eino compose 编排单次模型调用
package chain

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	openaiopts "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	llmctx "screenplay-ai-api/internal/domain/service"
	wfmodel "screenplay-ai-api/internal/workflow/model"
	wfnode "screenplay-ai-api/internal/workflow/node"
	workflowport "screenplay-ai-api/internal/workflow/port"
	workflowprompt "screenplay-ai-api/internal/workflow/prompt"
	"screenplay-ai-api/pkg/logger"
)

// GenerationChain 所有生成操作共用的链：init → template → llm → finalize。
// 每次调用都是单轮请求，不保留服务端会话。
type GenerationChain struct {
	factory  workflowport.ChatModelFactory
	registry *workflowprompt.Registry

	chainOnce sync.Once
	chain     compose.Runnable[*wfmodel.GenerateInput, *schema.Message]
	chainErr  error
}

func NewGenerationChain(factory workflowport.ChatModelFactory) *GenerationChain {
	return &GenerationChain{factory: factory, registry: workflowprompt.NewRegistry()}
}

// Generate 执行一次生成，返回去除首尾空白的文本与用量信息
func (c *GenerationChain) Generate(ctx context.Context, in *wfmodel.GenerateInput) (*wfmodel.GenerateOutput, error) {
	outMsg, err := c.Invoke(ctx, in)
	if err != nil {
		return nil, err
	}

	meta := wfmodel.LLMUsageMeta{
		Provider:    strings.TrimSpace(in.Provider),
		Model:       strings.TrimSpace(in.Model),
		GeneratedAt: time.Now().UTC(),
	}
	if outMsg.ResponseMeta != nil && outMsg.ResponseMeta.Usage != nil {
		meta.PromptTokens = outMsg.ResponseMeta.Usage.PromptTokens
		meta.CompletionTokens = outMsg.ResponseMeta.Usage.CompletionTokens
	}
	return &wfmodel.GenerateOutput{Content: strings.TrimSpace(outMsg.Content), Meta: meta}, nil
}

func (c *GenerationChain) Invoke(ctx context.Context, in *wfmodel.GenerateInput) (*schema.Message, error) {
	if c == nil || c.factory == nil {
		return nil, fmt.Errorf("llm factory not configured")
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}

	chain, err := c.getChain()
	if err != nil {
		return nil, err
	}
	return chain.Invoke(ctx, in)
}

type generationChainState struct {
	In       *wfmodel.GenerateInput
	Messages []*schema.Message
	OutMsg   *schema.Message
}

func (c *GenerationChain) getChain() (compose.Runnable[*wfmodel.GenerateInput, *schema.Message], error) {
	c.chainOnce.Do(func() {
		c.chain, c.chainErr = c.buildChain(context.Background())
	})
	return c.chain, c.chainErr
}

func (c *GenerationChain) buildChain(ctx context.Context) (compose.Runnable[*wfmodel.GenerateInput, *schema.Message], error) {
	chain := compose.NewChain[*wfmodel.GenerateInput, *schema.Message]()

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, in *wfmodel.GenerateInput) (*generationChainState, error) {
			if in == nil {
				return nil, fmt.Errorf("input is nil")
			}
			if strings.TrimSpace(in.Prompt) == "" {
				return nil, fmt.Errorf("prompt id is required")
			}
			return &generationChainState{In: in}, nil
		}),
		compose.WithNodeName("generation.init"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *generationChainState) (*generationChainState, error) {
			msgs, err := c.formatMessages(ctx, st.In)
			if err != nil {
				return nil, err
			}
			st.Messages = msgs
			return st, nil
		}),
		compose.WithNodeName("generation.template"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(ctx context.Context, st *generationChainState) (*generationChainState, error) {
			provider := strings.TrimSpace(st.In.Provider)
			ctx = llmctx.WithOperationProvider(ctx, st.In.Operation, provider)
			chatModel, err := c.factory.Get(ctx, provider)
			if err != nil {
				return nil, err
			}

			outMsg, err := chatModel.Generate(ctx, st.Messages, buildModelOptions(st.In, st.In.Structured())...)
			if err != nil && st.In.Structured() && wfnode.IsResponseFormatUnsupportedError(err) {
				logger.Warn(ctx, "llm json_schema not supported, fallback to prompt-only",
					"operation", st.In.Operation,
					"provider", provider,
					"model", strings.TrimSpace(st.In.Model),
					"error", err.Error(),
				)
				outMsg, err = chatModel.Generate(ctx, st.Messages, buildModelOptions(st.In, false)...)
			}
			if err != nil {
				return nil, err
			}
			if outMsg == nil {
				return nil, fmt.Errorf("empty llm response")
			}
			st.OutMsg = outMsg
			return st, nil
		}),
		compose.WithNodeName("generation.llm"),
	)

	chain.AppendLambda(
		compose.InvokableLambda(func(_ context.Context, st *generationChainState) (*schema.Message, error) {
			if st == nil || st.OutMsg == nil {
				return nil, fmt.Errorf("state is nil")
			}
			return st.OutMsg, nil
		}),
		compose.WithNodeName("generation.finalize"),
	)

	return chain.Compile(ctx)
}

// formatMessages 渲染模板；多轮历史插在系统消息与本轮用户消息之间
func (c *GenerationChain) formatMessages(ctx context.Context, in *wfmodel.GenerateInput) ([]*schema.Message, error) {
	tpl, err := c.registry.ChatTemplate(workflowprompt.PromptID(in.Prompt))
	if err != nil {
		return nil, err
	}
	vars := in.Vars
	if vars == nil {
		vars = map[string]any{}
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("format prompt %s: %w", in.Prompt, err)
	}
	if len(in.History) == 0 || len(msgs) == 0 {
		return msgs, nil
	}

	out := make([]*schema.Message, 0, len(msgs)+len(in.History))
	out = append(out, msgs[:len(msgs)-1]...)
	for _, turn := range in.History {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		if strings.EqualFold(turn.Role, string(schema.Assistant)) {
			out = append(out, schema.AssistantMessage(content, nil))
		} else {
			out = append(out, schema.UserMessage(content))
		}
	}
	return append(out, msgs[len(msgs)-1]), nil
}

func buildModelOptions(in *wfmodel.GenerateInput, enableSchema bool) []model.Option {
	opts := make([]model.Option, 0, 4)
	if in == nil {
		return opts
	}

	if in.Temperature != nil {
		opts = append(opts, model.WithTemperature(*in.Temperature))
	}
	if in.MaxTokens != nil {
		opts = append(opts, model.WithMaxTokens(*in.MaxTokens))
	}
	if m := strings.TrimSpace(in.Model); m != "" {
		opts = append(opts, model.WithModel(m))
	}

	if enableSchema {
		opts = append(opts, openaiopts.WithExtraFields(map[string]any{
			"response_format": map[string]any{
				"type": "json_schema",
				"json_schema": map[string]any{
					"name":   in.SchemaName,
					"strict": false,
					"schema": in.Schema,
				},
			},
		}))
	}

	return opts
}
