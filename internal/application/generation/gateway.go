// Package generation 是生成服务的边界：组装提示词、调用模型、把输出解析为带类型的结果。
//
// 每次调用都是单轮请求；网关不做重试，也不假设模型输出一定合法。
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	wfmodel "screenplay-ai-api/internal/workflow/model"
	wfnode "screenplay-ai-api/internal/workflow/node"
	"screenplay-ai-api/internal/workflow/port"
	workflowprompt "screenplay-ai-api/internal/workflow/prompt"
	"screenplay-ai-api/pkg/logger"
	"screenplay-ai-api/pkg/tracer"
)

// Operation 生成操作名，同时用作指标标签
type Operation string

const (
	OpAnalyzeNovel       Operation = "analysis"
	OpPlanAdaptation     Operation = "plan"
	OpGenerateCharacters Operation = "characters"
	OpGenerateOutline    Operation = "outline"
	OpGenerateScript     Operation = "script"
	OpGenerateStoryboard Operation = "storyboard"
	OpAnalyzeMarket      Operation = "market"
	OpRewriteBlock       Operation = "rewrite"
	OpChat               Operation = "chat"
	OpGenerateImage      Operation = "image"
	OpEditImage          Operation = "image_edit"
)

// DefaultMaxPromptRunes 注入提示词的原文默认上限
const DefaultMaxPromptRunes = 60_000

// Generator 单次文本生成，由 workflow/chain.GenerationChain 实现
type Generator interface {
	Generate(ctx context.Context, in *wfmodel.GenerateInput) (*wfmodel.GenerateOutput, error)
}

// Result 带类型的生成结果
type Result[T any] struct {
	Value T
	Meta  wfmodel.LLMUsageMeta
}

// Options 网关选项
type Options struct {
	Provider       string
	Model          string
	MaxPromptRunes int
}

// Gateway 生成网关
type Gateway struct {
	gen    Generator
	images port.ImageGenerator
	opts   Options
}

// New 创建网关；images 为 nil 时图片操作返回 ErrNoImage
func New(gen Generator, images port.ImageGenerator, opts Options) *Gateway {
	if opts.MaxPromptRunes <= 0 {
		opts.MaxPromptRunes = DefaultMaxPromptRunes
	}
	return &Gateway{gen: gen, images: images, opts: opts}
}

// ImagesEnabled 是否配置了图片服务
func (g *Gateway) ImagesEnabled() bool {
	return g.images != nil
}

type request struct {
	op         Operation
	prompt     workflowprompt.PromptID
	vars       map[string]any
	schemaName string
	schema     map[string]any
	history    []wfmodel.ChatTurn
}

// call 执行一次生成，空输出归类为 ErrEmptyOutput
func (g *Gateway) call(ctx context.Context, req request) (*wfmodel.GenerateOutput, error) {
	ctx, span := tracer.Start(ctx, "generation."+string(req.op))
	defer span.End()
	span.SetAttributes(attribute.String("generation.operation", string(req.op)))

	if g.gen == nil {
		return nil, fmt.Errorf("generator not configured")
	}

	start := time.Now()
	out, err := g.gen.Generate(ctx, &wfmodel.GenerateInput{
		Operation:  string(req.op),
		Prompt:     string(req.prompt),
		Vars:       req.vars,
		SchemaName: req.schemaName,
		Schema:     req.schema,
		History:    req.history,
		Provider:   g.opts.Provider,
		Model:      g.opts.Model,
	})
	if err == nil && (out == nil || strings.TrimSpace(out.Content) == "") {
		err = ErrEmptyOutput
	}
	if err != nil {
		tracer.RecordError(span, err)
		logger.Warn(ctx, "generation call failed",
			"operation", string(req.op),
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("llm.prompt_tokens", out.Meta.PromptTokens),
		attribute.Int("llm.completion_tokens", out.Meta.CompletionTokens),
	)
	logger.Debug(ctx, "generation call finished",
		"operation", string(req.op),
		"duration_ms", time.Since(start).Milliseconds(),
		"output_runes", len([]rune(out.Content)))
	return out, nil
}

// decode 解析结构化输出；解析失败归类为 ErrInvalidOutput
func decode[T any](content string) (T, error) {
	v, err := wfnode.DecodeJSON[T](content)
	if err != nil {
		return v, fmt.Errorf("%w: %v", ErrInvalidOutput, err)
	}
	return v, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidOutput, fmt.Sprintf(format, args...))
}

// limit 截断注入提示词的长文本
func (g *Gateway) limit(s string) string {
	return wfnode.TruncateByRunes(strings.TrimSpace(s), g.opts.MaxPromptRunes)
}

// IsRecoverable 图片缺失属于可恢复失败，调用方可以保留原状态继续
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrNoImage)
}
