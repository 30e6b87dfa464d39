// Package service 定义跨层共享的领域上下文约定
package service

import (
	"context"
	"strings"
)

type llmCtxKey string

const (
	llmCtxKeyOperation llmCtxKey = "llm_operation"
	llmCtxKeyProvider  llmCtxKey = "llm_provider"
	llmCtxKeyProject   llmCtxKey = "llm_project"
)

const unknown = "unknown"

func withValue(ctx context.Context, key llmCtxKey, value string) context.Context {
	if ctx == nil {
		return nil
	}
	v := strings.TrimSpace(value)
	if v == "" {
		return ctx
	}
	return context.WithValue(ctx, key, v)
}

func valueOr(ctx context.Context, key llmCtxKey, def string) string {
	if ctx == nil {
		return def
	}
	s, ok := ctx.Value(key).(string)
	if !ok || strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// WithOperation 标记当前生成操作（analysis / plan / script ...），用于指标与链路标签
func WithOperation(ctx context.Context, operation string) context.Context {
	return withValue(ctx, llmCtxKeyOperation, operation)
}

// WithProvider 标记当前使用的模型提供商
func WithProvider(ctx context.Context, provider string) context.Context {
	return withValue(ctx, llmCtxKeyProvider, provider)
}

// WithProject 标记生成所属项目
func WithProject(ctx context.Context, projectID string) context.Context {
	return withValue(ctx, llmCtxKeyProject, projectID)
}

// WithOperationProvider 同时设置操作与提供商
func WithOperationProvider(ctx context.Context, operation, provider string) context.Context {
	return WithProvider(WithOperation(ctx, operation), provider)
}

func OperationFromContext(ctx context.Context) string {
	return valueOr(ctx, llmCtxKeyOperation, unknown)
}

func ProviderFromContext(ctx context.Context) string {
	return valueOr(ctx, llmCtxKeyProvider, unknown)
}

func ProjectFromContext(ctx context.Context) string {
	return valueOr(ctx, llmCtxKeyProject, "")
}
