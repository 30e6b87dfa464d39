package eino

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	llmctx "screenplay-ai-api/internal/domain/service"
	"screenplay-ai-api/pkg/metrics"
)

func TestChatModelHandler_RecordsSuccess(t *testing.T) {
	h := newChatModelCallbackHandler()
	ctx := llmctx.WithOperationProvider(context.Background(), "script", "test-success")

	ctx = h.OnStart(ctx, nil, &model.CallbackInput{Config: &model.Config{Model: "m1"}})
	h.OnEnd(ctx, nil, &model.CallbackOutput{TokenUsage: &model.TokenUsage{PromptTokens: 7, CompletionTokens: 3}})

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LLMCallTotal.WithLabelValues("test-success", "m1", "success")))
	assert.Equal(t, 7.0, testutil.ToFloat64(metrics.LLMTokensUsed.WithLabelValues("test-success", "m1", "prompt")))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.LLMTokensUsed.WithLabelValues("test-success", "m1", "completion")))
}

func TestChatModelHandler_RecordsError(t *testing.T) {
	h := newChatModelCallbackHandler()
	ctx := llmctx.WithOperationProvider(context.Background(), "chat", "test-error")

	ctx = h.OnStart(ctx, nil, &model.CallbackInput{Config: &model.Config{Model: "m2"}})
	h.OnError(ctx, nil, errors.New("rate limited"))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.LLMCallTotal.WithLabelValues("test-error", "m2", "error")))
}

func TestNewHandler_CoversChatModel(t *testing.T) {
	h := newHandler()
	assert.NotNil(t, h)
	Init()
	Init()
}
