package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLLMContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "unknown", OperationFromContext(ctx))
	assert.Equal(t, "unknown", ProviderFromContext(ctx))
	assert.Equal(t, "", ProjectFromContext(ctx))

	ctx = WithOperationProvider(ctx, " script ", "deepseek")
	ctx = WithProject(ctx, "p1")
	assert.Equal(t, "script", OperationFromContext(ctx))
	assert.Equal(t, "deepseek", ProviderFromContext(ctx))
	assert.Equal(t, "p1", ProjectFromContext(ctx))

	assert.Equal(t, "script", OperationFromContext(WithOperation(ctx, "   ")))
}
