package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	"screenplay-ai-api/internal/interfaces/http/dto"
	"screenplay-ai-api/pkg/logger"
	"screenplay-ai-api/pkg/tracer"
)

const (
	RequestIDHeader = "X-Request-ID"
	TraceIDHeader   = "X-Trace-ID"
	// ProjectIDHeader 项目路由的响应头，回显本次操作的项目 ID
	ProjectIDHeader = "X-Project-ID"
)

// RequestContext 请求上下文中间件：请求 ID 与项目 ID 写入 gin context、日志 context 和响应头
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)
		ctx := logger.WithContext(c.Request.Context(), logger.RequestIDKey, requestID)

		if pid := c.Param(dto.ParamProject); pid != "" {
			c.Set("project_id", pid)
			c.Header(ProjectIDHeader, pid)
			ctx = logger.WithContext(ctx, logger.ProjectIDKey, pid)
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Trace OpenTelemetry 追踪中间件；探活和指标路径不产生 span
func Trace(serviceName string, skipPaths ...string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName, otelgin.WithFilter(func(r *http.Request) bool {
		return !isSystemPath(r.URL.Path, skipPaths)
	}))
}

// TraceContext 把 trace_id/span_id 写入 gin context、日志 context 和响应头，项目 ID 挂到 span 上
func TraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID, spanID, ok := tracer.IDs(c.Request.Context())
		if ok {
			c.Set("trace_id", traceID)
			c.Set("span_id", spanID)
			c.Header(TraceIDHeader, traceID)

			ctx := logger.WithContext(c.Request.Context(), logger.TraceIDKey, traceID)
			ctx = logger.WithContext(ctx, logger.SpanIDKey, spanID)
			c.Request = c.Request.WithContext(ctx)

			if pid := c.Param(dto.ParamProject); pid != "" {
				trace.SpanFromContext(c.Request.Context()).SetAttributes(tracer.ProjectIDAttr.String(pid))
			}
		}
		c.Next()
	}
}

func isSystemPath(path string, extra []string) bool {
	switch path {
	case "/health", "/ready", "/live":
		return true
	}
	for _, p := range extra {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
