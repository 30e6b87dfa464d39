package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"screenplay-ai-api/pkg/metrics"
)

// Metrics Prometheus 指标采集中间件。
// path 使用路由模板（/v1/projects/:pid/...），未匹配的请求统一记为 unmatched；
// 探活路径与 skipPaths 不计数。
func Metrics(skipPaths ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isSystemPath(c.Request.URL.Path, skipPaths) {
			c.Next()
			return
		}

		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		group := routeGroup(path)

		inflight := metrics.HTTPRequestsInFlight.WithLabelValues(group)
		inflight.Inc()
		defer inflight.Dec()

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size > 0 {
			metrics.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}

// routeGroup 按路由模板归类：generate、copilot、novel 与其余 api
func routeGroup(path string) string {
	switch {
	case strings.Contains(path, "/generate/"):
		return "generate"
	case strings.Contains(path, "/copilot/"):
		return "copilot"
	case strings.Contains(path, "/novel/"):
		return "novel"
	case path == "unmatched":
		return path
	default:
		return "api"
	}
}
