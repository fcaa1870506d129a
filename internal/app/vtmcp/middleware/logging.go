/**
 * 日志中间件
 * @author: sun977
 * @date: 2025.10.21
 * @description: 记录 HTTP 请求，生成请求ID，慢请求告警
 */
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gonkawada/analyze-vt-mcp/internal/pkg/logger"
)

// RequestIDHeader 请求ID头
const RequestIDHeader = "X-Request-ID"

// LoggingConfig 日志配置
type LoggingConfig struct {
	// 是否启用请求日志
	EnableRequestLog bool `json:"enable_request_log"`

	// 跳过日志的路径
	SkipPaths []string `json:"skip_paths"`

	// 慢请求阈值，0 表示不检查
	SlowRequestThreshold time.Duration `json:"slow_request_threshold"`
}

// LoggingMiddleware 日志中间件
type LoggingMiddleware struct {
	config *LoggingConfig
}

// NewLoggingMiddleware 创建日志中间件
func NewLoggingMiddleware(config *LoggingConfig) *LoggingMiddleware {
	if config == nil {
		config = &LoggingConfig{
			EnableRequestLog:     true,
			SlowRequestThreshold: 5 * time.Second,
			SkipPaths:            []string{"/health", "/ping"},
		}
	}

	return &LoggingMiddleware{
		config: config,
	}
}

// Handler 日志处理器
func (m *LoggingMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		// 沿用上游的请求ID
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		if m.shouldSkipLogging(c.Request.URL.Path) {
			c.Next()
			return
		}

		c.Next()

		if m.config.EnableRequestLog {
			logger.LogAccessRequest(c, startTime, requestID)
		}

		// 检查慢请求，SSE 长连接除外
		duration := time.Since(startTime)
		if m.config.SlowRequestThreshold > 0 && duration > m.config.SlowRequestThreshold &&
			c.Writer.Header().Get("Content-Type") != "text/event-stream" {
			logger.WithFields(map[string]interface{}{
				"path":       c.Request.URL.Path,
				"method":     c.Request.Method,
				"duration":   duration.String(),
				"request_id": requestID,
			}).Warn("Slow Request Detected")
		}
	}
}

// shouldSkipLogging 检查是否应该跳过日志
func (m *LoggingMiddleware) shouldSkipLogging(path string) bool {
	for _, skipPath := range m.config.SkipPaths {
		if path == skipPath {
			return true
		}
	}
	return false
}
