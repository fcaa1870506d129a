/**
 * 限流中间件
 * @author: sun977
 * @date: 2025.10.21
 * @description: 按客户端IP的令牌桶限流，保护 VirusTotal 配额
 */
package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/gonkawada/analyze-vt-mcp/internal/pkg/logger"
	"github.com/gonkawada/analyze-vt-mcp/internal/pkg/utils"
)

// limiterIdleTTL 空闲限流器的回收时间
const limiterIdleTTL = 10 * time.Minute

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	// 每秒请求数限制
	RequestsPerSecond float64 `json:"requests_per_second"`

	// 突发请求数限制
	BurstSize int `json:"burst_size"`

	// 跳过限流的路径
	SkipPaths []string `json:"skip_paths"`

	// 自定义限流键生成函数
	KeyGenerator func(*gin.Context) string `json:"-"`
}

// clientLimiter 单个客户端的限流器
type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitMiddleware 限流中间件
type RateLimitMiddleware struct {
	config      *RateLimitConfig
	limiters    map[string]*clientLimiter
	mutex       sync.Mutex
	lastCleanup time.Time
	now         func() time.Time
}

// NewRateLimitMiddleware 创建限流中间件
func NewRateLimitMiddleware(config *RateLimitConfig) *RateLimitMiddleware {
	if config == nil {
		config = &RateLimitConfig{
			RequestsPerSecond: 10,
			BurstSize:         20,
			SkipPaths:         []string{"/health", "/ping"},
		}
	}
	if config.BurstSize <= 0 {
		config.BurstSize = 1
	}
	if config.KeyGenerator == nil {
		config.KeyGenerator = defaultKeyGenerator
	}

	return &RateLimitMiddleware{
		config:      config,
		limiters:    make(map[string]*clientLimiter),
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

// Handler 限流处理器
func (m *RateLimitMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.shouldSkipRateLimit(c.Request.URL.Path) {
			c.Next()
			return
		}

		key := m.config.KeyGenerator(c)
		limiter := m.getLimiter(key)

		if !limiter.Allow() {
			retryAfter := m.retryAfter(limiter)
			logger.WithFields(map[string]interface{}{
				"key":  key,
				"path": c.Request.URL.Path,
			}).Warn("Rate limit exceeded")
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate_limited",
				"message":     "Rate limit exceeded",
				"retry_after": retryAfter,
			})
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(m.config.BurstSize))
		c.Next()
	}
}

// shouldSkipRateLimit 检查是否应该跳过限流
func (m *RateLimitMiddleware) shouldSkipRateLimit(path string) bool {
	for _, skipPath := range m.config.SkipPaths {
		if path == skipPath {
			return true
		}
	}
	return false
}

// getLimiter 获取或创建限流器，顺带回收空闲的限流器
func (m *RateLimitMiddleware) getLimiter(key string) *rate.Limiter {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := m.now()
	if now.Sub(m.lastCleanup) > limiterIdleTTL {
		for k, cl := range m.limiters {
			if now.Sub(cl.lastSeen) > limiterIdleTTL {
				delete(m.limiters, k)
			}
		}
		m.lastCleanup = now
	}

	cl, ok := m.limiters[key]
	if !ok {
		cl = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(m.config.RequestsPerSecond), m.config.BurstSize),
		}
		m.limiters[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// retryAfter 估算下一个令牌可用的秒数，至少为 1
func (m *RateLimitMiddleware) retryAfter(limiter *rate.Limiter) int {
	r := limiter.Reserve()
	delay := r.Delay()
	r.Cancel()
	seconds := int(delay.Seconds() + 0.999)
	if seconds < 1 {
		seconds = 1
	}
	return seconds
}

// defaultKeyGenerator 默认按客户端IP限流
func defaultKeyGenerator(c *gin.Context) string {
	return utils.GetClientIP(c)
}
