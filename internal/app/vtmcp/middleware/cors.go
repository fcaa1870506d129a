/**
 * CORS中间件
 * @author: sun977
 * @date: 2025.01.21
 * @description: 处理 MCP 端点的跨域请求，浏览器端 MCP 客户端需要读取 Mcp-Session-Id
 */
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// CORSConfig CORS配置
type CORSConfig struct {
	// 允许的源，包含 "*" 时允许所有源
	AllowOrigins []string `json:"allow_origins"`

	// 允许的方法
	AllowMethods []string `json:"allow_methods"`

	// 允许的头部
	AllowHeaders []string `json:"allow_headers"`

	// 暴露的头部
	ExposeHeaders []string `json:"expose_headers"`

	// 预检请求缓存时间
	MaxAge time.Duration `json:"max_age"`
}

// CORSMiddleware CORS中间件
type CORSMiddleware struct {
	config          *CORSConfig
	allowAllOrigins bool
}

// NewCORSMiddleware 创建CORS中间件
func NewCORSMiddleware(config *CORSConfig) *CORSMiddleware {
	if config == nil {
		config = &CORSConfig{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{
				http.MethodGet,
				http.MethodPost,
				http.MethodDelete,
				http.MethodOptions,
			},
			AllowHeaders: []string{
				"Content-Type",
				"Authorization",
				"X-API-Key",
				"Mcp-Session-Id",
			},
			ExposeHeaders: []string{"Mcp-Session-Id", RequestIDHeader},
			MaxAge:        10 * time.Minute,
		}
	}

	m := &CORSMiddleware{config: config}
	for _, origin := range config.AllowOrigins {
		if origin == "*" {
			m.allowAllOrigins = true
			break
		}
	}
	return m
}

// Handler CORS处理器
func (m *CORSMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		// 非跨域请求直接放行
		if origin == "" {
			c.Next()
			return
		}

		if !m.isOriginAllowed(origin) {
			if c.Request.Method == http.MethodOptions {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.Next()
			return
		}

		if m.allowAllOrigins {
			c.Header("Access-Control-Allow-Origin", "*")
		} else {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Vary", "Origin")
		}
		if len(m.config.ExposeHeaders) > 0 {
			c.Header("Access-Control-Expose-Headers", strings.Join(m.config.ExposeHeaders, ", "))
		}

		// 预检请求
		if c.Request.Method == http.MethodOptions {
			c.Header("Access-Control-Allow-Methods", strings.Join(m.config.AllowMethods, ", "))
			c.Header("Access-Control-Allow-Headers", strings.Join(m.config.AllowHeaders, ", "))
			if m.config.MaxAge > 0 {
				c.Header("Access-Control-Max-Age", strconv.Itoa(int(m.config.MaxAge.Seconds())))
			}
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// isOriginAllowed 检查源是否被允许
func (m *CORSMiddleware) isOriginAllowed(origin string) bool {
	if m.allowAllOrigins {
		return true
	}
	for _, allowed := range m.config.AllowOrigins {
		if strings.EqualFold(origin, allowed) {
			return true
		}
		// 支持 *.example.com 形式的子域通配
		if strings.HasPrefix(allowed, "*.") && strings.HasSuffix(strings.ToLower(origin), strings.ToLower(allowed[1:])) {
			return true
		}
	}
	return false
}
