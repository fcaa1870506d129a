/**
 * MCP HTTP 路由
 * @author: sun977
 * @date: 2025.10.21
 * @description: 基于 gin 挂载 MCP 的 SSE / Streamable HTTP 端点以及健康检查路由
 */
package router

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gonkawada/analyze-vt-mcp/internal/app/vtmcp/middleware"
	"github.com/gonkawada/analyze-vt-mcp/internal/config"
	"github.com/gonkawada/analyze-vt-mcp/internal/pkg/logger"
)

// RouterConfig 路由配置
type RouterConfig struct {
	// 是否启用调试模式
	Debug bool `json:"debug"`

	// 传输模式，sse 或 streamable-http
	Transport string `json:"transport"`

	// SSE 传输在 endpoint 事件中通告的外部地址
	BaseURL string `json:"base_url"`

	// 端点路径
	SSEPath        string `json:"sse_path"`
	MessagePath    string `json:"message_path"`
	StreamablePath string `json:"streamable_path"`

	// 可信代理，为空时客户端IP只取连接地址
	TrustedProxies []string `json:"trusted_proxies"`

	// 中间件配置
	MiddlewareConfig *MiddlewareConfig `json:"middleware_config"`
}

// MiddlewareConfig 中间件配置，nil 表示不启用
type MiddlewareConfig struct {
	// 认证中间件配置
	Auth *middleware.AuthConfig `json:"auth"`

	// 日志中间件配置
	Logging *middleware.LoggingConfig `json:"logging"`

	// CORS中间件配置
	CORS *middleware.CORSConfig `json:"cors"`

	// 限流中间件配置
	RateLimit *middleware.RateLimitConfig `json:"rate_limit"`
}

// Router MCP HTTP 路由器
type Router struct {
	engine    *gin.Engine
	config    *RouterConfig
	mcpServer *server.MCPServer

	// 中间件
	authMiddleware      *middleware.AuthMiddleware
	loggingMiddleware   *middleware.LoggingMiddleware
	corsMiddleware      *middleware.CORSMiddleware
	rateLimitMiddleware *middleware.RateLimitMiddleware

	// 传输层，二者只会存在一个
	sseServer        *server.SSEServer
	streamableServer *server.StreamableHTTPServer
}

// NewRouter 创建新的路由器
func NewRouter(cfg *RouterConfig, mcpServer *server.MCPServer) *Router {
	if cfg == nil {
		cfg = &RouterConfig{
			Transport:        config.TransportSSE,
			MiddlewareConfig: &MiddlewareConfig{},
		}
	}
	if cfg.MiddlewareConfig == nil {
		cfg.MiddlewareConfig = &MiddlewareConfig{}
	}
	if cfg.SSEPath == "" {
		cfg.SSEPath = "/sse"
	}
	if cfg.MessagePath == "" {
		cfg.MessagePath = "/message"
	}
	if cfg.StreamablePath == "" {
		cfg.StreamablePath = "/mcp"
	}

	// 设置Gin模式
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := &Router{
		engine:    gin.New(),
		config:    cfg,
		mcpServer: mcpServer,
	}

	r.initTrustedProxies()
	r.initMiddleware()
	r.registerRoutes()

	return r
}

// initTrustedProxies 设置可信代理，gin 默认信任所有代理会让客户端伪造 X-Forwarded-For
func (r *Router) initTrustedProxies() {
	if err := r.engine.SetTrustedProxies(r.config.TrustedProxies); err != nil {
		logger.WithField("trusted_proxies", r.config.TrustedProxies).Warnf("invalid trusted proxies, falling back to remote address: %v", err)
		_ = r.engine.SetTrustedProxies(nil)
	}
}

// NewRouterConfig 从服务配置构造路由配置
func NewRouterConfig(cfg *config.Config) *RouterConfig {
	rc := &RouterConfig{
		Debug:            cfg.Server.Mode == gin.DebugMode,
		Transport:        cfg.Server.Transport,
		BaseURL:          cfg.Server.BaseURL,
		SSEPath:          cfg.Server.SSEPath,
		MessagePath:      cfg.Server.MessagePath,
		StreamablePath:   cfg.Server.StreamablePath,
		TrustedProxies:   cfg.Server.TrustedProxies,
		MiddlewareConfig: &MiddlewareConfig{},
	}

	mw := cfg.Middleware
	if mw == nil {
		return rc
	}
	if mw.Auth != nil && mw.Auth.Enabled {
		rc.MiddlewareConfig.Auth = &middleware.AuthConfig{
			APIKey:       mw.Auth.APIKey,
			APIKeyHeader: mw.Auth.APIKeyHeader,
			JWTSecret:    mw.Auth.JWTSecret,
			WhitelistIPs: mw.Auth.WhitelistIPs,
			AuthMethod:   mw.Auth.AuthMethod,
			SkipPaths:    mw.Auth.SkipPaths,
		}
	}
	if mw.Logging != nil {
		rc.MiddlewareConfig.Logging = &middleware.LoggingConfig{
			EnableRequestLog:     mw.Logging.EnableRequestLog,
			SkipPaths:            mw.Logging.SkipPaths,
			SlowRequestThreshold: mw.Logging.SlowRequestThreshold,
		}
	}
	if mw.CORS != nil && mw.CORS.Enabled {
		rc.MiddlewareConfig.CORS = &middleware.CORSConfig{
			AllowOrigins:  mw.CORS.AllowOrigins,
			AllowMethods:  mw.CORS.AllowMethods,
			AllowHeaders:  mw.CORS.AllowHeaders,
			ExposeHeaders: mw.CORS.ExposeHeaders,
			MaxAge:        secondsToDuration(mw.CORS.MaxAge),
		}
	}
	if mw.RateLimit != nil && mw.RateLimit.Enabled {
		rc.MiddlewareConfig.RateLimit = &middleware.RateLimitConfig{
			RequestsPerSecond: mw.RateLimit.RequestsPerSecond,
			BurstSize:         mw.RateLimit.BurstSize,
			SkipPaths:         mw.RateLimit.SkipPaths,
		}
	}
	return rc
}

// initMiddleware 初始化中间件
func (r *Router) initMiddleware() {
	mc := r.config.MiddlewareConfig

	if mc.Auth != nil {
		r.authMiddleware = middleware.NewAuthMiddleware(mc.Auth)
	}
	if mc.Logging != nil {
		r.loggingMiddleware = middleware.NewLoggingMiddleware(mc.Logging)
	}
	if mc.CORS != nil {
		r.corsMiddleware = middleware.NewCORSMiddleware(mc.CORS)
	}
	if mc.RateLimit != nil {
		r.rateLimitMiddleware = middleware.NewRateLimitMiddleware(mc.RateLimit)
	}
}

// registerRoutes 注册路由
func (r *Router) registerRoutes() {
	// 注册全局中间件
	r.registerGlobalMiddleware()

	// 注册健康检查路由
	r.setupHealthRoutes()

	// 注册 MCP 端点
	r.setupMCPRoutes()
}

// registerGlobalMiddleware 注册全局中间件
func (r *Router) registerGlobalMiddleware() {
	// 恢复中间件
	r.engine.Use(gin.Recovery())

	// CORS中间件，预检请求在认证之前处理
	if r.corsMiddleware != nil {
		r.engine.Use(r.corsMiddleware.Handler())
	}

	// 日志中间件
	if r.loggingMiddleware != nil {
		r.engine.Use(r.loggingMiddleware.Handler())
	}

	// 限流中间件
	if r.rateLimitMiddleware != nil {
		r.engine.Use(r.rateLimitMiddleware.Handler())
	}
}

// setupMCPRoutes 根据传输模式挂载 MCP 端点（需要认证）
func (r *Router) setupMCPRoutes() {
	group := r.engine.Group("")
	if r.authMiddleware != nil {
		group.Use(r.authMiddleware.Handler())
	}

	switch r.config.Transport {
	case config.TransportStreamableHTTP:
		r.streamableServer = server.NewStreamableHTTPServer(r.mcpServer,
			server.WithEndpointPath(r.config.StreamablePath),
		)
		handler := gin.WrapH(r.streamableServer)
		group.GET(r.config.StreamablePath, handler)
		group.POST(r.config.StreamablePath, handler)
		group.DELETE(r.config.StreamablePath, handler)
		logger.WithField("path", r.config.StreamablePath).Info("Streamable HTTP endpoint registered")
	default:
		r.sseServer = server.NewSSEServer(r.mcpServer,
			server.WithBaseURL(r.config.BaseURL),
			server.WithSSEEndpoint(r.config.SSEPath),
			server.WithMessageEndpoint(r.config.MessagePath),
		)
		group.GET(r.config.SSEPath, gin.WrapH(r.sseServer.SSEHandler()))
		group.POST(r.config.MessagePath, gin.WrapH(r.sseServer.MessageHandler()))
		logger.WithFields(map[string]interface{}{
			"sse_path":     r.config.SSEPath,
			"message_path": r.config.MessagePath,
		}).Info("SSE endpoints registered")
	}
}

// Shutdown 关闭传输层，断开仍在保持的 SSE 会话
func (r *Router) Shutdown(ctx context.Context) error {
	var errs []error
	if r.sseServer != nil {
		errs = append(errs, r.sseServer.Shutdown(ctx))
	}
	if r.streamableServer != nil {
		errs = append(errs, r.streamableServer.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// GetEngine 获取Gin引擎
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}

// Handler 返回 HTTP 处理器
func (r *Router) Handler() http.Handler {
	return r.engine
}

// GetConfig 获取当前配置
func (r *Router) GetConfig() *RouterConfig {
	return r.config
}

func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
