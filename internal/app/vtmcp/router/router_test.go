package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/gonkawada/analyze-vt-mcp/internal/app/vtmcp/middleware"
	"github.com/gonkawada/analyze-vt-mcp/internal/config"
)

func newMCPServer() *server.MCPServer {
	return server.NewMCPServer("vt-test", "0.0.1", server.WithToolCapabilities(false))
}

const initializeBody = `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`

// TestHealthRoutes 测试健康检查路由
func TestHealthRoutes(t *testing.T) {
	r := NewRouter(&RouterConfig{Transport: config.TransportSSE}, newMCPServer())

	for _, path := range []string{"/health", "/ping", "/version"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		r.GetEngine().ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w := httptest.NewRecorder()
	r.GetEngine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	body := gjson.Parse(w.Body.String())
	assert.Equal(t, "healthy", body.Get("status").String())
	assert.Equal(t, ServiceName, body.Get("service").String())
	assert.Equal(t, config.TransportSSE, body.Get("transport").String())
}

// TestStreamableRoute 测试 Streamable HTTP 端点可以完成 initialize
func TestStreamableRoute(t *testing.T) {
	r := NewRouter(&RouterConfig{Transport: config.TransportStreamableHTTP}, newMCPServer())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(initializeBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	r.GetEngine().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "vt-test")

	// SSE 端点在该模式下不存在
	w = httptest.NewRecorder()
	r.GetEngine().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/message", strings.NewReader("{}")))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestMCPRoutesRequireAuth 开启认证后 MCP 端点需要密钥，健康检查不需要
func TestMCPRoutesRequireAuth(t *testing.T) {
	r := NewRouter(&RouterConfig{
		Transport: config.TransportStreamableHTTP,
		MiddlewareConfig: &MiddlewareConfig{
			Auth: &middleware.AuthConfig{APIKey: "secret", AuthMethod: "api_key"},
		},
	}, newMCPServer())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(initializeBody))
	req.Header.Set("Content-Type", "application/json")
	r.GetEngine().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(initializeBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "secret")
	r.GetEngine().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.GetEngine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

// TestWhitelistIgnoresSpoofedForwardedFor 未配置可信代理时不采用 X-Forwarded-For
func TestWhitelistIgnoresSpoofedForwardedFor(t *testing.T) {
	newWhitelistRouter := func(trusted []string) *Router {
		return NewRouter(&RouterConfig{
			Transport:      config.TransportStreamableHTTP,
			TrustedProxies: trusted,
			MiddlewareConfig: &MiddlewareConfig{
				Auth: &middleware.AuthConfig{APIKey: "secret", AuthMethod: "api_key", WhitelistIPs: []string{"10.0.0.0/8"}},
			},
		}, newMCPServer())
	}

	tests := []struct {
		name       string
		trusted    []string
		remoteAddr string
		forwarded  string
		wantStatus int
	}{
		{"非白名单地址", nil, "203.0.113.7:4000", "", http.StatusForbidden},
		{"伪造转发头", nil, "203.0.113.7:4000", "10.9.9.9", http.StatusForbidden},
		{"非可信代理转发", []string{"192.0.2.1"}, "203.0.113.7:4000", "10.9.9.9", http.StatusForbidden},
		{"可信代理转发", []string{"192.0.2.1"}, "192.0.2.1:4000", "10.9.9.9", http.StatusOK},
		{"白名单直连", nil, "10.1.2.3:4000", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newWhitelistRouter(tt.trusted)
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(initializeBody))
			req.RemoteAddr = tt.remoteAddr
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-API-Key", "secret")
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			r.GetEngine().ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}
}

// TestRateLimitIgnoresSpoofedForwardedFor 轮换 X-Forwarded-For 不能绕过限流
func TestRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	r := NewRouter(&RouterConfig{
		Transport: config.TransportSSE,
		MiddlewareConfig: &MiddlewareConfig{
			RateLimit: &middleware.RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 1},
		},
	}, newMCPServer())

	codes := make([]int, 0, 2)
	for _, forwarded := range []string{"10.0.0.1", "10.0.0.2"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/version", nil)
		req.RemoteAddr = "203.0.113.7:4000"
		req.Header.Set("X-Forwarded-For", forwarded)
		r.GetEngine().ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}

// TestSSEMessageRequiresSession SSE 消息端点缺少会话时被拒绝
func TestSSEMessageRequiresSession(t *testing.T) {
	r := NewRouter(&RouterConfig{Transport: config.TransportSSE, SSEPath: "/events"}, newMCPServer())

	w := httptest.NewRecorder()
	r.GetEngine().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/message", strings.NewReader(initializeBody)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// TestNewRouterConfig 测试从服务配置映射中间件
func TestNewRouterConfig(t *testing.T) {
	cfg := &config.Config{
		Server: &config.ServerConfig{Transport: config.TransportSSE, Mode: gin.DebugMode, SSEPath: "/sse", MessagePath: "/message", TrustedProxies: []string{"192.0.2.1"}},
		Middleware: &config.MiddlewareConfig{
			Auth:      &config.AuthConfig{Enabled: false, APIKey: "x"},
			Logging:   &config.LoggingConfig{EnableRequestLog: true, SlowRequestThreshold: time.Second},
			CORS:      &config.CORSConfig{Enabled: true, AllowOrigins: []string{"*"}, MaxAge: 60},
			RateLimit: &config.RateLimitConfig{Enabled: true, RequestsPerSecond: 2, BurstSize: 4},
		},
	}

	rc := NewRouterConfig(cfg)
	assert.True(t, rc.Debug)
	assert.Equal(t, []string{"192.0.2.1"}, rc.TrustedProxies)
	assert.Nil(t, rc.MiddlewareConfig.Auth)
	require.NotNil(t, rc.MiddlewareConfig.Logging)
	assert.Equal(t, time.Second, rc.MiddlewareConfig.Logging.SlowRequestThreshold)
	require.NotNil(t, rc.MiddlewareConfig.CORS)
	assert.Equal(t, time.Minute, rc.MiddlewareConfig.CORS.MaxAge)
	require.NotNil(t, rc.MiddlewareConfig.RateLimit)
	assert.Equal(t, 4, rc.MiddlewareConfig.RateLimit.BurstSize)
}
