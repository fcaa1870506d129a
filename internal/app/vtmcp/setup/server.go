package setup

import (
	"context"
	"net"
	"net/http"

	"github.com/mark3labs/mcp-go/server"

	"github.com/gonkawada/analyze-vt-mcp/internal/app/vtmcp/router"
	"github.com/gonkawada/analyze-vt-mcp/internal/config"
)

// SetupServer 初始化 HTTP 服务器模块
func SetupServer(cfg *config.Config, mcpServer *server.MCPServer) *ServerModule {
	r := router.NewRouter(router.NewRouterConfig(cfg), mcpServer)

	// 初始化HTTP服务器
	httpServer := &http.Server{
		Addr:           cfg.Server.GetAddress(),
		Handler:        r.GetEngine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	// SSE 长连接只在请求上下文结束时退出，关闭时取消所有请求上下文
	baseCtx, cancel := context.WithCancel(context.Background())
	httpServer.BaseContext = func(net.Listener) context.Context { return baseCtx }
	httpServer.RegisterOnShutdown(cancel)

	return &ServerModule{
		Router:     r,
		HTTPServer: httpServer,
	}
}
