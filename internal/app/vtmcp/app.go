/**
 * VirusTotal MCP 应用程序核心逻辑
 * @author: sun977
 * @date: 2025.10.21
 * @description: 负责初始化日志、VirusTotal 客户端、查询服务与 MCP 服务，并按传输模式运行
 * @architecture: 应用逻辑从 main 函数中分离，cmd 只负责解析参数与信号
 */

package vtmcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/gonkawada/analyze-vt-mcp/internal/app/vtmcp/router"
	"github.com/gonkawada/analyze-vt-mcp/internal/app/vtmcp/setup"
	"github.com/gonkawada/analyze-vt-mcp/internal/config"
	"github.com/gonkawada/analyze-vt-mcp/internal/pkg/logger"
	"github.com/gonkawada/analyze-vt-mcp/internal/service/lookup"
)

// App MCP 应用程序
type App struct {
	config        *config.Config
	logger        *logger.LoggerManager
	lookupService lookup.LookupService
	mcpServer     *server.MCPServer

	// 仅 HTTP 传输模式
	router     *router.Router
	httpServer *http.Server
	serveErr   chan error
	addr       net.Addr
}

// NewApp 创建应用程序实例，cfg 需已通过校验
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	// stdio 模式下标准输出承载协议消息
	logCfg := cfg.Log
	if cfg.Server.Transport == config.TransportStdio {
		logCfg = logger.ProtectStdout(logCfg)
	}

	// 初始化日志管理器，同时设置全局日志实例
	loggerManager, err := logger.InitLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	logger.LogSystemEvent("app", "init", "VirusTotal MCP server initializing", logger.InfoLevel, map[string]interface{}{
		"transport": cfg.Server.Transport,
	})

	coreModule, err := setup.SetupCore(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		config:        cfg,
		logger:        loggerManager,
		lookupService: coreModule.LookupService,
		mcpServer:     coreModule.MCPServer,
	}

	if cfg.Server.Transport != config.TransportStdio {
		serverModule := setup.SetupServer(cfg, coreModule.MCPServer)
		app.router = serverModule.Router
		app.httpServer = serverModule.HTTPServer
	}

	return app, nil
}

// GetConfig 获取配置实例
func (a *App) GetConfig() *config.Config {
	return a.config
}

// GetRouter 获取路由器实例，stdio 模式下为 nil
func (a *App) GetRouter() *router.Router {
	return a.router
}

// GetMCPServer 获取 MCP 服务实例
func (a *App) GetMCPServer() *server.MCPServer {
	return a.mcpServer
}

// GetLookupService 获取查询服务
func (a *App) GetLookupService() lookup.LookupService {
	return a.lookupService
}

// Run 按传输模式运行，直到 ctx 结束
func (a *App) Run(ctx context.Context) error {
	if a.config.Server.Transport == config.TransportStdio {
		return a.RunStdio(ctx, os.Stdin, os.Stdout)
	}

	if err := a.Start(); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
	case err := <-a.serveErr:
		if err != nil {
			return fmt.Errorf("http server stopped: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.config.Server.ShutdownTimeout)
	defer cancel()
	return a.Stop(shutdownCtx)
}

// RunStdio 通过标准输入输出提供 MCP 服务
func (a *App) RunStdio(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	logger.Info("Starting VirusTotal MCP server on stdio")

	errWriter := a.logger.GetLogger().WriterLevel(logrus.ErrorLevel)
	defer errWriter.Close()

	stdioServer := server.NewStdioServer(a.mcpServer)
	stdioServer.SetErrorLogger(log.New(errWriter, "", 0))

	err := stdioServer.Listen(ctx, stdin, stdout)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, io.EOF) {
		return fmt.Errorf("stdio server stopped: %w", err)
	}

	logger.Info("VirusTotal MCP server stopped")
	return nil
}

// Start 启动 HTTP 服务器，监听失败时直接返回错误
func (a *App) Start() error {
	if a.httpServer == nil {
		return fmt.Errorf("http server is not available for transport %s", a.config.Server.Transport)
	}

	listener, err := net.Listen("tcp", a.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.httpServer.Addr, err)
	}

	a.addr = listener.Addr()
	a.serveErr = make(chan error, 1)
	go func() {
		if err := a.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error: ", err)
			a.serveErr <- err
			return
		}
		a.serveErr <- nil
	}()

	logger.WithFields(map[string]interface{}{
		"address":   listener.Addr().String(),
		"transport": a.config.Server.Transport,
	}).Info("VirusTotal MCP server started")
	return nil
}

// Addr 返回实际监听地址，未启动时为 nil
func (a *App) Addr() net.Addr {
	return a.addr
}

// Stop 停止 HTTP 服务器
func (a *App) Stop(ctx context.Context) error {
	if a.httpServer == nil {
		return nil
	}
	logger.Info("Stopping VirusTotal MCP server...")

	if err := a.router.Shutdown(ctx); err != nil {
		logger.Warn("Failed to close MCP sessions: ", err)
	}
	if err := a.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}

	logger.Info("VirusTotal MCP server stopped")
	return nil
}
