package setup

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"

	"github.com/gonkawada/analyze-vt-mcp/internal/config"
	"github.com/gonkawada/analyze-vt-mcp/internal/handler/tools"
	"github.com/gonkawada/analyze-vt-mcp/internal/pkg/logger"
	"github.com/gonkawada/analyze-vt-mcp/internal/pkg/version"
	"github.com/gonkawada/analyze-vt-mcp/internal/pkg/virustotal"
	"github.com/gonkawada/analyze-vt-mcp/internal/service/lookup"
)

// DefaultServerName MCP 服务名称
const DefaultServerName = "virustotal-mcp"

// SetupCore 初始化 VirusTotal 客户端、查询服务和 MCP 服务
func SetupCore(cfg *config.Config) (*CoreModule, error) {
	client, err := virustotal.NewClientFromConfig(cfg.VirusTotal)
	if err != nil {
		return nil, fmt.Errorf("failed to create virustotal client: %w", err)
	}
	logger.WithFields(map[string]interface{}{
		"base_url":     client.BaseURL(),
		"timeout":      cfg.VirusTotal.Timeout.String(),
		"settle_delay": cfg.VirusTotal.SettleDelay.String(),
	}).Info("VirusTotal client initialized")

	lookupService := lookup.NewLookupService(client, lookup.WithSettleDelay(cfg.VirusTotal.SettleDelay))

	return &CoreModule{
		LookupService: lookupService,
		MCPServer:     NewMCPServer(serverName(cfg), lookupService),
	}, nil
}

// NewMCPServer 创建注册了全部工具和资源的 MCP 服务
func NewMCPServer(name string, lookupService lookup.LookupService) *server.MCPServer {
	s := server.NewMCPServer(name, version.GetVersion(),
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithToolHandlerMiddleware(tools.LoggingMiddleware),
		server.WithRecovery(),
	)
	tools.NewToolHandler(lookupService).Register(s)
	return s
}

func serverName(cfg *config.Config) string {
	if cfg.App != nil && cfg.App.Name != "" {
		return cfg.App.Name
	}
	return DefaultServerName
}
