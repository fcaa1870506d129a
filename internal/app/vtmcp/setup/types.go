package setup

import (
	"net/http"

	"github.com/mark3labs/mcp-go/server"

	"github.com/gonkawada/analyze-vt-mcp/internal/app/vtmcp/router"
	"github.com/gonkawada/analyze-vt-mcp/internal/service/lookup"
)

// CoreModule MCP 核心模块
type CoreModule struct {
	LookupService lookup.LookupService
	MCPServer     *server.MCPServer
}

// ServerModule HTTP 服务器模块，stdio 模式下不创建
type ServerModule struct {
	Router     *router.Router
	HTTPServer *http.Server
}
