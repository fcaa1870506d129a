/**
 * MCP工具处理器
 * @author: sun977
 * @date: 2025.10.21
 * @description: 注册 VirusTotal 查询工具，解析参数后调用查询服务，返回 markdown 文本
 */
package tools

import (
	"context"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gonkawada/analyze-vt-mcp/internal/pkg/logger"
	"github.com/gonkawada/analyze-vt-mcp/internal/pkg/virustotal"
	"github.com/gonkawada/analyze-vt-mcp/internal/service/lookup"
)

// 工具名称
const (
	ToolURLReport          = "get_url_report"
	ToolFileReport         = "get_file_report"
	ToolIPReport           = "get_ip_report"
	ToolDomainReport       = "get_domain_report"
	ToolURLRelationship    = "get_url_relationship"
	ToolFileRelationship   = "get_file_relationship"
	ToolIPRelationship     = "get_ip_relationship"
	ToolDomainRelationship = "get_domain_relationship"
)

const (
	defaultLimit = 10
	minLimit     = 1
	maxLimit     = 40
)

// ToolHandler MCP工具处理器接口
type ToolHandler interface {
	// Register 向 MCP 服务注册全部工具与资源
	Register(s *server.MCPServer)

	// ==================== 报告工具 ====================
	URLReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
	FileReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
	IPReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
	DomainReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)

	// ==================== 关系工具 ====================
	URLRelationship(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
	FileRelationship(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
	IPRelationship(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
	DomainRelationship(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// toolHandler MCP工具处理器实现
type toolHandler struct {
	lookup lookup.LookupService
}

// NewToolHandler 创建工具处理器实例
func NewToolHandler(lookupService lookup.LookupService) ToolHandler {
	return &toolHandler{
		lookup: lookupService,
	}
}

// Register 注册工具
func (h *toolHandler) Register(s *server.MCPServer) {
	s.AddTool(reportTool(ToolURLReport,
		"Get a comprehensive URL analysis report with security results and relationships. The URL is submitted for scanning first, so the call waits a few seconds for the analysis.",
		"url", "The URL to analyze"), h.URLReport)
	s.AddTool(reportTool(ToolFileReport,
		"Get a comprehensive file analysis report using its hash, including detection results and relationships.",
		"file_hash", "MD5, SHA-1 or SHA-256 hash of the file"), h.FileReport)
	s.AddTool(reportTool(ToolIPReport,
		"Get a comprehensive IP address analysis report with detection results and relationships.",
		"ip", "IP address to analyze"), h.IPReport)
	s.AddTool(domainReportTool(), h.DomainReport)

	s.AddTool(relationshipTool(ToolURLRelationship,
		"Query a specific relationship type for a URL with pagination support.",
		"url", "The URL to get relationships for", lookup.DefaultRelationships(virustotal.KindURL)), h.URLRelationship)
	s.AddTool(relationshipTool(ToolFileRelationship,
		"Query a specific relationship type for a file with pagination support.",
		"file_hash", "MD5, SHA-1 or SHA-256 hash of the file", lookup.DefaultRelationships(virustotal.KindFile)), h.FileRelationship)
	s.AddTool(relationshipTool(ToolIPRelationship,
		"Query a specific relationship type for an IP address with pagination support.",
		"ip", "IP address to analyze", lookup.DefaultRelationships(virustotal.KindIP)), h.IPRelationship)
	s.AddTool(relationshipTool(ToolDomainRelationship,
		"Query a specific relationship type for a domain with pagination support.",
		"domain", "Domain name to analyze", lookup.DefaultRelationships(virustotal.KindDomain)), h.DomainRelationship)

	AddResourcesToServer(s)
}

// ==================== 工具定义 ====================

func reportTool(name, description, param, paramDesc string) mcp.Tool {
	return mcp.NewTool(name,
		mcp.WithDescription(description),
		mcp.WithString(param, mcp.Required(), mcp.Description(paramDesc)),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)
}

func domainReportTool() mcp.Tool {
	return mcp.NewTool(ToolDomainReport,
		mcp.WithDescription("Get a comprehensive domain analysis report with detection results and relationships."),
		mcp.WithString("domain", mcp.Required(), mcp.Description("Domain name to analyze")),
		mcp.WithArray("relationships",
			mcp.Description("Optional list of specific relationships to include. Defaults to subdomains, historical_ssl_certificates, resolutions and related_threat_actors."),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)
}

func relationshipTool(name, description, param, paramDesc string, examples []string) mcp.Tool {
	relDesc := "Relationship type to query"
	if len(examples) > 0 {
		relDesc += ", e.g. " + strings.Join(examples, ", ")
	}
	return mcp.NewTool(name,
		mcp.WithDescription(description),
		mcp.WithString(param, mcp.Required(), mcp.Description(paramDesc)),
		mcp.WithString("relationship", mcp.Required(), mcp.Description(relDesc)),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of related objects to return (1-40)"),
			mcp.DefaultNumber(defaultLimit),
			mcp.Min(minLimit),
			mcp.Max(maxLimit),
		),
		mcp.WithString("cursor", mcp.Description("Continuation cursor for pagination")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)
}

// ==================== 报告工具实现 ====================

// URLReport 处理 get_url_report
func (h *toolHandler) URLReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rawURL, err := req.RequireString("url")
	if err != nil {
		return nil, err
	}
	return textResult(h.lookup.URLReport(ctx, rawURL))
}

// FileReport 处理 get_file_report
func (h *toolHandler) FileReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fileHash, err := req.RequireString("file_hash")
	if err != nil {
		return nil, err
	}
	return textResult(h.lookup.FileReport(ctx, fileHash))
}

// IPReport 处理 get_ip_report
func (h *toolHandler) IPReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ip, err := req.RequireString("ip")
	if err != nil {
		return nil, err
	}
	return textResult(h.lookup.IPReport(ctx, ip))
}

// DomainReport 处理 get_domain_report
func (h *toolHandler) DomainReport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	domain, err := req.RequireString("domain")
	if err != nil {
		return nil, err
	}
	relationships := req.GetStringSlice("relationships", nil)
	return textResult(h.lookup.DomainReport(ctx, domain, relationships))
}

// ==================== 关系工具实现 ====================

func (h *toolHandler) URLRelationship(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseRelationshipArgs(req, "url")
	if err != nil {
		return nil, err
	}
	return textResult(h.lookup.URLRelationship(ctx, args.id, args.relationship, args.limit, args.cursor))
}

func (h *toolHandler) FileRelationship(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseRelationshipArgs(req, "file_hash")
	if err != nil {
		return nil, err
	}
	return textResult(h.lookup.FileRelationship(ctx, args.id, args.relationship, args.limit, args.cursor))
}

func (h *toolHandler) IPRelationship(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseRelationshipArgs(req, "ip")
	if err != nil {
		return nil, err
	}
	return textResult(h.lookup.IPRelationship(ctx, args.id, args.relationship, args.limit, args.cursor))
}

func (h *toolHandler) DomainRelationship(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := parseRelationshipArgs(req, "domain")
	if err != nil {
		return nil, err
	}
	return textResult(h.lookup.DomainRelationship(ctx, args.id, args.relationship, args.limit, args.cursor))
}

// relationshipArgs 关系工具的公共参数
type relationshipArgs struct {
	id           string
	relationship string
	limit        int
	cursor       string
}

// parseRelationshipArgs limit 只取默认值，不做范围校验
func parseRelationshipArgs(req mcp.CallToolRequest, idParam string) (relationshipArgs, error) {
	id, err := req.RequireString(idParam)
	if err != nil {
		return relationshipArgs{}, err
	}
	relationship, err := req.RequireString("relationship")
	if err != nil {
		return relationshipArgs{}, err
	}
	return relationshipArgs{
		id:           id,
		relationship: relationship,
		limit:        req.GetInt("limit", defaultLimit),
		cursor:       req.GetString("cursor", ""),
	}, nil
}

// textResult 失败时返回 error，由 MCP 层转换为协议错误
func textResult(text string, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(text), nil
}

// LoggingMiddleware 记录工具调用耗时与结果
func LoggingMiddleware(next server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		result, err := next(ctx, req)
		logger.LogToolCall(req.Params.Name, time.Since(start), err, map[string]interface{}{
			"arguments": len(req.GetArguments()),
		})
		return result, err
	}
}
