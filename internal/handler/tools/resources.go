package tools

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/gonkawada/analyze-vt-mcp/internal/pkg/virustotal"
	"github.com/gonkawada/analyze-vt-mcp/internal/service/lookup"
)

// RelationshipsURI 默认关系列表资源
const RelationshipsURI = "virustotal://relationships"

// relationshipsContext 各类型报告默认获取的关系，帮助调用方选择关系工具的参数
type relationshipsContext struct {
	Defaults map[virustotal.Kind][]string `json:"defaults"`
	Tools    map[virustotal.Kind]string   `json:"relationship_tools"`
}

// NewRelationshipsResource 创建资源定义
func NewRelationshipsResource() mcp.Resource {
	return mcp.NewResource(
		RelationshipsURI,
		"Default VirusTotal Relationships",
		mcp.WithResourceDescription("Relationship names fetched by each report tool, usable with the get_*_relationship tools."),
		mcp.WithMIMEType("application/json"),
	)
}

// RelationshipsHandler 读取资源
func RelationshipsHandler(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	data := relationshipsContext{
		Defaults: make(map[virustotal.Kind][]string, len(virustotal.Kinds)),
		Tools: map[virustotal.Kind]string{
			virustotal.KindURL:    ToolURLRelationship,
			virustotal.KindFile:   ToolFileRelationship,
			virustotal.KindIP:     ToolIPRelationship,
			virustotal.KindDomain: ToolDomainRelationship,
		},
	}
	for _, kind := range virustotal.Kinds {
		data.Defaults[kind] = lookup.DefaultRelationships(kind)
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      RelationshipsURI,
			MIMEType: "application/json",
			Text:     string(jsonData),
		},
	}, nil
}

// AddResourcesToServer 注册全部资源
func AddResourcesToServer(s *server.MCPServer) {
	s.AddResource(NewRelationshipsResource(), RelationshipsHandler)
}
