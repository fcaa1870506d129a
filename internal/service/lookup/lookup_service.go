/**
 * 威胁情报查询服务
 * @author: sun977
 * @date: 2025.10.21
 * @description: 组织一次完整的查询：主查询 -> 逐个获取关系数据 -> 渲染报告
 * @func:
 *  1. 报告查询: URL/文件/IP/域名，关系数据获取失败时跳过
 *  2. 关系查询: 单个关系的分页查询，失败直接返回
 */
package lookup

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/gonkawada/analyze-vt-mcp/internal/core/reporter"
	"github.com/gonkawada/analyze-vt-mcp/internal/pkg/virustotal"
)

// DefaultSettleDelay URL 提交后等待分析完成的时间
const DefaultSettleDelay = 3 * time.Second

var (
	// ErrMissingField 主查询响应缺少必要字段
	ErrMissingField = errors.New("missing field in VirusTotal response")
	// ErrEmptyIdentifier 查询对象为空
	ErrEmptyIdentifier = errors.New("identifier cannot be empty")
)

// defaultRelationships 各类型报告默认获取的关系
var defaultRelationships = map[virustotal.Kind][]string{
	virustotal.KindURL: {
		"communicating_files",
		"contacted_domains",
		"contacted_ips",
		"downloaded_files",
		"redirects_to",
		"related_threat_actors",
	},
	virustotal.KindFile: {
		"behaviours",
		"dropped_files",
		"contacted_domains",
		"contacted_ips",
		"embedded_urls",
		"related_threat_actors",
	},
	virustotal.KindIP: {
		"communicating_files",
		"historical_ssl_certificates",
		"resolutions",
		"related_threat_actors",
	},
	virustotal.KindDomain: {
		"subdomains",
		"historical_ssl_certificates",
		"resolutions",
		"related_threat_actors",
	},
}

// DefaultRelationships 返回某类型默认关系列表的副本
func DefaultRelationships(kind virustotal.Kind) []string {
	return append([]string(nil), defaultRelationships[kind]...)
}

// Label 对象类型的展示名，报告标题会再经过 reporter.TitleLabel
func Label(kind virustotal.Kind) string {
	switch kind {
	case virustotal.KindURL:
		return "URL"
	case virustotal.KindFile:
		return "File"
	case virustotal.KindIP:
		return "IP"
	case virustotal.KindDomain:
		return "Domain"
	default:
		return reporter.TitleCase(string(kind))
	}
}

// Querier 执行 VirusTotal 请求，*virustotal.Client 实现了该接口
type Querier interface {
	Query(ctx context.Context, method, endpoint string, form url.Values) (gjson.Result, error)
}

// RelationshipResult 单个关系的获取结果，OK 为 false 时不进入报告
type RelationshipResult struct {
	Name    string
	Payload gjson.Result
	OK      bool
}

// LookupService 查询服务接口
type LookupService interface {
	// ==================== 报告查询 ====================
	URLReport(ctx context.Context, rawURL string) (string, error)
	FileReport(ctx context.Context, fileHash string) (string, error)
	IPReport(ctx context.Context, ip string) (string, error)
	DomainReport(ctx context.Context, domain string, relationships []string) (string, error) // relationships 为空时使用默认列表

	// ==================== 关系查询 ====================
	URLRelationship(ctx context.Context, rawURL, relationship string, limit int, cursor string) (string, error)
	FileRelationship(ctx context.Context, fileHash, relationship string, limit int, cursor string) (string, error)
	IPRelationship(ctx context.Context, ip, relationship string, limit int, cursor string) (string, error)
	DomainRelationship(ctx context.Context, domain, relationship string, limit int, cursor string) (string, error)
}

// SleepFunc 可取消的等待
type SleepFunc func(ctx context.Context, d time.Duration) error

// Option 服务选项
type Option func(*lookupService)

// WithSettleDelay 设置 URL 分析等待时间
func WithSettleDelay(d time.Duration) Option {
	return func(s *lookupService) {
		if d >= 0 {
			s.settleDelay = d
		}
	}
}

// WithSleepFunc 替换等待实现
func WithSleepFunc(fn SleepFunc) Option {
	return func(s *lookupService) {
		if fn != nil {
			s.sleep = fn
		}
	}
}

// lookupService 查询服务实现
type lookupService struct {
	client      Querier
	settleDelay time.Duration
	sleep       SleepFunc
}

// NewLookupService 创建查询服务
func NewLookupService(client Querier, opts ...Option) LookupService {
	s := &lookupService{
		client:      client,
		settleDelay: DefaultSettleDelay,
		sleep:       sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// URLReport 提交 URL 扫描，等待后获取分析结果
func (s *lookupService) URLReport(ctx context.Context, rawURL string) (string, error) {
	if err := requireID("url", rawURL); err != nil {
		return "", err
	}

	submitted, err := s.client.Query(ctx, http.MethodPost, virustotal.SubmitURLPath, url.Values{"url": {rawURL}})
	if err != nil {
		return "", fmt.Errorf("submit url: %w", err)
	}
	analysisID := submitted.Get("data.id")
	if !analysisID.Exists() {
		return "", fmt.Errorf("submit url: %w: data.id", ErrMissingField)
	}

	// 等待分析
	if err := s.sleep(ctx, s.settleDelay); err != nil {
		return "", fmt.Errorf("wait for url analysis: %w", err)
	}

	analysis, err := s.client.Query(ctx, http.MethodGet, virustotal.AnalysesPath(analysisID.String()), nil)
	if err != nil {
		return "", fmt.Errorf("get url analysis: %w", err)
	}
	attrs := analysis.Get("data.attributes")
	if !attrs.Exists() {
		return "", fmt.Errorf("get url analysis: %w: data.attributes", ErrMissingField)
	}

	return s.buildReport(ctx, virustotal.KindURL, rawURL, attrs, defaultRelationships[virustotal.KindURL]), nil
}

// FileReport 文件哈希报告
func (s *lookupService) FileReport(ctx context.Context, fileHash string) (string, error) {
	return s.objectReport(ctx, virustotal.KindFile, fileHash, nil)
}

// IPReport IP 地址报告
func (s *lookupService) IPReport(ctx context.Context, ip string) (string, error) {
	return s.objectReport(ctx, virustotal.KindIP, ip, nil)
}

// DomainReport 域名报告
func (s *lookupService) DomainReport(ctx context.Context, domain string, relationships []string) (string, error) {
	return s.objectReport(ctx, virustotal.KindDomain, domain, relationships)
}

func (s *lookupService) URLRelationship(ctx context.Context, rawURL, relationship string, limit int, cursor string) (string, error) {
	return s.relationshipReport(ctx, virustotal.KindURL, rawURL, relationship, limit, cursor)
}

func (s *lookupService) FileRelationship(ctx context.Context, fileHash, relationship string, limit int, cursor string) (string, error) {
	return s.relationshipReport(ctx, virustotal.KindFile, fileHash, relationship, limit, cursor)
}

func (s *lookupService) IPRelationship(ctx context.Context, ip, relationship string, limit int, cursor string) (string, error) {
	return s.relationshipReport(ctx, virustotal.KindIP, ip, relationship, limit, cursor)
}

func (s *lookupService) DomainRelationship(ctx context.Context, domain, relationship string, limit int, cursor string) (string, error) {
	return s.relationshipReport(ctx, virustotal.KindDomain, domain, relationship, limit, cursor)
}

// objectReport 文件/IP/域名的通用流程，relationships 为空时使用默认列表
func (s *lookupService) objectReport(ctx context.Context, kind virustotal.Kind, id string, relationships []string) (string, error) {
	if err := requireID(string(kind), id); err != nil {
		return "", err
	}

	resp, err := s.client.Query(ctx, http.MethodGet, virustotal.ObjectPath(kind, id), nil)
	if err != nil {
		return "", fmt.Errorf("get %s report: %w", kind, err)
	}
	attrs := resp.Get("data.attributes")
	if !attrs.Exists() {
		return "", fmt.Errorf("get %s report: %w: data.attributes", kind, ErrMissingField)
	}

	if len(relationships) == 0 {
		relationships = defaultRelationships[kind]
	}
	return s.buildReport(ctx, kind, id, attrs, relationships), nil
}

// buildReport 逐个获取关系数据并渲染，失败的关系直接省略
func (s *lookupService) buildReport(ctx context.Context, kind virustotal.Kind, id string, attrs gjson.Result, relationships []string) string {
	subject := reporter.Subject{
		Attributes:       attrs,
		HasRelationships: true,
	}

	// 重复的名字每次都请求，成功结果覆盖同名段落，段落位置取第一次成功时
	index := make(map[string]int, len(relationships))
	for _, name := range relationships {
		result := s.fetchRelationship(ctx, kind, id, name)
		if !result.OK {
			continue
		}
		if i, ok := index[name]; ok {
			subject.Relationships[i].Payload = result.Payload
			continue
		}
		index[name] = len(subject.Relationships)
		subject.Relationships = append(subject.Relationships, reporter.Relationship{
			Name:    result.Name,
			Payload: result.Payload,
		})
	}

	return reporter.Format(subject, Label(kind))
}

// fetchRelationship 获取单个关系，任何失败都表现为 OK=false
func (s *lookupService) fetchRelationship(ctx context.Context, kind virustotal.Kind, id, name string) RelationshipResult {
	payload, err := s.client.Query(ctx, http.MethodGet, virustotal.RelationshipPath(kind, id, name), nil)
	if err != nil {
		return RelationshipResult{Name: name}
	}
	return RelationshipResult{Name: name, Payload: payload, OK: true}
}

// relationshipReport 单个关系的分页查询
func (s *lookupService) relationshipReport(ctx context.Context, kind virustotal.Kind, id, relationship string, limit int, cursor string) (string, error) {
	if err := requireID(string(kind), id); err != nil {
		return "", err
	}
	if strings.TrimSpace(relationship) == "" {
		return "", fmt.Errorf("relationship: %w", ErrEmptyIdentifier)
	}

	payload, err := s.client.Query(ctx, http.MethodGet, virustotal.RelationshipQuery(kind, id, relationship, limit, cursor), nil)
	if err != nil {
		return "", fmt.Errorf("get %s %s: %w", kind, relationship, err)
	}

	subject := reporter.Subject{
		HasRelationships: true,
		Relationships:    []reporter.Relationship{{Name: relationship, Payload: payload}},
	}
	return reporter.Format(subject, Label(kind)+" "+relationship), nil
}

func requireID(name, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%s: %w", name, ErrEmptyIdentifier)
	}
	return nil
}

// sleepContext 等待 d，上下文取消时提前返回
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
