/**
 * VirusTotal API 客户端
 * @author: sun977
 * @date: 2025.10.21
 * @description: VirusTotal v3 REST 请求封装，每个请求携带 x-apikey，不做重试
 */
package virustotal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/gonkawada/analyze-vt-mcp/internal/config"
	"github.com/gonkawada/analyze-vt-mcp/internal/pkg/version"
)

const (
	// DefaultBaseURL VirusTotal v3 API 地址
	DefaultBaseURL = "https://www.virustotal.com/api/v3"
	// DefaultTimeout 单次请求超时
	DefaultTimeout = 30 * time.Second

	apiKeyHeader = "x-apikey"
	// 错误信息中保留的响应体长度
	maxErrorBody = 512
)

// Client VirusTotal 客户端，创建后只读，可并发使用
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	userAgent  string
}

// Option 客户端选项
type Option func(*Client)

// WithBaseURL 设置API地址
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithTimeout 设置单次请求超时
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithHTTPClient 替换底层HTTP客户端
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithUserAgent 设置 User-Agent
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// NewClient 创建客户端
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("virustotal api key is required")
	}

	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		userAgent:  version.GetUserAgent(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewClientFromConfig 根据配置创建客户端
func NewClientFromConfig(cfg *config.VirusTotalConfig) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("virustotal config cannot be nil")
	}
	return NewClient(cfg.APIKey,
		WithBaseURL(cfg.BaseURL),
		WithTimeout(cfg.Timeout),
		WithUserAgent(cfg.UserAgent),
	)
}

// BaseURL 返回API地址
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Query 执行一次API请求并返回解析后的JSON
// POST 请求以表单形式发送 form；传输失败或非2xx返回 *APIError
func (c *Client) Query(ctx context.Context, method, endpoint string, form url.Values) (gjson.Result, error) {
	var body io.Reader
	switch method {
	case http.MethodGet:
	case http.MethodPost:
		if form != nil {
			body = strings.NewReader(form.Encode())
		}
	default:
		return gjson.Result{}, fmt.Errorf("%w: %s", ErrUnsupportedMethod, method)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return gjson.Result{}, &APIError{Message: fmt.Sprintf("create request: %v", err), Err: err}
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return gjson.Result{}, &APIError{Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return gjson.Result{}, &APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("read response: %v", err), Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return gjson.Result{}, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(resp, data)}
	}

	if !gjson.ValidBytes(data) {
		return gjson.Result{}, fmt.Errorf("%s %s: %w", method, endpoint, ErrInvalidJSON)
	}
	return gjson.ParseBytes(data), nil
}

// errorMessage 优先使用 VirusTotal 返回的 error.code/error.message
func errorMessage(resp *http.Response, data []byte) string {
	if gjson.ValidBytes(data) {
		parsed := gjson.ParseBytes(data)
		msg := parsed.Get("error.message").String()
		code := parsed.Get("error.code").String()
		switch {
		case code != "" && msg != "":
			return code + ": " + msg
		case msg != "":
			return msg
		}
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return resp.Status
	}
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	return text
}
