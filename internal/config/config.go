/**
 * 服务配置定义
 * @author: sun977
 * @date: 2025.10.21
 * @description: VirusTotal MCP 服务配置结构，负责描述所有配置段及其校验规则
 */
package config

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// 传输模式
const (
	TransportStdio          = "stdio"
	TransportSSE            = "sse"
	TransportStreamableHTTP = "streamable-http"
)

// 认证方式
const (
	AuthMethodAPIKey = "api_key"
	AuthMethodJWT    = "jwt"
	AuthMethodBoth   = "both"
)

// Config 服务配置
type Config struct {
	// 应用配置
	App *AppConfig `yaml:"app" mapstructure:"app"`

	// 服务器配置
	Server *ServerConfig `yaml:"server" mapstructure:"server"`

	// VirusTotal API 配置
	VirusTotal *VirusTotalConfig `yaml:"virustotal" mapstructure:"virustotal"`

	// 日志配置
	Log *LogConfig `yaml:"log" mapstructure:"log"`

	// 中间件配置
	Middleware *MiddlewareConfig `yaml:"middleware" mapstructure:"middleware"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name        string `yaml:"name" mapstructure:"name"`               // 应用名称
	Version     string `yaml:"version" mapstructure:"version"`         // 应用版本
	Environment string `yaml:"environment" mapstructure:"environment"` // 运行环境
	Debug       bool   `yaml:"debug" mapstructure:"debug"`             // 调试模式
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Transport       string        `yaml:"transport" mapstructure:"transport"`               // 传输模式 (stdio/sse/streamable-http)
	Host            string        `yaml:"host" mapstructure:"host"`                         // 监听地址
	Port            int           `yaml:"port" mapstructure:"port"`                         // 监听端口
	Mode            string        `yaml:"mode" mapstructure:"mode"`                         // gin 运行模式 (debug/release/test)
	BaseURL         string        `yaml:"base_url" mapstructure:"base_url"`                 // SSE 对外地址，为空时使用相对路径
	SSEPath         string        `yaml:"sse_path" mapstructure:"sse_path"`                 // SSE 事件流路径
	MessagePath     string        `yaml:"message_path" mapstructure:"message_path"`         // SSE 消息提交路径
	StreamablePath  string        `yaml:"streamable_path" mapstructure:"streamable_path"`   // streamable-http 端点路径
	ReadTimeout     time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`         // 读超时
	WriteTimeout    time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`       // 写超时，SSE 长连接下必须为 0
	IdleTimeout     time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`         // 空闲超时
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"` // 优雅关闭超时
	MaxHeaderBytes  int           `yaml:"max_header_bytes" mapstructure:"max_header_bytes"` // 最大请求头字节数
	TrustedProxies  []string      `yaml:"trusted_proxies" mapstructure:"trusted_proxies"`   // 可信代理 IP/CIDR，为空时只使用连接地址
}

// GetAddress 获取监听地址
func (s *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// VirusTotalConfig VirusTotal API 配置
type VirusTotalConfig struct {
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`           // API 密钥
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`         // API 基础地址
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`           // 单次请求超时
	SettleDelay time.Duration `yaml:"settle_delay" mapstructure:"settle_delay"` // URL 提交后等待分析的时间
	UserAgent   string        `yaml:"user_agent" mapstructure:"user_agent"`     // 请求 User-Agent
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`             // 日志级别 (debug/info/warn/error)
	Format     string `yaml:"format" mapstructure:"format"`           // 日志格式 (json/text)
	Output     string `yaml:"output" mapstructure:"output"`           // 日志输出 (stdout/stderr/file)
	FilePath   string `yaml:"file_path" mapstructure:"file_path"`     // 日志文件路径
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"`       // 最大文件大小（MB）
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"` // 最大备份数
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"`         // 最大保留天数
	Compress   bool   `yaml:"compress" mapstructure:"compress"`       // 是否压缩
	Caller     bool   `yaml:"caller" mapstructure:"caller"`           // 是否显示调用者信息
}

// MiddlewareConfig 中间件配置
type MiddlewareConfig struct {
	// 认证中间件配置
	Auth *AuthConfig `yaml:"auth" mapstructure:"auth"`

	// 日志中间件配置
	Logging *LoggingConfig `yaml:"logging" mapstructure:"logging"`

	// CORS中间件配置
	CORS *CORSConfig `yaml:"cors" mapstructure:"cors"`

	// 限流中间件配置
	RateLimit *RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// AuthConfig 认证中间件配置
type AuthConfig struct {
	Enabled      bool     `yaml:"enabled" mapstructure:"enabled"`
	AuthMethod   string   `yaml:"auth_method" mapstructure:"auth_method"`     // api_key/jwt/both
	APIKey       string   `yaml:"api_key" mapstructure:"api_key"`             // 访问 MCP 端点的密钥
	APIKeyHeader string   `yaml:"api_key_header" mapstructure:"api_key_header"`
	JWTSecret    string   `yaml:"jwt_secret" mapstructure:"jwt_secret"`       // HS256 签名密钥
	WhitelistIPs []string `yaml:"whitelist_ips" mapstructure:"whitelist_ips"`
	SkipPaths    []string `yaml:"skip_paths" mapstructure:"skip_paths"`
}

// LoggingConfig 日志中间件配置
type LoggingConfig struct {
	EnableRequestLog     bool          `yaml:"enable_request_log" mapstructure:"enable_request_log"`
	SlowRequestThreshold time.Duration `yaml:"slow_request_threshold" mapstructure:"slow_request_threshold"`
	SkipPaths            []string      `yaml:"skip_paths" mapstructure:"skip_paths"`
}

// CORSConfig CORS中间件配置
type CORSConfig struct {
	Enabled       bool     `yaml:"enabled" mapstructure:"enabled"`
	AllowOrigins  []string `yaml:"allow_origins" mapstructure:"allow_origins"`
	AllowMethods  []string `yaml:"allow_methods" mapstructure:"allow_methods"`
	AllowHeaders  []string `yaml:"allow_headers" mapstructure:"allow_headers"`
	ExposeHeaders []string `yaml:"expose_headers" mapstructure:"expose_headers"`
	MaxAge        int      `yaml:"max_age" mapstructure:"max_age"` // 预检缓存秒数
}

// RateLimitConfig 限流中间件配置，按客户端IP的令牌桶
type RateLimitConfig struct {
	Enabled           bool     `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerSecond float64  `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int      `yaml:"burst_size" mapstructure:"burst_size"`
	SkipPaths         []string `yaml:"skip_paths" mapstructure:"skip_paths"`
}

// NormalizeTransport 规范化传输模式
// 未知取值回落到 sse，第二个返回值表示输入是否为已知模式
func NormalizeTransport(transport string) (string, bool) {
	t := strings.ToLower(strings.TrimSpace(transport))
	switch t {
	case TransportStdio, TransportSSE, TransportStreamableHTTP:
		return t, true
	case "":
		return TransportSSE, true
	default:
		return TransportSSE, false
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.VirusTotal == nil || strings.TrimSpace(c.VirusTotal.APIKey) == "" {
		return fmt.Errorf("VIRUSTOTAL_API_KEY environment variable is required")
	}
	if c.VirusTotal.BaseURL == "" {
		return fmt.Errorf("virustotal base url is required")
	}
	if c.VirusTotal.Timeout <= 0 {
		return fmt.Errorf("invalid virustotal timeout: %s", c.VirusTotal.Timeout)
	}
	if c.VirusTotal.SettleDelay < 0 {
		return fmt.Errorf("invalid virustotal settle delay: %s", c.VirusTotal.SettleDelay)
	}

	if c.Server == nil {
		return fmt.Errorf("server config is required")
	}
	// stdio 模式不监听端口
	if c.Server.Transport != TransportStdio {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			return fmt.Errorf("invalid server port: %d", c.Server.Port)
		}
	}
	for _, proxy := range c.Server.TrustedProxies {
		if !isIPOrCIDR(proxy) {
			return fmt.Errorf("invalid trusted proxy: %q", proxy)
		}
	}

	if c.Middleware != nil && c.Middleware.Auth != nil && c.Middleware.Auth.Enabled {
		auth := c.Middleware.Auth
		switch auth.AuthMethod {
		case AuthMethodAPIKey:
			if auth.APIKey == "" {
				return fmt.Errorf("middleware auth api_key is required for auth method %s", auth.AuthMethod)
			}
		case AuthMethodJWT:
			if auth.JWTSecret == "" {
				return fmt.Errorf("middleware auth jwt_secret is required for auth method %s", auth.AuthMethod)
			}
		case AuthMethodBoth:
			if auth.APIKey == "" || auth.JWTSecret == "" {
				return fmt.Errorf("middleware auth api_key and jwt_secret are required for auth method %s", auth.AuthMethod)
			}
		default:
			return fmt.Errorf("unsupported auth method: %s", auth.AuthMethod)
		}
	}

	if c.Middleware != nil && c.Middleware.RateLimit != nil && c.Middleware.RateLimit.Enabled {
		rl := c.Middleware.RateLimit
		if rl.RequestsPerSecond <= 0 || rl.BurstSize <= 0 {
			return fmt.Errorf("invalid rate limit: requests_per_second=%v burst_size=%d", rl.RequestsPerSecond, rl.BurstSize)
		}
	}

	return nil
}

// isIPOrCIDR 判断是否为合法的 IP 或 CIDR
func isIPOrCIDR(s string) bool {
	if strings.Contains(s, "/") {
		_, _, err := net.ParseCIDR(s)
		return err == nil
	}
	return net.ParseIP(s) != nil
}

// Masked 返回隐藏敏感字段后的配置副本，用于展示
func (c *Config) Masked() *Config {
	masked := *c
	if c.VirusTotal != nil {
		vt := *c.VirusTotal
		vt.APIKey = MaskSecret(vt.APIKey)
		masked.VirusTotal = &vt
	}
	if c.Middleware != nil {
		mw := *c.Middleware
		if c.Middleware.Auth != nil {
			auth := *c.Middleware.Auth
			auth.APIKey = MaskSecret(auth.APIKey)
			auth.JWTSecret = MaskSecret(auth.JWTSecret)
			mw.Auth = &auth
		}
		masked.Middleware = &mw
	}
	return &masked
}

// MaskSecret 隐藏密钥，只保留首尾各4位
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return strings.Repeat("*", len(secret))
	}
	return secret[:4] + strings.Repeat("*", len(secret)-8) + secret[len(secret)-4:]
}
