package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv 清空会影响加载结果的环境变量
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"VIRUSTOTAL_API_KEY", "VTMCP_VIRUSTOTAL_API_KEY",
		"MCP_TRANSPORT", "VTMCP_SERVER_TRANSPORT",
		"MCP_HOST", "VTMCP_SERVER_HOST",
		"MCP_PORT", "VTMCP_SERVER_PORT",
		"VTMCP_CONFIG_PATH", "VTMCP_ENV",
	} {
		t.Setenv(key, "")
	}
}

// TestLoadDefaults 测试默认值
func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("VIRUSTOTAL_API_KEY", "test-key")

	cfg, err := NewConfigLoader(t.TempDir(), "", filepath.Join(t.TempDir(), "missing.env")).LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "test-key", cfg.VirusTotal.APIKey)
	assert.Equal(t, "https://www.virustotal.com/api/v3", cfg.VirusTotal.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.VirusTotal.Timeout)
	assert.Equal(t, 3*time.Second, cfg.VirusTotal.SettleDelay)
	assert.Equal(t, TransportSSE, cfg.Server.Transport)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8000", cfg.Server.GetAddress())
	assert.Equal(t, "/sse", cfg.Server.SSEPath)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Empty(t, cfg.Server.TrustedProxies)
	assert.Equal(t, "stderr", cfg.Log.Output)
	require.NotNil(t, cfg.Middleware.Auth)
	assert.False(t, cfg.Middleware.Auth.Enabled)
	assert.Contains(t, cfg.Middleware.Auth.SkipPaths, "/health")
}

// TestLoadUnprefixedEnv 测试 MCP_* 环境变量
func TestLoadUnprefixedEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("VIRUSTOTAL_API_KEY", "k")
	t.Setenv("MCP_TRANSPORT", "streamable-http")
	t.Setenv("MCP_HOST", "127.0.0.1")
	t.Setenv("MCP_PORT", "9001")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, TransportStreamableHTTP, cfg.Server.Transport)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9001, cfg.Server.Port)
}

// TestLoadMissingAPIKey 缺少 API 密钥时报错
func TestLoadMissingAPIKey(t *testing.T) {
	clearEnv(t)

	_, err := LoadConfig(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VIRUSTOTAL_API_KEY")
}

// TestLoadUnknownTransport 未知传输模式回落到 sse
func TestLoadUnknownTransport(t *testing.T) {
	clearEnv(t)
	t.Setenv("VIRUSTOTAL_API_KEY", "k")
	t.Setenv("MCP_TRANSPORT", "websocket")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, TransportSSE, cfg.Server.Transport)
}

// TestLoadConfigFile 测试显式配置文件
func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("VIRUSTOTAL_API_KEY", "from-env")

	dir := t.TempDir()
	file := filepath.Join(dir, "vtmcp.yaml")
	content := `
server:
  transport: stdio
  port: 0
virustotal:
  api_key: from-file
  settle_delay: 0s
log:
  level: debug
`
	require.NoError(t, os.WriteFile(file, []byte(content), 0644))

	loader := NewConfigLoader(file, "")
	cfg, err := loader.LoadConfig()
	require.NoError(t, err)

	// 环境变量优先于配置文件
	assert.Equal(t, "from-env", cfg.VirusTotal.APIKey)
	assert.Equal(t, TransportStdio, cfg.Server.Transport)
	assert.Equal(t, time.Duration(0), cfg.VirusTotal.SettleDelay)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, file, loader.GetConfigPath())
}

// TestLoadMissingExplicitFile 显式指定的文件不存在时报错
func TestLoadMissingExplicitFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("VIRUSTOTAL_API_KEY", "k")

	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

// TestLoadEnvFile 测试 .env 文件加载
func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("VIRUSTOTAL_API_KEY")
	t.Cleanup(func() { os.Unsetenv("VIRUSTOTAL_API_KEY") })

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("VIRUSTOTAL_API_KEY=dotenv-key\n"), 0644))

	loader := NewEnvLoader(envFile, filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, loader.Load())
	assert.Equal(t, []string{envFile}, loader.LoadedFiles())

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "dotenv-key", cfg.VirusTotal.APIKey)
}

// TestValidate 测试配置校验
func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Server:     &ServerConfig{Transport: TransportSSE, Port: 8000},
			VirusTotal: &VirusTotalConfig{APIKey: "k", BaseURL: "https://example.test", Timeout: time.Second},
			Middleware: &MiddlewareConfig{Auth: &AuthConfig{}},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"合法配置", func(c *Config) {}, false},
		{"端口越界", func(c *Config) { c.Server.Port = 70000 }, true},
		{"stdio 模式忽略端口", func(c *Config) { c.Server.Transport = TransportStdio; c.Server.Port = 0 }, false},
		{"可信代理", func(c *Config) { c.Server.TrustedProxies = []string{"10.0.0.1", "192.168.0.0/16", "::1"} }, false},
		{"可信代理格式错误", func(c *Config) { c.Server.TrustedProxies = []string{"10.0.0.0/33"} }, true},
		{"可信代理不是IP", func(c *Config) { c.Server.TrustedProxies = []string{"proxy.local"} }, true},
		{"超时为零", func(c *Config) { c.VirusTotal.Timeout = 0 }, true},
		{"等待时间为负", func(c *Config) { c.VirusTotal.SettleDelay = -time.Second }, true},
		{"jwt 认证缺少密钥", func(c *Config) {
			c.Middleware.Auth.Enabled = true
			c.Middleware.Auth.AuthMethod = AuthMethodJWT
		}, true},
		{"api_key 认证", func(c *Config) {
			c.Middleware.Auth.Enabled = true
			c.Middleware.Auth.AuthMethod = AuthMethodAPIKey
			c.Middleware.Auth.APIKey = "secret"
		}, false},
		{"未知认证方式", func(c *Config) {
			c.Middleware.Auth.Enabled = true
			c.Middleware.Auth.AuthMethod = "oauth"
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestMasked 测试敏感字段隐藏
func TestMasked(t *testing.T) {
	cfg := &Config{
		VirusTotal: &VirusTotalConfig{APIKey: "0123456789abcdef"},
		Middleware: &MiddlewareConfig{Auth: &AuthConfig{JWTSecret: "short"}},
	}

	masked := cfg.Masked()
	assert.Equal(t, "0123********cdef", masked.VirusTotal.APIKey)
	assert.Equal(t, "*****", masked.Middleware.Auth.JWTSecret)
	// 原配置不受影响
	assert.Equal(t, "0123456789abcdef", cfg.VirusTotal.APIKey)
	assert.Equal(t, "", MaskSecret(""))
}

// TestNormalizeTransport 测试传输模式规范化
func TestNormalizeTransport(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		known bool
	}{
		{"stdio", TransportStdio, true},
		{" SSE ", TransportSSE, true},
		{"streamable-http", TransportStreamableHTTP, true},
		{"", TransportSSE, true},
		{"grpc", TransportSSE, false},
	}
	for _, tt := range tests {
		got, known := NormalizeTransport(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.known, known, tt.in)
	}
}
