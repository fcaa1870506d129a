package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DefaultEnvPrefix 默认环境变量前缀
const DefaultEnvPrefix = "VTMCP"

// ConfigLoader 配置加载器
type ConfigLoader struct {
	configPath string   // 配置文件或配置目录
	envPrefix  string   // 环境变量前缀
	envFiles   []string // .env 文件
	viper      *viper.Viper
}

// NewConfigLoader 创建配置加载器
func NewConfigLoader(configPath, envPrefix string, envFiles ...string) *ConfigLoader {
	if envPrefix == "" {
		envPrefix = DefaultEnvPrefix
	}

	return &ConfigLoader{
		configPath: configPath,
		envPrefix:  envPrefix,
		envFiles:   envFiles,
		viper:      viper.New(),
	}
}

// LoadConfig 加载并验证配置
func (cl *ConfigLoader) LoadConfig() (*Config, error) {
	config, err := cl.Load()
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Load 加载配置但不验证，供 config 命令展示使用
func (cl *ConfigLoader) Load() (*Config, error) {
	// .env 需要先于 viper 读取环境变量
	if err := NewEnvLoader(cl.envFiles...).Load(); err != nil {
		return nil, err
	}

	// 设置配置文件类型
	cl.viper.SetConfigType("yaml")

	// 设置环境变量前缀
	cl.viper.SetEnvPrefix(cl.envPrefix)
	cl.viper.AutomaticEnv()
	cl.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	// 绑定环境变量
	if err := cl.bindEnvVars(); err != nil {
		return nil, fmt.Errorf("failed to bind env vars: %w", err)
	}

	// 设置默认值
	cl.setDefaults()

	// 加载配置文件
	if err := cl.loadConfigFile(); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// 解析配置
	var config Config
	if err := cl.viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	transport, _ := NormalizeTransport(config.Server.Transport)
	config.Server.Transport = transport

	return &config, nil
}

// loadConfigFile 加载配置文件
// 配置文件是可选的，仅显式指定的文件不存在时报错
func (cl *ConfigLoader) loadConfigFile() error {
	configPath := cl.configPath
	if configPath == "" {
		configPath = os.Getenv(cl.envPrefix + "_CONFIG_PATH")
	}

	ext := strings.ToLower(filepath.Ext(configPath))
	if ext == ".yaml" || ext == ".yml" {
		cl.viper.SetConfigFile(configPath)
		return cl.viper.ReadInConfig()
	}

	// 设置配置文件搜索路径
	if configPath != "" {
		cl.viper.AddConfigPath(configPath)
	}
	cl.viper.AddConfigPath("./configs")
	cl.viper.AddConfigPath(".")

	// 优先加载环境特定的配置文件
	cl.viper.SetConfigName(fmt.Sprintf("config.%s", cl.getEnvironment()))
	err := cl.viper.ReadInConfig()
	if err == nil {
		return nil
	}
	if !isConfigNotFound(err) {
		return err
	}

	cl.viper.SetConfigName("config")
	if err := cl.viper.ReadInConfig(); err != nil && !isConfigNotFound(err) {
		return err
	}
	return nil
}

// getEnvironment 获取运行环境
func (cl *ConfigLoader) getEnvironment() string {
	env := os.Getenv(cl.envPrefix + "_ENV")
	if env == "" {
		env = os.Getenv("GO_ENV")
	}
	if env == "" {
		env = "development"
	}
	return env
}

// bindEnvVars 绑定环境变量
// 保留 VIRUSTOTAL_API_KEY 与 MCP_* 这些无前缀的变量名
func (cl *ConfigLoader) bindEnvVars() error {
	bindings := map[string][]string{
		"virustotal.api_key":  {"VIRUSTOTAL_API_KEY"},
		"virustotal.base_url": {"VIRUSTOTAL_BASE_URL"},
		"server.transport":    {"MCP_TRANSPORT"},
		"server.host":         {"MCP_HOST"},
		"server.port":         {"MCP_PORT"},
	}

	for key, envs := range bindings {
		if err := cl.viper.BindEnv(append([]string{key}, envs...)...); err != nil {
			return err
		}
	}
	return nil
}

// setDefaults 设置默认值
func (cl *ConfigLoader) setDefaults() {
	// App默认值
	cl.viper.SetDefault("app.name", "analyze-vt-mcp")
	cl.viper.SetDefault("app.version", "1.0.0")
	cl.viper.SetDefault("app.environment", "development")
	cl.viper.SetDefault("app.debug", false)

	// Server默认值
	cl.viper.SetDefault("server.transport", TransportSSE)
	cl.viper.SetDefault("server.host", "0.0.0.0")
	cl.viper.SetDefault("server.port", 8000)
	cl.viper.SetDefault("server.mode", "release")
	cl.viper.SetDefault("server.base_url", "")
	cl.viper.SetDefault("server.sse_path", "/sse")
	cl.viper.SetDefault("server.message_path", "/message")
	cl.viper.SetDefault("server.streamable_path", "/mcp")
	cl.viper.SetDefault("server.read_timeout", "30s")
	cl.viper.SetDefault("server.write_timeout", "0s")
	cl.viper.SetDefault("server.idle_timeout", "120s")
	cl.viper.SetDefault("server.shutdown_timeout", "5s")
	cl.viper.SetDefault("server.max_header_bytes", 1048576)
	cl.viper.SetDefault("server.trusted_proxies", []string{})

	// VirusTotal默认值
	cl.viper.SetDefault("virustotal.api_key", "")
	cl.viper.SetDefault("virustotal.base_url", "https://www.virustotal.com/api/v3")
	cl.viper.SetDefault("virustotal.timeout", "30s")
	cl.viper.SetDefault("virustotal.settle_delay", "3s")
	cl.viper.SetDefault("virustotal.user_agent", "analyze-vt-mcp")

	// 日志默认值
	cl.viper.SetDefault("log.level", "info")
	cl.viper.SetDefault("log.format", "text")
	cl.viper.SetDefault("log.output", "stderr")
	cl.viper.SetDefault("log.file_path", "./logs/vtmcp.log")
	cl.viper.SetDefault("log.max_size", 100)
	cl.viper.SetDefault("log.max_backups", 3)
	cl.viper.SetDefault("log.max_age", 28)
	cl.viper.SetDefault("log.compress", true)
	cl.viper.SetDefault("log.caller", false)

	// 中间件默认值
	cl.viper.SetDefault("middleware.auth.enabled", false)
	cl.viper.SetDefault("middleware.auth.auth_method", AuthMethodAPIKey)
	cl.viper.SetDefault("middleware.auth.api_key", "")
	cl.viper.SetDefault("middleware.auth.api_key_header", "X-API-Key")
	cl.viper.SetDefault("middleware.auth.jwt_secret", "")
	cl.viper.SetDefault("middleware.auth.whitelist_ips", []string{})
	cl.viper.SetDefault("middleware.auth.skip_paths", []string{"/health", "/ping", "/version"})
	cl.viper.SetDefault("middleware.logging.enable_request_log", true)
	cl.viper.SetDefault("middleware.logging.slow_request_threshold", "5s")
	cl.viper.SetDefault("middleware.logging.skip_paths", []string{"/health", "/ping"})
	cl.viper.SetDefault("middleware.cors.enabled", true)
	cl.viper.SetDefault("middleware.cors.allow_origins", []string{"*"})
	cl.viper.SetDefault("middleware.cors.allow_methods", []string{"GET", "POST", "DELETE", "OPTIONS"})
	cl.viper.SetDefault("middleware.cors.allow_headers", []string{"Content-Type", "Authorization", "X-API-Key", "Mcp-Session-Id"})
	cl.viper.SetDefault("middleware.cors.expose_headers", []string{"Mcp-Session-Id"})
	cl.viper.SetDefault("middleware.cors.max_age", 600)
	cl.viper.SetDefault("middleware.rate_limit.enabled", false)
	cl.viper.SetDefault("middleware.rate_limit.requests_per_second", 10)
	cl.viper.SetDefault("middleware.rate_limit.burst_size", 20)
	cl.viper.SetDefault("middleware.rate_limit.skip_paths", []string{"/health", "/ping"})
}

// GetConfigPath 获取实际使用的配置文件路径
func (cl *ConfigLoader) GetConfigPath() string {
	return cl.viper.ConfigFileUsed()
}

// LoadConfig 使用默认前缀加载配置
func LoadConfig(configPath string, envFiles ...string) (*Config, error) {
	return NewConfigLoader(configPath, DefaultEnvPrefix, envFiles...).LoadConfig()
}

func isConfigNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound)
}
