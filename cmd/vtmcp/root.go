/*
 * @author: Sun977
 * @date: 2026.01.21
 * @description: Cobra Root Command 定义
 */

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/gonkawada/analyze-vt-mcp/cmd/vtmcp/lookup"
	"github.com/gonkawada/analyze-vt-mcp/internal/config"
	"github.com/gonkawada/analyze-vt-mcp/internal/pkg/logger"
)

var (
	cfgFile  string
	envFiles []string
	logLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vtmcp",
	Short: "VirusTotal MCP 服务",
	Long: `vtmcp 将 VirusTotal 威胁情报查询（URL、文件哈希、IP、域名）以 MCP 工具的形式提供，
返回 Markdown 格式的分析报告。也可以作为命令行工具直接查询。

示例:
  1.启动服务模式(默认 SSE)
	vtmcp server
  2.以 stdio 方式供本地 MCP 客户端调用
	vtmcp server --transport stdio
  3.命令行直接查询
	vtmcp lookup domain example.com
	vtmcp lookup relationship ip 8.8.8.8 resolutions --limit 20
`,
	SilenceUsage: true,
	// PersistentPreRun: 全局初始化逻辑，确保所有子命令都能使用日志
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initCLILogger(cmd)
	},
}

func Execute() {
	// 全局 Panic Recovery
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "\n[FATAL] vtmcp crashed unexpectedly: %v\n", r)
			os.Exit(1)
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		pterm.Error.WithWriter(os.Stderr).Println(err)
		os.Exit(1)
	}
}

func init() {
	// 全局 Flag
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "配置文件或配置目录 (默认搜索 ./configs 和当前目录)")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, ".env 文件路径，可重复指定 (默认: .env)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "日志级别 (debug, info, warn, error)")

	// 注册子命令
	rootCmd.AddCommand(lookup.NewLookupCmd(loadConfig))
}

// loadConfig 加载配置，命令行日志级别覆盖配置文件
// validate 为 false 时只加载不校验，供 config 命令使用
func loadConfig(validate bool) (*config.Config, error) {
	loader := config.NewConfigLoader(cfgFile, config.DefaultEnvPrefix, envFiles...)

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" && cfg.Log != nil {
		cfg.Log.Level = logLevel
	}

	if validate {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// initCLILogger 初始化 CLI 模式下的日志
// 日志始终写 stderr，stdout 留给报告和 stdio 协议
func initCLILogger(cmd *cobra.Command) {
	level := "warn"
	if flag := cmd.Flags().Lookup("log-level"); flag != nil && flag.Changed {
		level = strings.ToLower(flag.Value.String())
	}

	switch level {
	case "debug":
		pterm.EnableDebugMessages()
	case "info":
		pterm.DisableDebugMessages()
	default:
		pterm.DisableDebugMessages()
		pterm.Info = *pterm.Info.WithWriter(io.Discard)
	}

	logConfig := &config.LogConfig{
		Level:  level,
		Format: "text",
		Output: "stderr",
	}

	if _, err := logger.InitLogger(logConfig); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init logger: %v\n", err)
	}
}
