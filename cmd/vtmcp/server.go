/*
 * @author: Sun977
 * @date: 2026.01.21
 * @description: Server 模式子命令
 */

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/gonkawada/analyze-vt-mcp/internal/app/vtmcp"
	"github.com/gonkawada/analyze-vt-mcp/internal/config"
)

var (
	transport string
	host      string
	port      int
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动 MCP 服务",
	Long: `启动 VirusTotal MCP 服务。

传输模式:
  stdio            通过标准输入输出通信，供本地 MCP 客户端拉起
  sse              HTTP + Server-Sent Events (默认)
  streamable-http  MCP Streamable HTTP

命令行参数优先级高于环境变量 MCP_TRANSPORT / MCP_HOST / MCP_PORT 和配置文件。

示例:
  vtmcp server --transport streamable-http --host 127.0.0.1 --port 9000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(false)
		if err != nil {
			return err
		}
		applyServerFlags(cmd, cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}
		return runServer(cfg)
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringVar(&transport, "transport", "", "传输模式 (stdio, sse, streamable-http)")
	serverCmd.Flags().StringVar(&host, "host", "", "监听地址")
	serverCmd.Flags().IntVar(&port, "port", 0, "监听端口")
}

// applyServerFlags 显式指定的参数覆盖配置
func applyServerFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("transport") {
		normalized, known := config.NormalizeTransport(transport)
		if !known {
			pterm.Warning.WithWriter(os.Stderr).Printfln("unknown transport %q, falling back to %s", transport, normalized)
		}
		cfg.Server.Transport = normalized
	}
	if flags.Changed("host") {
		cfg.Server.Host = host
	}
	if flags.Changed("port") {
		cfg.Server.Port = port
	}
}

// runServer 运行服务直到收到中断信号
func runServer(cfg *config.Config) error {
	app, err := vtmcp.NewApp(cfg)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Server.Transport != config.TransportStdio {
		pterm.Info.WithWriter(os.Stderr).Printfln("VirusTotal MCP server listening on %s (%s)", cfg.Server.GetAddress(), cfg.Server.Transport)
	}

	return app.Run(ctx)
}
