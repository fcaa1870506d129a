package lookup

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/gonkawada/analyze-vt-mcp/internal/config"
	"github.com/gonkawada/analyze-vt-mcp/internal/core/reporter"
	"github.com/gonkawada/analyze-vt-mcp/internal/pkg/virustotal"
	svc "github.com/gonkawada/analyze-vt-mcp/internal/service/lookup"
)

// ConfigFunc 加载配置，validate 表示是否校验
type ConfigFunc func(validate bool) (*config.Config, error)

// OutputOptions 输出参数，所有子命令共享
type OutputOptions struct {
	Raw    bool   // 输出原始 Markdown
	Output string // 同时写入文件
}

// NewLookupCmd 创建 lookup 父命令
func NewLookupCmd(loadConfig ConfigFunc) *cobra.Command {
	opts := &OutputOptions{}

	cmd := &cobra.Command{
		Use:   "lookup",
		Short: "直接查询 VirusTotal 并输出报告",
		Long: `不启动 MCP 服务，直接执行一次查询并在终端输出报告。
请使用具体的子命令。`,
	}

	pFlags := cmd.PersistentFlags()
	pFlags.BoolVar(&opts.Raw, "raw", false, "输出原始 Markdown，不做终端渲染")
	pFlags.StringVarP(&opts.Output, "output", "o", "", "报告同时保存到文件 (.md)")

	cmd.AddCommand(newReportCmd(virustotal.KindURL, "url <url>", "查询 URL 报告（会先提交扫描）", loadConfig, opts))
	cmd.AddCommand(newReportCmd(virustotal.KindFile, "file <hash>", "查询文件报告 (MD5/SHA-1/SHA-256)", loadConfig, opts))
	cmd.AddCommand(newReportCmd(virustotal.KindIP, "ip <address>", "查询 IP 报告", loadConfig, opts))
	cmd.AddCommand(newReportCmd(virustotal.KindDomain, "domain <domain>", "查询域名报告", loadConfig, opts))
	cmd.AddCommand(newRelationshipCmd(loadConfig, opts))

	return cmd
}

// newService 根据配置创建查询服务
func newService(loadConfig ConfigFunc) (svc.LookupService, error) {
	cfg, err := loadConfig(true)
	if err != nil {
		return nil, err
	}
	client, err := virustotal.NewClientFromConfig(cfg.VirusTotal)
	if err != nil {
		return nil, err
	}
	return svc.NewLookupService(client, svc.WithSettleDelay(cfg.VirusTotal.SettleDelay)), nil
}

// run 执行查询并输出报告，查询期间在 stderr 显示进度
func run(cmd *cobra.Command, opts *OutputOptions, label string, query func(ctx context.Context) (string, error)) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var spinnerWriter io.Writer = os.Stderr
	if opts.Raw {
		spinnerWriter = io.Discard
	}
	spinner, _ := pterm.DefaultSpinner.WithWriter(spinnerWriter).WithRemoveWhenDone(true).Start("Querying VirusTotal...")
	report, err := query(ctx)
	if spinner != nil {
		_ = spinner.Stop()
	}
	if err != nil {
		return err
	}

	reporters := []reporter.Reporter{reporter.NewConsoleReporter(opts.Raw).WithWriter(cmd.OutOrStdout())}
	if opts.Output != "" {
		reporters = append(reporters, reporter.NewFileReporter(opts.Output))
	}
	if err := reporter.NewMultiReporter(reporters...).Report(ctx, label, report); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
