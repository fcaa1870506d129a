package lookup

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gonkawada/analyze-vt-mcp/internal/pkg/virustotal"
	svc "github.com/gonkawada/analyze-vt-mcp/internal/service/lookup"
)

// newReportCmd 创建单个对象类型的报告子命令
func newReportCmd(kind virustotal.Kind, use, short string, loadConfig ConfigFunc, opts *OutputOptions) *cobra.Command {
	var relationships []string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			service, err := newService(loadConfig)
			if err != nil {
				return err
			}
			id := args[0]

			return run(cmd, opts, svc.Label(kind), func(ctx context.Context) (string, error) {
				switch kind {
				case virustotal.KindURL:
					return service.URLReport(ctx, id)
				case virustotal.KindFile:
					return service.FileReport(ctx, id)
				case virustotal.KindIP:
					return service.IPReport(ctx, id)
				default:
					return service.DomainReport(ctx, id, relationships)
				}
			})
		},
	}

	// 只有域名报告允许自定义关系
	if kind == virustotal.KindDomain {
		cmd.Flags().StringSliceVarP(&relationships, "relationships", "r", nil, "要查询的关系 (默认: "+strings.Join(svc.DefaultRelationships(kind), ",")+")")
	}

	return cmd
}
