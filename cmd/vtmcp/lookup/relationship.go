package lookup

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/gonkawada/analyze-vt-mcp/internal/pkg/virustotal"
	svc "github.com/gonkawada/analyze-vt-mcp/internal/service/lookup"
)

// newRelationshipCmd 查询单个关系，支持分页
func newRelationshipCmd(loadConfig ConfigFunc, opts *OutputOptions) *cobra.Command {
	var (
		limit  int
		cursor string
	)

	cmd := &cobra.Command{
		Use:   "relationship <url|file|ip|domain> <id> <relationship>",
		Short: "查询单个关系",
		Long: `分页查询对象的单个关系。

示例:
  vtmcp lookup relationship domain example.com subdomains --limit 20
  vtmcp lookup relationship file <sha256> contacted_ips --cursor <cursor>`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := virustotal.ParseKind(args[0])
			if err != nil {
				return err
			}
			service, err := newService(loadConfig)
			if err != nil {
				return err
			}
			id, rel := args[1], args[2]

			return run(cmd, opts, svc.Label(kind), func(ctx context.Context) (string, error) {
				switch kind {
				case virustotal.KindURL:
					return service.URLRelationship(ctx, id, rel, limit, cursor)
				case virustotal.KindFile:
					return service.FileRelationship(ctx, id, rel, limit, cursor)
				case virustotal.KindIP:
					return service.IPRelationship(ctx, id, rel, limit, cursor)
				default:
					return service.DomainRelationship(ctx, id, rel, limit, cursor)
				}
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "返回的最大条数 (1-40)")
	cmd.Flags().StringVar(&cursor, "cursor", "", "分页游标")

	return cmd
}
