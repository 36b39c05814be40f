package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/rflorenc/scm-migration-workbench/internal/migration"
)

func (a *app) listCmd() *cobra.Command {
	var (
		source    string
		skipUsers bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the source instance into the store",
		Long: `list walks every group, project and user of the source connection and
overwrites the groups, projects and users collections.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			src, err := a.connection("source", source)
			if err != nil {
				return err
			}
			opts := a.serviceOptions()
			opts.SkipUsers = skipUsers
			return a.withService(cmd.Context(), opts, func(ctx context.Context, svc *migration.Service) error {
				sum, err := svc.List(ctx, src)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), sum)
			})
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "name of the source connection (default: first source)")
	cmd.Flags().BoolVar(&skipUsers, "skip-users", false, "do not list users")
	cmd.Flags().StringSlice("exclude", nil, "glob of group or project paths to skip (repeatable)")
	a.bind(cmd.Flags(), map[string]string{"exclude": "list.exclude_paths"})
	return cmd
}
