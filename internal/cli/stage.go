package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/rflorenc/scm-migration-workbench/internal/migration"
)

func (a *app) stageCmd() *cobra.Command {
	var (
		dryRun    bool
		skipUsers bool
	)
	cmd := &cobra.Command{
		Use:   "stage [selection...]",
		Short: "Stage groups with their ancestors, descendants, projects and members",
		Long: `stage resolves a selection of listed groups into the staged_groups,
staged_projects and staged_users collections.

A selection is a list of group ids ("1 4" or "1,4"), a range of listing
positions ("2-5"), or "all" / ".".`,
		Example: `  workbench stage 42
  workbench stage 1-10 --dry-run
  workbench stage all --skip-users`,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := a.serviceOptions()
			opts.DryRun = dryRun
			opts.SkipUsers = skipUsers
			return a.withService(cmd.Context(), opts, func(ctx context.Context, svc *migration.Service) error {
				set, err := svc.Stage(ctx, args)
				if err != nil {
					return err
				}
				g, p, u := set.Counts()
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"dry_run":         dryRun,
					"staged_groups":   g,
					"staged_projects": p,
					"staged_users":    u,
				})
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "resolve and report without writing the staged collections")
	cmd.Flags().BoolVar(&skipUsers, "skip-users", false, "stage no users")
	return cmd
}
