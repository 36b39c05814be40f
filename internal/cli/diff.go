package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/rflorenc/scm-migration-workbench/internal/diff"
	"github.com/rflorenc/scm-migration-workbench/internal/migration"
)

func (a *app) diffCmd() *cobra.Command {
	var (
		source, destination string
		kinds               []string
		strict              bool
	)
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Score the destination against the staged entities",
		Long: `diff compares every staged project and group on the source with its
imported copy on the destination, stores one report per kind and renders
it to <data_dir>/results/<kind>_diff.html.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			src, err := a.connection("source", source)
			if err != nil {
				return err
			}
			dst, err := a.connection("destination", destination)
			if err != nil {
				return err
			}
			opts := a.serviceOptions()
			if cmd.Flags().Changed("strict-counts") {
				opts.StrictCounts = strict
			}
			return a.withService(cmd.Context(), opts, func(ctx context.Context, svc *migration.Service) error {
				reports, err := svc.Verify(ctx, src, dst, kinds...)
				if err != nil {
					return err
				}
				out := make(map[string]diff.StageAccuracy, len(reports))
				for _, r := range reports {
					out[r.SummaryKey()] = r.Summary
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	cmd.Flags().StringVar(&source, "source", "", "name of the source connection")
	cmd.Flags().StringVar(&destination, "destination", "", "name of the destination connection")
	cmd.Flags().StringSliceVar(&kinds, "kind", nil, "kinds to verify: project, group (default both)")
	cmd.Flags().BoolVar(&strict, "strict-counts", false, "score count mismatches as zero-accuracy entries")
	return cmd
}
