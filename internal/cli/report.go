package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/rflorenc/scm-migration-workbench/internal/migration"
)

func (a *app) reportCmd() *cobra.Command {
	var (
		accuracies bool
		html       bool
	)
	cmd := &cobra.Command{
		Use:       "report <kind>",
		Short:     "Print a stored accuracy report",
		Args:      cobra.ExactArgs(1),
		ValidArgs: migration.Kinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(cmd.Context(), a.serviceOptions(), func(ctx context.Context, svc *migration.Service) error {
				report, err := svc.Report(ctx, args[0])
				if err != nil {
					return err
				}
				if html {
					page, err := report.RenderHTML()
					if err != nil {
						return err
					}
					_, err = cmd.OutOrStdout().Write([]byte(page))
					return err
				}
				if accuracies {
					return printJSON(cmd.OutOrStdout(), report.Accuracies())
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
	cmd.Flags().BoolVar(&accuracies, "accuracies", false, "omit the diffs, print scores only")
	cmd.Flags().BoolVar(&html, "html", false, "print the rendered HTML report")
	return cmd
}
