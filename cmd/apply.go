// cmd/apply.go
package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/formpilot-cli/api/schemas"
)

// newApplyCmd creates the `apply` command.
func newApplyCmd() *cobra.Command {
	applyCmd := &cobra.Command{
		Use:   "apply <url>",
		Short: "Fast-fills an application form, answering questions as they appear",
		Long: `Navigates to the form, fills every field it can answer from your profile,
the deterministic templates and the answer cache, and keeps watching for
dynamically revealed questions until the time budget runs out. Questions
nothing else can answer are sent, batched and rate limited, to the
configured oracle.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			url := args[0]

			if timeout := viper.GetDuration("budget"); timeout > 0 {
				appConfig.SetApplyTimeout(timeout)
			}

			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			app.openOracle()
			if err := app.openBrowser(cmd.Context()); err != nil {
				return err
			}

			answerCtx := schemas.AnswerContext{
				Company:  viper.GetString("company"),
				Position: viper.GetString("position"),
				Industry: viper.GetString("industry"),
				Job:      viper.GetString("job-description"),
			}

			run := app.buildRunner()
			report, err := run.Apply(cmd.Context(), url, answerCtx)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"Filled %d static and %d dynamic fields in %s (%d skipped).\n",
				report.StaticFilled, report.DynamicFilled,
				report.Elapsed.Round(time.Second), report.Skipped)
			if report.BudgetExpired {
				fmt.Fprintln(cmd.OutOrStdout(), "Time budget expired; review the form before submitting.")
			}
			return nil
		},
	}

	applyCmd.Flags().Duration("budget", 0, "wall-clock budget for the run (default from config)")
	applyCmd.Flags().String("company", "", "company name substituted into answers")
	applyCmd.Flags().String("position", "", "position title substituted into answers")
	applyCmd.Flags().String("industry", "", "industry substituted into answers")
	applyCmd.Flags().String("job-description", "", "short job description for oracle context")
	return applyCmd
}
