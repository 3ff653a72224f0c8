// cmd/replay.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xkilldash9x/formpilot-cli/api/schemas"
)

// newReplayCmd creates the `replay` command.
func newReplayCmd() *cobra.Command {
	replayCmd := &cobra.Command{
		Use:   "replay <workflow-id>",
		Short: "Replays a saved workflow against the live page",
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			workflowID := args[0]
			speed := schemas.ReplaySpeed(viper.GetString("speed"))
			switch speed {
			case schemas.SpeedFast, schemas.SpeedNormal, schemas.SpeedSlow:
			default:
				return fmt.Errorf("invalid speed %q: must be fast, normal or slow", speed)
			}
			appConfig.SetExecutorSpeed(string(speed))
			if viper.GetBool("no-profile") {
				appConfig.SetExecutorUseProfileData(false)
			}

			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			if err := app.openBrowser(cmd.Context()); err != nil {
				return err
			}

			if url := viper.GetString("url"); url != "" {
				if err := app.session.NavigateTo(cmd.Context(), url); err != nil {
					return fmt.Errorf("failed to open %s: %w", url, err)
				}
			}

			run := app.buildRunner()
			report, err := run.Replay(cmd.Context(), workflowID, speed)
			if err != nil {
				return err
			}

			if report.Success {
				fmt.Fprintf(cmd.OutOrStdout(), "Replay complete: %d/%d steps executed.\n",
					report.ExecutedSteps, report.TotalSteps)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Replay partially complete: %d/%d steps executed (skipped: %v).\n",
					report.ExecutedSteps, report.TotalSteps, report.SkippedSteps)
			}
			return nil
		},
	}

	replayCmd.Flags().String("speed", "normal", "replay pacing: fast, normal or slow")
	replayCmd.Flags().String("url", "", "URL to open before the replay starts")
	replayCmd.Flags().Bool("no-profile", false, "replay recorded values without profile substitution")
	return replayCmd
}
