// cmd/record.go
package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/xkilldash9x/formpilot-cli/internal/observability"
)

// newRecordCmd creates the `record` command.
func newRecordCmd() *cobra.Command {
	recordCmd := &cobra.Command{
		Use:   "record [name]",
		Short: "Records your interactions with a form into a replayable workflow",
		Long: `Opens a browser, navigates to the given URL and captures every click,
input and navigation until you press Ctrl-C. The captured session is
optimized into a named workflow you can replay later.`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return viper.BindPFlags(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := observability.GetLogger()

			name := ""
			if len(args) > 0 {
				name = args[0]
			}
			url := viper.GetString("url")

			if viper.GetBool("headful") {
				appConfig.SetBrowserHeadless(false)
			}

			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()
			if err := app.openBrowser(cmd.Context()); err != nil {
				return err
			}

			if url != "" {
				if err := app.session.NavigateTo(cmd.Context(), url); err != nil {
					return fmt.Errorf("failed to open %s: %w", url, err)
				}
			}

			// The session runs until the operator interrupts.
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			fmt.Fprintln(cmd.OutOrStdout(), "Recording... interact with the page, press Ctrl-C to stop.")
			run := app.buildRunner()
			result, err := run.Record(ctx, name)
			if err != nil {
				return err
			}
			if !result.Success {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing was captured; no workflow saved.")
				return nil
			}

			logger.Info("Workflow recorded.",
				zap.String("id", result.Workflow.ID),
				zap.Int("steps", len(result.Workflow.Steps)))
			fmt.Fprintf(cmd.OutOrStdout(), "Saved workflow %q (%s) with %d steps on platform %s.\n",
				result.Workflow.Name, result.Workflow.ID, len(result.Workflow.Steps), result.Workflow.Platform)
			return nil
		},
	}

	recordCmd.Flags().String("url", "", "URL to open before recording starts")
	recordCmd.Flags().Bool("headful", true, "run the browser with a visible window")
	return recordCmd
}
