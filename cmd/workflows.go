// cmd/workflows.go
package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/formpilot-cli/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// newWorkflowsCmd groups the workflow management subcommands.
func newWorkflowsCmd() *cobra.Command {
	workflowsCmd := &cobra.Command{
		Use:   "workflows",
		Short: "Manage saved workflows",
	}
	workflowsCmd.AddCommand(
		newWorkflowsListCmd(),
		newWorkflowsDeleteCmd(),
		newWorkflowsDuplicateCmd(),
		newWorkflowsExportCmd(),
		newWorkflowsImportCmd(),
	)
	return workflowsCmd
}

func newWorkflowsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Lists saved workflows, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			flows, err := app.flows.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(flows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No workflows recorded yet.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPLATFORM\tSTEPS\tUSES\tSUCCESS\tRECORDED")
			for _, f := range flows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.0f%%\t%s\n",
					f.ID, f.Name, f.Platform, len(f.Steps), f.UsageCount,
					f.SuccessRate*100, f.RecordedAt.Format("2006-01-02 15:04"))
			}
			return w.Flush()
		},
	}
}

func newWorkflowsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <workflow-id>",
		Short: "Deletes a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.flows.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted workflow %s.\n", args[0])
			return nil
		},
	}
}

func newWorkflowsDuplicateCmd() *cobra.Command {
	duplicateCmd := &cobra.Command{
		Use:   "duplicate <workflow-id>",
		Short: "Copies a workflow with fresh usage statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			name, _ := cmd.Flags().GetString("name")
			dup, err := app.flows.Duplicate(cmd.Context(), args[0], name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %q (%s).\n", dup.Name, dup.ID)
			return nil
		},
	}
	duplicateCmd.Flags().String("name", "", "name for the copy (default: source name + \" (copy)\")")
	return duplicateCmd
}

func newWorkflowsExportCmd() *cobra.Command {
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Exports all workflows and cached answers to a backup file",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			out, _ := cmd.Flags().GetString("out")

			flowsEnvelope, err := app.flows.Export(cmd.Context())
			if err != nil {
				return err
			}
			answersEnvelope, err := app.answers.Export()
			if err != nil {
				return err
			}

			bundle := map[string]*schemas.ExportEnvelope{
				"workflows": flowsEnvelope,
				"answers":   answersEnvelope,
			}
			raw, err := json.MarshalIndent(bundle, "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, raw, 0o600); err != nil {
				return fmt.Errorf("failed to write backup: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d workflows and %d answers to %s.\n",
				flowsEnvelope.Stats.EntryCount, answersEnvelope.Stats.EntryCount, out)
			return nil
		},
	}
	exportCmd.Flags().String("out", "formpilot-backup.json", "backup file path")
	return exportCmd
}

func newWorkflowsImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <backup-file>",
		Short: "Imports workflows and cached answers from a backup file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read backup: %w", err)
			}
			var bundle map[string]*schemas.ExportEnvelope
			if err := json.Unmarshal(raw, &bundle); err != nil {
				return fmt.Errorf("corrupt backup file: %w", err)
			}

			importedFlows := 0
			if envelope := bundle["workflows"]; envelope != nil {
				if importedFlows, err = app.flows.Import(cmd.Context(), envelope); err != nil {
					return err
				}
			}
			importedAnswers := 0
			if envelope := bundle["answers"]; envelope != nil {
				if importedAnswers, err = app.answers.Import(cmd.Context(), envelope); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d workflows and %d answers.\n",
				importedFlows, importedAnswers)
			return nil
		},
	}
}
