// cmd/profile.go
package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// newProfileCmd groups the auto-fill profile subcommands.
func newProfileCmd() *cobra.Command {
	profileCmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage the auto-fill profile",
	}
	profileCmd.AddCommand(newProfileSetCmd(), newProfileShowCmd())
	return profileCmd
}

func newProfileSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Sets a profile value (an empty value removes the key)",
		Long: `Common keys: first_name, last_name, email, phone, linkedin_url,
desired_salary, years_experience, notice_period, start_date.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.profiles.Set(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Profile key %q updated.\n", args[0])
			return nil
		},
	}
}

func newProfileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Shows the stored profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer app.Close()

			data, err := app.profiles.AutoFillData(cmd.Context())
			if err != nil {
				return err
			}
			if len(data) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Profile is empty. Set values with: formpilot-cli profile set <key> <value>")
				return nil
			}

			keys, err := app.profiles.Keys(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KEY\tVALUE")
			for _, k := range keys {
				fmt.Fprintf(w, "%s\t%s\n", k, data[k])
			}
			return w.Flush()
		},
	}
}
