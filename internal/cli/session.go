package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSessionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage server-side sessions",
	}

	newCmd := &cobra.Command{
		Use:   "new",
		Short: "Create a session and print its id",
		Long: `Create a session and print its id.

Export it as TRAINTRACK_SESSION so later commands remember the model
created by "model create" and the run started by "run start".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.client.CreateSessionState(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), s.ID)
			return nil
		},
	}

	show := &cobra.Command{
		Use:   "show [session-id]",
		Short: "Show the current model and run of a session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := a.sessionID
			if len(args) == 1 {
				id = args[0]
			}
			if id == "" {
				return fmt.Errorf("no session given: pass a session id or --session")
			}
			s, err := a.client.GetSessionState(cmd.Context(), id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "session: %s\n", s.ID)
			fmt.Fprintf(out, "model:   %s\n", orDash(s.ModelID))
			fmt.Fprintf(out, "run:     %s\n", orDash(s.RunID))
			return nil
		},
	}

	end := &cobra.Command{
		Use:   "end [session-id]",
		Short: "Delete a session",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := a.sessionID
			if len(args) == 1 {
				id = args[0]
			}
			if id == "" {
				return fmt.Errorf("no session given: pass a session id or --session")
			}
			return a.client.DeleteSessionState(cmd.Context(), id)
		},
	}

	cmd.AddCommand(newCmd, show, end)
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
