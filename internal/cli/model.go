package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newModelCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Manage registered models",
	}

	var project string
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Register a model within a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := a.client.CreateModel(ctx, args[0], project)
			if err != nil {
				return err
			}
			if err := a.bindModel(ctx, m.ID); err != nil {
				return fmt.Errorf("model created but session not updated: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), m.ID)
			return nil
		},
	}
	create.Flags().StringVarP(&project, "project", "p", "", "project name (required)")
	create.MarkFlagRequired("project")

	var listProject string
	list := &cobra.Command{
		Use:   "list",
		Short: "List models, optionally within one project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			models, err := a.client.ListModels(cmd.Context(), listProject)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPROJECT")
			for _, m := range models {
				fmt.Fprintf(w, "%s\t%s\t%s\n", m.ID, m.Name, m.ProjectName)
			}
			return w.Flush()
		},
	}
	list.Flags().StringVarP(&listProject, "project", "p", "", "only models of this project")

	del := &cobra.Command{
		Use:   "delete <model-id>",
		Short: "Delete a model with its runs and observations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.client.DeleteModel(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d model(s)\n", n)
			return nil
		},
	}

	cmd.AddCommand(create, list, del)
	return cmd
}

func newProjectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <project-name>",
		Short: "Delete every model of a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.client.DeleteProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d model(s)\n", n)
			return nil
		},
	})
	return cmd
}
