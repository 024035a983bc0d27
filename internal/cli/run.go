package cli

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ashwinyue/traintrack/pkg/client"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Manage training runs",
	}

	var (
		modelID string
		params  []string
	)
	start := &cobra.Command{
		Use:   "start",
		Short: "Start a run for a model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			hp, err := parseParams(params)
			if err != nil {
				return err
			}
			id, err := a.resolveModel(ctx, modelID)
			if err != nil {
				return err
			}
			run, err := a.client.CreateRun(ctx, id, hp)
			if err != nil {
				return err
			}
			if err := a.bindRun(ctx, run.ID); err != nil {
				return fmt.Errorf("run started but session not updated: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), run.ID)
			return nil
		},
	}
	start.Flags().StringVarP(&modelID, "model", "m", "", "model id (defaults to the session's model)")
	start.Flags().StringArrayVar(&params, "param", nil, "hyperparameter as key=value, repeatable")

	var (
		listModel   string
		listProject string
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List runs of a model or a project, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var (
				runs []client.Run
				err  error
			)
			switch {
			case listModel != "" && listProject != "":
				return fmt.Errorf("--model and --project are mutually exclusive")
			case listProject != "":
				runs, err = a.client.RunsByProject(ctx, listProject)
			default:
				var id string
				if id, err = a.resolveModel(ctx, listModel); err != nil {
					return err
				}
				runs, err = a.client.RunsByModel(ctx, id)
			}
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tMODEL\tSTATUS\tSTARTED\tFINISHED")
			for _, r := range runs {
				finished := "-"
				if r.FinishedAt != nil {
					finished = r.FinishedAt.Format(time.RFC3339)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					r.ID, r.ModelID, r.Status, r.StartedAt.Format(time.RFC3339), finished)
			}
			return w.Flush()
		},
	}
	list.Flags().StringVarP(&listModel, "model", "m", "", "model id (defaults to the session's model)")
	list.Flags().StringVarP(&listProject, "project", "p", "", "project name")

	del := &cobra.Command{
		Use:   "delete <run-id>...",
		Short: "Delete runs with their observations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.client.DeleteRuns(cmd.Context(), args...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d run(s)\n", n)
			return nil
		},
	}

	cmd.AddCommand(
		start,
		newFinishCmd(a, "complete", "completed"),
		newFinishCmd(a, "fail", "failed"),
		list,
		del,
	)
	return cmd
}

// newFinishCmd 把运行从 running 改为终态
func newFinishCmd(a *app, use, status string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " [run-id]",
		Short: fmt.Sprintf("Mark a running run as %s", status),
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var explicit string
			if len(args) == 1 {
				explicit = args[0]
			}
			id, err := a.resolveRun(ctx, explicit)
			if err != nil {
				return err
			}
			if _, err := a.client.UpdateStatus(ctx, id, status); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", id, status)
			return nil
		},
	}
}

// parseParams 解析 key=value 形式的超参数
// 数字和布尔值按类型保存，其余保存为字符串
func parseParams(raw []string) (map[string]interface{}, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	params := make(map[string]interface{}, len(raw))
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --param %q: want key=value", kv)
		}
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			params[key] = i
		} else if f, err := strconv.ParseFloat(value, 64); err == nil {
			params[key] = f
		} else if b, err := strconv.ParseBool(value); err == nil {
			params[key] = b
		} else {
			params[key] = value
		}
	}
	return params, nil
}
