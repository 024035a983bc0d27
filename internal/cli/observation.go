package cli

import (
	"fmt"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ashwinyue/traintrack/pkg/client"
)

// pointFlags loss/metric log 共用的参数
type pointFlags struct {
	runID string
	step  int64
	split string
	value float64
}

func (f *pointFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.runID, "run", "r", "", "run id (defaults to the session's run)")
	cmd.Flags().Int64Var(&f.step, "step", 0, "training step (required)")
	cmd.Flags().StringVar(&f.split, "split", "", "data split, e.g. train or val (required)")
	cmd.Flags().Float64Var(&f.value, "value", 0, "observed value (required)")
	cmd.MarkFlagRequired("step")
	cmd.MarkFlagRequired("split")
	cmd.MarkFlagRequired("value")
}

// queryFlags loss/metric list 共用的参数
type queryFlags struct {
	runID string
	split string
	limit int
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.runID, "run", "r", "", "run id (defaults to the session's run)")
	cmd.Flags().StringVar(&f.split, "split", "", "only this split")
	cmd.Flags().IntVar(&f.limit, "limit", 0, "return at most this many rows")
}

func newLossCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loss",
		Short: "Log and query loss values",
	}

	var pf pointFlags
	logCmd := &cobra.Command{
		Use:   "log",
		Short: "Record one loss value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runID, err := a.resolveRun(ctx, pf.runID)
			if err != nil {
				return err
			}
			_, err = a.client.LogLoss(ctx, client.LossPoint{
				RunID: runID, Step: pf.step, Split: pf.split, Value: pf.value,
			})
			return err
		},
	}
	pf.register(logCmd)

	var qf queryFlags
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List loss values of a run, highest step first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runID, err := a.resolveRun(ctx, qf.runID)
			if err != nil {
				return err
			}
			losses, err := a.client.ListLosses(ctx, client.ObservationQuery{
				RunID: runID, Split: qf.split, Limit: qf.limit,
			})
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STEP\tSPLIT\tVALUE\tTIMESTAMP")
			for _, l := range losses {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
					l.Step, l.Split, formatValue(l.Value), l.Timestamp.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
	qf.register(listCmd)

	cmd.AddCommand(logCmd, listCmd)
	return cmd
}

func newMetricCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metric",
		Short: "Log and query evaluation metrics",
	}

	var (
		pf   pointFlags
		name string
	)
	logCmd := &cobra.Command{
		Use:   "log",
		Short: "Record one metric value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runID, err := a.resolveRun(ctx, pf.runID)
			if err != nil {
				return err
			}
			_, err = a.client.LogMetric(ctx, client.MetricPoint{
				RunID: runID, Step: pf.step, Split: pf.split, MetricName: name, Value: pf.value,
			})
			return err
		},
	}
	pf.register(logCmd)
	logCmd.Flags().StringVar(&name, "name", "", "metric name, e.g. accuracy (required)")
	logCmd.MarkFlagRequired("name")

	var (
		qf         queryFlags
		filterName string
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List metric values of a run, highest step first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runID, err := a.resolveRun(ctx, qf.runID)
			if err != nil {
				return err
			}
			metrics, err := a.client.ListMetrics(ctx, client.ObservationQuery{
				RunID: runID, Split: qf.split, MetricName: filterName, Limit: qf.limit,
			})
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "STEP\tSPLIT\tNAME\tVALUE\tTIMESTAMP")
			for _, m := range metrics {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
					m.Step, m.Split, m.MetricName, formatValue(m.Value), m.Timestamp.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
	qf.register(listCmd)
	listCmd.Flags().StringVar(&filterName, "name", "", "only this metric")

	cmd.AddCommand(logCmd, listCmd)
	return cmd
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
