package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"cropvault-server/internal/modules/warehouse/chart"
	"cropvault-server/internal/modules/warehouse/stats"
	"cropvault-server/internal/modules/warehouse/types"
)

type statsOptions struct {
	period    string
	metric    string
	chartPath string
}

func (c *cli) newStatsCmd() *cobra.Command {
	opts := &statsOptions{}
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Fetch statistics once and print the series",
		Long: `Fetch the statistics document from STATS_URL, bucket it for the given
period and metric and print one row per bucket followed by the summary.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runStats(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.period, "period", string(types.PeriodWeekly), "weekly, monthly or yearly")
	cmd.Flags().StringVar(&opts.metric, "metric", string(types.MetricTemp), "temp or humid")
	cmd.Flags().StringVar(&opts.chartPath, "chart", "", "also render the chart to this .svg or .png file")
	return cmd
}

func (c *cli) runStats(cmd *cobra.Command, opts *statsOptions) error {
	period, err := types.ParsePeriod(opts.period)
	if err != nil {
		return err
	}
	metric, err := types.ParseMetric(opts.metric)
	if err != nil {
		return err
	}
	var format chart.Format
	if opts.chartPath != "" {
		format, err = chart.ParseFormat(strings.TrimPrefix(filepath.Ext(opts.chartPath), "."))
		if err != nil {
			return err
		}
	}

	svc := stats.NewService(stats.NewClient(c.cfg.StatsURL, c.cfg.StatsTimeout, slog.Default()), c.cfg.Location, slog.Default())
	sel := types.Selection{Period: period, Metric: metric}
	res, err := svc.Refresh(cmd.Context(), sel)
	if err != nil {
		return fmt.Errorf("fetch stats: %w", err)
	}

	now := svc.Now()
	if err := printStats(cmd.OutOrStdout(), res, now); err != nil {
		return err
	}
	if opts.chartPath != "" {
		return writeChart(opts.chartPath, format, chart.Build(sel, res.Series, now))
	}
	return nil
}

func printStats(w io.Writer, res stats.Result, now time.Time) error {
	labels := chart.Labels(res.Selection.Period, now)
	unit := res.Selection.Metric.Unit()

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s (%s)\n", strings.ToUpper(string(res.Selection.Period)), res.Selection.Metric, unit)
	for i, v := range res.Series {
		label := ""
		if i < len(labels) {
			label = labels[i]
		}
		value := stats.NoData
		if v != 0 {
			value = fmt.Sprintf("%.1f", v)
		}
		fmt.Fprintf(tw, "%s\t%s\n", label, value)
	}
	boxes := stats.FormatSummary(res.Summary, res.Selection.Metric)
	fmt.Fprintf(tw, "\navg\t%s%s\nmax\t%s%s\nmin\t%s%s\n",
		boxes.Avg, boxes.Unit, boxes.Max, boxes.Unit, boxes.Min, boxes.Unit)
	return tw.Flush()
}

func writeChart(path string, format chart.Format, ds chart.Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	if err := chart.Render(f, format, ds); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close chart file: %w", err)
	}
	slog.Info("chart written", "path", path, "format", format)
	return nil
}
