package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/hls-client/internal/constants"
	"github.com/fivetwenty-io/hls-client/pkg/hls"
)

type historyOptions struct {
	start    string
	end      string
	interval int
	agg      hls.Aggregates
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &historyOptions{}

	cmd := &cobra.Command{
		Use:   "history TAG...",
		Short: "Read aggregated tag history",
		Long: `Read aggregated history for one or more tags.

Times accept RFC3339 or unix seconds. The window defaults to the last five
minutes and both ends are inclusive. Without --avg, --min, --max or --bound
the average is read.`,
		Example: `  hls history --start 2024-03-01T08:00:00Z --end 2024-03-01T09:00:00Z --interval 60 --max FIC101.PV
  hls history --avg --min TI205.PV FIC101.PV`,
		Args: requireTags,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := opts.window(time.Now())
			if err != nil {
				return err
			}

			agg := opts.agg
			if !agg.Any() {
				agg = hls.AggregateAvg
			}

			client, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			interval := time.Duration(opts.interval) * time.Second

			result, err := client.GetHistoryByName(cmd.Context(), start, end, interval, agg, args...)
			if err != nil {
				return fmt.Errorf("failed to read history: %w", err)
			}

			err = hls.CheckResult(result)
			if err != nil {
				return err
			}

			series := result.Data.HDBTagValueList

			return render(cmd.OutOrStdout(), series, func(table *tablewriter.Table) error {
				table.Header(historyHeader(agg)...)

				return appendRows(table, historyRows(series, agg))
			})
		},
	}

	cmd.Flags().StringVar(&opts.start, "start", "", "window start (RFC3339 or unix seconds, default end - 5m)")
	cmd.Flags().StringVar(&opts.end, "end", "", "window end (RFC3339 or unix seconds, default now)")
	cmd.Flags().IntVar(&opts.interval, "interval", constants.DefaultHistoryInterval, "sampling interval in seconds")
	cmd.Flags().BoolVar(&opts.agg.Avg, "avg", false, "read the average")
	cmd.Flags().BoolVar(&opts.agg.Min, "min", false, "read the minimum")
	cmd.Flags().BoolVar(&opts.agg.Max, "max", false, "read the maximum")
	cmd.Flags().BoolVar(&opts.agg.Bound, "bound", false, "read the boundary value")

	return cmd
}

func (o *historyOptions) window(now time.Time) (time.Time, time.Time, error) {
	end := now
	if o.end != "" {
		t, err := parseTimeFlag(o.end)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}

		end = t
	}

	start := end.Add(-constants.DefaultHistoryWindow)
	if o.start != "" {
		t, err := parseTimeFlag(o.start)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}

		start = t
	}

	return start, end, nil
}

// parseTimeFlag accepts RFC3339 or unix seconds.
func parseTimeFlag(value string) (time.Time, error) {
	value = strings.TrimSpace(value)

	t, err := time.Parse(time.RFC3339, value)
	if err == nil {
		return t, nil
	}

	secs, err := strconv.ParseInt(value, 10, 64)
	if err == nil {
		return time.Unix(secs, 0), nil
	}

	return time.Time{}, fmt.Errorf("%w: %q", constants.ErrInvalidTimeFormat, value)
}

func historyHeader(agg hls.Aggregates) []any {
	header := []any{"Tag", "Time"}

	if agg.Avg {
		header = append(header, "AVG")
	}

	if agg.Min {
		header = append(header, "MIN")
	}

	if agg.Max {
		header = append(header, "MAX")
	}

	if agg.Bound {
		header = append(header, "BOUND")
	}

	return header
}

func historyRows(series []hls.HDBTagValue, agg hls.Aggregates) [][]string {
	var rows [][]string

	for _, s := range series {
		for _, p := range s.OneTagHDBValueList {
			row := []string{s.TagName, formatTime(p.TagValueTime)}

			if agg.Avg {
				row = append(row, strings.TrimSpace(p.TagValueAVG))
			}

			if agg.Min {
				row = append(row, strings.TrimSpace(p.TagValueMIN))
			}

			if agg.Max {
				row = append(row, strings.TrimSpace(p.TagValueMAX))
			}

			if agg.Bound {
				row = append(row, strings.TrimSpace(p.TagValueBound))
			}

			rows = append(rows, row)
		}
	}

	return rows
}
