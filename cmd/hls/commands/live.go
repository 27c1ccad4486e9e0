package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/hls-client/internal/constants"
	"github.com/fivetwenty-io/hls-client/pkg/hls"
)

// NewLiveCommand creates the live command.
func NewLiveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "live TAG...",
		Short: "Read live tag values",
		Long:  "Read the current value, type and quality of one or more tags",
		Args:  requireTags,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			result, err := client.GetLiveValuesByName(cmd.Context(), args...)
			if err != nil {
				return fmt.Errorf("failed to read live values: %w", err)
			}

			err = hls.CheckResult(result)
			if err != nil {
				return err
			}

			values := result.Data.DDBTagValueList

			return render(cmd.OutOrStdout(), values, func(table *tablewriter.Table) error {
				table.Header("Tag", "Value", "Type", "Quality", "Time")

				rows := make([][]string, 0, len(values))
				for _, v := range values {
					rows = append(rows, []string{
						v.TagName,
						strings.TrimSpace(v.TagValue),
						v.TagType.Name(),
						formatQuality(v.Quality),
						formatTime(v.TagValueTime),
					})
				}

				return appendRows(table, rows)
			})
		},
	}
}

func requireTags(_ *cobra.Command, args []string) error {
	if len(args) == 0 {
		return constants.ErrAtLeastOneTagRequired
	}

	return nil
}

func formatQuality(q hls.Quality) string {
	if q.Good() {
		return "good"
	}

	return "bad"
}

func formatTime(t hls.UnixTime) string {
	if t.IsZero() {
		return ""
	}

	return t.Format(time.RFC3339)
}
