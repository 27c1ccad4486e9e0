package commands

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/hls-client/pkg/hls"
)

// NewTagsCommand creates the tags command.
func NewTagsCommand() *cobra.Command {
	var contains string

	cmd := &cobra.Command{
		Use:   "tags",
		Short: "List all tags",
		Long:  "List every tag known to the historian with its description",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := CreateClient(cmd.Context())
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			result, err := client.QueryAllTags(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list tags: %w", err)
			}

			err = hls.CheckResult(result)
			if err != nil {
				return err
			}

			tags := filterTags(result.Data.TagNameList, contains)

			return render(cmd.OutOrStdout(), tags, func(table *tablewriter.Table) error {
				table.Header("Name", "Description")

				rows := make([][]string, 0, len(tags))
				for _, tag := range tags {
					rows = append(rows, []string{tag.TagName, tag.TagDes})
				}

				return appendRows(table, rows)
			})
		},
	}

	cmd.Flags().StringVar(&contains, "contains", "", "only list tags whose name contains this text (case-insensitive)")

	return cmd
}

func filterTags(tags []hls.TagName, contains string) []hls.TagName {
	if contains == "" {
		return tags
	}

	needle := strings.ToLower(contains)
	out := make([]hls.TagName, 0, len(tags))

	for _, tag := range tags {
		if strings.Contains(strings.ToLower(tag.TagName), needle) {
			out = append(out, tag)
		}
	}

	return out
}
