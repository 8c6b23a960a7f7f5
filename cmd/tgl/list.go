package main

import (
	"context"
	"fmt"
	"os"

	"github.com/groblegark/tangle/internal/client"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List tasks",
	GroupID: "tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetStringSlice("status")
		priority, _ := cmd.Flags().GetStringSlice("priority")
		tag, _ := cmd.Flags().GetString("tag")
		search, _ := cmd.Flags().GetString("search")
		overdue, _ := cmd.Flags().GetBool("overdue")
		sort, _ := cmd.Flags().GetString("sort")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		req := &client.ListTasksRequest{
			Status:   status,
			Priority: priority,
			Tag:      tag,
			Search:   search,
			Overdue:  overdue,
			Sort:     sort,
			Limit:    limit,
			Offset:   offset,
		}

		resp, err := tangleClient.ListTasks(context.Background(), req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if jsonOutput {
			printJSON(resp.Tasks)
		} else {
			printTaskListTable(resp.Tasks, resp.Total)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().StringSliceP("status", "s", nil, "filter by status (repeatable; \"active\" = todo + in_progress)")
	listCmd.Flags().StringSliceP("priority", "p", nil, "filter by priority (repeatable)")
	listCmd.Flags().StringP("tag", "t", "", "filter by tag name or id")
	listCmd.Flags().String("search", "", "search title and description")
	listCmd.Flags().Bool("overdue", false, "only overdue tasks")
	listCmd.Flags().String("sort", "", "sort order (position, created_at, due_date, priority)")
	listCmd.Flags().Int("limit", 20, "maximum number of tasks to return")
	listCmd.Flags().Int("offset", 0, "offset for pagination")
}
