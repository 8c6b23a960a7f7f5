package main

import (
	"context"
	"fmt"
	"time"

	"github.com/groblegark/tangle/internal/client"
	"github.com/spf13/cobra"
)

// parseDueDate accepts a bare date or a full RFC3339 timestamp.
func parseDueDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid due date %q: expected YYYY-MM-DD or RFC3339", s)
	}
	return &t, nil
}

var createCmd = &cobra.Command{
	Use:     "create <title>",
	Short:   "Create a new task",
	GroupID: "tasks",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title := args[0]

		description, _ := cmd.Flags().GetString("description")
		status, _ := cmd.Flags().GetString("status")
		priority, _ := cmd.Flags().GetString("priority")
		due, _ := cmd.Flags().GetString("due")
		position, _ := cmd.Flags().GetInt("position")
		tags, _ := cmd.Flags().GetStringSlice("tag")

		dueDate, err := parseDueDate(due)
		if err != nil {
			return err
		}

		ctx := context.Background()
		tagIDs, err := resolveTagIDs(ctx, tags)
		if err != nil {
			return err
		}

		req := &client.CreateTaskRequest{
			Title:       title,
			Description: description,
			Status:      status,
			Priority:    priority,
			DueDate:     dueDate,
			Position:    position,
			TagIDs:      tagIDs,
		}

		task, err := tangleClient.CreateTask(ctx, req)
		if err != nil {
			return fmt.Errorf("creating task: %w", err)
		}

		if jsonOutput {
			printJSON(task)
		} else {
			printTaskTable(task)
		}
		return nil
	},
}

func init() {
	createCmd.Flags().StringP("description", "d", "", "task description")
	createCmd.Flags().StringP("status", "s", "", "initial status (todo, in_progress, done)")
	createCmd.Flags().StringP("priority", "p", "", "priority (low, medium, high)")
	createCmd.Flags().String("due", "", "due date (YYYY-MM-DD)")
	createCmd.Flags().Int("position", 0, "manual sort position")
	createCmd.Flags().StringSliceP("tag", "t", nil, "tag name or id (repeatable)")
}
