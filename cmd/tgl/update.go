package main

import (
	"context"
	"fmt"
	"time"

	"github.com/groblegark/tangle/internal/client"
	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:     "update <id>",
	Short:   "Update fields on a task",
	GroupID: "tasks",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		req := &client.UpdateTaskRequest{}

		if cmd.Flags().Changed("title") {
			v, _ := cmd.Flags().GetString("title")
			req.Title = &v
		}
		if cmd.Flags().Changed("description") {
			v, _ := cmd.Flags().GetString("description")
			req.Description = &v
		}
		if cmd.Flags().Changed("status") {
			v, _ := cmd.Flags().GetString("status")
			req.Status = &v
		}
		if cmd.Flags().Changed("priority") {
			v, _ := cmd.Flags().GetString("priority")
			req.Priority = &v
		}
		if cmd.Flags().Changed("position") {
			v, _ := cmd.Flags().GetInt("position")
			req.Position = &v
		}
		if cmd.Flags().Changed("due") {
			v, _ := cmd.Flags().GetString("due")
			if v == "" {
				// An explicit empty --due clears the due date. The server
				// treats the zero time as a clear.
				req.DueDate = &time.Time{}
			} else {
				due, err := parseDueDate(v)
				if err != nil {
					return err
				}
				req.DueDate = due
			}
		}
		if cmd.Flags().Changed("tag") {
			tags, _ := cmd.Flags().GetStringSlice("tag")
			tagIDs, err := resolveTagIDs(context.Background(), tags)
			if err != nil {
				return err
			}
			if tagIDs == nil {
				tagIDs = []string{}
			}
			req.TagIDs = tagIDs
		}

		task, err := tangleClient.UpdateTask(context.Background(), id, req)
		if err != nil {
			return fmt.Errorf("updating task: %w", err)
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
	updateCmd.Flags().String("title", "", "new title")
	updateCmd.Flags().StringP("description", "d", "", "new description")
	updateCmd.Flags().StringP("status", "s", "", "new status (todo, in_progress, done)")
	updateCmd.Flags().StringP("priority", "p", "", "new priority (low, medium, high)")
	updateCmd.Flags().String("due", "", "new due date (YYYY-MM-DD, empty clears)")
	updateCmd.Flags().Int("position", 0, "new sort position")
	updateCmd.Flags().StringSliceP("tag", "t", nil, "replace the tag set (repeatable, empty clears)")
}
