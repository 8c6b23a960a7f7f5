package main

import (
	"context"
	"fmt"

	"github.com/groblegark/tangle/internal/client"
	"github.com/spf13/cobra"
)

func setTaskStatus(id, status string) error {
	req := &client.UpdateTaskRequest{Status: &status}
	task, err := tangleClient.UpdateTask(context.Background(), id, req)
	if err != nil {
		return err
	}
	if jsonOutput {
		printJSON(task)
	} else {
		fmt.Printf("%s: %s\n", task.ID, task.Status)
	}
	return nil
}

var doneCmd = &cobra.Command{
	Use:     "done <id>",
	Short:   "Mark a task done",
	GroupID: "tasks",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setTaskStatus(args[0], "done")
	},
}

var reopenCmd = &cobra.Command{
	Use:     "reopen <id>",
	Short:   "Move a done task back to todo",
	GroupID: "tasks",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return setTaskStatus(args[0], "todo")
	},
}

var toggleCmd = &cobra.Command{
	Use:     "toggle <id>",
	Short:   "Toggle a task between done and todo",
	GroupID: "tasks",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		task, err := tangleClient.ToggleTask(context.Background(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(task)
		} else {
			fmt.Printf("%s: %s\n", task.ID, task.Status)
		}
		return nil
	},
}
