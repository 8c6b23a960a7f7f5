package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:     "show <id>",
	Short:   "Show a task",
	GroupID: "tasks",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		task, err := tangleClient.GetTask(context.Background(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(task)
		} else {
			printTaskTable(task)
		}
		return nil
	},
}

var relatedCmd = &cobra.Command{
	Use:     "related <id>",
	Short:   "List tasks sharing tags with a task",
	GroupID: "tasks",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tasks, err := tangleClient.RelatedTasks(context.Background(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(tasks)
			return nil
		}
		if len(tasks) == 0 {
			fmt.Println("no related tasks")
			return nil
		}
		printTaskListTable(tasks, len(tasks))
		return nil
	},
}
