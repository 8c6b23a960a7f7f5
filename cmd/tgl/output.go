package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/groblegark/tangle/internal/model"
)

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		return
	}
	fmt.Println(string(data))
}

func tagNames(tags []*model.Tag) string {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	return strings.Join(names, ", ")
}

func printTaskTable(task *model.Task) {
	fmt.Printf("ID:          %s\n", task.ID)
	fmt.Printf("Title:       %s\n", task.Title)
	fmt.Printf("Status:      %s\n", task.Status)
	fmt.Printf("Priority:    %s\n", task.Priority)
	if task.Description != "" {
		fmt.Printf("Description: %s\n", task.Description)
	}
	if task.DueDate != nil {
		fmt.Printf("Due:         %s\n", task.DueDate.Format("2006-01-02"))
	}
	if len(task.Tags) > 0 {
		fmt.Printf("Tags:        %s\n", tagNames(task.Tags))
	}
	if task.CompletedAt != nil {
		fmt.Printf("Completed:   %s\n", task.CompletedAt.Format("2006-01-02 15:04:05"))
	}
	if !task.CreatedAt.IsZero() {
		fmt.Printf("Created At:  %s\n", task.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	if !task.UpdatedAt.IsZero() {
		fmt.Printf("Updated At:  %s\n", task.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
}

func printTaskListTable(tasks []*model.Task, total int) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPRIORITY\tDUE\tTITLE\tTAGS")
	for _, t := range tasks {
		title := t.Title
		if len(title) > 50 {
			title = title[:47] + "..."
		}
		due := ""
		if t.DueDate != nil {
			due = t.DueDate.Format("2006-01-02")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID,
			t.Status,
			t.Priority,
			due,
			title,
			tagNames(t.Tags),
		)
	}
	w.Flush()
	fmt.Printf("\n%d tasks (%d total)\n", len(tasks), total)
}

func printTagTable(tag *model.Tag) {
	fmt.Printf("ID:         %s\n", tag.ID)
	fmt.Printf("Name:       %s\n", tag.Name)
	fmt.Printf("Color:      %s\n", tag.Color)
	if tag.TaskCount > 0 {
		fmt.Printf("Tasks:      %d\n", tag.TaskCount)
	}
	if !tag.CreatedAt.IsZero() {
		fmt.Printf("Created At: %s\n", tag.CreatedAt.Format("2006-01-02 15:04:05"))
	}
}

func printTagListTable(tags []*model.Tag) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tCOLOR\tTASKS")
	for _, t := range tags {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", t.ID, t.Name, t.Color, t.TaskCount)
	}
	w.Flush()
	fmt.Printf("\n%d tags\n", len(tags))
}

func printStatsTable(stats *model.UserStats) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "total tasks:\t%d\n", stats.TotalTasks)
	fmt.Fprintf(w, "todo:\t%d\n", stats.Todo)
	fmt.Fprintf(w, "in progress:\t%d\n", stats.InProgress)
	fmt.Fprintf(w, "done:\t%d\n", stats.Done)
	fmt.Fprintf(w, "overdue:\t%d\n", stats.Overdue)
	fmt.Fprintf(w, "total tags:\t%d\n", stats.TotalTags)
	w.Flush()
}

func printUserTable(user *model.User) {
	fmt.Printf("ID:       %s\n", user.ID)
	fmt.Printf("Username: %s\n", user.Username)
	fmt.Printf("Email:    %s\n", user.Email)
	if !user.CreatedAt.IsZero() {
		fmt.Printf("Joined:   %s\n", user.CreatedAt.Format("2006-01-02"))
	}
}
