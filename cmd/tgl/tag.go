package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/groblegark/tangle/internal/client"
	"github.com/spf13/cobra"
)

// resolveTagIDs maps tag names to ids, passing through values that already
// match a tag id. Lookup is case-insensitive on names.
func resolveTagIDs(ctx context.Context, values []string) ([]string, error) {
	if len(values) == 0 {
		return nil, nil
	}
	tags, err := tangleClient.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tags: %w", err)
	}
	byName := make(map[string]string, len(tags))
	byID := make(map[string]bool, len(tags))
	for _, t := range tags {
		byName[strings.ToLower(t.Name)] = t.ID
		byID[t.ID] = true
	}

	ids := make([]string, 0, len(values))
	for _, v := range values {
		if byID[v] {
			ids = append(ids, v)
			continue
		}
		if id, ok := byName[strings.ToLower(v)]; ok {
			ids = append(ids, id)
			continue
		}
		return nil, fmt.Errorf("unknown tag %q", v)
	}
	return ids, nil
}

// resolveTagID resolves a single tag name or id.
func resolveTagID(ctx context.Context, value string) (string, error) {
	ids, err := resolveTagIDs(ctx, []string{value})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

var tagCmd = &cobra.Command{
	Use:     "tag",
	Short:   "Manage tags",
	GroupID: "tags",
}

var tagAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		color, _ := cmd.Flags().GetString("color")
		tag, err := tangleClient.CreateTag(context.Background(), args[0], color)
		if err != nil {
			return fmt.Errorf("creating tag: %w", err)
		}
		if jsonOutput {
			printJSON(tag)
		} else {
			printTagTable(tag)
		}
		return nil
	},
}

var tagListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tags",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tags, err := tangleClient.ListTags(context.Background())
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(tags)
		} else {
			printTagListTable(tags)
		}
		return nil
	},
}

var tagShowCmd = &cobra.Command{
	Use:   "show <name|id>",
	Short: "Show a tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		id, err := resolveTagID(ctx, args[0])
		if err != nil {
			return err
		}
		tag, err := tangleClient.GetTag(ctx, id)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(tag)
		} else {
			printTagTable(tag)
		}
		return nil
	},
}

var tagUpdateCmd = &cobra.Command{
	Use:   "update <name|id>",
	Short: "Rename or recolor a tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		id, err := resolveTagID(ctx, args[0])
		if err != nil {
			return err
		}

		req := &client.UpdateTagRequest{}
		if cmd.Flags().Changed("name") {
			v, _ := cmd.Flags().GetString("name")
			req.Name = &v
		}
		if cmd.Flags().Changed("color") {
			v, _ := cmd.Flags().GetString("color")
			req.Color = &v
		}
		if req.Name == nil && req.Color == nil {
			return fmt.Errorf("nothing to update: pass --name or --color")
		}

		tag, err := tangleClient.UpdateTag(ctx, id, req)
		if err != nil {
			return fmt.Errorf("updating tag: %w", err)
		}
		if jsonOutput {
			printJSON(tag)
		} else {
			printTagTable(tag)
		}
		return nil
	},
}

var tagRemoveCmd = &cobra.Command{
	Use:   "remove <name|id>",
	Short: "Delete a tag (tasks keep their other tags)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		id, err := resolveTagID(ctx, args[0])
		if err != nil {
			return err
		}
		if err := tangleClient.DeleteTag(ctx, id); err != nil {
			return fmt.Errorf("deleting tag: %w", err)
		}
		fmt.Printf("tag %s deleted\n", args[0])
		return nil
	},
}

var tagMergeCmd = &cobra.Command{
	Use:   "merge <from> <into>",
	Short: "Merge one tag into another, reassigning its tasks",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		fromID, err := resolveTagID(ctx, args[0])
		if err != nil {
			return err
		}
		intoID, err := resolveTagID(ctx, args[1])
		if err != nil {
			return err
		}

		tag, err := tangleClient.MergeTags(ctx, fromID, intoID)
		if err != nil {
			return fmt.Errorf("merging tags: %w", err)
		}
		fmt.Printf("merged %q into %q (%d tasks)\n", args[0], tag.Name, tag.TaskCount)
		return nil
	},
}

var tagRelatedCmd = &cobra.Command{
	Use:   "related <name|id>",
	Short: "List tags that co-occur with a tag",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		ctx := context.Background()
		id, err := resolveTagID(ctx, args[0])
		if err != nil {
			return err
		}
		tags, err := tangleClient.RelatedTags(ctx, id, limit)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(tags)
			return nil
		}
		if len(tags) == 0 {
			fmt.Println("no related tags")
			return nil
		}
		printTagListTable(tags)
		return nil
	},
}

var tagFindCmd = &cobra.Command{
	Use:   "find <prefix>",
	Short: "Autocomplete tag names by prefix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		tags, err := tangleClient.AutocompleteTags(context.Background(), args[0], limit)
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(tags)
			return nil
		}
		for _, t := range tags {
			fmt.Println(t.Name)
		}
		return nil
	},
}

var tagAttachCmd = &cobra.Command{
	Use:   "attach <task-id> <tag>",
	Short: "Add a tag to a task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		tagID, err := resolveTagID(ctx, args[1])
		if err != nil {
			return err
		}
		task, err := tangleClient.AddTaskTag(ctx, args[0], tagID)
		if err != nil {
			return fmt.Errorf("attaching tag: %w", err)
		}
		if jsonOutput {
			printJSON(task)
		} else {
			fmt.Printf("%s: %s\n", task.ID, tagNames(task.Tags))
		}
		return nil
	},
}

var tagDetachCmd = &cobra.Command{
	Use:   "detach <task-id> <tag>",
	Short: "Remove a tag from a task",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		tagID, err := resolveTagID(ctx, args[1])
		if err != nil {
			return err
		}
		task, err := tangleClient.RemoveTaskTag(ctx, args[0], tagID)
		if err != nil {
			return fmt.Errorf("detaching tag: %w", err)
		}
		if jsonOutput {
			printJSON(task)
		} else {
			fmt.Printf("%s: %s\n", task.ID, tagNames(task.Tags))
		}
		return nil
	},
}

func init() {
	tagAddCmd.Flags().StringP("color", "c", "", "hex color (#RRGGBB, defaults to the palette teal)")
	tagUpdateCmd.Flags().String("name", "", "new name")
	tagUpdateCmd.Flags().StringP("color", "c", "", "new hex color")
	tagRelatedCmd.Flags().Int("limit", 10, "maximum tags to return")
	tagFindCmd.Flags().Int("limit", 10, "maximum tags to return")

	tagCmd.AddCommand(tagAddCmd)
	tagCmd.AddCommand(tagListCmd)
	tagCmd.AddCommand(tagShowCmd)
	tagCmd.AddCommand(tagUpdateCmd)
	tagCmd.AddCommand(tagRemoveCmd)
	tagCmd.AddCommand(tagMergeCmd)
	tagCmd.AddCommand(tagRelatedCmd)
	tagCmd.AddCommand(tagFindCmd)
	tagCmd.AddCommand(tagAttachCmd)
	tagCmd.AddCommand(tagDetachCmd)
}
