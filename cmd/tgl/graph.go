package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/groblegark/tangle/internal/model"
	"github.com/spf13/cobra"
)

var graphCmd = &cobra.Command{
	Use:     "graph",
	Short:   "Fetch the task-tag graph",
	GroupID: "views",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		filterTag, _ := cmd.Flags().GetString("tag")
		filterStatus, _ := cmd.Flags().GetString("status")

		payload, err := tangleClient.GraphData(context.Background(), filterTag, filterStatus)
		if err != nil {
			return err
		}

		if jsonOutput {
			printJSON(payload)
			return nil
		}
		printGraphSummary(payload)
		return nil
	},
}

// printGraphSummary renders the graph as an adjacency listing: each task node
// followed by the tags it links to.
func printGraphSummary(p *model.GraphPayload) {
	tagLabels := make(map[string]string)
	for _, n := range p.Nodes {
		if n.Group == "tag" {
			tagLabels[n.ID] = n.Label
		}
	}
	edgesFrom := make(map[string][]string)
	for _, e := range p.Edges {
		edgesFrom[e.From] = append(edgesFrom[e.From], tagLabels[e.To])
	}

	for _, n := range p.Nodes {
		if n.Group == "tag" {
			continue
		}
		if tags := edgesFrom[n.ID]; len(tags) > 0 {
			fmt.Printf("%s [%s]\n", n.Label, strings.Join(tags, ", "))
		} else {
			fmt.Println(n.Label)
		}
	}

	s := p.Stats
	fmt.Printf("\n%d of %d tasks, %d of %d tags\n",
		s.FilteredTasks, s.TotalTasks, s.FilteredTags, s.TotalTags)
}

var statsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show task and tag counts",
	GroupID: "views",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := tangleClient.Stats(context.Background())
		if err != nil {
			return err
		}
		if jsonOutput {
			printJSON(stats)
		} else {
			printStatsTable(stats)
		}
		return nil
	},
}

func init() {
	graphCmd.Flags().StringP("tag", "t", "", "only tasks carrying this tag (by name)")
	graphCmd.Flags().StringP("status", "s", "", "only tasks with this status")
}
