// Package graph turns a user's tasks and tag associations into the node/edge
// payload consumed by the front-end network renderer.
package graph

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/groblegark/tangle/internal/model"
)

// Task status to node color pairs. Unknown statuses fall back to todo.
var statusColors = map[model.Status]model.NodeColor{
	model.StatusTodo:       {Background: "#e3f2fd", Border: "#2196f3"},
	model.StatusInProgress: {Background: "#fff8e1", Border: "#ff9800"},
	model.StatusDone:       {Background: "#e8f5e9", Border: "#4caf50"},
}

// Task priority to node border width and edge width.
var priorityWidth = map[model.Priority]int{
	model.PriorityHigh:   3,
	model.PriorityMedium: 2,
	model.PriorityLow:    1,
}

// Task priority to edge color.
var priorityEdgeColor = map[model.Priority]string{
	model.PriorityHigh:   "#ff9800",
	model.PriorityMedium: "#999999",
	model.PriorityLow:    "#cccccc",
}

// Tag node sizing: base size plus a few pixels per task, capped so heavily
// used tags don't dominate the layout.
const (
	baseTagSize    = 15
	tagSizePerTask = 3
	maxTagSize     = 50
)

const (
	fontOverdue = "#cc0000"
	fontNormal  = "#333333"
)

// Source is the single logical read the builder performs per call.
type Source interface {
	GraphSnapshot(ctx context.Context, userID string, filter model.GraphFilter) (*model.GraphSnapshot, error)
}

// Builder produces graph payloads from a snapshot source. It holds no state
// of its own; concurrent Build calls need no coordination.
type Builder struct {
	source Source
}

// NewBuilder returns a Builder reading from the given source.
func NewBuilder(source Source) *Builder {
	return &Builder{source: source}
}

// nowFunc is swapped out in tests to pin overdue calculations.
var nowFunc = time.Now

// FilterError reports a filter parameter outside its recognized value set.
// The HTTP layer maps it to a 400 with the field name.
type FilterError struct {
	Field   string
	Message string
}

func (e *FilterError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidateFilter rejects status values outside the closed status set. Tag
// filter values are not validated here: a value matching no tag yields an
// empty payload rather than an error.
func ValidateFilter(filter model.GraphFilter) error {
	if filter.Status != "" && !filter.Status.IsValid() {
		return &FilterError{Field: "filter_status", Message: fmt.Sprintf("unknown status %q", filter.Status)}
	}
	return nil
}

// Build fetches the owner's filtered snapshot and assembles the payload.
// The output is deterministic for a fixed snapshot and filter.
func (b *Builder) Build(ctx context.Context, userID string, filter model.GraphFilter) (*model.GraphPayload, error) {
	if userID == "" {
		return nil, fmt.Errorf("graph: owner is required")
	}
	if err := ValidateFilter(filter); err != nil {
		return nil, err
	}

	snap, err := b.source.GraphSnapshot(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("graph: snapshot: %w", err)
	}

	return Assemble(snap), nil
}

// Assemble is the pure transformation from snapshot to payload: one node per
// task in snapshot order, one node per referenced tag in first-seen order,
// one edge per task-tag pair in traversal order.
func Assemble(snap *model.GraphSnapshot) *model.GraphPayload {
	var (
		taskNodes []*model.GraphNode
		edges     []*model.GraphEdge
		tagOrder  []*model.Tag
		tagCounts = make(map[string]int)
	)

	for _, task := range snap.Tasks {
		taskNodes = append(taskNodes, taskNode(task))

		for _, tag := range task.Tags {
			if _, seen := tagCounts[tag.ID]; !seen {
				tagOrder = append(tagOrder, tag)
			}
			tagCounts[tag.ID]++
			edges = append(edges, &model.GraphEdge{
				From:  taskNodeID(task.ID),
				To:    tagNodeID(tag.ID),
				Width: edgeWidthFor(task.Priority),
				Color: edgeColorFor(task.Priority),
			})
		}
	}

	nodes := taskNodes
	for _, tag := range tagOrder {
		nodes = append(nodes, tagNode(tag, tagCounts[tag.ID]))
	}
	if nodes == nil {
		nodes = []*model.GraphNode{}
	}
	if edges == nil {
		edges = []*model.GraphEdge{}
	}

	return &model.GraphPayload{
		Nodes: nodes,
		Edges: edges,
		Stats: &model.GraphStats{
			TotalTasks:    snap.TotalTasks,
			TotalTags:     snap.TotalTags,
			FilteredTasks: len(snap.Tasks),
			FilteredTags:  len(tagOrder),
		},
	}
}

func taskNodeID(id string) string { return "task-" + id }
func tagNodeID(id string) string  { return "tag-" + id }

func taskNode(task *model.Task) *model.GraphNode {
	color, ok := statusColors[task.Status]
	if !ok {
		color = statusColors[model.StatusTodo]
	}

	font := fontNormal
	overdue := task.IsOverdue(nowFunc())
	if overdue {
		font = fontOverdue
	}

	return &model.GraphNode{
		ID:          taskNodeID(task.ID),
		Label:       task.Title,
		Group:       string(task.Status),
		Shape:       "box",
		Color:       color,
		Title:       taskTooltip(task, overdue),
		BorderWidth: borderWidthFor(task.Priority),
		Font:        &model.NodeFont{Color: font},
	}
}

func tagNode(tag *model.Tag, taskCount int) *model.GraphNode {
	size := baseTagSize + taskCount*tagSizePerTask
	if size > maxTagSize {
		size = maxTagSize
	}
	return &model.GraphNode{
		ID:    tagNodeID(tag.ID),
		Label: tag.Name,
		Group: "tag",
		Shape: "ellipse",
		Color: model.NodeColor{
			Background: tag.Color,
			Border:     darkenHex(tag.Color),
		},
		Title: tagTooltip(taskCount),
		Size:  size,
	}
}

// taskTooltip builds the hover text: priority, due date with an overdue
// marker, and tag names, one part per line.
func taskTooltip(task *model.Task, overdue bool) string {
	parts := []string{"Priority: " + string(task.Priority)}

	if task.DueDate != nil {
		due := "Due: " + task.DueDate.Format("2006-01-02")
		if overdue {
			due += " ⚠ OVERDUE"
		}
		parts = append(parts, due)
	}

	if len(task.Tags) > 0 {
		names := make([]string, len(task.Tags))
		for i, tag := range task.Tags {
			names[i] = tag.Name
		}
		parts = append(parts, "Tags: "+strings.Join(names, ", "))
	}

	return strings.Join(parts, "\n")
}

func tagTooltip(taskCount int) string {
	if taskCount == 1 {
		return "1 task"
	}
	return strconv.Itoa(taskCount) + " tasks"
}

func borderWidthFor(p model.Priority) int {
	if w, ok := priorityWidth[p]; ok {
		return w
	}
	return priorityWidth[model.PriorityMedium]
}

func edgeWidthFor(p model.Priority) int {
	if w, ok := priorityWidth[p]; ok {
		return w
	}
	return priorityWidth[model.PriorityLow]
}

func edgeColorFor(p model.Priority) string {
	if c, ok := priorityEdgeColor[p]; ok {
		return c
	}
	return priorityEdgeColor[model.PriorityMedium]
}

// darkenHex returns a darker variant of a #RRGGBB color for node borders,
// subtracting 40 per channel and clamping at zero.
func darkenHex(hexColor string) string {
	raw := strings.TrimPrefix(hexColor, "#")
	if len(raw) != 6 {
		return hexColor
	}
	v, err := strconv.ParseUint(raw, 16, 32)
	if err != nil {
		return hexColor
	}
	r := darkenChannel(int(v >> 16 & 0xff))
	g := darkenChannel(int(v >> 8 & 0xff))
	bl := darkenChannel(int(v & 0xff))
	return fmt.Sprintf("#%02x%02x%02x", r, g, bl)
}

func darkenChannel(c int) int {
	c -= 40
	if c < 0 {
		return 0
	}
	return c
}
