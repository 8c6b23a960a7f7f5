package model

// NodeColor is the background/border pair for a graph node.
type NodeColor struct {
	Background string `json:"background"`
	Border     string `json:"border"`
}

// NodeFont carries label text styling for a graph node.
type NodeFont struct {
	Color string `json:"color"`
}

// GraphNode is one renderable vertex in the task-tag graph. Task nodes carry
// BorderWidth and Font; tag nodes carry Size. Ids are prefixed by kind
// ("task-", "tag-") so the two kinds can never collide.
type GraphNode struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	Group       string    `json:"group"`
	Shape       string    `json:"shape"`
	Color       NodeColor `json:"color"`
	Title       string    `json:"title"`
	BorderWidth int       `json:"borderWidth,omitempty"`
	Font        *NodeFont `json:"font,omitempty"`
	Size        int       `json:"size,omitempty"`
}

// GraphEdge links a task node to one of its tag nodes. Width and color
// reflect the task's priority.
type GraphEdge struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Width int    `json:"width"`
	Color string `json:"color"`
}

// GraphStats holds aggregate counts for a graph payload. Totals are the
// owner's unfiltered counts; filtered counts reflect what the payload holds.
type GraphStats struct {
	TotalTasks    int `json:"total_tasks"`
	TotalTags     int `json:"total_tags"`
	FilteredTasks int `json:"filtered_tasks"`
	FilteredTags  int `json:"filtered_tags"`
}

// GraphPayload is the response for the graph data endpoint: task nodes in
// store order, then tag nodes in first-referenced order, then edges in
// task-then-tag order.
type GraphPayload struct {
	Nodes []*GraphNode `json:"nodes"`
	Edges []*GraphEdge `json:"edges"`
	Stats *GraphStats  `json:"stats"`
}
