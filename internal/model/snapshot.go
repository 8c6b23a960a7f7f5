package model

// GraphSnapshot is the single logical read backing one graph build: the
// owner's surviving tasks with tags attached, plus the owner's unfiltered
// totals. Tasks carry their full tag lists even when a tag filter narrowed
// the task set.
type GraphSnapshot struct {
	Tasks      []*Task `json:"tasks"`
	TotalTasks int     `json:"total_tasks"`
	TotalTags  int     `json:"total_tags"`
}

// UserStats summarizes one owner's records for the stats endpoint.
type UserStats struct {
	TotalTasks int `json:"total_tasks"`
	Todo       int `json:"todo"`
	InProgress int `json:"in_progress"`
	Done       int `json:"done"`
	Overdue    int `json:"overdue"`
	TotalTags  int `json:"total_tags"`
}
