package model

// TaskTag represents one task-to-tag association row. Used by export and by
// bulk association reads; single add/remove operations work with ids directly.
type TaskTag struct {
	TaskID string `json:"task_id"`
	TagID  string `json:"tag_id"`
}
