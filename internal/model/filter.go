package model

import "time"

// TaskFilter holds criteria for querying tasks.
type TaskFilter struct {
	Status    []Status   `json:"status,omitempty"`
	Priority  []Priority `json:"priority,omitempty"`
	Tag       string     `json:"tag,omitempty"`    // tag id or name (case-insensitive)
	Search    string     `json:"search,omitempty"` // substring match on title/description
	DueBefore *time.Time `json:"due_before,omitempty"`
	Overdue   bool       `json:"overdue,omitempty"`
	Sort      string     `json:"sort,omitempty"` // e.g. "-due_date", "created_at"; prefix "-" = descending
	Limit     int        `json:"limit,omitempty"`
	Offset    int        `json:"offset,omitempty"`
}

// GraphFilter narrows which tasks contribute to the graph payload. Both
// fields are optional and combine with AND when set.
type GraphFilter struct {
	Tag    string `json:"tag,omitempty"`    // tag id or name (case-insensitive)
	Status Status `json:"status,omitempty"` // exact status match
}

// IsZero reports whether no filter criteria are set.
func (f GraphFilter) IsZero() bool {
	return f.Tag == "" && f.Status == ""
}
