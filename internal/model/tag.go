package model

import (
	"regexp"
	"time"
)

// DefaultTagColor is assigned when a tag is created without an explicit color.
const DefaultTagColor = "#4ECDC4"

// TagPalette lists the preset colors offered for new tags. Stored colors are
// not limited to the palette; any #RRGGBB value passes validation.
var TagPalette = []string{
	"#FF6B6B", // red
	"#4ECDC4", // teal
	"#45B7D1", // blue
	"#FFA07A", // orange
	"#98D8C8", // mint
	"#F7DC6F", // yellow
	"#BB8FCE", // purple
	"#85C1E2", // sky
}

var hexColorRe = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ValidHexColor reports whether s is a #RRGGBB hex color.
func ValidHexColor(s string) bool {
	return hexColorRe.MatchString(s)
}

// Tag is a user-defined label for grouping tasks. Names are unique per owner,
// compared case-insensitively.
type Tag struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`

	// TaskCount is populated by list queries, not stored in the tags table.
	TaskCount int `json:"task_count,omitempty"`
}
