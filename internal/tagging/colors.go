package tagging

import "strings"

// defaultTagColor is assigned when no category fragment matches.
const defaultTagColor = "#6b7280"

// tagColors maps category fragments to display colors. Order matters:
// the first fragment contained in the tag name wins.
var tagColors = []struct {
	category string
	color    string
}{
	{"food", "#f59e0b"},
	{"grocery", "#10b981"},
	{"shopping", "#8b5cf6"},
	{"transport", "#3b82f6"},
	{"health", "#ef4444"},
	{"entertainment", "#ec4899"},
	{"income", "#22c55e"},
	{"expense", "#dc2626"},
	{"utilities", "#6366f1"},
	{"subscription", "#a855f7"},
	{"travel", "#14b8a6"},
}

// ColorForTag picks a display color for a normalized tag name.
func ColorForTag(name string) string {
	for _, entry := range tagColors {
		if strings.Contains(name, entry.category) {
			return entry.color
		}
	}
	return defaultTagColor
}
