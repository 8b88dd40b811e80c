package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Tag is a flat per-tenant label. Name is the normalized form and is
// unique per tenant, case-insensitively. UsageCount is always an exact
// count of active associations, recomputed rather than incremented.
type Tag struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Name        string
	DisplayName string
	Color       string
	UsageCount  int
	CreatedAt   time.Time
}

// NormalizeTagName lowercases and trims a tag name into its canonical
// stored form.
func NormalizeTagName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// TagDisplayName derives the human-readable form of a normalized tag name:
// hyphens become spaces and each word is capitalized, so "small-purchase"
// displays as "Small Purchase".
func TagDisplayName(normalized string) string {
	words := strings.Split(strings.ReplaceAll(normalized, "-", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
