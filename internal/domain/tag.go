package domain

import (
	"strings"
	"time"
)

type Tag struct {
	Name       string
	Content    string
	CreatedBy  string
	UsageCount int
	CreatedAt  time.Time
}

// NormalizeTagName is the single place tag keys are derived; lookups and
// writes must both go through it.
func NormalizeTagName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
