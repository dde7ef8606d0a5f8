package domain

import "time"

type Diagnostic struct {
	ID             uint
	UserID         string
	RawReport      string
	CriticalCount  int
	WarningCount   int
	Recommendation Tier
	CreatedAt      time.Time
}

// SystemInfo is the optional hardware section of an uploaded report. Values
// are kept as raw JSON scalars rendered to text, since the collection tool
// emits numbers for some fields and strings for others.
type SystemInfo struct {
	CPU     string
	GPU     string
	RAM     string
	Network string
}

func (s SystemInfo) Empty() bool {
	return s.CPU == "" && s.GPU == "" && s.RAM == "" && s.Network == ""
}

type Report struct {
	System   SystemInfo
	Critical []string
	Warnings []string
}
