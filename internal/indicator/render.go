// Package indicator turns the time remaining until the next event into the
// short badge text and the long countdown shown on display surfaces.
package indicator

import (
	"fmt"
	"time"
)

// MaxShortWidth is the display budget of RenderShort in runes.
const MaxShortWidth = 4

// RenderShort formats remaining into at most MaxShortWidth characters:
//
//	< 1h    "0:MM"
//	1h-9h   "H:MM"
//	>= 10h  "NNh" (minutes dropped to keep the width)
//
// Zero or negative durations render as "", which callers treat as no data.
func RenderShort(remaining time.Duration) string {
	if remaining <= 0 {
		return ""
	}
	hours := int(remaining / time.Hour)
	minutes := int((remaining % time.Hour) / time.Minute)

	if hours >= 10 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%d:%02d", hours, minutes)
}

// RenderLong formats remaining as zero-padded HH:MM:SS, clamped at zero.
func RenderLong(remaining time.Duration) string {
	if remaining <= 0 {
		return "00:00:00"
	}
	total := int(remaining / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
