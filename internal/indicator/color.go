package indicator

import (
	"time"

	colorful "github.com/lucasb-eyer/go-colorful"
)

const (
	ColorCalm   = "#2e7d32"
	ColorUrgent = "#c62828"

	// urgencyWindow is how long before an event the accent starts shifting.
	urgencyWindow = time.Hour
)

var (
	calm, _   = colorful.Hex(ColorCalm)
	urgent, _ = colorful.Hex(ColorUrgent)
)

// AccentColor returns the badge colour for remaining: calm green outside the
// final hour, then blended in HCL toward red as the event approaches.
func AccentColor(remaining time.Duration) string {
	if remaining >= urgencyWindow {
		return ColorCalm
	}
	if remaining <= 0 {
		return ColorUrgent
	}
	t := 1 - float64(remaining)/float64(urgencyWindow)
	return calm.BlendHcl(urgent, t).Clamped().Hex()
}
