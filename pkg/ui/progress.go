package ui

import (
	"fmt"
	"strings"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
)

// QuotaBar renders done/quota as a fixed-width bar. Overshoot is clamped.
func QuotaBar(done, quota, width int) string {
	if width <= 0 {
		width = 20
	}
	filled := 0
	if quota > 0 {
		filled = done * width / quota
	}
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	bar := strings.Repeat(ProgressBar, filled) + strings.Repeat(ProgressEmpty, width-filled)
	return fmt.Sprintf("[%s] %d/%d", bar, done, quota)
}
