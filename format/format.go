// Package format renders download sizes and durations for display.
package format

import (
	"fmt"
	"math"
	"strconv"
)

var sizeUnits = []string{"B", "KB", "MB", "GB"}

// FileSize formats a byte count using 1024-based units with at most two
// decimals, e.g. 1536 -> "1.5 KB". Values beyond GB stay in GB.
func FileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 B"
	}

	value := float64(bytes)
	unit := 0
	for value >= 1024 && unit < len(sizeUnits)-1 {
		value /= 1024
		unit++
	}

	rounded := math.Round(value*100) / 100
	return strconv.FormatFloat(rounded, 'f', -1, 64) + " " + sizeUnits[unit]
}

// Duration formats milliseconds as "1h 2m", "2m 5s" or "45s".
// Zero or negative input renders as an empty string.
func Duration(ms int64) string {
	if ms <= 0 {
		return ""
	}

	hours := ms / 3600000
	minutes := (ms % 3600000) / 60000
	seconds := (ms % 60000) / 1000

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
