package exporter

import (
	"fmt"
	"strconv"
)

// formatFloat formats a float64 value for text output with exactly 2 decimal places
func formatFloat(f float64) string {
	return fmt.Sprintf("%.2f", f)
}

// formatInt formats an int64 value for text output
func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

// formatBool formats a boolean value for text output
func formatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
