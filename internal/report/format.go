package report

import (
	"fmt"
	"math"
	"strings"
)

// FormatInt formats an integer with comma separators.
func FormatInt(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := fmt.Sprintf("%d", n)
	if len(s) > 3 {
		var b strings.Builder
		start := len(s) % 3
		if start > 0 {
			b.WriteString(s[:start])
		}
		for i := start; i < len(s); i += 3 {
			if b.Len() > 0 {
				b.WriteByte(',')
			}
			b.WriteString(s[i : i+3])
		}
		s = b.String()
	}
	if neg {
		return "-" + s
	}
	return s
}

// FormatAmount formats a money amount with B/M/K suffixes.
func FormatAmount(v float64) string {
	a := math.Abs(v)
	switch {
	case a >= 1e9:
		return fmt.Sprintf("%.1fB", v/1e9)
	case a >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case a >= 1e3:
		return fmt.Sprintf("%.1fK", v/1e3)
	default:
		return fmt.Sprintf("%.0f", v)
	}
}

// FormatPrice formats a price with two decimals, or "-" for zero.
func FormatPrice(p float64) string {
	if p == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f", p)
}

// FormatPct formats a percentage that is already scaled by 100 as
// "+X.XX%" or "-X.XX%".
func FormatPct(p float64) string {
	if p >= 0 {
		return fmt.Sprintf("+%.2f%%", p)
	}
	return fmt.Sprintf("%.2f%%", p)
}
