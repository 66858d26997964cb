package tui

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/naveenspark/carpolicy/pkg/domain"
)

// formatExpiry renders how long until t, relative to now.
func formatExpiry(t, now time.Time) string {
	d := t.Sub(now)
	switch {
	case d <= 0:
		return "expired"
	case d < time.Minute:
		return "in under a minute"
	case d < time.Hour:
		return fmt.Sprintf("in %dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("in %dh", int(d.Hours()))
	default:
		return fmt.Sprintf("in %dd", int(d.Hours()/24))
	}
}

// truncStr truncates a string to maxLen runes, appending an ellipsis if needed.
func truncStr(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen-1]) + "…"
}

// padRight truncates or pads s to exactly width runes.
func padRight(s string, width int) string {
	s = truncStr(s, width)
	if n := utf8.RuneCountInString(s); n < width {
		s += strings.Repeat(" ", width-n)
	}
	return s
}

// price formats an amount in pounds.
func price(v float64) string {
	return fmt.Sprintf("£%.2f", v)
}

// matchesPolicy reports whether the policy's number, registration, make or
// model contains query, ignoring case.
func matchesPolicy(p domain.PolicyWithExtras, query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	for _, field := range []string{p.Policy.PolicyNumber, p.Policy.VRN, p.Policy.Make, p.Policy.Model} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// clampCursor keeps cursor within [0, n).
func clampCursor(cursor, n int) int {
	if cursor >= n {
		cursor = n - 1
	}
	if cursor < 0 {
		cursor = 0
	}
	return cursor
}
