package http

import (
	"fmt"
	"strings"
	"time"

	"budgetlens/internal/core"
)

// sanitizeInput drops control characters except tab and newlines, then trims.
func sanitizeInput(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

func dateOf(t time.Time) core.Date {
	return core.NewDate(t.Year(), int(t.Month()), t.Day())
}

// exportName is the download file name for a report export.
func exportName(q ReportParams, ext string) string {
	name := fmt.Sprintf("budget-%04d", q.Year)
	if q.Month != 0 {
		name += fmt.Sprintf("-%02d", q.Month)
	}
	if q.Category != "" {
		name += "-" + strings.Map(func(r rune) rune {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
				return r
			case r == ' ':
				return '_'
			}
			return -1
		}, q.Category)
	}
	return name + "." + ext
}
