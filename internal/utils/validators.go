package utils

import (
	"strconv"
	"strings"

	"github.com/justogm/user-gaze-track/internal/models"
)

// ParseSubjectID reads the id query parameter the way the research server's
// own pages do: leading whitespace and an optional sign, then the longest run
// of decimal digits. Trailing text is ignored, so "12x" and "1.5" yield 12 and 1.
// Only input with no leading digits (or one that overflows int) is invalid.
func ParseSubjectID(raw string) models.SubjectID {
	s := strings.TrimLeft(raw, " \t\n\r\f\v")
	sign := ""
	if s != "" && (s[0] == '+' || s[0] == '-') {
		sign, s = s[:1], s[1:]
	}
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return models.SubjectID{}
	}
	v, err := strconv.ParseInt(sign+s[:end], 10, 0)
	if err != nil {
		return models.SubjectID{}
	}
	return models.NewSubjectID(int(v))
}

// IsValidPointID checks that a calibration point id is safe to echo back into the page.
func IsValidPointID(id string) bool {
	if id == "" || len(id) > 32 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
