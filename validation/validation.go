// Package validation collects field violations as code strings keyed by
// field name, e.g. {"email": "invalid_email"}.
package validation

import (
	"net/mail"
	"regexp"
	"strings"
	"time"
)

type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Add records code for field unless the field already has a violation.
func (v Violations) Add(field, code string) {
	if _, exists := v[field]; !exists {
		v[field] = code
	}
}

func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "required")
	}
}

func MinLength(field, value string, minLen int, v Violations) {
	if len([]rune(value)) < minLen {
		v.Add(field, "too_short")
	}
}

func MaxLength(field, value string, maxLen int, v Violations) {
	if len([]rune(value)) > maxLen {
		v.Add(field, "too_long")
	}
}

// Email checks a bare address (no display name).
func Email(field, value string, v Violations) {
	addr, err := mail.ParseAddress(value)
	if err != nil || addr.Address != value {
		v.Add(field, "invalid_email")
	}
}

var phoneRe = regexp.MustCompile(`^\+?[0-9 ()\-.]{6,20}$`)

func Phone(field, value string, v Violations) {
	if !phoneRe.MatchString(value) {
		v.Add(field, "invalid_phone")
	}
}

func PositiveInt(field string, val int, v Violations) {
	if val <= 0 {
		v.Add(field, "must_be_positive")
	}
}

func OneOf(field, value string, allowed []string, v Violations) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v.Add(field, "invalid_choice")
}

// TimeOfDay checks a 24h "HH:MM" value.
func TimeOfDay(field, value string, v Violations) {
	if _, err := time.Parse("15:04", value); err != nil || len(value) != 5 {
		v.Add(field, "invalid_time")
	}
}

func Future(field string, val, now time.Time, v Violations) {
	if val.IsZero() {
		v.Add(field, "required")
		return
	}
	if !val.After(now) {
		v.Add(field, "must_be_future")
	}
}

func RangeFloat(field string, val, minVal, maxVal float64, v Violations) {
	if val < minVal || val > maxVal {
		v.Add(field, "out_of_range")
	}
}
