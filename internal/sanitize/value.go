// Package sanitize implements per-field value cleaning (C2 of
// SPEC_FULL.md §2): null-sentinel collapsing, date detection with a
// multi-format parser, and whitespace trimming (§4.1).
package sanitize

import (
	"strings"
	"time"
)

// dateFieldTokens are matched case-insensitively as substrings of a
// field name to decide whether date parsing should be attempted (§4.1).
var dateFieldTokens = []string{
	"date", "time", "timestamp", "created", "updated", "modified",
	"dob", "birth", "expiry", "expires", "valid", "start", "end",
}

// nullSentinels are string values that collapse to nil regardless of
// casing or surrounding whitespace (§4.1, §8 property 2).
var nullSentinels = map[string]struct{}{
	"none": {},
	"null": {},
	"nan":  {},
}

// dateLayouts lists the formats tried, in order, for a field whose name
// matches a date token (§4.1). Layouts are Go reference-time strings.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.000000",
	"02/01/2006",
	"02-01-2006",
	"01/02/2006",
	"01-02-2006",
	"02/01/2006 15:04:05",
	"02-01-2006 15:04:05",
	"01/02/2006 15:04:05",
	"01-02-2006 15:04:05",
	"2006/01/02",
	"2006/01/02, 15:04:05",
	"02 Jan 2006",
	"02 January 2006",
	"Jan 02, 2006",
	"January 02, 2006",
	"20060102",
	"02.01.2006",
	"2006.01.02",
}

// Value sanitizes a single field's value per §4.1. fieldName must
// already be normalized (see package normalize) since the date-token
// match is a case-insensitive substring check on it.
func Value(fieldName string, v any) any {
	if v == nil {
		return nil
	}

	s, isString := v.(string)
	if isString {
		trimmed := strings.TrimSpace(s)
		if trimmed == "" {
			return nil
		}
		if _, sentinel := nullSentinels[strings.ToLower(trimmed)]; sentinel {
			return nil
		}
		if looksLikeDateField(fieldName) {
			if t, ok := ParseDate(trimmed); ok {
				return t
			}
		}
		return trimmed
	}

	return v
}

func looksLikeDateField(fieldName string) bool {
	lower := strings.ToLower(fieldName)
	for _, tok := range dateFieldTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// ParseDate tries the ordered format table of §4.1, then falls back to
// RFC3339 with a trailing "Z" normalized to "+00:00". It reports
// whether parsing succeeded; on failure the caller keeps the original
// string value.
func ParseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	iso := s
	if strings.HasSuffix(iso, "Z") {
		iso = strings.TrimSuffix(iso, "Z") + "+00:00"
	}
	if t, err := time.Parse(time.RFC3339, iso); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02T15:04:05.999999-07:00", iso); err == nil {
		return t, true
	}

	return time.Time{}, false
}
