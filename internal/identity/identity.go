// Package identity computes the row-identity primitives of C4
// (SPEC_FULL.md §2): unique_id and mapping_key.
package identity

import (
	"fmt"
	"strings"
)

// BuildUniqueID joins the row's values at the given field names with
// "_" (§4.1). It returns ("", false) when fields is empty or any
// component is missing / empty after trimming — unique_id is then
// null, per §3 ProcessedRow invariant and §8 property 3.
func BuildUniqueID(row map[string]any, fields []string) (string, bool) {
	if len(fields) == 0 {
		return "", false
	}

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		v, ok := row[f]
		if !ok || v == nil {
			return "", false
		}
		s := stringify(v)
		s = strings.TrimSpace(s)
		if s == "" {
			return "", false
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, "_"), true
}

// BuildMappingKey computes a source's composite mapping key (§4.1).
// It is built identically to BuildUniqueID from keyFields; when
// keyFields is empty it falls back to uniqueID, then to docID
// stringified, else reports false (the row is skipped with a warning
// by the caller). docID is threaded explicitly by the caller rather
// than read off row["_id"], per Open Question decision 1 in
// SPEC_FULL.md §4: mapping_key may consult the system identifier,
// but only through this explicit parameter.
func BuildMappingKey(row map[string]any, keyFields []string, uniqueID string, hasUniqueID bool, docID any) (string, bool) {
	if len(keyFields) > 0 {
		return BuildUniqueID(row, keyFields)
	}
	if hasUniqueID && uniqueID != "" {
		return uniqueID, true
	}
	if docID != nil {
		s := strings.TrimSpace(stringify(docID))
		if s != "" {
			return s, true
		}
	}
	return "", false
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprintf("%v", t)
	}
}
