package memstore

import (
	"fmt"
	"reflect"

	"github.com/sidm01890/reconciler/internal/store"
)

// matches evaluates a MongoDB-style filter document against a row.
// Supported shapes: {field: value} (implicit $eq), {field: {$op: value}}
// for op in eq/ne/gt/lt/gte/lte/in/nin, and {"$or": [filter, ...]}.
func matches(row store.Row, filter store.Filter) bool {
	for key, want := range filter {
		if key == "$or" {
			clauses, ok := want.([]store.Filter)
			if !ok {
				continue
			}
			matched := false
			for _, clause := range clauses {
				if matches(row, clause) {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
			continue
		}

		got := row[key]
		if !matchValue(got, want) {
			return false
		}
	}
	return true
}

func matchValue(got, want any) bool {
	ops, isOps := want.(store.Filter)
	if !isOps {
		return compare(got, want) == 0
	}

	for op, v := range ops {
		switch op {
		case "$eq":
			if compare(got, v) != 0 {
				return false
			}
		case "$ne":
			if compare(got, v) == 0 {
				return false
			}
		case "$gt":
			if compare(got, v) <= 0 {
				return false
			}
		case "$gte":
			if compare(got, v) < 0 {
				return false
			}
		case "$lt":
			if compare(got, v) >= 0 {
				return false
			}
		case "$lte":
			if compare(got, v) > 0 {
				return false
			}
		case "$in":
			if !inSlice(got, v) {
				return false
			}
		case "$nin":
			if inSlice(got, v) {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// inSlice reports whether got equals any element of set. set may be
// any slice type (§3 Value is loosely typed; callers build $in lists
// as []string, []int, or []any depending on where they originate), not
// just []any.
func inSlice(got, set any) bool {
	v := reflect.ValueOf(set)
	if v.Kind() != reflect.Slice {
		return false
	}
	for i := 0; i < v.Len(); i++ {
		if compare(got, v.Index(i).Interface()) == 0 {
			return true
		}
	}
	return false
}

// compare orders two dynamically typed values. It handles the numeric
// and string/time comparisons the condition and query-filter engines
// need; incomparable types order by their fmt representation so the
// function never panics.
func compare(a, b any) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}

	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}

	as, bs := fmt.Sprintf("%v", a), fmt.Sprintf("%v", b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}
