package formula

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sidm01890/reconciler/internal/domain"
)

// RowResult is the outcome of evaluating every formula in dependency
// order against a single row (C8, §4.2).
type RowResult struct {
	Derived  DerivedValues
	Warnings []Warning
}

// EvaluateRow runs sortedFormulas (already ordered by
// SortByDependencies) against row in sequence, feeding each result
// into the live derived-field map before the next formula runs
// (§4.2: "Per-row substitution ... with a live derived-field map").
// seed carries any derived values already present on the row (§4.3
// step 4e: merge seeds the map with the existing report row's
// attributes).
func EvaluateRow(sortedFormulas []domain.Formula, row SourceRow, seed DerivedValues) RowResult {
	derived := make(DerivedValues, len(seed)+len(sortedFormulas))
	for k, v := range seed {
		derived[k] = v
	}

	allKeys := make([]string, 0, len(sortedFormulas))
	for _, f := range sortedFormulas {
		if f.LogicNameKey != "" {
			allKeys = append(allKeys, f.LogicNameKey)
		}
	}

	var warnings []Warning
	for _, f := range sortedFormulas {
		res := Evaluate(f, row, derived)
		for _, w := range res.Warnings {
			warnings = append(warnings, enrichUnresolved(w, allKeys))
		}
		if f.LogicNameKey == "" {
			continue
		}
		derived[lowerKey(f.LogicNameKey)] = res.Value
	}

	return RowResult{Derived: derived, Warnings: warnings}
}

func enrichUnresolved(w Warning, knownKeys []string) Warning {
	const marker = "unresolved derived reference "
	if len(w.Message) <= len(marker) || w.Message[:len(marker)] != marker {
		return w
	}

	rest := w.Message[len(marker):]
	if len(rest) < 2 || rest[0] != '"' {
		return w
	}
	closing := strings.IndexByte(rest[1:], '"')
	if closing < 0 {
		return w
	}
	brokenRef := rest[1 : 1+closing]

	if suggestion := ClosestName(knownKeys, brokenRef); suggestion != "" && !strings.EqualFold(suggestion, brokenRef) {
		w.Message = fmt.Sprintf("%s (closest known formula: %q)", w.Message, suggestion)
	}
	return w
}

func lowerKey(s string) string {
	return strings.ToLower(s)
}

// ValueOrZero reads a derived value by case-insensitive name, per the
// Delta & Reason pass's "case-insensitive name lookup" (§4.4 step 2/3).
func ValueOrZero(derived DerivedValues, name string) decimal.Decimal {
	if v, ok := derived[lowerKey(name)]; ok {
		return v
	}
	return decimal.Zero
}
