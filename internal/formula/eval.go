package formula

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sidm01890/reconciler/internal/domain"
	"github.com/sidm01890/reconciler/internal/logging"
)

var evalLog = logging.For("formula.evaluator")

// Warning is a non-fatal signal raised during evaluation (§7 "Parse /
// Validation" policy: log + warn, substitute 0, row still produced).
type Warning struct {
	Formula string
	Message string
}

// EvalResult is the outcome of evaluating one Formula against one row.
type EvalResult struct {
	Value    decimal.Decimal
	Warnings []Warning
}

// SourceRow resolves a field's value for substitution step 1 (§4.2).
// Missing or non-numeric fields substitute to 0.
type SourceRow map[string]any

// DerivedValues is the live map of previously computed formula
// results for the current row, keyed by lowercased logicNameKey
// (§4.2: "Derived fields are stored on the row keyed by the lowercased
// logicNameKey").
type DerivedValues map[string]decimal.Decimal

// Evaluate runs one formula against one row's source values and the
// row's live derived-field map (C8, §4.2 steps 1-5).
func Evaluate(f domain.Formula, row SourceRow, derived DerivedValues) EvalResult {
	var warnings []Warning

	substituted := f.FormulaText

	substituted = qualifiedRefPattern.ReplaceAllStringFunc(substituted, func(match string) string {
		sub := qualifiedRefPattern.FindStringSubmatch(match)
		field := sub[2]
		if isDerivedShape(field) {
			if d, ok := derived[strings.ToLower(field)]; ok {
				return d.String()
			}
		}
		v, ok := row[field]
		if !ok || v == nil {
			return "0"
		}
		d, ok := toDecimal(v)
		if !ok {
			return "0"
		}
		return d.String()
	})

	substituted, derivedWarnings := substituteDerivedRefs(f.LogicNameKey, substituted, derived)
	warnings = append(warnings, derivedWarnings...)

	if !safeExpressionPattern.MatchString(substituted) {
		w := Warning{
			Formula: f.LogicNameKey,
			Message: fmt.Sprintf("residual identifier after substitution: %q (from %q)", substituted, f.FormulaText),
		}
		evalLog.WithField("formula", f.LogicNameKey).Warn(w.Message)
		warnings = append(warnings, w)
		return EvalResult{Value: decimal.Zero, Warnings: warnings}
	}

	base, err := evalArithmetic(substituted)
	if err != nil {
		w := Warning{Formula: f.LogicNameKey, Message: err.Error()}
		evalLog.WithField("formula", f.LogicNameKey).Warn(w.Message)
		warnings = append(warnings, w)
		return EvalResult{Value: decimal.Zero, Warnings: warnings}
	}

	if len(f.Conditions) > 0 {
		value, matched := applyConditions(base, f.Conditions)
		if !matched {
			return EvalResult{Value: decimal.Zero, Warnings: warnings}
		}
		return EvalResult{Value: value, Warnings: warnings}
	}

	return EvalResult{Value: base, Warnings: warnings}
}

// substituteDerivedRefs replaces every derived-field identifier in
// text with the decimal string of its computed value, trying the
// uppercase form first then the lowercase form (§4.2 precedence note).
// Unresolved references substitute to 0 with a warning naming the
// formula that was supposed to produce them.
func substituteDerivedRefs(owningFormula, text string, derived DerivedValues) (string, []Warning) {
	var warnings []Warning

	refs := derivedRefPattern.FindAllString(text, -1)
	seen := make(map[string]bool, len(refs))
	for _, ref := range refs {
		key := strings.ToUpper(ref)
		if seen[key] {
			continue
		}
		seen[key] = true

		value, ok := derived[key]
		if !ok {
			value, ok = derived[strings.ToLower(key)]
		}
		pattern := wordBoundary(ref)
		if !ok {
			warnings = append(warnings, Warning{
				Formula: owningFormula,
				Message: fmt.Sprintf("unresolved derived reference %q; substituting 0", ref),
			})
			text = pattern.ReplaceAllString(text, "0")
			continue
		}
		text = pattern.ReplaceAllString(text, value.String())
	}

	return text, warnings
}

// ToDecimal converts a raw stored value (string, int, float, or an
// already-decimal value) to decimal.Decimal, for callers outside this
// package that need to seed a DerivedValues map from a previously
// persisted row (§4.3 step 4e).
func ToDecimal(v any) (decimal.Decimal, bool) {
	return toDecimal(v)
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case decimal.Decimal:
		return t, true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case int32:
		return decimal.NewFromInt32(t), true
	case int64:
		return decimal.NewFromInt(t), true
	case float32:
		return decimal.NewFromFloat32(t), true
	case float64:
		return decimal.NewFromFloat(t), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		return decimal.Zero, false
	}
}
