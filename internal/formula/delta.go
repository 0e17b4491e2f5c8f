package formula

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

// identifierPattern matches any bare identifier, used by
// EvaluateDeltaExpression to substitute every name against the
// derived-field map regardless of case or the 3-character derived-ref
// shape required elsewhere (§4.4: delta columns reference
// already-computed report columns by their own names).
var identifierPattern = regexp.MustCompile(`[A-Za-z_]\w*`)

// EvaluateDeltaExpression evaluates a post-merge delta-column
// expression (§4.4 step 2); reason thresholds are plain numbers and do
// not pass through it. Every identifier is
// looked up case-insensitively against the row's derived-field map and
// replaced with its decimal value. Qualified "coll.field" references
// are rejected outright — by the time the Delta & Reason pass runs,
// every source collection has already been merged into one report row,
// so there is no collection left to qualify against (§4.4).
func EvaluateDeltaExpression(text string, derived DerivedValues) (decimal.Decimal, error) {
	if qualifiedRefPattern.MatchString(text) {
		return decimal.Zero, fmt.Errorf("delta expression %q may not reference a source collection field", text)
	}

	substituted := identifierPattern.ReplaceAllStringFunc(text, func(ident string) string {
		return ValueOrZero(derived, ident).String()
	})

	if !safeExpressionPattern.MatchString(substituted) {
		return decimal.Zero, fmt.Errorf("residual identifier in delta expression %q (substituted: %q)", text, substituted)
	}

	return evalArithmetic(substituted)
}
