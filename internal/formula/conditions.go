package formula

import (
	"regexp"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/sidm01890/reconciler/internal/domain"
)

var wordBoundaryCache sync.Map // string -> *regexp.Regexp

func wordBoundary(identifier string) *regexp.Regexp {
	if cached, ok := wordBoundaryCache.Load(identifier); ok {
		return cached.(*regexp.Regexp)
	}
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(identifier) + `\b`)
	wordBoundaryCache.Store(identifier, re)
	return re
}

// applyConditions evaluates a Formula's piecewise lookup table against
// the arithmetic base value and returns the first matching clause's
// formulaValue (§3, §4.2 step 5). It reports false when no clause
// matches, in which case the caller returns 0 (§3: "no match -> 0").
func applyConditions(base decimal.Decimal, conditions []domain.PiecewiseCondition) (decimal.Decimal, bool) {
	for _, c := range conditions {
		if matchesCondition(base, c) {
			v, err := decimal.NewFromString(strings.TrimSpace(c.FormulaValue))
			if err != nil {
				return decimal.Zero, true
			}
			return v, true
		}
	}
	return decimal.Zero, false
}

func matchesCondition(base decimal.Decimal, c domain.PiecewiseCondition) bool {
	v1, err1 := decimal.NewFromString(strings.TrimSpace(c.Value1))
	if err1 != nil {
		return false
	}

	switch c.ConditionType {
	case domain.CondEqual:
		return base.Equal(v1)
	case domain.CondGreaterThan:
		return base.GreaterThan(v1)
	case domain.CondLessThan:
		return base.LessThan(v1)
	case domain.CondGreaterEqual:
		return base.GreaterThanOrEqual(v1)
	case domain.CondLessEqual:
		return base.LessThanOrEqual(v1)
	case domain.CondBetween:
		v2, err2 := decimal.NewFromString(strings.TrimSpace(c.Value2))
		if err2 != nil {
			return false
		}
		return base.GreaterThanOrEqual(v1) && base.LessThanOrEqual(v2)
	default:
		return false
	}
}
