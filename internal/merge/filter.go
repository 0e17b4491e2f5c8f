// Package merge implements the report merger (C9) and delta/reason
// pass (C10) of SPEC_FULL.md §2, per §4.3 and §4.4.
package merge

import (
	"github.com/sidm01890/reconciler/internal/domain"
	"github.com/sidm01890/reconciler/internal/errs"
	"github.com/sidm01890/reconciler/internal/store"
)

// BuildFilter translates a FormulaDocument's per-source conditions
// list into a MongoDB-style query filter (§4.3 step 4a). Unsupported
// operators are dropped with an error collected by the caller (§7
// "Parse / Validation" policy); the remaining supported predicates
// still apply.
func BuildFilter(conditions []domain.FieldCondition) (store.Filter, []error) {
	filter := store.Filter{}
	var errors []error

	for _, c := range conditions {
		switch c.Operator {
		case domain.OpEq:
			filter[c.Column] = c.Value
		case domain.OpNe:
			filter[c.Column] = store.Filter{"$ne": c.Value}
		case domain.OpGt:
			filter[c.Column] = store.Filter{"$gt": c.Value}
		case domain.OpLt:
			filter[c.Column] = store.Filter{"$lt": c.Value}
		case domain.OpGe:
			filter[c.Column] = store.Filter{"$gte": c.Value}
		case domain.OpLe:
			filter[c.Column] = store.Filter{"$lte": c.Value}
		case domain.OpIn:
			filter[c.Column] = store.Filter{"$in": c.Value}
		case domain.OpNin:
			filter[c.Column] = store.Filter{"$nin": c.Value}
		default:
			errors = append(errors, errs.ErrUnsupportedConditionOperator.New(string(c.Operator)))
		}
	}

	return filter, errors
}
