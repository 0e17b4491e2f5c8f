package merge

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sidm01890/reconciler/internal/domain"
	"github.com/sidm01890/reconciler/internal/store"
)

func TestBuildFilterMapsEveryOperator(t *testing.T) {
	require := require.New(t)

	conditions := []domain.FieldCondition{
		{Column: "status", Operator: domain.OpEq, Value: "ok"},
		{Column: "not_status", Operator: domain.OpNe, Value: "bad"},
		{Column: "min_amount", Operator: domain.OpGt, Value: 10},
		{Column: "max_amount", Operator: domain.OpLt, Value: 100},
		{Column: "min_amount_incl", Operator: domain.OpGe, Value: 10},
		{Column: "max_amount_incl", Operator: domain.OpLe, Value: 100},
		{Column: "region_in", Operator: domain.OpIn, Value: []string{"us", "eu"}},
		{Column: "region_nin", Operator: domain.OpNin, Value: []string{"cn"}},
	}

	filter, errs := BuildFilter(conditions)
	require.Empty(errs)
	require.Equal("ok", filter["status"])
	require.Equal(store.Filter{"$ne": "bad"}, filter["not_status"].(store.Filter))
	require.Equal(store.Filter{"$gt": 10}, filter["min_amount"].(store.Filter))
	require.Equal(store.Filter{"$lt": 100}, filter["max_amount"].(store.Filter))
	require.Equal(store.Filter{"$gte": 10}, filter["min_amount_incl"].(store.Filter))
	require.Equal(store.Filter{"$lte": 100}, filter["max_amount_incl"].(store.Filter))
	require.Equal(store.Filter{"$in": []string{"us", "eu"}}, filter["region_in"].(store.Filter))
	require.Equal(store.Filter{"$nin": []string{"cn"}}, filter["region_nin"].(store.Filter))
}

func TestBuildFilterCollectsUnsupportedOperatorWithoutAborting(t *testing.T) {
	require := require.New(t)

	conditions := []domain.FieldCondition{
		{Column: "status", Operator: domain.OpEq, Value: "ok"},
		{Column: "weird", Operator: domain.ConditionOperator("regex"), Value: "^a"},
	}

	filter, errs := BuildFilter(conditions)
	require.Len(errs, 1)
	require.Equal("ok", filter["status"])
	require.NotContains(filter, "weird")
}
