package formula

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sidm01890/reconciler/internal/domain"
)

func TestEvaluateSubstitutesQualifiedReferences(t *testing.T) {
	require := require.New(t)
	f := domain.Formula{LogicNameKey: "NET", FormulaText: "orders.revenue - orders.refunds"}
	row := SourceRow{"revenue": 100, "refunds": 15}
	res := Evaluate(f, row, DerivedValues{})
	require.True(res.Value.Equal(decimal.NewFromInt(85)))
	require.Empty(res.Warnings)
}

func TestEvaluateMissingSourceFieldSubstitutesZero(t *testing.T) {
	require := require.New(t)
	f := domain.Formula{LogicNameKey: "NET", FormulaText: "orders.revenue - orders.missing"}
	row := SourceRow{"revenue": 100}
	res := Evaluate(f, row, DerivedValues{})
	require.True(res.Value.Equal(decimal.NewFromInt(100)))
}

func TestEvaluateUsesDerivedValues(t *testing.T) {
	require := require.New(t)
	f := domain.Formula{LogicNameKey: "TOT", FormulaText: "SUB + 10"}
	derived := DerivedValues{"sub": decimal.NewFromInt(5)}
	res := Evaluate(f, SourceRow{}, derived)
	require.True(res.Value.Equal(decimal.NewFromInt(15)))
	require.Empty(res.Warnings)
}

func TestEvaluateUnresolvedDerivedReferenceWarnsAndSubstitutesZero(t *testing.T) {
	require := require.New(t)
	f := domain.Formula{LogicNameKey: "TOT", FormulaText: "MISSINGVAL + 10"}
	res := Evaluate(f, SourceRow{}, DerivedValues{})
	require.True(res.Value.Equal(decimal.NewFromInt(10)))
	require.Len(res.Warnings, 1)
}

func TestEvaluateDivisionByZeroWarnsAndReturnsZero(t *testing.T) {
	require := require.New(t)
	f := domain.Formula{LogicNameKey: "RATIO", FormulaText: "orders.amount / orders.qty"}
	row := SourceRow{"amount": 10, "qty": 0}
	res := Evaluate(f, row, DerivedValues{})
	require.True(res.Value.IsZero())
	require.Len(res.Warnings, 1)
}

func TestEvaluateAppliesPiecewiseConditions(t *testing.T) {
	require := require.New(t)
	f := domain.Formula{
		LogicNameKey: "TIER",
		FormulaText:  "orders.amount",
		Conditions: []domain.PiecewiseCondition{
			{ConditionType: domain.CondGreaterThan, Value1: "100", FormulaValue: "1"},
			{ConditionType: domain.CondLessEqual, Value1: "100", FormulaValue: "0"},
		},
	}
	high := Evaluate(f, SourceRow{"amount": 150}, DerivedValues{})
	require.True(high.Value.Equal(decimal.NewFromInt(1)))

	low := Evaluate(f, SourceRow{"amount": 50}, DerivedValues{})
	require.True(low.Value.Equal(decimal.NewFromInt(0)))
}

func TestEvaluateDecimalPrecisionIsExact(t *testing.T) {
	require := require.New(t)
	f := domain.Formula{LogicNameKey: "SUM", FormulaText: "orders.a + orders.b"}
	row := SourceRow{"a": "0.1", "b": "0.2"}
	res := Evaluate(f, row, DerivedValues{})
	require.True(res.Value.Equal(decimal.NewFromFloat(0.3)))
	require.Equal("0.3", res.Value.String())
}
