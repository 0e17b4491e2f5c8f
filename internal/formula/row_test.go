package formula

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/sidm01890/reconciler/internal/domain"
)

func TestEvaluateRowChainsDerivedValues(t *testing.T) {
	require := require.New(t)
	formulas := []domain.Formula{
		{LogicNameKey: "SUB", FormulaText: "orders.amount * 2"},
		{LogicNameKey: "TOT", FormulaText: "SUB + 1"},
	}
	sorted := SortByDependencies(formulas)
	result := EvaluateRow(sorted, SourceRow{"amount": 10}, DerivedValues{})

	require.True(result.Derived["sub"].Equal(decimal.NewFromInt(20)))
	require.True(result.Derived["tot"].Equal(decimal.NewFromInt(21)))
	require.Empty(result.Warnings)
}

func TestEvaluateRowSeedsFromExistingDerivedValues(t *testing.T) {
	require := require.New(t)
	formulas := []domain.Formula{
		{LogicNameKey: "TOT", FormulaText: "SUB + 1"},
	}
	seed := DerivedValues{"sub": decimal.NewFromInt(4)}
	result := EvaluateRow(formulas, SourceRow{}, seed)
	require.True(result.Derived["tot"].Equal(decimal.NewFromInt(5)))
}

func TestValueOrZeroIsCaseInsensitive(t *testing.T) {
	require := require.New(t)
	derived := DerivedValues{"nettotal": decimal.NewFromInt(7)}
	require.True(ValueOrZero(derived, "NETTOTAL").Equal(decimal.NewFromInt(7)))
	require.True(ValueOrZero(derived, "missing").IsZero())
}

func TestEvaluateRowEnrichesUnresolvedWarningWithSuggestion(t *testing.T) {
	require := require.New(t)
	formulas := []domain.Formula{
		{LogicNameKey: "NETTOTAL", FormulaText: "orders.amount"},
		{LogicNameKey: "TOTAL", FormulaText: "NETOTAL + 1"},
	}
	sorted := SortByDependencies(formulas)
	result := EvaluateRow(sorted, SourceRow{"amount": 10}, DerivedValues{})
	require.NotEmpty(result.Warnings)
	require.Contains(result.Warnings[0].Message, "NETTOTAL")
}
