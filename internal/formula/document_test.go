package formula

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sidm01890/reconciler/internal/domain"
)

func TestPrimaryCollectionFromFirstFormula(t *testing.T) {
	require := require.New(t)
	formulas := []domain.Formula{
		{LogicNameKey: "A1X", FormulaText: "payments.amount"},
		{LogicNameKey: "B2X", FormulaText: "orders.amount"},
	}
	parsed := ParseAll(formulas)
	primary := PrimaryCollection(parsed, nil)
	require.Equal("payments", primary)
}

func TestPrimaryCollectionFallsBackToFirstMappingKey(t *testing.T) {
	require := require.New(t)
	formulas := []domain.Formula{
		{LogicNameKey: "A1X", FormulaText: "NETTOTAL + 1"},
	}
	parsed := ParseAll(formulas)
	keys := domain.MappingKeys{
		{Collection: "orders", Fields: []string{"order_id"}},
		{Collection: "payments", Fields: []string{"payment_id"}},
	}
	primary := PrimaryCollection(parsed, keys)
	require.Equal("orders", primary)
}

func TestPartitionByPrimaryCollectionGroupsUnqualifiedFormulasToPrimary(t *testing.T) {
	require := require.New(t)
	formulas := []domain.Formula{
		{LogicNameKey: "A1X", FormulaText: "payments.amount"},
		{LogicNameKey: "B2X", FormulaText: "orders.amount"},
		{LogicNameKey: "C3X", FormulaText: "A1X + 1"},
	}
	parsed := ParseAll(formulas)
	primary := PrimaryCollection(parsed, nil)
	partitioned := PartitionByPrimaryCollection(parsed, primary)

	require.Len(partitioned["payments"], 2)
	require.Len(partitioned["orders"], 1)
}
