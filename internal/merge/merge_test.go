package merge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sidm01890/reconciler/internal/domain"
	"github.com/sidm01890/reconciler/internal/store"
	"github.com/sidm01890/reconciler/internal/store/memstore"
)

func TestMergerMergesTwoCollectionsAndFlagsReason(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	st := memstore.New()

	orders := st.Collection(domain.ProcessedCollectionName("orders"))
	require.NoError(orders.InsertMany(ctx, []store.Row{
		{"unique_id": "O1", "order_id": "1", "amount": 100},
	}))
	payments := st.Collection(domain.ProcessedCollectionName("payments"))
	require.NoError(payments.InsertMany(ctx, []store.Row{
		{"unique_id": "P1", "order_id": "1", "paid": 90},
	}))

	doc := domain.FormulaDocument{
		ReportName: "recon1",
		Formulas: []domain.Formula{
			{LogicNameKey: "ORDERAMT", FormulaText: "orders.amount"},
			{LogicNameKey: "PAIDAMT", FormulaText: "payments.paid"},
		},
		MappingKeys: domain.MappingKeys{
			{Collection: "orders", Fields: []string{"order_id"}},
			{Collection: "payments", Fields: []string{"order_id"}},
		},
		DeltaColumns: []domain.DeltaColumn{
			{DeltaColumnName: "diff", Value: "orderamt - paidamt"},
		},
		Reasons: []domain.Reason{
			{Reason: "large diff", DeltaColumn: "diff", Threshold: 5},
		},
	}

	m := &Merger{Store: st}
	summary, err := m.Run(ctx, doc)
	require.NoError(err)
	require.Equal("orders", summary.PrimaryCollection)
	require.Equal(int64(2), summary.RowsMerged)
	require.Equal(int64(1), summary.RowsEvaluated)

	report := st.Collection(domain.ReportCollectionName("recon1"))
	n, err := report.CountDocuments(ctx, store.Filter{})
	require.NoError(err)
	require.Equal(int64(1), n)

	row, found, err := report.FindOne(ctx, store.Filter{"orders_mapping_key": "1"})
	require.NoError(err)
	require.True(found)
	require.Equal("100", row["orderamt"])
	require.Equal("90", row["paidamt"])
	require.Equal("10", row["diff"])
	require.Equal("large diff", row["reason"])
	require.Equal(string(domain.Unreconciled), row["reconciliation_status"])
}

func TestMergerProducesReconciledWhenNoReasonFires(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	st := memstore.New()

	orders := st.Collection(domain.ProcessedCollectionName("orders"))
	require.NoError(orders.InsertMany(ctx, []store.Row{
		{"unique_id": "O1", "order_id": "1", "amount": 100},
	}))

	doc := domain.FormulaDocument{
		ReportName: "recon2",
		Formulas: []domain.Formula{
			{LogicNameKey: "ORDERAMT", FormulaText: "orders.amount"},
		},
		MappingKeys: domain.MappingKeys{
			{Collection: "orders", Fields: []string{"order_id"}},
		},
		Reasons: []domain.Reason{
			{Reason: "should not fire", DeltaColumn: "orderamt", Threshold: 1000},
		},
	}

	m := &Merger{Store: st}
	_, err := m.Run(ctx, doc)
	require.NoError(err)

	report := st.Collection(domain.ReportCollectionName("recon2"))
	row, found, err := report.FindOne(ctx, store.Filter{"orders_mapping_key": "1"})
	require.NoError(err)
	require.True(found)
	require.Equal("", row["reason"])
	require.Equal(string(domain.Reconciled), row["reconciliation_status"])
}
