package formula

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseExtractsQualifiedReferences(t *testing.T) {
	require := require.New(t)
	parsed := Parse("orders.revenue - orders.refunds")
	require.Equal([]string{"orders"}, parsed.Collections)
	require.ElementsMatch([]string{"revenue", "refunds"}, parsed.FieldsByCollection["orders"])
	require.Empty(parsed.DerivedRefs)
}

func TestParseDoesNotMistakeDecimalLiteralForReference(t *testing.T) {
	require := require.New(t)
	parsed := Parse("orders.revenue * 0.05")
	require.Equal([]string{"orders"}, parsed.Collections)
	require.Equal([]string{"revenue"}, parsed.FieldsByCollection["orders"])
}

func TestParseExtractsDerivedReferences(t *testing.T) {
	require := require.New(t)
	parsed := Parse("NETTOTAL + TAXAMT")
	require.Empty(parsed.Collections)
	require.ElementsMatch([]string{"NETTOTAL", "TAXAMT"}, parsed.DerivedRefs)
}

func TestParseHandlesMultipleCollectionsInFirstOccurrenceOrder(t *testing.T) {
	require := require.New(t)
	parsed := Parse("payments.amount - orders.refunds + payments.fee")
	require.Equal([]string{"payments", "orders"}, parsed.Collections)
}

func TestParseTreatsUppercaseQualifiedFieldAsDerivedReference(t *testing.T) {
	require := require.New(t)
	parsed := Parse("orders.CALCTOTAL + 1")
	require.Empty(parsed.Collections)
	require.ElementsMatch([]string{"CALCTOTAL"}, parsed.DerivedRefs)
}
