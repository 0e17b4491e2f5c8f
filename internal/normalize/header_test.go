package normalize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderTrimsAndLowercases(t *testing.T) {
	require := require.New(t)
	require.Equal("order_total", Header("  Order Total  "))
	require.Equal("qty", Header("Qty"))
	require.Equal("ab", Header("A!@#B"))
}

func TestHeaderEmptyBecomesUnnamed(t *testing.T) {
	require := require.New(t)
	require.Equal("unnamed_column", Header("   "))
	require.Equal("unnamed_column", Header("!!!"))
}

func TestColumnsDedupesInOrder(t *testing.T) {
	require := require.New(t)
	got := Columns([]string{"Total", "total", "Total"})
	require.Equal([]string{"total", "total_1", "total_2"}, got)
}

func TestColumnsIsIdempotent(t *testing.T) {
	require := require.New(t)
	cols := []string{"Total", "total", "Qty", "QTY"}
	once := Columns(cols)
	twice := Columns(once)
	require.Equal(once, twice)
}
