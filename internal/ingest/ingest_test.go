package ingest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sidm01890/reconciler/internal/domain"
	"github.com/sidm01890/reconciler/internal/store"
	"github.com/sidm01890/reconciler/internal/store/memstore"
)

type sliceSource struct {
	header []string
	rows   []map[string]any
	pos    int
}

func (s *sliceSource) Header() []string { return s.header }

func (s *sliceSource) Next(ctx context.Context) (map[string]any, bool, error) {
	if s.pos >= len(s.rows) {
		return nil, false, nil
	}
	row := s.rows[s.pos]
	s.pos++
	return row, true, nil
}

func TestIngestNormalizesHeaderAndWritesRows(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	st := memstore.New()

	src := &sliceSource{
		header: []string{"Order Total", "SKU"},
		rows: []map[string]any{
			{"Order Total": 10, "SKU": "A1"},
			{"Order Total": 20, "SKU": "A2"},
		},
	}

	w := &Writer{Store: st, Config: Config{BatchSize: 1}}
	summary, err := w.Ingest(ctx, "orders", src)
	require.NoError(err)
	require.Equal(int64(2), summary.RowsWritten)
	require.Equal(int64(0), summary.FailedBatches)

	collection := st.Collection(domain.RawCollectionName("orders"))
	n, err := collection.CountDocuments(ctx, store.Filter{})
	require.NoError(err)
	require.Equal(int64(2), n)

	row, found, err := collection.FindOne(ctx, store.Filter{"sku": "A1"})
	require.NoError(err)
	require.True(found)
	require.Equal(10, row["order_total"])
}
