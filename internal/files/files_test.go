package files

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sidm01890/reconciler/internal/domain"
	"github.com/sidm01890/reconciler/internal/store/memstore"
)

func TestRegisterAndGetRoundTrips(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	tr := &Tracker{Store: memstore.New()}

	fileID, err := tr.Register(ctx, "orders")
	require.NoError(err)
	require.NotEmpty(fileID)

	uf, found, err := tr.Get(ctx, fileID)
	require.NoError(err)
	require.True(found)
	require.Equal("orders", uf.DataSource)
	require.Equal(domain.StatusUploaded, uf.Status)
	require.Equal(int64(0), uf.RowCount)
}

func TestMarkProcessedRecordsRowCount(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	tr := &Tracker{Store: memstore.New()}

	fileID, err := tr.Register(ctx, "orders")
	require.NoError(err)
	require.NoError(tr.MarkProcessing(ctx, fileID))
	require.NoError(tr.MarkProcessed(ctx, fileID, 42))

	uf, found, err := tr.Get(ctx, fileID)
	require.NoError(err)
	require.True(found)
	require.Equal(domain.StatusProcessed, uf.Status)
	require.Equal(int64(42), uf.RowCount)
}

func TestMarkFailedRecordsError(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	tr := &Tracker{Store: memstore.New()}

	fileID, err := tr.Register(ctx, "orders")
	require.NoError(err)
	require.NoError(tr.MarkFailed(ctx, fileID, errors.New("boom")))

	uf, found, err := tr.Get(ctx, fileID)
	require.NoError(err)
	require.True(found)
	require.Equal(domain.StatusFailed, uf.Status)
	require.Equal("boom", uf.Error)
}

func TestMarkAllProcessedForDataSourceTransitionsOnlyMatching(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	tr := &Tracker{Store: memstore.New()}

	orderFile, err := tr.Register(ctx, "orders")
	require.NoError(err)
	require.NoError(tr.MarkProcessing(ctx, orderFile))

	paymentFile, err := tr.Register(ctx, "payments")
	require.NoError(err)
	require.NoError(tr.MarkProcessing(ctx, paymentFile))

	n, err := tr.MarkAllProcessedForDataSource(ctx, "orders")
	require.NoError(err)
	require.Equal(int64(1), n)

	uf, _, err := tr.Get(ctx, orderFile)
	require.NoError(err)
	require.Equal(domain.StatusProcessed, uf.Status)

	pf, _, err := tr.Get(ctx, paymentFile)
	require.NoError(err)
	require.Equal(domain.StatusProcessing, pf.Status)
}
