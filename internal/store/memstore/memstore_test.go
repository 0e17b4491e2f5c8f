package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sidm01890/reconciler/internal/store"
)

func TestInsertAndFindOne(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	s := New()
	c := s.Collection("widgets")

	id, err := c.InsertOne(ctx, store.Row{"name": "foo"})
	require.NoError(err)
	require.NotNil(id)

	row, found, err := c.FindOne(ctx, store.Filter{"name": "foo"})
	require.NoError(err)
	require.True(found)
	require.Equal("foo", row["name"])
}

func TestFindWithOperators(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	s := New()
	c := s.Collection("widgets")

	require.NoError(insertAll(ctx, c, []store.Row{
		{"qty": 5}, {"qty": 15}, {"qty": 25},
	}))

	cur, err := c.Find(ctx, store.Filter{"qty": store.Filter{"$gt": 10}}, store.FindOptions{})
	require.NoError(err)
	defer cur.Close(ctx)

	var count int
	var row store.Row
	for cur.Next(ctx) {
		require.NoError(cur.Decode(&row))
		count++
	}
	require.Equal(2, count)
}

func TestUpdateOneUpsertsWhenAbsent(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	s := New()
	c := s.Collection("widgets")

	err := c.UpdateOne(ctx, store.Filter{"sku": "A1"}, store.Row{"qty": 10}, true)
	require.NoError(err)

	row, found, err := c.FindOne(ctx, store.Filter{"sku": "A1"})
	require.NoError(err)
	require.True(found)
	require.Equal(10, row["qty"])
}

func TestBulkWriteAggregatesCounts(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	s := New()
	c := s.Collection("widgets")

	res, err := c.BulkWrite(ctx, []store.WriteModel{
		store.InsertModel{Document: store.Row{"sku": "A1"}},
		store.UpsertModel{Filter: store.Filter{"sku": "B1"}, Update: store.Row{"qty": 1}},
	})
	require.NoError(err)
	require.Equal(int64(1), res.Inserted)
	require.Equal(int64(1), res.Upserted)
}

func TestDeleteMany(t *testing.T) {
	require := require.New(t)
	ctx := context.Background()
	s := New()
	c := s.Collection("widgets")
	require.NoError(insertAll(ctx, c, []store.Row{{"qty": 1}, {"qty": 2}}))

	n, err := c.DeleteMany(ctx, store.Filter{"qty": 1})
	require.NoError(err)
	require.Equal(int64(1), n)

	remaining, err := c.CountDocuments(ctx, store.Filter{})
	require.NoError(err)
	require.Equal(int64(1), remaining)
}

func insertAll(ctx context.Context, c store.Collection, docs []store.Row) error {
	return c.InsertMany(ctx, docs)
}
