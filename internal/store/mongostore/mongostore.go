// Package mongostore implements store.Store against a real MongoDB
// deployment via go.mongodb.org/mongo-driver, per SPEC_FULL.md §1's
// domain-stack wiring (the spec's document store, §3/§6, is MongoDB-shaped).
package mongostore

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sidm01890/reconciler/internal/logging"
	"github.com/sidm01890/reconciler/internal/store"
)

var log = logging.For("store.mongo")

// Connect dials uri and returns a Store backed by the named database.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "mongostore: connect")
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, errors.Wrap(err, "mongostore: ping")
	}
	return &Store{client: client, db: client.Database(database)}, nil
}

// Store is a store.Store backed by a *mongo.Database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

func (s *Store) Collection(name string) store.Collection {
	return &Collection{coll: s.db.Collection(name)}
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Collection is a store.Collection backed by a *mongo.Collection.
type Collection struct {
	coll *mongo.Collection
}

func (c *Collection) Name() string { return c.coll.Name() }

func (c *Collection) InsertOne(ctx context.Context, doc store.Row) (any, error) {
	res, err := c.coll.InsertOne(ctx, bson.M(doc))
	if err != nil {
		return nil, err
	}
	return res.InsertedID, nil
}

func (c *Collection) InsertMany(ctx context.Context, docs []store.Row) error {
	if len(docs) == 0 {
		return nil
	}
	batch := make([]interface{}, len(docs))
	for i, d := range docs {
		batch[i] = bson.M(d)
	}
	// Unordered so a duplicate key on one document (§7 "Duplicate in
	// backup") doesn't abort the rest of the batch.
	_, err := c.coll.InsertMany(ctx, batch, options.InsertMany().SetOrdered(false))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return err
	}
	if err != nil {
		log.WithError(err).Debug("insert_many: duplicate keys dropped")
	}
	return nil
}

func (c *Collection) Find(ctx context.Context, filter store.Filter, opts store.FindOptions) (store.Cursor, error) {
	findOpts := options.Find()
	if opts.BatchSize > 0 {
		findOpts.SetBatchSize(int32(opts.BatchSize))
	}
	if len(opts.Sort) > 0 {
		sortDoc := bson.D{}
		for _, f := range opts.Sort {
			sortDoc = append(sortDoc, bson.E{Key: f, Value: 1})
		}
		findOpts.SetSort(sortDoc)
	}

	cur, err := c.coll.Find(ctx, bson.M(filter), findOpts)
	if err != nil {
		return nil, err
	}
	return &cursor{cur: cur}, nil
}

func (c *Collection) FindOne(ctx context.Context, filter store.Filter) (store.Row, bool, error) {
	var out bson.M
	err := c.coll.FindOne(ctx, bson.M(filter)).Decode(&out)
	if err == mongo.ErrNoDocuments {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return store.Row(out), true, nil
}

func (c *Collection) CountDocuments(ctx context.Context, filter store.Filter) (int64, error) {
	return c.coll.CountDocuments(ctx, bson.M(filter))
}

func (c *Collection) UpdateOne(ctx context.Context, filter store.Filter, update store.Row, upsert bool) error {
	_, err := c.coll.UpdateOne(ctx, bson.M(filter), bson.M{"$set": bson.M(update)},
		options.Update().SetUpsert(upsert))
	return err
}

func (c *Collection) DeleteMany(ctx context.Context, filter store.Filter) (int64, error) {
	res, err := c.coll.DeleteMany(ctx, bson.M(filter))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (c *Collection) BulkWrite(ctx context.Context, models []store.WriteModel) (store.BulkResult, error) {
	var res store.BulkResult
	ops := make([]mongo.WriteModel, 0, len(models))
	for _, m := range models {
		switch op := m.(type) {
		case store.InsertModel:
			ops = append(ops, mongo.NewInsertOneModel().SetDocument(bson.M(op.Document)))
		case store.UpsertModel:
			ops = append(ops, mongo.NewUpdateOneModel().
				SetFilter(bson.M(op.Filter)).
				SetUpdate(bson.M{"$set": bson.M(op.Update)}).
				SetUpsert(true))
		case store.UpdateModel:
			ops = append(ops, mongo.NewUpdateOneModel().
				SetFilter(bson.M(op.Filter)).
				SetUpdate(bson.M{"$set": bson.M(op.Update)}))
		case store.DeleteModel:
			ops = append(ops, mongo.NewDeleteManyModel().SetFilter(bson.M(op.Filter)))
		}
	}
	if len(ops) == 0 {
		return res, nil
	}

	out, err := c.coll.BulkWrite(ctx, ops, options.BulkWrite().SetOrdered(false))
	if err != nil {
		if bwe, ok := err.(mongo.BulkWriteException); ok {
			res.Errors = int64(len(bwe.WriteErrors))
		} else {
			return res, err
		}
	}
	if out != nil {
		res.Inserted = out.InsertedCount
		res.Upserted = out.UpsertedCount
		res.Modified = out.ModifiedCount
		res.Deleted = out.DeletedCount
	}
	return res, nil
}

func (c *Collection) EnsureIndex(ctx context.Context, fields ...string) error {
	keys := bson.D{}
	for _, f := range fields {
		keys = append(keys, bson.E{Key: f, Value: 1})
	}
	_, err := c.coll.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys})
	return err
}

type cursor struct {
	cur *mongo.Cursor
}

func (cur *cursor) Next(ctx context.Context) bool {
	return cur.cur.Next(ctx)
}

func (cur *cursor) Decode(out *store.Row) error {
	var doc bson.M
	if err := cur.cur.Decode(&doc); err != nil {
		return err
	}
	*out = store.Row(doc)
	return nil
}

func (cur *cursor) Err() error { return cur.cur.Err() }

func (cur *cursor) Close(ctx context.Context) error { return cur.cur.Close(ctx) }
