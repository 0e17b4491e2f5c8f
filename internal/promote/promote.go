// Package promote implements the Staging Promoter (C5 of SPEC_FULL.md
// §2): the batch algorithm that turns sanitized raw rows into
// deduplicated processed rows and archives the raw documents (§4.1).
package promote

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/sidm01890/reconciler/internal/domain"
	"github.com/sidm01890/reconciler/internal/identity"
	"github.com/sidm01890/reconciler/internal/logging"
	"github.com/sidm01890/reconciler/internal/sanitize"
	"github.com/sidm01890/reconciler/internal/store"
	"github.com/sidm01890/reconciler/internal/store/cursorcache"
)

var promoteLog = logging.For("promoter")

const defaultBatchSize = 5_000

// Config tunes a promotion run (§5, §6 knobs).
type Config struct {
	BatchSize     int
	YieldInterval time.Duration
	// Cursor, when set, persists an advisory resume point between runs
	// (§1 "exactly-once progression under retries"). Never required for
	// correctness: a nil Cursor just rescans from the top every run.
	Cursor *cursorcache.Cache
}

func (c Config) batchSize() int {
	if c.BatchSize > 0 {
		return c.BatchSize
	}
	return defaultBatchSize
}

func (c Config) yieldInterval() time.Duration {
	if c.YieldInterval > 0 {
		return c.YieldInterval
	}
	return 10 * time.Millisecond
}

// Summary aggregates a promotion run's outcome (§4.1 counters).
type Summary struct {
	Inserted            int64
	Updated             int64
	Skipped             int64
	Rejected            int64
	MovedToBackup       int64
	FilesMarkedProcessed int64
}

// Promoter runs C5 against one DataSource's raw collection.
type Promoter struct {
	Store  store.Store
	Config Config
}

// Promote drains dataSource's raw collection into its processed
// collection, archiving every raw document it handles into the backup
// collection and deleting it from raw once archived (§4.1 steps 1-6).
func (p *Promoter) Promote(ctx context.Context, ds domain.DataSource) (Summary, error) {
	raw := p.Store.Collection(domain.RawCollectionName(ds.Name))
	processed := p.Store.Collection(domain.ProcessedCollectionName(ds.Name))
	backup := p.Store.Collection(domain.BackupCollectionName(ds.Name))

	if err := processed.EnsureIndex(ctx, "unique_id"); err != nil {
		return Summary{}, errors.Wrap(err, "ensuring unique_id index")
	}

	filter := store.Filter{}
	if p.Config.Cursor != nil {
		if last, ok, err := p.Config.Cursor.Get(raw.Name()); err == nil && ok {
			filter = store.Filter{"_id": store.Filter{"$gt": last}}
		}
	}

	cur, err := raw.Find(ctx, filter, store.FindOptions{BatchSize: p.Config.batchSize(), Sort: []string{"_id"}})
	if err != nil {
		return Summary{}, errors.Wrap(err, "reading raw collection")
	}
	defer cur.Close(ctx)

	var summary Summary
	batch := make([]store.Row, 0, p.Config.batchSize())
	var lastID any

	for cur.Next(ctx) {
		var row store.Row
		if err := cur.Decode(&row); err != nil {
			return summary, errors.Wrap(err, "decoding raw row")
		}
		batch = append(batch, row)
		lastID = row["_id"]

		if len(batch) >= p.Config.batchSize() {
			if err := p.processBatch(ctx, ds, processed, backup, raw, batch, &summary); err != nil {
				return summary, err
			}
			batch = batch[:0]
			if err := p.yield(ctx, raw.Name(), lastID); err != nil {
				return summary, err
			}
		}
	}
	if err := cur.Err(); err != nil {
		return summary, errors.Wrap(err, "cursor error")
	}
	if len(batch) > 0 {
		if err := p.processBatch(ctx, ds, processed, backup, raw, batch, &summary); err != nil {
			return summary, err
		}
	}

	if p.Config.Cursor != nil {
		if err := p.Config.Cursor.Clear(raw.Name()); err != nil {
			promoteLog.WithField("data_source", ds.Name).Warn(errors.Wrap(err, "clearing resume cursor").Error())
		}
	}

	return summary, nil
}

func (p *Promoter) yield(ctx context.Context, collection string, lastID any) error {
	if p.Config.Cursor != nil && lastID != nil {
		if err := p.Config.Cursor.Set(collection, fmt.Sprintf("%v", lastID)); err != nil {
			promoteLog.WithField("collection", collection).Warn(errors.Wrap(err, "persisting resume cursor").Error())
		}
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(p.Config.yieldInterval()):
		return nil
	}
}

// processBatch implements §4.1 steps 1-6 for one batch of raw rows.
func (p *Promoter) processBatch(ctx context.Context, ds domain.DataSource, processed, backup, raw store.Collection, batch []store.Row, summary *Summary) error {
	type candidate struct {
		rawID       any
		rawDoc      store.Row
		sanitized   store.Row
		uniqueID    string
		hasUniqueID bool
	}

	candidates := make([]candidate, 0, len(batch))
	for _, row := range batch {
		sanitized := sanitizeRow(row, ds.SelectedFields)
		uniqueID, hasUniqueID := identity.BuildUniqueID(sanitized, ds.UniqueIDs)
		candidates = append(candidates, candidate{
			rawID: row["_id"], rawDoc: row, sanitized: sanitized,
			uniqueID: uniqueID, hasUniqueID: hasUniqueID,
		})
	}

	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c.hasUniqueID {
			ids = append(ids, c.uniqueID)
		}
	}

	existingByID := map[string]store.Row{}
	if len(ids) > 0 {
		existingCur, err := processed.Find(ctx, store.Filter{"unique_id": store.Filter{"$in": ids}}, store.FindOptions{})
		if err != nil {
			return errors.Wrap(err, "reading existing processed rows")
		}
		var existingRow store.Row
		for existingCur.Next(ctx) {
			if err := existingCur.Decode(&existingRow); err != nil {
				existingCur.Close(ctx)
				return errors.Wrap(err, "decoding existing processed row")
			}
			if uid, ok := existingRow["unique_id"].(string); ok {
				existingByID[uid] = existingRow
			}
		}
		existingCur.Close(ctx)
	}

	var handledRawIDs []any
	var writes []store.WriteModel

	for _, c := range candidates {
		if !c.hasUniqueID {
			switch ds.OnMissingUniqueID {
			case domain.RejectRow:
				summary.Rejected++
				promoteLog.WithField("data_source", ds.Name).Warn("row rejected: missing unique_id component")
				continue
			default:
				doc := store.Row{}
				for k, v := range c.sanitized {
					doc[k] = v
				}
				doc["unique_id"] = nil
				doc[domain.ProcessedAtField] = time.Now().UTC()
				writes = append(writes, store.InsertModel{Document: doc})
				summary.Inserted++
				handledRawIDs = append(handledRawIDs, c.rawID)
				promoteLog.WithField("data_source", ds.Name).Warn("row has null unique_id; inserted unconditionally")
			}
			continue
		}

		existing, found := existingByID[c.uniqueID]
		if !found {
			doc := store.Row{}
			for k, v := range c.sanitized {
				doc[k] = v
			}
			doc["unique_id"] = c.uniqueID
			doc[domain.ProcessedAtField] = time.Now().UTC()
			writes = append(writes, store.InsertModel{Document: doc})
			summary.Inserted++
		} else if changed := changedFields(existing, c.sanitized); len(changed) > 0 {
			update := store.Row{domain.ProcessedAtField: time.Now().UTC()}
			for _, field := range changed {
				update[field] = c.sanitized[field]
			}
			writes = append(writes, store.UpsertModel{Filter: store.Filter{"unique_id": c.uniqueID}, Update: update})
			summary.Updated++
		} else {
			summary.Skipped++
		}
		handledRawIDs = append(handledRawIDs, c.rawID)
	}

	if len(writes) > 0 {
		if _, err := processed.BulkWrite(ctx, writes); err != nil {
			return errors.Wrap(err, "bulk writing processed rows")
		}
	}

	for _, c := range candidates {
		belongsToHandled := false
		for _, id := range handledRawIDs {
			if id == c.rawID {
				belongsToHandled = true
				break
			}
		}
		if !belongsToHandled {
			continue
		}
		if err := archiveOne(ctx, backup, c.rawDoc); err != nil {
			promoteLog.WithField("data_source", ds.Name).Warn(errors.Wrap(err, "archiving raw row to backup").Error())
			continue
		}
		summary.MovedToBackup++
	}

	if len(handledRawIDs) > 0 {
		if _, err := raw.DeleteMany(ctx, store.Filter{"_id": store.Filter{"$in": handledRawIDs}}); err != nil {
			return errors.Wrap(err, "deleting promoted raw rows")
		}
	}

	return nil
}

// archiveOne inserts doc's raw copy into backup, renaming its raw "_id"
// to "raw_id" so the backup collection assigns its own identity and a
// re-run after a partial failure can retry the insert without a
// duplicate-key conflict on "_id" itself.
func archiveOne(ctx context.Context, backup store.Collection, doc store.Row) error {
	archived := store.Row{}
	for k, v := range doc {
		if k == "_id" {
			archived["raw_id"] = v
			continue
		}
		archived[k] = v
	}
	archived["archived_at"] = time.Now().UTC()

	_, err := backup.InsertOne(ctx, archived)
	if err != nil && isDuplicateKey(err) {
		return nil
	}
	return err
}

func isDuplicateKey(err error) bool {
	return strings.Contains(err.Error(), "E11000")
}

// sanitizeRow projects row onto selectedFields and sanitizes each
// projected value (§3 "the projection of a RawRow to selected_fields",
// §4.1 step 1 "projected+sanitized row"). A selected field absent from
// row becomes nil, matching the original _sanitize_document's
// `for field in selected_fields: ... else None`
// (scheduled_jobs_controller.py:452). Any raw column outside
// selectedFields is dropped.
func sanitizeRow(row store.Row, selectedFields []string) store.Row {
	out := make(store.Row, len(selectedFields))
	for _, field := range selectedFields {
		out[field] = sanitize.Value(field, row[field])
	}
	return out
}

// changedFields compares existing's stored fields against candidate's
// sanitized fields and returns the names that differ (§4.1 step 3
// "compute the changed-fields set"). Identity/bookkeeping fields are
// never compared.
func changedFields(existing, candidate store.Row) []string {
	var changed []string
	for field, newValue := range candidate {
		oldValue, present := existing[field]
		if !present || !valuesEqual(oldValue, newValue) {
			changed = append(changed, field)
		}
	}
	return changed
}

func valuesEqual(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Equal(tb)
		}
		return false
	}
	return fmt.Sprintf("%v", a) == fmt.Sprintf("%v", b)
}
