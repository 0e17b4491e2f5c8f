// Package ingest implements the Raw Ingest Writer (C3 of SPEC_FULL.md
// §2): streaming an external RowSource into the document store's raw
// collection, column-normalized but not yet sanitized (§4.1).
package ingest

import (
	"context"

	"github.com/pkg/errors"

	"github.com/sidm01890/reconciler/internal/domain"
	"github.com/sidm01890/reconciler/internal/logging"
	"github.com/sidm01890/reconciler/internal/normalize"
	"github.com/sidm01890/reconciler/internal/store"
)

var ingestLog = logging.For("ingest")

// streamingThreshold is the large-file row count of the §6 knobs.
// Ingest does not branch on it: files of every size take the same
// batched write path, which holds at most one batch of rows in memory
// and never the full file (§4.1).
const streamingThreshold = 100_000

// defaultBatchSize is the batch size used when Config.BatchSize is
// zero, for files of any size (§6 knobs).
const defaultBatchSize = 50_000

// RowSource is the out-of-scope collaborator that supplies already
// column-named rows from an uploaded file — spreadsheet/CSV parsing
// itself is explicitly external (§1 Non-goals). A RowSource reports
// its header once and then yields rows until exhausted.
type RowSource interface {
	// Header returns the source's raw column names, in order.
	Header() []string
	// Next returns the next row as raw (un-normalized) column name ->
	// value pairs, or ok=false when the source is exhausted. err is
	// non-nil only on an unrecoverable read failure.
	Next(ctx context.Context) (row map[string]any, ok bool, err error)
}

// Config tunes ingestion batching (§6 knobs). Zero values use the
// documented defaults.
type Config struct {
	BatchSize int
}

func (c Config) batchSize() int {
	if c.BatchSize > 0 {
		return c.BatchSize
	}
	return defaultBatchSize
}

// Summary reports how many rows were written and how many batches
// failed outright (logged and skipped, per §7 batch failure policy).
type Summary struct {
	RowsWritten  int64
	FailedBatches int64
}

// Writer streams a RowSource into a DataSource's raw collection (C3).
type Writer struct {
	Store  store.Store
	Config Config
}

// Ingest reads every row off src, normalizes its header once, and
// writes normalized rows into the raw collection for dataSource in
// batches. A single batch's write failure is logged and the batch is
// skipped; ingestion continues with the next batch (§7 "Batch failure:
// log + continue, don't abort the whole run").
func (w *Writer) Ingest(ctx context.Context, dataSource string, src RowSource) (Summary, error) {
	rawHeader := src.Header()
	normalizedHeader := normalize.Columns(rawHeader)
	rename := make(map[string]string, len(rawHeader))
	for i, raw := range rawHeader {
		rename[raw] = normalizedHeader[i]
	}

	collection := w.Store.Collection(domain.RawCollectionName(dataSource))
	batchSize := w.Config.batchSize()

	var summary Summary
	batch := make([]store.Row, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := collection.InsertMany(ctx, batch); err != nil {
			summary.FailedBatches++
			ingestLog.WithField("data_source", dataSource).
				WithField("batch_size", len(batch)).
				Warn(errors.Wrap(err, "batch insert failed; skipping batch").Error())
			batch = batch[:0]
			return nil
		}
		summary.RowsWritten += int64(len(batch))
		batch = batch[:0]
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		raw, ok, err := src.Next(ctx)
		if err != nil {
			return summary, errors.Wrap(err, "reading row source")
		}
		if !ok {
			break
		}

		batch = append(batch, renameKeys(raw, rename))
		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return summary, err
			}
		}
	}

	if err := flush(); err != nil {
		return summary, err
	}

	return summary, nil
}

func renameKeys(row map[string]any, rename map[string]string) store.Row {
	out := make(store.Row, len(row))
	for k, v := range row {
		name, ok := rename[k]
		if !ok {
			name = normalize.Header(k)
		}
		out[name] = v
	}
	return out
}
