// Package files tracks the lifecycle of an uploaded source file
// (§6 collection layout, §7 "User-visible failure paths"), supplementing
// spec.md from original_source/'s per-file status bookkeeping in
// scheduled_jobs_controller.py's _process_single_collection.
package files

import (
	"context"
	"time"

	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"

	"github.com/sidm01890/reconciler/internal/domain"
	"github.com/sidm01890/reconciler/internal/store"
)

const collectionName = "uploaded_files"

// Tracker records UploadedFile lifecycle transitions (§3 UploadedFile).
type Tracker struct {
	Store store.Store
}

func (t *Tracker) collection() store.Collection {
	return t.Store.Collection(collectionName)
}

// Register creates an uploaded_files record in the "uploaded" state
// and returns its generated file_id.
func (t *Tracker) Register(ctx context.Context, dataSource string) (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", errors.Wrap(err, "generating file id")
	}
	fileID := id.String()
	doc := store.Row{
		"file_id":     fileID,
		"data_source": dataSource,
		"status":      string(domain.StatusUploaded),
		"row_count":   int64(0),
		"started_at":  time.Now().UTC(),
	}
	if _, err := t.collection().InsertOne(ctx, doc); err != nil {
		return "", errors.Wrap(err, "registering uploaded file")
	}
	return fileID, nil
}

// MarkProcessing transitions a file to "processing" (ingestion started).
func (t *Tracker) MarkProcessing(ctx context.Context, fileID string) error {
	return t.setStatus(ctx, fileID, domain.StatusProcessing, 0, "")
}

// MarkProcessed transitions a file to "processed", recording the final
// row count (§6 collection layout).
func (t *Tracker) MarkProcessed(ctx context.Context, fileID string, rowCount int64) error {
	return t.setStatus(ctx, fileID, domain.StatusProcessed, rowCount, "")
}

// MarkFailed transitions a file to "failed", recording the error that
// aborted it (§7 user-visible failure paths).
func (t *Tracker) MarkFailed(ctx context.Context, fileID string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return t.setStatus(ctx, fileID, domain.StatusFailed, 0, msg)
}

func (t *Tracker) setStatus(ctx context.Context, fileID string, status domain.UploadStatus, rowCount int64, errMsg string) error {
	update := store.Row{
		"status":      string(status),
		"finished_at": time.Now().UTC(),
	}
	if rowCount > 0 {
		update["row_count"] = rowCount
	}
	if errMsg != "" {
		update["error"] = errMsg
	}
	if status == domain.StatusProcessing {
		delete(update, "finished_at")
	}
	return t.collection().UpdateOne(ctx, store.Filter{"file_id": fileID}, update, false)
}

// MarkAllProcessedForDataSource transitions every "processing" file
// belonging to dataSource to "processed", called once a promotion run
// finishes that DataSource's raw collection (internal/job). Returns the
// number of files transitioned.
func (t *Tracker) MarkAllProcessedForDataSource(ctx context.Context, dataSource string) (int64, error) {
	filter := store.Filter{"data_source": dataSource, "status": string(domain.StatusProcessing)}
	cur, err := t.collection().Find(ctx, filter, store.FindOptions{})
	if err != nil {
		return 0, errors.Wrap(err, "listing processing files")
	}
	defer cur.Close(ctx)

	var ids []string
	var row store.Row
	for cur.Next(ctx) {
		if err := cur.Decode(&row); err != nil {
			return 0, errors.Wrap(err, "decoding uploaded file")
		}
		if id, ok := row["file_id"].(string); ok {
			ids = append(ids, id)
		}
	}
	if err := cur.Err(); err != nil {
		return 0, errors.Wrap(err, "reading processing files")
	}

	var marked int64
	for _, id := range ids {
		if err := t.MarkProcessed(ctx, id, 0); err != nil {
			return marked, errors.Wrap(err, "marking file processed")
		}
		marked++
	}
	return marked, nil
}

// Get returns the UploadedFile record for fileID.
func (t *Tracker) Get(ctx context.Context, fileID string) (domain.UploadedFile, bool, error) {
	row, found, err := t.collection().FindOne(ctx, store.Filter{"file_id": fileID})
	if err != nil || !found {
		return domain.UploadedFile{}, found, err
	}
	return rowToUploadedFile(row), true, nil
}

func rowToUploadedFile(row store.Row) domain.UploadedFile {
	uf := domain.UploadedFile{}
	if v, ok := row["file_id"].(string); ok {
		uf.FileID = v
	}
	if v, ok := row["data_source"].(string); ok {
		uf.DataSource = v
	}
	if v, ok := row["status"].(string); ok {
		uf.Status = domain.UploadStatus(v)
	}
	switch v := row["row_count"].(type) {
	case int64:
		uf.RowCount = v
	case int:
		uf.RowCount = int64(v)
	}
	if v, ok := row["error"].(string); ok {
		uf.Error = v
	}
	if v, ok := row["started_at"].(time.Time); ok {
		uf.StartedAt = v
	}
	if v, ok := row["finished_at"].(time.Time); ok {
		uf.FinishedAt = v
	}
	return uf
}
