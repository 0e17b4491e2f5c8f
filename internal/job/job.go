// Package job implements the Job Orchestrator (C11 of SPEC_FULL.md
// §2, §5): driving promotion and report evaluation across
// DataSources/reports with cooperative yielding, cancellation, and
// result aggregation into the §6 envelope.
package job

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"
	opentracing "github.com/opentracing/opentracing-go"

	"github.com/sidm01890/reconciler/internal/domain"
	"github.com/sidm01890/reconciler/internal/files"
	"github.com/sidm01890/reconciler/internal/logging"
	"github.com/sidm01890/reconciler/internal/merge"
	"github.com/sidm01890/reconciler/internal/promote"
	"github.com/sidm01890/reconciler/internal/result"
	"github.com/sidm01890/reconciler/internal/store"
)

var jobLog = logging.For("job")

// Orchestrator drives promotion and evaluation runs against the
// document store (§5). Each run is single-threaded and batch-yielding;
// running two Orchestrators against the same collections concurrently
// is supported by the store (§5 "document store is the sole shared
// mutable resource") but not coordinated by this type itself.
type Orchestrator struct {
	Store   store.Store
	Promote promote.Config
	Merge   merge.Config
	Files   *files.Tracker
}

// RunPromotion promotes every DataSource's pending raw rows (§5, §4.1).
// A single DataSource's failure is recorded and does not stop the
// others (§7 batch failure policy extended to the job level).
func (o *Orchestrator) RunPromotion(ctx context.Context, sources []domain.DataSource) result.Result {
	span, ctx := opentracing.StartSpanFromContext(ctx, "promote")
	defer span.Finish()

	promoter := &promote.Promoter{Store: o.Store, Config: o.Promote}

	var merr *multierror.Error
	summaries := make(map[string]promote.Summary, len(sources))

	for _, ds := range sources {
		span.SetTag("data_source", ds.Name)
		entry := jobLog.WithField("data_source", ds.Name)

		select {
		case <-ctx.Done():
			merr = multierror.Append(merr, ctx.Err())
			return envelopeFor(merr, summaries)
		default:
		}

		summary, err := promoter.Promote(ctx, ds)
		if err != nil {
			summaries[ds.Name] = summary
			entry.WithError(err).Error("promotion failed")
			merr = multierror.Append(merr, err)
			continue
		}

		if o.Files != nil {
			marked, fileErr := o.Files.MarkAllProcessedForDataSource(ctx, ds.Name)
			if fileErr != nil {
				entry.WithError(fileErr).Warn("marking uploaded files processed failed")
			} else {
				summary.FilesMarkedProcessed = marked
			}
		}
		summaries[ds.Name] = summary

		entry.WithField("inserted", summary.Inserted).
			WithField("updated", summary.Updated).
			WithField("skipped", summary.Skipped).
			WithField("files_marked_processed", summary.FilesMarkedProcessed).
			Info("promotion complete")
	}

	return envelopeFor(merr, summaries)
}

// RunEvaluation merges and evaluates every FormulaDocument (§5, §4.3,
// §4.4). A single report's failure is recorded and does not stop the
// others.
func (o *Orchestrator) RunEvaluation(ctx context.Context, reports []domain.FormulaDocument) result.Result {
	span, ctx := opentracing.StartSpanFromContext(ctx, "evaluate")
	defer span.Finish()

	merger := &merge.Merger{Store: o.Store, Config: o.Merge}

	var merr *multierror.Error
	summaries := make(map[string]merge.Summary, len(reports))

	for _, doc := range reports {
		span.SetTag("report", doc.ReportName)
		entry := jobLog.WithField("report", doc.ReportName)

		select {
		case <-ctx.Done():
			merr = multierror.Append(merr, ctx.Err())
			return envelopeFor(merr, summaries)
		default:
		}

		summary, err := merger.Run(ctx, doc)
		summaries[doc.ReportName] = summary
		if err != nil {
			entry.WithError(err).Error("evaluation failed")
			merr = multierror.Append(merr, err)
			continue
		}
		entry.WithField("rows_merged", summary.RowsMerged).
			WithField("rows_evaluated", summary.RowsEvaluated).
			Info("evaluation complete")
	}

	return envelopeFor(merr, summaries)
}

func envelopeFor(merr *multierror.Error, data any) result.Result {
	if merr == nil || merr.Len() == 0 {
		return result.OK("run complete", data)
	}
	return result.Internal(merr.Error(), data)
}

// CooperativeYield sleeps for interval unless ctx is cancelled first,
// the suspension point between batches referenced throughout §5. Lower
// levels (promote, merge) implement their own yield inline; this
// helper exists for orchestration-level pauses between whole jobs.
func CooperativeYield(ctx context.Context, interval time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(interval):
		return nil
	}
}
