package merge

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/sidm01890/reconciler/internal/domain"
	"github.com/sidm01890/reconciler/internal/formula"
	"github.com/sidm01890/reconciler/internal/store"
)

// evaluateDeltaAndReasons implements C10 (§4.4): stream the finished
// report collection, evaluate each delta column in order (feeding its
// result into the live derived map so later delta columns and reasons
// can reference it), then evaluate the reasons in configured order via
// evaluateReasons, stamping the joined text of every reason that fired
// and the resulting status.
func (m *Merger) evaluateDeltaAndReasons(ctx context.Context, doc domain.FormulaDocument) (int64, []formula.Warning, error) {
	if len(doc.DeltaColumns) == 0 && len(doc.Reasons) == 0 {
		return 0, nil, nil
	}

	reportCollection := m.Store.Collection(domain.ReportCollectionName(doc.ReportName))
	batchSize := m.Config.batchSize()

	cur, err := reportCollection.Find(ctx, store.Filter{}, store.FindOptions{BatchSize: batchSize})
	if err != nil {
		return 0, nil, errors.Wrap(err, "reading report collection")
	}
	defer cur.Close(ctx)

	var evaluated int64
	var warnings []formula.Warning
	var batch []store.WriteModel

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := reportCollection.BulkWrite(ctx, batch); err != nil {
			return errors.Wrap(err, "bulk writing delta/reason results")
		}
		batch = batch[:0]
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(m.Config.yieldInterval()):
			return nil
		}
	}

	var row store.Row
	for cur.Next(ctx) {
		if err := cur.Decode(&row); err != nil {
			return evaluated, warnings, errors.Wrap(err, "decoding report row")
		}

		model, rowWarnings := m.evaluateOneRow(doc, row)
		warnings = append(warnings, rowWarnings...)
		batch = append(batch, model)
		evaluated++

		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return evaluated, warnings, err
			}
		}
	}
	if err := cur.Err(); err != nil {
		return evaluated, warnings, errors.Wrap(err, "cursor error")
	}
	if err := flush(); err != nil {
		return evaluated, warnings, err
	}

	return evaluated, warnings, nil
}

func (m *Merger) evaluateOneRow(doc domain.FormulaDocument, row store.Row) (store.WriteModel, []formula.Warning) {
	derived := seedDerivedValues(row, nil)
	update := store.Row{}
	var warnings []formula.Warning

	for _, dc := range doc.DeltaColumns {
		value, err := formula.EvaluateDeltaExpression(dc.Value, derived)
		if err != nil {
			mergeLog.WithField("delta_column", dc.DeltaColumnName).Warn(err.Error())
			warnings = append(warnings, formula.Warning{Formula: dc.DeltaColumnName, Message: err.Error()})
			value = decimal.Zero
		}
		lowered := strings.ToLower(dc.DeltaColumnName)
		derived[lowered] = value
		update[lowered] = value.String()
	}

	reasonText, status := evaluateReasons(doc, derived)
	update[domain.ReasonField] = reasonText
	update[domain.ReconciliationStatusField] = string(status)
	update[domain.ProcessedAtField] = time.Now().UTC()

	filter := identifyingFilter(doc, row)
	return store.UpsertModel{Filter: filter, Update: update}, warnings
}

// evaluateReasons walks a report's Reason list in order (§4.4 step 3).
// A reason fires when its delta column's absolute value exceeds its
// threshold. Once any reason has fired, a later reason with
// MustCheck==false is skipped outright — it is only evaluated at all
// while nothing has matched yet. A reason with MustCheck==true is
// always evaluated regardless of what already matched. The loop never
// short-circuits early; every firing reason's text is accumulated in
// order, joined by ", " (scheduled_jobs_controller.py:1130-1131,
// :1162). A delta column a reason names but that was never produced
// follows FormulaDocument.MissingDeltaPolicy.
func evaluateReasons(doc domain.FormulaDocument, derived formula.DerivedValues) (string, domain.ReconciliationStatus) {
	var matched []string

	for _, r := range doc.Reasons {
		if !r.MustCheck && len(matched) > 0 {
			continue
		}

		key := strings.ToLower(r.DeltaColumn)
		value, present := derived[key]
		if !present {
			if doc.MissingDeltaPolicy == domain.ForceUnreconciled {
				return "missing delta column: " + r.DeltaColumn, domain.Unreconciled
			}
			value = decimal.Zero
		}

		threshold := decimal.NewFromFloat(r.Threshold)
		if value.Abs().GreaterThan(threshold) {
			matched = append(matched, r.Reason)
		}
	}

	if len(matched) == 0 {
		return "", domain.Reconciled
	}
	return strings.Join(matched, ", "), domain.Unreconciled
}

// identifyingFilter locates a report row by its primary mapping key
// (the primary collection as PrimaryCollection determines it) when the
// row carries one, falling back to its Mongo document _id otherwise
// (§4.4 step 4 "bulk-update by primary mapping key falling back to _id").
func identifyingFilter(doc domain.FormulaDocument, row store.Row) store.Filter {
	primary := formula.PrimaryCollection(formula.ParseAll(doc.Formulas), doc.MappingKeys)
	if primary != "" {
		field := domain.MappingKeyField(primary)
		if v, ok := row[field]; ok {
			return store.Filter{field: v}
		}
	}
	return store.Filter{"_id": row["_id"]}
}
