// Package config implements the DataSource / FormulaDocument CRUD
// operations of §6 (createDataSource, setSelectedFields, defineReport,
// listDataSources, getReport), supplementing spec.md from
// original_source/'s mapping_service.py and formulas_controller.py
// validation of logicNameKey/formulaText/fields presence.
package config

import (
	"context"
	"time"

	"github.com/sidm01890/reconciler/internal/domain"
	"github.com/sidm01890/reconciler/internal/errs"
	"github.com/sidm01890/reconciler/internal/logging"
	"github.com/sidm01890/reconciler/internal/normalize"
	"github.com/sidm01890/reconciler/internal/result"
	"github.com/sidm01890/reconciler/internal/store"
)

var configLog = logging.For("config")

const (
	dataSourcesCollection = "raw_data_collection"
	fieldMappingsCollection = "collection_field_mappings"
	formulasCollection      = "formulas"
)

// Registry is the validating accessor over the store's configuration
// collections (§6).
type Registry struct {
	Store store.Store
}

// CreateDataSource registers a new named input stream configuration
// (§6 createDataSource). Returns 409 Conflict if the name is already
// registered, 400 BadRequest if uniqueIds references fields outside
// selectedFields (§3 invariant).
func (r *Registry) CreateDataSource(ctx context.Context, ds domain.DataSource) result.Result {
	collection := r.Store.Collection(dataSourcesCollection)

	if _, found, err := collection.FindOne(ctx, store.Filter{"name": ds.Name}); err != nil {
		return result.Internal("looking up data source", err.Error())
	} else if found {
		return result.Conflict(errs.ErrDataSourceExists.New(ds.Name).Error(), nil)
	}

	ds.SelectedFields = normalize.Columns(ds.SelectedFields)
	if len(ds.SelectedFields) == 0 {
		return result.BadRequest(errs.ErrNoSelectedFields.New(ds.Name).Error(), nil)
	}

	selected := make(map[string]bool, len(ds.SelectedFields))
	for _, f := range ds.SelectedFields {
		selected[f] = true
	}
	for _, u := range ds.UniqueIDs {
		if !selected[normalize.Header(u)] {
			return result.BadRequest(errs.ErrInvalidDataSource.New(ds.Name, "unique_ids must be a subset of selected_fields").Error(), nil)
		}
	}

	if ds.OnMissingUniqueID == "" {
		ds.OnMissingUniqueID = domain.InsertWithNullID
	}
	ds.CreatedAt = time.Now().UTC()

	doc := store.Row{
		"name":                 ds.Name,
		"unique_ids":           ds.UniqueIDs,
		"selected_fields":      ds.SelectedFields,
		"on_missing_unique_id": string(ds.OnMissingUniqueID),
		"created_at":           ds.CreatedAt,
	}
	if _, err := collection.InsertOne(ctx, doc); err != nil {
		return result.Internal("creating data source", err.Error())
	}
	configLog.WithField("data_source", ds.Name).Info("data source created")
	return result.OK("data source created", ds)
}

// SetSelectedFields updates a DataSource's selected_fields list (§6
// setSelectedFields). Returns 404 if the name is unknown.
func (r *Registry) SetSelectedFields(ctx context.Context, name string, fields []string) result.Result {
	collection := r.Store.Collection(dataSourcesCollection)

	normalized := normalize.Columns(fields)
	if len(normalized) == 0 {
		return result.BadRequest(errs.ErrNoSelectedFields.New(name).Error(), nil)
	}

	if _, found, err := collection.FindOne(ctx, store.Filter{"name": name}); err != nil {
		return result.Internal("looking up data source", err.Error())
	} else if !found {
		return result.NotFound(errs.ErrUnknownDataSource.New(name).Error(), nil)
	}

	if err := collection.UpdateOne(ctx, store.Filter{"name": name}, store.Row{"selected_fields": normalized}, false); err != nil {
		return result.Internal("updating selected fields", err.Error())
	}
	return result.OK("selected fields updated", normalized)
}

// ListDataSources returns every registered DataSource (§6 listDataSources).
func (r *Registry) ListDataSources(ctx context.Context) result.Result {
	collection := r.Store.Collection(dataSourcesCollection)
	cur, err := collection.Find(ctx, store.Filter{}, store.FindOptions{})
	if err != nil {
		return result.Internal("listing data sources", err.Error())
	}
	defer cur.Close(ctx)

	var out []domain.DataSource
	var row store.Row
	for cur.Next(ctx) {
		if err := cur.Decode(&row); err != nil {
			return result.Internal("decoding data source", err.Error())
		}
		out = append(out, rowToDataSource(row))
	}
	if err := cur.Err(); err != nil {
		return result.Internal("reading data sources", err.Error())
	}
	return result.OK("data sources", out)
}

// DefineReport validates and stores a FormulaDocument (§6 defineReport).
// Validation mirrors formulas_controller.py: every formula needs a
// non-empty logicNameKey and formulaText.
func (r *Registry) DefineReport(ctx context.Context, doc domain.FormulaDocument) result.Result {
	for i, f := range doc.Formulas {
		if f.LogicNameKey == "" {
			return result.BadRequest(errs.ErrMissingLogicNameKey.New(i).Error(), nil)
		}
		if f.FormulaText == "" {
			return result.BadRequest(errs.ErrEmptyFormulaText.New(f.LogicNameKey).Error(), nil)
		}
	}
	if doc.MissingDeltaPolicy == "" {
		doc.MissingDeltaPolicy = domain.TreatAsZero
	}

	collection := r.Store.Collection(formulasCollection)
	update := store.Row{
		"report_name":          doc.ReportName,
		"formulas":             doc.Formulas,
		"mapping_keys":         doc.MappingKeys,
		"conditions":           doc.Conditions,
		"delta_columns":        doc.DeltaColumns,
		"reasons":              doc.Reasons,
		"missing_delta_policy": string(doc.MissingDeltaPolicy),
	}
	if err := collection.UpdateOne(ctx, store.Filter{"report_name": doc.ReportName}, update, true); err != nil {
		return result.Internal("defining report", err.Error())
	}
	configLog.WithField("report", doc.ReportName).Info("report defined")
	return result.OK("report defined", doc)
}

// GetReport returns a report's stored definition document (§6
// getReport) as the store.Row it was persisted as, not decoded into a
// domain.FormulaDocument. Returns 404 if the name is unknown.
func (r *Registry) GetReport(ctx context.Context, reportName string) result.Result {
	collection := r.Store.Collection(formulasCollection)
	row, found, err := collection.FindOne(ctx, store.Filter{"report_name": reportName})
	if err != nil {
		return result.Internal("looking up report", err.Error())
	}
	if !found {
		return result.NotFound(errs.ErrUnknownReport.New(reportName).Error(), nil)
	}
	return result.OK("report", row)
}

func rowToDataSource(row store.Row) domain.DataSource {
	ds := domain.DataSource{}
	if v, ok := row["name"].(string); ok {
		ds.Name = v
	}
	ds.UniqueIDs = toStringSlice(row["unique_ids"])
	ds.SelectedFields = toStringSlice(row["selected_fields"])
	if v, ok := row["on_missing_unique_id"].(string); ok {
		ds.OnMissingUniqueID = domain.MissingUniqueIDPolicy(v)
	}
	if v, ok := row["created_at"].(time.Time); ok {
		ds.CreatedAt = v
	}
	return ds
}

func toStringSlice(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}
