package merge

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/sidm01890/reconciler/internal/domain"
	"github.com/sidm01890/reconciler/internal/formula"
	"github.com/sidm01890/reconciler/internal/identity"
	"github.com/sidm01890/reconciler/internal/logging"
	"github.com/sidm01890/reconciler/internal/store"
)

var mergeLog = logging.For("merge")

// Config tunes the batch size and cooperative-yield interval of a
// merge run (§5). Zero values fall back to the documented defaults.
type Config struct {
	BatchSize     int
	YieldInterval time.Duration
}

func (c Config) batchSize() int {
	if c.BatchSize > 0 {
		return c.BatchSize
	}
	return 1000
}

func (c Config) yieldInterval() time.Duration {
	if c.YieldInterval > 0 {
		return c.YieldInterval
	}
	return 10 * time.Millisecond
}

// Summary aggregates the outcome of one report merge run (§4.3/§4.4).
type Summary struct {
	PrimaryCollection string
	RowsMerged        int64
	RowsEvaluated      int64
	Warnings          []formula.Warning
}

// Merger runs the Report Merger (C9) and the Delta & Reason pass (C10)
// for a single FormulaDocument (§4.3, §4.4: "After all collections are
// processed, run the Delta & Reason pass exactly once").
type Merger struct {
	Store  store.Store
	Config Config
}

// Run executes C9 followed by C10 against a report definition (§4.3
// step 5). It yields cooperatively between batches and returns early
// if ctx is cancelled.
func (m *Merger) Run(ctx context.Context, doc domain.FormulaDocument) (Summary, error) {
	summary, err := m.mergeCollections(ctx, doc)
	if err != nil {
		return summary, errors.Wrapf(err, "merging report %q", doc.ReportName)
	}

	evaluated, warnings, err := m.evaluateDeltaAndReasons(ctx, doc)
	summary.RowsEvaluated = evaluated
	summary.Warnings = append(summary.Warnings, warnings...)
	if err != nil {
		return summary, errors.Wrapf(err, "evaluating deltas/reasons for report %q", doc.ReportName)
	}

	return summary, nil
}

// mergeCollections implements C9 / §4.3 steps 1-4: determine the
// primary collection, partition formulas by owning collection, then
// stream each collection's processed rows into the report collection
// in the order collectionOrder gives: the primary collection first, so
// later collections can locate the report row it created, then the
// rest alphabetically.
func (m *Merger) mergeCollections(ctx context.Context, doc domain.FormulaDocument) (Summary, error) {
	parsed := formula.ParseAll(doc.Formulas)
	primary := formula.PrimaryCollection(parsed, doc.MappingKeys)
	partitioned := formula.PartitionByPrimaryCollection(parsed, primary)

	reportCollection := m.Store.Collection(domain.ReportCollectionName(doc.ReportName))
	if primary != "" {
		if err := reportCollection.EnsureIndex(ctx, domain.MappingKeyField(primary)); err != nil {
			return Summary{}, errors.Wrap(err, "ensuring primary mapping key index")
		}
	}

	order := collectionOrder(primary, partitioned)

	var merged int64
	var warnings []formula.Warning

	for _, collection := range order {
		formulas := partitioned[collection]
		sorted := formula.SortByDependencies(formulas)
		keyFields := doc.MappingKeys.Fields(collection)
		conditions, condErrs := BuildFilter(doc.Conditions[collection])
		for _, ce := range condErrs {
			mergeLog.WithField("collection", collection).Warn(ce.Error())
		}

		n, w, err := m.mergeOneCollection(ctx, mergeOneCollectionInput{
			reportCollection: reportCollection,
			sourceCollection: m.Store.Collection(domain.ProcessedCollectionName(collection)),
			collection:       collection,
			primary:          primary,
			keyFields:        keyFields,
			filter:           conditions,
			sortedFormulas:   sorted,
		})
		merged += n
		warnings = append(warnings, w...)
		if err != nil {
			return Summary{PrimaryCollection: primary, RowsMerged: merged, Warnings: warnings}, err
		}
	}

	return Summary{PrimaryCollection: primary, RowsMerged: merged, Warnings: warnings}, nil
}

// collectionOrder returns the primary collection first, then the
// remaining collections sorted alphabetically — deterministic, since
// map iteration order is not (§8 determinism properties).
func collectionOrder(primary string, partitioned map[string][]domain.Formula) []string {
	var rest []string
	for c := range partitioned {
		if c != primary {
			rest = append(rest, c)
		}
	}
	sort.Strings(rest)

	if primary == "" {
		return rest
	}
	if _, ok := partitioned[primary]; !ok {
		return rest
	}
	return append([]string{primary}, rest...)
}

type mergeOneCollectionInput struct {
	reportCollection store.Collection
	sourceCollection store.Collection
	collection       string
	primary          string
	keyFields        []string
	filter           store.Filter
	sortedFormulas   []domain.Formula
}

// mergeOneCollection streams one source collection's processed rows
// (§4.3 step 4), computing each row's mapping key, locating or creating
// the corresponding report row, seeding the live derived-field map from
// whatever the report row already has, evaluating this collection's
// formulas, and upserting the result.
func (m *Merger) mergeOneCollection(ctx context.Context, in mergeOneCollectionInput) (int64, []formula.Warning, error) {
	batchSize := m.Config.batchSize()
	cur, err := in.sourceCollection.Find(ctx, in.filter, store.FindOptions{BatchSize: batchSize})
	if err != nil {
		return 0, nil, errors.Wrapf(err, "reading collection %q", in.collection)
	}
	defer cur.Close(ctx)

	var merged int64
	var warnings []formula.Warning
	var batch []store.WriteModel

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := in.reportCollection.BulkWrite(ctx, batch); err != nil {
			return errors.Wrap(err, "bulk writing report rows")
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
			return merged, warnings, errors.Wrap(err, "decoding row")
		}

		model, rowWarnings, err := m.buildUpsert(ctx, in, row)
		if err != nil {
			mergeLog.WithField("collection", in.collection).Warn(err.Error())
			continue
		}
		warnings = append(warnings, rowWarnings...)
		batch = append(batch, model)
		merged++

		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return merged, warnings, err
			}
		}
	}
	if err := cur.Err(); err != nil {
		return merged, warnings, errors.Wrap(err, "cursor error")
	}
	if err := flush(); err != nil {
		return merged, warnings, err
	}

	return merged, warnings, nil
}

func (m *Merger) buildUpsert(ctx context.Context, in mergeOneCollectionInput, row store.Row) (store.WriteModel, []formula.Warning, error) {
	uniqueID, hasUniqueID := "", false
	if v, ok := row["unique_id"]; ok {
		if s, ok := v.(string); ok && s != "" {
			uniqueID, hasUniqueID = s, true
		}
	}
	mappingKey, ok := identity.BuildMappingKey(row, in.keyFields, uniqueID, hasUniqueID, row["_id"])
	if !ok {
		return nil, nil, errors.Errorf("row in %q has no usable mapping key; skipped", in.collection)
	}

	lookupField := domain.MappingKeyField(in.primary)
	secondaryField := domain.MappingKeyField(in.collection)
	lookupFilter := store.Filter{
		"$or": []store.Filter{
			{lookupField: mappingKey},
			{secondaryField: mappingKey},
		},
	}

	existing, found, err := in.reportCollection.FindOne(ctx, lookupFilter)
	if err != nil {
		return nil, nil, errors.Wrap(err, "looking up existing report row")
	}

	seed := seedDerivedValues(existing, in.sortedFormulas)
	result := formula.EvaluateRow(in.sortedFormulas, formula.SourceRow(row), seed)

	update := store.Row{}
	for key, value := range result.Derived {
		update[key] = value.String()
	}
	update[secondaryField] = mappingKey
	if in.collection == in.primary {
		update[lookupField] = mappingKey
	}
	update[domain.ProcessedAtField] = time.Now().UTC()

	filter := lookupFilter
	if !found {
		filter = store.Filter{lookupField: mappingKey}
	}

	return store.UpsertModel{Filter: filter, Update: update}, result.Warnings, nil
}

// seedDerivedValues reconstructs a DerivedValues map from an existing
// report row's already-stored fields, so a later collection's formulas
// can reference a value an earlier collection already computed (§4.3
// step 4e). The "_id" and "<collection>_mapping_key" fields are always
// skipped, numeric or not, and so are fields that don't parse as
// decimals (timestamps, text).
func seedDerivedValues(row store.Row, sortedFormulas []domain.Formula) formula.DerivedValues {
	seed := make(formula.DerivedValues, len(row))
	if row == nil {
		return seed
	}
	for key, value := range row {
		if key == "_id" || strings.HasSuffix(key, "_mapping_key") {
			continue
		}
		d, ok := formula.ToDecimal(value)
		if !ok {
			continue
		}
		seed[strings.ToLower(key)] = d
	}
	return seed
}
