// Package domain holds the data-model types (§3): the
// shapes shared across ingestion, staging, formula evaluation, and
// merge, so that no lower-level package needs to import a higher one.
package domain

import (
	"strings"
	"time"
)

// MissingUniqueIDPolicy controls C4/C5 behavior when a DataSource's
// unique_ids fields are partially missing from a row (§4's Open
// Question #2).
type MissingUniqueIDPolicy string

const (
	// InsertWithNullID inserts the row with unique_id=null (current
	// behavior of the source system), logging a warning.
	InsertWithNullID MissingUniqueIDPolicy = "insert_with_null_id"
	// RejectRow refuses to promote the row at all: the promoter counts it
	// in Summary.Rejected and leaves it in the raw collection.
	RejectRow MissingUniqueIDPolicy = "reject"
)

// MissingDeltaPolicy controls C10 behavior when a Reason names a delta
// column that was never produced (§4's Open Question #3).
type MissingDeltaPolicy string

const (
	// TreatAsZero resolves a missing delta column to 0 (current
	// behavior of the source system).
	TreatAsZero MissingDeltaPolicy = "treat_as_zero"
	// ForceUnreconciled marks the row UNRECONCILED outright when a
	// referenced delta column never materialized.
	ForceUnreconciled MissingDeltaPolicy = "force_unreconciled"
)

// DataSource is a named input stream configuration (§3).
type DataSource struct {
	Name                string                `bson:"name"`
	UniqueIDs           []string              `bson:"unique_ids"`
	SelectedFields      []string              `bson:"selected_fields"`
	OnMissingUniqueID   MissingUniqueIDPolicy `bson:"on_missing_unique_id"`
	CreatedAt           time.Time             `bson:"created_at"`
}

// ConditionOperator is one of the comparison operators a FormulaDocument's
// per-source conditions list may use (§3, §4.3 step 4a).
type ConditionOperator string

const (
	OpEq  ConditionOperator = "eq"
	OpNe  ConditionOperator = "ne"
	OpGt  ConditionOperator = "gt"
	OpLt  ConditionOperator = "lt"
	OpGe  ConditionOperator = "ge"
	OpLe  ConditionOperator = "le"
	OpIn  ConditionOperator = "in"
	OpNin ConditionOperator = "nin"
)

// FieldCondition is one filter predicate applied to a source
// collection before its formulas run (§3 FormulaDocument.conditions).
type FieldCondition struct {
	Column   string            `bson:"column"`
	Operator ConditionOperator `bson:"operator"`
	Value    any               `bson:"value"`
}

// PiecewiseConditionType enumerates the clause kinds a Formula's
// conditions list may use (§3 Formula.conditions).
type PiecewiseConditionType string

const (
	CondEqual        PiecewiseConditionType = "equal"
	CondGreaterThan  PiecewiseConditionType = "greater_than"
	CondLessThan     PiecewiseConditionType = "less_than"
	CondGreaterEqual PiecewiseConditionType = "greater_equal"
	CondLessEqual    PiecewiseConditionType = "less_equal"
	CondBetween      PiecewiseConditionType = "between"
)

// PiecewiseCondition is one clause of a Formula's optional lookup
// table (§3, §4.2 step 5).
type PiecewiseCondition struct {
	ConditionType PiecewiseConditionType `bson:"conditionType"`
	Value1        string                 `bson:"value1"`
	Value2        string                 `bson:"value2,omitempty"`
	FormulaValue  string                 `bson:"formulaValue"`
}

// Formula is one derived column definition (§3).
type Formula struct {
	LogicNameKey string               `bson:"logicNameKey"`
	FormulaText  string               `bson:"formulaText"`
	Conditions   []PiecewiseCondition `bson:"conditions,omitempty"`
}

// DeltaColumn is a post-merge arithmetic expression over derived
// fields (§3).
type DeltaColumn struct {
	DeltaColumnName string `bson:"delta_column_name"`
	Value           string `bson:"value"`
}

// Reason emits a textual tag when a delta column exceeds a threshold
// (§3).
type Reason struct {
	Reason       string  `bson:"reason"`
	DeltaColumn  string  `bson:"delta_column"`
	Threshold    float64 `bson:"threshold"`
	MustCheck    bool    `bson:"must_check"`
}

// MappingKeyEntry is one source-collection's mapping-key field list.
// mapping_keys is modeled as an ordered slice rather than a bare map
// so that §4.3 step 1's "fall back to the first key of mapping_keys"
// has a well-defined meaning (first as configured, not Go's randomized
// map order).
type MappingKeyEntry struct {
	Collection string   `bson:"collection"`
	Fields     []string `bson:"fields"`
}

// MappingKeys is the ordered mapping_keys list of a FormulaDocument (§3).
type MappingKeys []MappingKeyEntry

// Fields returns the configured field list for collection, or nil if
// the collection has no mapping_keys entry.
func (m MappingKeys) Fields(collection string) []string {
	for _, e := range m {
		if e.Collection == collection {
			return e.Fields
		}
	}
	return nil
}

// Collections returns the configured collection names in order.
func (m MappingKeys) Collections() []string {
	out := make([]string, len(m))
	for i, e := range m {
		out[i] = e.Collection
	}
	return out
}

// FormulaDocument is a full report specification (§3).
type FormulaDocument struct {
	ReportName         string                      `bson:"report_name"`
	Formulas           []Formula                   `bson:"formulas"`
	MappingKeys        MappingKeys                  `bson:"mapping_keys"`
	Conditions         map[string][]FieldCondition `bson:"conditions,omitempty"`
	DeltaColumns       []DeltaColumn                `bson:"delta_columns,omitempty"`
	Reasons            []Reason                     `bson:"reasons,omitempty"`
	MissingDeltaPolicy MissingDeltaPolicy           `bson:"missing_delta_policy"`
}

// UploadStatus is the lifecycle of an uploaded-file record (§6
// collection layout, §7 user-visible failure paths).
type UploadStatus string

const (
	StatusUploaded  UploadStatus = "uploaded"
	StatusProcessing UploadStatus = "processing"
	StatusProcessed UploadStatus = "processed"
	StatusFailed    UploadStatus = "failed"
)

// UploadedFile is a per-file upload record (§6 collection layout).
type UploadedFile struct {
	FileID     string       `bson:"file_id"`
	DataSource string       `bson:"data_source"`
	Status     UploadStatus `bson:"status"`
	RowCount   int64        `bson:"row_count"`
	Error      string       `bson:"error,omitempty"`
	StartedAt  time.Time    `bson:"started_at"`
	FinishedAt time.Time    `bson:"finished_at,omitempty"`
}

// Collection naming conventions (§6 "Collection layout") shared by
// ingest, promote, merge, and job so every package agrees on where a
// DataSource's raw/staged/backup rows and a report's output rows live
// without needing to thread string constants through every call site.
// RawCollectionName is "<name>" itself: §6 lists the data source's own
// (lowercased) name as its raw staging collection.
func RawCollectionName(dataSource string) string {
	return strings.ToLower(dataSource)
}

// ProcessedCollectionName is "<name>_processed" — the collection a
// DataSource's promoted, sanitized rows live in (§6, merge's read side
// at §4.3 step 4). The promoter ensures an ordinary index on unique_id
// there; the index does not enforce uniqueness.
func ProcessedCollectionName(dataSource string) string {
	return strings.ToLower(dataSource) + "_processed"
}

// BackupCollectionName is "<name>_backup" — the append-only archive of
// promoted rows (§6).
func BackupCollectionName(dataSource string) string {
	return strings.ToLower(dataSource) + "_backup"
}

// ReportCollectionName is "<report_name>" itself: §6 stores the
// evaluated report under the report's own name, with no prefix.
func ReportCollectionName(reportName string) string {
	return reportName
}

// MappingKeyField names the stamped attribute a report row carries for
// a given source collection's mapping key (§4.3 steps 1-4e).
func MappingKeyField(collection string) string {
	return collection + "_mapping_key"
}

const (
	// ProcessedAtField is stamped on every promoted and merged row.
	ProcessedAtField = "processed_at"
	// ReasonField and ReconciliationStatusField are stamped by C10.
	ReasonField               = "reason"
	ReconciliationStatusField = "reconciliation_status"
)

// ReconciliationStatus is the final per-row state stamped by C10 (§3).
type ReconciliationStatus string

const (
	Reconciled   ReconciliationStatus = "RECONCILED"
	Unreconciled ReconciliationStatus = "UNRECONCILED"
)
