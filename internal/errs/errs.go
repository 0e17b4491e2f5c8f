// Package errs collects the typed error kinds raised across the
// reconciliation pipeline. Kinds follow the teacher's convention in
// auth.ErrNotAuthorized: a package-level *errors.Kind built with
// gopkg.in/src-d/go-errors.v1, instantiated per occurrence with New(args...).
package errs

import (
	errorkind "gopkg.in/src-d/go-errors.v1"
)

var (
	// ErrUnknownDataSource is raised when an operation names a DataSource
	// that has not been registered.
	ErrUnknownDataSource = errorkind.NewKind("unknown data source: %s")

	// ErrDataSourceExists is raised by createDataSource for a name that
	// already has a configuration document.
	ErrDataSourceExists = errorkind.NewKind("data source already exists: %s")

	// ErrInvalidDataSource is raised when a DataSource configuration
	// violates its invariants (§3: unique_ids ⊆ selected_fields ∪ source columns).
	ErrInvalidDataSource = errorkind.NewKind("invalid data source %q: %s")

	// ErrMissingLogicNameKey is raised by defineReport validation.
	ErrMissingLogicNameKey = errorkind.NewKind("formula at position %d is missing logicNameKey")

	// ErrEmptyFormulaText is raised by defineReport validation.
	ErrEmptyFormulaText = errorkind.NewKind("formula %q has an empty formulaText")

	// ErrNoSelectedFields is raised by createDataSource / setSelectedFields validation.
	ErrNoSelectedFields = errorkind.NewKind("data source %q has no selected fields")

	// ErrUnknownReport is raised when getReport names an undefined report.
	ErrUnknownReport = errorkind.NewKind("unknown report: %s")

	// ErrAmbiguousLiteral describes a qualified reference that would read
	// a numeric literal as collection.field (§4.2). The formula parser
	// does not return it: its qualified-reference pattern never matches a
	// digit-led name, so no code path in this module raises this kind.
	ErrAmbiguousLiteral = errorkind.NewKind("formula %q: %q is a numeric literal, not a collection reference")

	// ErrUnsupportedConditionOperator is raised by the condition filter
	// builder (§4.3 step 4a) for an operator outside {eq,ne,gt,lt,ge,le,in,nin}.
	ErrUnsupportedConditionOperator = errorkind.NewKind("unsupported condition operator: %s")

	// ErrDivisionByZero signals a formula evaluation fault (§4.2 step 4);
	// the row continues with a zero result, per policy.
	ErrDivisionByZero = errorkind.NewKind("division by zero evaluating %q")

	// ErrUnresolvedReference describes a residual identifier that
	// survived substitution (§4.2 step 3). The evaluator reports that
	// case as a formula.Warning with a zero value instead; no code path
	// in this module raises this kind.
	ErrUnresolvedReference = errorkind.NewKind("formula %q: unresolved reference %q after substitution")

	// ErrCancelled describes a cooperative cancellation at a batch
	// boundary (§5). Promote, merge and job return ctx.Err() in that
	// case; no code path in this module raises this kind.
	ErrCancelled = errorkind.NewKind("job cancelled: %s")

	// ErrTransientStorage wraps a retryable storage error (§7).
	ErrTransientStorage = errorkind.NewKind("transient storage error: %s")
)
