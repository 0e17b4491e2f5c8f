// Package formula implements the arithmetic-formula pipeline: C6
// (parser), C7 (dependency scheduler), and C8 (per-row evaluator) of
// SPEC_FULL.md §2, grammar per §4.2.
package formula

import "regexp"

// qualifiedRefPattern matches "<coll>.<field>" references. The
// collection name must start with a letter or underscore so a literal
// like "0.05" is never parsed as coll=0, field=05 (§4.2, §8 property 7,
// S2 in §8).
var qualifiedRefPattern = regexp.MustCompile(`([a-zA-Z_]\w*)\.(\w+)`)

// derivedRefPattern matches standalone derived-field references:
// identifiers of at least 3 uppercase/digit/underscore characters
// starting with an uppercase letter (§4.2).
var derivedRefPattern = regexp.MustCompile(`\b[A-Z][A-Z0-9_]{2,}\b`)

// safeExpressionPattern is the post-substitution safety check of §4.2
// step 3 / §8 property 7: only digits, arithmetic operators,
// parentheses, and whitespace may remain.
var safeExpressionPattern = regexp.MustCompile(`^[0-9+\-*/().\s]+$`)
