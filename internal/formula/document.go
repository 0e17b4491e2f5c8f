package formula

import "github.com/sidm01890/reconciler/internal/domain"

// FormulaWithMeta pairs a Formula with its parsed metadata, computed
// once per report evaluation rather than per row.
type FormulaWithMeta struct {
	Formula domain.Formula
	Parsed  ParsedFormula
}

// ParseAll parses every formula in a FormulaDocument (C6).
func ParseAll(formulas []domain.Formula) []FormulaWithMeta {
	out := make([]FormulaWithMeta, len(formulas))
	for i, f := range formulas {
		out[i] = FormulaWithMeta{Formula: f, Parsed: Parse(f.FormulaText)}
	}
	return out
}

// PrimaryCollection determines a report's primary collection (§4.3
// step 1): the first collection referenced by any formula's first
// reference (in formula order, then reference order), or the first
// key of mappingKeys when no formula references any collection.
func PrimaryCollection(parsed []FormulaWithMeta, mappingKeys domain.MappingKeys) string {
	for _, fm := range parsed {
		if len(fm.Parsed.Collections) > 0 {
			return fm.Parsed.Collections[0]
		}
	}
	if len(mappingKeys) > 0 {
		return mappingKeys[0].Collection
	}
	return ""
}

// PartitionByPrimaryCollection groups formulas by the collection that
// "owns" them (§4.3 step 2): a formula belongs to the first collection
// it references; formulas referencing no collection attach to the
// report's primary collection.
func PartitionByPrimaryCollection(parsed []FormulaWithMeta, primary string) map[string][]domain.Formula {
	out := map[string][]domain.Formula{}
	for _, fm := range parsed {
		owner := primary
		if len(fm.Parsed.Collections) > 0 {
			owner = fm.Parsed.Collections[0]
		}
		out[owner] = append(out[owner], fm.Formula)
	}
	return out
}
