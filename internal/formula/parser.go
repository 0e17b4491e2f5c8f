package formula

import "strings"

// ParsedFormula is the output of parsing one Formula's text (C6).
type ParsedFormula struct {
	// Collections lists the source collections referenced, in first
	// occurrence order; Collections[0] is the primary collection for
	// this formula (§4.2).
	Collections []string
	// FieldsByCollection maps each referenced collection to the
	// distinct field names referenced on it.
	FieldsByCollection map[string][]string
	// DerivedRefs lists the distinct derived-field identifiers
	// referenced, uppercased (§4.2).
	DerivedRefs []string
}

// Parse extracts collection.field references and standalone derived
// references from a formula's text (C6, §4.2).
func Parse(formulaText string) ParsedFormula {
	matches := qualifiedRefPattern.FindAllStringSubmatch(formulaText, -1)

	collections := make([]string, 0)
	collectionSeen := make(map[string]bool)
	fields := make(map[string][]string)
	fieldSeen := make(map[string]map[string]bool)
	derived := make(map[string]bool)

	qualifiedSpans := make(map[string]bool) // "coll.field" pairs, for standalone-ref exclusion

	for _, m := range matches {
		coll, field := m[1], m[2]
		qualifiedSpans[coll+"."+field] = true

		// A field name that is itself a derived-reference shape
		// (uppercase identifier) is a calculated reference even when
		// it looks like it's qualified by a collection, matching the
		// source's "zomato.CALCULATED_TOTAL" edge case.
		if isDerivedShape(field) {
			derived[strings.ToUpper(field)] = true
			continue
		}

		if !collectionSeen[coll] {
			collectionSeen[coll] = true
			collections = append(collections, coll)
		}
		if fieldSeen[coll] == nil {
			fieldSeen[coll] = map[string]bool{}
		}
		if !fieldSeen[coll][field] {
			fieldSeen[coll][field] = true
			fields[coll] = append(fields[coll], field)
		}
	}

	for _, ref := range derivedRefPattern.FindAllString(formulaText, -1) {
		if isPartOfQualifiedRef(formulaText, ref, qualifiedSpans) {
			continue
		}
		derived[strings.ToUpper(ref)] = true
	}

	derivedList := make([]string, 0, len(derived))
	for d := range derived {
		derivedList = append(derivedList, d)
	}

	return ParsedFormula{
		Collections:        collections,
		FieldsByCollection: fields,
		DerivedRefs:        derivedList,
	}
}

func isDerivedShape(s string) bool {
	return derivedRefPattern.MatchString(s) && strings.ToUpper(s) == s
}

// isPartOfQualifiedRef reports whether a standalone-looking derived
// reference actually appears as the collection or field half of a
// "coll.field" pattern elsewhere in the text, so it isn't double
// counted as a derived reference (§4.2 parser note).
func isPartOfQualifiedRef(text, ref string, qualifiedSpans map[string]bool) bool {
	for span := range qualifiedSpans {
		parts := strings.SplitN(span, ".", 2)
		if len(parts) == 2 && (strings.EqualFold(parts[0], ref) || strings.EqualFold(parts[1], ref)) {
			return true
		}
	}
	return strings.Contains(text, "."+ref) || strings.Contains(text, ref+".")
}
