package formula

import (
	"sort"
	"strings"

	"github.com/sidm01890/reconciler/internal/domain"
	"github.com/sidm01890/reconciler/internal/logging"
)

var schedulerLog = logging.For("formula.scheduler")

// SortByDependencies orders formulas by their derived-field
// dependencies using Kahn's algorithm with deterministic tie-breaking
// by original position (C7, §4.2, §8 property 6). A cycle degrades to
// original order with a warning (§4.2); formulas untouched by the sort
// are appended at the end.
func SortByDependencies(formulas []domain.Formula) []domain.Formula {
	n := len(formulas)
	if n == 0 {
		return formulas
	}

	indexByKey := make(map[string]int, n) // logicNameKey (upper) -> position
	deps := make([]map[string]bool, n)    // deps[i] = set of upper logicNameKeys formulas[i] depends on

	for i, f := range formulas {
		key := strings.ToUpper(f.LogicNameKey)
		if key == "" {
			continue
		}
		indexByKey[key] = i
	}
	for i, f := range formulas {
		parsed := Parse(f.FormulaText)
		set := make(map[string]bool, len(parsed.DerivedRefs))
		for _, ref := range parsed.DerivedRefs {
			if _, ok := indexByKey[ref]; ok {
				set[ref] = true
			}
		}
		deps[i] = set
	}

	inDegree := make([]int, n)
	dependents := make([][]int, n) // dependents[i] = formulas that depend on i
	for i, set := range deps {
		inDegree[i] = len(set)
		for dep := range set {
			j := indexByKey[dep]
			dependents[j] = append(dependents[j], i)
		}
	}

	var queue []int
	for i := 0; i < n; i++ {
		if inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	if len(queue) == 0 {
		schedulerLog.Warn("circular dependency detected among formulas; using original order")
		return formulas
	}

	sorted := make([]domain.Formula, 0, n)
	processed := make([]bool, n)

	for len(queue) > 0 {
		sort.Ints(queue)
		current := queue[0]
		queue = queue[1:]
		if processed[current] {
			continue
		}
		processed[current] = true
		sorted = append(sorted, formulas[current])

		for _, dependent := range dependents[current] {
			inDegree[dependent]--
			if inDegree[dependent] == 0 && !processed[dependent] {
				queue = append(queue, dependent)
			}
		}
	}

	for i, f := range formulas {
		if !processed[i] {
			schedulerLog.WithField("logicNameKey", f.LogicNameKey).
				Warn("formula not included in dependency sort; appending at end")
			sorted = append(sorted, f)
		}
	}

	return sorted
}
