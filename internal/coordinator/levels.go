package coordinator

// Levels runs Kahn's algorithm over tasks' Dependencies to produce an
// ordered sequence of levels: every task in a level has all its
// dependencies satisfied by earlier levels, and tasks within one level have
// no dependency relationship between them (spec §4.9 step 2, invariant 3).
// Dependencies referencing a non-existent task id are ignored (in-degree
// adjusted, spec §4.9 step 1). Any tasks left over once no more tasks have
// zero in-degree form a cycle; they are returned separately and appended as
// a final best-effort level by the caller (spec §4.9 step 3).
//
// Ties within a level are broken by insertion order, matching the order
// tasks were given.
func Levels(tasks []Task) (levels [][]Task, cyclic []Task) {
	byID := make(map[string]Task, len(tasks))
	order := make(map[string]int, len(tasks))
	for i, t := range tasks {
		byID[t.ID] = t
		order[t.ID] = i
	}

	inDegree := make(map[string]int, len(tasks))
	dependents := make(map[string][]string)

	for _, t := range tasks {
		var effectiveDeps int
		for _, dep := range t.Dependencies {
			if _, ok := byID[dep]; !ok {
				continue // non-existent dependency: ignored, in-degree unaffected
			}
			effectiveDeps++
			dependents[dep] = append(dependents[dep], t.ID)
		}
		inDegree[t.ID] = effectiveDeps
	}

	remaining := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		remaining[t.ID] = true
	}

	for len(remaining) > 0 {
		var ready []string
		for id := range remaining {
			if inDegree[id] == 0 {
				ready = append(ready, id)
			}
		}
		if len(ready) == 0 {
			break // cycle: nothing left has in-degree 0
		}

		sortByInsertionOrder(ready, order)

		level := make([]Task, 0, len(ready))
		for _, id := range ready {
			level = append(level, byID[id])
			delete(remaining, id)
		}
		levels = append(levels, level)

		for _, id := range ready {
			for _, dep := range dependents[id] {
				if remaining[dep] {
					inDegree[dep]--
				}
			}
		}
	}

	if len(remaining) > 0 {
		var ids []string
		for id := range remaining {
			ids = append(ids, id)
		}
		sortByInsertionOrder(ids, order)
		for _, id := range ids {
			cyclic = append(cyclic, byID[id])
		}
	}

	return levels, cyclic
}

func sortByInsertionOrder(ids []string, order map[string]int) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && order[ids[j]] < order[ids[j-1]]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}
