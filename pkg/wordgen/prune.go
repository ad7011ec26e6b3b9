package wordgen

// Prune removes all transitions with a weight below minWeight, dropping any
// context left without candidates. This shrinks models built from noisy
// dictionaries by discarding rare, often misspelled constructions. It returns
// the number of transitions removed.
//
// Pruning may leave candidates whose own context no longer exists; the
// generator treats such dead ends as forced word completion.
func (m *Model) Prune(minWeight int) int {
	removed := 0
	for context, weights := range m.transitions {
		for segment, weight := range weights {
			if weight < minWeight {
				delete(weights, segment)
				m.totalWeight -= weight
				removed++
			}
		}
		if len(weights) == 0 {
			delete(m.transitions, context)
		}
	}
	return removed
}
