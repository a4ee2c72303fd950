package graph

import (
	"fmt"
	"strings"

	"github.com/reconcile-labs/query-engine/pkg/apperrors"
)

// DefaultMaxJoinHops bounds path discovery when callers pass no limit.
const DefaultMaxJoinHops = 4

// FindPath returns the ordered list of edges connecting two tables,
// discovered by breadth-first search over the relationship edges. Shorter
// paths win; among shortest paths, paths with fewer inferred edges win,
// then total confidence decides.
//
// If both names resolve to the same canonical identifier the path is empty:
// the tables are already unified and no join clause may be emitted for
// them. This check runs before any traversal so the self-join guard holds
// even when alias resolution collapses two different phrases.
func (g *Graph) FindPath(a, b string, maxHops int) ([]Edge, error) {
	if maxHops <= 0 {
		maxHops = DefaultMaxJoinHops
	}

	ta, ok := g.Table(a)
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrTableNotResolved, a)
	}
	tb, ok := g.Table(b)
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrTableNotResolved, b)
	}

	if strings.EqualFold(ta.Canonical, tb.Canonical) {
		return []Edge{}, nil
	}

	startKey := strings.ToLower(ta.Canonical)
	targetKey := strings.ToLower(tb.Canonical)

	type pathState struct {
		table string // lowercase canonical of the frontier table
		edges []Edge
	}

	frontier := []pathState{{table: startKey}}
	visited := map[string]bool{startKey: true}
	var complete [][]Edge

	for depth := 0; depth < maxHops && len(complete) == 0 && len(frontier) > 0; depth++ {
		var next []pathState
		reachedThisDepth := map[string]bool{}

		for _, state := range frontier {
			for _, edge := range g.adj[state.table] {
				key := strings.ToLower(edge.TargetTable)

				// A table may appear once per path: revisiting would
				// create an accidental self-join. Bridge tables are
				// intermediate hops, which BFS already allows exactly once.
				if visited[key] && !reachedThisDepth[key] && key != targetKey {
					continue
				}

				extended := make([]Edge, len(state.edges), len(state.edges)+1)
				copy(extended, state.edges)
				extended = append(extended, edge)

				if key == targetKey {
					complete = append(complete, extended)
					continue
				}

				if !visited[key] || reachedThisDepth[key] {
					reachedThisDepth[key] = true
					next = append(next, pathState{table: key, edges: extended})
				}
			}
		}

		for key := range reachedThisDepth {
			visited[key] = true
		}
		frontier = next
	}

	if len(complete) == 0 {
		return nil, fmt.Errorf("%w: %s and %s within %d hops",
			apperrors.ErrUnjoinableTables, ta.Canonical, tb.Canonical, maxHops)
	}

	best := complete[0]
	for _, candidate := range complete[1:] {
		if pathBetter(candidate, best) {
			best = candidate
		}
	}
	return best, nil
}

// pathBetter reports whether a beats b. Both have equal length (BFS yields
// only shortest paths), so preference is fewer inferred edges, then higher
// total confidence, then lexicographic table order for determinism.
func pathBetter(a, b []Edge) bool {
	ai, bi := inferredCount(a), inferredCount(b)
	if ai != bi {
		return ai < bi
	}

	ac, bc := totalConfidence(a), totalConfidence(b)
	if ac != bc {
		return ac > bc
	}

	return pathKey(a) < pathKey(b)
}

func inferredCount(path []Edge) int {
	n := 0
	for _, e := range path {
		if e.Kind != EdgeKindForeignKey {
			n++
		}
	}
	return n
}

func totalConfidence(path []Edge) float64 {
	sum := 0.0
	for _, e := range path {
		sum += e.Confidence
	}
	return sum
}

func pathKey(path []Edge) string {
	var sb strings.Builder
	for _, e := range path {
		sb.WriteString(e.TargetTable)
		sb.WriteString("|")
		sb.WriteString(e.SourceColumn)
		sb.WriteString("|")
	}
	return sb.String()
}
