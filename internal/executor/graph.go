// Package executor runs a lowered command set to a fixpoint, skipping
// nodes whose recorded fingerprint (program, arguments, and the path, size
// and mtime of each input) is unchanged and whose outputs all exist, grounded on
// solver.go's worklist-draining loop (stripped of backtracking) and on
// trace.go's structured progress reporting.
package executor

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/moonbitlang/moon/internal/lower"
)

// Graph is the concrete, ready-to-run execution graph: one entry per
// command, plus the dependency edges needed to schedule them in the right
// order, keyed by plan.Node.Key() (kept as a bare string here so this
// package does not need to import internal/plan just for a map key type).
type Graph struct {
	Commands map[string]lower.Command
	Deps     map[string][]string
}

// NewGraph builds an executor Graph from a lowered command set plus the
// plan's node-key dependency edges (internal/plan.Plan.Edges).
func NewGraph(cmds []lower.Command, edges map[string][]string) (*Graph, error) {
	g := &Graph{Commands: make(map[string]lower.Command, len(cmds)), Deps: edges}
	for _, c := range cmds {
		g.Commands[c.Node.Key()] = c
	}
	for key, deps := range edges {
		if _, ok := g.Commands[key]; !ok {
			return nil, errors.Errorf("execution graph has edges for unknown node %s", key)
		}
		for _, d := range deps {
			if _, ok := g.Commands[d]; !ok {
				return nil, errors.Errorf("execution graph node %s depends on unknown node %s", key, d)
			}
		}
	}
	return g, nil
}

// TopoLevels groups every node key into dependency-ordered levels: every
// key in level i has all its dependencies in levels < i. Nodes within a
// level are independent and safe to run concurrently, which is what
// run.go's worker pool iterates over.
func (g *Graph) TopoLevels() ([][]string, error) {
	remaining := make(map[string]int, len(g.Commands))
	dependents := make(map[string][]string, len(g.Commands))
	for key := range g.Commands {
		remaining[key] = len(g.Deps[key])
	}
	for key, deps := range g.Deps {
		for _, d := range deps {
			dependents[d] = append(dependents[d], key)
		}
	}

	var levels [][]string
	done := 0
	for done < len(g.Commands) {
		var level []string
		for key, n := range remaining {
			if n == 0 {
				level = append(level, key)
			}
		}
		if len(level) == 0 {
			return nil, errors.New("execution graph contains a dependency cycle")
		}
		sort.Strings(level)
		levels = append(levels, level)
		for _, key := range level {
			delete(remaining, key)
			done++
		}
		for _, key := range level {
			for _, dep := range dependents[key] {
				remaining[dep]--
			}
		}
	}
	return levels, nil
}
