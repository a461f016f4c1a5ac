package plan

import (
	"sort"

	"github.com/moonbitlang/moon/internal/graph"
	"github.com/moonbitlang/moon/internal/resolve"
)

// LinkOrder returns the packages a LinkCore(t) node must feed to the core
// linker, in dependency order (every package before anything that imports
// it), ready for internal/lower/command.go to turn into a flat argument
// list. It is computed from the same transitive closure as depsOf's
// NodeLinkCore case, not stored as plan edges: the whitebox self-cycle (a
// _wbtest.mbt file importing its own package) has to be resolved by
// ordering the linker's inputs, not by adding a graph edge that would make
// the plan itself cyclic.
//
// t.Package's own Source target never appears in this order when t.Kind is
// Whitebox: the whitebox target recompiles the package's own sources
// together with its _wbtest.mbt files as a single unit (graph.TargetWhitebox),
// which already supersedes the plain Source compilation for linking
// purposes.
func LinkOrder(g *graph.Graph, ig *resolve.ImportGraph, t graph.BuildTarget, opts Options) ([]graph.BuildTarget, error) {
	closure, err := transitiveSourceClosure(g, ig, t, opts)
	if err != nil {
		return nil, err
	}

	deps := make(map[graph.PackageID][]graph.PackageID, len(closure)+1)
	all := make([]graph.PackageID, 0, len(closure)+1)
	for id := range closure {
		all = append(all, id)
	}
	all = append(all, t.Package)

	for _, id := range all {
		self := graph.BuildTarget{Package: id, Kind: graph.TargetSource}
		if id == t.Package {
			self = t
		}
		imps, err := ig.ImportsOf(self)
		if err != nil {
			return nil, err
		}
		for _, imp := range imps {
			impl, err := resolveImplementation(g, opts.Overrides, t.Package, imp.Path)
			if err != nil {
				return nil, err
			}
			if impl == id {
				continue // self-import via virtual override resolving to itself
			}
			deps[id] = append(deps[id], impl)
		}
	}

	order, err := topoSort(all, deps)
	if err != nil {
		return nil, err
	}

	out := make([]graph.BuildTarget, 0, len(order))
	for _, id := range order {
		kind := graph.TargetSource
		if id == t.Package {
			kind = t.Kind
		}
		out = append(out, graph.BuildTarget{Package: id, Kind: kind})
	}
	return out, nil
}

// topoSort performs a deterministic (ID-order-tiebroken) topological
// sort: every id's dependencies precede it in the result.
func topoSort(ids []graph.PackageID, deps map[graph.PackageID][]graph.PackageID) ([]graph.PackageID, error) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[graph.PackageID]int, len(ids))
	var out []graph.PackageID

	var visit func(id graph.PackageID) error
	visit = func(id graph.PackageID) error {
		color[id] = gray
		ds := append([]graph.PackageID{}, deps[id]...)
		sort.Slice(ds, func(i, j int) bool { return ds[i] < ds[j] })
		for _, d := range ds {
			switch color[d] {
			case white:
				if err := visit(d); err != nil {
					return err
				}
			case gray:
				// Only reachable for a whitebox target's own self-import,
				// which LinkOrder's impl == id check already filters out; any
				// other gray hit means the Source-only cycle check in
				// internal/resolve missed something and is a bug, not a
				// user-facing error.
				continue
			}
		}
		color[id] = black
		out = append(out, id)
		return nil
	}

	for _, id := range ids {
		if color[id] == white {
			if err := visit(id); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
