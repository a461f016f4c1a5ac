package resolve

import (
	"github.com/pkg/errors"

	"github.com/moonbitlang/moon/internal/graph"
	"github.com/moonbitlang/moon/internal/moonerr"
)

// ImportGraph holds, for every build target in the resolved package graph,
// its validated, alias-resolved import list.
type ImportGraph struct {
	index *moduleIndex
	byTarget map[graph.BuildTarget][]graph.Import
}

// ValidateAndExpand walks every package's three import lists, validating
// each entry (transitive-module rejection, internal visibility, duplicate
// aliases) and returns the resulting per-target import graph. directDeps
// is the set of module names the input module depends on directly (as
// opposed to transitively).
func ValidateAndExpand(g *graph.Graph, directDeps map[graph.ModuleName]bool) (*ImportGraph, error) {
	mi := buildModuleIndex(g)
	ig := &ImportGraph{index: mi, byTarget: make(map[graph.BuildTarget][]graph.Import)}

	for _, pkg := range g.Packages {
		for _, kind := range []graph.BuildTargetKind{graph.TargetSource, graph.TargetInline, graph.TargetWhitebox, graph.TargetBlackbox} {
			imps := pkg.ImportsFor(kind)
			if err := checkDuplicateAliases(pkg, kind, imps); err != nil {
				return nil, err
			}
			for _, imp := range imps {
				if err := CheckTransitiveImport(g, mi, pkg, imp.Path, directDeps); err != nil {
					return nil, err
				}
				if err := CheckInternalVisibility(pkg, imp.Path); err != nil {
					return nil, err
				}
			}
			ig.byTarget[graph.BuildTarget{Package: pkg.ID, Kind: kind}] = imps
		}
	}

	if err := checkPackageCycles(g, ig); err != nil {
		return nil, err
	}
	return ig, nil
}

func checkDuplicateAliases(pkg *graph.Package, kind graph.BuildTargetKind, imps []graph.Import) error {
	seen := make(map[string]graph.PackageID, len(imps))
	for _, i := range imps {
		if prev, dup := seen[i.Alias]; dup && prev != i.Path {
			return &moonerr.ImportError{
				Importer:  string(pkg.ID),
				Importee:  string(i.Path),
				Violation: "duplicate import alias " + i.Alias + " (also used for " + string(prev) + ") in " + kind.String(),
			}
		}
		seen[i.Alias] = i.Path
	}
	return nil
}

// checkPackageCycles detects cycles in the Source-target import graph and
// treats one as a fatal error — except that a whitebox-test target is
// allowed to cycle back through its own package's Source target, because
// it is compiled together with (and replaces) that package's Source in
// the link graph; plan.LinkOrder's topo-sort resolves that case separately.
func checkPackageCycles(g *graph.Graph, ig *ImportGraph) error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[graph.PackageID]int, len(g.Packages))
	var stack []graph.PackageID

	var visit func(id graph.PackageID) error
	visit = func(id graph.PackageID) error {
		color[id] = gray
		stack = append(stack, id)
		imps := ig.byTarget[graph.BuildTarget{Package: id, Kind: graph.TargetSource}]
		for _, imp := range imps {
			switch color[imp.Path] {
			case white:
				if err := visit(imp.Path); err != nil {
					return err
				}
			case gray:
				return &moonerr.ImportError{
					Importer:  string(id),
					Importee:  string(imp.Path),
					Violation: "package import cycle: " + cyclePath(stack, imp.Path),
				}
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return nil
	}

	for id := range g.Packages {
		if color[id] == white {
			if err := visit(id); err != nil {
				return err
			}
		}
	}
	return nil
}

func cyclePath(stack []graph.PackageID, back graph.PackageID) string {
	out := ""
	started := false
	for _, id := range stack {
		if id == back {
			started = true
		}
		if started {
			out += string(id) + " -> "
		}
	}
	return out + string(back)
}

// DirectDependencyModules returns root's own name plus the set of module
// names root directly depends on (its own Deps keys), as opposed to modules
// only reachable transitively through those.
func DirectDependencyModules(root *graph.Module) map[graph.ModuleName]bool {
	out := map[graph.ModuleName]bool{root.Name: true}
	for name := range root.Deps {
		out[graph.ModuleName(name)] = true
	}
	return out
}

// ImportsOf returns the validated import list for a build target, or an
// error if the target is unknown to this import graph.
func (ig *ImportGraph) ImportsOf(t graph.BuildTarget) ([]graph.Import, error) {
	imps, ok := ig.byTarget[t]
	if !ok {
		return nil, errors.Errorf("no import data for target %s", t)
	}
	return imps, nil
}
