package plan

import (
	"path/filepath"
	"sort"

	"github.com/moonbitlang/moon/internal/graph"
	"github.com/moonbitlang/moon/internal/resolve"
	"github.com/moonbitlang/moon/internal/specialcase"
)

// Plan is the closed-under-dependencies node set and edge relation computed
// from a set of Selections, ready for internal/lower to turn into concrete
// commands and internal/executor to run.
type Plan struct {
	Nodes []Node
	Edges map[string][]string // node key -> dependency node keys
	byKey map[string]Node
}

func newPlan() *Plan {
	return &Plan{Edges: make(map[string][]string), byKey: make(map[string]Node)}
}

func (p *Plan) add(n Node) (key string, isNew bool) {
	key = n.Key()
	if _, ok := p.byKey[key]; ok {
		return key, false
	}
	p.byKey[key] = n
	p.Nodes = append(p.Nodes, n)
	return key, true
}

// NodeByKey looks up a node previously added to the plan.
func (p *Plan) NodeByKey(key string) (Node, bool) {
	n, ok := p.byKey[key]
	return n, ok
}

// Build computes the fixpoint closure of sels under closure
// table: each Selection contributes an initial node set ("Initial nodes"),
// and Build performs deterministic BFS over node dependencies
// (depsOf) until no new node is discovered. Grounded on solver.go's
// selectAtom/unselectLast worklist, with backtracking removed since
// internal/resolve has already fixed one version per module by the time a
// plan is built.
func Build(g *graph.Graph, ig *resolve.ImportGraph, sels []Selection, opts Options) (*Plan, error) {
	if opts.Coverage {
		applyCoverage(g)
	}

	p := newPlan()
	var queue []Node

	for _, s := range sels {
		for _, n := range initialNodes(g, s, opts) {
			queue = append(queue, n)
		}
	}

	var derr error
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]

		key, isNew := p.add(n)
		if !isNew {
			continue
		}

		deps, err := depsOf(g, ig, n, opts)
		if err != nil {
			derr = err
			break
		}
		depKeys := make([]string, 0, len(deps))
		for _, d := range deps {
			depKeys = append(depKeys, d.Key())
			queue = append(queue, d)
		}
		sort.Strings(depKeys)
		p.Edges[key] = depKeys
	}
	if derr != nil {
		return nil, derr
	}
	return p, nil
}

// applyCoverage folds the coverage runtime's stub sources into the builtin
// package before the closure is built, so every later BuildPackage node for
// builtin picks them up as ordinary NativeStubs with no separate node kind.
func applyCoverage(g *graph.Graph) {
	builtin, ok := g.Packages[specialcase.CoveragePackageName]
	if !ok {
		return
	}
	specialcase.MergeCoverageIntoBuiltin(g.Packages, []string{filepath.Join(builtin.Dir, "coverage_rt.c")})
}

// initialNodes implements "Initial nodes" table.
func initialNodes(g *graph.Graph, s Selection, opts Options) []Node {
	src := graph.BuildTarget{Package: s.Package, Kind: graph.TargetSource}
	pkg := g.Packages[s.Package]

	switch s.Intent {
	case IntentCheck:
		nodes := []Node{{Kind: NodeCheck, Target: src}}
		nodes = append(nodes, checkTestNodes(pkg, s.Package)...)
		return nodes
	case IntentBuild:
		if pkg != nil && (pkg.IsMain || len(pkg.Link) > 0) {
			return []Node{{Kind: NodeMakeExecutable, Target: src}}
		}
		return buildPackageNodesForModule(g, pkg, s.Package)
	case IntentRun:
		return []Node{{Kind: NodeMakeExecutable, Target: src}}
	case IntentBundle:
		if pkg == nil {
			return []Node{{Kind: NodeLinkBundle, Module: ""}}
		}
		return []Node{{Kind: NodeLinkBundle, Module: pkg.Module}}
	case IntentGenerateInfo:
		return []Node{{Kind: NodeGenerateMbti, Target: src}}
	case IntentTest, IntentBench:
		if !opts.matchesTest(s.Package) {
			return nil
		}
		var nodes []Node
		if pkg != nil && pkg.HasWhitebox() {
			t := graph.BuildTarget{Package: s.Package, Kind: graph.TargetWhitebox}
			nodes = append(nodes, Node{Kind: NodeMakeExecutable, Target: t})
		}
		if pkg != nil && pkg.HasBlackbox() {
			t := graph.BuildTarget{Package: s.Package, Kind: graph.TargetBlackbox}
			nodes = append(nodes, Node{Kind: NodeMakeExecutable, Target: t})
		}
		// Every package with a Source target also gets its inline
		// ("Source compiled with test flags") target exercised.
		nodes = append(nodes, Node{Kind: NodeMakeExecutable, Target: graph.BuildTarget{Package: s.Package, Kind: graph.TargetInline}})
		return nodes
	default:
		return nil
	}
}

// buildPackageNodesForModule implements the "otherwise" arm of the Build
// intent: a package that is neither main nor linkable doesn't produce an
// executable, so building it means compiling every Source target in its
// owning module, not just the one package named on the command line.
func buildPackageNodesForModule(g *graph.Graph, pkg *graph.Package, id graph.PackageID) []Node {
	if pkg == nil {
		return []Node{{Kind: NodeBuildPackage, Target: graph.BuildTarget{Package: id, Kind: graph.TargetSource}}}
	}
	siblings := g.PackagesInModule(pkg.Module)
	sort.Slice(siblings, func(i, j int) bool { return siblings[i].ID < siblings[j].ID })
	nodes := make([]Node, 0, len(siblings))
	for _, p := range siblings {
		nodes = append(nodes, Node{Kind: NodeBuildPackage, Target: graph.BuildTarget{Package: p.ID, Kind: graph.TargetSource}})
	}
	return nodes
}

func checkTestNodes(pkg *graph.Package, id graph.PackageID) []Node {
	if pkg == nil {
		return nil
	}
	var nodes []Node
	if pkg.HasWhitebox() {
		nodes = append(nodes, Node{Kind: NodeCheck, Target: graph.BuildTarget{Package: id, Kind: graph.TargetWhitebox}})
	}
	if pkg.HasBlackbox() {
		nodes = append(nodes, Node{Kind: NodeCheck, Target: graph.BuildTarget{Package: id, Kind: graph.TargetBlackbox}})
	}
	return nodes
}

// depsOf implements closure correspondence table: the
// dependency set of a single node, as a pure function of (Node, the
// resolved graph, the import graph, global config).
func depsOf(g *graph.Graph, ig *resolve.ImportGraph, n Node, opts Options) ([]Node, error) {
	switch n.Kind {
	case NodeCheck:
		imps, err := ig.ImportsOf(n.Target)
		if err != nil {
			return nil, err
		}
		var deps []Node
		for _, imp := range imps {
			deps = append(deps, Node{Kind: NodeCheck, Target: graph.BuildTarget{Package: imp.Path, Kind: graph.TargetSource}})
		}
		return deps, nil

	case NodeBuildPackage:
		imps, err := ig.ImportsOf(n.Target)
		if err != nil {
			return nil, err
		}
		var deps []Node
		for _, imp := range imps {
			deps = append(deps, Node{Kind: NodeBuildPackage, Target: graph.BuildTarget{Package: imp.Path, Kind: graph.TargetSource}})
			if ipkg, err := g.Package(imp.Path); err == nil && ipkg.Virtual != nil {
				deps = append(deps, Node{Kind: NodeBuildInterface, Package: imp.Path})
			}
		}
		if pkg, err := g.Package(n.Target.Package); err == nil {
			for i := range pkg.PreBuild {
				deps = append(deps, Node{Kind: NodeRunPrebuild, Package: n.Target.Package, TaskIndex: i})
			}
		}
		if n.Target.Kind != graph.TargetSource {
			deps = append(deps, Node{Kind: NodeGenerateTestInfo, Target: n.Target, DriverKind: n.Target.Kind})
		}
		if opts.Coverage && n.Target.Package != specialcase.CoveragePackageName && specialcase.NeedsCoverageEdge(n.Target.Package, n.Target.Kind) {
			deps = append(deps, Node{Kind: NodeBuildPackage, Target: graph.BuildTarget{Package: specialcase.CoveragePackageName, Kind: graph.TargetSource}})
		}
		return deps, nil

	case NodeBuildInterface:
		src := graph.BuildTarget{Package: n.Package, Kind: graph.TargetSource}
		imps, err := ig.ImportsOf(src)
		if err != nil {
			return nil, err
		}
		var deps []Node
		for _, imp := range imps {
			if ipkg, err := g.Package(imp.Path); err == nil && ipkg.Virtual != nil {
				deps = append(deps, Node{Kind: NodeBuildInterface, Package: imp.Path})
			} else {
				deps = append(deps, Node{Kind: NodeBuildPackage, Target: graph.BuildTarget{Package: imp.Path, Kind: graph.TargetSource}})
			}
		}
		return deps, nil

	case NodeLinkCore:
		closure, err := transitiveSourceClosure(g, ig, n.Target, opts)
		if err != nil {
			return nil, err
		}
		var deps []Node
		for r := range closure {
			deps = append(deps, Node{Kind: NodeBuildPackage, Target: graph.BuildTarget{Package: r, Kind: graph.TargetSource}})
		}
		deps = append(deps, Node{Kind: NodeBuildPackage, Target: n.Target})
		if opts.Backend != "" {
			deps = append(deps, Node{Kind: NodeBuildRuntime, Backend: opts.Backend})
		}
		return deps, nil

	case NodeMakeExecutable:
		closure, err := transitiveSourceClosure(g, ig, n.Target, opts)
		if err != nil {
			return nil, err
		}
		deps := []Node{{Kind: NodeLinkCore, Target: n.Target}}
		for r := range closure {
			if rpkg, err := g.Package(r); err == nil && len(rpkg.NativeStubs) > 0 {
				deps = append(deps, Node{Kind: NodeArchiveCStubs, Package: r})
			}
		}
		if tpkg, err := g.Package(n.Target.Package); err == nil && len(tpkg.NativeStubs) > 0 {
			deps = append(deps, Node{Kind: NodeArchiveCStubs, Package: n.Target.Package})
		}
		return deps, nil

	case NodeArchiveCStubs:
		pkg, err := g.Package(n.Package)
		if err != nil {
			return nil, err
		}
		deps := make([]Node, 0, len(pkg.NativeStubs))
		for i := range pkg.NativeStubs {
			deps = append(deps, Node{Kind: NodeBuildCStub, Package: n.Package, StubIndex: i})
		}
		return deps, nil

	case NodeGenerateMbti:
		return []Node{{Kind: NodeCheck, Target: n.Target}}, nil

	case NodeGenerateTestInfo:
		return []Node{{Kind: NodeCheck, Target: n.Target}}, nil

	case NodeLinkBundle:
		pkgs := g.PackagesInModule(n.Module)
		sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].ID < pkgs[j].ID })
		deps := make([]Node, 0, len(pkgs))
		for _, p := range pkgs {
			deps = append(deps, Node{Kind: NodeBuildPackage, Target: graph.BuildTarget{Package: p.ID, Kind: graph.TargetSource}})
		}
		return deps, nil

	case NodeBuildCStub, NodeRunPrebuild, NodeBuildRuntime:
		return nil, nil

	default:
		return nil, nil
	}
}

// transitiveSourceClosure walks the Source-target import graph reachable
// from t, substituting any virtual import for its resolved implementation
// (scoped to t.Package as the consumer "Virtual-package
// substitution (scoped)") and returns the set of packages whose Source must
// be linked in. t.Package itself is excluded; the caller adds it.
func transitiveSourceClosure(g *graph.Graph, ig *resolve.ImportGraph, t graph.BuildTarget, opts Options) (map[graph.PackageID]bool, error) {
	seen := map[graph.PackageID]bool{t.Package: true}
	var walk func(target graph.BuildTarget) error
	walk = func(target graph.BuildTarget) error {
		imps, err := ig.ImportsOf(target)
		if err != nil {
			return err
		}
		for _, imp := range imps {
			impl, err := resolveImplementation(g, opts.Overrides, t.Package, imp.Path)
			if err != nil {
				return err
			}
			if seen[impl] {
				continue
			}
			seen[impl] = true
			if err := walk(graph.BuildTarget{Package: impl, Kind: graph.TargetSource}); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(t); err != nil {
		return nil, err
	}
	delete(seen, t.Package)
	return seen, nil
}
