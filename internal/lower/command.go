package lower

import (
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/moonbitlang/moon/internal/graph"
	"github.com/moonbitlang/moon/internal/moonerr"
	"github.com/moonbitlang/moon/internal/plan"
	"github.com/moonbitlang/moon/internal/resolve"
)

// Toolchain is the set of resolved binary paths internal/toolchain hands to
// the lowering stage; kept as a plain struct here (rather than importing
// internal/toolchain's discovery machinery) so that internal/lower stays a
// pure function of its inputs and is trivial to unit test.
type Toolchain struct {
	Moonc   string // type-checker / codegen driver
	MoonRun string // wasm/js interpreter used by `moon run`/`moon test`
	CC      string // fallback C compiler, overridable per LinkConfig
}

// Command is the total-lowering-function output of: a single
// node becomes at most one subprocess invocation (none when Program is
// empty, which the executor treats as skipped) plus its declared inputs
// and outputs, which is all internal/executor needs to schedule and cache
// it.
type Command struct {
	Node    plan.Node
	Program string
	Args    []string
	Dir     string
	Inputs  []string
	Outputs []string
}

// Lower is the total function (node, graph, import graph, layout,
// toolchain) -> Command, grounded on pkg_analysis.go's per-unit compile
// command construction and txn_writer.go's declared-inputs/outputs
// discipline that internal/executor's staleness check depends on.
func Lower(g *graph.Graph, ig *resolve.ImportGraph, n plan.Node, l Layout, tc Toolchain, opts plan.Options) (Command, error) {
	switch n.Kind {
	case plan.NodeCheck:
		return lowerCheck(g, ig, n, l, tc)
	case plan.NodeBuildPackage:
		return lowerBuildPackage(g, ig, n, l, tc)
	case plan.NodeBuildInterface:
		return lowerBuildInterface(g, n, l, tc)
	case plan.NodeLinkCore:
		return lowerLinkCore(g, ig, n, l, tc, opts)
	case plan.NodeMakeExecutable:
		return lowerMakeExecutable(n, l, tc)
	case plan.NodeGenerateMbti:
		return lowerGenerateMbti(n, l, tc)
	case plan.NodeBuildCStub:
		return lowerBuildCStub(g, n, l, tc)
	case plan.NodeArchiveCStubs:
		return lowerArchiveCStubs(g, n, l, tc)
	case plan.NodeRunPrebuild:
		return lowerRunPrebuild(g, n, l)
	case plan.NodeBuildRuntime:
		return lowerBuildRuntime(n, l, tc)
	case plan.NodeGenerateTestInfo:
		return lowerGenerateTestInfo(n, l)
	case plan.NodeLinkBundle:
		return lowerLinkBundle(g, n, l, tc)
	default:
		return Command{}, &moonerr.LoweringError{Reason: "unknown node kind", Detail: n.String()}
	}
}

func lowerCheck(g *graph.Graph, ig *resolve.ImportGraph, n plan.Node, l Layout, tc Toolchain) (Command, error) {
	pkg, err := g.Package(n.Target.Package)
	if err != nil {
		return Command{}, err
	}
	imps, err := ig.ImportsOf(n.Target)
	if err != nil {
		return Command{}, err
	}
	args := []string{"check", "-pkg", string(pkg.ID)}
	inputs := sourceInputs(pkg, n.Target.Kind, l)
	for _, imp := range imps {
		args = append(args, "-i", l.MiFile(imp.Path)+":"+imp.Alias)
		inputs = append(inputs, l.MiFile(imp.Path))
	}
	return Command{
		Node: n, Program: tc.Moonc, Args: args, Dir: pkg.Dir,
		Inputs:  inputs,
		Outputs: []string{l.MiFile(pkg.ID)},
	}, nil
}

func lowerBuildPackage(g *graph.Graph, ig *resolve.ImportGraph, n plan.Node, l Layout, tc Toolchain) (Command, error) {
	pkg, err := g.Package(n.Target.Package)
	if err != nil {
		return Command{}, err
	}
	imps, err := ig.ImportsOf(n.Target)
	if err != nil {
		return Command{}, err
	}
	args := []string{"build-package", "-pkg", string(pkg.ID)}
	inputs := sourceInputs(pkg, n.Target.Kind, l)
	for _, imp := range imps {
		args = append(args, "-i", l.MiFile(imp.Path)+":"+imp.Alias)
		inputs = append(inputs, l.CoreFile(graph.BuildTarget{Package: imp.Path, Kind: graph.TargetSource}))
	}
	if n.Target.Kind != graph.TargetSource {
		tif := l.TestInfoFile(n.Target)
		args = append(args, "-test-info", tif)
		inputs = append(inputs, tif)
	}
	return Command{
		Node: n, Program: tc.Moonc, Args: args, Dir: pkg.Dir,
		Inputs:  inputs,
		Outputs: []string{l.CoreFile(n.Target)},
	}, nil
}

func lowerBuildInterface(g *graph.Graph, n plan.Node, l Layout, tc Toolchain) (Command, error) {
	pkg, err := g.Package(n.Package)
	if err != nil {
		return Command{}, err
	}
	if pkg.Virtual == nil {
		return Command{}, &moonerr.LoweringError{Reason: "BuildInterface on non-virtual package", Detail: string(n.Package)}
	}
	return Command{
		Node:    n,
		Program: tc.Moonc,
		Args:    []string{"build-interface", "-mbti", pkg.Virtual.InterfaceFile},
		Dir:     pkg.Dir,
		Inputs:  []string{pkg.Virtual.InterfaceFile},
		Outputs: []string{l.MiFile(pkg.ID)},
	}, nil
}

func lowerLinkCore(g *graph.Graph, ig *resolve.ImportGraph, n plan.Node, l Layout, tc Toolchain, opts plan.Options) (Command, error) {
	order, err := plan.LinkOrder(g, ig, n.Target, opts)
	if err != nil {
		return Command{}, err
	}
	args := []string{"link-core"}
	inputs := make([]string, 0, len(order))
	for _, t := range order {
		f := l.CoreFile(t)
		args = append(args, f)
		inputs = append(inputs, f)
	}
	return Command{
		Node: n, Program: tc.Moonc, Args: args,
		Inputs:  inputs,
		Outputs: []string{l.LinkedCoreFile(n.Target)},
	}, nil
}

// lowerLinkBundle archives every Source target in a module into a single
// distributable core artifact, the way `moon bundle` packages a library for
// consumption without ever producing an executable.
func lowerLinkBundle(g *graph.Graph, n plan.Node, l Layout, tc Toolchain) (Command, error) {
	pkgs := g.PackagesInModule(n.Module)
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].ID < pkgs[j].ID })
	args := []string{"link-core", "-bundle"}
	inputs := make([]string, 0, len(pkgs))
	for _, p := range pkgs {
		f := l.CoreFile(graph.BuildTarget{Package: p.ID, Kind: graph.TargetSource})
		args = append(args, f)
		inputs = append(inputs, f)
	}
	return Command{
		Node: n, Program: tc.Moonc, Args: args,
		Inputs:  inputs,
		Outputs: []string{l.BundleCoreFile(n.Module)},
	}, nil
}

func lowerMakeExecutable(n plan.Node, l Layout, tc Toolchain) (Command, error) {
	linked := l.LinkedCoreFile(n.Target)
	out := l.ExecutableFile(n.Target)
	args := []string{"make-executable", "-o", out, linked}
	program := tc.Moonc
	if l.Backend == graph.BackendNative || l.Backend == graph.BackendLLVM {
		program = tc.CC
	}
	return Command{
		Node: n, Program: program, Args: args,
		Inputs:  []string{linked},
		Outputs: []string{out},
	}, nil
}

func lowerGenerateMbti(n plan.Node, l Layout, tc Toolchain) (Command, error) {
	mi := l.MiFile(n.Target.Package)
	return Command{
		Node: n, Program: tc.Moonc,
		Args:    []string{"build-interface", "-i", mi, "-o", l.MbtiFile(n.Target)},
		Inputs:  []string{mi},
		Outputs: []string{l.MbtiFile(n.Target)},
	}, nil
}

func lowerGenerateTestInfo(n plan.Node, l Layout) (Command, error) {
	return Command{
		Node:    n,
		Program: "", // no subprocess: the executor skips this node and nothing here writes the test-info file
		Outputs: []string{l.TestInfoFile(n.Target)},
	}, nil
}

func lowerBuildCStub(g *graph.Graph, n plan.Node, l Layout, tc Toolchain) (Command, error) {
	pkg, err := g.Package(n.Package)
	if err != nil {
		return Command{}, err
	}
	if n.StubIndex < 0 || n.StubIndex >= len(pkg.NativeStubs) {
		return Command{}, errors.Errorf("stub index %d out of range for package %s", n.StubIndex, n.Package)
	}
	src := pkg.NativeStubs[n.StubIndex]
	cc, flags := tc.CC, []string(nil)
	if lc, ok := pkg.Link[graph.BackendNative]; ok && lc.StubCC != "" {
		cc, flags = lc.StubCC, lc.StubCCFlags
	}
	out := l.CStubObjectFile(n.Package, n.StubIndex)
	args := append(append([]string{"-c", "-o", out}, flags...), src)
	return Command{
		Node: n, Program: cc, Args: args, Dir: pkg.Dir,
		Inputs:  []string{src},
		Outputs: []string{out},
	}, nil
}

func lowerArchiveCStubs(g *graph.Graph, n plan.Node, l Layout, tc Toolchain) (Command, error) {
	pkg, err := g.Package(n.Package)
	if err != nil {
		return Command{}, err
	}
	inputs := make([]string, len(pkg.NativeStubs))
	for i := range pkg.NativeStubs {
		inputs[i] = l.CStubObjectFile(n.Package, i)
	}
	out := l.CStubArchiveFile(n.Package)
	args := append([]string{"rcs", out}, inputs...)
	return Command{
		Node: n, Program: "ar", Args: args,
		Inputs:  inputs,
		Outputs: []string{out},
	}, nil
}

func lowerRunPrebuild(g *graph.Graph, n plan.Node, l Layout) (Command, error) {
	pkg, err := g.Package(n.Package)
	if err != nil {
		return Command{}, err
	}
	if n.TaskIndex < 0 || n.TaskIndex >= len(pkg.PreBuild) {
		return Command{}, errors.Errorf("pre-build task index %d out of range for package %s", n.TaskIndex, n.Package)
	}
	return Command{
		Node:    n,
		Program: "", // no subprocess: the executor skips this node; RunPrebuildTask in prebuild.go is not called from here
		Outputs: []string{l.PrebuildOutputFile(pkg.Dir, pkg.PreBuild[n.TaskIndex].Output)},
		Inputs:  []string{l.PrebuildOutputFile(pkg.Dir, pkg.PreBuild[n.TaskIndex].Input)},
	}, nil
}

func lowerBuildRuntime(n plan.Node, l Layout, tc Toolchain) (Command, error) {
	out := filepath.Join(l.Root, string(n.Backend), "runtime.o")
	return Command{
		Node: n, Program: tc.CC,
		Args:    []string{"-c", "-o", out},
		Outputs: []string{out},
	}, nil
}

func sourceInputs(pkg *graph.Package, kind graph.BuildTargetKind, l Layout) []string {
	var out []string
	for _, f := range pkg.Files {
		switch {
		case f.Kind == graph.FileSource:
			out = append(out, f.Path)
		case kind == graph.TargetWhitebox && f.Kind == graph.FileWhiteboxTest:
			out = append(out, f.Path)
		case kind == graph.TargetBlackbox && (f.Kind == graph.FileBlackboxTest || f.Kind == graph.FileMarkdownTest):
			out = append(out, f.Path)
		}
	}
	for _, task := range pkg.PreBuild {
		out = append(out, l.PrebuildOutputFile(pkg.Dir, task.Output))
	}
	return out
}
