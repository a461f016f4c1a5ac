package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/moonbitlang/moon/internal/executor"
	"github.com/moonbitlang/moon/internal/graph"
	"github.com/moonbitlang/moon/internal/lockfile"
	"github.com/moonbitlang/moon/internal/lower"
	"github.com/moonbitlang/moon/internal/moonctx"
	"github.com/moonbitlang/moon/internal/plan"
	"github.com/moonbitlang/moon/internal/resolve"
	"github.com/moonbitlang/moon/internal/scan"
	"github.com/moonbitlang/moon/internal/specialcase"
	"github.com/moonbitlang/moon/internal/toolchain"
)

// stderrLogger adapts *log.Logger-style Printf to executor.Logger without
// pulling in the standard logger when -q is set.
type stderrLogger struct{}

func (stderrLogger) Printf(format string, args ...interface{}) {
	if *quiet {
		return
	}
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

// selectPackages maps CLI positional args to package IDs: an empty args
// list selects every package with an `is-main` flag (the project's own
// executables); otherwise an arg selects a package whose full ID, or whose
// last path segment, equals it exactly (no substring matching).
func selectPackages(pkgs map[graph.PackageID]*graph.Package, args []string) []graph.PackageID {
	var ids []graph.PackageID
	if len(args) == 0 {
		for id, p := range pkgs {
			if p.IsMain {
				ids = append(ids, id)
			}
		}
	} else {
		want := make(map[string]bool, len(args))
		for _, a := range args {
			want[a] = true
		}
		for id := range pkgs {
			for a := range want {
				if string(id) == a || filepath.Base(string(id)) == a {
					ids = append(ids, id)
				}
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// pipelineResult carries everything a caller needs once the plan/lower
// stages have run, so the test subcommand can go on to dispatch the built
// test executables without re-driving scan/resolve/plan from scratch.
type pipelineResult struct {
	proj      *scan.Project
	g         *graph.Graph
	ig        *resolve.ImportGraph
	layout    lower.Layout
	tc        lower.Toolchain
	targetDir string
	ids       []graph.PackageID
	opts      plan.Options
}

// buildSelection is the shared scan -> resolve imports -> plan -> lower ->
// execute pipeline every build/check/run/test/bundle/bench subcommand
// drives, in one function. When dryRun is set it prints the stable command
// dump instead of executing.
func buildSelection(mc *moonctx.Ctx, intent plan.Intent, backend graph.Backend, mode graph.Mode, pkgArgs []string, testMatches func(graph.PackageID) bool) (*pipelineResult, []executor.Result, error) {
	proj, err := mc.LoadProject(*dirFlag)
	if err != nil {
		return nil, nil, err
	}

	g := graph.New(proj.Module.Name)
	g.Modules[proj.Module.Name] = proj.Module
	for id, p := range proj.Packages {
		g.Packages[id] = p
	}

	directDeps := resolve.DirectDependencyModules(proj.Module)
	ig, err := resolve.ValidateAndExpand(g, directDeps)
	if err != nil {
		return nil, nil, err
	}

	ids := selectPackages(proj.Packages, pkgArgs)
	if len(ids) == 0 {
		return nil, nil, fmt.Errorf("no package selected (pass a package path, or mark one `is-main` in %s)", "moon.pkg.json")
	}
	sels := make([]plan.Selection, len(ids))
	for i, id := range ids {
		sels[i] = plan.Selection{Package: id, Intent: intent}
	}
	opts := plan.Options{Backend: backend, Mode: mode, TestMatches: testMatches, Coverage: *coverage}

	p, err := plan.Build(g, ig, sels, opts)
	if err != nil {
		return nil, nil, err
	}

	targetDir := *targetDirFlag
	if targetDir == "" {
		targetDir = filepath.Join(proj.Module.RootDir, "target")
	}
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return nil, nil, err
	}

	lk, err := lockfile.Acquire(targetDir)
	if err != nil {
		return nil, nil, err
	}
	defer lk.Release()

	layout := lower.Layout{Root: targetDir, Backend: backend, Mode: mode}
	tc := lower.Toolchain{
		Moonc:   mustDiscover("moonc", mc.BinDir()),
		MoonRun: mustDiscover("moonrun", mc.BinDir()),
		CC:      mustDiscover("cc", mc.BinDir()),
	}

	cmds := make([]lower.Command, 0, len(p.Nodes))
	for _, n := range p.Nodes {
		c, err := lower.Lower(g, ig, n, layout, tc, opts)
		if err != nil {
			return nil, nil, err
		}
		cmds = append(cmds, c)
	}

	stagePrebuiltAbort(mc, g, layout, cmds)

	res := &pipelineResult{proj: proj, g: g, ig: ig, layout: layout, tc: tc, targetDir: targetDir, ids: ids, opts: opts}

	if *dryRun {
		return res, nil, lower.DryRun(os.Stdout, cmds)
	}

	execGraph, err := executor.NewGraph(cmds, p.Edges)
	if err != nil {
		return nil, nil, err
	}

	cache, err := executor.OpenStampCache(filepath.Join(mc.CacheDir(), "stamps.db"))
	if err != nil {
		return nil, nil, err
	}
	defer cache.Close()

	runCtx, stop := executor.WithInterrupt(context.Background())
	defer stop()

	results, err := executor.Run(runCtx, execGraph, executor.RunOptions{
		JobLimit: runtime.NumCPU(),
		Cache:    cache,
		Log:      stderrLogger{},
	})
	return res, results, err
}

// runIntent drives buildSelection for the subcommands that only care about
// the build outcome (build/check/run/bundle/bench), printing any
// diagnostics collected along the way.
func runIntent(mc *moonctx.Ctx, intent plan.Intent, backend graph.Backend, mode graph.Mode, pkgArgs []string) error {
	_, results, err := buildSelection(mc, intent, backend, mode, pkgArgs, nil)
	for _, r := range results {
		for _, d := range r.Diags {
			fmt.Fprintf(os.Stderr, "%s: %s: %s\n", r.NodeKey, d.Level, d.Message)
		}
	}
	return err
}

// stagePrebuiltAbort copies a cached prebuilt abort package over its own
// check/build output locations and, on success, blanks the Program of its
// BuildPackage/LinkCore commands so the executor treats them as already
// satisfied rather than re-invoking moonc on a package that never changes.
func stagePrebuiltAbort(mc *moonctx.Ctx, g *graph.Graph, layout lower.Layout, cmds []lower.Command) {
	if _, err := g.Package(specialcase.AbortPackageName); err != nil {
		return
	}
	prebuiltDir := filepath.Join(mc.CacheDir(), "prebuilt", "abort")
	if !dirExists(prebuiltDir) {
		return
	}

	abortSrc := graph.BuildTarget{Package: specialcase.AbortPackageName, Kind: graph.TargetSource}
	checkDir := filepath.Dir(layout.CoreFile(abortSrc))
	buildDir := filepath.Dir(layout.LinkedCoreFile(abortSrc))

	checkStaged := specialcase.StagePrebuiltAbort(prebuiltDir, checkDir) == nil
	buildStaged := specialcase.StagePrebuiltAbort(prebuiltDir, buildDir) == nil

	for i := range cmds {
		if cmds[i].Node.Kind == plan.NodeBuildPackage && cmds[i].Node.Target.Package == specialcase.AbortPackageName && checkStaged {
			cmds[i].Program = ""
		}
		if cmds[i].Node.Kind == plan.NodeLinkCore && cmds[i].Node.Target.Package == specialcase.AbortPackageName && buildStaged {
			cmds[i].Program = ""
		}
	}
}

func dirExists(p string) bool {
	fi, err := os.Stat(p)
	return err == nil && fi.IsDir()
}

func mustDiscover(binary, binDir string) string {
	p, err := toolchain.Discover(binary, binDir)
	if err != nil {
		// Fall back to the bare name: lowering still produces a valid,
		// inspectable command for --dry-run even when the toolchain isn't
		// installed locally.
		return binary
	}
	return p
}

func parseBackend(s string) graph.Backend {
	if s == "" {
		return graph.BackendWasmGC
	}
	return graph.Backend(s)
}

func parseMode(release bool) graph.Mode {
	if release {
		return graph.ModeRelease
	}
	return graph.ModeDebug
}
