// Package specialcase holds the build pipeline's compatibility shims as
// plain functions in one place, called from internal/scan, internal/plan
// and cmd/moon rather than scattered as conditionals through those
// packages.
package specialcase

import (
	"path/filepath"

	shutil "github.com/termie/go-shutil"

	"github.com/moonbitlang/moon/internal/graph"
)

// AbortPackageName is the designated standard-library "abort" package:
// every other package implicitly depends on its Source target, its
// artifacts are staged from a prebuilt location rather than rebuilt, and
// it never receives test targets or coverage instrumentation.
const AbortPackageName = "moonbitlang/core/abort"

// PreludePackageName is injected into every standard-library package's
// blackbox test-import list.
const PreludePackageName = "moonbitlang/core/prelude"

// CoveragePackageName is where coverage runtime support lives once merged
// into the builtin package, rather than kept as its own standalone package.
const CoveragePackageName = "moonbitlang/core/builtin"

const stdlibPrefix = "moonbitlang/core/"

// IsStdlib reports whether id belongs to the standard-library module
// prefix these shims key off of.
func IsStdlib(id graph.PackageID) bool {
	return len(id) >= len(stdlibPrefix) && string(id)[:len(stdlibPrefix)] == stdlibPrefix
}

// IsAbortExempt reports whether id is the abort package itself, which must
// not get the implicit self-dependency every other package gets.
func IsAbortExempt(id graph.PackageID) bool {
	return id == AbortPackageName
}

// InjectAbortDependency adds the implicit abort-package import to every
// package other than the abort package itself and the packages the abort
// package's own Source target transitively needs (to avoid a self-cycle).
func InjectAbortDependency(pkgs map[graph.PackageID]*graph.Package) {
	exempt := abortTransitiveClosure(pkgs)
	for id, p := range pkgs {
		if exempt[id] {
			continue
		}
		if hasImport(p.Imports, AbortPackageName) {
			continue
		}
		p.Imports = append(p.Imports, graph.Import{Path: AbortPackageName, Alias: "abort"})
	}
}

// abortTransitiveClosure returns the abort package itself plus every package
// its (pre-injection) Source import list reaches, transitively.
func abortTransitiveClosure(pkgs map[graph.PackageID]*graph.Package) map[graph.PackageID]bool {
	seen := map[graph.PackageID]bool{AbortPackageName: true}
	var walk func(id graph.PackageID)
	walk = func(id graph.PackageID) {
		p, ok := pkgs[id]
		if !ok {
			return
		}
		for _, imp := range p.Imports {
			if !seen[imp.Path] {
				seen[imp.Path] = true
				walk(imp.Path)
			}
		}
	}
	walk(AbortPackageName)
	return seen
}

// InjectPreludeImport extends every stdlib package's blackbox test-import
// list with the prelude package.
func InjectPreludeImport(pkgs map[graph.PackageID]*graph.Package) {
	for id, p := range pkgs {
		if !IsStdlib(id) || id == PreludePackageName {
			continue
		}
		if hasImport(p.TestImports, PreludePackageName) {
			continue
		}
		p.TestImports = append(p.TestImports, graph.Import{Path: PreludePackageName, Alias: "prelude"})
	}
}

// MergeCoverageIntoBuiltin folds the coverage runtime's native stub sources
// into the builtin package's own NativeStubs list, so that coverage
// instrumentation never needs its own separately-linked package.
func MergeCoverageIntoBuiltin(pkgs map[graph.PackageID]*graph.Package, coverageStubs []string) {
	builtin, ok := pkgs[CoveragePackageName]
	if !ok {
		return
	}
	builtin.NativeStubs = append(builtin.NativeStubs, coverageStubs...)
}

// NeedsCoverageEdge reports whether kind is one of the target kinds
// instrumented for coverage (Source, Inline, Whitebox — never Blackbox,
// which exercises the package from the outside and whose coverage would
// double-count the Source target's own regions), and pkg is not exempt
// (the abort package never receives coverage).
func NeedsCoverageEdge(pkg graph.PackageID, kind graph.BuildTargetKind) bool {
	if IsAbortExempt(pkg) {
		return false
	}
	switch kind {
	case graph.TargetSource, graph.TargetInline, graph.TargetWhitebox:
		return true
	default:
		return false
	}
}

// StagePrebuiltAbort copies the abort package's prebuilt artifact directory
// into the target directory's check/build location, standing in for a real
// BuildPackage/LinkCore run.
func StagePrebuiltAbort(prebuiltDir, destDir string) error {
	return shutil.CopyTree(prebuiltDir, filepath.Clean(destDir), nil)
}

func hasImport(imps []graph.Import, path graph.PackageID) bool {
	for _, i := range imps {
		if i.Path == path {
			return true
		}
	}
	return false
}
