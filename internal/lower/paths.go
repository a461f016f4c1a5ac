// Package lower turns a closed plan.Node into a concrete ({command, args},
// inputs, outputs) triple under a target directory layout, grounded on
// pkg_analysis.go/analysis.go's path-construction helpers and txn_writer.go's
// staged-write discipline.
package lower

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/moonbitlang/moon/internal/graph"
)

// Layout pins the target-directory root a build writes into. Every
// artifact path is `<Root>/<backend>/<mode>/<operation>/<pkg-path>/<file>`,
// so that two backends or two modes of the same project never collide and
// can be built in parallel without locking each other out (internal/lockfile
// only guards metadata, not per-artifact paths).
type Layout struct {
	Root    string
	Backend graph.Backend
	Mode    graph.Mode
}

func (l Layout) base(operation string, pkg graph.PackageID) string {
	return filepath.Join(l.Root, string(l.Backend), string(l.Mode), operation, filepath.FromSlash(string(pkg)))
}

// CoreFile is the compiled-package artifact of a BuildPackage node.
func (l Layout) CoreFile(t graph.BuildTarget) string {
	return filepath.Join(l.base("check", string(t.Package)), pkgFileStem(t.Package)+suffixFor(t.Kind)+".core")
}

// MiFile is the typed-interface artifact of a BuildInterface node.
func (l Layout) MiFile(pkg graph.PackageID) string {
	return filepath.Join(l.base("check", string(pkg)), pkgFileStem(pkg)+".mi")
}

// LinkedCoreFile is the single linked core artifact of a LinkCore node.
func (l Layout) LinkedCoreFile(t graph.BuildTarget) string {
	return filepath.Join(l.base("build", string(t.Package)), pkgFileStem(t.Package)+suffixFor(t.Kind)+"_linked.core")
}

// ExecutableFile is the final artifact of a MakeExecutable node, with its
// extension chosen by backend.
func (l Layout) ExecutableFile(t graph.BuildTarget) string {
	name := pkgFileStem(t.Package) + suffixFor(t.Kind)
	switch l.Backend {
	case graph.BackendWasm, graph.BackendWasmGC:
		name += ".wasm"
	case graph.BackendJS:
		name += ".js"
	case graph.BackendNative, graph.BackendLLVM:
		// no extension
	}
	return filepath.Join(l.base("build", string(t.Package)), name)
}

// BundleCoreFile is the single archive produced by a LinkBundle node, one
// per module rather than one per package.
func (l Layout) BundleCoreFile(mod graph.ModuleName) string {
	return filepath.Join(l.base("bundle", graph.PackageID(mod)), "bundle.core")
}

// CStubObjectFile is the compiled object of one native stub within a
// package, indexed by its position in graph.Package.NativeStubs.
func (l Layout) CStubObjectFile(pkg graph.PackageID, index int) string {
	return filepath.Join(l.base("cstubs", string(pkg)), cstubStem(index)+".o")
}

// CStubArchiveFile is the archived-together object set of a package's
// native stubs, consumed at link time on the native/LLVM backends.
func (l Layout) CStubArchiveFile(pkg graph.PackageID) string {
	return filepath.Join(l.base("cstubs", string(pkg)), pkgFileStem(pkg)+".a")
}

// MbtiFile is the standalone interface-dump artifact of a GenerateMbti
// node, generated for every target that produces a .mi artifact.
func (l Layout) MbtiFile(t graph.BuildTarget) string {
	return filepath.Join(l.base("check", string(t.Package)), pkgFileStem(t.Package)+".mbti")
}

// TestInfoFile is the JSON test-driver metadata of a GenerateTestInfo node.
func (l Layout) TestInfoFile(t graph.BuildTarget) string {
	return filepath.Join(l.base("test_info", string(t.Package)), pkgFileStem(t.Package)+"_"+t.Kind.String()+".json")
}

// PrebuildOutputFile resolves a pre-build task's declared output path
// relative to the package directory, mirroring `$output`
// substitution target.
func (l Layout) PrebuildOutputFile(pkgDir, output string) string {
	if filepath.IsAbs(output) {
		return output
	}
	return filepath.Join(pkgDir, output)
}

func pkgFileStem(pkg graph.PackageID) string {
	s := string(pkg)
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		s = s[i+1:]
	}
	return s
}

func cstubStem(index int) string {
	return "stub_" + strconv.Itoa(index)
}

func suffixFor(kind graph.BuildTargetKind) string {
	switch kind {
	case graph.TargetInline:
		return ".internal_test"
	case graph.TargetWhitebox:
		return ".whitebox_test"
	case graph.TargetBlackbox:
		return ".blackbox_test"
	default:
		return ""
	}
}
