package resolve

import (
	"strings"

	radix "github.com/armon/go-radix"

	"github.com/moonbitlang/moon/internal/graph"
	"github.com/moonbitlang/moon/internal/moonerr"
)

// moduleIndex is a radix tree of every known package's full name, used for
// one longest-prefix lookup: which module owns a given package path (for
// the transitive-import check). The internal-visibility check does not use
// it; it compares path segments directly.
// Grounded on solver.go's intersectConstraintsWithImports, which builds an
// identical radix tree of project roots to find which project a reached
// import path belongs to.
type moduleIndex struct {
	byPackagePrefix *radix.Tree // package path prefix -> owning module name
}

func buildModuleIndex(g *graph.Graph) *moduleIndex {
	t := radix.New()
	for id, pkg := range g.Packages {
		t.Insert(string(id), pkg.Module)
	}
	return &moduleIndex{byPackagePrefix: t}
}

// owningModule returns the module that owns pkgID, using a longest-prefix
// match guarded against the "github.com/x/foo" vs "github.com/x/foobar"
// false-positive solver.go itself calls out.
func (mi *moduleIndex) owningModule(pkgID graph.PackageID) (graph.ModuleName, bool) {
	k, v, ok := mi.byPackagePrefix.LongestPrefix(string(pkgID))
	if !ok {
		return "", false
	}
	s := string(pkgID)
	if len(k) != len(s) && !strings.HasPrefix(s[len(k):], "/") {
		return "", false
	}
	return v.(graph.ModuleName), true
}

// CheckTransitiveImport enforces: an importer may reference a
// package in its own module or in a *direct* dependency module; a
// reference into a transitive-only module is rejected.
func CheckTransitiveImport(g *graph.Graph, mi *moduleIndex, importer *graph.Package, target graph.PackageID, directDeps map[graph.ModuleName]bool) error {
	owner, ok := mi.owningModule(target)
	if !ok {
		return &moonerr.ImportError{
			Importer:  string(importer.ID),
			Importee:  string(target),
			Violation: "package does not exist in the resolved dependency graph",
		}
	}
	if owner == importer.Module {
		return nil
	}
	if directDeps[owner] {
		return nil
	}
	return &moonerr.ImportError{
		Importer:  string(importer.ID),
		Importee:  string(target),
		Violation: "package belongs to module " + string(owner) + ", which is only a transitive dependency",
	}
}

// CheckInternalVisibility enforces: a path component named
// "internal" partitions visibility. An internal package may only be
// imported by packages whose full name shares the prefix up to (not
// including) the "internal" component.
func CheckInternalVisibility(importer *graph.Package, target graph.PackageID) error {
	segs := strings.Split(string(target), "/")
	idx := indexOf(segs, "internal")
	if idx < 0 {
		return nil // not an internal package
	}
	allowedPrefix := strings.Join(segs[:idx], "/")
	importerID := string(importer.ID)

	if importerID == allowedPrefix || strings.HasPrefix(importerID, allowedPrefix+"/") {
		return nil
	}
	return &moonerr.ImportError{
		Importer:  string(importer.ID),
		Importee:  string(target),
		Violation: "internal package outside " + allowedPrefix + " cannot be imported",
	}
}

func indexOf(segs []string, s string) int {
	for i, v := range segs {
		if v == s {
			return i
		}
	}
	return -1
}
