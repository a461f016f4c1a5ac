// Package scan locates the enclosing module from a working directory and
// walks its source tree to discover every package. The production walk
// defers its directory syscalls to github.com/karrick/godirwalk, which
// visits directories depth-first in lexical order (not breadth-first),
// with a "stop descending into this subtree" decision at each directory
// for nested modules and ignored directories.
package scan

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"

	"github.com/moonbitlang/moon/internal/graph"
	"github.com/moonbitlang/moon/internal/manifest"
	"github.com/moonbitlang/moon/internal/specialcase"
)

// skipDirs are directory names that are never descended into while
// scanning a module's source tree.
var skipDirs = map[string]bool{
	".git":   true,
	".hg":    true,
	".svn":   true,
	"target": true,
	".mooncakes": true, // registry cache directory
}

// ErrKind classifies a scan failure public contract.
type ErrKind int

const (
	ErrManifestSyntax ErrKind = iota
	ErrDuplicatePackage
	ErrNestedModule
	ErrMissingManifest
)

type ScanError struct {
	Kind ErrKind
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return e.Err.Error()
}

func (e *ScanError) Unwrap() error { return e.Err }

// Project bundles a scanned module with its packages, the unit
// internal/moonctx hands to the CLI layer.
type Project struct {
	Module   *graph.Module
	Packages map[graph.PackageID]*graph.Package
}

// FindModuleRoot walks the ancestors of dir until it finds a directory
// containing moon.mod.json, returning that directory.
func FindModuleRoot(dir string) (string, error) {
	cur, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.Wrap(err, "resolving absolute path")
	}
	for {
		if _, err := os.Stat(filepath.Join(cur, manifest.ModuleManifestName)); err == nil {
			return cur, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", &ScanError{Kind: ErrMissingManifest, Path: dir, Err: errors.Errorf("no %s found above %s", manifest.ModuleManifestName, dir)}
		}
		cur = parent
	}
}

// Scan locates the enclosing module from projectRoot (or, if projectRoot
// already is a module root, uses it directly) and returns the resolved
// module plus every package found beneath its source root.
func Scan(projectRoot string) (*graph.Module, map[graph.PackageID]*graph.Package, error) {
	root, err := FindModuleRoot(projectRoot)
	if err != nil {
		return nil, nil, err
	}

	mf, err := os.Open(filepath.Join(root, manifest.ModuleManifestName))
	if err != nil {
		return nil, nil, errors.Wrap(err, "opening "+manifest.ModuleManifestName)
	}
	defer mf.Close()

	mod, err := manifest.ParseModule(mf, root)
	if err != nil {
		return nil, nil, &ScanError{Kind: ErrManifestSyntax, Path: root, Err: err}
	}

	pkgs, err := walkPackages(mod)
	if err != nil {
		return nil, nil, err
	}
	specialcase.InjectAbortDependency(pkgs)
	specialcase.InjectPreludeImport(pkgs)
	return mod, pkgs, nil
}

func walkPackages(mod *graph.Module) (map[graph.PackageID]*graph.Package, error) {
	srcRoot := mod.SourceRoot()
	pkgs := make(map[graph.PackageID]*graph.Package)

	err := godirwalk.Walk(srcRoot, &godirwalk.Options{
		Unsorted: false,
		Callback: func(osPathname string, de *godirwalk.Dirent) error {
			if osPathname == srcRoot {
				return nil
			}
			name := filepath.Base(osPathname)
			if !de.IsDir() {
				return nil
			}
			if skipDirs[name] || (strings.HasPrefix(name, ".") && name != ".") {
				return filepath.SkipDir
			}

			pkgManifestPath := filepath.Join(osPathname, manifest.PackageManifestName)
			hasPkgManifest := fileExists(pkgManifestPath)

			if nestedRoot := filepath.Join(osPathname, manifest.ModuleManifestName); fileExists(nestedRoot) {
				return &ScanError{Kind: ErrNestedModule, Path: osPathname, Err: errors.Errorf("nested module manifest found at %s", osPathname)}
			}

			if !hasPkgManifest {
				return nil
			}

			id, err := packageID(mod, srcRoot, osPathname)
			if err != nil {
				return err
			}
			if _, dup := pkgs[id]; dup {
				return &ScanError{Kind: ErrDuplicatePackage, Path: osPathname, Err: errors.Errorf("duplicate package %q", id)}
			}

			data, err := os.ReadFile(pkgManifestPath)
			if err != nil {
				return errors.Wrap(err, "reading "+manifest.PackageManifestName)
			}
			pkg, err := manifest.ParsePackage(data)
			if err != nil {
				return &ScanError{Kind: ErrManifestSyntax, Path: pkgManifestPath, Err: err}
			}
			pkg.ID = id
			pkg.Module = mod.Name
			pkg.Dir = osPathname

			files, err := classifyFiles(osPathname, pkg)
			if err != nil {
				return err
			}
			pkg.Files = files

			pkgs[id] = pkg
			return nil
		},
	})
	if err != nil {
		if se, ok := err.(*ScanError); ok {
			return nil, se
		}
		return nil, errors.Wrap(err, "walking source tree")
	}
	return pkgs, nil
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

// packageID derives a package's fully-qualified name: the module name
// joined to its path relative to the source root, using forward slashes.
func packageID(mod *graph.Module, srcRoot, pkgDir string) (graph.PackageID, error) {
	rel, err := filepath.Rel(srcRoot, pkgDir)
	if err != nil {
		return "", errors.Wrap(err, "computing package path")
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return graph.PackageID(mod.Name), nil
	}
	return graph.PackageID(string(mod.Name) + "/" + rel), nil
}

func classifyFiles(dir string, pkg *graph.Package) ([]graph.SourceFile, error) {
	stubSet := make(map[string]bool, len(pkg.NativeStubs))
	for _, s := range pkg.NativeStubs {
		stubSet[filepath.Base(s)] = true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "reading package directory")
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var files []graph.SourceFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		switch {
		case stubSet[name]:
			files = append(files, graph.SourceFile{Path: filepath.Join(dir, name), Name: name, Kind: graph.FileCStub})
		case strings.HasSuffix(name, ".mbt.md"):
			files = append(files, graph.SourceFile{Path: filepath.Join(dir, name), Name: name, Kind: graph.FileMarkdownTest})
		case hasCoreSuffix(name, "_wbtest", ".mbt"):
			files = append(files, graph.SourceFile{Path: filepath.Join(dir, name), Name: name, Kind: graph.FileWhiteboxTest})
		case hasCoreSuffix(name, "_test", ".mbt"):
			files = append(files, graph.SourceFile{Path: filepath.Join(dir, name), Name: name, Kind: graph.FileBlackboxTest})
		case strings.HasSuffix(name, ".mbt"):
			files = append(files, graph.SourceFile{Path: filepath.Join(dir, name), Name: name, Kind: graph.FileSource})
		}
	}
	return files, nil
}

// hasCoreSuffix reports whether name matches "<core>suffix(.platform)?ext",
// e.g. "foo_test.mbt" or "foo_test.native.mbt" both carry the "_test" core
// suffix before any platform infix that conditional compilation interprets
// separately.
func hasCoreSuffix(name, suffix, ext string) bool {
	if !strings.HasSuffix(name, ext) {
		return false
	}
	base := strings.TrimSuffix(name, ext)
	// Strip an optional ".<platform>" infix, e.g. "foo_test.native".
	if i := strings.LastIndex(base, "."); i >= 0 {
		base = base[:i]
	}
	return strings.HasSuffix(base, suffix)
}
