// Package graph holds the value-typed data model shared by every later
// stage of the pipeline: modules, packages, build targets and artifacts.
// Packages and targets are addressed by stable identifier rather than by
// pointer, so the resolved graph can be cheaply cloned into a plan without
// having to worry about cyclic back-edges between importers and importees.
package graph

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ModuleName is the fully-qualified name of a module, e.g. "user/name".
type ModuleName string

// Validate checks that m is a well-formed two-segment module name. Legacy
// one- or three-segment forms are tolerated by resolvers (LooseValidate)
// but rejected here: new validation accepts only the two-segment form.
func (m ModuleName) Validate() error {
	parts := strings.Split(string(m), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return errors.Errorf("module name %q is not of the form user/name", m)
	}
	return nil
}

// LooseValidate accepts the new user/name form as well as legacy one- and
// three-segment module names, which older manifests may still carry.
func (m ModuleName) LooseValidate() error {
	parts := strings.Split(string(m), "/")
	switch len(parts) {
	case 1, 2, 3:
		for _, p := range parts {
			if p == "" {
				return errors.Errorf("module name %q has an empty path segment", m)
			}
		}
		return nil
	default:
		return errors.Errorf("module name %q has an unsupported number of segments", m)
	}
}

// BinDep is a binary-only dependency: either a bare version requirement, or
// an object form naming a local/vcs path and the binary packages it
// provides.
type BinDep struct {
	VersionReq string
	Path       string
	BinPkgs    []string
}

// Module is a unit of dependency versioning: a directory subtree rooted at
// a module manifest.
type Module struct {
	Name    ModuleName
	Version string
	Deps    map[string]string // module name -> caret version requirement
	BinDeps map[string]BinDep
	Source  string // declared source subdirectory; "" means module root
	RootDir string // absolute path to the directory containing the manifest
}

// SourceRoot returns the absolute path to the root of m's source tree,
// applying the default: an empty, null, or "." source field
// means the source root equals the module root.
func (m *Module) SourceRoot() string {
	s := strings.TrimSpace(m.Source)
	if s == "" || s == "." {
		return m.RootDir
	}
	return filepath.Join(m.RootDir, s)
}
