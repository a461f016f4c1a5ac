// Package manifest parses and validates moon.mod.json and moon.pkg.json,
// converting their raw JSON shapes into the internal/graph data model.
// Grounded on manifest.go's rawManifest/Manifest split: decode into a raw,
// JSON-shaped struct first, then validate and convert into the strongly
// typed form the rest of the pipeline consumes.
package manifest

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/moonbitlang/moon/internal/graph"
)

const (
	ModuleManifestName  = "moon.mod.json"
	PackageManifestName = "moon.pkg.json"
)

// rawBinDep mirrors the two accepted shapes of a bin-deps entry: a bare
// version-requirement string, or an object naming a path and bin-pkgs.
type rawBinDep struct {
	asString string
	Path     string   `json:"path,omitempty"`
	BinPkg   []string `json:"bin-pkg,omitempty"`
}

func (r *rawBinDep) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.asString = s
		return nil
	}
	type alias rawBinDep
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = rawBinDep(a)
	return nil
}

type rawModule struct {
	Name    string               `json:"name"`
	Version string               `json:"version,omitempty"`
	Deps    map[string]string    `json:"deps,omitempty"`
	BinDeps map[string]rawBinDep `json:"bin-deps,omitempty"`
	Source  *string              `json:"source,omitempty"`
	Include []string             `json:"include,omitempty"`
	Exclude []string             `json:"exclude,omitempty"`
	WarnList  string             `json:"warn-list,omitempty"`
	AlertList string             `json:"alert-list,omitempty"`
}

// ParseModule decodes a moon.mod.json document from r, rooted at the
// absolute directory rootDir, and validates its module name.
func ParseModule(r io.Reader, rootDir string) (*graph.Module, error) {
	var rm rawModule
	dec := json.NewDecoder(r)
	if err := dec.Decode(&rm); err != nil {
		return nil, errors.Wrap(err, "decoding "+ModuleManifestName)
	}

	name := graph.ModuleName(rm.Name)
	if err := name.Validate(); err != nil {
		// Tolerate legacy forms (one or three segments) on read, though a
		// two-segment name is the only one MarshalModule ever writes back out.
		if lerr := name.LooseValidate(); lerr != nil {
			return nil, errors.Wrap(lerr, "invalid module name")
		}
	}

	source := ""
	if rm.Source != nil {
		s := strings.TrimSpace(*rm.Source)
		if s != "." {
			source = s
		}
	}

	m := &graph.Module{
		Name:    name,
		Version: rm.Version,
		Deps:    rm.Deps,
		Source:  source,
		RootDir: rootDir,
		BinDeps: make(map[string]graph.BinDep, len(rm.BinDeps)),
	}
	for n, bd := range rm.BinDeps {
		if bd.asString != "" {
			m.BinDeps[n] = graph.BinDep{VersionReq: bd.asString}
		} else {
			m.BinDeps[n] = graph.BinDep{Path: bd.Path, BinPkgs: bd.BinPkg}
		}
	}
	return m, nil
}

// MarshalModule encodes m back into the moon.mod.json JSON shape, kept
// symmetric with ParseModule.
func MarshalModule(m *graph.Module) ([]byte, error) {
	rm := rawModule{
		Name:    string(m.Name),
		Version: m.Version,
		Deps:    m.Deps,
	}
	if m.Source != "" {
		s := m.Source
		rm.Source = &s
	}
	rm.BinDeps = make(map[string]rawBinDep, len(m.BinDeps))
	for n, bd := range m.BinDeps {
		if bd.Path == "" {
			rm.BinDeps[n] = rawBinDep{asString: bd.VersionReq}
		} else {
			rm.BinDeps[n] = rawBinDep{Path: bd.Path, BinPkg: bd.BinPkgs}
		}
	}
	return json.MarshalIndent(rm, "", "  ")
}

func (r rawBinDep) MarshalJSON() ([]byte, error) {
	if r.Path == "" {
		return json.Marshal(r.asString)
	}
	type alias rawBinDep
	return json.Marshal(alias(r))
}
