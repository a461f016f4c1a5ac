package manifest

import (
	"encoding/json"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/moonbitlang/moon/internal/graph"
)

// rawImport captures the two array-element forms a single import entry may
// take: a bare string, or an object with path/alias/value/sub-package.
type rawImport struct {
	Path        string `json:"-"`
	Alias       string `json:"alias,omitempty"`
	Value       string `json:"value,omitempty"`
	SubPackage  string `json:"sub-package,omitempty"`
}

func (r *rawImport) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		r.Path = s
		return nil
	}
	type alias struct {
		Path       string `json:"path"`
		Alias      string `json:"alias,omitempty"`
		Value      string `json:"value,omitempty"`
		SubPackage string `json:"sub-package,omitempty"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	r.Path, r.Alias, r.Value, r.SubPackage = a.Path, a.Alias, a.Value, a.SubPackage
	return nil
}

// rawImportList accepts either the map form (name -> alias) or the array
// form (mixed strings and objects).
type rawImportList []rawImport

func (r *rawImportList) UnmarshalJSON(data []byte) error {
	// Try array form first.
	var arr []rawImport
	if err := json.Unmarshal(data, &arr); err == nil {
		*r = arr
		return nil
	}
	// Fall back to map form: name -> alias string.
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	out := make(rawImportList, 0, len(m))
	for path, alias := range m {
		out = append(out, rawImport{Path: path, Alias: alias})
	}
	*r = out
	return nil
}

func (r rawImportList) toImports() []graph.Import {
	out := make([]graph.Import, 0, len(r))
	for _, i := range r {
		alias := i.Alias
		if alias == "" {
			alias = lastPathSegment(i.Path)
		}
		out = append(out, graph.Import{Path: graph.PackageID(i.Path), Alias: alias})
	}
	return out
}

func lastPathSegment(p string) string {
	return filepath.Base(p)
}

type rawLinkWasm struct {
	Exports          []string `json:"exports,omitempty"`
	ImportMemory     *struct {
		Module string `json:"module"`
		Name   string `json:"name"`
	} `json:"import-memory,omitempty"`
	ExportMemoryName string `json:"export-memory-name,omitempty"`
	MemoryLimits     *struct {
		Min int `json:"min"`
		Max int `json:"max"`
	} `json:"memory-limits,omitempty"`
	SharedMemory       bool     `json:"shared-memory,omitempty"`
	HeapStartAddress   int      `json:"heap-start-address,omitempty"`
	UseJSBuiltinString bool     `json:"use-js-builtin-string,omitempty"`
	Flags              []string `json:"flags,omitempty"`
}

type rawLinkJS struct {
	Exports []string `json:"exports,omitempty"`
	Format  string   `json:"format,omitempty"`
}

type rawLinkNative struct {
	CC              string   `json:"cc,omitempty"`
	CCFlags         []string `json:"cc-flags,omitempty"`
	CCLinkFlags     []string `json:"cc-link-flags,omitempty"`
	StubCC          string   `json:"stub-cc,omitempty"`
	StubCCFlags     []string `json:"stub-cc-flags,omitempty"`
	StubCCLinkFlags []string `json:"stub-cc-link-flags,omitempty"`
	Exports         []string `json:"exports,omitempty"`
}

type rawLink struct {
	Wasm   *rawLinkWasm   `json:"wasm,omitempty"`
	WasmGC *rawLinkWasm   `json:"wasm-gc,omitempty"`
	JS     *rawLinkJS     `json:"js,omitempty"`
	Native *rawLinkNative `json:"native,omitempty"`
}

type rawVirtual struct {
	HasDefault bool `json:"has-default"`
}

type rawPreBuild struct {
	Input   string `json:"input"`
	Output  string `json:"output"`
	Command string `json:"command"`
}

type rawPackage struct {
	IsMain        bool             `json:"is-main,omitempty"`
	Import        rawImportList    `json:"import,omitempty"`
	WbTestImport  rawImportList    `json:"wbtest-import,omitempty"`
	TestImport    rawImportList    `json:"test-import,omitempty"`
	TestImportAll bool             `json:"test-import-all,omitempty"`
	Link          *rawLink         `json:"link,omitempty"`
	NativeStub    []string         `json:"native-stub,omitempty"`
	Virtual       *rawVirtual      `json:"virtual,omitempty"`
	Implement     string           `json:"implement,omitempty"`
	Overrides     []string         `json:"overrides,omitempty"`
	PreBuild      []rawPreBuild    `json:"pre-build,omitempty"`
	Targets       map[string]json.RawMessage `json:"targets,omitempty"`
	SupportedTargets []string      `json:"supported-targets,omitempty"`
	WarnList      string           `json:"warn-list,omitempty"`
	AlertList     string           `json:"alert-list,omitempty"`
}

// ParsePackage decodes a moon.pkg.json document, producing a *graph.Package
// whose ID and Dir are filled in by the caller (internal/scan), since the
// manifest itself does not know its own fully-qualified name.
func ParsePackage(data []byte) (*graph.Package, error) {
	var rp rawPackage
	if err := json.Unmarshal(data, &rp); err != nil {
		return nil, errors.Wrap(err, "decoding "+PackageManifestName)
	}

	p := &graph.Package{
		IsMain:        rp.IsMain,
		Imports:       rp.Import.toImports(),
		WbTestImports: rp.WbTestImport.toImports(),
		TestImports:   rp.TestImport.toImports(),
		TestImportAll: rp.TestImportAll,
		NativeStubs:   rp.NativeStub,
	}

	if rp.Virtual != nil {
		p.Virtual = &graph.VirtualConfig{HasDefault: rp.Virtual.HasDefault}
	}
	p.Implements = graph.PackageID(rp.Implement)
	for _, o := range rp.Overrides {
		p.Overrides = append(p.Overrides, graph.PackageID(o))
	}
	for _, pb := range rp.PreBuild {
		p.PreBuild = append(p.PreBuild, graph.PreBuildTask{Input: pb.Input, Output: pb.Output, Command: pb.Command})
	}
	if len(rp.Targets) > 0 {
		p.Targets = make(map[string]string, len(rp.Targets))
		for fname, raw := range rp.Targets {
			expr, err := condExprFromJSON(raw)
			if err != nil {
				return nil, errors.Wrapf(err, "targets[%s]", fname)
			}
			p.Targets[fname] = expr
		}
	}
	for _, b := range rp.SupportedTargets {
		p.SupportedTargets = append(p.SupportedTargets, graph.Backend(b))
	}

	p.Link = buildLinkConfig(rp.Link)

	return p, nil
}

// condExprFromJSON normalizes the `targets` value, which the manifest may
// express either as a single expression string or as an array of atoms
// (implicit "or"), into the internal textual expression syntax
// internal/lower/condcomp.go parses. A JSON object is rejected.
func condExprFromJSON(raw json.RawMessage) (string, error) {
	var arr []string
	if err := json.Unmarshal(raw, &arr); err == nil {
		return "(" + joinOr(arr) + ")", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	return "", errors.New("targets entry must be a string or an array of strings")
}

func joinOr(atoms []string) string {
	out := ""
	for i, a := range atoms {
		if i > 0 {
			out += " or "
		}
		out += a
	}
	return out
}

func buildLinkConfig(rl *rawLink) map[graph.Backend]graph.LinkConfig {
	if rl == nil {
		return nil
	}
	out := make(map[graph.Backend]graph.LinkConfig)
	if rl.Wasm != nil {
		out[graph.BackendWasm] = wasmLinkConfig(graph.BackendWasm, rl.Wasm)
	}
	if rl.WasmGC != nil {
		out[graph.BackendWasmGC] = wasmLinkConfig(graph.BackendWasmGC, rl.WasmGC)
	}
	if rl.JS != nil {
		out[graph.BackendJS] = graph.LinkConfig{Backend: graph.BackendJS, Exports: rl.JS.Exports, Format: rl.JS.Format}
	}
	if rl.Native != nil {
		out[graph.BackendNative] = graph.LinkConfig{
			Backend:         graph.BackendNative,
			CC:              rl.Native.CC,
			CCFlags:         rl.Native.CCFlags,
			CCLinkFlags:     rl.Native.CCLinkFlags,
			StubCC:          rl.Native.StubCC,
			StubCCFlags:     rl.Native.StubCCFlags,
			StubCCLinkFlags: rl.Native.StubCCLinkFlags,
			Exports:         rl.Native.Exports,
		}
	}
	return out
}

func wasmLinkConfig(backend graph.Backend, rw *rawLinkWasm) graph.LinkConfig {
	lc := graph.LinkConfig{
		Backend:            backend,
		Exports:            rw.Exports,
		ExportMemoryName:   rw.ExportMemoryName,
		SharedMemory:       rw.SharedMemory,
		HeapStartAddress:   rw.HeapStartAddress,
		UseJSBuiltinString: rw.UseJSBuiltinString,
		Flags:              rw.Flags,
	}
	if rw.ImportMemory != nil {
		lc.ImportMemoryMod = rw.ImportMemory.Module
		lc.ImportMemoryName = rw.ImportMemory.Name
	}
	if rw.MemoryLimits != nil {
		lc.MemoryLimitsMin = rw.MemoryLimits.Min
		lc.MemoryLimitsMax = rw.MemoryLimits.Max
	}
	return lc
}
