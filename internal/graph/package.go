package graph

// PackageID is a package's fully-qualified name: the owning module's name
// joined to its path relative to the module's source root, using forward
// slashes regardless of host OS.
type PackageID string

// Backend is a compilation target backend.
type Backend string

const (
	BackendWasm   Backend = "wasm"
	BackendWasmGC Backend = "wasm-gc"
	BackendJS     Backend = "js"
	BackendNative Backend = "native"
	BackendLLVM   Backend = "llvm"
)

// AllBackends enumerates every backend recognized by conditional
// compilation and lowering.
var AllBackends = []Backend{BackendWasm, BackendWasmGC, BackendJS, BackendNative, BackendLLVM}

// Mode is the optimization/debug mode.
type Mode string

const (
	ModeDebug   Mode = "debug"
	ModeRelease Mode = "release"
)

// Import is one entry of a package's import, wbtest-import, or test-import
// list, after alias resolution.
type Import struct {
	Path  PackageID
	Alias string // referring name used within the importer
}

// LinkConfig is the per-backend `link` manifest field.
type LinkConfig struct {
	Backend Backend

	// WASM / WASM-GC
	Exports           []string
	ImportMemoryMod   string
	ImportMemoryName  string
	ExportMemoryName  string
	MemoryLimitsMin   int
	MemoryLimitsMax   int
	SharedMemory      bool
	HeapStartAddress  int // wasm only
	UseJSBuiltinString bool // wasm-gc only
	Flags             []string

	// JS
	Format string // esm | cjs | iife

	// Native
	CC              string
	CCFlags         []string
	CCLinkFlags     []string
	StubCC          string
	StubCCFlags     []string
	StubCCLinkFlags []string
}

// VirtualConfig describes a virtual package: one that declares a typed
// `.mbti` interface, optionally with a default body.
type VirtualConfig struct {
	HasDefault    bool
	InterfaceFile string // path to the .mbti file, found by convention
}

// PreBuildTask is one entry of a package's `pre-build` manifest list.
type PreBuildTask struct {
	Input   string
	Output  string
	Command string
}

// SourceFile is one file directly contained in a package directory,
// classified by name suffix: "_test.mbt" is blackbox, "_wbtest.mbt" is
// whitebox, ".mbt.md" is a markdown test, everything else plain ".mbt" is
// source.
type SourceFileKind int

const (
	FileSource SourceFileKind = iota
	FileBlackboxTest
	FileWhiteboxTest
	FileMarkdownTest
	FileCStub
)

type SourceFile struct {
	Path string // absolute path on disk
	Name string // base name
	Kind SourceFileKind
}

// Package is a unit of compilation: a directory containing a package
// manifest.
type Package struct {
	ID     PackageID
	Module ModuleName
	Dir    string // absolute directory on disk

	IsMain bool

	Imports       []Import
	WbTestImports []Import
	TestImports   []Import
	TestImportAll bool

	Link map[Backend]LinkConfig

	Virtual    *VirtualConfig
	Implements PackageID // "" if this package does not implement a virtual
	Overrides  []PackageID

	PreBuild []PreBuildTask

	// Targets maps a filename to its manifest conditional-compilation
	// expression, as parsed by internal/lower/condcomp.go.
	Targets map[string]string

	SupportedTargets []Backend

	NativeStubs []string // C file paths, package-relative

	Files []SourceFile
}

// BuildTargetKind distinguishes the four compiled artifacts a package can
// produce: inline test code is source compiled with test flags enabled,
// distinct from the whitebox and blackbox test targets that live in their
// own files.
type BuildTargetKind int

const (
	TargetSource BuildTargetKind = iota
	TargetInline
	TargetWhitebox
	TargetBlackbox
)

func (k BuildTargetKind) String() string {
	switch k {
	case TargetSource:
		return "source"
	case TargetInline:
		return "inline_test"
	case TargetWhitebox:
		return "whitebox_test"
	case TargetBlackbox:
		return "blackbox_test"
	default:
		return "unknown"
	}
}

// BuildTarget is the pair (package, kind) that every later stage keys on.
type BuildTarget struct {
	Package PackageID
	Kind    BuildTargetKind
}

func (t BuildTarget) String() string {
	return string(t.Package) + "::" + t.Kind.String()
}

// HasWhitebox reports whether p declares any whitebox test file.
func (p *Package) HasWhitebox() bool {
	for _, f := range p.Files {
		if f.Kind == FileWhiteboxTest {
			return true
		}
	}
	return false
}

func (p *Package) HasBlackbox() bool {
	for _, f := range p.Files {
		if f.Kind == FileBlackboxTest || f.Kind == FileMarkdownTest {
			return true
		}
	}
	return false
}

func (p *Package) HasSource() bool {
	for _, f := range p.Files {
		if f.Kind == FileSource {
			return true
		}
	}
	return false
}

// ImportsFor returns the effective import list for a build target kind:
// imports apply to Source and both test kinds; wbtest-imports extend
// Whitebox; test-imports extend Blackbox.
func (p *Package) ImportsFor(kind BuildTargetKind) []Import {
	switch kind {
	case TargetWhitebox:
		return append(append([]Import{}, p.Imports...), p.WbTestImports...)
	case TargetBlackbox:
		imps := append([]Import{}, p.Imports...)
		if p.TestImportAll {
			imps = append(imps, Import{Path: p.ID, Alias: lastSegment(string(p.ID))})
		}
		return append(imps, p.TestImports...)
	default:
		return append([]Import{}, p.Imports...)
	}
}

func lastSegment(s string) string {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '/' {
			return s[i+1:]
		}
	}
	return s
}
