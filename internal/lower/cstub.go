package lower

import (
	"sort"

	"github.com/moonbitlang/moon/internal/graph"
)

// TCCFastLinkEligible implements TCC fast-link gate: a
// native debug build whose packages' C stubs are all plain, unflagged
// translation units may skip the normal compile-then-archive-then-link
// pipeline and instead hand every stub source straight to tcc's one-shot
// linker, trading code quality for near-instant incremental turnaround.
// Release builds and any stub carrying custom StubCCFlags always fall back
// to the CC/ar pipeline, since tcc cannot reproduce arbitrary compiler flag
// semantics.
func TCCFastLinkEligible(mode graph.Mode, backend graph.Backend, pkgs []*graph.Package) bool {
	if backend != graph.BackendNative || mode != graph.ModeDebug {
		return false
	}
	for _, p := range pkgs {
		if len(p.NativeStubs) == 0 {
			continue
		}
		lc, ok := p.Link[graph.BackendNative]
		if ok && (len(lc.StubCCFlags) > 0 || lc.StubCC != "") {
			return false
		}
	}
	return true
}

// FastLinkSources flattens every native stub source across pkgs, in stable
// package-ID order, for a single tcc invocation.
func FastLinkSources(pkgs []*graph.Package) []string {
	sorted := append([]*graph.Package(nil), pkgs...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	var out []string
	for _, p := range sorted {
		for _, s := range p.NativeStubs {
			out = append(out, s)
		}
	}
	return out
}
