package main

import (
	"sort"
	"testing"

	"github.com/moonbitlang/moon/internal/graph"
)

func TestSelectPackagesDefaultsToMainPackages(t *testing.T) {
	pkgs := map[graph.PackageID]*graph.Package{
		"user/proj":     {ID: "user/proj", IsMain: true},
		"user/proj/lib": {ID: "user/proj/lib"},
	}
	got := selectPackages(pkgs, nil)
	if len(got) != 1 || got[0] != "user/proj" {
		t.Errorf("selectPackages(nil) = %v, want [user/proj]", got)
	}
}

func TestSelectPackagesMatchesExplicitArgs(t *testing.T) {
	pkgs := map[graph.PackageID]*graph.Package{
		"user/proj":     {ID: "user/proj", IsMain: true},
		"user/proj/lib": {ID: "user/proj/lib"},
	}
	got := selectPackages(pkgs, []string{"lib"})
	if len(got) != 1 || got[0] != "user/proj/lib" {
		t.Errorf("selectPackages([lib]) = %v, want [user/proj/lib]", got)
	}
}

func TestSelectPackagesMatchesFullPath(t *testing.T) {
	pkgs := map[graph.PackageID]*graph.Package{
		"user/proj":     {ID: "user/proj"},
		"user/proj/lib": {ID: "user/proj/lib"},
	}
	got := selectPackages(pkgs, []string{"user/proj/lib"})
	if len(got) != 1 || got[0] != "user/proj/lib" {
		t.Errorf("selectPackages([user/proj/lib]) = %v, want [user/proj/lib]", got)
	}
}

func TestSelectPackagesSortsResults(t *testing.T) {
	pkgs := map[graph.PackageID]*graph.Package{
		"user/proj/b": {ID: "user/proj/b", IsMain: true},
		"user/proj/a": {ID: "user/proj/a", IsMain: true},
	}
	got := selectPackages(pkgs, nil)
	if !sort.SliceIsSorted(got, func(i, j int) bool { return got[i] < got[j] }) {
		t.Errorf("selectPackages should return sorted IDs, got %v", got)
	}
}

func TestSelectPackagesNoMatchReturnsEmpty(t *testing.T) {
	pkgs := map[graph.PackageID]*graph.Package{"user/proj": {ID: "user/proj"}}
	got := selectPackages(pkgs, []string{"nonexistent"})
	if len(got) != 0 {
		t.Errorf("selectPackages([nonexistent]) = %v, want empty", got)
	}
}

func TestParseBackendDefaultsToWasmGC(t *testing.T) {
	if got := parseBackend(""); got != graph.BackendWasmGC {
		t.Errorf("parseBackend(\"\") = %v, want %v", got, graph.BackendWasmGC)
	}
	if got := parseBackend("native"); got != graph.BackendNative {
		t.Errorf("parseBackend(native) = %v, want %v", got, graph.BackendNative)
	}
}

func TestParseMode(t *testing.T) {
	if got := parseMode(false); got != graph.ModeDebug {
		t.Errorf("parseMode(false) = %v, want %v", got, graph.ModeDebug)
	}
	if got := parseMode(true); got != graph.ModeRelease {
		t.Errorf("parseMode(true) = %v, want %v", got, graph.ModeRelease)
	}
}

func TestMustDiscoverFallsBackToBareName(t *testing.T) {
	got := mustDiscover("definitely-not-a-real-moon-binary", t.TempDir())
	if got != "definitely-not-a-real-moon-binary" {
		t.Errorf("mustDiscover fallback = %q, want the bare binary name", got)
	}
}

type fakeUsageError struct{}

func (fakeUsageError) Error() string      { return "bad flags" }
func (fakeUsageError) IsUsageError() bool { return true }

func TestExitCodeForUsageError(t *testing.T) {
	if got := exitCodeFor(fakeUsageError{}); got != 2 {
		t.Errorf("exitCodeFor(usageError) = %d, want 2", got)
	}
}

func TestExitCodeForOrdinaryError(t *testing.T) {
	if got := exitCodeFor(errTest{}); got != 1 {
		t.Errorf("exitCodeFor(ordinary error) = %d, want 1", got)
	}
}

type errTest struct{}

func (errTest) Error() string { return "boom" }
