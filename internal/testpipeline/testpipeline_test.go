package testpipeline

import (
	"testing"

	"github.com/moonbitlang/moon/internal/graph"
	"github.com/moonbitlang/moon/internal/moonerr"
)

func TestFilterResolvePackagesRejectsAmbiguousFileFilter(t *testing.T) {
	all := []graph.PackageID{"example.com/app/a", "example.com/app/ab"}
	f := Filter{Packages: []string{"a"}, File: "a.mbt"}
	if _, err := f.ResolvePackages(all); err == nil {
		t.Fatalf("expected error for ambiguous package match with file filter")
	}
}

func TestSelectExcludesSkippedUnlessNamed(t *testing.T) {
	cases := []Case{
		{File: "a.mbt", Index: 0, Kind: "test"},
		{File: "a.mbt", Index: 1, Kind: "test", Skipped: true},
	}
	got := Select(cases, CaseRange{}, false)
	if len(got) != 1 || got[0].Index != 0 {
		t.Fatalf("expected only the unskipped case with an empty range, got %v", got)
	}
	got = Select(cases, CaseRange{File: "a.mbt", Start: 1, End: 2}, false)
	if len(got) != 1 || got[0].Index != 1 {
		t.Fatalf("explicitly named skipped case should survive, got %v", got)
	}
}

func TestParseResultsSentinel(t *testing.T) {
	out := []byte("noise\n" +
		sentinelResultBegin + "\n" +
		`{"file":"a.mbt","index":0,"kind":"ok"}` + "\n" +
		sentinelResultEnd + "\n")
	stats, cov, err := ParseResults(out)
	if err != nil {
		t.Fatalf("ParseResults: %v", err)
	}
	if len(stats) != 1 || stats[0].File != "a.mbt" {
		t.Fatalf("unexpected stats: %v", stats)
	}
	if cov != "" {
		t.Fatalf("expected no coverage region, got %q", cov)
	}
}

func TestPromoteFixpointZeroRewrites(t *testing.T) {
	keys := []CaseKey{{Target: "t", File: "a.mbt", Index: 0}}
	run := func(ks []CaseKey) (map[CaseKey]error, error) {
		return map[CaseKey]error{keys[0]: nil}, nil
	}
	rewrite := func(CaseKey, *moonerr.TestFailure) error { return nil }
	_, passes, err := Promote(keys, run, rewrite, 256)
	if err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if passes != 1 {
		t.Fatalf("expected exactly one pass for an already-passing suite, got %d", passes)
	}
}

func TestPromoteSinglePassPromotion(t *testing.T) {
	key := CaseKey{Target: "t", File: "a.mbt", Index: 0}
	attempt := 0
	run := func(ks []CaseKey) (map[CaseKey]error, error) {
		attempt++
		if attempt == 1 {
			return map[CaseKey]error{key: &moonerr.TestFailure{Target: "t", File: "a.mbt", Index: 0, Kind: "expect"}}, nil
		}
		return map[CaseKey]error{key: nil}, nil
	}
	rewrote := false
	rewrite := func(k CaseKey, f *moonerr.TestFailure) error {
		rewrote = true
		return nil
	}
	_, passes, err := Promote([]CaseKey{key}, run, rewrite, 256)
	if err != nil {
		t.Fatalf("Promote: %v", err)
	}
	if !rewrote {
		t.Fatalf("expected a rewrite to occur")
	}
	if passes != 2 {
		t.Fatalf("expected exactly 2 passes (rewrite then confirm), got %d", passes)
	}
}
