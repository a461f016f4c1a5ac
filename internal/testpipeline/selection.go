// Package testpipeline implements test-case selection, driver generation,
// per-backend dispatch, and the expect/snapshot promotion loop.
package testpipeline

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/moonbitlang/moon/internal/graph"
)

// CaseRange is a half-open [Start, End) index range of test cases within
// one file.
type CaseRange struct {
	File  string
	Start int
	End   int // exclusive; -1 means "to the end of the file"
}

// Filter is the parsed form of the CLI's three-tier -p/-f/-i selector.
type Filter struct {
	Packages []string // fuzzy-matched against full package names
	File     string   // only valid when exactly one package matches
	Index    string   // "-i" raw value: "N" or "N:M"; only valid with File set
}

// ResolvePackages fuzzy-matches f.Packages against the full set of known
// package IDs via plain substring containment, case-sensitive. It is an
// error to combine a file or index filter with more than one matching
// package.
func (f Filter) ResolvePackages(all []graph.PackageID) ([]graph.PackageID, error) {
	var matched []graph.PackageID
	if len(f.Packages) == 0 {
		matched = append(matched, all...)
	} else {
		seen := make(map[graph.PackageID]bool)
		for _, want := range f.Packages {
			for _, id := range all {
				if strings.Contains(string(id), want) && !seen[id] {
					seen[id] = true
					matched = append(matched, id)
				}
			}
		}
	}
	if (f.File != "" || f.Index != "") && len(matched) != 1 {
		return nil, errors.Errorf("-f/-i requires exactly one matching package, got %d", len(matched))
	}
	return matched, nil
}

// ResolveRange parses f.Index ("N" or "N:M") into a CaseRange over f.File.
// An empty Index selects the whole file.
func (f Filter) ResolveRange() (CaseRange, error) {
	if f.File == "" {
		return CaseRange{}, nil
	}
	if f.Index == "" {
		return CaseRange{File: f.File, Start: 0, End: -1}, nil
	}
	parts := strings.SplitN(f.Index, ":", 2)
	start, err := strconv.Atoi(parts[0])
	if err != nil {
		return CaseRange{}, errors.Wrapf(err, "invalid -i value %q", f.Index)
	}
	if len(parts) == 1 {
		return CaseRange{File: f.File, Start: start, End: start + 1}, nil
	}
	end, err := strconv.Atoi(parts[1])
	if err != nil {
		return CaseRange{}, errors.Wrapf(err, "invalid -i value %q", f.Index)
	}
	if end <= start {
		return CaseRange{}, errors.Errorf("-i range %q must be non-empty and ascending", f.Index)
	}
	return CaseRange{File: f.File, Start: start, End: end}, nil
}

// Case is one discovered test case, in the order test files are walked.
type Case struct {
	File    string
	Index   int
	Kind    string // "test", "bench", "snapshot", "expect"
	Skipped bool
}

// Select filters cases by r. A skipped case is excluded unless the filter
// explicitly names it: it only survives when r pins its exact file and
// index.
func Select(cases []Case, r CaseRange, includeSkipped bool) []Case {
	var out []Case
	for _, c := range cases {
		if r.File != "" && c.File != r.File {
			continue
		}
		if r.File != "" && r.End >= 0 && (c.Index < r.Start || c.Index >= r.End) {
			continue
		}
		exact := r.File == c.File && r.End >= 0 && c.Index >= r.Start && c.Index < r.End
		if c.Skipped && !includeSkipped && !exact {
			continue
		}
		out = append(out, c)
	}
	return out
}
