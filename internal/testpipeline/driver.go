package testpipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/moonbitlang/moon/internal/graph"
)

// TestInfoEntry is one row of a GenerateTestInfo node's JSON metadata file,
// "(file, index, kind, skipped?) tuples".
type TestInfoEntry struct {
	File    string `json:"file"`
	Index   int    `json:"index"`
	Kind    string `json:"kind"`
	Skipped bool   `json:"skipped,omitempty"`
}

// TestInfo is the full JSON document one GenerateTestInfo node produces.
type TestInfo struct {
	Target  string          `json:"target"`
	Entries []TestInfoEntry `json:"entries"`
}

// BuildTestInfo sorts cases into (file ascending, index ascending) order —
// "Test cases within a single executable run sequentially in
// the order (file ascending, index ascending)" — and wraps them as a
// TestInfo for target.
func BuildTestInfo(target graph.BuildTarget, cases []Case) TestInfo {
	sorted := make([]Case, len(cases))
	copy(sorted, cases)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].File != sorted[j].File {
			return sorted[i].File < sorted[j].File
		}
		return sorted[i].Index < sorted[j].Index
	})
	info := TestInfo{Target: target.String()}
	for _, c := range sorted {
		info.Entries = append(info.Entries, TestInfoEntry{File: c.File, Index: c.Index, Kind: c.Kind, Skipped: c.Skipped})
	}
	return info
}

// MarshalTestInfo renders info as indented JSON for writing to the
// GenerateTestInfo node's metadata output.
func MarshalTestInfo(info TestInfo) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(info); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GenerateDriverSource renders the generated source file a GenerateTestInfo
// node produces, which says "is included in that target's
// BuildPackage sources": a flat list of calls into the per-case test
// runtime, one per discovered case, in the same (file, index) order as the
// JSON metadata.
func GenerateDriverSource(pkg graph.PackageID, target graph.BuildTarget, info TestInfo) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "// generated test driver for %s\n", target)
	fmt.Fprintf(&buf, "fn __moon_test_driver_%s() -> Unit {\n", sanitizeIdent(string(pkg)))
	for _, e := range info.Entries {
		if e.Skipped {
			continue
		}
		fmt.Fprintf(&buf, "  __moon_run_case(%q, %d, %q)\n", e.File, e.Index, e.Kind)
	}
	buf.WriteString("}\n")
	return buf.String()
}

func sanitizeIdent(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			out[i] = c
		} else {
			out[i] = '_'
		}
	}
	return string(out)
}
