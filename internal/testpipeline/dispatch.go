package testpipeline

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/moonbitlang/moon/internal/graph"
)

const (
	sentinelResultBegin   = "----- BEGIN MOON TEST RESULT -----"
	sentinelResultEnd     = "----- END MOON TEST RESULT -----"
	sentinelCoverageBegin = "----- BEGIN MOON COVERAGE -----"
	sentinelCoverageEnd   = "----- END MOON COVERAGE -----"
)

// TestStatistics is one sentinel-delimited JSON line of a test executable's
// stdout.
type TestStatistics struct {
	File     string `json:"file"`
	Index    int    `json:"index"`
	Kind     string `json:"kind"` // "ok", "fail", "expect", "snapshot"
	Message  string `json:"message,omitempty"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
}

// DispatchPayload renders the selection argument a test executable expects
// in its backend's own format: JSON ranges for wasm/wasm-gc/js, a
// slash-separated "file:start-end" list for native/llvm.
func DispatchPayload(backend graph.Backend, ranges []CaseRange) (string, error) {
	switch backend {
	case graph.BackendWasm, graph.BackendWasmGC:
		data, err := json.Marshal(ranges)
		if err != nil {
			return "", err
		}
		return string(data), nil
	case graph.BackendNative, graph.BackendLLVM:
		parts := make([]string, len(ranges))
		for i, r := range ranges {
			parts[i] = fmt.Sprintf("%s:%d-%d", r.File, r.Start, r.End)
		}
		return strings.Join(parts, "/"), nil
	case graph.BackendJS:
		data, err := json.Marshal(ranges)
		if err != nil {
			return "", err
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unsupported backend %q for test dispatch", backend)
	}
}

// ParseResults scans output for the sentinel-delimited TestStatistics block
// and returns its decoded entries alongside the raw coverage-region text
// (if any), which the caller appends to a timestamped coverage file.
func ParseResults(output []byte) (stats []TestStatistics, coverage string, err error) {
	sc := bufio.NewScanner(bytes.NewReader(output))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	inResult, inCoverage := false, false
	var covBuf bytes.Buffer
	for sc.Scan() {
		line := sc.Text()
		switch line {
		case sentinelResultBegin:
			inResult = true
			continue
		case sentinelResultEnd:
			inResult = false
			continue
		case sentinelCoverageBegin:
			inCoverage = true
			continue
		case sentinelCoverageEnd:
			inCoverage = false
			continue
		}
		switch {
		case inResult:
			var s TestStatistics
			if e := json.Unmarshal([]byte(line), &s); e != nil {
				return nil, "", fmt.Errorf("malformed TestStatistics line %q: %w", line, e)
			}
			stats = append(stats, s)
		case inCoverage:
			covBuf.WriteString(line)
			covBuf.WriteByte('\n')
		}
	}
	return stats, covBuf.String(), sc.Err()
}
