package main

import (
	"bytes"
	"fmt"
	"os/exec"

	"github.com/moonbitlang/moon/internal/graph"
	"github.com/moonbitlang/moon/internal/lower"
	"github.com/moonbitlang/moon/internal/moonerr"
	"github.com/moonbitlang/moon/internal/testpipeline"
)

// testTargetsOf returns the build targets `moon test` exercises for one
// package: its inline target always, plus whitebox/blackbox whenever the
// package declares the corresponding test files, mirroring
// internal/plan.initialNodes' Test/Bench case so dispatch walks exactly the
// executables the plan stage actually built.
func testTargetsOf(pkg *graph.Package, id graph.PackageID) []graph.BuildTarget {
	var targets []graph.BuildTarget
	if pkg != nil && pkg.HasWhitebox() {
		targets = append(targets, graph.BuildTarget{Package: id, Kind: graph.TargetWhitebox})
	}
	if pkg != nil && pkg.HasBlackbox() {
		targets = append(targets, graph.BuildTarget{Package: id, Kind: graph.TargetBlackbox})
	}
	targets = append(targets, graph.BuildTarget{Package: id, Kind: graph.TargetInline})
	return targets
}

// invokeTestExecutable runs one built test executable under the backend's
// launcher (: wasm/wasm-gc/js go through moonrun, native/llvm
// run directly) and returns its combined stdout/stderr for ParseResults.
func invokeTestExecutable(tc lower.Toolchain, backend graph.Backend, execPath, payload string) ([]byte, error) {
	var cmd *exec.Cmd
	switch backend {
	case graph.BackendWasm, graph.BackendWasmGC, graph.BackendJS:
		cmd = exec.Command(tc.MoonRun, execPath, payload)
	default:
		cmd = exec.Command(execPath, payload)
	}
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	runErr := cmd.Run()
	return out.Bytes(), runErr
}

// dispatchTarget runs a single test executable's target range r and
// converts any non-"ok" statistic into the *moonerr.TestFailure shape
// internal/testpipeline.Promote expects.
func dispatchTarget(tc lower.Toolchain, layout lower.Layout, target graph.BuildTarget, r testpipeline.CaseRange) (map[testpipeline.CaseKey]error, error) {
	execPath := layout.ExecutableFile(target)

	var ranges []testpipeline.CaseRange
	if r.File != "" {
		ranges = []testpipeline.CaseRange{r}
	}
	payload, err := testpipeline.DispatchPayload(layout.Backend, ranges)
	if err != nil {
		return nil, err
	}

	out, runErr := invokeTestExecutable(tc, layout.Backend, execPath, payload)
	stats, _, parseErr := testpipeline.ParseResults(out)
	if parseErr != nil {
		if runErr != nil {
			return nil, fmt.Errorf("running %s: %w (output unparsable: %v)", execPath, runErr, parseErr)
		}
		return nil, parseErr
	}

	results := make(map[testpipeline.CaseKey]error, len(stats))
	for _, s := range stats {
		key := testpipeline.CaseKey{Target: target.String(), File: s.File, Index: s.Index}
		if s.Kind == "ok" {
			results[key] = nil
			continue
		}
		results[key] = &moonerr.TestFailure{
			Target:   target.String(),
			File:     s.File,
			Index:    s.Index,
			Kind:     s.Kind,
			Message:  s.Message,
			Expected: s.Expected,
			Actual:   s.Actual,
		}
	}
	if len(stats) == 0 && runErr != nil {
		return nil, fmt.Errorf("running %s: %w", execPath, runErr)
	}
	return results, nil
}
