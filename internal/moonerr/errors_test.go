package moonerr

import (
	"strings"
	"testing"
)

func TestTraceStringFallsBackToError(t *testing.T) {
	plain := &ManifestError{File: "moon.mod.json", Offset: 12, Reason: "unexpected token"}
	if got, want := TraceString(plain), plain.Error(); got != want {
		t.Errorf("TraceString(plain) = %q, want %q", got, want)
	}
}

func TestTraceStringUsesTraceError(t *testing.T) {
	err := &ResolveError{
		Reason: "no version of b satisfies both constraints",
		Chain: []ResolveChainLink{
			{ModuleAtVersion: "a@1.0.0", Dependency: "b@^2.0.0"},
			{ModuleAtVersion: "c@3.1.0", Dependency: "b@^1.0.0"},
		},
	}
	trace := TraceString(err)
	if trace == err.Error() {
		t.Fatal("TraceString should be more detailed than Error() when a chain is present")
	}
	for _, want := range []string{"a@1.0.0 -> b@^2.0.0", "c@3.1.0 -> b@^1.0.0"} {
		if !strings.Contains(trace, want) {
			t.Errorf("trace %q missing chain link %q", trace, want)
		}
	}
}

func TestExecutionErrorTraceIncludesStderr(t *testing.T) {
	err := &ExecutionError{Node: "build-package:a/b", ExitCode: 1, Stderr: "undefined identifier foo"}
	if strings.Contains(err.Error(), "undefined identifier foo") {
		t.Fatal("Error() should stay terse; stderr belongs in the trace form")
	}
	if !strings.Contains(TraceString(err), "undefined identifier foo") {
		t.Fatal("traceString() should include captured stderr")
	}
}

func TestLoweringErrorOmitsEmptyDetail(t *testing.T) {
	bare := &LoweringError{Reason: "duplicate output path"}
	if got, want := bare.Error(), "duplicate output path"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	detailed := &LoweringError{Reason: "duplicate output path", Detail: "build/wasm/a.core"}
	if got := detailed.Error(); !strings.Contains(got, "build/wasm/a.core") {
		t.Errorf("Error() = %q, want it to include the detail", got)
	}
}

func TestTestFailureErrorFormat(t *testing.T) {
	tf := &TestFailure{
		Target:   "a/b:blackbox",
		File:     "b_test.mbt",
		Index:    3,
		Kind:     "expect",
		Message:  "value mismatch",
		Expected: "1",
		Actual:   "2",
	}
	got := tf.Error()
	for _, want := range []string{"a/b:blackbox", "b_test.mbt", "3", "expect", "value mismatch"} {
		if !strings.Contains(got, want) {
			t.Errorf("Error() = %q, missing %q", got, want)
		}
	}
}

func TestIsUsageErrorMarksConfigAndGraphErrors(t *testing.T) {
	usage := []interface{ IsUsageError() bool }{
		&ManifestError{},
		&ResolveError{},
		&ImportError{},
		&PlanError{},
		&LoweringError{},
	}
	for _, e := range usage {
		if !e.IsUsageError() {
			t.Errorf("%T.IsUsageError() = false, want true", e)
		}
	}
}

func TestExecutionErrorAndTestFailureAreNotUsageErrors(t *testing.T) {
	if _, ok := interface{}(&ExecutionError{}).(interface{ IsUsageError() bool }); ok {
		t.Error("ExecutionError should not implement IsUsageError: a failed subprocess is not a usage mistake")
	}
	if _, ok := interface{}(&TestFailure{}).(interface{ IsUsageError() bool }); ok {
		t.Error("TestFailure should not implement IsUsageError")
	}
}

func TestImportErrorMessage(t *testing.T) {
	err := &ImportError{Importer: "a/b", Importee: "a/b/internal/c", Violation: "internal package not visible outside its parent"}
	got := err.Error()
	if !strings.Contains(got, "a/b") || !strings.Contains(got, "a/b/internal/c") {
		t.Errorf("Error() = %q, want both importer and importee named", got)
	}
}

func TestPlanErrorMessage(t *testing.T) {
	err := &PlanError{Consumer: "app/main", Virtual: "app/fs"}
	got := err.Error()
	if !strings.Contains(got, "app/main") || !strings.Contains(got, "app/fs") {
		t.Errorf("Error() = %q, want both consumer and virtual package named", got)
	}
}
