package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/moonbitlang/moon/internal/moonerr"
	"github.com/moonbitlang/moon/internal/testpipeline"
)

func TestRewriteExpectReplacesFirstOccurrence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a_test.mbt")
	if err := os.WriteFile(path, []byte(`test "f" { inspect(f(), content="1") }`), 0o644); err != nil {
		t.Fatal(err)
	}

	key := testpipeline.CaseKey{File: path}
	failure := &moonerr.TestFailure{Expected: `content="1"`, Actual: `content="2"`}
	if err := rewriteExpect(key, failure); err != nil {
		t.Fatalf("rewriteExpect: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	want := `test "f" { inspect(f(), content="2") }`
	if string(got) != want {
		t.Errorf("rewritten source = %q, want %q", got, want)
	}
}

func TestRewriteExpectNoopWhenAlreadyPromoted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a_test.mbt")
	original := `test "f" { inspect(f(), content="2") }`
	if err := os.WriteFile(path, []byte(original), 0o644); err != nil {
		t.Fatal(err)
	}

	key := testpipeline.CaseKey{File: path}
	failure := &moonerr.TestFailure{Expected: `content="1"`, Actual: `content="2"`}
	if err := rewriteExpect(key, failure); err != nil {
		t.Fatalf("rewriteExpect: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != original {
		t.Errorf("rewriteExpect should leave the file untouched when Expected is already gone, got %q", got)
	}
}
