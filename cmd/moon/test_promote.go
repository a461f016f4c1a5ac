package main

import (
	"os"
	"strings"

	"github.com/moonbitlang/moon/internal/moonerr"
	"github.com/moonbitlang/moon/internal/testpipeline"
)

// rewriteExpect overwrites the first occurrence of failure.Expected (the
// literal the generated driver reports as the current expected value) with
// failure.Actual in key.File. The generated driver is the one source of
// truth for what literal sits where; the CLI only ever does the
// string-level swap it's told.
func rewriteExpect(key testpipeline.CaseKey, failure *moonerr.TestFailure) error {
	data, err := os.ReadFile(key.File)
	if err != nil {
		return err
	}
	content := string(data)
	idx := strings.Index(content, failure.Expected)
	if idx < 0 {
		return nil // already promoted by a previous pass
	}
	content = content[:idx] + failure.Actual + content[idx+len(failure.Expected):]
	return os.WriteFile(key.File, []byte(content), 0o644)
}
