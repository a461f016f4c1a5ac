// Package moonerr implements the build pipeline's error taxonomy: one
// concrete type per failure kind, each carrying enough structured context
// to render both a normal and a verbose trace message. Grounded on
// errors.go's noVersionError / disjointConstraintFailure shape, which pairs
// an Error() string with a traceString() for --trace output.
package moonerr

import (
	"bytes"
	"fmt"
)

// traceError is implemented by errors that have something more detailed to
// say under --trace than their plain Error() string.
type traceError interface {
	traceString() string
}

// TraceString renders err's verbose form if it implements traceError,
// falling back to Error().
func TraceString(err error) string {
	if te, ok := err.(traceError); ok {
		return te.traceString()
	}
	return err.Error()
}

// ManifestError is a syntactic or schema violation in a manifest file.
type ManifestError struct {
	File   string
	Offset int64
	Reason string
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("%s: %s (at byte offset %d)", e.File, e.Reason, e.Offset)
}

// IsUsageError marks a malformed manifest as the user's mistake, not the
// build's, so the CLI exits 2 rather than 1.
func (e *ManifestError) IsUsageError() bool { return true }

// ResolveError is an unresolvable version constraint, a cyclic module
// dependency, or an unreachable package.
type ResolveError struct {
	Reason string
	Chain  []ResolveChainLink
}

// ResolveChainLink is one (module@version, dependency) pair in the chain
// that led to a ResolveError.
type ResolveChainLink struct {
	ModuleAtVersion string
	Dependency      string
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("cannot resolve dependencies: %s", e.Reason)
}

// IsUsageError marks an unresolvable dependency graph as the user's mistake.
func (e *ResolveError) IsUsageError() bool { return true }

func (e *ResolveError) traceString() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "cannot resolve dependencies: %s\n", e.Reason)
	for _, l := range e.Chain {
		fmt.Fprintf(&buf, "  %s -> %s\n", l.ModuleAtVersion, l.Dependency)
	}
	return buf.String()
}

// ImportError is a package import rejected during import-graph validation:
// a reference to a transitive-only module, an internal-visibility
// violation, or a duplicate import alias.
type ImportError struct {
	Importer  string
	Importee  string
	Violation string // which rule was violated
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("%s cannot import %s: %s", e.Importer, e.Importee, e.Violation)
}

// IsUsageError marks a rejected import as the user's mistake.
func (e *ImportError) IsUsageError() bool { return true }

// PlanError is raised when a virtual package has no implementation along
// some required closure path.
type PlanError struct {
	Consumer string
	Virtual  string
}

func (e *PlanError) Error() string {
	return fmt.Sprintf("no implementation found for virtual package %s required by %s", e.Virtual, e.Consumer)
}

// IsUsageError marks a missing virtual-package implementation as the user's
// mistake: the manifest selected a package with no satisfiable override.
func (e *PlanError) IsUsageError() bool { return true }

// LoweringError covers duplicate output paths, a missing toolchain binary,
// or an invalid conditional-compilation expression.
type LoweringError struct {
	Reason string
	Detail string
}

func (e *LoweringError) Error() string {
	if e.Detail == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

// IsUsageError marks a lowering failure (duplicate outputs, a malformed
// conditional-compilation expression) as the user's mistake, distinct from
// ExecutionError's subprocess failures.
func (e *LoweringError) IsUsageError() bool { return true }

// ExecutionError wraps a subprocess that exited non-zero while running a
// node in the lowered graph.
type ExecutionError struct {
	Node     string
	ExitCode int
	Stderr   string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: exit status %d", e.Node, e.ExitCode)
}

func (e *ExecutionError) traceString() string {
	return fmt.Sprintf("%s: exit status %d\n%s", e.Node, e.ExitCode, e.Stderr)
}

// TestFailure is a non-fatal test-case failure reported via the sentinel
// protocol; it is aggregated into the final report rather than aborting
// the run.
type TestFailure struct {
	Target string
	File   string
	Index  int
	Kind   string // "fail", "expect", "snapshot"
	Message string

	// Expected and Actual are only populated for Kind == "expect" or
	// "snapshot": the literal currently in source, and what the driver
	// observed at runtime, which -u promotes by overwriting one with the
	// other.
	Expected string
	Actual   string
}

func (e *TestFailure) Error() string {
	return fmt.Sprintf("%s %s:%d %s: %s", e.Target, e.File, e.Index, e.Kind, e.Message)
}
