// Package plan turns a user intent into the closed-under-dependencies set
// of build-plan nodes described by, grounded on the tagged
// atom/dependency modeling of orig_types.go and on solver.go's
// selectAtom/getImportsAndConstraintsOf traversal (stripped of
// backtracking: by the time a plan is built, internal/resolve has already
// fixed exactly one version per module, so there is nothing left to
// search).
package plan

import (
	"fmt"

	"github.com/moonbitlang/moon/internal/graph"
)

// NodeKind tags the variant of a Node. Each kind carries a different
// subset of (target, package, index) — modeled here as a single struct
// with kind-specific fields left zero, which keeps the dependency function
// in closure.go a pure function of (Node, *graph.Graph) with no type
// assertions required by callers.
type NodeKind int

const (
	NodeCheck NodeKind = iota
	NodeBuildPackage
	NodeLinkCore
	NodeBuildInterface
	NodeMakeExecutable
	NodeBuildCStub
	NodeArchiveCStubs
	NodeGenerateMbti
	NodeGenerateTestInfo
	NodeRunPrebuild
	NodeBuildRuntime
	NodeLinkBundle
)

func (k NodeKind) String() string {
	return [...]string{
		"Check", "BuildPackage", "LinkCore", "BuildInterface", "MakeExecutable",
		"BuildCStub", "ArchiveCStubs", "GenerateMbti", "GenerateTestInfo",
		"RunPrebuild", "BuildRuntime", "LinkBundle",
	}[k]
}

// Node is one logical build operation, a deterministic function of its own
// metadata plus the global config ( "Build-plan node").
type Node struct {
	Kind NodeKind

	// Target-keyed nodes (Check, BuildPackage, LinkCore, MakeExecutable,
	// GenerateMbti).
	Target graph.BuildTarget

	// Package-keyed nodes (BuildInterface, ArchiveCStubs, RunPrebuild,
	// BuildCStub).
	Package graph.PackageID

	// Index-qualified nodes.
	StubIndex int // BuildCStub
	TaskIndex int // RunPrebuild

	// GenerateTestInfo's driver kind mirrors the test target kind it's
	// generating a driver for (Inline/Whitebox/Blackbox).
	DriverKind graph.BuildTargetKind

	// BuildRuntime is keyed by backend, not by package or target.
	Backend graph.Backend

	// LinkBundle is keyed by the whole module, not a single package: it
	// links every Source target in the module into one archive.
	Module graph.ModuleName
}

// Key returns a value usable as a map key uniquely identifying this node,
// so the plan can dedupe nodes added from multiple closure paths.
func (n Node) Key() string {
	switch n.Kind {
	case NodeCheck, NodeBuildPackage, NodeLinkCore, NodeMakeExecutable, NodeGenerateMbti:
		return fmt.Sprintf("%s:%s", n.Kind, n.Target)
	case NodeBuildInterface, NodeArchiveCStubs:
		return fmt.Sprintf("%s:%s", n.Kind, n.Package)
	case NodeBuildCStub:
		return fmt.Sprintf("%s:%s:%d", n.Kind, n.Package, n.StubIndex)
	case NodeRunPrebuild:
		return fmt.Sprintf("%s:%s:%d", n.Kind, n.Package, n.TaskIndex)
	case NodeGenerateTestInfo:
		return fmt.Sprintf("%s:%s:%s", n.Kind, n.Target, n.DriverKind)
	case NodeBuildRuntime:
		return fmt.Sprintf("%s:%s", n.Kind, n.Backend)
	case NodeLinkBundle:
		return fmt.Sprintf("%s:%s", n.Kind, n.Module)
	default:
		return fmt.Sprintf("%s:?", n.Kind)
	}
}

func (n Node) String() string { return n.Key() }
