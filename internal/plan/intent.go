package plan

import "github.com/moonbitlang/moon/internal/graph"

// Intent is a high-level verb on a package, emitted by the CLI ("build",
// "check", "run", "test", "bench", "bundle", or interface generation).
type Intent int

const (
	IntentCheck Intent = iota
	IntentBuild
	IntentRun
	IntentTest
	IntentBench
	IntentBundle
	IntentGenerateInfo
)

// Selection is one user intent targeting one package.
type Selection struct {
	Package graph.PackageID
	Intent  Intent
}

// Options carries the global configuration a node's dependency set is
// computed against: backend/mode select which LinkConfig and condcomp
// branch applies; Overrides carries the consumer-scoped virtual
// substitutions; TestMatches narrows which packages' tests actually need
// an executable (Test/Bench intents).
type Options struct {
	Backend graph.Backend
	Mode    graph.Mode
	Coverage bool

	// Overrides[consumer][virtual] = implementation: a virtual-package
	// substitution scoped to the one consumer that requested it.
	Overrides map[graph.PackageID]map[graph.PackageID]graph.PackageID

	// TestMatches, if non-nil, restricts the Test/Bench initial node set
	// to packages for which it returns true.
	TestMatches func(graph.PackageID) bool
}

func (o Options) matchesTest(id graph.PackageID) bool {
	if o.TestMatches == nil {
		return true
	}
	return o.TestMatches(id)
}
