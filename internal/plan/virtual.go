package plan

import (
	"github.com/moonbitlang/moon/internal/graph"
	"github.com/moonbitlang/moon/internal/moonerr"
)

// resolveImplementation answers, for one (consumer, virtual-package) pair,
// which package's BuildPackage/BuildInterface nodes should actually be
// linked in. A consumer package may override a virtual dependency with a
// specific implementation via its own manifest; absent an override, the
// virtual's own declared default (graph.VirtualConfig.HasDefault) is used;
// absent both, linking that consumer fails with "no implementation found".
//
// The override is scoped to consumer: two packages importing the same
// virtual may resolve to two different implementations in the same build,
// which is why this is a function of (consumer, virtual) rather than a
// global rewrite of the import graph.
func resolveImplementation(g *graph.Graph, overrides map[graph.PackageID]map[graph.PackageID]graph.PackageID, consumer, virtual graph.PackageID) (graph.PackageID, error) {
	vpkg, err := g.Package(virtual)
	if err != nil {
		return "", err
	}
	if vpkg.Virtual == nil {
		return virtual, nil
	}

	if byConsumer, ok := overrides[consumer]; ok {
		if impl, ok := byConsumer[virtual]; ok {
			return implOrSelf(impl, virtual), nil
		}
	}
	if vpkg.Virtual.HasDefault {
		return virtual, nil
	}
	return "", &moonerr.PlanError{Consumer: string(consumer), Virtual: string(virtual)}
}

func implOrSelf(impl, virtual graph.PackageID) graph.PackageID {
	if impl == "" {
		return virtual
	}
	return impl
}
