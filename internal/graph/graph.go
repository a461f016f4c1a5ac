package graph

import "github.com/pkg/errors"

// Graph is the arena holding every module and package reachable from the
// input module, keyed by stable identifier. It is constructed once by
// internal/scan + internal/resolve and shared by reference with every
// later stage; nothing downstream mutates it.
type Graph struct {
	Root ModuleName

	Modules  map[ModuleName]*Module
	Packages map[PackageID]*Package
}

func New(root ModuleName) *Graph {
	return &Graph{
		Root:     root,
		Modules:  make(map[ModuleName]*Module),
		Packages: make(map[PackageID]*Package),
	}
}

func (g *Graph) Package(id PackageID) (*Package, error) {
	p, ok := g.Packages[id]
	if !ok {
		return nil, errors.Errorf("package %q not found in resolved graph", id)
	}
	return p, nil
}

func (g *Graph) Module(name ModuleName) (*Module, error) {
	m, ok := g.Modules[name]
	if !ok {
		return nil, errors.Errorf("module %q not found in resolved graph", name)
	}
	return m, nil
}

// PackagesInModule returns every package owned by m, order is not
// guaranteed; callers that need determinism should sort by ID.
func (g *Graph) PackagesInModule(m ModuleName) []*Package {
	var out []*Package
	for _, p := range g.Packages {
		if p.Module == m {
			out = append(out, p)
		}
	}
	return out
}
