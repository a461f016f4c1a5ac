// Package resolve implements module-level minimal version selection and
// package-level import-graph validation. The module-level
// half is grounded on solver.go's prepare/solve shape, but stripped of its
// CDCL backtracking: MVS never needs to backtrack, because "pick the
// lowest version that satisfies every constraint along every path" has
// exactly one answer, computed in a single forward pass.
package resolve

import (
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"

	"github.com/moonbitlang/moon/internal/graph"
	"github.com/moonbitlang/moon/internal/moonerr"
)

// RegistryOracle is the external collaborator that answers
// "what versions exist for this module, and what does its manifest look
// like at version v". The registry HTTP client and on-disk package cache
// behind it are a separate concern from resolution itself.
type RegistryOracle interface {
	Versions(name graph.ModuleName) ([]*semver.Version, error)
	Manifest(name graph.ModuleName, v *semver.Version) (*graph.Module, error)
}

// Resolution is the output of a module-level MVS pass: one concrete
// version chosen per module name.
type Resolution struct {
	Versions map[graph.ModuleName]*semver.Version
	Modules  map[graph.ModuleName]*graph.Module
}

// mvsState accumulates, for each module, the minimal version that
// satisfies every constraint seen so far, walking the dependency graph
// depth-first from the root. Because carets are the only supported
// range operator and every module's own deps map is a simple
// name->caret map, each visited module contributes one lower bound per
// dependency; the final answer per module is the maximum of all lower
// bounds placed on it (the "minimal version that satisfies every
// constraint along every path" — maximal among per-path minimums).
type mvsState struct {
	oracle  RegistryOracle
	visited map[graph.ModuleName]*graph.Module
	floor   map[graph.ModuleName]*semver.Version
	chain   []moonerr.ResolveChainLink
}

// Resolve runs MVS starting from root's dependency map.
func Resolve(root *graph.Module, oracle RegistryOracle) (*Resolution, error) {
	st := &mvsState{
		oracle:  oracle,
		visited: map[graph.ModuleName]*graph.Module{root.Name: root},
		floor:   make(map[graph.ModuleName]*semver.Version),
	}

	if err := st.visit(root, map[graph.ModuleName]bool{root.Name: true}); err != nil {
		return nil, err
	}

	res := &Resolution{
		Versions: make(map[graph.ModuleName]*semver.Version, len(st.floor)),
		Modules:  make(map[graph.ModuleName]*graph.Module, len(st.visited)),
	}
	for name, v := range st.floor {
		res.Versions[name] = v
	}
	for name, m := range st.visited {
		res.Modules[name] = m
	}
	return res, nil
}

func (st *mvsState) visit(m *graph.Module, onPath map[graph.ModuleName]bool) error {
	names := sortedKeys(m.Deps)
	for _, depName := range names {
		req := m.Deps[depName]
		dn := graph.ModuleName(depName)

		if onPath[dn] {
			return &moonerr.ResolveError{
				Reason: fmt.Sprintf("cyclic module dependency at %s", dn),
				Chain:  append(st.chain, moonerr.ResolveChainLink{ModuleAtVersion: string(m.Name), Dependency: string(dn)}),
			}
		}

		c, err := semver.NewConstraint(req)
		if err != nil {
			return errors.Wrapf(err, "parsing version requirement %q for %s", req, dn)
		}

		v, err := lowestSatisfying(st.oracle, dn, c)
		if err != nil {
			return &moonerr.ResolveError{Reason: err.Error(), Chain: st.chain}
		}

		if cur, ok := st.floor[dn]; !ok || v.GreaterThan(cur) {
			st.floor[dn] = v
		}

		if _, already := st.visited[dn]; !already {
			depMod, err := st.oracle.Manifest(dn, st.floor[dn])
			if err != nil {
				return errors.Wrapf(err, "fetching manifest for %s@%s", dn, st.floor[dn])
			}
			st.visited[dn] = depMod

			st.chain = append(st.chain, moonerr.ResolveChainLink{ModuleAtVersion: string(m.Name), Dependency: string(dn)})
			onPath[dn] = true
			if err := st.visit(depMod, onPath); err != nil {
				return err
			}
			onPath[dn] = false
			st.chain = st.chain[:len(st.chain)-1]
		}
	}
	return nil
}

// lowestSatisfying returns the lowest version of name known to the oracle
// that satisfies c, implementing MVS's per-edge selection rule.
func lowestSatisfying(oracle RegistryOracle, name graph.ModuleName, c *semver.Constraints) (*semver.Version, error) {
	versions, err := oracle.Versions(name)
	if err != nil {
		return nil, errors.Wrapf(err, "listing versions of %s", name)
	}
	sort.Sort(semver.Collection(versions))
	for _, v := range versions {
		if c.Check(v) {
			return v, nil
		}
	}
	return nil, errors.Errorf("no version of %s satisfies %s", name, c)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
