package resolve

import (
	"testing"

	"github.com/Masterminds/semver/v3"

	"github.com/moonbitlang/moon/internal/graph"
	"github.com/moonbitlang/moon/internal/moonerr"
)

// fakeOracle is an in-memory RegistryOracle over a fixed set of modules,
// each with one or more published versions.
type fakeOracle struct {
	versions  map[graph.ModuleName][]string
	manifests map[string]*graph.Module // "name@version" -> module
}

func (f *fakeOracle) Versions(name graph.ModuleName) ([]*semver.Version, error) {
	var out []*semver.Version
	for _, s := range f.versions[name] {
		v, err := semver.NewVersion(s)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (f *fakeOracle) Manifest(name graph.ModuleName, v *semver.Version) (*graph.Module, error) {
	m, ok := f.manifests[string(name)+"@"+v.Original()]
	if !ok {
		return nil, &moonerr.ManifestError{Reason: "no such version"}
	}
	return m, nil
}

func TestResolvePicksLowestSatisfying(t *testing.T) {
	oracle := &fakeOracle{
		versions: map[graph.ModuleName][]string{
			"user/b": {"1.0.0", "1.1.0", "2.0.0"},
		},
		manifests: map[string]*graph.Module{
			"user/b@1.1.0": {Name: "user/b", Version: "1.1.0"},
		},
	}
	root := &graph.Module{Name: "user/a", Deps: map[string]string{"user/b": "^1.1.0"}}

	res, err := Resolve(root, oracle)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	got := res.Versions["user/b"]
	if got.Original() != "1.1.0" {
		t.Errorf("resolved user/b@%s, want 1.1.0 (lowest satisfying ^1.1.0)", got.Original())
	}
}

func TestResolveTakesMaximumOfLowerBounds(t *testing.T) {
	// a -> b@^1.0.0, a -> c@^1.0.0, b -> d@^1.0.0, c -> d@^1.2.0
	// d's floor must end up at 1.2.0, the stricter of the two per-path minimums.
	oracle := &fakeOracle{
		versions: map[graph.ModuleName][]string{
			"user/b": {"1.0.0"},
			"user/c": {"1.0.0"},
			"user/d": {"1.0.0", "1.2.0", "1.3.0"},
		},
		manifests: map[string]*graph.Module{
			"user/b@1.0.0": {Name: "user/b", Version: "1.0.0", Deps: map[string]string{"user/d": "^1.0.0"}},
			"user/c@1.0.0": {Name: "user/c", Version: "1.0.0", Deps: map[string]string{"user/d": "^1.2.0"}},
			"user/d@1.0.0": {Name: "user/d", Version: "1.0.0"},
			"user/d@1.2.0": {Name: "user/d", Version: "1.2.0"},
		},
	}
	root := &graph.Module{Name: "user/a", Deps: map[string]string{"user/b": "^1.0.0", "user/c": "^1.0.0"}}

	res, err := Resolve(root, oracle)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := res.Versions["user/d"].Original(); got != "1.2.0" {
		t.Errorf("resolved user/d@%s, want 1.2.0", got)
	}
}

func TestResolveDetectsCycle(t *testing.T) {
	oracle := &fakeOracle{
		versions: map[graph.ModuleName][]string{"user/b": {"1.0.0"}},
		manifests: map[string]*graph.Module{
			"user/b@1.0.0": {Name: "user/b", Version: "1.0.0", Deps: map[string]string{"user/a": "^1.0.0"}},
		},
	}
	root := &graph.Module{Name: "user/a", Deps: map[string]string{"user/b": "^1.0.0"}}

	if _, err := Resolve(root, oracle); err == nil {
		t.Fatal("expected an error for a cyclic module dependency")
	} else if _, ok := err.(*moonerr.ResolveError); !ok {
		t.Errorf("error = %#v, want *moonerr.ResolveError", err)
	}
}

func TestResolveNoSatisfyingVersion(t *testing.T) {
	oracle := &fakeOracle{versions: map[graph.ModuleName][]string{"user/b": {"1.0.0"}}}
	root := &graph.Module{Name: "user/a", Deps: map[string]string{"user/b": "^2.0.0"}}

	if _, err := Resolve(root, oracle); err == nil {
		t.Fatal("expected an error when no published version satisfies the constraint")
	}
}
