package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/moonbitlang/moon/internal/graph"
	"github.com/moonbitlang/moon/internal/moonctx"
	"github.com/moonbitlang/moon/internal/moonerr"
	"github.com/moonbitlang/moon/internal/plan"
	"github.com/moonbitlang/moon/internal/testpipeline"
)

type testCommand struct {
	target         string
	release        bool
	pkgFilter      string
	fileFilter     string
	indexFilter    string
	update         bool
	limit          int
	includeSkipped bool
}

func (c *testCommand) Name() string      { return "test" }
func (c *testCommand) Args() string      { return "[package...]" }
func (c *testCommand) ShortHelp() string { return "Build and run tests" }
func (c *testCommand) LongHelp() string {
	return "Test builds and runs the inline, whitebox, and blackbox test targets of the selected packages, dispatching each test executable with the -p/-f/-i selector."
}
func (c *testCommand) Hidden() bool { return false }

func (c *testCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&c.target, "target", "", "backend: wasm, wasm-gc, js, native, llvm")
	fs.BoolVar(&c.release, "release", false, "build in release mode")
	fs.StringVar(&c.pkgFilter, "p", "", "package filter (fuzzy match)")
	fs.StringVar(&c.fileFilter, "f", "", "file filter, requires a single matching package")
	fs.StringVar(&c.indexFilter, "i", "", "index or index:index range filter, requires -f")
	fs.BoolVar(&c.update, "u", false, "promote expect/snapshot failures instead of reporting them")
	fs.IntVar(&c.limit, "l", testpipeline.DefaultPromotionLimit, "maximum promotion passes with -u")
	fs.BoolVar(&c.includeSkipped, "include-skipped", false, "run skipped tests too")
}

func (c *testCommand) Run(mc *moonctx.Ctx, args []string) error {
	filter := testpipeline.Filter{File: c.fileFilter, Index: c.indexFilter}
	if c.pkgFilter != "" {
		filter.Packages = append(filter.Packages, c.pkgFilter)
	}
	filter.Packages = append(filter.Packages, args...)

	caseRange, err := filter.ResolveRange()
	if err != nil {
		return err
	}

	backend := parseBackend(c.target)
	mode := parseMode(c.release)

	// Building is the expensive, cacheable part of `moon test`; selection,
	// dispatch, and promotion happen against the resulting executables,
	// which is why it's driven through the same buildSelection pipeline as
	// build/check/run rather than a separate bespoke compile step.
	res, buildResults, err := buildSelection(mc, plan.IntentTest, backend, mode, args, func(id graph.PackageID) bool {
		matched, merr := filter.ResolvePackages([]graph.PackageID{id})
		return merr == nil && len(matched) == 1
	})
	for _, r := range buildResults {
		for _, d := range r.Diags {
			fmt.Fprintf(os.Stderr, "%s: %s: %s\n", r.NodeKey, d.Level, d.Message)
		}
	}
	if err != nil {
		return err
	}
	if *dryRun {
		return nil
	}

	targetsByKey := make(map[string]graph.BuildTarget)
	var allKeys []testpipeline.CaseKey
	final := make(map[testpipeline.CaseKey]error)

	for _, id := range res.ids {
		pkg := res.g.Packages[id]
		for _, t := range testTargetsOf(pkg, id) {
			targetsByKey[t.String()] = t
			results, derr := dispatchTarget(res.tc, res.layout, t, caseRange)
			if derr != nil {
				return derr
			}
			for k, e := range results {
				final[k] = e
				allKeys = append(allKeys, k)
			}
		}
	}

	if c.update {
		run := func(keys []testpipeline.CaseKey) (map[testpipeline.CaseKey]error, error) {
			byTarget := make(map[string][]testpipeline.CaseKey)
			for _, k := range keys {
				byTarget[k.Target] = append(byTarget[k.Target], k)
			}
			out := make(map[testpipeline.CaseKey]error, len(keys))
			for targetKey, ks := range byTarget {
				t, ok := targetsByKey[targetKey]
				if !ok {
					continue
				}
				results, derr := dispatchTarget(res.tc, res.layout, t, caseRange)
				if derr != nil {
					return nil, derr
				}
				for _, k := range ks {
					out[k] = results[k]
				}
			}
			return out, nil
		}

		final, _, err = testpipeline.Promote(allKeys, run, rewriteExpect, c.limit)
		if err != nil {
			return err
		}
		// Source files changed underneath the last build; rebuild once more
		// so the on-disk executables match what was just promoted.
		if _, _, rerr := buildSelection(mc, plan.IntentTest, backend, mode, args, nil); rerr != nil {
			return rerr
		}
	}

	return reportFailures(final)
}

func reportFailures(final map[testpipeline.CaseKey]error) error {
	keys := make([]testpipeline.CaseKey, 0, len(final))
	for k := range final {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Target != keys[j].Target {
			return keys[i].Target < keys[j].Target
		}
		if keys[i].File != keys[j].File {
			return keys[i].File < keys[j].File
		}
		return keys[i].Index < keys[j].Index
	})

	failed := 0
	for _, k := range keys {
		err := final[k]
		if err == nil {
			continue
		}
		failed++
		if tf, ok := err.(*moonerr.TestFailure); ok {
			fmt.Fprintf(os.Stderr, "FAIL %s\n", tf.Error())
		} else {
			fmt.Fprintf(os.Stderr, "FAIL %s %s:%d: %v\n", k.Target, k.File, k.Index, err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d test case(s) failed", failed)
	}
	return nil
}
