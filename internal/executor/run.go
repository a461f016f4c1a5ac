package executor

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"runtime"
	"sync"

	"github.com/moonbitlang/moon/internal/lower"
	"github.com/moonbitlang/moon/internal/moonerr"
)

// Logger is the minimal structured-progress sink run.go reports through.
type Logger interface {
	Printf(format string, args ...interface{})
}

// Result is the outcome of running one node.
type Result struct {
	NodeKey string
	Skipped bool
	Err     error
	Diags   []Diagnostic
}

// RunOptions configures a single Run call.
type RunOptions struct {
	JobLimit int // 0 (or less) means runtime.NumCPU()
	Cache    *StampCache
	Log      Logger
}

// Run drains g's topological levels, running every node within a level
// concurrently up to opts.JobLimit. A node whose failure has been recorded
// skips every node that (transitively) depends on it, but independent
// branches keep running to completion — the same fail-fast-but-don't-orphan-
// unrelated-work discipline solver.go applies to its own worklist, scoped
// here to the actual dependency edges instead of the whole level set. ctx
// cancellation is a separate, global stop: it skips all remaining work, and
// jobs already in flight are killed through exec.CommandContext.
func Run(ctx context.Context, g *Graph, opts RunOptions) ([]Result, error) {
	levels, err := g.TopoLevels()
	if err != nil {
		return nil, err
	}

	limit := opts.JobLimit
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	sem := make(chan struct{}, limit)

	var results []Result
	var mu sync.Mutex
	var firstErr error
	blocked := make(map[string]bool)

	for _, level := range levels {
		var wg sync.WaitGroup
		for _, key := range level {
			key := key

			mu.Lock()
			skip := ctx.Err() != nil || dependsOnBlocked(g, key, blocked)
			if skip {
				blocked[key] = true
				results = append(results, Result{NodeKey: key, Skipped: true})
			}
			mu.Unlock()
			if skip {
				continue
			}

			cmd := g.Commands[key]
			wg.Add(1)
			sem <- struct{}{}
			go func() {
				defer wg.Done()
				defer func() { <-sem }()
				r := runOne(ctx, cmd, opts)
				mu.Lock()
				results = append(results, r)
				if r.Err != nil {
					blocked[key] = true
					if firstErr == nil {
						firstErr = r.Err
					}
				}
				mu.Unlock()
			}()
		}
		wg.Wait()
	}
	if firstErr != nil {
		return results, firstErr
	}
	return results, ctx.Err()
}

// dependsOnBlocked reports whether key has any direct dependency already
// marked blocked. Since levels are processed in topological order, every
// dependency of key was already visited (and its own blocked status decided)
// by the time key is reached, so a direct check here is enough to propagate
// transitively.
func dependsOnBlocked(g *Graph, key string, blocked map[string]bool) bool {
	for _, d := range g.Deps[key] {
		if blocked[d] {
			return true
		}
	}
	return false
}

func runOne(ctx context.Context, cmd lower.Command, opts RunOptions) Result {
	if cmd.Program == "" {
		return Result{NodeKey: cmd.Node.Key(), Skipped: true}
	}

	fp, err := Fingerprint(cmd)
	if err != nil {
		return Result{NodeKey: cmd.Node.Key(), Err: err}
	}
	if opts.Cache != nil {
		stale, err := opts.Cache.NeedsRun(cmd.Node.Key(), fp, cmd.Outputs)
		if err != nil {
			return Result{NodeKey: cmd.Node.Key(), Err: err}
		}
		if !stale {
			if opts.Log != nil {
				opts.Log.Printf("up to date: %s", cmd.Node.Key())
			}
			return Result{NodeKey: cmd.Node.Key(), Skipped: true}
		}
	}

	if opts.Log != nil {
		opts.Log.Printf("running %s", cmd.Node.Key())
	}

	c := exec.CommandContext(ctx, cmd.Program, cmd.Args...)
	c.Dir = cmd.Dir
	c.Env = os.Environ()
	var stderr bytes.Buffer
	c.Stderr = &stderr
	err = c.Run()

	diags, _ := ParseDiagnostics(bytes.NewReader(stderr.Bytes()))
	if err != nil {
		exitCode := -1
		if ee, ok := err.(*exec.ExitError); ok {
			exitCode = ee.ExitCode()
		}
		return Result{
			NodeKey: cmd.Node.Key(),
			Diags:   diags,
			Err: &moonerr.ExecutionError{
				Node:     cmd.Node.Key(),
				ExitCode: exitCode,
				Stderr:   stderr.String(),
			},
		}
	}

	if opts.Cache != nil {
		if err := opts.Cache.Record(cmd.Node.Key(), fp); err != nil {
			return Result{NodeKey: cmd.Node.Key(), Diags: diags, Err: err}
		}
	}
	return Result{NodeKey: cmd.Node.Key(), Diags: diags}
}
