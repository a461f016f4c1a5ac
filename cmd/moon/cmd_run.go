package main

import (
	"flag"

	"github.com/moonbitlang/moon/internal/moonctx"
	"github.com/moonbitlang/moon/internal/plan"
)

type runCommand struct {
	target  string
	release bool
}

func (c *runCommand) Name() string      { return "run" }
func (c *runCommand) Args() string      { return "<package>" }
func (c *runCommand) ShortHelp() string { return "Build and run a main package" }
func (c *runCommand) LongHelp() string {
	return "Run builds the selected main package to an executable and invokes it."
}
func (c *runCommand) Hidden() bool { return false }

func (c *runCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&c.target, "target", "", "backend: wasm, wasm-gc, js, native, llvm")
	fs.BoolVar(&c.release, "release", false, "build in release mode")
}

func (c *runCommand) Run(mc *moonctx.Ctx, args []string) error {
	return runIntent(mc, plan.IntentRun, parseBackend(c.target), parseMode(c.release), args)
}
