package main

import (
	"flag"

	"github.com/moonbitlang/moon/internal/moonctx"
	"github.com/moonbitlang/moon/internal/plan"
)

type benchCommand struct {
	target string
}

func (c *benchCommand) Name() string      { return "bench" }
func (c *benchCommand) Args() string      { return "[package...]" }
func (c *benchCommand) ShortHelp() string { return "Build and run benchmark cases" }
func (c *benchCommand) LongHelp() string {
	return "Bench is Test filtered to benchmark cases, always built in release mode."
}
func (c *benchCommand) Hidden() bool { return false }

func (c *benchCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&c.target, "target", "", "backend: wasm, wasm-gc, js, native, llvm")
}

func (c *benchCommand) Run(mc *moonctx.Ctx, args []string) error {
	return runIntent(mc, plan.IntentBench, parseBackend(c.target), parseMode(true), args)
}
