package main

import (
	"flag"

	"github.com/moonbitlang/moon/internal/moonctx"
	"github.com/moonbitlang/moon/internal/plan"
)

type checkCommand struct {
	target string
}

func (c *checkCommand) Name() string      { return "check" }
func (c *checkCommand) Args() string      { return "[package...]" }
func (c *checkCommand) ShortHelp() string { return "Type-check the selected packages without building" }
func (c *checkCommand) LongHelp() string {
	return "Check type-checks every selected package and its test targets, reporting diagnostics without producing linkable artifacts."
}
func (c *checkCommand) Hidden() bool { return false }

func (c *checkCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&c.target, "target", "", "backend: wasm, wasm-gc, js, native, llvm")
}

func (c *checkCommand) Run(mc *moonctx.Ctx, args []string) error {
	return runIntent(mc, plan.IntentCheck, parseBackend(c.target), parseMode(false), args)
}
