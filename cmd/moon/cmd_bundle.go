package main

import (
	"flag"

	"github.com/moonbitlang/moon/internal/moonctx"
	"github.com/moonbitlang/moon/internal/plan"
)

type bundleCommand struct {
	target string
}

func (c *bundleCommand) Name() string      { return "bundle" }
func (c *bundleCommand) Args() string      { return "[package...]" }
func (c *bundleCommand) ShortHelp() string { return "Build packages without linking an executable" }
func (c *bundleCommand) LongHelp() string {
	return "Bundle compiles every package in each selected package's module and links their core artifacts into one bundle.core per module (link-core -bundle), without making an executable, for distribution as a library."
}
func (c *bundleCommand) Hidden() bool { return false }

func (c *bundleCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&c.target, "target", "", "backend: wasm, wasm-gc, js, native, llvm")
}

func (c *bundleCommand) Run(mc *moonctx.Ctx, args []string) error {
	return runIntent(mc, plan.IntentBundle, parseBackend(c.target), parseMode(false), args)
}
