package main

import (
	"flag"

	"github.com/moonbitlang/moon/internal/moonctx"
	"github.com/moonbitlang/moon/internal/plan"
)

type buildCommand struct {
	target  string
	release bool
}

func (c *buildCommand) Name() string      { return "build" }
func (c *buildCommand) Args() string      { return "[package...]" }
func (c *buildCommand) ShortHelp() string { return "Build the selected packages" }
func (c *buildCommand) LongHelp() string {
	return "Build links an executable for every selected package (every is-main package by default) that is is-main or has link config; any other selected package causes every package in its module to be compiled, without linking."
}
func (c *buildCommand) Hidden() bool { return false }

func (c *buildCommand) Register(fs *flag.FlagSet) {
	fs.StringVar(&c.target, "target", "", "backend: wasm, wasm-gc, js, native, llvm")
	fs.BoolVar(&c.release, "release", false, "build in release mode")
}

func (c *buildCommand) Run(mc *moonctx.Ctx, args []string) error {
	return runIntent(mc, plan.IntentBuild, parseBackend(c.target), parseMode(c.release), args)
}
