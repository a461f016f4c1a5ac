package main

import (
	"flag"
	"os"
	"path/filepath"

	"github.com/moonbitlang/moon/internal/moonctx"
)

type cleanCommand struct{}

func (c *cleanCommand) Name() string      { return "clean" }
func (c *cleanCommand) Args() string      { return "" }
func (c *cleanCommand) ShortHelp() string { return "Remove the target directory" }
func (c *cleanCommand) LongHelp() string {
	return "Clean removes the project's target directory, discarding every cached build artifact and stamp."
}
func (c *cleanCommand) Hidden() bool { return false }

func (c *cleanCommand) Register(fs *flag.FlagSet) {}

func (c *cleanCommand) Run(mc *moonctx.Ctx, args []string) error {
	proj, err := mc.LoadProject(*dirFlag)
	if err != nil {
		return err
	}
	targetDir := *targetDirFlag
	if targetDir == "" {
		targetDir = filepath.Join(proj.Module.RootDir, "target")
	}
	return os.RemoveAll(targetDir)
}
