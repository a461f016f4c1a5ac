// Package moonctx resolves the ambient environment every CLI command needs
// before it can touch a project: $MOON_HOME, the project root, and global
// configuration, grounded on context.go's Ctx/NewContext/LoadProject shape.
package moonctx

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/moonbitlang/moon/internal/config"
	"github.com/moonbitlang/moon/internal/scan"
)

// EnvMoonHome overrides the default $HOME/.moon location.
const EnvMoonHome = "MOON_HOME"

// Ctx is the resolved ambient environment shared by every subcommand.
type Ctx struct {
	MoonHome string
	Config   config.Config
}

// NewContext resolves $MOON_HOME (or its default, $HOME/.moon) and loads
// its config.toml, assuming defaults unless told otherwise.
func NewContext() (*Ctx, error) {
	home := os.Getenv(EnvMoonHome)
	if home == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, "resolving home directory")
		}
		home = filepath.Join(h, ".moon")
	}
	cfg, err := config.Load(filepath.Join(home, config.FileName))
	if err != nil {
		return nil, err
	}
	return &Ctx{MoonHome: home, Config: cfg}, nil
}

// BinDir is where toolchain-override binaries and installed tools live.
func (c *Ctx) BinDir() string { return filepath.Join(c.MoonHome, "bin") }

// CacheDir holds the resolution-decision and stamp bolt databases.
func (c *Ctx) CacheDir() string { return filepath.Join(c.MoonHome, "cache") }

// LoadProject finds and scans the module rooted at or above path ("" means
// the current working directory).
func (c *Ctx) LoadProject(path string) (*scan.Project, error) {
	if path == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "getting working directory")
		}
		path = wd
	}
	mod, pkgs, err := scan.Scan(path)
	if err != nil {
		return nil, err
	}
	return &scan.Project{Module: mod, Packages: pkgs}, nil
}
