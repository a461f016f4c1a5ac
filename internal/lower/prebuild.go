package lower

import (
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"github.com/moonbitlang/moon/internal/graph"
)

// EnvIgnorePrebuild disables every pre-build task when set — useful for
// re-running a build from a source tree whose generated files were checked
// in and should not be regenerated.
const EnvIgnorePrebuild = "MOON_IGNORE_PREBUILD"

// embedCommand is the one builtin pre-build command recognized in place of
// an actual shell invocation: it copies $input's bytes into $output
// verbatim, for packages that want to bundle a data file without shelling
// out to `cp`.
const embedCommand = ":embed"

// PrebuildVars carries the substitution variables available to a
// pre-build task's `command` string.
type PrebuildVars struct {
	PkgDir      string
	ModDir      string
	MooncakeBin string
}

// Substitute expands $input, $output, $pkg_dir, $mod_dir and
// $mooncake_bin references in cmd. Unknown $-references are left as-is
// rather than erroring on an unrecognized token.
func Substitute(cmd, input, output string, vars PrebuildVars) string {
	r := strings.NewReplacer(
		"$input", input,
		"$output", output,
		"$pkg_dir", vars.PkgDir,
		"$mod_dir", vars.ModDir,
		"$mooncake_bin", vars.MooncakeBin,
	)
	return r.Replace(cmd)
}

// RunPrebuildTask executes one pre-build task, honoring
// MOON_IGNORE_PREBUILD and the :embed builtin.
func RunPrebuildTask(task graph.PreBuildTask, l Layout, pkgDir, modDir, mooncakeBin string) error {
	if os.Getenv(EnvIgnorePrebuild) != "" {
		return nil
	}

	input := l.PrebuildOutputFile(pkgDir, task.Input)
	output := l.PrebuildOutputFile(pkgDir, task.Output)

	if strings.TrimSpace(task.Command) == embedCommand {
		data, err := os.ReadFile(input)
		if err != nil {
			return errors.Wrapf(err, "pre-build :embed reading %s", input)
		}
		if err := os.WriteFile(output, data, 0o644); err != nil {
			return errors.Wrapf(err, "pre-build :embed writing %s", output)
		}
		return nil
	}

	cmd := Substitute(task.Command, input, output, PrebuildVars{PkgDir: pkgDir, ModDir: modDir, MooncakeBin: mooncakeBin})
	c := exec.Command("sh", "-c", cmd)
	c.Dir = pkgDir
	out, err := c.CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, "pre-build command failed: %s\n%s", cmd, out)
	}
	return nil
}
