// Package toolchain locates the compiler/runtime binaries internal/lower
// invokes, implementing implicit tiered discovery: an explicit
// override always wins, then a binary shipped alongside the moon
// executable itself, then one installed under $MOON_HOME/bin, then $PATH.
package toolchain

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// OverrideEnvVar returns the environment variable name that overrides the
// discovery of binary, e.g. "MOONC_OVERRIDE" for "moonc".
func OverrideEnvVar(binary string) string {
	return strings.ToUpper(binary) + "_OVERRIDE"
}

// Discover resolves binary's path through, in order: its override env var,
// a file of the same name next to the running moon executable, a file of
// the same name under moonHomeBin, and finally $PATH.
func Discover(binary, moonHomeBin string) (string, error) {
	if p := os.Getenv(OverrideEnvVar(binary)); p != "" {
		return p, nil
	}

	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), exeName(binary))
		if isExecutable(candidate) {
			return candidate, nil
		}
	}

	if moonHomeBin != "" {
		candidate := filepath.Join(moonHomeBin, exeName(binary))
		if isExecutable(candidate) {
			return candidate, nil
		}
	}

	if p, err := exec.LookPath(binary); err == nil {
		return p, nil
	}

	return "", errors.Errorf("could not locate %q: set %s, place it next to the moon binary, install it under %s, or add it to PATH", binary, OverrideEnvVar(binary), moonHomeBin)
}

func exeName(binary string) string {
	if os.PathSeparator == '\\' {
		return binary + ".exe"
	}
	return binary
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0o111 != 0 || os.PathSeparator == '\\'
}
