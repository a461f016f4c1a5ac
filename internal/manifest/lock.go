package manifest

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// LockName is the file moon writes next to moon.mod.json to record the
// result of a resolve pass, so later invocations can skip the registry
// oracle entirely when the manifest is unchanged: MVS resolution alone
// doesn't pin a reproducible file, the same role a Go module's go.sum or
// a dependency manager's own lock file serves.
const LockName = "moon.lock.json"

// LockedModule is one resolved module entry in moon.lock.json.
type LockedModule struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Digest   string `json:"digest,omitempty"`
	Revision string `json:"revision,omitempty"` // set for vcs-backed bin-deps
}

// Lock is the parsed moon.lock.json document: the frozen output of a
// previous MVS resolution, keyed by module name for O(1) lookup.
type Lock struct {
	InputsDigest string                  `json:"inputs-digest"`
	Modules      map[string]LockedModule `json:"modules"`
}

func ReadLock(r io.Reader) (*Lock, error) {
	var l Lock
	if err := json.NewDecoder(r).Decode(&l); err != nil {
		return nil, errors.Wrap(err, "decoding "+LockName)
	}
	if l.Modules == nil {
		l.Modules = make(map[string]LockedModule)
	}
	return &l, nil
}

func WriteLock(w io.Writer, l *Lock) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(l)
}
