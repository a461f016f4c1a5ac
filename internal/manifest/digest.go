package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/moonbitlang/moon/internal/graph"
)

// Digest computes a stable content hash over a module's name, version, and
// dependency map, used to detect "the manifest changed" without re-running
// the full resolve pass. Grounded on hash.go/hash_in.go's solver-input
// hashing: sort keys, write length-prefixed fields, hash the result.
func Digest(m *graph.Module) string {
	h := sha256.New()
	writeField(h, string(m.Name))
	writeField(h, m.Version)
	writeField(h, m.Source)

	names := make([]string, 0, len(m.Deps))
	for n := range m.Deps {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		writeField(h, n)
		writeField(h, m.Deps[n])
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeField(h interface{ Write([]byte) (int, error) }, s string) {
	h.Write([]byte{byte(len(s)), byte(len(s) >> 8)})
	h.Write([]byte(s))
}
