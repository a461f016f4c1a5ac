package lower

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// DryRun renders a stable, byte-for-byte reproducible textual dump of a
// lowered command set, one line per command ordered by node key, for the
// `--dry-run` flag. The format is explicitly unstable/undocumented: it
// exists for humans and golden-file diffing, not for machine consumption.
func DryRun(w io.Writer, cmds []Command) error {
	sorted := make([]Command, len(cmds))
	copy(sorted, cmds)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Node.Key() < sorted[j].Node.Key() })

	for _, c := range sorted {
		if c.Program == "" {
			fmt.Fprintf(w, "%s: (generated, no subprocess)\n", c.Node.Key())
			continue
		}
		line := c.Program
		if len(c.Args) > 0 {
			line += " " + strings.Join(c.Args, " ")
		}
		fmt.Fprintf(w, "%s: %s\n", c.Node.Key(), line)
	}
	return nil
}
