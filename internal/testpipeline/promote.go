package testpipeline

import "github.com/moonbitlang/moon/internal/moonerr"

// DefaultPromotionLimit bounds the --update rewrite loop: collect
// failures, rewrite expected values, rebuild, rerun, repeating until a
// pass produces zero promotions or this many passes have run.
const DefaultPromotionLimit = 256

// CaseKey identifies one test case across promotion passes.
type CaseKey struct {
	Target string
	File   string
	Index  int
}

// Runner executes one pass: build+run everything named by keys and report
// each one's outcome. A nil error for a key means the case passed; a
// *moonerr.TestFailure means it needs promotion (expect/snapshot) or is a
// genuine failure, distinguished by its Kind field.
type Runner func(keys []CaseKey) (map[CaseKey]error, error)

// Rewriter applies one promotion: overwrite the expected/snapshot value in
// source for failure.
type Rewriter func(key CaseKey, failure *moonerr.TestFailure) error

// Promote runs the update loop: each pass reruns every key still
// outstanding, rewrites every expect/snapshot failure found, and drops keys
// that passed. It stops when a pass rewrites nothing or after limit
// passes, whichever comes first. The final per-key result table reflects
// only the last pass's outcome for each key — earlier-pass failures that
// were subsequently promoted and then passed are not retained.
func Promote(keys []CaseKey, run Runner, rewrite Rewriter, limit int) (map[CaseKey]error, int, error) {
	if limit <= 0 {
		limit = DefaultPromotionLimit
	}
	remaining := append([]CaseKey{}, keys...)
	final := make(map[CaseKey]error)

	for pass := 0; pass < limit; pass++ {
		if len(remaining) == 0 {
			return final, pass, nil
		}
		results, err := run(remaining)
		if err != nil {
			return nil, pass, err
		}

		var next []CaseKey
		rewrites := 0
		for _, k := range remaining {
			err := results[k]
			final[k] = err
			if err == nil {
				continue
			}
			tf, ok := err.(*moonerr.TestFailure)
			if !ok || (tf.Kind != "expect" && tf.Kind != "snapshot") {
				next = append(next, k) // genuine failure, not promotable; keep reporting it
				continue
			}
			if rerr := rewrite(k, tf); rerr != nil {
				return nil, pass, rerr
			}
			rewrites++
			next = append(next, k)
		}
		if rewrites == 0 {
			return final, pass + 1, nil
		}
		remaining = next
	}
	return final, limit, nil
}
