package executor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"

	"github.com/moonbitlang/moon/internal/lower"
)

var stampBucket = []byte("stamps")

// StampCache is the incremental-build memo: a node is skipped once its
// recorded input fingerprint matches the fingerprint of its current
// inputs, backed by a bolt database for the same reason a resolved-manifest
// cache is: simple key/value durability across process invocations.
type StampCache struct {
	db *bolt.DB
}

// OpenStampCache opens (creating if absent) the bolt database at path.
func OpenStampCache(path string) (*StampCache, error) {
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening stamp cache at %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(stampBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &StampCache{db: db}, nil
}

func (c *StampCache) Close() error { return c.db.Close() }

// Fingerprint hashes a command's declared inputs' (path, size, mtime)
// triples, deliberately not their content: only promises
// "re-run when an input changes," and stat-based fingerprinting is the
// incremental-build strategy pkg_analysis.go/txn_writer.go's own caller
// uses to avoid reading every source file on every invocation.
func Fingerprint(cmd lower.Command) (string, error) {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00", cmd.Program)
	for _, a := range cmd.Args {
		fmt.Fprintf(h, "%s\x00", a)
	}
	for _, in := range cmd.Inputs {
		st, err := os.Stat(in)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Fprintf(h, "missing:%s\x00", in)
				continue
			}
			return "", errors.Wrapf(err, "stat %s", in)
		}
		fmt.Fprintf(h, "%s:%d:%d\x00", in, st.Size(), st.ModTime().UnixNano())
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// NeedsRun reports whether nodeKey's recorded fingerprint differs from
// fingerprint, or it has never been recorded, or any declared output is
// missing.
func (c *StampCache) NeedsRun(nodeKey, fingerprint string, outputs []string) (bool, error) {
	for _, out := range outputs {
		if _, err := os.Stat(out); err != nil {
			return true, nil
		}
	}
	var prev []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		prev = append([]byte(nil), tx.Bucket(stampBucket).Get([]byte(nodeKey))...)
		return nil
	})
	if err != nil {
		return false, err
	}
	if prev == nil {
		return true, nil
	}
	return string(prev) != fingerprint, nil
}

// Record stores nodeKey's fingerprint after a successful run.
func (c *StampCache) Record(nodeKey, fingerprint string) error {
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(stampBucket).Put([]byte(nodeKey), []byte(fingerprint))
	})
}
