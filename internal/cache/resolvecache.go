// Package cache persists the result of a Minimal Version Selection run
// keyed by its input manifest digest, grounded on
// internal/gps/source_cache_bolt.go's bolt-backed manifest/lock memoization
// — the same idea applied one layer up, to the resolution decision rather
// than to a fetched source's individual manifest.
package cache

import (
	"encoding/json"
	"time"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
)

var resolveBucket = []byte("resolutions")

// ResolveCache memoizes MVS results by the digest of the module manifest
// that produced them (internal/manifest.Digest), so that an unchanged
// moon.mod.json skips re-running the resolver entirely.
type ResolveCache struct {
	db *bolt.DB
}

// Entry is the cached shape of a resolution: module name -> selected
// version string. Kept as plain strings rather than graph/semver types so
// this package never needs to import internal/resolve or internal/graph.
type Entry struct {
	Versions map[string]string `json:"versions"`
}

// Open opens (creating if absent) the bolt database at path.
func Open(path string) (*ResolveCache, error) {
	db, err := bolt.Open(path, 0o644, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "opening resolution cache at %s", path)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(resolveBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &ResolveCache{db: db}, nil
}

func (c *ResolveCache) Close() error { return c.db.Close() }

// Get returns the cached resolution for digest, if any.
func (c *ResolveCache) Get(digest string) (Entry, bool, error) {
	var raw []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		raw = append([]byte(nil), tx.Bucket(resolveBucket).Get([]byte(digest))...)
		return nil
	})
	if err != nil {
		return Entry{}, false, err
	}
	if raw == nil {
		return Entry{}, false, nil
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, false, errors.Wrap(err, "decoding cached resolution")
	}
	return e, true, nil
}

// Put records the resolution for digest, overwriting any prior entry.
func (c *ResolveCache) Put(digest string, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(resolveBucket).Put([]byte(digest), data)
	})
}
