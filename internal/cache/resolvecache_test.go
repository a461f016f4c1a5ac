package cache

import (
	"path/filepath"
	"testing"
)

func openTestCache(t *testing.T) *ResolveCache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "resolve.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestResolveCacheMissOnEmpty(t *testing.T) {
	c := openTestCache(t)
	_, ok, err := c.Get("digest-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("Get on an empty cache should report a miss")
	}
}

func TestResolveCachePutGet(t *testing.T) {
	c := openTestCache(t)
	want := Entry{Versions: map[string]string{"user/dep": "1.2.0"}}
	if err := c.Put("digest-1", want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := c.Get("digest-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("Get should report a hit after Put")
	}
	if got.Versions["user/dep"] != "1.2.0" {
		t.Errorf("Get = %+v, want %+v", got, want)
	}
}

func TestResolveCachePutOverwrites(t *testing.T) {
	c := openTestCache(t)
	c.Put("digest-1", Entry{Versions: map[string]string{"user/dep": "1.0.0"}})
	c.Put("digest-1", Entry{Versions: map[string]string{"user/dep": "2.0.0"}})

	got, _, err := c.Get("digest-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Versions["user/dep"] != "2.0.0" {
		t.Errorf("Get after overwrite = %+v, want version 2.0.0", got)
	}
}

func TestResolveCachePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolve.db")
	c1, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := c1.Put("digest-1", Entry{Versions: map[string]string{"user/dep": "1.0.0"}}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := c1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	c2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer c2.Close()
	got, ok, err := c2.Get("digest-1")
	if err != nil || !ok {
		t.Fatalf("Get after reopen: got=%+v ok=%v err=%v", got, ok, err)
	}
	if got.Versions["user/dep"] != "1.0.0" {
		t.Errorf("Get after reopen = %+v", got)
	}
}
