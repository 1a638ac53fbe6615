package cache

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestNullCache(t *testing.T) {
	ctx := context.Background()
	c := NewNullCache()
	defer c.Close()

	data, hit, err := c.Get(ctx, "key")
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if hit || data != nil {
		t.Error("NullCache.Get should always miss")
	}

	if err := c.Set(ctx, "key", []byte("value"), time.Hour); err != nil {
		t.Errorf("Set error: %v", err)
	}
	if _, hit, _ = c.Get(ctx, "key"); hit {
		t.Error("NullCache should not store data")
	}
	if err := c.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

// exercise runs the behavior every Cache backend shares.
func exercise(t *testing.T, c Cache) {
	t.Helper()
	ctx := context.Background()

	if _, hit, err := c.Get(ctx, "missing"); hit || err != nil {
		t.Fatalf("Get(missing) = hit %v, err %v", hit, err)
	}

	if err := c.Set(ctx, "listing", []byte(`[{"name":"emacs"}]`), 0); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, "listing")
	if err != nil || !hit {
		t.Fatalf("Get(listing) = hit %v, err %v", hit, err)
	}
	if string(data) != `[{"name":"emacs"}]` {
		t.Errorf("Get(listing) = %q", data)
	}

	if err := c.Delete(ctx, "listing"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "listing"); hit {
		t.Error("Get after Delete should miss")
	}
	if err := c.Delete(ctx, "listing"); err != nil {
		t.Errorf("Delete of missing key error: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache error: %v", err)
	}
	exercise(t, c)
}

func TestFileCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())

	if err := c.Set(ctx, "k", []byte("v"), time.Nanosecond); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	time.Sleep(time.Millisecond)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry should miss")
	}
}

func TestFileCacheCorruptEntry(t *testing.T) {
	ctx := context.Background()
	c, _ := NewFileCache(t.TempDir())
	_ = c.Set(ctx, "k", []byte("v"), 0)

	path := c.path("k")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, hit, err := c.Get(ctx, "k"); hit || err != nil {
		t.Errorf("corrupt entry: hit %v, err %v, want miss", hit, err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("corrupt entry should be removed")
	}
}

func TestFileCacheClear(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	c, _ := NewFileCache(dir)
	for _, k := range []string{"a", "b", "c"} {
		_ = c.Set(ctx, k, []byte(k), 0)
	}

	n, err := c.Clear()
	if err != nil {
		t.Fatalf("Clear error: %v", err)
	}
	if n != 3 {
		t.Errorf("Clear removed %d entries, want 3", n)
	}
	left, _ := filepath.Glob(filepath.Join(dir, "*"))
	if len(left) != 0 {
		t.Errorf("Clear left %v", left)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("Clear should keep the root directory: %v", err)
	}
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisCache) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	c := NewRedisCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { c.Close() })
	return mr, c
}

func TestRedisCache(t *testing.T) {
	_, c := newTestRedis(t)
	exercise(t, c)
}

func TestRedisCacheTTL(t *testing.T) {
	ctx := context.Background()
	mr, c := newTestRedis(t)

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if !mr.Exists(DefaultRedisPrefix + "k") {
		t.Fatal("key should be stored under the fsm prefix")
	}
	mr.FastForward(2 * time.Minute)
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired key should miss")
	}
}

func TestDialRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	addr := mr.Addr()

	c, err := DialRedis(context.Background(), addr)
	if err != nil {
		mr.Close()
		t.Fatalf("DialRedis error: %v", err)
	}
	c.Close()

	// The listener is gone after Close, so keep the address from before.
	mr.Close()
	if _, err := DialRedis(context.Background(), addr); err == nil {
		t.Error("DialRedis to a closed server should fail")
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	if h1 != Hash([]byte("hello")) {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("Different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestDefaultKeyer(t *testing.T) {
	k := NewDefaultKeyer()

	if got := k.HTTPKey("repo", "https://example.com/r.json"); got != "http:repo:https://example.com/r.json" {
		t.Errorf("HTTPKey unexpected: %s", got)
	}

	k1 := k.ResolutionKey("abc", ResolutionKeyOpts{Root: "emacs"})
	k2 := k.ResolutionKey("abc", ResolutionKeyOpts{Root: "emacs", CheckVersions: true})
	k3 := k.ResolutionKey("abd", ResolutionKeyOpts{Root: "emacs"})
	if k1 == k2 || k1 == k3 {
		t.Error("different digests or options should produce different keys")
	}
	if !strings.HasPrefix(k1, "resolve:") {
		t.Errorf("ResolutionKey = %s, want resolve: prefix", k1)
	}
}

func TestScopedKeyer(t *testing.T) {
	scoped := NewScopedKeyer(NewDefaultKeyer(), "server:")

	if got := scoped.HTTPKey("repo", "x"); got != "server:http:repo:x" {
		t.Errorf("ScopedKeyer HTTPKey unexpected: %s", got)
	}
	if got := scoped.ResolutionKey("d", ResolutionKeyOpts{}); !strings.HasPrefix(got, "server:resolve:") {
		t.Errorf("ScopedKeyer ResolutionKey should be prefixed: %s", got)
	}
}

func TestScopedKeyerNilInner(t *testing.T) {
	scoped := NewScopedKeyer(nil, "prefix:")
	if got := scoped.HTTPKey("test", "key"); got != "prefix:http:test:key" {
		t.Errorf("Unexpected key with nil inner: %s", got)
	}
}
