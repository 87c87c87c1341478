package armcache

import (
	"context"
	"path/filepath"
	"testing"

	"platter/internal/fingerprint"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	cache, err := Open(filepath.Join(t.TempDir(), "arm.db"), nil)
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestCacheRoundTrip(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()

	if _, found, err := cache.Lookup(ctx, "abc123"); err != nil || found {
		t.Fatalf("expected miss on empty cache, found=%v err=%v", found, err)
	}

	match := fingerprint.Match{Title: "Inception", Year: 2010}
	if err := cache.Add(ctx, "abc123", match); err != nil {
		t.Fatalf("add: %v", err)
	}

	got, found, err := cache.Lookup(ctx, "abc123")
	if err != nil || !found {
		t.Fatalf("expected hit, found=%v err=%v", found, err)
	}
	if got != match {
		t.Fatalf("unexpected match: %+v", got)
	}
}

func TestCacheAddReplacesExisting(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()

	if err := cache.Add(ctx, "abc", fingerprint.Match{Title: "Wrong Guess"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := cache.Add(ctx, "abc", fingerprint.Match{Title: "Right Guess", Year: 1999}); err != nil {
		t.Fatalf("replace: %v", err)
	}

	got, found, err := cache.Lookup(ctx, "abc")
	if err != nil || !found {
		t.Fatalf("expected hit, found=%v err=%v", found, err)
	}
	if got.Title != "Right Guess" || got.Year != 1999 {
		t.Fatalf("expected replacement to win, got %+v", got)
	}

	count, err := cache.Count(ctx)
	if err != nil || count != 1 {
		t.Fatalf("expected 1 entry, got %d err=%v", count, err)
	}
}

func TestCacheRemoveAndClear(t *testing.T) {
	cache := openTestCache(t)
	ctx := context.Background()

	if err := cache.Remove(ctx, "missing"); err == nil {
		t.Fatal("expected error removing unknown hash")
	}

	_ = cache.Add(ctx, "one", fingerprint.Match{Title: "One"})
	_ = cache.Add(ctx, "two", fingerprint.Match{Title: "Two"})

	if err := cache.Remove(ctx, "one"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	entries, err := cache.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].Hash != "two" {
		t.Fatalf("unexpected entries after remove: %+v", entries)
	}

	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	count, err := cache.Count(ctx)
	if err != nil || count != 0 {
		t.Fatalf("expected empty cache, got %d err=%v", count, err)
	}
}

func TestDisabledCacheIsNoop(t *testing.T) {
	cache, err := Open("", nil)
	if err != nil {
		t.Fatalf("open disabled: %v", err)
	}
	defer cache.Close()

	ctx := context.Background()
	if cache.Enabled() {
		t.Fatal("expected disabled cache")
	}
	if err := cache.Add(ctx, "abc", fingerprint.Match{Title: "X"}); err != nil {
		t.Fatalf("add on disabled cache: %v", err)
	}
	if _, found, err := cache.Lookup(ctx, "abc"); err != nil || found {
		t.Fatalf("expected miss on disabled cache, found=%v err=%v", found, err)
	}
}
