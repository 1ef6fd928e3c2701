package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mikey/phishing-filter/internal/core"
	"go.uber.org/zap"
)

func sampleEntry(key string, ttl time.Duration) *core.CacheEntry {
	now := time.Now()
	return &core.CacheEntry{
		Key: key,
		Result: &core.AnalysisResult{
			ProcessingID: "abc",
			FinalLabel:   core.LabelSpam,
			OverallScore: 0.6,
			SpamVotes:    3,
			Keywords:     []string{"urgent"},
			URLs:         []string{"paypa1.com"},
			URLCheck:     []bool{false},
			EditCheck:    []core.LookalikeMatch{{Distance: 1, Domain: "paypal.com"}},
			Reputation:   core.NotFoundReputation(),
			Checks:       []core.CheckResult{},
		},
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(zap.NewNop(), 0)
	defer c.Stop()

	if _, err := c.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := c.Set(ctx, sampleEntry("k1", time.Hour)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := c.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Result.FinalLabel != core.LabelSpam || got.Result.SpamVotes != 3 {
		t.Errorf("unexpected entry %+v", got.Result)
	}

	if err := c.Set(ctx, sampleEntry("k2", -time.Minute)); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(ctx, "k2"); !errors.Is(err, ErrExpired) {
		t.Errorf("expected ErrExpired, got %v", err)
	}
	if err := c.Cleanup(ctx); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 1 {
		t.Errorf("Len() after cleanup = %d, want 1", c.Len())
	}

	if err := c.Delete(ctx, "k1"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(ctx, "k1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}

	if err := c.Set(ctx, &core.CacheEntry{}); err == nil {
		t.Error("expected error for entry without key")
	}
	c.Stop()
}

func TestSQLiteCache(t *testing.T) {
	ctx := context.Background()
	c, err := NewSQLiteCache(filepath.Join(t.TempDir(), "cache.db"), zap.NewNop(), 0)
	if err != nil {
		t.Fatalf("NewSQLiteCache() error = %v", err)
	}
	defer c.Stop()

	if _, err := c.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := c.Set(ctx, sampleEntry("k1", time.Hour)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	// overwrite keeps a single row
	if err := c.Set(ctx, sampleEntry("k1", time.Hour)); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}

	got, err := c.Get(ctx, "k1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	res := got.Result
	if res.FinalLabel != core.LabelSpam || len(res.EditCheck) != 1 || res.EditCheck[0].Domain != "paypal.com" {
		t.Errorf("verdict did not survive storage: %+v", res)
	}
	if res.Reputation.Found {
		t.Error("NotFound reputation should decode as not found")
	}

	if err := c.Set(ctx, sampleEntry("old", -time.Hour)); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(ctx, "old"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expired entry should not be returned, got %v", err)
	}
	if err := c.Cleanup(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.Delete(ctx, "k1"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(ctx, "k1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}
