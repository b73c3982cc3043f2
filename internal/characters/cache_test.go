package characters

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
)

// countingStore wraps the document store to observe pass-through calls.
type countingStore struct {
	Store
	findAllCalls int
}

func (store *countingStore) FindAll(ctx context.Context) ([]Character, error) {
	store.findAllCalls++
	return store.Store.FindAll(ctx)
}

func newTestCachedStore(t *testing.T) (*CachedStore, *countingStore, *fakeRedis) {
	t.Helper()
	inner, _ := newTestDocumentStore()
	counting := &countingStore{Store: inner}
	fake := newFakeRedis()
	cache := newCachedStore(counting, fake, time.Minute, zaptest.NewLogger(t))
	return cache, counting, fake
}

func TestCachedStoreServesSecondListingFromCache(t *testing.T) {
	t.Parallel()

	cache, counting, _ := newTestCachedStore(t)
	if _, createErr := cache.Create(context.Background(), lukeCharacter()); createErr != nil {
		t.Fatalf("unexpected create error: %v", createErr)
	}

	first, listErr := cache.FindAll(context.Background())
	if listErr != nil {
		t.Fatalf("unexpected list error: %v", listErr)
	}
	second, listErr := cache.FindAll(context.Background())
	if listErr != nil {
		t.Fatalf("unexpected list error: %v", listErr)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("unexpected listings: %v / %v", first, second)
	}
	if counting.findAllCalls != 1 {
		t.Fatalf("second listing must come from cache, inner store saw %d calls", counting.findAllCalls)
	}
}

func TestCachedStoreInvalidatesOnMutation(t *testing.T) {
	t.Parallel()

	cache, counting, _ := newTestCachedStore(t)
	if _, createErr := cache.Create(context.Background(), lukeCharacter()); createErr != nil {
		t.Fatalf("unexpected create error: %v", createErr)
	}
	if _, listErr := cache.FindAll(context.Background()); listErr != nil {
		t.Fatalf("unexpected list error: %v", listErr)
	}

	other := lukeCharacter()
	other.Name = "Owen Lars"
	if _, createErr := cache.Create(context.Background(), other); createErr != nil {
		t.Fatalf("unexpected create error: %v", createErr)
	}

	listing, listErr := cache.FindAll(context.Background())
	if listErr != nil {
		t.Fatalf("unexpected list error: %v", listErr)
	}
	if len(listing) != 2 {
		t.Fatalf("stale cache served after mutation: %+v", listing)
	}
	if counting.findAllCalls != 2 {
		t.Fatalf("expected a fresh read after invalidation, inner store saw %d calls", counting.findAllCalls)
	}
}

func TestCachedStoreDegradesWhenRedisFails(t *testing.T) {
	t.Parallel()

	cache, _, fake := newTestCachedStore(t)
	if _, createErr := cache.Create(context.Background(), lukeCharacter()); createErr != nil {
		t.Fatalf("unexpected create error: %v", createErr)
	}

	// Both the read and the write-back fail; the listing still succeeds.
	fake.failures = 2
	listing, listErr := cache.FindAll(context.Background())
	if listErr != nil {
		t.Fatalf("cache failure must not surface: %v", listErr)
	}
	if len(listing) != 1 {
		t.Fatalf("unexpected listing: %+v", listing)
	}
}
