package imgcache

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

type countingFetcher struct {
	mu      sync.Mutex
	batches [][]string
	result  map[string]string
	err     error
}

func (f *countingFetcher) fn(ctx context.Context, usernames []string) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	dup := make([]string, len(usernames))
	copy(dup, usernames)
	f.batches = append(f.batches, dup)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *countingFetcher) batchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func TestRequestBatch_CachesFoundAndMissing(t *testing.T) {
	icon := base64.StdEncoding.EncodeToString([]byte("png-bytes"))
	fetcher := &countingFetcher{result: map[string]string{"ada": icon}}
	cache := New(fetcher.fn, zerolog.Nop())

	cache.RequestBatch(context.Background(), []string{"ada", "lin", ""})

	entry, ok := cache.Lookup("ada")
	if !ok || !entry.Found || string(entry.Data) != "png-bytes" {
		t.Fatalf("ada entry = %+v/%v, want decoded icon", entry, ok)
	}
	entry, ok = cache.Lookup("lin")
	if !ok || entry.Found {
		t.Fatalf("lin entry = %+v/%v, want cached not-found", entry, ok)
	}
	if _, ok := cache.Lookup("never"); ok {
		t.Fatalf("unrequested username reported as cached")
	}
}

func TestRequestBatch_Monotonic(t *testing.T) {
	fetcher := &countingFetcher{result: map[string]string{}}
	cache := New(fetcher.fn, zerolog.Nop())

	cache.RequestBatch(context.Background(), []string{"ada", "lin"})
	cache.RequestBatch(context.Background(), []string{"ada", "lin"})
	cache.RequestBatch(context.Background(), []string{"ada"})

	// Both usernames cached (as not-found) by the first batch; later calls
	// must not issue any request at all.
	if got := fetcher.batchCount(); got != 1 {
		t.Fatalf("batch count = %d, want 1", got)
	}
}

func TestRequestBatch_FailureIsSilentAndRetryable(t *testing.T) {
	fetcher := &countingFetcher{err: errors.New("boom")}
	cache := New(fetcher.fn, zerolog.Nop())

	cache.RequestBatch(context.Background(), []string{"ada"})
	if _, ok := cache.Lookup("ada"); ok {
		t.Fatalf("failed fetch cached an entry, want retryable absence")
	}

	fetcher.mu.Lock()
	fetcher.err = nil
	fetcher.result = map[string]string{}
	fetcher.mu.Unlock()

	cache.RequestBatch(context.Background(), []string{"ada"})
	if _, ok := cache.Lookup("ada"); !ok {
		t.Fatalf("retry after failure did not populate cache")
	}
	if got := fetcher.batchCount(); got != 2 {
		t.Fatalf("batch count = %d, want 2", got)
	}
}

func TestRequestBatch_InFlightUsernamesAreNotRefetched(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var inner countingFetcher
	inner.result = map[string]string{}

	blocking := func(ctx context.Context, usernames []string) (map[string]string, error) {
		close(started)
		<-release
		return inner.fn(ctx, usernames)
	}
	cache := New(blocking, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		cache.RequestBatch(context.Background(), []string{"ada"})
		close(done)
	}()
	<-started

	// While the first batch is in flight, the same username is filtered out
	// without a second request (which would also deadlock on `started`).
	cache.RequestBatch(context.Background(), []string{"ada"})

	close(release)
	<-done
	if got := inner.batchCount(); got != 1 {
		t.Fatalf("batch count = %d, want 1", got)
	}
}

func TestEnsureAhead_RequestsWindowWithMargin(t *testing.T) {
	fetcher := &countingFetcher{result: map[string]string{}}
	cache := New(fetcher.fn, zerolog.Nop())

	all := []string{"a", "b", "c", "d", "e", "f"}
	cache.EnsureAhead(context.Background(), all, 2, 2)

	fetcher.mu.Lock()
	first := fetcher.batches[0]
	fetcher.mu.Unlock()
	if len(first) != 4 {
		t.Fatalf("window = %v, want visible end 2 + margin 2 = 4 usernames", first)
	}

	// Window past the end of the list is clamped.
	cache.EnsureAhead(context.Background(), all, 5, 10)
	entryCount := 0
	for _, u := range all {
		if _, ok := cache.Lookup(u); ok {
			entryCount++
		}
	}
	if entryCount != len(all) {
		t.Fatalf("cached %d of %d after clamped window", entryCount, len(all))
	}
}

func TestEnsureAhead_EmptyListIsNoop(t *testing.T) {
	fetcher := &countingFetcher{result: map[string]string{}}
	cache := New(fetcher.fn, zerolog.Nop())

	cache.EnsureAhead(context.Background(), nil, 0, 5)
	if got := fetcher.batchCount(); got != 0 {
		t.Fatalf("batch count = %d, want 0 for empty list", got)
	}
}
