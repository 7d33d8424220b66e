package knowledge

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studiokb/linebridge/internal/models"
)

type fakeSource struct {
	pageIDs  []string
	pages    map[string]*models.KnowledgePage
	fetches  atomic.Int64
	fetchGap time.Duration
}

func (f *fakeSource) ListPageIDs() []string { return f.pageIDs }

func (f *fakeSource) FetchPage(_ context.Context, id string) *models.KnowledgePage {
	f.fetches.Add(1)
	if f.fetchGap > 0 {
		time.Sleep(f.fetchGap)
	}
	return f.pages[id]
}

func newTestCache(source *fakeSource, ttl time.Duration) *SnapshotCache {
	return NewSnapshotCache(source, ttl, zap.NewNop())
}

func TestGetSnapshot_CombinesPagesInConfiguredOrder(t *testing.T) {
	source := &fakeSource{
		pageIDs: []string{"p1", "p2"},
		pages: map[string]*models.KnowledgePage{
			"p1": {ID: "p1", Title: "FAQ", Content: "opening hours"},
			"p2": {ID: "p2", Title: "報名", Content: "線上表單"},
		},
	}
	cache := newTestCache(source, time.Hour)

	snap, err := cache.GetSnapshot(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "--- Page: FAQ ---\nopening hours\n\n--- Page: 報名 ---\n線上表單", snap.CombinedText)
	require.Len(t, snap.Pages, 2)
	assert.Equal(t, "FAQ", snap.Pages[0].Title)
	assert.Equal(t, "報名", snap.Pages[1].Title)
}

func TestGetSnapshot_SecondReadHitsCache(t *testing.T) {
	source := &fakeSource{
		pageIDs: []string{"p1"},
		pages:   map[string]*models.KnowledgePage{"p1": {ID: "p1", Title: "FAQ", Content: "x"}},
	}
	cache := newTestCache(source, time.Hour)

	first, err := cache.GetSnapshot(context.Background())
	require.NoError(t, err)
	second, err := cache.GetSnapshot(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.EqualValues(t, 1, source.fetches.Load())
}

func TestGetSnapshot_ConcurrentColdReadsRebuildOnce(t *testing.T) {
	source := &fakeSource{
		pageIDs:  []string{"p1"},
		pages:    map[string]*models.KnowledgePage{"p1": {ID: "p1", Title: "FAQ", Content: "x"}},
		fetchGap: 20 * time.Millisecond,
	}
	cache := newTestCache(source, time.Hour)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			snap, err := cache.GetSnapshot(context.Background())
			assert.NoError(t, err)
			assert.NotNil(t, snap)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, source.fetches.Load())
}

func TestGetSnapshot_TTLExpiryTriggersRebuild(t *testing.T) {
	source := &fakeSource{
		pageIDs: []string{"p1"},
		pages:   map[string]*models.KnowledgePage{"p1": {ID: "p1", Title: "FAQ", Content: "x"}},
	}
	cache := newTestCache(source, time.Hour)

	current := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return current }

	_, err := cache.GetSnapshot(context.Background())
	require.NoError(t, err)

	current = current.Add(59 * time.Minute)
	_, err = cache.GetSnapshot(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, source.fetches.Load())

	current = current.Add(2 * time.Minute)
	snap, err := cache.GetSnapshot(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, source.fetches.Load())
	assert.Equal(t, current, snap.FetchedAt)
}

func TestInvalidate_ForcesRefetchBeforeTTL(t *testing.T) {
	source := &fakeSource{
		pageIDs: []string{"p1"},
		pages:   map[string]*models.KnowledgePage{"p1": {ID: "p1", Title: "FAQ", Content: "x"}},
	}
	cache := newTestCache(source, time.Hour)

	_, err := cache.GetSnapshot(context.Background())
	require.NoError(t, err)

	cache.Invalidate()
	// Invalidation itself performs no fetch.
	assert.EqualValues(t, 1, source.fetches.Load())

	_, err = cache.GetSnapshot(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, source.fetches.Load())
}

func TestGetSnapshot_FailedPagesAreDropped(t *testing.T) {
	source := &fakeSource{
		pageIDs: []string{"p1", "p2", "p3"},
		pages: map[string]*models.KnowledgePage{
			"p1": {ID: "p1", Title: "FAQ", Content: "a"},
			"p3": {ID: "p3", Title: "活動", Content: "c"},
			// p2 fetch fails and yields nil
		},
	}
	cache := newTestCache(source, time.Hour)

	snap, err := cache.GetSnapshot(context.Background())

	require.NoError(t, err)
	require.Len(t, snap.Pages, 2)
	assert.Equal(t, "--- Page: FAQ ---\na\n\n--- Page: 活動 ---\nc", snap.CombinedText)
}

func TestGetSnapshot_NoPagesConfigured(t *testing.T) {
	cache := newTestCache(&fakeSource{}, time.Hour)

	snap, err := cache.GetSnapshot(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "No knowledge pages configured.", snap.CombinedText)
	assert.Empty(t, snap.Pages)
}
