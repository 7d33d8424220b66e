package knowledge

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/studiokb/linebridge/internal/core"
	"github.com/studiokb/linebridge/internal/models"
)

const rebuildKey = "snapshot"

// SnapshotCache memoizes the combined knowledge snapshot with a TTL and
// manual invalidation. Concurrent cold reads collapse into a single rebuild
// through singleflight; the stored snapshot is swapped atomically so readers
// never observe a half-built value.
type SnapshotCache struct {
	source core.KnowledgeSource
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	snapshot atomic.Pointer[models.KnowledgeSnapshot]
	group    singleflight.Group
}

func NewSnapshotCache(source core.KnowledgeSource, ttl time.Duration, logger *zap.Logger) *SnapshotCache {
	return &SnapshotCache{
		source: source,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// GetSnapshot returns the cached snapshot, rebuilding it on first use, after
// Invalidate, or once the TTL has lapsed.
func (c *SnapshotCache) GetSnapshot(ctx context.Context) (*models.KnowledgeSnapshot, error) {
	if snap := c.snapshot.Load(); snap != nil && c.now().Sub(snap.FetchedAt) < c.ttl {
		return snap, nil
	}

	v, err, _ := c.group.Do(rebuildKey, func() (any, error) {
		// A rebuild may have completed while this caller waited on the gate.
		if snap := c.snapshot.Load(); snap != nil && c.now().Sub(snap.FetchedAt) < c.ttl {
			return snap, nil
		}
		snap, err := c.rebuild(ctx)
		if err != nil {
			return nil, err
		}
		c.snapshot.Store(snap)
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.KnowledgeSnapshot), nil
}

// Invalidate clears the stored snapshot. The next GetSnapshot rebuilds; no
// fetch happens here.
func (c *SnapshotCache) Invalidate() {
	c.snapshot.Store(nil)
	c.logger.Info("knowledge cache invalidated")
}

// rebuild fetches every configured page concurrently and combines the ones
// that succeed. Pages that fail to fetch are dropped, not fatal.
func (c *SnapshotCache) rebuild(ctx context.Context) (*models.KnowledgeSnapshot, error) {
	c.logger.Info("knowledge cache miss, rebuilding snapshot")

	pageIDs := c.source.ListPageIDs()
	if len(pageIDs) == 0 {
		return &models.KnowledgeSnapshot{
			CombinedText: "No knowledge pages configured.",
			Pages:        []models.KnowledgePage{},
			FetchedAt:    c.now(),
		}, nil
	}

	// Each goroutine writes its own index, preserving the configured order.
	results := make([]*models.KnowledgePage, len(pageIDs))

	g, gctx := errgroup.WithContext(ctx)
	for i, id := range pageIDs {
		i, id := i, id
		g.Go(func() error {
			results[i] = c.source.FetchPage(gctx, id)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch knowledge pages: %w", err)
	}

	pages := make([]models.KnowledgePage, 0, len(results))
	var b strings.Builder
	for _, p := range results {
		if p == nil {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "--- Page: %s ---\n%s", p.Title, p.Content)
		pages = append(pages, *p)
	}

	snap := &models.KnowledgeSnapshot{
		CombinedText: b.String(),
		Pages:        pages,
		FetchedAt:    c.now(),
	}
	c.logger.Info("knowledge snapshot rebuilt",
		zap.Int("pages_requested", len(pageIDs)),
		zap.Int("pages_loaded", len(pages)))
	return snap, nil
}

var _ core.KnowledgeCache = (*SnapshotCache)(nil)
