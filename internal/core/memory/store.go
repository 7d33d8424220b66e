package memory

import (
	"context"
	"sort"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/studiokb/linebridge/internal/core"
	"github.com/studiokb/linebridge/internal/models"
)

// In-memory config and session stores. Used when no DATABASE_URL is
// configured (single-instance deployments, local development) and as the
// store double in tests. Entries never expire; sessions are reclaimed by the
// router's idle-timeout behavior, not by eviction.

type ConfigStore struct {
	cache *cache.Cache
}

func NewConfigStore() *ConfigStore {
	return &ConfigStore{cache: cache.New(cache.NoExpiration, 0)}
}

func (s *ConfigStore) Read(_ context.Context) (*models.SystemConfig, error) {
	items := s.cache.Items()
	if len(items) == 0 {
		return nil, nil
	}
	pairs := make(map[string]string, len(items))
	for k, item := range items {
		pairs[k] = item.Object.(string)
	}
	return models.ConfigFromPairs(pairs), nil
}

func (s *ConfigStore) Write(_ context.Context, key, value string) error {
	s.cache.Set(key, value, cache.NoExpiration)
	return nil
}

type SessionStore struct {
	cache *cache.Cache
	now   func() time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{cache: cache.New(cache.NoExpiration, 0), now: time.Now}
}

func (s *SessionStore) Read(_ context.Context, userID string) (*models.ChatSession, error) {
	if x, found := s.cache.Get(userID); found {
		sess := x.(models.ChatSession)
		return &sess, nil
	}
	return nil, nil
}

func (s *SessionStore) Write(_ context.Context, userID, mode string) error {
	s.cache.Set(userID, models.ChatSession{
		UserID:     userID,
		Mode:       mode,
		LastActive: s.now(),
	}, cache.NoExpiration)
	return nil
}

func (s *SessionStore) ListByMode(_ context.Context, mode string) ([]models.ChatSession, error) {
	var out []models.ChatSession
	for _, item := range s.cache.Items() {
		sess := item.Object.(models.ChatSession)
		if sess.Mode == mode {
			out = append(out, sess)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActive.After(out[j].LastActive) })
	return out, nil
}

// Seed backdates a session; test helper for the idle-timeout paths.
func (s *SessionStore) Seed(userID, mode string, lastActive time.Time) {
	s.cache.Set(userID, models.ChatSession{
		UserID:     userID,
		Mode:       mode,
		LastActive: lastActive,
	}, cache.NoExpiration)
}

var (
	_ core.ConfigStore  = (*ConfigStore)(nil)
	_ core.SessionStore = (*SessionStore)(nil)
)
