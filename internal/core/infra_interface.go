package core

import (
	"context"

	"github.com/studiokb/linebridge/internal/models"
)

// ConfigStore reads and writes the operator-editable system configuration.
// It abstracts the backing storage so higher layers never depend on a
// specific database. Read returns nil (not an error) when no config exists
// yet; callers fall back to defaults.
type ConfigStore interface {
	Read(ctx context.Context) (*models.SystemConfig, error)
	// Write upserts one config key. Boolean values are stored as the
	// strings "true"/"false" and converted back on Read.
	Write(ctx context.Context, key, value string) error
}

// SessionStore reads and writes per-user conversation sessions. Read returns
// nil when the user has no session yet (treated as AI mode). Write upserts
// and always refreshes LastActive to now.
type SessionStore interface {
	Read(ctx context.Context, userID string) (*models.ChatSession, error)
	Write(ctx context.Context, userID, mode string) error
	ListByMode(ctx context.Context, mode string) ([]models.ChatSession, error)
}

// KnowledgeSource produces the raw knowledge-base pages. FetchPage returns
// nil (not an error) when a single page cannot be fetched so one bad page
// never fails a whole snapshot rebuild.
type KnowledgeSource interface {
	ListPageIDs() []string
	FetchPage(ctx context.Context, id string) *models.KnowledgePage
}

// KnowledgeCache memoizes the combined knowledge snapshot.
type KnowledgeCache interface {
	GetSnapshot(ctx context.Context) (*models.KnowledgeSnapshot, error)
	Invalidate()
}

// MessageChannel delivers outbound messages. Notify is best-effort; its
// failure must never reach the end user.
type MessageChannel interface {
	Reply(ctx context.Context, replyToken, text string) error
	Notify(ctx context.Context, recipientID, text string) error
}

// Provider is one generative-answer backend. Name identifies it in logs and
// failure reports; Model is the concrete model identity it answers with.
type Provider interface {
	Name() string
	Model() string
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// AnswerGenerator produces an answer for a query plus generation context.
// Implementations never return an error; total failure degrades to an
// apology answer with ProviderUsed = None.
type AnswerGenerator interface {
	Generate(ctx context.Context, query, generationContext string) *models.GeneratedAnswer
}
