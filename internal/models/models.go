package models

import (
	"time"
)

// Session modes. A user in HumanMode is being handled by a human agent and
// inbound messages are absorbed instead of auto-answered.
const (
	AIMode    = "AI"
	HumanMode = "Human"
)

// Well-known config keys as stored in the config table (one row per key).
const (
	KeyAIEnabled         = "AI_ENABLED"
	KeyModelName         = "MODEL_NAME"
	KeySystemPrompt      = "SYSTEM_PROMPT"
	KeyHandoverKeywords  = "HANDOVER_KEYWORDS"
	KeyAutoSwitchMinutes = "AUTO_SWITCH_MINUTES"
	KeyAdminRecipientID  = "ADMIN_RECIPIENT_ID"
)

// SystemConfig is the operator-editable runtime configuration, read fresh on
// every inbound message so admin changes apply without a restart.
type SystemConfig struct {
	AIEnabled         bool     `json:"ai_enabled"`
	ModelName         string   `json:"model_name"`
	SystemPrompt      string   `json:"system_prompt"`
	HandoverKeywords  []string `json:"handover_keywords"`
	AutoSwitchMinutes int      `json:"auto_switch_minutes"`
	AdminRecipientID  string   `json:"admin_recipient_id"`
}

// ChatSession tracks the conversation mode for one end user.
type ChatSession struct {
	UserID     string    `db:"user_id" json:"user_id"`
	Mode       string    `db:"mode" json:"mode"` // AI | Human
	LastActive time.Time `db:"last_active" json:"last_active"`
}

// KnowledgePage is one fetched knowledge-base page.
type KnowledgePage struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// KnowledgeSnapshot is the combined knowledge-base text used as generation
// context. It is replaced as a whole; readers never see a partial rebuild.
type KnowledgeSnapshot struct {
	CombinedText string          `json:"combined_text"`
	Pages        []KnowledgePage `json:"pages"`
	FetchedAt    time.Time       `json:"fetched_at"`
}

// Providers an answer can come from.
const (
	ProviderPrimary  = "Primary"
	ProviderFallback = "Fallback"
	ProviderNone     = "None"
)

// GeneratedAnswer is the result of one generation attempt chain. Never
// persisted.
type GeneratedAnswer struct {
	Text         string `json:"text"`
	ModelUsed    string `json:"model_used"`
	ProviderUsed string `json:"provider_used"` // Primary | Fallback | None
}
