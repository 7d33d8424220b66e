package models

import (
	"strconv"
	"strings"
)

// Conservative fallbacks used when config rows are missing: the assistant
// stays on with the built-in handover keywords and a one-minute idle revert.
var defaultHandoverKeywords = []string{"轉真人", "人工客服"}

// DefaultSystemConfig returns the configuration used when no config store
// rows exist at all.
func DefaultSystemConfig() *SystemConfig {
	return &SystemConfig{
		AIEnabled:         true,
		HandoverKeywords:  append([]string(nil), defaultHandoverKeywords...),
		AutoSwitchMinutes: 1,
	}
}

// ConfigFromPairs builds a SystemConfig from raw key/value rows, applying
// per-key defaults for anything absent. Booleans are stored as the strings
// "true"/"false"; HANDOVER_KEYWORDS is a comma-separated list.
func ConfigFromPairs(pairs map[string]string) *SystemConfig {
	cfg := DefaultSystemConfig()

	if v, ok := pairs[KeyAIEnabled]; ok {
		cfg.AIEnabled = v == "true"
	}
	if v, ok := pairs[KeyModelName]; ok {
		cfg.ModelName = v
	}
	if v, ok := pairs[KeySystemPrompt]; ok {
		cfg.SystemPrompt = v
	}
	if v, ok := pairs[KeyHandoverKeywords]; ok {
		cfg.HandoverKeywords = splitKeywords(v)
	}
	if v, ok := pairs[KeyAutoSwitchMinutes]; ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n > 0 {
			cfg.AutoSwitchMinutes = n
		}
	}
	if v, ok := pairs[KeyAdminRecipientID]; ok {
		cfg.AdminRecipientID = v
	}
	return cfg
}

func splitKeywords(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
