package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSystemConfig(t *testing.T) {
	cfg := DefaultSystemConfig()

	assert.True(t, cfg.AIEnabled)
	assert.Equal(t, []string{"轉真人", "人工客服"}, cfg.HandoverKeywords)
	assert.Equal(t, 1, cfg.AutoSwitchMinutes)
	assert.Empty(t, cfg.SystemPrompt)
	assert.Empty(t, cfg.AdminRecipientID)
}

func TestConfigFromPairs(t *testing.T) {
	tests := []struct {
		name  string
		pairs map[string]string
		check func(t *testing.T, cfg *SystemConfig)
	}{
		{
			name:  "empty pairs fall back to defaults",
			pairs: map[string]string{},
			check: func(t *testing.T, cfg *SystemConfig) {
				assert.True(t, cfg.AIEnabled)
				assert.Equal(t, 1, cfg.AutoSwitchMinutes)
			},
		},
		{
			name:  "ai enabled true string",
			pairs: map[string]string{KeyAIEnabled: "true"},
			check: func(t *testing.T, cfg *SystemConfig) {
				assert.True(t, cfg.AIEnabled)
			},
		},
		{
			name:  "ai enabled false string",
			pairs: map[string]string{KeyAIEnabled: "false"},
			check: func(t *testing.T, cfg *SystemConfig) {
				assert.False(t, cfg.AIEnabled)
			},
		},
		{
			name:  "unrecognized boolean value means off",
			pairs: map[string]string{KeyAIEnabled: "TRUE"},
			check: func(t *testing.T, cfg *SystemConfig) {
				assert.False(t, cfg.AIEnabled)
			},
		},
		{
			name:  "keyword list splits and trims",
			pairs: map[string]string{KeyHandoverKeywords: " 轉真人 ,人工客服, ,客服 "},
			check: func(t *testing.T, cfg *SystemConfig) {
				assert.Equal(t, []string{"轉真人", "人工客服", "客服"}, cfg.HandoverKeywords)
			},
		},
		{
			name:  "auto switch minutes parses positive integer",
			pairs: map[string]string{KeyAutoSwitchMinutes: "15"},
			check: func(t *testing.T, cfg *SystemConfig) {
				assert.Equal(t, 15, cfg.AutoSwitchMinutes)
			},
		},
		{
			name:  "non-positive minutes keep the default",
			pairs: map[string]string{KeyAutoSwitchMinutes: "0"},
			check: func(t *testing.T, cfg *SystemConfig) {
				assert.Equal(t, 1, cfg.AutoSwitchMinutes)
			},
		},
		{
			name:  "garbage minutes keep the default",
			pairs: map[string]string{KeyAutoSwitchMinutes: "soon"},
			check: func(t *testing.T, cfg *SystemConfig) {
				assert.Equal(t, 1, cfg.AutoSwitchMinutes)
			},
		},
		{
			name: "full row set",
			pairs: map[string]string{
				KeyAIEnabled:         "true",
				KeyModelName:         "gemini-1.5-flash",
				KeySystemPrompt:      "對家長要特別有禮貌",
				KeyHandoverKeywords:  "轉真人,客服",
				KeyAutoSwitchMinutes: "5",
				KeyAdminRecipientID:  "ADMIN-1",
			},
			check: func(t *testing.T, cfg *SystemConfig) {
				assert.True(t, cfg.AIEnabled)
				assert.Equal(t, "gemini-1.5-flash", cfg.ModelName)
				assert.Equal(t, "對家長要特別有禮貌", cfg.SystemPrompt)
				assert.Equal(t, []string{"轉真人", "客服"}, cfg.HandoverKeywords)
				assert.Equal(t, 5, cfg.AutoSwitchMinutes)
				assert.Equal(t, "ADMIN-1", cfg.AdminRecipientID)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, ConfigFromPairs(tt.pairs))
		})
	}
}
