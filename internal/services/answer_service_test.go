package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/studiokb/linebridge/internal/core"
	"github.com/studiokb/linebridge/internal/models"
)

type providerCall struct {
	SystemPrompt string
	UserPrompt   string
}

type fakeProvider struct {
	mu    sync.Mutex
	name  string
	model string
	text  string
	err   error
	calls []providerCall
}

func (f *fakeProvider) Name() string  { return f.name }
func (f *fakeProvider) Model() string { return f.model }

func (f *fakeProvider) Generate(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, providerCall{SystemPrompt: systemPrompt, UserPrompt: userPrompt})
	return f.text, f.err
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func providersOf(providers ...core.Provider) []core.Provider { return providers }

func TestGenerate_PrimarySuccessSkipsFallback(t *testing.T) {
	primary := &fakeProvider{name: "Gemini", model: "gemini-1.5-flash", text: "週一到週五 9:00-18:00"}
	fallback := &fakeProvider{name: "Groq", model: "gemma2-9b-it", text: "unused"}
	svc := NewAnswerService(providersOf(primary, fallback), "導師室", time.Second, zap.NewNop())

	answer := svc.Generate(context.Background(), "營業時間？", "--- Page: FAQ ---\n9:00-18:00")

	assert.Equal(t, "週一到週五 9:00-18:00", answer.Text)
	assert.Equal(t, "gemini-1.5-flash", answer.ModelUsed)
	assert.Equal(t, models.ProviderPrimary, answer.ProviderUsed)
	assert.Equal(t, 1, primary.callCount())
	assert.Zero(t, fallback.callCount())
}

func TestGenerate_FallbackAnswersWhenPrimaryFails(t *testing.T) {
	primary := &fakeProvider{name: "Gemini", model: "gemini-1.5-flash", err: errors.New("quota exceeded")}
	fallback := &fakeProvider{name: "Groq", model: "gemma2-9b-it", text: "fallback answer"}
	svc := NewAnswerService(providersOf(primary, fallback), "導師室", time.Second, zap.NewNop())

	answer := svc.Generate(context.Background(), "hello", "")

	assert.Equal(t, "fallback answer", answer.Text)
	assert.Equal(t, "gemma2-9b-it", answer.ModelUsed)
	assert.Equal(t, models.ProviderFallback, answer.ProviderUsed)
	assert.Equal(t, 1, primary.callCount())
	assert.Equal(t, 1, fallback.callCount())
}

func TestGenerate_TotalFailureReturnsApologyWithBothReasons(t *testing.T) {
	primary := &fakeProvider{name: "Gemini", model: "gemini-1.5-flash", err: errors.New("quota exceeded")}
	fallback := &fakeProvider{name: "Groq", model: "gemma2-9b-it", err: errors.New("connection refused")}
	svc := NewAnswerService(providersOf(primary, fallback), "導師室", time.Second, zap.NewNop())

	answer := svc.Generate(context.Background(), "hello", "")

	assert.Contains(t, answer.Text, "抱歉，系統目前忙碌中 (AI Service Unavailable)。")
	assert.Contains(t, answer.Text, "[Gemini Error]: quota exceeded")
	assert.Contains(t, answer.Text, "[Groq Error]: connection refused")
	assert.Equal(t, "none", answer.ModelUsed)
	assert.Equal(t, models.ProviderNone, answer.ProviderUsed)
}

func TestGenerate_InstructionWrapsContextAndNamesAssistant(t *testing.T) {
	primary := &fakeProvider{name: "Gemini", model: "gemini-1.5-flash", text: "ok"}
	svc := NewAnswerService(providersOf(primary), "星光教室", time.Second, zap.NewNop())

	svc.Generate(context.Background(), "報名方式？", "--- Page: 報名 ---\n線上表單")

	require.Equal(t, 1, primary.callCount())
	call := primary.calls[0]
	assert.Equal(t, "報名方式？", call.UserPrompt)
	assert.Contains(t, call.SystemPrompt, "星光教室")
	assert.Contains(t, call.SystemPrompt, "<KnowledgeContext>\n--- Page: 報名 ---\n線上表單\n</KnowledgeContext>")
	assert.Contains(t, call.SystemPrompt, "Markdown")
}

func TestGenerate_SlowProviderTimesOutAndFallsBack(t *testing.T) {
	slow := &slowProvider{delay: 200 * time.Millisecond}
	fallback := &fakeProvider{name: "Groq", model: "gemma2-9b-it", text: "fast answer"}
	svc := NewAnswerService(providersOf(slow, fallback), "導師室", 20*time.Millisecond, zap.NewNop())

	answer := svc.Generate(context.Background(), "hello", "")

	assert.Equal(t, "fast answer", answer.Text)
	assert.Equal(t, models.ProviderFallback, answer.ProviderUsed)
}

type slowProvider struct {
	delay time.Duration
}

func (s *slowProvider) Name() string  { return "Gemini" }
func (s *slowProvider) Model() string { return "gemini-1.5-flash" }

func (s *slowProvider) Generate(ctx context.Context, _, _ string) (string, error) {
	select {
	case <-time.After(s.delay):
		return "too late", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
