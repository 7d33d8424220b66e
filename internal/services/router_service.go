package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/studiokb/linebridge/internal/core"
	"github.com/studiokb/linebridge/internal/models"
)

const handoverAckText = "已為您轉接專人客服，請稍候，我們將盡快回覆您。"

// InboundMessage is one text event from the messaging webhook.
type InboundMessage struct {
	UserID     string
	Text       string
	ReplyToken string
}

// RouterService decides, per inbound message, whether to auto-reply with a
// generated answer, absorb it because a human agent owns the conversation,
// or trigger/release a handover. It never returns an error to its caller:
// business failures degrade to silence, a user-visible apology, or a log
// line.
type RouterService struct {
	configStore core.ConfigStore
	sessions    core.SessionStore
	cache       core.KnowledgeCache
	generator   core.AnswerGenerator
	channel     core.MessageChannel
	logger      *zap.Logger
	now         func() time.Time
}

func NewRouterService(
	configStore core.ConfigStore,
	sessions core.SessionStore,
	cache core.KnowledgeCache,
	generator core.AnswerGenerator,
	channel core.MessageChannel,
	logger *zap.Logger,
) *RouterService {
	return &RouterService{
		configStore: configStore,
		sessions:    sessions,
		cache:       cache,
		generator:   generator,
		channel:     channel,
		logger:      logger,
		now:         time.Now,
	}
}

// HandleMessage runs the per-message state machine:
// command check → disabled check → human-mode check → handover check → AI flow.
func (s *RouterService) HandleMessage(ctx context.Context, msg InboundMessage) {
	if msg.UserID == "" || msg.Text == "" {
		return
	}

	// Diagnostic commands respond before any state lookup, including the
	// global kill switch, so operators keep visibility while AI is off.
	if s.handleCommand(ctx, msg) {
		return
	}

	cfg, session := s.fetchState(ctx, msg.UserID)

	if !cfg.AIEnabled {
		s.logger.Info("ai disabled globally, ignoring message", zap.String("user_id", msg.UserID))
		return
	}

	if session != nil && session.Mode == models.HumanMode {
		idle := s.now().Sub(session.LastActive)
		timeout := time.Duration(cfg.AutoSwitchMinutes) * time.Minute

		if idle > timeout {
			// The message that exceeds the timeout is the first one back
			// in AI mode; it keeps flowing through the checks below.
			s.logger.Info("human session timed out, switching back to AI", zap.String("user_id", msg.UserID))
			if err := s.sessions.Write(ctx, msg.UserID, models.AIMode); err != nil {
				s.logger.Error("session write failed", zap.String("user_id", msg.UserID), zap.Error(err))
			}
		} else {
			// Absorb the message and extend the idle window.
			if err := s.sessions.Write(ctx, msg.UserID, models.HumanMode); err != nil {
				s.logger.Error("session write failed", zap.String("user_id", msg.UserID), zap.Error(err))
			}
			return
		}
	}

	for _, keyword := range cfg.HandoverKeywords {
		if keyword != "" && strings.Contains(msg.Text, keyword) {
			s.handover(ctx, msg, cfg)
			return
		}
	}

	s.aiFlow(ctx, msg, cfg)
}

// handleCommand intercepts the diagnostic commands. Returns true when the
// message was consumed.
func (s *RouterService) handleCommand(ctx context.Context, msg InboundMessage) bool {
	switch strings.ToLower(strings.TrimSpace(msg.Text)) {
	case "id", "myid":
		s.reply(ctx, msg, fmt.Sprintf("Your User ID: %s", msg.UserID))
		return true

	case "debug", "status":
		snap, err := s.cache.GetSnapshot(ctx)
		if err != nil {
			s.logger.Error("cache status fetch failed", zap.Error(err))
			s.reply(ctx, msg, "[System Debug]\n\nCache unavailable.")
			return true
		}

		var titles strings.Builder
		for _, p := range snap.Pages {
			if titles.Len() > 0 {
				titles.WriteString("\n")
			}
			titles.WriteString("• " + p.Title)
		}
		pageList := titles.String()
		if pageList == "" {
			pageList = "(No pages loaded)"
		}

		s.reply(ctx, msg, fmt.Sprintf("[System Debug]\n\n🕒 Cache Time:\n%s\n\n📚 Loaded Pages:\n%s",
			snap.FetchedAt.Format("2006-01-02 15:04:05"), pageList))
		return true
	}
	return false
}

// fetchState reads config and session concurrently; the two reads are
// independent. Read failures degrade to defaults (config) or no session.
func (s *RouterService) fetchState(ctx context.Context, userID string) (*models.SystemConfig, *models.ChatSession) {
	var (
		wg      sync.WaitGroup
		cfg     *models.SystemConfig
		session *models.ChatSession
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		cfg, err = s.configStore.Read(ctx)
		if err != nil {
			s.logger.Error("config read failed, using defaults", zap.Error(err))
			cfg = nil
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		session, err = s.sessions.Read(ctx, userID)
		if err != nil {
			s.logger.Error("session read failed, treating as new user", zap.String("user_id", userID), zap.Error(err))
			session = nil
		}
	}()
	wg.Wait()

	if cfg == nil {
		cfg = models.DefaultSystemConfig()
	}
	return cfg, session
}

// handover switches the session to human mode, acknowledges the user, and
// notifies the admin best-effort.
func (s *RouterService) handover(ctx context.Context, msg InboundMessage, cfg *models.SystemConfig) {
	s.logger.Info("handover triggered",
		zap.String("user_id", msg.UserID),
		zap.String("message", msg.Text))

	if err := s.sessions.Write(ctx, msg.UserID, models.HumanMode); err != nil {
		s.logger.Error("session write failed", zap.String("user_id", msg.UserID), zap.Error(err))
	}

	s.reply(ctx, msg, handoverAckText)

	if cfg.AdminRecipientID == "" {
		return
	}
	notification := fmt.Sprintf("[系統通知] 用戶觸發真人客服請求！\n\n用戶ID: %s\n訊息內容: %s", msg.UserID, msg.Text)
	if err := s.channel.Notify(ctx, cfg.AdminRecipientID, notification); err != nil {
		// Best-effort only; never surfaces to the user.
		s.logger.Error("admin notification failed", zap.String("user_id", msg.UserID), zap.Error(err))
	}
}

// aiFlow generates and delivers an answer. The session write-through runs
// concurrently so its latency or failure never blocks the reply.
func (s *RouterService) aiFlow(ctx context.Context, msg InboundMessage, cfg *models.SystemConfig) {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.sessions.Write(ctx, msg.UserID, models.AIMode); err != nil {
			s.logger.Error("session write failed", zap.String("user_id", msg.UserID), zap.Error(err))
		}
	}()
	defer wg.Wait()

	generationContext := ""
	snap, err := s.cache.GetSnapshot(ctx)
	if err != nil {
		s.logger.Error("knowledge snapshot unavailable, answering without context", zap.Error(err))
	} else {
		generationContext = snap.CombinedText
	}
	if cfg.SystemPrompt != "" {
		generationContext = fmt.Sprintf("[System Instruction]\n%s\n\n%s", cfg.SystemPrompt, generationContext)
	}

	answer := s.generator.Generate(ctx, msg.Text, generationContext)

	s.reply(ctx, msg, answer.Text)
	s.logger.Info("replied",
		zap.String("user_id", msg.UserID),
		zap.String("model", answer.ModelUsed),
		zap.String("provider", answer.ProviderUsed))
}

// reply delivers one outbound message; delivery failure is logged, never
// retried and never escalated.
func (s *RouterService) reply(ctx context.Context, msg InboundMessage, text string) {
	if err := s.channel.Reply(ctx, msg.ReplyToken, text); err != nil {
		s.logger.Error("reply delivery failed", zap.String("user_id", msg.UserID), zap.Error(err))
	}
}
