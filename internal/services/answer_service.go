package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/studiokb/linebridge/internal/core"
	"github.com/studiokb/linebridge/internal/models"
)

// AnswerService tries each provider in priority order and returns the first
// success. Fallback is strictly sequential; there are no per-provider
// retries. Total failure degrades to an apology answer carrying both failure
// reasons for operator diagnosis.
type AnswerService struct {
	providers     []core.Provider
	assistantName string
	timeout       time.Duration
	logger        *zap.Logger
}

func NewAnswerService(providers []core.Provider, assistantName string, timeout time.Duration, logger *zap.Logger) *AnswerService {
	return &AnswerService{
		providers:     providers,
		assistantName: assistantName,
		timeout:       timeout,
		logger:        logger,
	}
}

var providerLabels = []string{models.ProviderPrimary, models.ProviderFallback}

// Generate never fails; see the struct comment for the degradation contract.
func (s *AnswerService) Generate(ctx context.Context, query, generationContext string) *models.GeneratedAnswer {
	instruction := s.buildInstruction(generationContext)

	var failures []string
	for i, p := range s.providers {
		s.logger.Info("attempting provider",
			zap.String("provider", p.Name()),
			zap.String("model", p.Model()))

		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		text, err := p.Generate(callCtx, instruction, query)
		cancel()

		if err != nil {
			s.logger.Warn("provider failed, trying next",
				zap.String("provider", p.Name()),
				zap.Error(err))
			failures = append(failures, fmt.Sprintf("[%s Error]: %v", p.Name(), err))
			continue
		}

		label := models.ProviderFallback
		if i < len(providerLabels) {
			label = providerLabels[i]
		}
		return &models.GeneratedAnswer{
			Text:         text,
			ModelUsed:    p.Model(),
			ProviderUsed: label,
		}
	}

	s.logger.Error("all providers failed", zap.Strings("failures", failures))

	text := "抱歉，系統目前忙碌中 (AI Service Unavailable)。"
	for _, f := range failures {
		text += "\n\n" + f
	}
	return &models.GeneratedAnswer{
		Text:         text,
		ModelUsed:    "none",
		ProviderUsed: models.ProviderNone,
	}
}

// buildInstruction assembles the fixed formatting contract around the
// generation context. The markup rules are not user-configurable: LINE
// renders plain text, so markdown must be forbidden no matter which
// provider answers.
func (s *AnswerService) buildInstruction(generationContext string) string {
	return fmt.Sprintf(`你是%s的 AI 小助手，專門回答學生與家長的問題。
你的知識來源是以下頁面內容：

<KnowledgeContext>
%s
</KnowledgeContext>

回覆格式規則（非常重要）：
- 因為你的回覆會顯示在 LINE 聊天室，請【絕對不要】使用任何 Markdown 語法
- 禁止使用：** ** (粗體)、# (標題)、* 或 - (條列符號)、_ _ (斜體)
- 改用 emoji 來區分段落，例如：📌 📋 🗓️ ✅ ➡️
- 條列項目改用「・」或數字「1.」來表示
- 段落之間空一行

回答原則：
1. 優先根據知識庫資料回答，資料中沒有的才用一般知識補充
2. 言簡意賅，不要過長
3. 全程使用繁體中文
`, s.assistantName, generationContext)
}

var _ core.AnswerGenerator = (*AnswerService)(nil)
