package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/line/line-bot-sdk-go/v7/linebot"
	"go.uber.org/zap"

	"github.com/studiokb/linebridge/internal/services"
)

// EventParser decodes and signature-checks a webhook request body.
type EventParser interface {
	ParseRequest(r *http.Request) ([]*linebot.Event, error)
}

// WebhookHandler is the inbound boundary: one LINE webhook delivery carries
// a batch of events, each dispatched to the router independently and in
// parallel. The batch either parses as a whole or fails closed.
type WebhookHandler struct {
	parser EventParser
	router *services.RouterService
	logger *zap.Logger
}

func NewWebhookHandler(parser EventParser, router *services.RouterService, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{parser: parser, router: router, logger: logger}
}

func (h *WebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	events, err := h.parser.ParseRequest(r)
	if err != nil {
		if errors.Is(err, linebot.ErrInvalidSignature) {
			h.logger.Warn("webhook signature rejected")
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid signature"})
			return
		}
		h.logger.Error("webhook parse failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
		return
	}

	var wg sync.WaitGroup
	for _, event := range events {
		// Only text messages with a resolvable user are routed.
		if event.Type != linebot.EventTypeMessage || event.Source == nil || event.Source.UserID == "" {
			continue
		}
		textMessage, ok := event.Message.(*linebot.TextMessage)
		if !ok {
			continue
		}

		msg := services.InboundMessage{
			UserID:     event.Source.UserID,
			Text:       textMessage.Text,
			ReplyToken: event.ReplyToken,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.router.HandleMessage(r.Context(), msg)
		}()
	}
	wg.Wait()

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
