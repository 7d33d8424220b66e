package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/studiokb/linebridge/internal/core"
	"github.com/studiokb/linebridge/internal/models"
)

// AdminHandler exposes the operator API: login, runtime config, session
// overrides, and cache refresh. It replaces the admin settings UI of a
// typical deployment; the UI is expected to live elsewhere.
type AdminHandler struct {
	configStore   core.ConfigStore
	sessions      core.SessionStore
	cache         core.KnowledgeCache
	jwtSecret     string
	adminPassHash string
	logger        *zap.Logger
}

func NewAdminHandler(configStore core.ConfigStore, sessions core.SessionStore, cache core.KnowledgeCache, jwtSecret, adminPassHash string, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		configStore:   configStore,
		sessions:      sessions,
		cache:         cache,
		jwtSecret:     jwtSecret,
		adminPassHash: adminPassHash,
		logger:        logger,
	}
}

type loginRequest struct {
	Password string `json:"password"`
}

func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if h.adminPassHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(h.adminPassHash), []byte(req.Password)) != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token := h.generateJWT()
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// generateJWT creates a signed token with the admin role claim
func (h *AdminHandler) generateJWT() string {
	claims := jwt.MapClaims{
		"role": "admin",
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, _ := tok.SignedString([]byte(h.jwtSecret))
	return token
}

func (h *AdminHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.configStore.Read(r.Context())
	if err != nil {
		h.logger.Error("config read failed", zap.Error(err))
		http.Error(w, "config read failed", http.StatusInternalServerError)
		return
	}
	if cfg == nil {
		cfg = models.DefaultSystemConfig()
	}
	writeJSON(w, http.StatusOK, cfg)
}

type updateConfigRequest struct {
	AIEnabled         bool   `json:"ai_enabled"`
	ModelName         string `json:"model_name"`
	SystemPrompt      string `json:"system_prompt"`
	HandoverKeywords  string `json:"handover_keywords"` // comma separated
	AutoSwitchMinutes int    `json:"auto_switch_minutes"`
	AdminRecipientID  string `json:"admin_recipient_id"`
}

// UpdateConfig upserts the config keys one by one, mirroring the per-row
// storage model.
func (h *AdminHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req updateConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	writes := map[string]string{
		models.KeyAIEnabled:        strconv.FormatBool(req.AIEnabled),
		models.KeyModelName:        req.ModelName,
		models.KeySystemPrompt:     req.SystemPrompt,
		models.KeyHandoverKeywords: req.HandoverKeywords,
	}
	if req.AutoSwitchMinutes > 0 {
		writes[models.KeyAutoSwitchMinutes] = strconv.Itoa(req.AutoSwitchMinutes)
	}
	if req.AdminRecipientID != "" {
		writes[models.KeyAdminRecipientID] = req.AdminRecipientID
	}

	for key, value := range writes {
		if err := h.configStore.Write(ctx, key, value); err != nil {
			h.logger.Error("config write failed", zap.String("key", key), zap.Error(err))
			http.Error(w, "config write failed", http.StatusInternalServerError)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// ListSessions returns sessions in the given mode, defaulting to the active
// human-handled ones.
func (h *AdminHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("mode")
	if mode == "" {
		mode = models.HumanMode
	}
	if mode != models.AIMode && mode != models.HumanMode {
		http.Error(w, "invalid mode", http.StatusBadRequest)
		return
	}

	sessions, err := h.sessions.ListByMode(r.Context(), mode)
	if err != nil {
		h.logger.Error("session list failed", zap.Error(err))
		http.Error(w, "session list failed", http.StatusInternalServerError)
		return
	}
	if sessions == nil {
		sessions = []models.ChatSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

type setModeRequest struct {
	Mode string `json:"mode"`
}

// SetSessionMode lets an operator force a conversation into AI or Human
// mode, e.g. to release a handover early.
func (h *AdminHandler) SetSessionMode(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		http.Error(w, "missing user id", http.StatusBadRequest)
		return
	}

	var req setModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.Mode != models.AIMode && req.Mode != models.HumanMode {
		http.Error(w, "invalid mode", http.StatusBadRequest)
		return
	}

	if err := h.sessions.Write(r.Context(), userID, req.Mode); err != nil {
		h.logger.Error("session write failed", zap.String("user_id", userID), zap.Error(err))
		http.Error(w, "session write failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"user_id": userID, "mode": req.Mode})
}

// RefreshCache drops the knowledge snapshot; the next inbound message (or
// debug command) triggers a rebuild.
func (h *AdminHandler) RefreshCache(w http.ResponseWriter, r *http.Request) {
	h.cache.Invalidate()
	h.logger.Info("knowledge cache refresh requested")
	writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}
