package dashboard

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/de-tools/lakespend/pkg/agent"
	"github.com/de-tools/lakespend/pkg/handlers"
	"github.com/de-tools/lakespend/pkg/services/dashboard"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	g "maragu.dev/gomponents"
)

type Handler struct {
	service    dashboard.Service
	chat       dashboard.ChatClient
	sourceName string
}

func NewHandler(service dashboard.Service, chat dashboard.ChatClient, sourceName string) *Handler {
	return &Handler{service: service, chat: chat, sourceName: sourceName}
}

func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, overviewPage(h.sourceName))
}

func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slug := chi.URLParam(r, "page")

	page, tables, err := h.service.LoadPage(ctx, slug)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, datasetPage(page, tables))
}

func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, chatPage(nil, "[]"))
}

// SendChat appends the posted message to the conversation carried in the form and
// renders the agent's reply. Agent failures are shown as assistant text.
func (h *Handler) SendChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	var history []agent.Item
	if raw := r.PostForm.Get("history"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &history); err != nil {
			logger.Warn().Err(err).Msg("discarding unreadable chat history")
			history = nil
		}
	}

	message := strings.TrimSpace(r.PostForm.Get("message"))
	if message != "" {
		history = append(history, agent.UserMessage(message))

		items, err := h.chat.Send(ctx, history)
		history = append(history, items...)
		if err != nil {
			logger.Error().Err(err).Msg("agent request failed")
			history = append(history, agent.Item{
				Type:    agent.ItemTypeMessage,
				Role:    agent.RoleAssistant,
				Content: agent.Content{{Type: "output_text", Text: "Error: " + err.Error()}},
			})
		}
	}

	encoded, err := json.Marshal(history)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, chatPage(history, string(encoded)))
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, node g.Node) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := node.Render(w); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to render page")
	}
}
