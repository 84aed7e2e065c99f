package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/de-tools/lakespend/pkg/agent"
	"github.com/de-tools/lakespend/pkg/handlers"
	"github.com/de-tools/lakespend/pkg/models/domain"
	"github.com/rs/zerolog"
)

const (
	eventCompleted = "response.completed"
	eventFailed    = "response.failed"
)

type Runner interface {
	Run(ctx context.Context, input []agent.Item, emit func(agent.Event)) ([]agent.Item, error)
}

type Handler struct {
	runner Runner
}

func NewHandler(runner Runner) *Handler {
	return &Handler{runner: runner}
}

type request struct {
	Input  json.RawMessage `json:"input"`
	Stream bool            `json:"stream"`
}

type response struct {
	ID        string       `json:"id"`
	Object    string       `json:"object"`
	CreatedAt int64        `json:"created_at"`
	Status    string       `json:"status"`
	Output    []agent.Item `json:"output"`
	Error     string       `json:"error,omitempty"`
}

type streamEvent struct {
	agent.Event
	Response *response `json:"response,omitempty"`
}

// CreateResponse runs the agent over the posted conversation. With stream set the
// events are sent as server-sent events as they happen.
func (h *Handler) CreateResponse(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := zerolog.Ctx(ctx)

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.WriteError(w, r, fmt.Errorf("%w: invalid request body: %v", domain.ErrInvalidArgument, err))
		return
	}
	input, err := parseInput(req.Input)
	if err != nil {
		handlers.WriteError(w, r, err)
		return
	}

	resp := &response{
		ID:        agent.NewID("resp"),
		Object:    "response",
		CreatedAt: time.Now().Unix(),
		Status:    "completed",
	}
	logger.Info().Str("response_id", resp.ID).Int("items", len(input)).Bool("stream", req.Stream).Msg("running agent")

	if !req.Stream {
		output, err := h.runner.Run(ctx, input, nil)
		if err != nil {
			handlers.WriteError(w, r, err)
			return
		}
		resp.Output = output
		handlers.WriteJSON(w, r, http.StatusOK, resp)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		handlers.WriteError(w, r, errors.New("streaming is not supported by this connection"))
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(e streamEvent) {
		data, err := json.Marshal(e)
		if err != nil {
			logger.Error().Err(err).Msg("failed to encode event")
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			logger.Warn().Err(err).Msg("failed to write event")
			return
		}
		flusher.Flush()
	}

	output, err := h.runner.Run(ctx, input, func(e agent.Event) {
		send(streamEvent{Event: e})
	})
	resp.Output = output
	if err != nil {
		logger.Error().Err(err).Str("response_id", resp.ID).Msg("agent run failed")
		resp.Status = "failed"
		resp.Error = err.Error()
		send(streamEvent{Event: agent.Event{Type: eventFailed}, Response: resp})
		return
	}
	send(streamEvent{Event: agent.Event{Type: eventCompleted}, Response: resp})
}

// parseInput accepts either a list of items or a single user message string.
func parseInput(raw json.RawMessage) ([]agent.Item, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: input is required", domain.ErrInvalidArgument)
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if text == "" {
			return nil, fmt.Errorf("%w: input is empty", domain.ErrInvalidArgument)
		}
		return []agent.Item{agent.UserMessage(text)}, nil
	}
	var items []agent.Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: invalid input: %v", domain.ErrInvalidArgument, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: input is empty", domain.ErrInvalidArgument)
	}
	for i := range items {
		items[i].Type = items[i].Kind()
	}
	return items, nil
}
