package dashboard

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/de-tools/lakespend/pkg/agent"
	"github.com/rs/zerolog"
)

const maxEventSize = 1 << 20

// ChatClient sends a conversation to the agent and returns the items it produced.
type ChatClient interface {
	Send(ctx context.Context, history []agent.Item) ([]agent.Item, error)
}

type chatClient struct {
	url    string
	client *http.Client
}

// NewChatClient posts to a responses endpoint and reads the streamed reply.
func NewChatClient(url string, client *http.Client) ChatClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &chatClient{url: url, client: client}
}

type chatRequest struct {
	Input  []agent.Item `json:"input"`
	Stream bool         `json:"stream"`
}

type chatEvent struct {
	Type     string      `json:"type"`
	Item     *agent.Item `json:"item"`
	Response *struct {
		Error string `json:"error"`
	} `json:"response"`
	Message string `json:"message"`
}

func (c *chatClient) Send(ctx context.Context, history []agent.Item) ([]agent.Item, error) {
	logger := zerolog.Ctx(ctx)

	body, err := json.Marshal(chatRequest{Input: history, Stream: true})
	if err != nil {
		return nil, fmt.Errorf("failed to encode chat request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach agent: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("agent returned %s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}

	var items []agent.Item
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventSize)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			continue
		}

		var e chatEvent
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			logger.Warn().Err(err).Msg("skipping malformed agent event")
			continue
		}
		switch e.Type {
		case agent.EventOutputItemDone:
			if e.Item != nil {
				items = append(items, *e.Item)
			}
		case "response.failed", "error":
			msg := e.Message
			if e.Response != nil && e.Response.Error != "" {
				msg = e.Response.Error
			}
			return items, fmt.Errorf("agent failed: %s", msg)
		}
	}
	if err := scanner.Err(); err != nil {
		return items, fmt.Errorf("failed to read agent stream: %w", err)
	}
	return items, nil
}
