package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/de-tools/lakespend/pkg/tools"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"
)

const clientName = "lakespend-agent"

// ErrToolFailed marks a tool call the server answered with an error result.
var ErrToolFailed = errors.New("tool call failed")

// ToolSource discovers tools and executes calls against them.
type ToolSource interface {
	Tools(ctx context.Context) ([]tools.Descriptor, error)
	Call(ctx context.Context, name string, args json.RawMessage) (string, error)
}

type mcpSource struct {
	connect func(ctx context.Context) (*mcp.ClientSession, error)

	mu      sync.Mutex
	session *mcp.ClientSession
}

// NewMCPSource connects lazily to a tool server over streamable HTTP. The session is
// reused across calls and re-established after a transport failure.
func NewMCPSource(endpoint string, httpClient *http.Client, version string) ToolSource {
	client := mcp.NewClient(&mcp.Implementation{Name: clientName, Version: version}, nil)
	return &mcpSource{
		connect: func(ctx context.Context) (*mcp.ClientSession, error) {
			return client.Connect(ctx, &mcp.StreamableClientTransport{
				Endpoint:   endpoint,
				HTTPClient: httpClient,
			}, nil)
		},
	}
}

// NewSessionSource uses an already connected session.
func NewSessionSource(session *mcp.ClientSession) ToolSource {
	return &mcpSource{session: session}
}

func (s *mcpSource) Tools(ctx context.Context) ([]tools.Descriptor, error) {
	session, err := s.get(ctx)
	if err != nil {
		return nil, err
	}

	var out []tools.Descriptor
	params := &mcp.ListToolsParams{}
	for {
		res, err := session.ListTools(ctx, params)
		if err != nil {
			s.reset(session)
			return nil, fmt.Errorf("failed to list tools: %w", err)
		}
		for _, t := range res.Tools {
			schema, err := inputSchema(t.InputSchema)
			if err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Str("tool", t.Name).Msg("skipping tool with unreadable schema")
				continue
			}
			out = append(out, tools.FromSchema(t.Name, t.Description, schema))
		}
		if res.NextCursor == "" {
			return out, nil
		}
		params = &mcp.ListToolsParams{Cursor: res.NextCursor}
	}
}

func (s *mcpSource) Call(ctx context.Context, name string, args json.RawMessage) (string, error) {
	session, err := s.get(ctx)
	if err != nil {
		return "", err
	}
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		s.reset(session)
		return "", fmt.Errorf("failed to call tool %s: %w", name, err)
	}

	var sb strings.Builder
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	if res.IsError {
		return "", fmt.Errorf("%w: %s: %s", ErrToolFailed, name, sb.String())
	}
	return sb.String(), nil
}

func (s *mcpSource) get(ctx context.Context) (*mcp.ClientSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session != nil {
		return s.session, nil
	}
	if s.connect == nil {
		return nil, errors.New("tool session is closed")
	}
	session, err := s.connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to tool server: %w", err)
	}
	s.session = session
	return session, nil
}

func (s *mcpSource) reset(session *mcp.ClientSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.connect == nil || s.session != session {
		return
	}
	_ = session.Close()
	s.session = nil
}

// inputSchema decodes a tool input schema, whatever concrete type the client
// produced for it.
func inputSchema(v any) (*jsonschema.Schema, error) {
	if v == nil {
		return &jsonschema.Schema{Type: "object"}, nil
	}
	if s, ok := v.(*jsonschema.Schema); ok {
		return s, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var s jsonschema.Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
