package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

const (
	ServerName = "lakespend"

	InfoResourceURI       = "server://info"
	ConnectionResourceURI = "databricks://connection"

	outcomeSuccess = "success"
	outcomeError   = "error"
)

type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "lakespend",
				Name:      "tool_calls_total",
				Help:      "Total number of tool calls",
			},
			[]string{"tool", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "lakespend",
				Name:      "tool_call_duration_seconds",
				Help:      "Tool call duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"tool"},
		),
	}
	reg.MustRegister(m.calls, m.duration)
	return m
}

func (m *Metrics) observe(tool, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(tool, outcome).Inc()
	m.duration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

type Options struct {
	Logger  zerolog.Logger
	Metrics *Metrics
}

func NewServer(version string) *mcp.Server {
	return mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: version}, nil)
}

// Register adds every catalog tool and the info and connection resources to server.
func Register(server *mcp.Server, d *Dispatcher, opts Options) {
	for _, desc := range d.Descriptors() {
		server.AddTool(&mcp.Tool{
			Name:        desc.Name,
			Description: desc.Description,
			InputSchema: desc.Schema(),
		}, d.handler(desc.Name, opts))
	}

	server.AddResource(&mcp.Resource{
		URI:         InfoResourceURI,
		Name:        "server_info",
		Description: "Server version, supported resource types and tools",
		MIMEType:    "application/json",
	}, d.resourceHandler(InfoResourceURI, func(ctx context.Context) (any, error) {
		return d.tools.status(ctx).Server, nil
	}))

	server.AddResource(&mcp.Resource{
		URI:         ConnectionResourceURI,
		Name:        "databricks_connection",
		Description: "Databricks workspace connection status",
		MIMEType:    "application/json",
	}, d.resourceHandler(ConnectionResourceURI, func(ctx context.Context) (any, error) {
		return d.tools.status(ctx).Connection, nil
	}))
}

// NewHTTPHandler serves server over the streamable HTTP transport.
func NewHTTPHandler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)
}

func (d *Dispatcher) handler(name string, opts Options) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		logger := opts.Logger.With().Str("tool", name).Logger()
		ctx = logger.WithContext(ctx)
		start := time.Now()

		var raw json.RawMessage
		if req != nil && req.Params != nil {
			raw = req.Params.Arguments
		}

		out, err := d.Call(ctx, name, raw)
		if err != nil {
			opts.Metrics.observe(name, outcomeError, time.Since(start))
			logger.Error().Err(err).Msg("tool call failed")
			return errorResult(err), nil
		}

		text, err := json.Marshal(out)
		if err != nil {
			opts.Metrics.observe(name, outcomeError, time.Since(start))
			return errorResult(fmt.Errorf("failed to encode result: %w", err)), nil
		}

		opts.Metrics.observe(name, outcomeSuccess, time.Since(start))
		logger.Info().Dur("elapsed", time.Since(start)).Msg("tool call succeeded")
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(text)}},
		}, nil
	}
}

func (d *Dispatcher) resourceHandler(uri string, read func(ctx context.Context) (any, error)) mcp.ResourceHandler {
	return func(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		out, err := read(ctx)
		if err != nil {
			return nil, err
		}
		text, err := json.Marshal(out)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", uri, err)
		}
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: "application/json", Text: string(text)}},
		}, nil
	}
}

func errorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}
}
