package agent

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/databricks/databricks-sdk-go/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// placeholderToken satisfies the client constructor. The real credential is set on
// every request by the Databricks authenticator.
const placeholderToken = "databricks"

// AuthTransport authenticates each request with the Databricks configuration.
type AuthTransport struct {
	Config *config.Config
	Base   http.RoundTripper
}

func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	r := req.Clone(req.Context())
	if err := t.Config.Authenticate(r); err != nil {
		return nil, fmt.Errorf("failed to authenticate request: %w", err)
	}
	return base.RoundTrip(r)
}

// NewHTTPClient returns a client whose requests carry Databricks credentials.
func NewHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{Transport: &AuthTransport{Config: cfg}}
}

// NewModel talks to a serving endpoint through its OpenAI compatible API.
func NewModel(cfg *config.Config, endpoint string) (llms.Model, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	if endpoint == "" {
		return nil, fmt.Errorf("llm endpoint is required")
	}
	token := cfg.Token
	if token == "" {
		token = placeholderToken
	}

	model, err := openai.New(
		openai.WithBaseURL(strings.TrimSuffix(cfg.CanonicalHostName(), "/")+"/serving-endpoints"),
		openai.WithToken(token),
		openai.WithModel(endpoint),
		openai.WithHTTPClient(NewHTTPClient(cfg)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}
	return model, nil
}
