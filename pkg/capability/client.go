package capability

import (
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// WebClient is the provided implementation of the capability contract:
// DuckDuckGo HTML search, plain HTTP fetch with readable-content extraction,
// and an OpenAI-compatible planner for quote mining.
type WebClient struct {
	httpClient *http.Client
	ai         *openai.Client
	model      string
	logger     *zap.Logger
}

// WebClientConfig configures a WebClient.
type WebClientConfig struct {
	// LLMAPIKey and LLMBaseURL configure the OpenAI-compatible planner
	// backend. LLMBaseURL may point at any compatible endpoint.
	LLMAPIKey  string
	LLMBaseURL string
	// Model used for plan calls, e.g. "gpt-4o-mini".
	Model string
	// HTTPClient is used for search and fetch; defaults to a client with a
	// 2 minute timeout.
	HTTPClient *http.Client
}

// NewWebClient creates the web-backed capability client.
func NewWebClient(cfg WebClientConfig, logger *zap.Logger) *WebClient {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}

	aiCfg := openai.DefaultConfig(cfg.LLMAPIKey)
	if cfg.LLMBaseURL != "" {
		aiCfg.BaseURL = cfg.LLMBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	return &WebClient{
		httpClient: httpClient,
		ai:         openai.NewClientWithConfig(aiCfg),
		model:      model,
		logger:     logger,
	}
}
