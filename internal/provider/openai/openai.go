package openai

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/rocketscienceinc/tictactoe-arena/internal/config"
	"github.com/rocketscienceinc/tictactoe-arena/internal/provider"
)

const schemaName = "game_answer"

var ErrAPI = errors.New("openai api returned an error")

type chatClient interface {
	CreateChatCompletion(ctx context.Context, request goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error)
}

// Provider - OpenAI backend. The Responses API is used by default since it is the one that returns
// reasoning summaries; chat completions remain for compatible gateways.
type Provider struct {
	logger *slog.Logger

	api        string
	httpClient *http.Client
	chat       chatClient

	baseURL          string
	apiKey           string
	model            string
	reasoningEffort  string
	reasoningSummary string
}

func New(logger *slog.Logger, conf config.OpenAI) *Provider {
	httpClient := &http.Client{Timeout: conf.Timeout}

	baseURL := strings.TrimRight(conf.BaseURL, "/")
	clientConf := goopenai.DefaultConfig(conf.APIKey)
	if baseURL != "" {
		clientConf.BaseURL = baseURL
	}
	clientConf.HTTPClient = httpClient

	api := conf.API
	if api == "" {
		api = config.OpenAIResponses
	}

	return &Provider{
		logger:           logger.With("component", "openai"),
		api:              api,
		httpClient:       httpClient,
		chat:             goopenai.NewClientWithConfig(clientConf),
		baseURL:          clientConf.BaseURL,
		apiKey:           conf.APIKey,
		model:            conf.Model,
		reasoningEffort:  conf.ReasoningEffort,
		reasoningSummary: conf.ReasoningSummary,
	}
}

func (that *Provider) ProposeMove(ctx context.Context, prompt string) (provider.Proposal, error) {
	if that.api == config.OpenAIChat {
		return that.proposeWithChat(ctx, prompt)
	}

	return that.proposeWithResponses(ctx, prompt)
}

func moveSchema() *jsonschema.Definition {
	return &jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"move": {
				Type: jsonschema.String,
				Enum: provider.CoordinateEnum(),
			},
		},
		Required:             []string{"move"},
		AdditionalProperties: false,
	}
}
