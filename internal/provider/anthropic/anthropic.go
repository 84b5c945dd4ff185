package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/rocketscienceinc/tictactoe-arena/internal/config"
	"github.com/rocketscienceinc/tictactoe-arena/internal/provider"
)

const (
	apiVersion           = "2023-06-01"
	structuredOutputBeta = "structured-outputs-2025-11-13"
	messagesPath         = "/v1/messages"

	// minThinkingBudget is the smallest budget the API accepts for extended thinking.
	minThinkingBudget = 1024
)

var ErrAPI = errors.New("messages api returned an error")

type (
	message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	thinking struct {
		Type         string `json:"type"`
		BudgetTokens int    `json:"budget_tokens"`
	}

	outputFormat struct {
		Type   string         `json:"type"`
		Schema map[string]any `json:"schema"`
	}

	messagesRequest struct {
		Model        string        `json:"model"`
		MaxTokens    int           `json:"max_tokens"`
		System       string        `json:"system"`
		Messages     []message     `json:"messages"`
		Thinking     *thinking     `json:"thinking,omitempty"`
		OutputFormat *outputFormat `json:"output_format,omitempty"`
	}
)

// Provider - Messages API backend with extended thinking.
type Provider struct {
	logger *slog.Logger
	client *http.Client

	baseURL          string
	apiKey           string
	model            string
	maxTokens        int
	thinkingBudget   int
	structuredOutput bool
}

func New(logger *slog.Logger, conf config.Anthropic) *Provider {
	return &Provider{
		logger:           logger.With("component", "anthropic"),
		client:           &http.Client{Timeout: conf.Timeout},
		baseURL:          strings.TrimRight(conf.BaseURL, "/"),
		apiKey:           conf.APIKey,
		model:            conf.Model,
		maxTokens:        conf.MaxTokens,
		thinkingBudget:   conf.ThinkingBudget,
		structuredOutput: conf.StructuredOutput,
	}
}

func (that *Provider) ProposeMove(ctx context.Context, prompt string) (provider.Proposal, error) {
	log := that.logger.With("method", "ProposeMove")

	body, err := json.Marshal(that.buildRequest(prompt))
	if err != nil {
		return provider.Proposal{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, that.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return provider.Proposal{}, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", that.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
	if that.structuredOutput {
		req.Header.Set("anthropic-beta", structuredOutputBeta)
	}

	resp, err := that.client.Do(req)
	if err != nil {
		return provider.Proposal{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return provider.Proposal{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := gjson.GetBytes(raw, "error.message").String()
		if detail == "" {
			detail = strings.TrimSpace(string(raw))
		}
		return provider.Proposal{}, fmt.Errorf("%w: status %d: %s", ErrAPI, resp.StatusCode, detail)
	}

	proposal, err := parseResponse(raw)
	if err != nil {
		return provider.Proposal{}, err
	}

	log.Debug("move proposed",
		"model", gjson.GetBytes(raw, "model").String(),
		"move", proposal.Move,
		"output_tokens", gjson.GetBytes(raw, "usage.output_tokens").Int(),
	)

	return proposal, nil
}

func (that *Provider) buildRequest(prompt string) messagesRequest {
	request := messagesRequest{
		Model:     that.model,
		MaxTokens: that.maxTokens,
		System:    provider.SystemPrompt,
		Messages:  []message{{Role: "user", Content: prompt}},
	}

	if that.thinkingBudget > 0 {
		request.Thinking = &thinking{
			Type:         "enabled",
			BudgetTokens: max(that.thinkingBudget, minThinkingBudget),
		}
	}

	if that.structuredOutput {
		request.OutputFormat = &outputFormat{
			Type: "json_schema",
			Schema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"move": map[string]any{"type": "string", "pattern": provider.MovePattern},
				},
				"required":             []string{"move"},
				"additionalProperties": false,
			},
		}
	}

	return request
}

// parseResponse - joins thinking blocks into the rationale and text blocks into the answer.
func parseResponse(raw []byte) (provider.Proposal, error) {
	var (
		thoughts []string
		text     strings.Builder
	)

	gjson.GetBytes(raw, "content").ForEach(func(_, block gjson.Result) bool {
		switch block.Get("type").String() {
		case "thinking":
			if s := block.Get("thinking").String(); s != "" {
				thoughts = append(thoughts, s)
			} else if s = block.Get("summary").String(); s != "" {
				thoughts = append(thoughts, s)
			}
		case "text":
			text.WriteString(block.Get("text").String())
		}
		return true
	})

	move, err := provider.ParseMove(text.String())
	if err != nil {
		return provider.Proposal{}, err
	}

	return provider.Proposal{
		Move:      move,
		Rationale: strings.TrimSpace(strings.Join(thoughts, "\n")),
	}, nil
}
