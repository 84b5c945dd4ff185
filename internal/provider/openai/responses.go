package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/tidwall/gjson"

	"github.com/rocketscienceinc/tictactoe-arena/internal/provider"
)

const responsesPath = "/responses"

type (
	inputMessage struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}

	reasoningOptions struct {
		Effort  string `json:"effort,omitempty"`
		Summary string `json:"summary,omitempty"`
	}

	textFormat struct {
		Type   string                 `json:"type"`
		Name   string                 `json:"name"`
		Schema *jsonschema.Definition `json:"schema"`
		Strict bool                   `json:"strict"`
	}

	textOptions struct {
		Format textFormat `json:"format"`
	}

	responsesRequest struct {
		Model     string            `json:"model"`
		Input     []inputMessage    `json:"input"`
		Reasoning *reasoningOptions `json:"reasoning,omitempty"`
		Text      textOptions       `json:"text"`
	}
)

// proposeWithResponses - POST /responses with a json_schema text format. Reasoning summaries become the rationale.
func (that *Provider) proposeWithResponses(ctx context.Context, prompt string) (provider.Proposal, error) {
	log := that.logger.With("method", "proposeWithResponses")

	body, err := json.Marshal(that.buildResponsesRequest(prompt))
	if err != nil {
		return provider.Proposal{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, that.baseURL+responsesPath, bytes.NewReader(body))
	if err != nil {
		return provider.Proposal{}, fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+that.apiKey)

	resp, err := that.httpClient.Do(req)
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

	proposal, err := parseResponsesOutput(raw)
	if err != nil {
		return provider.Proposal{}, err
	}

	log.Debug("move proposed",
		"model", gjson.GetBytes(raw, "model").String(),
		"move", proposal.Move,
		"total_tokens", gjson.GetBytes(raw, "usage.total_tokens").Int(),
	)

	return proposal, nil
}

func (that *Provider) buildResponsesRequest(prompt string) responsesRequest {
	request := responsesRequest{
		Model: that.model,
		Input: []inputMessage{
			{Role: "system", Content: provider.SystemPrompt},
			{Role: "user", Content: prompt},
		},
		Text: textOptions{
			Format: textFormat{
				Type:   "json_schema",
				Name:   schemaName,
				Schema: moveSchema(),
				Strict: true,
			},
		},
	}

	if that.reasoningEffort != "" || that.reasoningSummary != "" {
		request.Reasoning = &reasoningOptions{
			Effort:  that.reasoningEffort,
			Summary: that.reasoningSummary,
		}
	}

	return request
}

// parseResponsesOutput - joins reasoning summary parts into the rationale and output_text parts into the answer.
func parseResponsesOutput(raw []byte) (provider.Proposal, error) {
	var (
		summaries []string
		text      strings.Builder
		refusal   string
	)

	gjson.GetBytes(raw, "output").ForEach(func(_, item gjson.Result) bool {
		switch item.Get("type").String() {
		case "reasoning":
			item.Get("summary").ForEach(func(_, part gjson.Result) bool {
				if s := strings.TrimSpace(part.Get("text").String()); s != "" {
					summaries = append(summaries, s)
				}
				return true
			})
		case "message":
			item.Get("content").ForEach(func(_, part gjson.Result) bool {
				switch part.Get("type").String() {
				case "output_text":
					text.WriteString(part.Get("text").String())
				case "refusal":
					refusal = part.Get("refusal").String()
				}
				return true
			})
		}
		return true
	})

	if text.Len() == 0 {
		if refusal != "" {
			return provider.Proposal{}, fmt.Errorf("%w: refused: %s", provider.ErrMalformedResponse, refusal)
		}
		if reason := gjson.GetBytes(raw, "incomplete_details.reason").String(); reason != "" {
			return provider.Proposal{}, fmt.Errorf("%w: incomplete: %s", provider.ErrMalformedResponse, reason)
		}
	}

	move, err := provider.ParseMove(text.String())
	if err != nil {
		return provider.Proposal{}, err
	}

	return provider.Proposal{
		Move:      move,
		Rationale: strings.Join(summaries, "\n"),
	}, nil
}
