package openai

import (
	"context"
	"fmt"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/rocketscienceinc/tictactoe-arena/internal/provider"
)

// proposeWithChat - chat completion with a strict json_schema answer. Rationale is only present on
// gateways that send reasoning_content.
func (that *Provider) proposeWithChat(ctx context.Context, prompt string) (provider.Proposal, error) {
	log := that.logger.With("method", "proposeWithChat")

	resp, err := that.chat.CreateChatCompletion(ctx, that.buildChatRequest(prompt))
	if err != nil {
		return provider.Proposal{}, fmt.Errorf("failed to create chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return provider.Proposal{}, fmt.Errorf("%w: no choices", provider.ErrMalformedResponse)
	}

	message := resp.Choices[0].Message

	move, err := provider.ParseMove(message.Content)
	if err != nil {
		return provider.Proposal{}, err
	}

	log.Debug("move proposed", "model", resp.Model, "move", move, "total_tokens", resp.Usage.TotalTokens)

	return provider.Proposal{
		Move:      move,
		Rationale: strings.TrimSpace(message.ReasoningContent),
	}, nil
}

func (that *Provider) buildChatRequest(prompt string) goopenai.ChatCompletionRequest {
	return goopenai.ChatCompletionRequest{
		Model: that.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: provider.SystemPrompt},
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		ReasoningEffort: that.reasoningEffort,
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &goopenai.ChatCompletionResponseFormatJSONSchema{
				Name:   schemaName,
				Schema: moveSchema(),
				Strict: true,
			},
		},
	}
}
