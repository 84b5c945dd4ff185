package openai

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/rocketscienceinc/tictactoe-arena/internal/config"
	"github.com/rocketscienceinc/tictactoe-arena/internal/provider"
)

func newTestProvider(t *testing.T, api string, handler http.HandlerFunc) *Provider {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return New(logger, config.OpenAI{
		APIKey:           "test-key",
		BaseURL:          server.URL + "/v1",
		Model:            "gpt-5.2",
		API:              api,
		ReasoningEffort:  "high",
		ReasoningSummary: "auto",
		Timeout:          5 * time.Second,
	})
}

func respond(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestProvider_ProposeMove_Responses(t *testing.T) {
	t.Run("Returns the structured move and the reasoning summary", func(t *testing.T) {
		// Given: a backend answering B2 with a two-part reasoning summary
		var body []byte
		p := newTestProvider(t, config.OpenAIResponses, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/responses", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

			var err error
			body, err = io.ReadAll(r.Body)
			assert.NoError(t, err)

			respond(w, http.StatusOK, `{
				"id": "resp_1",
				"object": "response",
				"status": "completed",
				"model": "gpt-5.2",
				"output": [
					{
						"id": "rs_1",
						"type": "reasoning",
						"summary": [
							{"type": "summary_text", "text": "**Taking the center**"},
							{"type": "summary_text", "text": "B2 is on four lines."}
						]
					},
					{
						"id": "msg_1",
						"type": "message",
						"role": "assistant",
						"status": "completed",
						"content": [{"type": "output_text", "text": "{\"move\":\"B2\"}", "annotations": []}]
					}
				],
				"usage": {"input_tokens": 120, "output_tokens": 300, "total_tokens": 420}
			}`)
		})

		// When: asking for a move
		proposal, err := p.ProposeMove(context.Background(), "You are X.")

		// Then: the move is parsed and the summary parts are joined
		require.NoError(t, err)
		assert.Equal(t, provider.Proposal{Move: "B2", Rationale: "**Taking the center**\nB2 is on four lines."}, proposal)

		// And: the request asked for reasoning summaries and the answer schema
		assert.Equal(t, "gpt-5.2", gjson.GetBytes(body, "model").String())
		assert.Equal(t, "high", gjson.GetBytes(body, "reasoning.effort").String())
		assert.Equal(t, "auto", gjson.GetBytes(body, "reasoning.summary").String())
		assert.Equal(t, "system", gjson.GetBytes(body, "input.0.role").String())
		assert.Equal(t, provider.SystemPrompt, gjson.GetBytes(body, "input.0.content").String())
		assert.Equal(t, "You are X.", gjson.GetBytes(body, "input.1.content").String())
		assert.Equal(t, "json_schema", gjson.GetBytes(body, "text.format.type").String())
		assert.Equal(t, "game_answer", gjson.GetBytes(body, "text.format.name").String())
		assert.True(t, gjson.GetBytes(body, "text.format.strict").Bool())
		assert.Len(t, gjson.GetBytes(body, "text.format.schema.properties.move.enum").Array(), 9)
		additional := gjson.GetBytes(body, "text.format.schema.additionalProperties")
		require.True(t, additional.Exists())
		assert.False(t, additional.Bool())
	})

	t.Run("No reasoning items leaves the rationale empty", func(t *testing.T) {
		p := newTestProvider(t, config.OpenAIResponses, func(w http.ResponseWriter, _ *http.Request) {
			respond(w, http.StatusOK, `{"output": [{"type": "message", "content": [{"type": "output_text", "text": "{\"move\":\"A3\"}"}]}]}`)
		})

		proposal, err := p.ProposeMove(context.Background(), "You are O.")

		require.NoError(t, err)
		assert.Equal(t, provider.Proposal{Move: "A3"}, proposal)
	})

	t.Run("Api error carries the message", func(t *testing.T) {
		p := newTestProvider(t, config.OpenAIResponses, func(w http.ResponseWriter, _ *http.Request) {
			respond(w, http.StatusTooManyRequests, `{"error": {"message": "Rate limit reached", "type": "requests"}}`)
		})

		_, err := p.ProposeMove(context.Background(), "You are O.")

		require.ErrorIs(t, err, ErrAPI)
		assert.Contains(t, err.Error(), "Rate limit reached")
		assert.Contains(t, err.Error(), "429")
	})

	t.Run("Refusal is a malformed response", func(t *testing.T) {
		p := newTestProvider(t, config.OpenAIResponses, func(w http.ResponseWriter, _ *http.Request) {
			respond(w, http.StatusOK, `{"output": [{"type": "message", "content": [{"type": "refusal", "refusal": "no"}]}]}`)
		})

		_, err := p.ProposeMove(context.Background(), "You are O.")

		require.ErrorIs(t, err, provider.ErrMalformedResponse)
		assert.Contains(t, err.Error(), "refused")
	})

	t.Run("Incomplete response is a malformed response", func(t *testing.T) {
		p := newTestProvider(t, config.OpenAIResponses, func(w http.ResponseWriter, _ *http.Request) {
			respond(w, http.StatusOK, `{
				"status": "incomplete",
				"incomplete_details": {"reason": "max_output_tokens"},
				"output": [{"type": "reasoning", "summary": []}]
			}`)
		})

		_, err := p.ProposeMove(context.Background(), "You are O.")

		require.ErrorIs(t, err, provider.ErrMalformedResponse)
		assert.Contains(t, err.Error(), "max_output_tokens")
	})
}

func TestProvider_ProposeMove_Chat(t *testing.T) {
	t.Run("Returns the structured move and gateway reasoning", func(t *testing.T) {
		// Given: a compatible gateway that sends reasoning_content
		var body []byte
		p := newTestProvider(t, config.OpenAIChat, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

			var err error
			body, err = io.ReadAll(r.Body)
			assert.NoError(t, err)

			respond(w, http.StatusOK, `{
				"id": "chatcmpl-1",
				"object": "chat.completion",
				"model": "gpt-5.2",
				"choices": [{
					"index": 0,
					"message": {"role": "assistant", "content": "{\"move\":\"B2\"}", "reasoning_content": "Center controls four lines."},
					"finish_reason": "stop"
				}],
				"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
			}`)
		})

		// When: asking for a move
		proposal, err := p.ProposeMove(context.Background(), "You are X.")

		// Then: the move and rationale are returned
		require.NoError(t, err)
		assert.Equal(t, provider.Proposal{Move: "B2", Rationale: "Center controls four lines."}, proposal)

		// And: the request carried the model, effort and answer schema
		assert.Equal(t, "gpt-5.2", gjson.GetBytes(body, "model").String())
		assert.Equal(t, "high", gjson.GetBytes(body, "reasoning_effort").String())
		assert.Equal(t, "json_schema", gjson.GetBytes(body, "response_format.type").String())
		assert.Equal(t, provider.SystemPrompt, gjson.GetBytes(body, "messages.0.content").String())
		assert.Equal(t, "You are X.", gjson.GetBytes(body, "messages.1.content").String())
	})

	t.Run("Backend failure is returned as an error", func(t *testing.T) {
		p := newTestProvider(t, config.OpenAIChat, func(w http.ResponseWriter, _ *http.Request) {
			respond(w, http.StatusInternalServerError, `{"error": {"message": "overloaded", "type": "server_error"}}`)
		})

		_, err := p.ProposeMove(context.Background(), "You are O.")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "overloaded")
	})

	t.Run("Unparseable content is a malformed response", func(t *testing.T) {
		p := newTestProvider(t, config.OpenAIChat, func(w http.ResponseWriter, _ *http.Request) {
			respond(w, http.StatusOK, `{"choices": [{"index": 0, "message": {"role": "assistant", "content": "the middle one"}}]}`)
		})

		_, err := p.ProposeMove(context.Background(), "You are O.")

		require.ErrorIs(t, err, provider.ErrMalformedResponse)
	})

	t.Run("No choices is a malformed response", func(t *testing.T) {
		p := newTestProvider(t, config.OpenAIChat, func(w http.ResponseWriter, _ *http.Request) {
			respond(w, http.StatusOK, `{"choices": []}`)
		})

		_, err := p.ProposeMove(context.Background(), "You are O.")

		require.ErrorIs(t, err, provider.ErrMalformedResponse)
	})
}
