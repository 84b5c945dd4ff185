package provider

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
)

// NoRationale - shown when a backend returns no reasoning with its move.
const NoRationale = "No reasoning provided."

// SystemPrompt - instructions shared by every language-model backend.
const SystemPrompt = `You are a Tic Tac Toe move generator.
Rules:
Game is 3x3 with coordinates: rows 1,2,3 and columns A,B,C.
I will provide the current board state and the list of legal moves.
You must choose exactly one legal move.
You are playing as the mark I specify (X or O).
Output format (strict):
Do not explain your reasoning.
Reply with exactly one coordinate for example: A1, B2, C3.
Total possible coordinates are 9 (A1, A2, A3, B1, B2, B3, C1, C2, C3).
No extra text, no punctuation, no quotes, no spaces, no newlines.`

// MovePattern - shape of a coordinate as advertised to backends in structured output schemas.
const MovePattern = "^[ABC][123]$"

var ErrMalformedResponse = errors.New("malformed provider response")

var bareMove = regexp.MustCompile(MovePattern)

// Proposal - a move as returned by a backend. Move is not trusted until validated by the game.
type Proposal struct {
	Move      string
	Rationale string
}

// MoveProvider - anything that can choose a move for a serialized board.
type MoveProvider interface {
	ProposeMove(ctx context.Context, prompt string) (Proposal, error)
}

// Func - adapts a plain function to MoveProvider.
type Func func(ctx context.Context, prompt string) (Proposal, error)

func (that Func) ProposeMove(ctx context.Context, prompt string) (Proposal, error) {
	return that(ctx, prompt)
}

// CoordinateEnum - the nine coordinates as strings, for structured output schemas.
func CoordinateEnum() []string {
	enum := make([]string, 0, len(entity.Coordinates))
	for _, c := range entity.Coordinates {
		enum = append(enum, string(c))
	}

	return enum
}

// ParseMove - extracts the move from {"move": "B2"}, tolerating prose around the object or a bare coordinate.
// The move itself is returned as sent; validating it is the game's job.
func ParseMove(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", fmt.Errorf("%w: empty output", ErrMalformedResponse)
	}

	if bareMove.MatchString(trimmed) {
		return trimmed, nil
	}

	object := trimmed
	if !gjson.Valid(object) {
		object = extractJSONObject(trimmed)
	}

	if object == "" || !gjson.Valid(object) {
		return "", fmt.Errorf("%w: no json object in %q", ErrMalformedResponse, truncate(trimmed, 80))
	}

	move := gjson.Get(object, "move")
	if move.Type != gjson.String || move.String() == "" {
		return "", fmt.Errorf("%w: missing move in %q", ErrMalformedResponse, truncate(object, 80))
	}

	return move.String(), nil
}

type named struct {
	label string
	next  MoveProvider
}

// Named - wraps every failure of p into *apperror.ProviderError carrying label.
func Named(label string, p MoveProvider) MoveProvider {
	return &named{label: label, next: p}
}

func (that *named) ProposeMove(ctx context.Context, prompt string) (Proposal, error) {
	proposal, err := that.next.ProposeMove(ctx, prompt)
	if err != nil {
		return Proposal{}, WrapError(that.label, err)
	}

	return proposal, nil
}

// WrapError - turns err into *apperror.ProviderError unless it already is one.
func WrapError(label string, err error) error {
	var providerErr *apperror.ProviderError
	if errors.As(err, &providerErr) {
		return err
	}

	return &apperror.ProviderError{Provider: label, Err: err}
}

func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}

	end := strings.LastIndex(s, "}")
	if end < start {
		return ""
	}

	return strings.TrimSpace(s[start : end+1])
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n-3] + "..."
}
