package bot

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"regexp"

	"github.com/rocketscienceinc/tictactoe-arena/internal/entity"
	"github.com/rocketscienceinc/tictactoe-arena/internal/provider"
)

var (
	ErrNoAvailableMoves = errors.New("no available moves")
	ErrUnreadableBoard  = errors.New("board state not found in prompt")
)

var cellPattern = regexp.MustCompile(`([A-C][1-3])=([.XO])`)

type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) } //nolint: gosec // it's ok

// Bot - plays a uniformly random empty cell. Needs no network and keeps local runs free.
type Bot struct {
	rng Rand
}

// New - rng may be nil, in which case the shared generator is used.
func New(rng Rand) *Bot {
	if rng == nil {
		rng = globalRand{}
	}

	return &Bot{rng: rng}
}

func (that *Bot) ProposeMove(ctx context.Context, prompt string) (provider.Proposal, error) {
	if err := ctx.Err(); err != nil {
		return provider.Proposal{}, err
	}

	board, err := readBoard(prompt)
	if err != nil {
		return provider.Proposal{}, err
	}

	availableCells := board.EmptyCoordinates()
	if len(availableCells) == 0 {
		return provider.Proposal{}, ErrNoAvailableMoves
	}

	chosenCell := availableCells[that.rng.IntN(len(availableCells))]

	return provider.Proposal{
		Move:      string(chosenCell),
		Rationale: fmt.Sprintf("Picked %s at random from %d empty cells.", chosenCell, len(availableCells)),
	}, nil
}

// readBoard - rebuilds the board from the "A1=X, B1=., ..." lines of a serialized prompt.
func readBoard(prompt string) (entity.Board, error) {
	var board entity.Board

	matches := cellPattern.FindAllStringSubmatch(prompt, -1)
	if len(matches) != len(board) {
		return board, fmt.Errorf("%w: found %d cells", ErrUnreadableBoard, len(matches))
	}

	for _, match := range matches {
		if match[2] == "." {
			continue
		}

		if err := board.Apply(entity.Coordinate(match[1]), entity.Mark(match[2])); err != nil {
			return board, fmt.Errorf("%w: %w", ErrUnreadableBoard, err)
		}
	}

	return board, nil
}
