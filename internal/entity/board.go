package entity

import (
	"fmt"
	"strings"

	"github.com/rocketscienceinc/tictactoe-arena/internal/apperror"
)

type Mark string

const (
	MarkX Mark = "X"
	MarkO Mark = "O"

	EmptyCell Mark = ""

	// emptySymbol is how an empty cell is written in prompts and views.
	emptySymbol = "."
)

// Opponent - returns the other mark.
func (that Mark) Opponent() Mark {
	if that == MarkX {
		return MarkO
	}
	return MarkX
}

func (that Mark) IsValid() bool {
	return that == MarkX || that == MarkO
}

// Coordinate - one of the nine cells, column A-C followed by row 1-3.
type Coordinate string

// Coordinates lists the cells in row-major order, row 1 first.
var Coordinates = [9]Coordinate{
	"A1", "B1", "C1",
	"A2", "B2", "C2",
	"A3", "B3", "C3",
}

// WinCombos holds the eight lines: rows, then columns, then diagonals.
var WinCombos = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// ParseCoordinate - accepts exactly one of the nine coordinate symbols.
func ParseCoordinate(raw string) (Coordinate, error) {
	if len(raw) != 2 {
		return "", fmt.Errorf("%w: %q", apperror.ErrInvalidCoordinate, raw)
	}

	col, row := raw[0], raw[1]
	if col < 'A' || col > 'C' || row < '1' || row > '3' {
		return "", fmt.Errorf("%w: %q", apperror.ErrInvalidCoordinate, raw)
	}

	return Coordinate(raw), nil
}

// Index - row-major position of the coordinate on the board.
func (that Coordinate) Index() int {
	return int(that[1]-'1')*3 + int(that[0]-'A')
}

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusWon        Status = "won"
	StatusDrawn      Status = "drawn"
)

func (that Status) IsTerminal() bool {
	return that == StatusWon || that == StatusDrawn
}

// Outcome - verdict of a board evaluation. Winner is set only for StatusWon.
type Outcome struct {
	Status Status
	Winner Mark
}

type Board [9]Mark

// Apply - puts mark on an empty cell. Turn order is not checked here.
func (that *Board) Apply(c Coordinate, mark Mark) error {
	if _, err := ParseCoordinate(string(c)); err != nil {
		return err
	}

	if !mark.IsValid() {
		return fmt.Errorf("%w: %q", apperror.ErrInvalidMark, mark)
	}

	idx := c.Index()
	if that[idx] != EmptyCell {
		return fmt.Errorf("%w: %s", apperror.ErrCellOccupied, c)
	}

	that[idx] = mark

	return nil
}

func (that *Board) At(c Coordinate) Mark {
	return that[c.Index()]
}

func (that *Board) Occupied() int {
	n := 0
	for _, cell := range that {
		if cell != EmptyCell {
			n++
		}
	}
	return n
}

func (that *Board) IsFull() bool {
	return that.Occupied() == len(that)
}

// EmptyCoordinates - free cells in row-major order.
func (that *Board) EmptyCoordinates() []Coordinate {
	free := make([]Coordinate, 0, len(that))
	for i, cell := range that {
		if cell == EmptyCell {
			free = append(free, Coordinates[i])
		}
	}
	return free
}

// Evaluate - checks the eight lines and the fill level.
// A board where both marks own a line cannot come from alternating play and is reported as an error.
func (that *Board) Evaluate() (Outcome, error) {
	var winner Mark

	for _, combo := range WinCombos {
		a, b, c := that[combo[0]], that[combo[1]], that[combo[2]]
		if a == EmptyCell || a != b || b != c {
			continue
		}

		if winner != EmptyCell && winner != a {
			return Outcome{}, apperror.ErrInconsistentBoard
		}

		winner = a
	}

	if winner != EmptyCell {
		return Outcome{Status: StatusWon, Winner: winner}, nil
	}

	if that.IsFull() {
		return Outcome{Status: StatusDrawn}, nil
	}

	return Outcome{Status: StatusInProgress}, nil
}

// Serialize - renders the board as the prompt text sent to move providers.
func (that *Board) Serialize(toMove Mark) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "You are %s.\n\n", toMove)
	sb.WriteString("Coordinates:\nRows: 1,2,3\nCols: A,B,C\n\n")
	sb.WriteString("Board:\nA1 B1 C1\nA2 B2 C2\nA3 B3 C3\n\n")
	sb.WriteString("Your turn. Output one move only.\n\n")
	sb.WriteString("Here is the board state:\n\n")

	for row := 0; row < 3; row++ {
		if row > 0 {
			sb.WriteByte('\n')
		}
		for col := 0; col < 3; col++ {
			idx := row*3 + col
			if col > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s=%s", Coordinates[idx], cellSymbol(that[idx]))
		}
	}

	return sb.String()
}

// Cells - coordinate to symbol mapping used by views.
func (that *Board) Cells() map[string]string {
	cells := make(map[string]string, len(that))
	for i, cell := range that {
		cells[string(Coordinates[i])] = cellSymbol(cell)
	}
	return cells
}

func cellSymbol(cell Mark) string {
	if cell == EmptyCell {
		return emptySymbol
	}
	return string(cell)
}
