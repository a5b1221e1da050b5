package reversi

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrNoSelection is returned by a Picker when the input line holds no usable
// index.
var ErrNoSelection = errors.New("no move selected")

// Render writes an ASCII picture of the grid, one row per line.
func Render(w io.Writer, b Board) error {
	var sb strings.Builder
	sb.WriteString(strings.Repeat("-", 2*Size+3))
	sb.WriteByte('\n')
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			s, _ := b.StoneAt(Position{Row: r, Col: c})
			sb.WriteByte('|')
			sb.WriteString(s.Glyph())
		}
		sb.WriteString("|\n")
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

// LineReader yields one line of user input per call.
type LineReader interface {
	Readline() (string, error)
}

// Picker lets a person choose one of the mover's legal moves.
type Picker struct {
	in  LineReader
	out io.Writer
}

// NewPicker creates a picker reading selections from in and writing the menu
// to out.
func NewPicker(in LineReader, out io.Writer) *Picker {
	return &Picker{in: in, out: out}
}

// Pick lists the legal moves with their indices, reads one line and returns
// the move whose index is the first integer on it.
func (p *Picker) Pick(b Board) (Position, error) {
	moves := b.LegalMoves()
	for i, m := range moves {
		if _, err := fmt.Fprintf(p.out, "%d: %s\n", i, m); err != nil {
			return Position{}, err
		}
	}

	line, err := p.in.Readline()
	if err != nil {
		return Position{}, err
	}
	for _, field := range strings.Fields(line) {
		idx, err := strconv.Atoi(field)
		if err != nil {
			continue
		}
		if idx < 0 || idx >= len(moves) {
			return Position{}, fmt.Errorf("index %d out of range [0, %d): %w", idx, len(moves), ErrNoSelection)
		}
		return moves[idx], nil
	}
	return Position{}, ErrNoSelection
}
