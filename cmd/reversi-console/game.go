package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/dmmcquay/reversi-mcp/internal/logging"
	"github.com/dmmcquay/reversi-mcp/internal/reversi"
)

// game is a console match between a person and the engine.
type game struct {
	board  reversi.Board
	human  reversi.Player
	depth  int
	in     reversi.LineReader
	out    io.Writer
	logger logging.ContextLogger
}

// errQuit ends the match early.
var errQuit = errors.New("quit")

// play runs until the board is full, neither side can move, or input ends.
func (g *game) play() error {
	picker := reversi.NewPicker(g.in, g.out)
	passes := 0

	for {
		if err := reversi.Render(g.out, g.board); err != nil {
			return err
		}
		if g.board.IsTerminal() || passes == 2 {
			g.announce()
			return nil
		}

		mover := g.board.Mover()
		if len(g.board.LegalMoves()) == 0 {
			fmt.Fprintf(g.out, "%s %s has no move and passes.\n", mover.Glyph(), mover)
			g.board = g.board.WithMover(mover.Reverse())
			passes++
			continue
		}
		passes = 0

		var move reversi.Position
		if mover == g.human {
			var err error
			move, err = g.ask(picker)
			if err != nil {
				return err
			}
		} else {
			r := reversi.Search(g.board, g.depth)
			move = r.Move
			g.logger.Debug("Engine moved", "move", move.String(), "score", r.Score, "nodes", r.Nodes)
		}

		fmt.Fprintf(g.out, "%s %s plays %s.\n", mover.Glyph(), mover, move)
		g.board = g.board.ApplyMove(move)
	}
}

func (g *game) ask(picker *reversi.Picker) (reversi.Position, error) {
	for {
		move, err := picker.Pick(g.board)
		if err == nil {
			return move, nil
		}
		if !errors.Is(err, reversi.ErrNoSelection) {
			return reversi.Position{}, err
		}
		fmt.Fprintf(g.out, "%v; enter one of the indices above.\n", err)
	}
}

func (g *game) announce() {
	black, white := g.board.Count(reversi.Black), g.board.Count(reversi.White)
	switch {
	case black > white:
		fmt.Fprintf(g.out, "Black wins %d-%d.\n", black, white)
	case white > black:
		fmt.Fprintf(g.out, "White wins %d-%d.\n", white, black)
	default:
		fmt.Fprintf(g.out, "Draw %d-%d.\n", black, white)
	}
}
