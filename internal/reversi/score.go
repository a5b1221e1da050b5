package reversi

const (
	// WinScore is returned for a finished game the mover has won.
	WinScore = 1000
	// CornerBonus is added for each corner held by the mover.
	CornerBonus = 100
)

var corners = [4]Position{
	{0, 0},
	{0, Size - 1},
	{Size - 1, 0},
	{Size - 1, Size - 1},
}

// IsTerminal reports whether neither player has a legal move.
func (b Board) IsTerminal() bool {
	return len(b.LegalMoves()) == 0 && len(b.WithMover(b.mover.Reverse()).LegalMoves()) == 0
}

// Score evaluates the board from the point of view of its mover.
//
// A finished game scores WinScore when the mover holds strictly more stones
// and 0 otherwise, so a draw and a loss look the same. An unfinished game
// scores the mover's mobility plus CornerBonus per owned corner.
func (b Board) Score() int {
	moves := b.LegalMoves()
	if len(moves) == 0 && len(b.WithMover(b.mover.Reverse()).LegalMoves()) == 0 {
		mine := b.Count(b.mover)
		theirs := b.Count(b.mover.Reverse())
		if mine > theirs {
			return WinScore
		}
		return 0
	}

	score := len(moves)
	for _, c := range corners {
		if s, ok := b.StoneAt(c); ok && s == b.mover {
			score += CornerBonus
		}
	}
	return score
}
