package reversi

import "fmt"

// Size is the board dimension. Every bounds check and the corner list derive
// from it.
const Size = 6

// Position is a (row, col) coordinate on the board.
type Position struct {
	Row int `json:"y"`
	Col int `json:"x"`
}

// InBounds reports whether p lies on the board.
func (p Position) InBounds() bool {
	return p.Row >= 0 && p.Row < Size && p.Col >= 0 && p.Col < Size
}

// Step returns the neighbour of p in direction d.
func (p Position) Step(d Direction) Position {
	return Position{Row: p.Row + d.DRow, Col: p.Col + d.DCol}
}

func (p Position) String() string {
	return fmt.Sprintf("%d-%d", p.Row, p.Col)
}

// Direction is a unit step in one of the eight compass directions.
type Direction struct {
	DRow int
	DCol int
}

// Directions lists the eight compass directions.
var Directions = [8]Direction{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

// Grid is the raw cell layout; a zero cell is empty.
type Grid [Size][Size]Player

// Board is an immutable position: the grid plus the player to move. Boards
// are values, so every copy owns its own grid.
type Board struct {
	grid  Grid
	mover Player
}

// NewBoard builds a board from a grid and the player to move. Cells holding
// anything other than Black or White are treated as empty.
func NewBoard(grid Grid, mover Player) Board {
	b := Board{mover: mover}
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if grid[r][c].Valid() {
				b.grid[r][c] = grid[r][c]
			}
		}
	}
	return b
}

// NewBoardFromCodes builds a board from wire codes. Out-of-domain cell codes
// silently become empty cells; rows and columns beyond Size are ignored.
func NewBoardFromCodes(cells [][]int, mover Player) Board {
	var grid Grid
	for r := 0; r < Size && r < len(cells); r++ {
		for c := 0; c < Size && c < len(cells[r]); c++ {
			if p, ok := PlayerFromCode(cells[r][c]); ok {
				grid[r][c] = p
			}
		}
	}
	return Board{grid: grid, mover: mover}
}

// InitialBoard returns the standard opening with Black to move.
func InitialBoard() Board {
	var grid Grid
	mid := Size / 2
	grid[mid-1][mid-1], grid[mid][mid] = White, White
	grid[mid-1][mid], grid[mid][mid-1] = Black, Black
	return Board{grid: grid, mover: Black}
}

// Mover returns the player whose turn it is.
func (b Board) Mover() Player {
	return b.mover
}

// Grid returns a copy of the cell layout.
func (b Board) Grid() Grid {
	return b.grid
}

// WithMover returns the same grid with a different player to move.
func (b Board) WithMover(p Player) Board {
	b.mover = p
	return b
}

// StoneAt returns the stone at pos. Coordinates off the board and empty cells
// both report ok == false.
func (b Board) StoneAt(pos Position) (Player, bool) {
	if !pos.InBounds() {
		return 0, false
	}
	s := b.grid[pos.Row][pos.Col]
	return s, s != 0
}

// Count returns the number of stones owned by p.
func (b Board) Count(p Player) int {
	n := 0
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			if b.grid[r][c] == p {
				n++
			}
		}
	}
	return n
}

// LegalMoves returns every empty cell that would flip at least one stone for
// the mover, in row-major order.
func (b Board) LegalMoves() []Position {
	var moves []Position
	for r := 0; r < Size; r++ {
		for c := 0; c < Size; c++ {
			pos := Position{Row: r, Col: c}
			if b.flipCount(pos) > 0 {
				moves = append(moves, pos)
			}
		}
	}
	return moves
}

// flipCount sums the flips over all directions; occupied cells flip nothing.
func (b Board) flipCount(pos Position) int {
	if _, ok := b.StoneAt(pos); ok {
		return 0
	}
	total := 0
	for _, d := range Directions {
		total += b.FlipCountInDirection(pos, d)
	}
	return total
}

// FlipCountInDirection counts the opponent stones between pos and the first
// mover stone in direction d. It returns 0 when the walk leaves the board or
// reaches an empty cell first.
func (b Board) FlipCountInDirection(pos Position, d Direction) int {
	count := 0
	for cur := pos.Step(d); ; cur = cur.Step(d) {
		s, ok := b.StoneAt(cur)
		if !ok {
			return 0
		}
		if s == b.mover {
			return count
		}
		count++
	}
}

// ReversiblePositions returns the coordinates that a stone placed at pos
// would flip in direction d. An adjacent own stone yields an empty, non-nil
// slice and ok == true. A run without a terminating own stone yields ok ==
// false.
func (b Board) ReversiblePositions(pos Position, d Direction) ([]Position, bool) {
	flips := []Position{}
	for cur := pos.Step(d); ; cur = cur.Step(d) {
		s, ok := b.StoneAt(cur)
		if !ok {
			return nil, false
		}
		if s == b.mover {
			return flips, true
		}
		flips = append(flips, cur)
	}
}

// ApplyMove places the mover's stone at pos, flips every bracketed run and
// hands the turn to the opponent. The receiver is not modified.
//
// Placing on an occupied cell leaves the grid as it is but still passes the
// turn.
func (b Board) ApplyMove(pos Position) Board {
	if _, ok := b.StoneAt(pos); ok || !pos.InBounds() {
		return b.WithMover(b.mover.Reverse())
	}

	next := b
	next.grid[pos.Row][pos.Col] = b.mover
	for _, d := range Directions {
		flips, ok := b.ReversiblePositions(pos, d)
		if !ok {
			continue
		}
		for _, f := range flips {
			next.grid[f.Row][f.Col] = b.mover
		}
	}
	next.mover = b.mover.Reverse()
	return next
}
