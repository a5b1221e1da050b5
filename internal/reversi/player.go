package reversi

// Player identifies the owner of a stone. The zero value is not a player and
// marks an empty cell inside a grid.
type Player int8

const (
	// Black is encoded as 1 on the wire.
	Black Player = 1
	// White is encoded as -1 on the wire.
	White Player = -1
)

// PlayerFromCode maps a wire code to a player. Any value other than 1 or -1
// yields ok == false.
func PlayerFromCode(code int) (Player, bool) {
	switch code {
	case int(Black):
		return Black, true
	case int(White):
		return White, true
	default:
		return 0, false
	}
}

// Reverse returns the other player.
func (p Player) Reverse() Player {
	switch p {
	case Black:
		return White
	case White:
		return Black
	default:
		return p
	}
}

// Code returns the wire code for p.
func (p Player) Code() int {
	return int(p)
}

// Valid reports whether p is Black or White.
func (p Player) Valid() bool {
	return p == Black || p == White
}

// Glyph is the single-cell symbol used by the ASCII renderer.
func (p Player) Glyph() string {
	switch p {
	case Black:
		return "●"
	case White:
		return "○"
	default:
		return " "
	}
}

func (p Player) String() string {
	switch p {
	case Black:
		return "black"
	case White:
		return "white"
	default:
		return "none"
	}
}
