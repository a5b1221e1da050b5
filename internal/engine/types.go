package engine

import (
	"errors"
	"fmt"

	"github.com/dmmcquay/reversi-mcp/internal/reversi"
)

// MoveRequest is the inbound position. Field names follow the deployed wire
// format: teban is the player to move and banmen the grid, both as codes
// (1 black, -1 white, anything else empty).
type MoveRequest struct {
	Teban  int     `json:"teban"`
	Banmen [][]int `json:"banmen"`
}

// MoveResponse is the chosen coordinate; (-1, -1) means no move.
type MoveResponse struct {
	Y int `json:"y"`
	X int `json:"x"`
}

// NoMove is returned when the mover has no legal move.
var NoMove = MoveResponse{Y: -1, X: -1}

// IsPass reports whether r is the no-move sentinel.
func (r MoveResponse) IsPass() bool {
	return r == NoMove
}

func responseFor(p reversi.Position) MoveResponse {
	return MoveResponse{Y: p.Row, X: p.Col}
}

// Analysis is the root view of a search: every legal move with its score and
// the move the search picked.
type Analysis struct {
	Mover      string              `json:"mover"`
	Depth      int                 `json:"depth"`
	Best       MoveResponse        `json:"best"`
	Score      int                 `json:"score"`
	Nodes      int                 `json:"nodes"`
	Candidates []reversi.Candidate `json:"candidates"`
}

// ErrInvalidMover is wrapped by every ValidationError.
var ErrInvalidMover = errors.New("invalid mover")

// ValidationError rejects a request before any board is built.
type ValidationError struct {
	RequestID string
	Mover     int
}

func (e *ValidationError) Error() string {
	if e.RequestID == "" {
		return fmt.Sprintf("invalid mover %d", e.Mover)
	}
	return fmt.Sprintf("invalid mover %d in request %s", e.Mover, e.RequestID)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidMover
}
