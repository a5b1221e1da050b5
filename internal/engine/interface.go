package engine

import (
	"context"

	"github.com/dmmcquay/reversi-mcp/internal/reversi"
)

// EngineInterface is what the transports call. It allows for mocking in
// tests.
type EngineInterface interface {
	// Decide returns the move to play for the request.
	Decide(ctx context.Context, req *MoveRequest) (*MoveResponse, error)

	// LegalMoves lists the mover's legal moves in row-major order.
	LegalMoves(ctx context.Context, req *MoveRequest) ([]MoveResponse, error)

	// Analyze scores every root move. depth < 0 selects the configured depth.
	Analyze(ctx context.Context, req *MoveRequest, depth int) (*Analysis, error)

	// Board validates the request and builds the position.
	Board(ctx context.Context, req *MoveRequest) (reversi.Board, error)

	// Ping checks that the engine answers.
	Ping(ctx context.Context) error
}

// SearchRecorder receives search statistics. Implemented by the metrics
// package.
type SearchRecorder interface {
	RecordSearch(found bool, nodes int, durationSecs float64)
	RecordInvalidRequest(reason string)
}

var _ EngineInterface = (*Engine)(nil)
