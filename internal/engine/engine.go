package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/dmmcquay/reversi-mcp/internal/config"
	"github.com/dmmcquay/reversi-mcp/internal/logging"
	"github.com/dmmcquay/reversi-mcp/internal/reversi"
	"github.com/samber/lo"
)

// Engine adapts wire requests to the reversi search.
type Engine struct {
	depth    int
	logger   logging.ContextLogger
	recorder SearchRecorder
}

// NewEngine creates an engine searching to cfg.SearchDepth plies.
func NewEngine(cfg *config.EngineConfig, logger logging.ContextLogger) *Engine {
	depth := reversi.DefaultDepth
	if cfg != nil {
		depth = cfg.SearchDepth
	}
	return &Engine{
		depth:  depth,
		logger: logger,
	}
}

// SetRecorder sets where search statistics are reported.
func (e *Engine) SetRecorder(r SearchRecorder) {
	e.recorder = r
}

// Depth returns the configured search depth.
func (e *Engine) Depth() int {
	return e.depth
}

// Board validates the mover and builds the position. The mover must be 1 or
// -1; grid codes outside the domain become empty cells.
func (e *Engine) Board(ctx context.Context, req *MoveRequest) (reversi.Board, error) {
	if req == nil {
		return reversi.Board{}, fmt.Errorf("missing request")
	}

	mover, ok := reversi.PlayerFromCode(req.Teban)
	if !ok {
		reqID, _ := logging.RequestIDFromContext(ctx)
		err := &ValidationError{RequestID: reqID, Mover: req.Teban}
		e.logger.WithContext(ctx).Error("Rejected request", "mover", req.Teban, "error", err)
		if e.recorder != nil {
			e.recorder.RecordInvalidRequest("mover")
		}
		return reversi.Board{}, err
	}

	return reversi.NewBoardFromCodes(req.Banmen, mover), nil
}

// Decide runs the search and encodes its move, or NoMove.
func (e *Engine) Decide(ctx context.Context, req *MoveRequest) (*MoveResponse, error) {
	board, err := e.Board(ctx, req)
	if err != nil {
		return nil, err
	}
	logger := e.logger.WithContext(ctx)
	logger.Debug("Searching", "mover", board.Mover().String(), "depth", e.depth)

	start := time.Now()
	result := reversi.Search(board, e.depth)
	elapsed := time.Since(start)
	if e.recorder != nil {
		e.recorder.RecordSearch(result.Found, result.Nodes, elapsed.Seconds())
	}

	resp := NoMove
	if result.Found {
		resp = responseFor(result.Move)
	}
	logger.Info("Move decided",
		"mover", board.Mover().String(),
		"y", resp.Y,
		"x", resp.X,
		"score", result.Score,
		"nodes", result.Nodes,
		"duration", elapsed,
	)
	return &resp, nil
}

// LegalMoves lists the mover's legal moves.
func (e *Engine) LegalMoves(ctx context.Context, req *MoveRequest) ([]MoveResponse, error) {
	board, err := e.Board(ctx, req)
	if err != nil {
		return nil, err
	}
	return lo.Map(board.LegalMoves(), func(p reversi.Position, _ int) MoveResponse {
		return responseFor(p)
	}), nil
}

// Analyze scores every root move at the given depth.
func (e *Engine) Analyze(ctx context.Context, req *MoveRequest, depth int) (*Analysis, error) {
	board, err := e.Board(ctx, req)
	if err != nil {
		return nil, err
	}
	if depth < 0 {
		depth = e.depth
	}
	if depth > config.MaxSearchDepth {
		return nil, fmt.Errorf("depth %d exceeds maximum %d", depth, config.MaxSearchDepth)
	}

	start := time.Now()
	result, cands := reversi.Analyze(board, depth)
	if e.recorder != nil {
		e.recorder.RecordSearch(result.Found, result.Nodes, time.Since(start).Seconds())
	}

	best := NoMove
	if result.Found {
		best = responseFor(result.Move)
	}
	return &Analysis{
		Mover:      board.Mover().String(),
		Depth:      depth,
		Best:       best,
		Score:      result.Score,
		Nodes:      result.Nodes,
		Candidates: cands,
	}, nil
}

// Ping plays one shallow search on the opening position.
func (e *Engine) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, _, found := reversi.BestMove(reversi.InitialBoard(), 1); !found {
		return fmt.Errorf("engine found no move on the opening position")
	}
	return nil
}
