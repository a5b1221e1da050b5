package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/dmmcquay/reversi-mcp/internal/engine"
	"github.com/dmmcquay/reversi-mcp/internal/health"
	"github.com/dmmcquay/reversi-mcp/internal/logging"
	"github.com/dmmcquay/reversi-mcp/internal/metrics"
	"github.com/dmmcquay/reversi-mcp/internal/ratelimit"
	"github.com/dmmcquay/reversi-mcp/internal/reversi"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/samber/lo"
)

// ToolsHandler exposes the engine as MCP tools.
type ToolsHandler struct {
	engine     engine.EngineInterface
	logger     logging.ContextLogger
	middleware *Middleware

	version   string
	checker   *health.Checker
	limiter   *ratelimit.Limiter
	collector *metrics.Collector
}

// NewToolsHandler creates a new tools handler.
func NewToolsHandler(engine engine.EngineInterface, logger logging.ContextLogger) *ToolsHandler {
	return &ToolsHandler{
		engine: engine,
		logger: logger,
	}
}

// SetMiddleware sets the middleware for the tools handler.
func (h *ToolsHandler) SetMiddleware(middleware *Middleware) {
	h.middleware = middleware
}

// SetStatusSources supplies what the health tool reports. Any of them may be
// nil.
func (h *ToolsHandler) SetStatusSources(version string, checker *health.Checker, limiter *ratelimit.Limiter, collector *metrics.Collector) {
	h.version = version
	h.checker = checker
	h.limiter = limiter
	h.collector = collector
}

func positionArgs() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithNumber("teban",
			mcp.Description("Player to move: 1 for black, -1 for white"),
			mcp.Required(),
		),
		mcp.WithArray("banmen",
			mcp.Description("6x6 grid, row by row; 1 black, -1 white, 0 empty"),
			mcp.Required(),
			mcp.Items(map[string]interface{}{
				"type":  "array",
				"items": map[string]interface{}{"type": "integer"},
			}),
		),
	}
}

func (h *ToolsHandler) add(s *server.MCPServer, tool mcp.Tool, handler ToolHandler) {
	if h.middleware != nil {
		handler = h.middleware.WrapTool(tool.Name, handler)
	}
	s.AddTool(tool, handler)
}

// RegisterTools registers all tools with the MCP server.
func (h *ToolsHandler) RegisterTools(s *server.MCPServer) {
	h.add(s, mcp.NewTool("bestMove", append([]mcp.ToolOption{
		mcp.WithDescription("Choose a move for the player to move on a 6x6 reversi board. Returns {y, x}, or {-1, -1} when there is no legal move."),
	}, positionArgs()...)...), h.HandleBestMove)

	h.add(s, mcp.NewTool("legalMoves", append([]mcp.ToolOption{
		mcp.WithDescription("List the legal moves of the player to move, row by row."),
	}, positionArgs()...)...), h.HandleLegalMoves)

	h.add(s, mcp.NewTool("analyzePosition", append([]mcp.ToolOption{
		mcp.WithDescription("Score every legal move with the fixed-depth search and report the chosen one."),
		mcp.WithNumber("depth",
			mcp.Description("Search depth in plies (default: configured depth)"),
			mcp.Min(0),
			mcp.Max(8),
		),
	}, positionArgs()...)...), h.HandleAnalyzePosition)

	h.add(s, mcp.NewTool("renderBoard", append([]mcp.ToolOption{
		mcp.WithDescription("Draw the board as text, with the legal moves listed below it."),
	}, positionArgs()...)...), h.HandleRenderBoard)

	h.add(s, mcp.NewTool("health",
		mcp.WithDescription("Report server, engine and rate limit status"),
	), h.HandleHealth)
}

// HandleBestMove handles the bestMove tool.
func (h *ToolsHandler) HandleBestMove(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := parseMoveRequest(request)
	if err != nil {
		return nil, err
	}
	resp, err := h.engine.Decide(ctx, req)
	if err != nil {
		return nil, err
	}
	return jsonResult(resp)
}

// HandleLegalMoves handles the legalMoves tool.
func (h *ToolsHandler) HandleLegalMoves(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := parseMoveRequest(request)
	if err != nil {
		return nil, err
	}
	moves, err := h.engine.LegalMoves(ctx, req)
	if err != nil {
		return nil, err
	}
	return jsonResult(moves)
}

// HandleAnalyzePosition handles the analyzePosition tool.
func (h *ToolsHandler) HandleAnalyzePosition(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := parseMoveRequest(request)
	if err != nil {
		return nil, err
	}
	depth := -1
	if raw, ok := arguments(request)["depth"]; ok && raw != nil {
		if depth, err = toInt("depth", raw); err != nil {
			return nil, err
		}
		if depth < 0 {
			return nil, fmt.Errorf("depth must be non-negative, got %d", depth)
		}
	}

	analysis, err := h.engine.Analyze(ctx, req, depth)
	if err != nil {
		return nil, err
	}
	h.logger.WithContext(ctx).Debug("Analyzed position",
		"depth", analysis.Depth,
		"candidates", len(analysis.Candidates),
		"nodes", analysis.Nodes,
	)
	return jsonResult(analysis)
}

// HandleRenderBoard handles the renderBoard tool.
func (h *ToolsHandler) HandleRenderBoard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req, err := parseMoveRequest(request)
	if err != nil {
		return nil, err
	}
	board, err := h.engine.Board(ctx, req)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	if err := reversi.Render(&sb, board); err != nil {
		return nil, fmt.Errorf("render board: %w", err)
	}
	fmt.Fprintf(&sb, "\n%s to move (%s). Black %d, white %d.\n",
		board.Mover(), board.Mover().Glyph(), board.Count(reversi.Black), board.Count(reversi.White))

	moves := board.LegalMoves()
	if len(moves) == 0 {
		sb.WriteString("No legal moves.\n")
	} else {
		sb.WriteString("Legal moves: ")
		sb.WriteString(strings.Join(lo.Map(moves, func(p reversi.Position, _ int) string {
			return p.String()
		}), ", "))
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// HandleHealth handles the health tool.
func (h *ToolsHandler) HandleHealth(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var sb strings.Builder
	sb.WriteString("Reversi MCP Server Health Status\n")
	sb.WriteString("================================\n")
	if h.version != "" {
		fmt.Fprintf(&sb, "Server Version: %s\n", h.version)
	}

	if h.checker != nil {
		report := h.checker.CheckHealth(ctx)
		fmt.Fprintf(&sb, "Status: %s\n", report.Status)
		for _, c := range report.Components {
			fmt.Fprintf(&sb, "  %s: %s", c.Name, c.Status)
			if c.Message != "" {
				fmt.Fprintf(&sb, " (%s)", c.Message)
			}
			sb.WriteString("\n")
		}
	} else {
		status := health.StatusHealthy
		if err := h.engine.Ping(ctx); err != nil {
			status = health.StatusUnhealthy
		}
		fmt.Fprintf(&sb, "Engine: %s\n", status)
	}

	rl := h.limiter.GetStatus()
	sb.WriteString("\nRate Limiting:\n")
	fmt.Fprintf(&sb, "  Enabled: %v\n", rl["enabled"])
	if enabled, _ := rl["enabled"].(bool); enabled {
		fmt.Fprintf(&sb, "  Requests/min: %d\n", rl["requestsPerMin"])
		fmt.Fprintf(&sb, "  Burst size: %d\n", rl["burstSize"])
		fmt.Fprintf(&sb, "  Active clients: %d\n", rl["activeClients"])
	}

	if h.collector != nil {
		stats, err := json.MarshalIndent(h.collector.GetStats(), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode stats: %w", err)
		}
		sb.WriteString("\nStats:\n")
		sb.Write(stats)
		sb.WriteString("\n")
	}

	return mcp.NewToolResultText(sb.String()), nil
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	return args
}

// parseMoveRequest reads teban and banmen from the tool arguments. banmen
// may also arrive as a JSON string.
func parseMoveRequest(request mcp.CallToolRequest) (*engine.MoveRequest, error) {
	args := arguments(request)
	if args == nil {
		return nil, fmt.Errorf("missing arguments")
	}

	rawMover, ok := args["teban"]
	if !ok {
		return nil, fmt.Errorf("teban is required")
	}
	mover, err := toInt("teban", rawMover)
	if err != nil {
		return nil, err
	}

	rawGrid, ok := args["banmen"]
	if !ok {
		return nil, fmt.Errorf("banmen is required")
	}
	grid, err := toGrid(rawGrid)
	if err != nil {
		return nil, err
	}

	return &engine.MoveRequest{Teban: mover, Banmen: grid}, nil
}

func toInt(name string, v interface{}) (int, error) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return 0, fmt.Errorf("%s must be an integer, got %v", name, n)
		}
		return int(n), nil
	case int:
		return n, nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer: %w", name, err)
		}
		return int(i), nil
	default:
		return 0, fmt.Errorf("%s must be a number, got %T", name, v)
	}
}

func toGrid(v interface{}) ([][]int, error) {
	switch g := v.(type) {
	case [][]int:
		return g, nil
	case string:
		var grid [][]int
		if err := json.Unmarshal([]byte(g), &grid); err != nil {
			return nil, fmt.Errorf("banmen: %w", err)
		}
		return grid, nil
	case []interface{}:
		grid := make([][]int, len(g))
		for r, rawRow := range g {
			row, ok := rawRow.([]interface{})
			if !ok {
				return nil, fmt.Errorf("banmen row %d must be an array, got %T", r, rawRow)
			}
			grid[r] = make([]int, len(row))
			for c, cell := range row {
				n, err := toInt(fmt.Sprintf("banmen[%d][%d]", r, c), cell)
				if err != nil {
					return nil, err
				}
				grid[r][c] = n
			}
		}
		return grid, nil
	default:
		return nil, fmt.Errorf("banmen must be an array of rows, got %T", v)
	}
}
