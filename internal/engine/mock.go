package engine

import (
	"context"
	"sync"

	"github.com/dmmcquay/reversi-mcp/internal/reversi"
)

// MockEngine is a mock implementation of EngineInterface for testing.
type MockEngine struct {
	mu              sync.Mutex
	decideResp      *MoveResponse
	decideErr       error
	pingErr         error
	decideCallCount int
	pingCallCount   int
}

// NewMockEngine creates a mock that answers NoMove.
func NewMockEngine() *MockEngine {
	resp := NoMove
	return &MockEngine{decideResp: &resp}
}

// SetDecideResponse sets what Decide, LegalMoves and Analyze return.
func (m *MockEngine) SetDecideResponse(resp *MoveResponse, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decideResp = resp
	m.decideErr = err
}

// SetPingError sets the error to return from Ping.
func (m *MockEngine) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingErr = err
}

// GetDecideCallCount returns the number of times Decide was called.
func (m *MockEngine) GetDecideCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.decideCallCount
}

// GetPingCallCount returns the number of times Ping was called.
func (m *MockEngine) GetPingCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pingCallCount
}

// Decide implements EngineInterface.
func (m *MockEngine) Decide(ctx context.Context, req *MoveRequest) (*MoveResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decideCallCount++
	return m.decideResp, m.decideErr
}

// LegalMoves implements EngineInterface.
func (m *MockEngine) LegalMoves(ctx context.Context, req *MoveRequest) ([]MoveResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.decideErr != nil {
		return nil, m.decideErr
	}
	if m.decideResp == nil || m.decideResp.IsPass() {
		return []MoveResponse{}, nil
	}
	return []MoveResponse{*m.decideResp}, nil
}

// Analyze implements EngineInterface.
func (m *MockEngine) Analyze(ctx context.Context, req *MoveRequest, depth int) (*Analysis, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.decideErr != nil {
		return nil, m.decideErr
	}
	best := NoMove
	if m.decideResp != nil {
		best = *m.decideResp
	}
	return &Analysis{Mover: "black", Depth: depth, Best: best}, nil
}

// Board implements EngineInterface.
func (m *MockEngine) Board(ctx context.Context, req *MoveRequest) (reversi.Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.decideErr != nil {
		return reversi.Board{}, m.decideErr
	}
	return reversi.InitialBoard(), nil
}

// Ping implements EngineInterface.
func (m *MockEngine) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingCallCount++
	return m.pingErr
}
