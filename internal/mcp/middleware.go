package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/dmmcquay/reversi-mcp/internal/logging"
	"github.com/dmmcquay/reversi-mcp/internal/metrics"
	"github.com/dmmcquay/reversi-mcp/internal/ratelimit"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Middleware wraps MCP tool handlers with rate limiting, metrics and request
// logging.
type Middleware struct {
	logger      logging.ContextLogger
	metrics     *metrics.Collector
	prometheus  *metrics.PrometheusCollector
	rateLimiter *ratelimit.Limiter
}

// NewMiddleware creates a new middleware instance. A nil limiter allows
// every call.
func NewMiddleware(logger logging.ContextLogger, metrics *metrics.Collector, rateLimiter *ratelimit.Limiter) *Middleware {
	return &Middleware{
		logger:      logger,
		metrics:     metrics,
		rateLimiter: rateLimiter,
	}
}

// SetPrometheus also reports tool calls to p.
func (m *Middleware) SetPrometheus(p *metrics.PrometheusCollector) {
	m.prometheus = p
}

// ToolHandler is the function signature for MCP tool handlers.
type ToolHandler = server.ToolHandlerFunc

type clientIDKey struct{}

// ContextWithClientID overrides the client id used for rate limiting.
func ContextWithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientIDKey{}, clientID)
}

// WrapTool wraps a tool handler. Every call gets a correlation id and a
// request id in its context before the handler runs.
func (m *Middleware) WrapTool(toolName string, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		ctx = logging.ContextWithCorrelationID(ctx, logging.GenerateCorrelationID())
		ctx, _ = logging.EnsureRequestID(ctx, "")
		clientID := extractClientID(ctx, request)
		logger := m.logger.WithContext(ctx).WithFields(map[string]interface{}{
			"tool":   toolName,
			"client": clientID,
		})

		logger.Debug("Tool request received", "arguments", request.Params.Arguments)

		allowed, err := m.rateLimiter.Allow(clientID, toolName)
		if m.prometheus != nil {
			m.prometheus.RecordRateLimit(clientID, toolName, !allowed)
		}
		if !allowed {
			logger.Warn("Rate limit exceeded", "error", err)
			m.record(toolName, "rate_limited", time.Since(start))
			return nil, fmt.Errorf("tool %s: %w", toolName, err)
		}

		result, err := handler(ctx, request)

		status := "success"
		if err != nil || (result != nil && result.IsError) {
			status = "error"
			logger.Error("Tool request failed", "error", err, "duration", time.Since(start))
		} else {
			logger.Info("Tool request completed", "duration", time.Since(start))
		}
		m.record(toolName, status, time.Since(start))

		return result, err
	}
}

func (m *Middleware) record(toolName, status string, d time.Duration) {
	if m.metrics != nil {
		m.metrics.RecordToolCall(toolName, status, d)
	}
	if m.prometheus != nil {
		m.prometheus.RecordToolCall(toolName, status, d.Seconds())
	}
}

// extractClientID prefers an explicit context value, then the MCP session,
// then a clientID argument.
func extractClientID(ctx context.Context, request mcp.CallToolRequest) string {
	if clientID, ok := ctx.Value(clientIDKey{}).(string); ok && clientID != "" {
		return clientID
	}

	if session := server.ClientSessionFromContext(ctx); session != nil {
		if id := session.SessionID(); id != "" {
			return id
		}
	}

	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		if clientID, ok := args["clientID"].(string); ok && clientID != "" {
			return clientID
		}
	}

	return "anonymous"
}
