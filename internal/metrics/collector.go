package metrics

import (
	"sync"
	"time"

	"github.com/samber/lo"
)

// keepDurations bounds the per-tool duration window.
const keepDurations = 100

// Collector collects in-process metrics for the stats tool.
type Collector struct {
	mu sync.RWMutex

	// Tool metrics
	toolCalls     map[string]int64
	toolErrors    map[string]int64
	toolDurations map[string][]time.Duration

	// Rate limit metrics
	rateLimitHits  int64
	rateLimitTotal int64

	// Search metrics
	searches        int64
	searchesNoMove  int64
	nodes           int64
	searchSecs      float64
	invalidRequests map[string]int64
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		toolCalls:       make(map[string]int64),
		toolErrors:      make(map[string]int64),
		toolDurations:   make(map[string][]time.Duration),
		invalidRequests: make(map[string]int64),
	}
}

// RecordToolCall records a tool call with its status and duration.
func (c *Collector) RecordToolCall(tool, status string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.toolCalls[tool]++

	if status == "error" {
		c.toolErrors[tool]++
	}

	if status == "rate_limited" {
		c.rateLimitHits++
	}

	c.rateLimitTotal++

	durations := append(c.toolDurations[tool], duration)
	if len(durations) > keepDurations {
		durations = durations[1:]
	}
	c.toolDurations[tool] = durations
}

// RecordSearch records one completed search.
func (c *Collector) RecordSearch(found bool, nodes int, durationSecs float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.searches++
	if !found {
		c.searchesNoMove++
	}
	c.nodes += int64(nodes)
	c.searchSecs += durationSecs
}

// RecordInvalidRequest records a request rejected before the search.
func (c *Collector) RecordInvalidRequest(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidRequests[reason]++
}

// GetStats returns current metrics statistics.
func (c *Collector) GetStats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := make(map[string]interface{})

	toolStats := make(map[string]interface{})
	for tool, calls := range c.toolCalls {
		errors := c.toolErrors[tool]
		errorRate := float64(0)
		if calls > 0 {
			errorRate = float64(errors) / float64(calls)
		}

		durations := c.toolDurations[tool]
		avgDuration := time.Duration(0)
		if len(durations) > 0 {
			avgDuration = lo.Sum(durations) / time.Duration(len(durations))
		}

		toolStats[tool] = map[string]interface{}{
			"calls":           calls,
			"errors":          errors,
			"error_rate":      errorRate,
			"avg_duration_ms": avgDuration.Milliseconds(),
		}
	}
	stats["tools"] = toolStats

	rateLimitRate := float64(0)
	if c.rateLimitTotal > 0 {
		rateLimitRate = float64(c.rateLimitHits) / float64(c.rateLimitTotal)
	}
	stats["rate_limits"] = map[string]interface{}{
		"hits":  c.rateLimitHits,
		"total": c.rateLimitTotal,
		"rate":  rateLimitRate,
	}

	avgNodes := float64(0)
	avgMillis := float64(0)
	if c.searches > 0 {
		avgNodes = float64(c.nodes) / float64(c.searches)
		avgMillis = c.searchSecs * 1000 / float64(c.searches)
	}
	stats["searches"] = map[string]interface{}{
		"total":           c.searches,
		"no_move":         c.searchesNoMove,
		"nodes":           c.nodes,
		"avg_nodes":       avgNodes,
		"avg_duration_ms": avgMillis,
		"invalid":         lo.Assign(c.invalidRequests),
	}

	return stats
}

// Reset clears all metrics.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.toolCalls = make(map[string]int64)
	c.toolErrors = make(map[string]int64)
	c.toolDurations = make(map[string][]time.Duration)
	c.rateLimitHits = 0
	c.rateLimitTotal = 0
	c.searches = 0
	c.searchesNoMove = 0
	c.nodes = 0
	c.searchSecs = 0
	c.invalidRequests = make(map[string]int64)
}

// SearchRecorder receives search statistics.
type SearchRecorder interface {
	RecordSearch(found bool, nodes int, durationSecs float64)
	RecordInvalidRequest(reason string)
}

// Recorders fans search statistics out to every member.
type Recorders []SearchRecorder

// RecordSearch implements SearchRecorder.
func (rs Recorders) RecordSearch(found bool, nodes int, durationSecs float64) {
	for _, r := range rs {
		r.RecordSearch(found, nodes, durationSecs)
	}
}

// RecordInvalidRequest implements SearchRecorder.
func (rs Recorders) RecordInvalidRequest(reason string) {
	for _, r := range rs {
		r.RecordInvalidRequest(reason)
	}
}

var (
	_ SearchRecorder = (*Collector)(nil)
	_ SearchRecorder = (*PrometheusCollector)(nil)
	_ SearchRecorder = Recorders(nil)
)
