package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/dmmcquay/reversi-mcp/internal/logging"
)

// Status represents the health status of a component.
type Status string

const (
	// StatusHealthy indicates the component is healthy.
	StatusHealthy Status = "healthy"
	// StatusUnhealthy indicates the component is unhealthy.
	StatusUnhealthy Status = "unhealthy"
)

// DefaultCheckTimeout bounds each registered check.
const DefaultCheckTimeout = 5 * time.Second

// Check is one component self-test.
type Check func(ctx context.Context) error

// Pinger is anything with a Ping self-test, such as the engine.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingCheck adapts a Pinger to a Check.
func PingCheck(p Pinger) Check {
	return p.Ping
}

// Observer is told the outcome of every check run.
type Observer func(name string, err error)

// Component represents a system component with health status.
type Component struct {
	Name        string    `json:"name"`
	Status      Status    `json:"status"`
	Message     string    `json:"message,omitempty"`
	LastChecked time.Time `json:"last_checked"`
	DurationMs  int64     `json:"duration_ms"`
}

// Response represents the health check response.
type Response struct {
	Status     Status      `json:"status"`
	Timestamp  time.Time   `json:"timestamp"`
	Uptime     string      `json:"uptime,omitempty"`
	Components []Component `json:"components,omitempty"`
	Version    string      `json:"version,omitempty"`
	GitCommit  string      `json:"git_commit,omitempty"`
}

// Checker runs the registered checks.
type Checker struct {
	logger    logging.ContextLogger
	checks    map[string]Check
	observers []Observer
	timeout   time.Duration
	started   time.Time
	mu        sync.RWMutex
	version   string
	gitCommit string
}

// NewChecker creates a new health checker.
func NewChecker(logger logging.ContextLogger, version, gitCommit string) *Checker {
	return &Checker{
		logger:    logger,
		checks:    make(map[string]Check),
		timeout:   DefaultCheckTimeout,
		started:   time.Now(),
		version:   version,
		gitCommit: gitCommit,
	}
}

// RegisterCheck registers a health check for a component.
func (c *Checker) RegisterCheck(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Observe adds an observer.
func (c *Checker) Observe(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// SetCheckTimeout changes the per-check timeout.
func (c *Checker) SetCheckTimeout(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = d
}

// CheckHealth runs every check in parallel. Components are sorted by name.
func (c *Checker) CheckHealth(ctx context.Context) Response {
	c.mu.RLock()
	checks := make(map[string]Check, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	observers := append([]Observer(nil), c.observers...)
	timeout := c.timeout
	c.mu.RUnlock()

	response := c.baseResponse()
	response.Components = make([]Component, 0, len(checks))

	results := make(chan Component, len(checks))
	var wg sync.WaitGroup
	for name, check := range checks {
		wg.Add(1)
		go func(name string, check Check) {
			defer wg.Done()
			results <- c.run(ctx, name, check, timeout, observers)
		}(name, check)
	}
	wg.Wait()
	close(results)

	for comp := range results {
		response.Components = append(response.Components, comp)
		if comp.Status == StatusUnhealthy {
			response.Status = StatusUnhealthy
		}
	}
	sort.Slice(response.Components, func(i, j int) bool {
		return response.Components[i].Name < response.Components[j].Name
	})

	return response
}

func (c *Checker) run(ctx context.Context, name string, check Check, timeout time.Duration, observers []Observer) Component {
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := check(checkCtx)
	comp := Component{
		Name:        name,
		Status:      StatusHealthy,
		LastChecked: start.UTC(),
		DurationMs:  time.Since(start).Milliseconds(),
	}
	if err != nil {
		comp.Status = StatusUnhealthy
		comp.Message = err.Error()
		c.logger.WithContext(ctx).WithField("component", name).Error("Health check failed", "error", err)
	}
	for _, o := range observers {
		o(name, err)
	}
	return comp
}

func (c *Checker) baseResponse() Response {
	return Response{
		Status:    StatusHealthy,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(c.started).Round(time.Second).String(),
		Version:   c.version,
		GitCommit: c.gitCommit,
	}
}

// LivenessHandler answers healthy whenever the process can serve requests.
func (c *Checker) LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.write(w, r, http.StatusOK, c.baseResponse())
	}
}

// ReadinessHandler runs the checks and answers 503 if any fail.
func (c *Checker) ReadinessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if _, ok := logging.CorrelationIDFromContext(ctx); !ok {
			ctx = logging.ContextWithCorrelationID(ctx, logging.GenerateCorrelationID())
		}
		c.logger.WithContext(ctx).Debug("Performing readiness check")

		response := c.CheckHealth(ctx)
		status := http.StatusOK
		if response.Status != StatusHealthy {
			status = http.StatusServiceUnavailable
		}
		c.write(w, r.WithContext(ctx), status, response)
	}
}

func (c *Checker) write(w http.ResponseWriter, r *http.Request, status int, response Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		c.logger.WithContext(r.Context()).Error("Failed to encode health response", "error", err)
	}
}
