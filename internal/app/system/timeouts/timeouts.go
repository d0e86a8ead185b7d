// Package timeouts provides centralized timeout values for store and handler
// operations.
//
// Timeouts are set at startup with Configure (from app config). If not
// configured, the defaults below are used.
//
// Guidelines for choosing a timeout:
//   - Ping: health checks and connectivity verification
//   - Store: a single document read or write
//   - Request: a whole HTTP request that makes several store calls
//   - Sweep: one full reconciler run over every user and organization
package timeouts

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Default timeout values (used if Configure is not called).
const (
	DefaultPing    = 2 * time.Second
	DefaultStore   = 5 * time.Second
	DefaultRequest = 15 * time.Second
	DefaultSweep   = 10 * time.Minute
)

var mu sync.RWMutex

var (
	ping    = DefaultPing
	store   = DefaultStore
	request = DefaultRequest
	sweep   = DefaultSweep
)

// Ping returns the timeout for health checks.
func Ping() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return ping
}

// Store returns the per-operation deadline for a single store call.
// Operations that exceed it fail as a store timeout and are safe to retry.
func Store() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return store
}

// Request returns the timeout for a complete API request.
func Request() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return request
}

// Sweep returns the timeout for one reconciler run.
func Sweep() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return sweep
}

// Config holds timeout configuration values.
// Zero values are ignored (defaults are kept).
type Config struct {
	Ping    time.Duration
	Store   time.Duration
	Request time.Duration
	Sweep   time.Duration
}

// Configure sets custom timeout values. Zero values in the config are
// ignored, keeping the current (or default) values. Call it during startup
// before handlers are registered.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Ping > 0 {
		ping = cfg.Ping
	}
	if cfg.Store > 0 {
		store = cfg.Store
	}
	if cfg.Request > 0 {
		request = cfg.Request
	}
	if cfg.Sweep > 0 {
		sweep = cfg.Sweep
	}
}

// Reset restores all timeouts to their default values.
// Useful for testing.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	ping = DefaultPing
	store = DefaultStore
	request = DefaultRequest
	sweep = DefaultSweep
}

// Current returns the current timeout configuration.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return Config{Ping: ping, Store: store, Request: request, Sweep: sweep}
}

// WithTimeout creates a context with timeout and returns a cancel function
// that logs a warning if the deadline was hit.
//
// Example:
//
//	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Request(), h.Log, "join organization")
//	defer cancel()
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
