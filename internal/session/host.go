// Package session hosts the per-session command queues: opening a session
// wires a debugger driver and recovery service to a fresh queue service,
// and closing one disposes it. Sessions are independent; work is parallel
// across them and serialized within each.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/npratt/debugq/internal/config"
	"github.com/npratt/debugq/internal/debugger"
	"github.com/npratt/debugq/internal/events"
	"github.com/npratt/debugq/internal/queue"
)

// Host errors.
var (
	ErrHostClosed     = errors.New("session host closed")
	ErrUnknownSession = errors.New("unknown session")
)

// Factory creates the external collaborators for a new session.
type Factory interface {
	NewSession(sessionID string) (debugger.Driver, debugger.RecoveryService, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func(sessionID string) (debugger.Driver, debugger.RecoveryService, error)

// NewSession calls the function.
func (f FactoryFunc) NewSession(sessionID string) (debugger.Driver, debugger.RecoveryService, error) {
	return f(sessionID)
}

type sessionEntry struct {
	svc      *queue.Service
	recovery debugger.RecoveryService
}

// Host maps session ids to their queue services.
type Host struct {
	cfg     *config.Config
	factory Factory
	router  *events.Router
	logger  *slog.Logger

	mu       sync.Mutex
	sessions map[string]*sessionEntry
	closed   bool
}

// NewHost creates an empty Host.
func NewHost(cfg *config.Config, factory Factory, router *events.Router, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.Default()
	}
	return &Host{
		cfg:      cfg,
		factory:  factory,
		router:   router,
		logger:   logger,
		sessions: make(map[string]*sessionEntry),
	}
}

// Open returns the queue for a session, creating it on first use.
func (h *Host) Open(sessionID string) (*queue.Service, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, queue.ErrEmptySessionID
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHostClosed
	}
	if entry, ok := h.sessions[sessionID]; ok {
		return entry.svc, nil
	}

	driver, recovery, err := h.factory.NewSession(sessionID)
	if err != nil {
		return nil, fmt.Errorf("create session %s: %w", sessionID, err)
	}

	svc, err := queue.New(sessionID, h.cfg, driver, recovery, h.router, h.logger)
	if err != nil {
		return nil, err
	}

	h.sessions[sessionID] = &sessionEntry{svc: svc, recovery: recovery}
	h.logger.Info("session opened", "session", sessionID)
	return svc, nil
}

// Get returns an already-open session's queue.
func (h *Host) Get(sessionID string) (*queue.Service, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	entry, ok := h.sessions[sessionID]
	if !ok {
		return nil, false
	}
	return entry.svc, true
}

// Healthy probes the session's recovery collaborator.
func (h *Host) Healthy(sessionID string) bool {
	h.mu.Lock()
	entry, ok := h.sessions[sessionID]
	h.mu.Unlock()
	if !ok || entry.recovery == nil {
		return false
	}
	return entry.recovery.IsSessionHealthy()
}

// Close disposes one session and removes it from the host.
func (h *Host) Close(sessionID string) error {
	h.mu.Lock()
	entry, ok := h.sessions[sessionID]
	if ok {
		delete(h.sessions, sessionID)
	}
	h.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}

	entry.svc.Dispose()
	h.logger.Info("session closed", "session", sessionID)
	return nil
}

// CloseAll disposes every session in parallel and marks the host closed.
// Idempotent; later Open calls fail with ErrHostClosed.
func (h *Host) CloseAll() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	entries := make([]*sessionEntry, 0, len(h.sessions))
	for _, entry := range h.sessions {
		entries = append(entries, entry)
	}
	h.sessions = make(map[string]*sessionEntry)
	h.mu.Unlock()

	var g errgroup.Group
	for _, entry := range entries {
		g.Go(func() error {
			entry.svc.Dispose()
			return nil
		})
	}
	return g.Wait()
}

// Sessions returns a sorted snapshot of open session ids.
func (h *Host) Sessions() []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	ids := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
