package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/npratt/debugq/internal/config"
	"github.com/npratt/debugq/internal/debugger"
	"github.com/npratt/debugq/internal/queue"
	"github.com/npratt/debugq/internal/testutil"
)

func testHost(t *testing.T) (*Host, *testutil.MockDebugger, *testutil.MockRecovery) {
	t.Helper()

	dbg := testutil.NewMockDebugger()
	rec := testutil.NewMockRecovery()

	cfg := config.Default()
	cfg.Shutdown.Shutdown = 2 * time.Second
	cfg.Shutdown.Force = 500 * time.Millisecond

	h := NewHost(cfg, FactoryFunc(func(sessionID string) (debugger.Driver, debugger.RecoveryService, error) {
		return dbg, rec, nil
	}), nil, nil)

	t.Cleanup(func() { _ = h.CloseAll() })
	return h, dbg, rec
}

func TestOpen_Idempotent(t *testing.T) {
	h, _, _ := testHost(t)

	first, err := h.Open("s1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	second, err := h.Open("s1")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if first != second {
		t.Error("Open must return the same queue for the same session id")
	}

	if _, err := h.Open("   "); !errors.Is(err, queue.ErrEmptySessionID) {
		t.Errorf("expected ErrEmptySessionID, got %v", err)
	}
}

func TestOpen_FactoryError(t *testing.T) {
	h := NewHost(config.Default(), FactoryFunc(func(string) (debugger.Driver, debugger.RecoveryService, error) {
		return nil, nil, errors.New("no dump loaded")
	}), nil, nil)
	t.Cleanup(func() { _ = h.CloseAll() })

	if _, err := h.Open("s1"); err == nil {
		t.Fatal("expected factory error to propagate")
	}
}

func TestGetAndSessions(t *testing.T) {
	h, _, _ := testHost(t)

	if _, ok := h.Get("s1"); ok {
		t.Error("Get before Open must miss")
	}

	if _, err := h.Open("s2"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := h.Open("s1"); err != nil {
		t.Fatalf("open: %v", err)
	}

	if _, ok := h.Get("s1"); !ok {
		t.Error("Get after Open must hit")
	}

	ids := h.Sessions()
	if len(ids) != 2 || ids[0] != "s1" || ids[1] != "s2" {
		t.Errorf("Sessions() = %v, want [s1 s2]", ids)
	}
}

func TestSessionsExecuteIndependently(t *testing.T) {
	h, dbg, _ := testHost(t)
	dbg.Responses["k"] = "stack-dump"

	s1, err := h.Open("s1")
	if err != nil {
		t.Fatalf("open s1: %v", err)
	}
	s2, err := h.Open("s2")
	if err != nil {
		t.Fatalf("open s2: %v", err)
	}

	id1, err := s1.Submit("k")
	if err != nil {
		t.Fatalf("submit s1: %v", err)
	}
	id2, err := s2.Submit("k")
	if err != nil {
		t.Fatalf("submit s2: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, pair := range []struct {
		svc *queue.Service
		id  string
	}{{s1, id1}, {s2, id2}} {
		result, err := pair.svc.AwaitResult(ctx, pair.id)
		if err != nil || result != "stack-dump" {
			t.Errorf("await %s: (%q, %v)", pair.id, result, err)
		}
	}
}

func TestClose_DisposesSession(t *testing.T) {
	h, _, _ := testHost(t)

	svc, err := h.Open("s1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := h.Close("s1"); err != nil {
		t.Fatalf("close: %v", err)
	}

	if _, err := svc.Submit("k"); !errors.Is(err, queue.ErrDisposed) {
		t.Errorf("submit after Close error = %v, want ErrDisposed", err)
	}
	if err := h.Close("s1"); !errors.Is(err, ErrUnknownSession) {
		t.Errorf("second close error = %v, want ErrUnknownSession", err)
	}
}

func TestCloseAll(t *testing.T) {
	h, _, _ := testHost(t)

	s1, _ := h.Open("s1")
	s2, _ := h.Open("s2")

	if err := h.CloseAll(); err != nil {
		t.Fatalf("close all: %v", err)
	}

	for _, svc := range []*queue.Service{s1, s2} {
		if _, err := svc.Submit("k"); !errors.Is(err, queue.ErrDisposed) {
			t.Errorf("submit after CloseAll error = %v, want ErrDisposed", err)
		}
	}
	if _, err := h.Open("s3"); !errors.Is(err, ErrHostClosed) {
		t.Errorf("open after CloseAll error = %v, want ErrHostClosed", err)
	}

	// Idempotent.
	if err := h.CloseAll(); err != nil {
		t.Errorf("second CloseAll: %v", err)
	}
}

func TestHealthy(t *testing.T) {
	h, _, rec := testHost(t)

	if h.Healthy("s1") {
		t.Error("unknown session must not report healthy")
	}
	if _, err := h.Open("s1"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if !h.Healthy("s1") {
		t.Error("expected healthy session")
	}
	rec.Unhealthy = true
	if h.Healthy("s1") {
		t.Error("expected unhealthy session")
	}
}
