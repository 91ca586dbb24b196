package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync/atomic"
	"testing"
	"time"
)

type blockingService struct {
	name    string
	started atomic.Bool
	stopped atomic.Bool
	stopCh  chan struct{}
}

func newBlockingService(name string) *blockingService {
	return &blockingService{name: name, stopCh: make(chan struct{})}
}

func (s *blockingService) Name() string { return s.name }

func (s *blockingService) Start(ctx context.Context) error {
	s.started.Store(true)
	select {
	case <-ctx.Done():
	case <-s.stopCh:
	}
	return nil
}

func (s *blockingService) Stop(context.Context) error {
	if s.stopped.CompareAndSwap(false, true) {
		close(s.stopCh)
	}
	return nil
}

type failingService struct{}

func (failingService) Name() string                { return "failing" }
func (failingService) Start(context.Context) error { return errors.New("listen failed") }
func (failingService) Stop(context.Context) error  { return nil }

func TestRunnerStopsAllServicesOnCancel(t *testing.T) {
	a := newBlockingService("http")
	b := newBlockingService("session-watcher")
	runner := NewRunner(a, b)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runner.Run(ctx, time.Second, nil)
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("cancel should end cleanly, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("runner did not stop")
	}
	if !a.stopped.Load() || !b.stopped.Load() {
		t.Fatalf("expected both services stopped")
	}
}

func TestRunnerReturnsServiceError(t *testing.T) {
	watcher := newBlockingService("session-watcher")
	runner := NewRunner(failingService{}, watcher)

	err := runner.Run(context.Background(), time.Second, nil)
	if err == nil || err.Error() != "listen failed" {
		t.Fatalf("expected listen failure, got %v", err)
	}
	if !watcher.stopped.Load() {
		t.Fatalf("remaining services must be stopped")
	}
}

func TestRunnerWithoutServices(t *testing.T) {
	if err := NewRunner().Run(context.Background(), time.Second, nil); err == nil {
		t.Fatalf("expected error for empty runner")
	}
}

type recordingService struct {
	*blockingService
	events *[]string
}

func (s recordingService) Start(ctx context.Context) error {
	*s.events = append(*s.events, "start:"+s.name)
	return s.blockingService.Start(ctx)
}

func TestRunnerOrdersStepsAroundServices(t *testing.T) {
	var events []string
	svc := recordingService{blockingService: newBlockingService("http"), events: &events}
	ctx, cancel := context.WithCancel(context.Background())

	runner := NewRunner(svc).
		BeforeStart("hydrate", func(context.Context) error {
			events = append(events, "hydrate")
			return nil
		}).
		AfterStop("state_summary", func(context.Context) error {
			events = append(events, "summary")
			return nil
		})

	done := make(chan error, 1)
	go func() {
		done <- runner.Run(ctx, time.Second, nil)
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("cancel should end cleanly, got %v", err)
	}

	want := []string{"hydrate", "start:http", "summary"}
	if len(events) != len(want) {
		t.Fatalf("events want %v got %v", want, events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("events want %v got %v", want, events)
		}
	}
}

func TestRunnerStartupFailureSkipsServices(t *testing.T) {
	svc := newBlockingService("http")
	runner := NewRunner(svc).BeforeStart("hydrate", func(context.Context) error {
		return errors.New("store unavailable")
	})

	err := runner.Run(context.Background(), time.Second, nil)
	if err == nil || err.Error() != "startup step hydrate: store unavailable" {
		t.Fatalf("expected startup failure, got %v", err)
	}
	if svc.started.Load() {
		t.Fatalf("services must not start after a failed startup step")
	}
}

func TestHTTPServiceServesUntilStopped(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	svc := NewHTTPService("127.0.0.1:0", handler)

	done := make(chan error, 1)
	go func() { done <- svc.Start(context.Background()) }()

	select {
	case <-svc.Ready():
	case err := <-done:
		t.Fatalf("http service exited early: %v", err)
	case <-time.After(time.Second):
		t.Fatalf("http service not ready")
	}

	resp, err := http.Get("http://" + svc.Addr() + "/")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if string(body) != "ok" {
		t.Fatalf("unexpected body %q", body)
	}

	if err := svc.Stop(context.Background()); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if err := svc.Stop(context.Background()); err != nil {
		t.Fatalf("second stop failed: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("start should return nil after stop, got %v", err)
	}
}

func TestValidMode(t *testing.T) {
	for _, mode := range []string{"", ModeAll, ModeAPI, ModeWatcher} {
		if !ValidMode(mode) {
			t.Fatalf("mode %q should be valid", mode)
		}
	}
	if ValidMode("worker") {
		t.Fatalf("unknown mode should be rejected")
	}
}
