package breaker

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/errors"
	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/metric"
)

var errDownstream = stderrors.New("engine unavailable")

func newTestBreaker(t *testing.T) *Breaker {
	t.Helper()
	b, err := New("test", Config{
		FailureThreshold: 2,
		SuccessThreshold: 2,
		OpenTimeout:      100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Failed to create breaker: %v", err)
	}
	return b
}

func succeed(context.Context) error { return nil }
func fail(context.Context) error    { return errDownstream }

func TestClosedPassesThrough(t *testing.T) {
	b := newTestBreaker(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := b.Do(ctx, succeed); err != nil {
			t.Fatalf("Unexpected error on success %d: %v", i, err)
		}
	}
	if b.State() != StateClosed {
		t.Errorf("Expected closed state after successes, got %s", b.State())
	}
}

func TestErrorPassedThroughUnchanged(t *testing.T) {
	b := newTestBreaker(t)

	err := b.Do(context.Background(), fail)
	if !stderrors.Is(err, errDownstream) {
		t.Errorf("Expected downstream error to pass through, got %v", err)
	}
	if b.State() != StateClosed {
		t.Errorf("Expected closed state below threshold, got %s", b.State())
	}
}

func TestOpensAtFailureThreshold(t *testing.T) {
	b := newTestBreaker(t)
	ctx := context.Background()

	_ = b.Do(ctx, fail)
	_ = b.Do(ctx, fail)

	if b.State() != StateOpen {
		t.Fatalf("Expected open state after 2 failures, got %s", b.State())
	}

	// Rejected without executing the operation
	executed := false
	err := b.Do(ctx, func(context.Context) error {
		executed = true
		return nil
	})
	if !stderrors.Is(err, errors.ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
	if executed {
		t.Error("Expected operation not to execute while open")
	}
	if !errors.IsTransient(err) {
		t.Error("Expected open rejection to classify as transient")
	}
}

func TestRecoveryLifecycle(t *testing.T) {
	b := newTestBreaker(t)
	ctx := context.Background()

	_ = b.Do(ctx, fail)
	_ = b.Do(ctx, fail)
	if b.State() != StateOpen {
		t.Fatalf("Expected open state, got %s", b.State())
	}

	time.Sleep(120 * time.Millisecond)

	// First call after the timeout executes as a trial
	if err := b.Do(ctx, succeed); err != nil {
		t.Fatalf("Expected trial call to execute, got %v", err)
	}
	if b.State() != StateHalfOpen {
		t.Fatalf("Expected half-open after first trial success, got %s", b.State())
	}

	// Second success reaches the success threshold and closes
	if err := b.Do(ctx, succeed); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if b.State() != StateClosed {
		t.Errorf("Expected closed after recovery, got %s", b.State())
	}

	failures, successes := b.Counts()
	if failures != 0 || successes != 0 {
		t.Errorf("Expected counters reset on close, got failures=%d successes=%d", failures, successes)
	}
}

func TestHalfOpenFailureReopens(t *testing.T) {
	b := newTestBreaker(t)
	ctx := context.Background()

	_ = b.Do(ctx, fail)
	_ = b.Do(ctx, fail)
	time.Sleep(120 * time.Millisecond)

	// Trial call fails and re-opens the breaker
	if err := b.Do(ctx, fail); !stderrors.Is(err, errDownstream) {
		t.Fatalf("Expected trial failure to pass through, got %v", err)
	}
	if b.State() != StateOpen {
		t.Fatalf("Expected re-opened state, got %s", b.State())
	}

	if err := b.Do(ctx, succeed); !stderrors.Is(err, errors.ErrCircuitOpen) {
		t.Errorf("Expected immediate rejection after re-open, got %v", err)
	}
}

func TestLazyHalfOpenViaState(t *testing.T) {
	b := newTestBreaker(t)
	ctx := context.Background()

	_ = b.Do(ctx, fail)
	_ = b.Do(ctx, fail)
	time.Sleep(120 * time.Millisecond)

	// Observing state after the timeout also performs the transition
	if b.State() != StateHalfOpen {
		t.Errorf("Expected half-open via State(), got %s", b.State())
	}
}

func TestClosedSuccessDoesNotResetFailures(t *testing.T) {
	b := newTestBreaker(t)
	ctx := context.Background()

	_ = b.Do(ctx, fail)
	_ = b.Do(ctx, succeed)
	_ = b.Do(ctx, fail)

	if b.State() != StateOpen {
		t.Errorf("Expected cumulative failures to open the breaker, got %s", b.State())
	}
}

func TestDoWithResult(t *testing.T) {
	b := newTestBreaker(t)
	ctx := context.Background()

	value, err := DoWithResult(ctx, b, func(context.Context) (string, error) {
		return "ciphertext", nil
	})
	if err != nil || value != "ciphertext" {
		t.Errorf("Expected result passthrough, got value=%q err=%v", value, err)
	}

	_ = b.Do(ctx, fail)
	_ = b.Do(ctx, fail)

	value, err = DoWithResult(ctx, b, func(context.Context) (string, error) {
		return "unreachable", nil
	})
	if !stderrors.Is(err, errors.ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
	if value != "" {
		t.Errorf("Expected zero value on rejection, got %q", value)
	}
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"default valid", DefaultConfig(), false},
		{"zero failure threshold", Config{SuccessThreshold: 1, OpenTimeout: time.Second}, true},
		{"zero success threshold", Config{FailureThreshold: 1, OpenTimeout: time.Second}, true},
		{"zero timeout", Config{FailureThreshold: 1, SuccessThreshold: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %t", err, tt.wantErr)
			}
		})
	}

	if _, err := New("bad", Config{}); err == nil {
		t.Error("Expected New to reject invalid config")
	}
}

func TestConcurrentCalls(t *testing.T) {
	b, err := New("concurrent", Config{
		FailureThreshold: 100,
		SuccessThreshold: 2,
		OpenTimeout:      time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to create breaker: %v", err)
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				op := succeed
				if (g+i)%7 == 0 {
					op = fail
				}
				_ = b.Do(context.Background(), op)
			}
		}(g)
	}
	wg.Wait()

	if b.State() != StateClosed {
		t.Errorf("Expected breaker to stay closed below threshold, got %s", b.State())
	}
}

func TestBreakerMetrics(t *testing.T) {
	registry := metric.NewMetricsRegistry()

	b, err := New("engine", Config{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		OpenTimeout:      time.Minute,
	}, WithMetrics(registry))
	if err != nil {
		t.Fatalf("Failed to create breaker with metrics: %v", err)
	}

	ctx := context.Background()
	_ = b.Do(ctx, fail)    // trips open
	_ = b.Do(ctx, succeed) // rejected

	families, err := registry.PrometheusRegistry().Gather()
	if err != nil {
		t.Fatalf("Failed to gather metrics: %v", err)
	}

	found := map[string]bool{}
	for _, f := range families {
		found[f.GetName()] = true
	}
	for _, want := range []string{
		"fheproxy_breaker_state",
		"fheproxy_breaker_trips_total",
		"fheproxy_breaker_rejections_total",
	} {
		if !found[want] {
			t.Errorf("Expected metric family %s to be registered", want)
		}
	}

	// Same name registers the same metric names and must fail
	if _, err := New("engine", DefaultConfig(), WithMetrics(registry)); err == nil {
		t.Error("Expected duplicate metrics registration to fail")
	}
}

func BenchmarkClosedDo(b *testing.B) {
	br, _ := New(fmt.Sprintf("bench-%d", b.N), DefaultConfig())
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = br.Do(ctx, succeed)
	}
}
