package scaler

import (
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/danieleschmidt/homomorphic-llm-proxy-sub001/errors"
)

func testConfig() Config {
	return Config{
		TargetCPUPercent:     70,
		QueueLengthThreshold: 10,
		MinReplicas:          1,
		MaxReplicas:          5,
		Cooldown:             50 * time.Millisecond,
	}
}

func highLoad() Metrics {
	return Metrics{CPUUtilization: 90, QueueLength: 15}
}

func lowLoad() Metrics {
	return Metrics{CPUUtilization: 30, QueueLength: 2}
}

func TestScaleUp(t *testing.T) {
	s, err := New(testConfig())
	if err != nil {
		t.Fatalf("Failed to create scaler: %v", err)
	}

	d := s.Evaluate(highLoad())
	if d.Action != ActionScaleUp || d.From != 1 || d.To != 2 {
		t.Fatalf("Expected ScaleUp{1->2}, got %+v", d)
	}
	if d.Reason == "" {
		t.Error("Expected decision to carry a reason")
	}

	if err := s.Apply(d); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if s.CurrentReplicas() != 2 {
		t.Errorf("Expected 2 replicas after apply, got %d", s.CurrentReplicas())
	}
}

func TestScaleDown(t *testing.T) {
	s, err := New(testConfig())
	if err != nil {
		t.Fatalf("Failed to create scaler: %v", err)
	}

	// Move to 2 replicas first
	if err := s.Apply(Decision{Action: ActionScaleUp, From: 1, To: 2}); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	time.Sleep(60 * time.Millisecond)

	d := s.Evaluate(lowLoad())
	if d.Action != ActionScaleDown || d.From != 2 || d.To != 1 {
		t.Fatalf("Expected ScaleDown{2->1}, got %+v", d)
	}
	if err := s.Apply(d); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if s.CurrentReplicas() != 1 {
		t.Errorf("Expected 1 replica after apply, got %d", s.CurrentReplicas())
	}
}

func TestCooldown(t *testing.T) {
	s, _ := New(testConfig())

	d := s.Evaluate(highLoad())
	if err := s.Apply(d); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	// Identical high load during cooldown holds
	if d := s.Evaluate(highLoad()); d.Action != ActionNone {
		t.Errorf("Expected NoAction during cooldown, got %+v", d)
	}

	time.Sleep(60 * time.Millisecond)

	if d := s.Evaluate(highLoad()); d.Action != ActionScaleUp {
		t.Errorf("Expected ScaleUp after cooldown, got %+v", d)
	}
}

func TestBounds(t *testing.T) {
	config := testConfig()
	config.MaxReplicas = 2
	s, _ := New(config)

	_ = s.Apply(Decision{Action: ActionScaleUp, From: 1, To: 2})
	time.Sleep(60 * time.Millisecond)

	// At max, high load holds
	if d := s.Evaluate(highLoad()); d.Action != ActionNone {
		t.Errorf("Expected NoAction at max replicas, got %+v", d)
	}

	// At min, low load holds
	s2, _ := New(config)
	if d := s2.Evaluate(lowLoad()); d.Action != ActionNone {
		t.Errorf("Expected NoAction at min replicas, got %+v", d)
	}
}

func TestApplyRejectsOutOfBounds(t *testing.T) {
	s, _ := New(testConfig())

	err := s.Apply(Decision{Action: ActionScaleUp, From: 5, To: 6})
	if !stderrors.Is(err, errors.ErrBoundsViolation) {
		t.Errorf("Expected ErrBoundsViolation, got %v", err)
	}
	if s.CurrentReplicas() != 1 {
		t.Errorf("Expected replicas unchanged after rejected apply, got %d", s.CurrentReplicas())
	}

	err = s.Apply(Decision{Action: ActionScaleDown, From: 1, To: 0})
	if !stderrors.Is(err, errors.ErrBoundsViolation) {
		t.Errorf("Expected ErrBoundsViolation, got %v", err)
	}

	// NoAction is always fine
	if err := s.Apply(Decision{Action: ActionNone}); err != nil {
		t.Errorf("Expected NoAction apply to succeed, got %v", err)
	}
}

func TestDerivedThresholds(t *testing.T) {
	s, _ := New(testConfig())

	// Up threshold defaults to 1.2x target (84 for target 70)
	if d := s.Evaluate(Metrics{CPUUtilization: 85, QueueLength: 0}); d.Action != ActionScaleUp {
		t.Errorf("Expected CPU 85 to cross derived up threshold, got %+v", d)
	}
	if d := s.Evaluate(Metrics{CPUUtilization: 80, QueueLength: 0}); d.Action != ActionNone {
		t.Errorf("Expected CPU 80 to stay below derived up threshold, got %+v", d)
	}
}

func TestExplicitThresholds(t *testing.T) {
	config := testConfig()
	config.ScaleUpThreshold = 95
	s, _ := New(config)

	if d := s.Evaluate(Metrics{CPUUtilization: 90, QueueLength: 0}); d.Action != ActionNone {
		t.Errorf("Expected explicit threshold to override derived one, got %+v", d)
	}
}

func TestSignalPolicyAll(t *testing.T) {
	config := testConfig()
	config.SignalPolicy = PolicyAll
	s, _ := New(config)

	// CPU high but queue low: policy all holds
	if d := s.Evaluate(Metrics{CPUUtilization: 90, QueueLength: 1}); d.Action != ActionNone {
		t.Errorf("Expected NoAction with one signal under policy all, got %+v", d)
	}
	if d := s.Evaluate(highLoad()); d.Action != ActionScaleUp {
		t.Errorf("Expected ScaleUp with both signals under policy all, got %+v", d)
	}
}

func TestScaleDownNeedsQuietQueue(t *testing.T) {
	s, _ := New(testConfig())
	_ = s.Apply(Decision{Action: ActionScaleUp, From: 1, To: 2})
	time.Sleep(60 * time.Millisecond)

	// CPU low but queue at half the threshold: hold
	if d := s.Evaluate(Metrics{CPUUtilization: 30, QueueLength: 5}); d.Action != ActionNone {
		t.Errorf("Expected NoAction with busy queue, got %+v", d)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"default valid", func(*Config) {}, false},
		{"zero target", func(c *Config) { c.TargetCPUPercent = 0 }, true},
		{"target above 100", func(c *Config) { c.TargetCPUPercent = 120 }, true},
		{"zero queue threshold", func(c *Config) { c.QueueLengthThreshold = 0 }, true},
		{"zero min", func(c *Config) { c.MinReplicas = 0 }, true},
		{"max below min", func(c *Config) { c.MaxReplicas = 0 }, true},
		{"zero cooldown", func(c *Config) { c.Cooldown = 0 }, true},
		{"bad policy", func(c *Config) { c.SignalPolicy = "sometimes" }, true},
		{"policy all", func(c *Config) { c.SignalPolicy = PolicyAll }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(&config)
			err := config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %t", err, tt.wantErr)
			}
		})
	}
}

func TestConcurrentEvaluateApply(t *testing.T) {
	config := testConfig()
	config.MaxReplicas = 50
	config.Cooldown = time.Nanosecond
	s, _ := New(config)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				d := s.Evaluate(highLoad())
				_ = s.Apply(d)
			}
		}()
	}
	wg.Wait()

	got := s.CurrentReplicas()
	if got < config.MinReplicas || got > config.MaxReplicas {
		t.Errorf("Replicas %d escaped bounds under concurrency", got)
	}
}
