package statemachine

import (
	"errors"
	"testing"

	"github.com/felixgeelhaar/querykit/domain/entry"
)

func TestNewContext(t *testing.T) {
	t.Parallel()

	ctx := NewContext("probes.create")

	if ctx == nil {
		t.Fatal("NewContext() returned nil")
	}
	if ctx.Name != "probes.create" {
		t.Errorf("Context.Name = %s, want probes.create", ctx.Name)
	}
	if ctx.Current != entry.StatusIdle {
		t.Errorf("Context.Current = %s, want idle", ctx.Current)
	}
	if len(ctx.History) != 0 {
		t.Errorf("Context.History len = %d, want 0", len(ctx.History))
	}
}

func TestNewLifecycleMachine(t *testing.T) {
	t.Parallel()

	machine, err := NewLifecycleMachine()
	if err != nil {
		t.Fatalf("NewLifecycleMachine() error = %v", err)
	}
	if machine == nil {
		t.Fatal("NewLifecycleMachine() returned nil machine")
	}
}

func TestEventForTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status   entry.Status
		expected string
	}{
		{entry.StatusLoading, "START"},
		{entry.StatusSuccess, "RESOLVE"},
		{entry.StatusError, "REJECT"},
		{entry.StatusIdle, "RESET"},
		{entry.Status("custom"), "custom"},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			t.Parallel()

			event := EventForTransition(tt.status)
			if string(event) != tt.expected {
				t.Errorf("EventForTransition(%s) = %s, want %s", tt.status, event, tt.expected)
			}
		})
	}
}

func TestStateConstants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		machineState string
		entryStatus  string
	}{
		{string(stateIdle), string(entry.StatusIdle)},
		{string(stateLoading), string(entry.StatusLoading)},
		{string(stateSuccess), string(entry.StatusSuccess)},
		{string(stateError), string(entry.StatusError)},
	}

	for _, tt := range tests {
		t.Run(tt.machineState, func(t *testing.T) {
			t.Parallel()

			if tt.machineState != tt.entryStatus {
				t.Errorf("Machine state %s does not match entry status %s", tt.machineState, tt.entryStatus)
			}
		})
	}
}

func TestStatusFromMachine(t *testing.T) {
	t.Parallel()

	if got := StatusFromMachine(stateLoading); got != entry.StatusLoading {
		t.Errorf("StatusFromMachine(loading) = %s, want loading", got)
	}
}

func newStartedInterpreter(t *testing.T, name string) *Interpreter {
	t.Helper()

	machine, err := NewLifecycleMachine()
	if err != nil {
		t.Fatalf("NewLifecycleMachine() error = %v", err)
	}

	interp := NewInterpreter(machine, NewContext(name))
	interp.Start()
	return interp
}

func TestInterpreter_Start(t *testing.T) {
	t.Parallel()

	interp := newStartedInterpreter(t, "probes.list")

	if interp.Status() != entry.StatusIdle {
		t.Errorf("Initial status = %s, want idle", interp.Status())
	}
	if !interp.Matches(entry.StatusIdle) {
		t.Error("Matches(idle) = false after start")
	}
}

func TestInterpreter_FullCycle(t *testing.T) {
	t.Parallel()

	interp := newStartedInterpreter(t, "probes.create")

	steps := []struct {
		to     entry.Status
		reason string
	}{
		{entry.StatusLoading, "first fetch"},
		{entry.StatusSuccess, "applied"},
		{entry.StatusLoading, "refetch"},
		{entry.StatusError, "request failed"},
		{entry.StatusIdle, "explicit reset"},
	}

	for _, step := range steps {
		if err := interp.Transition(step.to, step.reason); err != nil {
			t.Fatalf("Transition(%s) error = %v", step.to, err)
		}
		if interp.Status() != step.to {
			t.Fatalf("Status after %s = %s, want %s", step.reason, interp.Status(), step.to)
		}
	}

	history := interp.History()
	if len(history) != len(steps) {
		t.Fatalf("History len = %d, want %d", len(history), len(steps))
	}
	if history[0].From != entry.StatusIdle || history[0].To != entry.StatusLoading {
		t.Errorf("History[0] = %s->%s, want idle->loading", history[0].From, history[0].To)
	}
	if history[3].Reason != "request failed" {
		t.Errorf("History[3].Reason = %s, want request failed", history[3].Reason)
	}
}

func TestInterpreter_InvalidTransition(t *testing.T) {
	t.Parallel()

	interp := newStartedInterpreter(t, "probes.list")

	// Settling without a fetch in flight is disallowed.
	err := interp.Transition(entry.StatusSuccess, "no fetch issued")
	if err == nil {
		t.Fatal("Transition(idle->success) should return error")
	}
	if !errors.Is(err, entry.ErrInvalidTransition) {
		t.Errorf("error = %v, want ErrInvalidTransition", err)
	}

	if interp.Status() != entry.StatusIdle {
		t.Errorf("Status after invalid transition = %s, want idle", interp.Status())
	}
}

func TestInterpreter_ResetOnlyFromError(t *testing.T) {
	t.Parallel()

	interp := newStartedInterpreter(t, "probes.list")

	if err := interp.Transition(entry.StatusLoading, "fetch"); err != nil {
		t.Fatalf("Transition(loading) error = %v", err)
	}
	if err := interp.Transition(entry.StatusSuccess, "applied"); err != nil {
		t.Fatalf("Transition(success) error = %v", err)
	}

	// Success holds its data; there is no path back to idle.
	if err := interp.Transition(entry.StatusIdle, "reset"); err == nil {
		t.Error("Transition(success->idle) should return error")
	}
	if interp.Status() != entry.StatusSuccess {
		t.Errorf("Status = %s, want success", interp.Status())
	}
}

func TestInterpreter_LoadingHoldsOnRepeatStart(t *testing.T) {
	t.Parallel()

	interp := newStartedInterpreter(t, "probes.list")

	if err := interp.Transition(entry.StatusLoading, "fetch"); err != nil {
		t.Fatalf("Transition(loading) error = %v", err)
	}

	// The domain allows loading->loading for supersede, but the chart
	// defines no START transition while loading, so the machine holds.
	if err := interp.Transition(entry.StatusLoading, "again"); err != nil {
		t.Fatalf("Transition(loading) while loading error = %v", err)
	}
	if interp.Status() != entry.StatusLoading {
		t.Errorf("Status = %s, want loading", interp.Status())
	}
}

func TestInterpreter_CanTransition(t *testing.T) {
	t.Parallel()

	interp := newStartedInterpreter(t, "probes.list")

	if !interp.CanTransition(entry.StatusLoading) {
		t.Error("idle should allow loading")
	}
	if interp.CanTransition(entry.StatusSuccess) {
		t.Error("idle should not allow success")
	}
	if interp.CanTransition(entry.StatusError) {
		t.Error("idle should not allow error")
	}
}

func TestInterpreter_Context(t *testing.T) {
	t.Parallel()

	machine, err := NewLifecycleMachine()
	if err != nil {
		t.Fatalf("NewLifecycleMachine() error = %v", err)
	}

	ctx := NewContext("probes.execute")
	interp := NewInterpreter(machine, ctx)
	interp.Start()
	defer interp.Stop()

	if interp.Context() != ctx {
		t.Error("Context() should return the provided context")
	}
}
