package entry

import (
	"errors"
	"testing"
	"time"
)

func TestEntry_Lifecycle(t *testing.T) {
	t.Parallel()

	now := time.Now()
	e := New(now)

	if e.Status != StatusIdle {
		t.Fatalf("new entry status = %s, want idle", e.Status)
	}

	if err := e.MarkLoading(1); err != nil {
		t.Fatalf("MarkLoading: %v", err)
	}
	if e.Token != 1 {
		t.Errorf("token = %d, want 1", e.Token)
	}

	if err := e.MarkSuccess("payload", now); err != nil {
		t.Fatalf("MarkSuccess: %v", err)
	}
	if e.Data != "payload" || e.Err != nil || e.Stale {
		t.Errorf("after success: data=%v err=%v stale=%v", e.Data, e.Err, e.Stale)
	}
	if !e.LastUpdated.Equal(now) {
		t.Errorf("LastUpdated = %v, want %v", e.LastUpdated, now)
	}
}

func TestEntry_StaleWhileError(t *testing.T) {
	t.Parallel()

	now := time.Now()
	e := New(now)
	_ = e.MarkLoading(1)
	_ = e.MarkSuccess("good", now)

	// A failed refresh keeps the last good data.
	_ = e.MarkLoading(2)
	failure := errors.New("server exploded")
	if err := e.MarkError(failure); err != nil {
		t.Fatalf("MarkError: %v", err)
	}

	v := e.View()
	if v.Status != StatusError {
		t.Errorf("status = %s, want error", v.Status)
	}
	if v.Data != "good" {
		t.Errorf("data = %v, want retained %q", v.Data, "good")
	}
	if !errors.Is(v.Err, failure) {
		t.Errorf("err = %v, want %v", v.Err, failure)
	}
}

func TestEntry_IllegalTransitions(t *testing.T) {
	t.Parallel()

	e := New(time.Now())

	if err := e.MarkSuccess("x", time.Now()); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("idle->success error = %v, want ErrInvalidTransition", err)
	}
	if err := e.MarkError(errors.New("x")); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("idle->error error = %v, want ErrInvalidTransition", err)
	}
	if err := e.Reset(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("idle reset error = %v, want ErrInvalidTransition", err)
	}
}

func TestEntry_ResetAfterError(t *testing.T) {
	t.Parallel()

	e := New(time.Now())
	_ = e.MarkLoading(1)
	_ = e.MarkError(errors.New("boom"))

	if err := e.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if e.Status != StatusIdle || e.Err != nil {
		t.Errorf("after reset: status=%s err=%v", e.Status, e.Err)
	}
}

func TestEntry_SupersedeToken(t *testing.T) {
	t.Parallel()

	e := New(time.Now())
	_ = e.MarkLoading(1)

	// Invalidation while in flight relaunches under a fresh token.
	if err := e.MarkLoading(2); err != nil {
		t.Fatalf("supersede MarkLoading: %v", err)
	}
	if e.Token != 2 {
		t.Errorf("token = %d, want superseding 2", e.Token)
	}
	if e.Status != StatusLoading {
		t.Errorf("status = %s, want loading", e.Status)
	}
}

func TestEntry_Overwrite(t *testing.T) {
	t.Parallel()

	e := New(time.Now())
	_ = e.MarkLoading(1)

	at := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	e.Overwrite([]string{"p-1"}, 2, at)

	if e.Status != StatusSuccess {
		t.Errorf("status = %s, want success", e.Status)
	}
	if e.Token != 2 {
		t.Errorf("token = %d, want 2 so the in-flight result drops", e.Token)
	}
	if !e.LastUpdated.Equal(at) {
		t.Errorf("LastUpdated = %v, want %v", e.LastUpdated, at)
	}
	if e.Stale {
		t.Error("Stale = true, want false after overwrite")
	}
}

func TestEntry_OverwriteError(t *testing.T) {
	t.Parallel()

	e := New(time.Now())
	_ = e.MarkLoading(1)
	_ = e.MarkSuccess("good", time.Now())

	e.OverwriteError(errors.New("server rejected"), 2)

	if e.Status != StatusError {
		t.Errorf("status = %s, want error", e.Status)
	}
	if e.Data != "good" {
		t.Errorf("Data = %v, want retained good value", e.Data)
	}
	if e.Token != 2 {
		t.Errorf("token = %d, want 2", e.Token)
	}
}

func TestEntry_MarkStale(t *testing.T) {
	t.Parallel()

	e := New(time.Now())
	_ = e.MarkLoading(1)
	_ = e.MarkSuccess("good", time.Now())

	e.MarkStale()

	if !e.Stale {
		t.Error("Stale = false, want true")
	}
	if e.Status != StatusSuccess {
		t.Errorf("status = %s, want success untouched", e.Status)
	}
	if e.Data != "good" {
		t.Errorf("Data = %v, want untouched", e.Data)
	}
}

func TestView_Projections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		build       func() *Entry
		isLoading   bool
		isFetching  bool
		hasData     bool
	}{
		{
			name:       "idle",
			build:      func() *Entry { return New(time.Now()) },
			isLoading:  false,
			isFetching: false,
			hasData:    false,
		},
		{
			name: "first load",
			build: func() *Entry {
				e := New(time.Now())
				_ = e.MarkLoading(1)
				return e
			},
			isLoading:  true,
			isFetching: true,
			hasData:    false,
		},
		{
			name: "background refresh",
			build: func() *Entry {
				e := New(time.Now())
				_ = e.MarkLoading(1)
				_ = e.MarkSuccess(42, time.Now())
				_ = e.MarkLoading(2)
				return e
			},
			isLoading:  false,
			isFetching: true,
			hasData:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := tt.build().View()
			if got := v.IsLoading(); got != tt.isLoading {
				t.Errorf("IsLoading() = %v, want %v", got, tt.isLoading)
			}
			if got := v.IsFetching(); got != tt.isFetching {
				t.Errorf("IsFetching() = %v, want %v", got, tt.isFetching)
			}
			if got := v.HasData(); got != tt.hasData {
				t.Errorf("HasData() = %v, want %v", got, tt.hasData)
			}
		})
	}
}

func TestInvocation_Lifecycle(t *testing.T) {
	t.Parallel()

	inv := NewInvocation("create-probe", map[string]string{"brand": "acme"})
	if inv.ID == "" {
		t.Error("invocation must have an ID")
	}
	if inv.Status != StatusLoading {
		t.Errorf("new invocation status = %s, want loading", inv.Status)
	}

	inv.Succeed("created")
	if inv.Status != StatusSuccess || inv.Result != "created" {
		t.Errorf("after Succeed: status=%s result=%v", inv.Status, inv.Result)
	}
	if inv.FinishedAt.IsZero() {
		t.Error("FinishedAt must be set")
	}

	failed := NewInvocation("create-probe", nil)
	boom := errors.New("rejected")
	failed.Fail(boom)
	if failed.Status != StatusError || !errors.Is(failed.Err, boom) {
		t.Errorf("after Fail: status=%s err=%v", failed.Status, failed.Err)
	}
}
