package parallel

import (
	"errors"
	"strings"
	"sync/atomic"
	"testing"
)

func TestForEach_RunsEveryIndexOnce(t *testing.T) {
	t.Parallel()
	for _, n := range []int{1, 2, 7, 64} {
		hits := make([]int32, n)
		err := ForEach(n, func(i int) error {
			atomic.AddInt32(&hits[i], 1)
			return nil
		})
		if err != nil {
			t.Fatalf("n=%d: unexpected error: %v", n, err)
		}
		for i, h := range hits {
			if h != 1 {
				t.Errorf("n=%d: index %d ran %d times", n, i, h)
			}
		}
	}
}

func TestForEach_JoinsBeforeReturning(t *testing.T) {
	t.Parallel()
	var done atomic.Int32
	_ = ForEach(16, func(int) error {
		for i := 0; i < 1000; i++ {
			_ = i * i
		}
		done.Add(1)
		return nil
	})
	if got := done.Load(); got != 16 {
		t.Errorf("ForEach returned with %d of 16 workers finished", got)
	}
}

func TestForEach_ReportsError(t *testing.T) {
	t.Parallel()
	boom := errors.New("boom")
	err := ForEach(8, func(i int) error {
		if i == 5 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
}

func TestForEach_RecoversPanic(t *testing.T) {
	t.Parallel()
	err := ForEach(4, func(i int) error {
		if i == 2 {
			panic("bad slot")
		}
		return nil
	})
	if err == nil || !strings.Contains(err.Error(), "worker 2 panicked: bad slot") {
		t.Errorf("expected recovered panic error, got %v", err)
	}
}

func TestForEach_ZeroWorkers(t *testing.T) {
	t.Parallel()
	called := false
	if err := ForEach(0, func(int) error { called = true; return nil }); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if called {
		t.Error("fn should not run when n == 0")
	}
}
