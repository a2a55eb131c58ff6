package fanout

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestMap_PreservesOrder(t *testing.T) {
	items := []int{5, 1, 4, 2, 3}
	got, err := Map(context.Background(), items, 3, func(_ context.Context, _ int, n int) (int, error) {
		time.Sleep(time.Duration(n) * time.Millisecond)
		return n * 10, nil
	})
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if diff := cmp.Diff([]int{50, 10, 40, 20, 30}, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestMap_Empty(t *testing.T) {
	got, err := Map(context.Background(), []string(nil), 0, func(context.Context, int, string) (string, error) {
		t.Fatal("fn must not be called")
		return "", nil
	})
	if err != nil || len(got) != 0 {
		t.Errorf("Map(nil) = %v, %v", got, err)
	}
}

func TestMap_RespectsLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	items := make([]int, 20)

	_, err := Map(context.Background(), items, 2, func(context.Context, int, int) (int, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)
		return 0, nil
	})
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if p := peak.Load(); p > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", p)
	}
}

func TestMap_FailuresDoNotCancelSiblings(t *testing.T) {
	boom := errors.New("boom")
	var ran atomic.Int32

	got, err := Map(context.Background(), []int{0, 1, 2, 3, 4}, 2, func(ctx context.Context, i int, _ int) (string, error) {
		ran.Add(1)
		if ctx.Err() != nil {
			t.Error("sibling context cancelled")
		}
		if i == 1 || i == 3 {
			return "", boom
		}
		return "ok", nil
	})

	if ran.Load() != 5 {
		t.Errorf("ran = %d, want 5", ran.Load())
	}
	var errs *Errors
	if !errors.As(err, &errs) {
		t.Fatalf("error = %v, want *Errors", err)
	}
	var indexes []int
	for _, ie := range *errs {
		indexes = append(indexes, ie.Index)
	}
	if diff := cmp.Diff([]int{1, 3}, indexes); diff != "" {
		t.Errorf("failed indexes (-want +got):\n%s", diff)
	}
	if !errors.Is(err, boom) {
		t.Error("errors.Is must reach the item error")
	}
	if got[0] != "ok" || got[2] != "ok" || got[4] != "ok" {
		t.Errorf("partial results = %v", got)
	}
}

func TestMap_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var called atomic.Int32
	_, err := Map(ctx, []int{1, 2, 3}, 1, func(context.Context, int, int) (int, error) {
		called.Add(1)
		return 0, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
	if called.Load() != 0 {
		t.Errorf("fn called %d times after cancellation", called.Load())
	}
}
