package batch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunPreservesOrderAndIsolatesErrors(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	boom := errors.New("boom")

	results := Run(context.Background(), items, 3, func(_ context.Context, n int) (int, error) {
		if n == 3 {
			return 0, boom
		}
		return n * 10, nil
	})

	if len(results) != len(items) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(items))
	}
	for i, r := range results {
		if r.Item != items[i] {
			t.Errorf("results[%d].Item = %d, want %d", i, r.Item, items[i])
		}
		if r.Item == 3 {
			if !errors.Is(r.Err, boom) {
				t.Errorf("item 3 err = %v, want boom", r.Err)
			}
			continue
		}
		if r.Err != nil {
			t.Errorf("item %d unexpected err: %v", r.Item, r.Err)
		}
		if r.Value != r.Item*10 {
			t.Errorf("item %d value = %d", r.Item, r.Value)
		}
	}
}

func TestRunRespectsLimit(t *testing.T) {
	var inFlight, peak atomic.Int32
	items := make([]int, 20)

	Run(context.Background(), items, 4, func(_ context.Context, _ int) (struct{}, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return struct{}{}, nil
	})

	if got := peak.Load(); got > 4 {
		t.Errorf("peak concurrency = %d, want <= 4", got)
	}
}

func TestRunCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	results := Run(ctx, []string{"a", "b"}, 2, func(_ context.Context, s string) (string, error) {
		calls.Add(1)
		return s, nil
	})

	if calls.Load() != 0 {
		t.Errorf("fn called %d times after cancellation", calls.Load())
	}
	for _, r := range results {
		if !errors.Is(r.Err, context.Canceled) {
			t.Errorf("item %q err = %v, want context.Canceled", r.Item, r.Err)
		}
	}
}

func TestChunk(t *testing.T) {
	tests := []struct {
		name string
		n    int
		size int
		want []int
	}{
		{"empty", 0, 3, nil},
		{"exact", 6, 3, []int{3, 3}},
		{"remainder", 7, 3, []int{3, 3, 1}},
		{"size larger than input", 2, 10, []int{2}},
		{"zero size treated as one", 2, 0, []int{1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]int, tt.n)
			for i := range items {
				items[i] = i
			}
			chunks := Chunk(items, tt.size)
			if len(chunks) != len(tt.want) {
				t.Fatalf("got %d chunks, want %d", len(chunks), len(tt.want))
			}
			next := 0
			for i, c := range chunks {
				if len(c) != tt.want[i] {
					t.Errorf("chunk %d has %d items, want %d", i, len(c), tt.want[i])
				}
				for _, v := range c {
					if v != next {
						t.Errorf("chunk %d out of order: got %d, want %d", i, v, next)
					}
					next++
				}
			}
		})
	}
}
