package watch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_CoalescesWithinQuiescenceWindow(t *testing.T) {
	in := make(chan RawEvent, 4)
	s := NewScheduler(in, SchedulerConfig{QuiescenceDelay: 20 * time.Millisecond, BatchSize: 10})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	in <- RawEvent{Path: "a.py", Op: OpCreate}
	in <- RawEvent{Path: "a.py", Op: OpModify}
	in <- RawEvent{Path: "b.py", Op: OpDelete}

	select {
	case b := <-s.Batches():
		assert.Equal(t, []string{"b.py"}, b.Deletes)
		assert.Equal(t, []string{"a.py"}, b.Modifies)
		assert.Empty(t, b.Creates)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for batch")
	}
}

func TestScheduler_OrdersDeletesCreatesModifies(t *testing.T) {
	in := make(chan RawEvent, 8)
	s := NewScheduler(in, SchedulerConfig{QuiescenceDelay: 20 * time.Millisecond, BatchSize: 10})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	in <- RawEvent{Path: "m.py", Op: OpModify}
	in <- RawEvent{Path: "c.py", Op: OpCreate}
	in <- RawEvent{Path: "d.py", Op: OpDelete}

	b := <-s.Batches()
	assert.Equal(t, []string{"d.py"}, b.Deletes)
	assert.Equal(t, []string{"c.py"}, b.Creates)
	assert.Equal(t, []string{"m.py"}, b.Modifies)
}

func TestScheduler_SplitsOversizedPendingIntoFIFOBatches(t *testing.T) {
	in := make(chan RawEvent, 32)
	s := NewScheduler(in, SchedulerConfig{QuiescenceDelay: 20 * time.Millisecond, BatchSize: 2})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	for i := 0; i < 5; i++ {
		in <- RawEvent{Path: string(rune('a' + i)) + ".py", Op: OpCreate}
	}

	var total int
	timeout := time.After(2 * time.Second)
	for total < 5 {
		select {
		case b := <-s.Batches():
			require.LessOrEqual(t, len(b.Creates), 2)
			total += len(b.Creates)
		case <-timeout:
			t.Fatal("timed out waiting for batches")
		}
	}
	assert.Equal(t, 5, total)
}

func TestScheduler_FlushesOnContextDone(t *testing.T) {
	in := make(chan RawEvent, 1)
	s := NewScheduler(in, SchedulerConfig{QuiescenceDelay: time.Hour, BatchSize: 10})

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)

	in <- RawEvent{Path: "a.py", Op: OpCreate}
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case b := <-s.Batches():
		assert.Equal(t, []string{"a.py"}, b.Creates)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for flush on cancel")
	}
}
