package culite

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestStreamOrdering(t *testing.T) {
	ctx := testContext(t)

	stream, err := ctx.StreamCreate()
	if err != nil {
		t.Fatalf("StreamCreate failed: %v", err)
	}

	const launches = 50
	var last int64 = -1
	for i := 0; i < launches; i++ {
		seq := int64(i)
		kernel := KernelFunc(func(tid ThreadID, args ...interface{}) {
			// Each launch must observe its predecessor completed.
			if !atomic.CompareAndSwapInt64(&last, seq-1, seq) {
				t.Errorf("Launch %d ran out of order", seq)
			}
		})
		if err := ctx.LaunchFunc(kernel, Dim1(1), Dim1(1), stream); err != nil {
			t.Fatalf("Launch %d failed: %v", i, err)
		}
	}

	if err := ctx.StreamSynchronize(stream); err != nil {
		t.Fatalf("StreamSynchronize failed: %v", err)
	}
	if last != launches-1 {
		t.Errorf("Expected last sequence %d, got %d", launches-1, last)
	}
}

func TestIndependentStreams(t *testing.T) {
	ctx := testContext(t)

	s1, _ := ctx.StreamCreate()
	s2, _ := ctx.StreamCreate()

	release := make(chan struct{})
	blocked := KernelFunc(func(tid ThreadID, args ...interface{}) {
		<-release
	})
	var ran atomic.Bool
	fast := KernelFunc(func(tid ThreadID, args ...interface{}) {
		ran.Store(true)
	})

	if err := ctx.LaunchFunc(blocked, Dim1(1), Dim1(1), s1); err != nil {
		t.Fatalf("Launch on s1 failed: %v", err)
	}
	if err := ctx.LaunchFunc(fast, Dim1(1), Dim1(1), s2); err != nil {
		t.Fatalf("Launch on s2 failed: %v", err)
	}

	// The second stream makes progress while the first is stalled.
	if err := ctx.StreamSynchronize(s2); err != nil {
		t.Fatalf("StreamSynchronize failed: %v", err)
	}
	if !ran.Load() {
		t.Error("Kernel on independent stream did not run")
	}

	close(release)
	SynchronizeOrFail(t, ctx)
}

func TestDefaultStreamSynchronize(t *testing.T) {
	ctx := testContext(t)

	var ran atomic.Bool
	kernel := KernelFunc(func(tid ThreadID, args ...interface{}) {
		time.Sleep(time.Millisecond)
		ran.Store(true)
	})

	LaunchOrFail(t, ctx, kernel, Dim1(1), Dim1(1))
	if err := ctx.StreamSynchronize(nil); err != nil {
		t.Fatalf("StreamSynchronize(nil) failed: %v", err)
	}
	if !ran.Load() {
		t.Error("Default stream work incomplete after synchronize")
	}
}

func TestEventElapsed(t *testing.T) {
	ctx := testContext(t)

	start, err := ctx.EventCreate()
	if err != nil {
		t.Fatalf("EventCreate failed: %v", err)
	}
	end, _ := ctx.EventCreate()

	kernel := KernelFunc(func(tid ThreadID, args ...interface{}) {
		time.Sleep(5 * time.Millisecond)
	})

	if err := ctx.EventRecord(start, nil); err != nil {
		t.Fatalf("EventRecord failed: %v", err)
	}
	LaunchOrFail(t, ctx, kernel, Dim1(1), Dim1(1))
	if err := ctx.EventRecord(end, nil); err != nil {
		t.Fatalf("EventRecord failed: %v", err)
	}

	elapsed, err := EventElapsed(start, end)
	if err != nil {
		t.Fatalf("EventElapsed failed: %v", err)
	}
	if elapsed < 5*time.Millisecond {
		t.Errorf("Elapsed %v shorter than kernel runtime", elapsed)
	}
}

func TestEventUnrecorded(t *testing.T) {
	ctx := testContext(t)

	e, _ := ctx.EventCreate()
	if err := e.Synchronize(); err == nil {
		t.Error("Synchronize on unrecorded event should have failed")
	}
	if _, err := EventElapsed(nil, e); err == nil {
		t.Error("EventElapsed with nil event should have failed")
	}
}
