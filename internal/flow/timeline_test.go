package flow

import (
	"sync"
	"testing"
	"time"
)

func TestTimelineEmitsStagesInOrder(t *testing.T) {
	var (
		mu  sync.Mutex
		got []Stage
	)
	all := make(chan struct{})
	tl := &Timeline{Stages: DefaultStages, Interval: time.Millisecond}

	stop := tl.Start(func(s Stage) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, s)
		if len(got) == len(DefaultStages)+1 {
			close(all)
		}
	})
	defer stop()

	select {
	case <-all:
	case <-time.After(2 * time.Second):
		t.Fatalf("timeline did not finish")
	}

	mu.Lock()
	defer mu.Unlock()
	if got[0] != InitialStage {
		t.Fatalf("expected initial stage first, got %+v", got[0])
	}
	for i, s := range DefaultStages {
		if got[i+1] != s {
			t.Fatalf("stage %d: expected %+v, got %+v", i, s, got[i+1])
		}
	}
	if last := got[len(got)-1]; last.Percent != 95 {
		t.Fatalf("expected timeline to settle at 95%%, got %d", last.Percent)
	}
}

func TestTimelineStopPreventsFurtherEmits(t *testing.T) {
	var (
		mu    sync.Mutex
		count int
	)
	tl := &Timeline{Stages: DefaultStages, Interval: time.Hour}
	stop := tl.Start(func(Stage) {
		mu.Lock()
		count++
		mu.Unlock()
	})
	stop()
	stop()

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Fatalf("expected only the initial stage, got %d emits", count)
	}
}
