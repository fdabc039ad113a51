package flow

import (
	"sync"
	"time"
)

// Stage is one step of the cosmetic progress timeline. It is not derived
// from backend progress.
type Stage struct {
	Percent int
	Text    string
}

var InitialStage = Stage{Percent: 0, Text: "Initializing..."}

var DefaultStages = []Stage{
	{Percent: 10, Text: "Connecting to LLM provider..."},
	{Percent: 25, Text: "Initializing analysts..."},
	{Percent: 40, Text: "Fetching market data..."},
	{Percent: 60, Text: "Analysts at work..."},
	{Percent: 80, Text: "Debate in progress..."},
	{Percent: 95, Text: "Composing final recommendation..."},
}

// Timeline plays Stages at a fixed interval, then stays on the last one.
type Timeline struct {
	Stages   []Stage
	Interval time.Duration
}

func NewTimeline(interval time.Duration) *Timeline {
	return &Timeline{Stages: DefaultStages, Interval: interval}
}

// Start emits InitialStage right away and the remaining stages on a
// ticker. The returned stop function blocks until no further emit calls
// can happen.
func (t *Timeline) Start(emit func(Stage)) (stop func()) {
	emit(InitialStage)

	done := make(chan struct{})
	var wg sync.WaitGroup
	if t.Interval > 0 && len(t.Stages) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(t.Interval)
			defer ticker.Stop()
			for _, stage := range t.Stages {
				select {
				case <-done:
					return
				case <-ticker.C:
				}
				select {
				case <-done:
					return
				default:
				}
				emit(stage)
			}
		}()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}
