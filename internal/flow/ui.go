package flow

import (
	"sync"

	"github.com/dyike/cortexctl/pkg/models"
)

// Success is what a finished job renders: the coarse decision class plus
// the full result payload.
type Success struct {
	JobID    string
	Decision models.DecisionClass
	Result   *models.AnalysisResult
}

// UI receives the side effects of the submission state machine.
type UI interface {
	// ShowSubmitting is called on entry to Submitting.
	ShowSubmitting(req models.AnalysisRequest)
	// ShowProgress renders one cosmetic timeline stage.
	ShowProgress(stage Stage)
	// ShowStatus renders a free-form status line (live feed).
	ShowStatus(message string)
	ShowSuccess(s Success)
	ShowFailure(message string)
	// SetTriggerEnabled toggles the control that starts a submission.
	SetTriggerEnabled(enabled bool)
}

// lockedUI serializes calls from the poll loop, the timeline and the live
// feed so the UI only ever sees one writer.
type lockedUI struct {
	mu    sync.Mutex
	inner UI
}

func (l *lockedUI) ShowSubmitting(req models.AnalysisRequest) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inner.ShowSubmitting(req)
}

func (l *lockedUI) ShowProgress(stage Stage) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inner.ShowProgress(stage)
}

func (l *lockedUI) ShowStatus(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inner.ShowStatus(message)
}

func (l *lockedUI) ShowSuccess(s Success) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inner.ShowSuccess(s)
}

func (l *lockedUI) ShowFailure(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inner.ShowFailure(message)
}

func (l *lockedUI) SetTriggerEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inner.SetTriggerEnabled(enabled)
}

// NopUI discards every call.
type NopUI struct{}

func (NopUI) ShowSubmitting(models.AnalysisRequest) {}
func (NopUI) ShowProgress(Stage)                    {}
func (NopUI) ShowStatus(string)                     {}
func (NopUI) ShowSuccess(Success)                   {}
func (NopUI) ShowFailure(string)                    {}
func (NopUI) SetTriggerEnabled(bool)                {}
