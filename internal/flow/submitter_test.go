package flow

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dyike/cortexctl/pkg/models"
)

type fakeBackend struct {
	mu        sync.Mutex
	accept    *models.Acceptance
	acceptErr error
	statuses  []models.StatusResponse
	statusErr error

	analyzeCalls int
	polledIDs    []string
}

func (f *fakeBackend) Analyze(ctx context.Context, req models.AnalysisRequest) (*models.Acceptance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.analyzeCalls++
	if f.acceptErr != nil {
		return nil, f.acceptErr
	}
	return f.accept, nil
}

func (f *fakeBackend) AnalysisStatus(ctx context.Context, id string) (*models.StatusResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polledIDs = append(f.polledIDs, id)
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	idx := len(f.polledIDs) - 1
	if idx >= len(f.statuses) {
		idx = len(f.statuses) - 1
	}
	resp := f.statuses[idx]
	return &resp, nil
}

type recordingUI struct {
	mu        sync.Mutex
	events    []string
	trigger   bool
	success   *Success
	failure   string
	stages    []Stage
	statusLog []string
}

func newRecordingUI() *recordingUI {
	return &recordingUI{trigger: true}
}

func (r *recordingUI) ShowSubmitting(req models.AnalysisRequest) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "submitting:"+req.Ticker)
}

func (r *recordingUI) ShowProgress(stage Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
}

func (r *recordingUI) ShowStatus(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statusLog = append(r.statusLog, message)
}

func (r *recordingUI) ShowSuccess(s Success) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "success")
	r.success = &s
}

func (r *recordingUI) ShowFailure(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "failure")
	r.failure = message
}

func (r *recordingUI) SetTriggerEnabled(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trigger = enabled
	if enabled {
		r.events = append(r.events, "trigger:on")
	} else {
		r.events = append(r.events, "trigger:off")
	}
}

func noSleep(ctx context.Context, d time.Duration) error { return nil }

func validRequest() models.AnalysisRequest {
	return models.AnalysisRequest{
		Ticker:          "AAPL",
		Date:            "2024-01-01",
		Analysts:        []models.AnalystType{models.MarketAnalyst},
		LLMProvider:     "p1",
		QuickThinkModel: "q1",
		DeepThinkModel:  "d1",
		ResearchDepth:   3,
	}
}

func result(t *testing.T, raw string) *models.AnalysisResult {
	t.Helper()
	var r models.AnalysisResult
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("result fixture: %v", err)
	}
	return &r
}

func TestValidationFailsWithoutNetworkCall(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*models.AnalysisRequest)
	}{
		{"ticker", func(r *models.AnalysisRequest) { r.Ticker = "  " }},
		{"date", func(r *models.AnalysisRequest) { r.Date = "" }},
		{"provider", func(r *models.AnalysisRequest) { r.LLMProvider = "" }},
		{"quick model", func(r *models.AnalysisRequest) { r.QuickThinkModel = "" }},
		{"deep model", func(r *models.AnalysisRequest) { r.DeepThinkModel = "" }},
		{"analysts", func(r *models.AnalysisRequest) { r.Analysts = nil }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := &fakeBackend{}
			ui := newRecordingUI()
			req := validRequest()
			tc.mutate(&req)

			out := NewSubmitter(backend, ui, WithSleep(noSleep)).Run(context.Background(), req)

			if backend.analyzeCalls != 0 || len(backend.polledIDs) != 0 {
				t.Fatalf("expected no network calls, got analyze=%d polls=%d", backend.analyzeCalls, len(backend.polledIDs))
			}
			if !errors.Is(out.Err, ErrValidation) {
				t.Fatalf("expected validation error, got %v", out.Err)
			}
			if out.JobID != "" {
				t.Fatalf("no job should be created, got %q", out.JobID)
			}
			if !strings.Contains(ui.failure, tc.name) {
				t.Fatalf("failure %q does not mention %q", ui.failure, tc.name)
			}
			if !ui.trigger {
				t.Fatalf("trigger must stay enabled")
			}
		})
	}
}

func TestSuccessfulJobRendersBuy(t *testing.T) {
	backend := &fakeBackend{
		accept: &models.Acceptance{Success: true, AnalysisID: "job-1"},
		statuses: []models.StatusResponse{
			{Status: models.JobRunning},
			{Status: models.JobCompleted, Success: true, Result: result(t, `{"decision":"Buy AAPL now"}`)},
		},
	}
	ui := newRecordingUI()
	sub := NewSubmitter(backend, ui, WithSleep(noSleep))

	out := sub.Run(context.Background(), validRequest())

	if !out.Succeeded() || out.Err != nil {
		t.Fatalf("expected success, got %+v", out)
	}
	if out.Decision != models.DecisionBuy {
		t.Fatalf("expected buy, got %s", out.Decision)
	}
	if out.Polls != 2 {
		t.Fatalf("expected 2 polls, got %d", out.Polls)
	}
	for _, id := range backend.polledIDs {
		if id != "job-1" {
			t.Fatalf("polled with %q instead of job-1", id)
		}
	}
	if ui.success == nil || ui.success.Decision != models.DecisionBuy {
		t.Fatalf("success not rendered: %+v", ui.success)
	}
	if !strings.Contains(ui.success.Result.Pretty(), `"decision": "Buy AAPL now"`) {
		t.Fatalf("result dump missing decision: %s", ui.success.Result.Pretty())
	}
	want := []string{"trigger:off", "submitting:AAPL", "success", "trigger:on"}
	if strings.Join(ui.events, ",") != strings.Join(want, ",") {
		t.Fatalf("unexpected events %v", ui.events)
	}
	if sub.State() != StateSucceeded {
		t.Fatalf("expected succeeded state, got %s", sub.State())
	}
}

func TestRejectedSubmissionShowsBackendMessage(t *testing.T) {
	backend := &fakeBackend{
		accept: &models.Acceptance{Success: false, Message: "provider unreachable"},
	}
	ui := newRecordingUI()

	out := NewSubmitter(backend, ui, WithSleep(noSleep)).Run(context.Background(), validRequest())

	if out.State != StateFailed || !errors.Is(out.Err, ErrRejected) {
		t.Fatalf("expected rejected failure, got %+v", out)
	}
	if ui.failure != "provider unreachable" {
		t.Fatalf("expected exact backend message, got %q", ui.failure)
	}
	if len(backend.polledIDs) != 0 {
		t.Fatalf("expected no polling, got %d reads", len(backend.polledIDs))
	}
	if !ui.trigger {
		t.Fatalf("trigger must be re-enabled")
	}
}

func TestTimeoutAfterAttemptBudget(t *testing.T) {
	backend := &fakeBackend{
		accept:   &models.Acceptance{Success: true, AnalysisID: "job-slow"},
		statuses: []models.StatusResponse{{Status: models.JobRunning}},
	}
	ui := newRecordingUI()

	var sleeps int
	sleep := func(ctx context.Context, d time.Duration) error {
		if d != time.Second {
			t.Errorf("expected 1s interval, got %s", d)
		}
		sleeps++
		return nil
	}

	out := NewSubmitter(backend, ui, WithSleep(sleep)).Run(context.Background(), validRequest())

	if !errors.Is(out.Err, ErrTimeout) {
		t.Fatalf("expected timeout, got %v", out.Err)
	}
	if len(backend.polledIDs) != 180 || out.Polls != 180 {
		t.Fatalf("expected exactly 180 reads, got %d (outcome %d)", len(backend.polledIDs), out.Polls)
	}
	if sleeps != 179 {
		t.Fatalf("expected 179 waits between 180 reads, got %d", sleeps)
	}
	if !ui.trigger {
		t.Fatalf("trigger must be re-enabled")
	}
}

func TestCustomAttemptBudget(t *testing.T) {
	backend := &fakeBackend{
		accept:   &models.Acceptance{Success: true, AnalysisID: "job-2"},
		statuses: []models.StatusResponse{{Status: models.JobRunning}},
	}
	out := NewSubmitter(backend, nil, WithSleep(noSleep), WithMaxAttempts(3)).Run(context.Background(), validRequest())
	if !errors.Is(out.Err, ErrTimeout) || out.Polls != 3 {
		t.Fatalf("expected timeout after 3 polls, got %+v", out)
	}
}

func TestTerminalFailures(t *testing.T) {
	cases := []struct {
		name    string
		status  models.StatusResponse
		sentErr error
		message string
	}{
		{
			name:    "error status with message",
			status:  models.StatusResponse{Status: models.JobError, Message: "LLM quota exhausted"},
			sentErr: ErrRejected,
			message: "LLM quota exhausted",
		},
		{
			name:    "completed without success uses default message",
			status:  models.StatusResponse{Status: models.JobCompleted, Success: false},
			sentErr: ErrRejected,
			message: defaultRejectedMessage,
		},
		{
			name:    "unknown status",
			status:  models.StatusResponse{Status: "queued"},
			sentErr: ErrUnknownStatus,
			message: `unknown analysis status "queued"`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend := &fakeBackend{
				accept:   &models.Acceptance{Success: true, AnalysisID: "job-3"},
				statuses: []models.StatusResponse{tc.status},
			}
			ui := newRecordingUI()
			out := NewSubmitter(backend, ui, WithSleep(noSleep)).Run(context.Background(), validRequest())

			if !errors.Is(out.Err, tc.sentErr) {
				t.Fatalf("expected %v, got %v", tc.sentErr, out.Err)
			}
			if ui.failure != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, ui.failure)
			}
			if out.Polls != 1 || !ui.trigger {
				t.Fatalf("expected single poll and enabled trigger, got polls=%d trigger=%v", out.Polls, ui.trigger)
			}
		})
	}
}

func TestTransportFailuresAreNotRetried(t *testing.T) {
	t.Run("submit", func(t *testing.T) {
		backend := &fakeBackend{acceptErr: errors.New("connection refused")}
		ui := newRecordingUI()
		out := NewSubmitter(backend, ui, WithSleep(noSleep)).Run(context.Background(), validRequest())

		if !errors.Is(out.Err, ErrTransport) || backend.analyzeCalls != 1 {
			t.Fatalf("expected one failed submit, got %+v calls=%d", out.Err, backend.analyzeCalls)
		}
		if !strings.Contains(ui.failure, "connection refused") {
			t.Fatalf("expected raw error text, got %q", ui.failure)
		}
	})

	t.Run("poll", func(t *testing.T) {
		backend := &fakeBackend{
			accept:    &models.Acceptance{Success: true, AnalysisID: "job-4"},
			statusErr: errors.New("HTTP 500"),
		}
		ui := newRecordingUI()
		out := NewSubmitter(backend, ui, WithSleep(noSleep)).Run(context.Background(), validRequest())

		if !errors.Is(out.Err, ErrTransport) || len(backend.polledIDs) != 1 {
			t.Fatalf("expected single failed poll, got %+v reads=%d", out.Err, len(backend.polledIDs))
		}
		if out.JobID != "job-4" || !ui.trigger {
			t.Fatalf("unexpected outcome %+v trigger=%v", out, ui.trigger)
		}
	})
}

func TestAcceptanceWithoutIDFails(t *testing.T) {
	backend := &fakeBackend{accept: &models.Acceptance{Success: true}}
	out := NewSubmitter(backend, nil, WithSleep(noSleep)).Run(context.Background(), validRequest())
	if !errors.Is(out.Err, ErrRejected) || len(backend.polledIDs) != 0 {
		t.Fatalf("expected rejection without polling, got %+v", out)
	}
}

func TestCancelledContextEndsAsTransportFailure(t *testing.T) {
	backend := &fakeBackend{
		accept:   &models.Acceptance{Success: true, AnalysisID: "job-5"},
		statuses: []models.StatusResponse{{Status: models.JobRunning}},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := NewSubmitter(backend, nil, WithPollInterval(time.Hour)).Run(ctx, validRequest())
	if !errors.Is(out.Err, ErrTransport) || !errors.Is(out.Err, context.Canceled) {
		t.Fatalf("expected cancelled transport failure, got %v", out.Err)
	}
	if out.Polls != 1 {
		t.Fatalf("expected the first read before the wait, got %d", out.Polls)
	}
}

type fakeSource struct {
	messages []string
	started  chan struct{}
}

func (f *fakeSource) Run(ctx context.Context, emit func(string)) error {
	for _, m := range f.messages {
		emit(m)
	}
	close(f.started)
	<-ctx.Done()
	return ctx.Err()
}

func TestStatusSourceAndTimelineStopAtTerminalState(t *testing.T) {
	src := &fakeSource{messages: []string{"Market analyst running"}, started: make(chan struct{})}
	backend := &fakeBackend{
		accept: &models.Acceptance{Success: true, AnalysisID: "job-6"},
		statuses: []models.StatusResponse{
			{Status: models.JobCompleted, Success: true, Result: result(t, `{"decision":"hold"}`)},
		},
	}
	ui := newRecordingUI()

	sub := NewSubmitter(backend, ui,
		WithSleep(noSleep),
		WithStatusSource(src),
		WithTimeline(&Timeline{Stages: DefaultStages, Interval: time.Hour}),
	)

	out := sub.Run(context.Background(), validRequest())

	// Run waits for the feed goroutine before returning.
	select {
	case <-src.started:
	default:
		t.Fatalf("status source still running after Run returned")
	}

	if !out.Succeeded() || out.Decision != models.DecisionHold {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if len(ui.stages) != 1 || ui.stages[0] != InitialStage {
		t.Fatalf("expected only the initial stage, got %v", ui.stages)
	}
	if len(ui.statusLog) != 1 || ui.statusLog[0] != "Market analyst running" {
		t.Fatalf("unexpected status log %v", ui.statusLog)
	}
}
