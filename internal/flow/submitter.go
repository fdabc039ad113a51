// Package flow runs one analysis submission: validate, submit, poll the
// job until it reaches a terminal state, and hand the outcome to a UI.
package flow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dyike/cortexctl/pkg/models"
)

const (
	DefaultPollInterval = time.Second
	DefaultMaxAttempts  = 180

	defaultRejectedMessage = "analysis failed without a message from the backend"
)

// State of the submission state machine.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StatePolling    State = "polling"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// Backend is the part of the analysis API the flow needs.
type Backend interface {
	Analyze(ctx context.Context, req models.AnalysisRequest) (*models.Acceptance, error)
	AnalysisStatus(ctx context.Context, id string) (*models.StatusResponse, error)
}

// StatusSource pushes free-form status lines while a job is in flight.
// Run must return once ctx is done.
type StatusSource interface {
	Run(ctx context.Context, emit func(message string)) error
}

// Outcome is the terminal result of one Run.
type Outcome struct {
	State    State
	JobID    string
	Polls    int
	Decision models.DecisionClass
	Result   *models.AnalysisResult
	Err      *Error
}

// Succeeded reports whether the job completed successfully.
func (o Outcome) Succeeded() bool {
	return o.State == StateSucceeded
}

type Option func(*Submitter)

// WithPollInterval sets the fixed wait between two status reads.
func WithPollInterval(d time.Duration) Option {
	return func(s *Submitter) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithMaxAttempts sets the status read budget.
func WithMaxAttempts(n int) Option {
	return func(s *Submitter) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithTimeline enables the cosmetic progress timeline.
func WithTimeline(t *Timeline) Option {
	return func(s *Submitter) {
		s.timeline = t
	}
}

// WithStatusSource attaches a live status feed for the duration of a job.
func WithStatusSource(src StatusSource) Option {
	return func(s *Submitter) {
		s.statusSource = src
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Submitter) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSleep replaces the wait between polls; tests use it to avoid real
// timers.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Submitter) {
		if sleep != nil {
			s.sleep = sleep
		}
	}
}

// Submitter drives a single submission at a time through the state
// machine. It is not safe to call Run concurrently.
type Submitter struct {
	backend      Backend
	ui           UI
	logger       *slog.Logger
	interval     time.Duration
	maxAttempts  int
	timeline     *Timeline
	statusSource StatusSource
	sleep        func(ctx context.Context, d time.Duration) error

	mu    sync.RWMutex
	state State
}

func NewSubmitter(backend Backend, ui UI, opts ...Option) *Submitter {
	if ui == nil {
		ui = NopUI{}
	}
	s := &Submitter{
		backend:     backend,
		ui:          &lockedUI{inner: ui},
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		interval:    DefaultPollInterval,
		maxAttempts: DefaultMaxAttempts,
		sleep:       sleepContext,
		state:       StateIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current state of the machine.
func (s *Submitter) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Submitter) setState(st State) {
	s.mu.Lock()
	prev := s.state
	s.state = st
	s.mu.Unlock()
	s.logger.Debug("analysis state", "from", prev, "to", st)
}

// Run validates req, submits it and polls the resulting job until it
// succeeds or fails. Every path ends with the trigger enabled. ctx only
// carries process shutdown; its cancellation is reported as a transport
// failure.
func (s *Submitter) Run(ctx context.Context, req models.AnalysisRequest) Outcome {
	req.Normalize()
	if missing := req.MissingFields(); len(missing) > 0 {
		msg := fmt.Sprintf("please fill in all fields and select at least one analyst (missing: %s)",
			strings.Join(missing, ", "))
		return s.fail(Outcome{}, newError(KindValidation, msg, nil))
	}

	s.setState(StateSubmitting)
	s.ui.SetTriggerEnabled(false)
	s.ui.ShowSubmitting(req)

	stopSide := s.startSideChannels(ctx)
	outcome := s.submitAndPoll(ctx, req)
	stopSide()

	if outcome.Err != nil {
		return s.fail(outcome, outcome.Err)
	}
	return s.succeed(outcome)
}

func (s *Submitter) submitAndPoll(ctx context.Context, req models.AnalysisRequest) Outcome {
	acc, err := s.backend.Analyze(ctx, req)
	if err != nil {
		return Outcome{Err: newError(KindTransport, transportMessage(err), err)}
	}
	if !acc.Success {
		return Outcome{Err: newError(KindRejected, messageOr(acc.Message), nil)}
	}
	jobID := acc.AnalysisID
	if strings.TrimSpace(jobID) == "" {
		return Outcome{Err: newError(KindRejected, "backend accepted the analysis without an analysis id", nil)}
	}

	s.setState(StatePolling)
	s.logger.Info("analysis accepted", "job_id", jobID, "ticker", req.Ticker)
	return s.poll(ctx, jobID)
}

// poll reads the job status at a fixed interval. The first read happens
// immediately; at most maxAttempts reads are issued.
func (s *Submitter) poll(ctx context.Context, jobID string) Outcome {
	job := models.AnalysisJob{ID: jobID, Status: models.JobRunning}
	out := Outcome{JobID: jobID}

	for {
		if job.Attempts > 0 {
			if err := s.sleep(ctx, s.interval); err != nil {
				out.Polls = job.Attempts
				out.Err = newError(KindTransport, transportMessage(err), err)
				return out
			}
		}

		resp, err := s.backend.AnalysisStatus(ctx, jobID)
		job.Attempts++
		out.Polls = job.Attempts
		if err != nil {
			out.Err = newError(KindTransport, transportMessage(err), err)
			return out
		}
		job.Status = resp.Status
		job.Result = resp.Result
		s.logger.Debug("analysis status", "job_id", jobID, "attempt", job.Attempts, "status", resp.Status)

		switch resp.Status {
		case models.JobRunning:
			if job.Attempts >= s.maxAttempts {
				out.Err = newError(KindTimeout,
					fmt.Sprintf("analysis timed out after %d status checks", job.Attempts), nil)
				return out
			}
		case models.JobCompleted, models.JobError:
			if resp.Status == models.JobCompleted && resp.Success {
				out.Result = job.Result
				return out
			}
			out.Err = newError(KindRejected, messageOr(resp.Message), nil)
			return out
		default:
			out.Err = newError(KindUnknownStatus,
				fmt.Sprintf("unknown analysis status %q", resp.Status), nil)
			return out
		}
	}
}

func (s *Submitter) succeed(out Outcome) Outcome {
	decisionText := ""
	if out.Result != nil {
		decisionText = out.Result.Decision
	} else {
		out.Result = &models.AnalysisResult{}
	}
	out.Decision = models.ClassifyDecision(decisionText)
	out.State = StateSucceeded

	s.setState(StateSucceeded)
	s.logger.Info("analysis completed", "job_id", out.JobID, "polls", out.Polls, "decision", out.Decision)
	s.ui.ShowSuccess(Success{JobID: out.JobID, Decision: out.Decision, Result: out.Result})
	s.ui.SetTriggerEnabled(true)
	return out
}

func (s *Submitter) fail(out Outcome, ferr *Error) Outcome {
	out.State = StateFailed
	out.Err = ferr

	s.setState(StateFailed)
	s.logger.Warn("analysis failed", "job_id", out.JobID, "kind", ferr.Kind, "polls", out.Polls, "error", ferr.Message)
	s.ui.ShowFailure(ferr.Message)
	s.ui.SetTriggerEnabled(true)
	return out
}

// startSideChannels runs the timeline and the status source until the
// returned function is called.
func (s *Submitter) startSideChannels(ctx context.Context) func() {
	stopTimeline := func() {}
	if s.timeline != nil {
		stopTimeline = s.timeline.Start(s.ui.ShowProgress)
	}

	if s.statusSource == nil {
		return stopTimeline
	}

	feedCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := s.statusSource.Run(feedCtx, s.ui.ShowStatus); err != nil && feedCtx.Err() == nil {
			s.logger.Warn("status feed stopped", "error", err)
		}
	}()

	return func() {
		stopTimeline()
		cancel()
		<-done
	}
}

func transportMessage(err error) string {
	return "error communicating with the server: " + err.Error()
}

func messageOr(msg string) string {
	if strings.TrimSpace(msg) == "" {
		return defaultRejectedMessage
	}
	return msg
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
