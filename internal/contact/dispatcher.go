package contact

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"contactrelay/internal/relay"
	"contactrelay/pkg/logger"
	"contactrelay/pkg/metrics"
)

// ErrClosed is returned by a dispatcher after Close.
var ErrClosed = errors.New("dispatcher is closed")

// Relay is the part of the mail-relay client the dispatcher uses.
type Relay interface {
	Send(ctx context.Context, serviceID, templateID string, fields relay.Fields) (*relay.Response, error)
}

// Outcome results, also used as metric labels.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeDemo      = "demo"
	OutcomeInvalid   = "invalid"
	OutcomeInFlight  = "in_flight"
)

// Outcome describes one finished send. It never carries the message itself.
type Outcome struct {
	AttemptID   string
	FormID      string
	Result      string
	Banner      BannerKind
	ErrorClass  string
	RelayStatus int
	SenderEmail string
	Duration    time.Duration
	FinishedAt  time.Time
}

// Reporter receives every finished send. Implementations must not block for long.
type Reporter interface {
	Report(ctx context.Context, o Outcome)
}

// Config is the relay configuration of a dispatcher, fixed at construction.
type Config struct {
	ServiceID  string
	TemplateID string
	ToName     string
	// Configured is false while the credentials are placeholders; the
	// dispatcher then runs the demo fallback.
	Configured bool
	// Timeout bounds one relay call. Zero means no bound.
	Timeout   time.Duration
	DemoDelay time.Duration
	BannerTTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.DemoDelay == 0 {
		c.DemoDelay = DemoDelay
	}
	if c.BannerTTL == 0 {
		c.BannerTTL = BannerTTL
	}
	return c
}

// Result is what a submit did to the page.
type Result struct {
	AttemptID   string      `json:"attempt_id,omitempty"`
	State       State       `json:"state"`
	Outcome     string      `json:"outcome"`
	Effects     []Effect    `json:"effects"`
	FieldErrors FieldErrors `json:"field_errors,omitempty"`
	Banner      *Banner     `json:"banner,omitempty"`
}

// Snapshot is the current state of a form.
type Snapshot struct {
	State       State       `json:"state"`
	Banner      Banner      `json:"banner"`
	FieldErrors FieldErrors `json:"field_errors,omitempty"`
}

// Dispatcher drives the submission state machine of one form: it applies
// Transition under a lock and executes the commands it emits.
type Dispatcher struct {
	formID   string
	cfg      Config
	relay    Relay
	reporter Reporter
	logger   *zap.Logger

	mu          sync.Mutex
	m           Machine
	bannerTimer *time.Timer
	closed      bool
}

// NewDispatcher creates a dispatcher in Idle. relay may be nil when the
// client could not be set up; every real send then fails. reporter may be nil.
func NewDispatcher(formID string, cfg Config, r Relay, reporter Reporter, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		formID:   formID,
		cfg:      cfg.withDefaults(),
		relay:    r,
		reporter: reporter,
		logger:   logger.With(zap.String("form_id", formID)),
		m:        Machine{State: StateIdle},
	}
}

// FormID identifies the form this dispatcher serves.
func (d *Dispatcher) FormID() string {
	return d.formID
}

// Submit runs one submission to completion. It returns ErrSubmissionInFlight
// when another Submit on the same form has not finished.
func (d *Dispatcher) Submit(ctx context.Context, form Form) (*Result, error) {
	log := logger.WithTrace(ctx, d.logger)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil, ErrClosed
	}
	m, effects, err := Transition(d.m, Submit{Form: form, Demo: !d.cfg.Configured})
	if err != nil {
		d.mu.Unlock()
		if errors.Is(err, ErrSubmissionInFlight) {
			metrics.IncrementSubmission(OutcomeInFlight)
			log.Info("Rejected overlapping submission")
		}
		return nil, err
	}
	m, validated, err := Transition(m, Validate{})
	if err != nil {
		d.mu.Unlock()
		return nil, err
	}
	d.m = m
	effects = append(effects, validated...)

	if m.State == StateIdle {
		d.mu.Unlock()
		metrics.IncrementSubmission(OutcomeInvalid)
		for field := range m.Errors {
			metrics.IncrementValidationError(string(field))
		}
		log.Info("Submission failed validation", zap.Int("invalid_fields", len(m.Errors)))
		return &Result{
			State:       StateIdle,
			Outcome:     OutcomeInvalid,
			Effects:     PageEffects(effects),
			FieldErrors: m.Errors,
		}, nil
	}

	sub := m.Submission()
	demo := m.Demo
	d.stopBannerTimerLocked()
	d.mu.Unlock()

	attemptID := uuid.NewString()
	start := time.Now()

	var (
		ev      Event
		status  int
		sendErr error
	)
	if demo {
		ev, sendErr = d.runDemo(ctx, sub, log)
	} else {
		ev, status, sendErr = d.send(ctx, sub)
	}

	d.mu.Lock()
	m, finished, err := Transition(d.m, ev)
	if err != nil {
		d.mu.Unlock()
		return nil, err
	}
	terminal := m
	if terminal.Banner.Visible && terminal.Banner.Kind == BannerSuccess && !d.closed {
		d.scheduleBannerLocked(terminal.Banner.Seq)
	}
	d.m, _, _ = Transition(m, Reported{})
	d.mu.Unlock()
	effects = append(effects, finished...)

	outcome := Outcome{
		AttemptID:   attemptID,
		FormID:      d.formID,
		Result:      resultOf(terminal.State, demo),
		Banner:      terminal.Banner.Kind,
		ErrorClass:  relay.Classify(sendErr),
		RelayStatus: status,
		SenderEmail: sub.Email,
		Duration:    time.Since(start),
		FinishedAt:  time.Now(),
	}
	metrics.IncrementSubmission(outcome.Result)
	if sendErr != nil {
		log.Warn("Submission failed",
			zap.String("attempt_id", attemptID),
			zap.String("error_class", outcome.ErrorClass),
			zap.Error(sendErr),
		)
	} else {
		log.Info("Submission delivered",
			zap.String("attempt_id", attemptID),
			zap.String("outcome", outcome.Result),
			zap.Duration("took", outcome.Duration),
		)
	}
	if d.reporter != nil {
		d.reporter.Report(ctx, outcome)
	}

	banner := terminal.Banner
	return &Result{
		AttemptID: attemptID,
		State:     terminal.State,
		Outcome:   outcome.Result,
		Effects:   PageEffects(effects),
		Banner:    &banner,
	}, nil
}

// send performs the single relay attempt of a submission.
func (d *Dispatcher) send(ctx context.Context, sub *Submission) (Event, int, error) {
	if d.relay == nil {
		return RelayFailed{}, 0, relay.ErrNotInitialized
	}

	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}

	resp, err := d.relay.Send(ctx, d.cfg.ServiceID, d.cfg.TemplateID, sub.RelayFields(d.cfg.ToName))
	if err != nil {
		var rejection *relay.Error
		if errors.As(err, &rejection) {
			return RelayFailed{Text: rejection.Text}, rejection.Status, err
		}
		return RelayFailed{}, 0, err
	}
	return RelaySucceeded{}, resp.Status, nil
}

// runDemo waits out the demo delay without touching the network.
func (d *Dispatcher) runDemo(ctx context.Context, sub *Submission, log *zap.Logger) (Event, error) {
	log.Info("Relay not configured, simulating delivery",
		zap.String("subject", sub.Subject),
		zap.Duration("delay", d.cfg.DemoDelay),
	)

	timer := time.NewTimer(d.cfg.DemoDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return DemoElapsed{}, nil
	case <-ctx.Done():
		return RelayFailed{}, ctx.Err()
	}
}

// Blur validates a single input as the user leaves it.
func (d *Dispatcher) Blur(field Role, value string) []Effect {
	return d.applyLocal(FieldBlurred{Field: field, Value: value})
}

// Edit clears the error of an input the user is typing in.
func (d *Dispatcher) Edit(field Role) []Effect {
	return d.applyLocal(FieldEdited{Field: field})
}

func (d *Dispatcher) applyLocal(ev Event) []Effect {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, effects, err := Transition(d.m, ev)
	if err != nil {
		return nil
	}
	d.m = m
	return effects
}

// Snapshot returns the current state, banner and field errors.
func (d *Dispatcher) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Snapshot{
		State:       d.m.State,
		Banner:      d.m.Banner,
		FieldErrors: copyErrors(d.m.Errors),
	}
}

// Busy reports whether a submission is in progress.
func (d *Dispatcher) Busy() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.m.State != StateIdle
}

// Close stops pending timers. A closed dispatcher rejects new submissions.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.stopBannerTimerLocked()
}

func (d *Dispatcher) scheduleBannerLocked(seq uint64) {
	d.stopBannerTimerLocked()
	d.bannerTimer = time.AfterFunc(d.cfg.BannerTTL, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.closed {
			return
		}
		if m, _, err := Transition(d.m, BannerExpired{Seq: seq}); err == nil {
			d.m = m
		}
	})
}

func (d *Dispatcher) stopBannerTimerLocked() {
	if d.bannerTimer != nil {
		d.bannerTimer.Stop()
		d.bannerTimer = nil
	}
}

func resultOf(s State, demo bool) string {
	switch {
	case s == StateSucceeded && demo:
		return OutcomeDemo
	case s == StateSucceeded:
		return OutcomeSucceeded
	default:
		return OutcomeFailed
	}
}
