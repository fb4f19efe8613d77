package contact

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"contactrelay/internal/relay"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeRelay struct {
	mu      sync.Mutex
	calls   []relay.Fields
	resp    *relay.Response
	err     error
	release chan struct{}
	entered chan struct{}
}

func (f *fakeRelay) Send(ctx context.Context, serviceID, templateID string, fields relay.Fields) (*relay.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, fields)
	f.mu.Unlock()

	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.resp != nil {
		return f.resp, nil
	}
	return &relay.Response{Status: 200, Text: "OK"}, nil
}

func (f *fakeRelay) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type recordingReporter struct {
	mu       sync.Mutex
	outcomes []Outcome
}

func (r *recordingReporter) Report(_ context.Context, o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

func (r *recordingReporter) last() Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.outcomes[len(r.outcomes)-1]
}

func configured() Config {
	return Config{
		ServiceID:  "svc",
		TemplateID: "tpl",
		ToName:     "Portfolio Owner",
		Configured: true,
	}
}

func newTestDispatcher(t *testing.T, cfg Config, r Relay) (*Dispatcher, *recordingReporter) {
	t.Helper()
	rep := &recordingReporter{}
	d := NewDispatcher("form-1", cfg, r, rep, zap.NewNop())
	t.Cleanup(d.Close)
	return d, rep
}

func hasEffect(effects []Effect, kind EffectKind) bool {
	for _, e := range effects {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

func TestDispatcherSuccess(t *testing.T) {
	fr := &fakeRelay{}
	d, rep := newTestDispatcher(t, configured(), fr)

	res, err := d.Submit(context.Background(), validForm())
	require.NoError(t, err)

	assert.Equal(t, StateSucceeded, res.State)
	assert.Equal(t, OutcomeSucceeded, res.Outcome)
	assert.Equal(t, SuccessMessage, res.Banner.Message)
	assert.True(t, hasEffect(res.Effects, EffectResetFields))
	assert.Equal(t, EffectClearBusy, res.Effects[len(res.Effects)-1].Kind)
	assert.False(t, hasEffect(res.Effects, CommandSendRelay), "commands are not page effects")

	require.Equal(t, 1, fr.callCount())
	assert.Equal(t, "Portfolio Owner", fr.calls[0]["to_name"])

	assert.False(t, d.Busy(), "submit control is enabled again")
	assert.Equal(t, StateIdle, d.Snapshot().State)

	out := rep.last()
	assert.Equal(t, OutcomeSucceeded, out.Result)
	assert.Equal(t, 200, out.RelayStatus)
	assert.Equal(t, "ada@example.com", out.SenderEmail)
	assert.NotEmpty(t, out.AttemptID)
}

func TestDispatcherRelayRejection(t *testing.T) {
	fr := &fakeRelay{err: &relay.Error{Status: 400, Text: "The template ID is invalid"}}
	d, rep := newTestDispatcher(t, configured(), fr)

	res, err := d.Submit(context.Background(), validForm())
	require.NoError(t, err)

	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, "Error: The template ID is invalid", res.Banner.Message)
	assert.False(t, hasEffect(res.Effects, EffectResetFields), "values are preserved")
	assert.True(t, hasEffect(res.Effects, EffectEnableSubmit))
	assert.False(t, d.Busy())

	out := rep.last()
	assert.Equal(t, OutcomeFailed, out.Result)
	assert.Equal(t, "relay_rejected", out.ErrorClass)
	assert.Equal(t, 400, out.RelayStatus)
}

func TestDispatcherRelayUnavailable(t *testing.T) {
	d, rep := newTestDispatcher(t, configured(), nil)

	res, err := d.Submit(context.Background(), validForm())
	require.NoError(t, err)

	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, GenericFailure, res.Banner.Message)
	assert.Equal(t, "relay_unavailable", rep.last().ErrorClass)
}

func TestDispatcherInvalidFormMakesNoCall(t *testing.T) {
	fr := &fakeRelay{}
	d, rep := newTestDispatcher(t, configured(), fr)

	form := validForm()
	form.Email = "not-an-email"
	res, err := d.Submit(context.Background(), form)
	require.NoError(t, err)

	assert.Equal(t, StateIdle, res.State)
	assert.Equal(t, OutcomeInvalid, res.Outcome)
	assert.Equal(t, FieldErrors{RoleEmail: "Please enter a valid email address"}, res.FieldErrors)
	assert.Zero(t, fr.callCount())
	assert.Empty(t, rep.outcomes)
	assert.False(t, hasEffect(res.Effects, EffectDisableSubmit))
}

func TestDispatcherDemoMode(t *testing.T) {
	fr := &fakeRelay{}
	cfg := configured()
	cfg.Configured = false
	cfg.DemoDelay = 20 * time.Millisecond
	d, rep := newTestDispatcher(t, cfg, fr)

	start := time.Now()
	res, err := d.Submit(context.Background(), validForm())
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.Equal(t, StateSucceeded, res.State)
	assert.Equal(t, OutcomeDemo, res.Outcome)
	assert.Equal(t, DemoMessage, res.Banner.Message)
	assert.Zero(t, fr.callCount(), "demo mode never calls the relay")
	assert.Equal(t, OutcomeDemo, rep.last().Result)
}

func TestDispatcherRejectsOverlappingSubmit(t *testing.T) {
	fr := &fakeRelay{release: make(chan struct{}), entered: make(chan struct{}, 1)}
	d, _ := newTestDispatcher(t, configured(), fr)

	done := make(chan *Result)
	go func() {
		res, err := d.Submit(context.Background(), validForm())
		assert.NoError(t, err)
		done <- res
	}()

	<-fr.entered
	assert.True(t, d.Busy())
	assert.Equal(t, StateSending, d.Snapshot().State)

	_, err := d.Submit(context.Background(), validForm())
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	close(fr.release)
	res := <-done
	assert.Equal(t, StateSucceeded, res.State)
	assert.Equal(t, 1, fr.callCount())
	assert.False(t, d.Busy())
}

func TestDispatcherTimeout(t *testing.T) {
	fr := &fakeRelay{release: make(chan struct{})}
	cfg := configured()
	cfg.Timeout = 20 * time.Millisecond
	d, rep := newTestDispatcher(t, cfg, fr)

	res, err := d.Submit(context.Background(), validForm())
	require.NoError(t, err)

	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, GenericFailure, res.Banner.Message)
	assert.Equal(t, "timeout", rep.last().ErrorClass)
}

func TestDispatcherBannerAutoDismiss(t *testing.T) {
	cfg := configured()
	cfg.BannerTTL = 20 * time.Millisecond
	d, _ := newTestDispatcher(t, cfg, &fakeRelay{})

	_, err := d.Submit(context.Background(), validForm())
	require.NoError(t, err)
	assert.True(t, d.Snapshot().Banner.Visible)

	assert.Eventually(t, func() bool {
		return !d.Snapshot().Banner.Visible
	}, time.Second, 5*time.Millisecond)
}

func TestDispatcherErrorBannerStays(t *testing.T) {
	cfg := configured()
	cfg.BannerTTL = 10 * time.Millisecond
	d, _ := newTestDispatcher(t, cfg, &fakeRelay{err: &relay.Error{Status: 422}})

	_, err := d.Submit(context.Background(), validForm())
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)
	assert.True(t, d.Snapshot().Banner.Visible)
}

func TestDispatcherClosed(t *testing.T) {
	d, _ := newTestDispatcher(t, configured(), &fakeRelay{})
	d.Close()

	_, err := d.Submit(context.Background(), validForm())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestDispatcherBlurAndEdit(t *testing.T) {
	d, _ := newTestDispatcher(t, configured(), &fakeRelay{})

	effects := d.Blur(RoleName, "A")
	require.Len(t, effects, 1)
	assert.Equal(t, "Name must be at least 2 characters", effects[0].Message)
	assert.Contains(t, d.Snapshot().FieldErrors, RoleName)

	d.Edit(RoleName)
	assert.NotContains(t, d.Snapshot().FieldErrors, RoleName)
}
