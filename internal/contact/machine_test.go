package contact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func step(t *testing.T, m Machine, ev Event) (Machine, []Effect) {
	t.Helper()
	next, effects, err := Transition(m, ev)
	require.NoError(t, err)
	return next, effects
}

func kinds(effects []Effect) []EffectKind {
	out := make([]EffectKind, 0, len(effects))
	for _, e := range effects {
		out = append(out, e.Kind)
	}
	return out
}

func sending(t *testing.T, demo bool) Machine {
	t.Helper()
	m, _ := step(t, Machine{State: StateIdle}, Submit{Form: validForm(), Demo: demo})
	m, _ = step(t, m, Validate{})
	require.Equal(t, StateSending, m.State)
	return m
}

func TestSubmitEntersValidating(t *testing.T) {
	m, effects := step(t, Machine{State: StateIdle}, Submit{Form: validForm()})

	assert.Equal(t, StateValidating, m.State)
	assert.Empty(t, effects)
}

func TestInvalidFormReturnsToIdle(t *testing.T) {
	m, _ := step(t, Machine{State: StateIdle}, Submit{Form: Form{Name: "A", Email: "a@b.c"}})
	m, effects := step(t, m, Validate{})

	assert.Equal(t, StateIdle, m.State)
	assert.Nil(t, m.Submission())
	assert.Equal(t, "A", m.Form.Name, "values are kept for correction")
	assert.Equal(t, []Effect{
		{Kind: EffectFieldError, Field: RoleName, Message: "Name must be at least 2 characters"},
		{Kind: EffectFieldClear, Field: RoleEmail},
		{Kind: EffectFieldError, Field: RoleSubject, Message: "Subject is required"},
		{Kind: EffectFieldError, Field: RoleMessage, Message: "Message is required"},
	}, effects)
}

func TestValidFormStartsSending(t *testing.T) {
	m, _ := step(t, Machine{State: StateIdle, Banner: Banner{Kind: BannerError, Visible: true, Seq: 3}}, Submit{Form: validForm()})
	m, effects := step(t, m, Validate{})

	assert.Equal(t, StateSending, m.State)
	require.NotNil(t, m.Submission())
	assert.False(t, m.Banner.Visible)
	assert.Equal(t, []EffectKind{
		EffectFieldClear, EffectFieldClear, EffectFieldClear, EffectFieldClear,
		EffectDisableSubmit, EffectSetBusy, EffectHideBanner, CommandSendRelay,
	}, kinds(effects))
}

func TestDemoSubmitSchedulesDemo(t *testing.T) {
	m, _ := step(t, Machine{State: StateIdle}, Submit{Form: validForm(), Demo: true})
	_, effects := step(t, m, Validate{})

	last := effects[len(effects)-1]
	assert.Equal(t, CommandStartDemo, last.Kind)
	assert.EqualValues(t, 1500, last.Delay)
}

func TestSubmitWhileBusyIsRejected(t *testing.T) {
	m := sending(t, false)

	next, effects, err := Transition(m, Submit{Form: validForm()})

	assert.ErrorIs(t, err, ErrSubmissionInFlight)
	assert.Nil(t, effects)
	assert.Equal(t, StateSending, next.State)
}

func TestRelaySuccess(t *testing.T) {
	m, effects := step(t, sending(t, false), RelaySucceeded{})

	assert.Equal(t, StateSucceeded, m.State)
	assert.Equal(t, Form{}, m.Form)
	assert.Equal(t, []Effect{
		{Kind: EffectShowBanner, Banner: BannerSuccess, Message: SuccessMessage, Seq: 1, Delay: 5000},
		{Kind: EffectResetFields},
		{Kind: EffectEnableSubmit},
		{Kind: EffectClearBusy},
	}, effects)

	m, effects = step(t, m, Reported{})
	assert.Equal(t, StateIdle, m.State)
	assert.Empty(t, effects)
}

func TestRelayFailureWithText(t *testing.T) {
	m, effects := step(t, sending(t, false), RelayFailed{Text: "The service ID is invalid"})

	assert.Equal(t, StateFailed, m.State)
	assert.Equal(t, validForm(), m.Form, "values survive a failed send")
	assert.Equal(t, []Effect{
		{Kind: EffectShowBanner, Banner: BannerError, Message: "Error: The service ID is invalid", Seq: 1},
		{Kind: EffectEnableSubmit},
		{Kind: EffectClearBusy},
	}, effects)
}

func TestRelayFailureWithoutText(t *testing.T) {
	m, effects := step(t, sending(t, false), RelayFailed{})

	assert.Equal(t, GenericFailure, m.Banner.Message)
	assert.Equal(t, GenericFailure, effects[0].Message)
	assert.Zero(t, effects[0].Delay, "error banners stay up")
}

func TestDemoElapsedIsDistinguishable(t *testing.T) {
	m, effects := step(t, sending(t, true), DemoElapsed{})

	assert.Equal(t, StateSucceeded, m.State)
	assert.Equal(t, DemoMessage, effects[0].Message)
	assert.NotEqual(t, SuccessMessage, DemoMessage)
	assert.Contains(t, kinds(effects), EffectResetFields)
}

func TestRelayEventsMustMatchMode(t *testing.T) {
	_, _, err := Transition(sending(t, true), RelaySucceeded{})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, _, err = Transition(sending(t, false), DemoElapsed{})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, _, err = Transition(Machine{State: StateIdle}, RelayFailed{})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, _, err = Transition(Machine{State: StateIdle}, Reported{})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestBannerExpiresOnlyForCurrentBanner(t *testing.T) {
	m, _ := step(t, sending(t, false), RelaySucceeded{})
	m, _ = step(t, m, Reported{})

	stale, effects := step(t, m, BannerExpired{Seq: m.Banner.Seq - 1})
	assert.True(t, stale.Banner.Visible)
	assert.Empty(t, effects)

	m, effects = step(t, m, BannerExpired{Seq: m.Banner.Seq})
	assert.False(t, m.Banner.Visible)
	assert.Equal(t, []Effect{{Kind: EffectHideBanner}}, effects)
}

func TestFieldBlurAndEdit(t *testing.T) {
	m, effects := step(t, Machine{State: StateIdle}, FieldBlurred{Field: RoleEmail, Value: "a@b"})
	assert.Equal(t, []Effect{{Kind: EffectFieldError, Field: RoleEmail, Message: "Please enter a valid email address"}}, effects)
	assert.Equal(t, "Please enter a valid email address", m.Errors[RoleEmail])

	m, effects = step(t, m, FieldEdited{Field: RoleEmail})
	assert.Equal(t, []Effect{{Kind: EffectFieldClear, Field: RoleEmail}}, effects)
	assert.NotContains(t, m.Errors, RoleEmail)
}

func TestTransitionDoesNotMutateInput(t *testing.T) {
	m := Machine{State: StateIdle, Errors: FieldErrors{RoleName: "Name is required"}}

	_, _ = step(t, m, FieldEdited{Field: RoleName})

	assert.Equal(t, "Name is required", m.Errors[RoleName])
}
