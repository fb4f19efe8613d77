package contact

import (
	"errors"
	"fmt"
	"time"
)

// State is a step of the submission workflow.
type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateSending    State = "sending"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// BannerKind doubles as the status element's CSS class.
type BannerKind string

const (
	BannerSuccess BannerKind = "success"
	BannerError   BannerKind = "error"
)

const (
	SuccessMessage = "Thank you! Your message has been sent successfully. I'll get back to you soon!"
	DemoMessage    = "Demo mode: the mail relay is not configured yet. Please update the relay credentials in the service configuration."
	GenericFailure = "Oops! Something went wrong. Please try again or contact me directly via email."

	// BannerTTL is how long a success banner stays up.
	BannerTTL = 5 * time.Second
	// DemoDelay is how long the demo fallback pretends to send.
	DemoDelay = 1500 * time.Millisecond
)

var (
	// ErrSubmissionInFlight rejects a submit while the previous one is unfinished.
	ErrSubmissionInFlight = errors.New("a submission is already in flight")
	ErrInvalidTransition  = errors.New("invalid transition")
)

// Banner is the status region under the form.
type Banner struct {
	Kind    BannerKind `json:"kind"`
	Message string     `json:"message"`
	Visible bool       `json:"visible"`
	Seq     uint64     `json:"seq"`
}

// Machine is the whole state of one form. It is a value; Transition never
// mutates its argument.
type Machine struct {
	State  State
	Form   Form
	Demo   bool
	Errors FieldErrors
	Banner Banner

	submission *Submission
}

// Submission returns the validated submission while Sending.
func (m Machine) Submission() *Submission {
	return m.submission
}

// Event is an input to Transition.
type Event interface {
	isEvent()
}

// Submit is the user pressing the submit control.
type Submit struct {
	Form Form
	// Demo selects the fallback that never contacts the relay.
	Demo bool
}

// Validate runs the form validator on the submitted values.
type Validate struct{}

// RelaySucceeded reports that the relay accepted the email.
type RelaySucceeded struct{}

// RelayFailed reports a rejected or impossible send. Text is the relay's own
// explanation, empty when there is none.
type RelayFailed struct {
	Text string
}

// DemoElapsed ends a demo send.
type DemoElapsed struct{}

// Reported returns a finished form to Idle.
type Reported struct{}

// BannerExpired hides the banner numbered Seq, if it is still the current one.
type BannerExpired struct {
	Seq uint64
}

// FieldBlurred validates one input on its own.
type FieldBlurred struct {
	Field Role
	Value string
}

// FieldEdited clears the error of an input the user is typing in.
type FieldEdited struct {
	Field Role
}

func (Submit) isEvent()         {}
func (Validate) isEvent()       {}
func (RelaySucceeded) isEvent() {}
func (RelayFailed) isEvent()    {}
func (DemoElapsed) isEvent()    {}
func (Reported) isEvent()       {}
func (BannerExpired) isEvent()  {}
func (FieldBlurred) isEvent()   {}
func (FieldEdited) isEvent()    {}

// Transition computes the next machine and the effects to apply. On error the
// returned machine is m unchanged and there are no effects.
func Transition(m Machine, ev Event) (Machine, []Effect, error) {
	next := m
	next.Errors = copyErrors(m.Errors)

	switch e := ev.(type) {
	case Submit:
		if m.State != StateIdle {
			return m, nil, ErrSubmissionInFlight
		}
		next.State = StateValidating
		next.Form = e.Form
		next.Demo = e.Demo
		return next, nil, nil

	case Validate:
		if m.State != StateValidating {
			return m, nil, invalid(m.State, ev)
		}
		sub, errs := NewSubmission(m.Form)
		effects := fieldEffects(errs)
		next.Errors = errs
		if sub == nil {
			next.State = StateIdle
			return next, effects, nil
		}
		next.State = StateSending
		next.submission = sub
		next.Banner.Visible = false
		effects = append(effects,
			Effect{Kind: EffectDisableSubmit},
			Effect{Kind: EffectSetBusy},
			Effect{Kind: EffectHideBanner},
		)
		if m.Demo {
			effects = append(effects, Effect{Kind: CommandStartDemo, Delay: millis(DemoDelay)})
		} else {
			effects = append(effects, Effect{Kind: CommandSendRelay})
		}
		return next, effects, nil

	case RelaySucceeded:
		if m.State != StateSending || m.Demo {
			return m, nil, invalid(m.State, ev)
		}
		return succeed(next, SuccessMessage)

	case DemoElapsed:
		if m.State != StateSending || !m.Demo {
			return m, nil, invalid(m.State, ev)
		}
		return succeed(next, DemoMessage)

	case RelayFailed:
		if m.State != StateSending {
			return m, nil, invalid(m.State, ev)
		}
		msg := GenericFailure
		if e.Text != "" {
			msg = "Error: " + e.Text
		}
		next.State = StateFailed
		next.submission = nil
		effects := []Effect{showBanner(&next, BannerError, msg)}
		return next, append(effects, finally()...), nil

	case Reported:
		if m.State != StateSucceeded && m.State != StateFailed {
			return m, nil, invalid(m.State, ev)
		}
		next.State = StateIdle
		next.Demo = false
		return next, nil, nil

	case BannerExpired:
		if !m.Banner.Visible || m.Banner.Seq != e.Seq {
			return next, nil, nil
		}
		next.Banner.Visible = false
		return next, []Effect{{Kind: EffectHideBanner}}, nil

	case FieldBlurred:
		msg := ValidateField(e.Field, e.Value)
		if msg == "" {
			delete(next.Errors, e.Field)
			return next, []Effect{{Kind: EffectFieldClear, Field: e.Field}}, nil
		}
		if next.Errors == nil {
			next.Errors = make(FieldErrors)
		}
		next.Errors[e.Field] = msg
		return next, []Effect{{Kind: EffectFieldError, Field: e.Field, Message: msg}}, nil

	case FieldEdited:
		delete(next.Errors, e.Field)
		return next, []Effect{{Kind: EffectFieldClear, Field: e.Field}}, nil
	}

	return m, nil, fmt.Errorf("%w: unknown event %T", ErrInvalidTransition, ev)
}

func succeed(next Machine, msg string) (Machine, []Effect, error) {
	next.State = StateSucceeded
	next.Form = Form{}
	next.submission = nil
	effects := []Effect{
		showBanner(&next, BannerSuccess, msg),
		{Kind: EffectResetFields},
	}
	return next, append(effects, finally()...), nil
}

// finally runs on every terminal state.
func finally() []Effect {
	return []Effect{
		{Kind: EffectEnableSubmit},
		{Kind: EffectClearBusy},
	}
}

func showBanner(m *Machine, kind BannerKind, msg string) Effect {
	m.Banner = Banner{Kind: kind, Message: msg, Visible: true, Seq: m.Banner.Seq + 1}
	e := Effect{Kind: EffectShowBanner, Banner: kind, Message: msg, Seq: m.Banner.Seq}
	if kind == BannerSuccess {
		e.Delay = millis(BannerTTL)
	}
	return e
}

func fieldEffects(errs FieldErrors) []Effect {
	effects := make([]Effect, 0, len(RequiredFields))
	for _, role := range RequiredFields {
		if msg, bad := errs[role]; bad {
			effects = append(effects, Effect{Kind: EffectFieldError, Field: role, Message: msg})
		} else {
			effects = append(effects, Effect{Kind: EffectFieldClear, Field: role})
		}
	}
	return effects
}

func copyErrors(errs FieldErrors) FieldErrors {
	if errs == nil {
		return nil
	}
	out := make(FieldErrors, len(errs))
	for k, v := range errs {
		out[k] = v
	}
	return out
}

func invalid(s State, ev Event) error {
	return fmt.Errorf("%w: %T in state %s", ErrInvalidTransition, ev, s)
}

func millis(d time.Duration) int64 {
	return d.Milliseconds()
}
