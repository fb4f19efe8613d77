package contact

// EffectKind names one change to the page, or a command for the dispatcher.
type EffectKind string

const (
	// EffectFieldError adds the "error" class to Field and shows Message next to it.
	EffectFieldError EffectKind = "field_error"
	// EffectFieldClear removes the "error" class and message from Field.
	EffectFieldClear    EffectKind = "field_clear"
	EffectDisableSubmit EffectKind = "disable_submit"
	EffectEnableSubmit  EffectKind = "enable_submit"
	// EffectSetBusy adds the "sending" class to the form.
	EffectSetBusy    EffectKind = "set_busy"
	EffectClearBusy  EffectKind = "clear_busy"
	EffectHideBanner EffectKind = "hide_banner"
	// EffectShowBanner shows Message with class Banner; a non-zero Delay hides it again.
	EffectShowBanner  EffectKind = "show_banner"
	EffectResetFields EffectKind = "reset_fields"

	CommandSendRelay EffectKind = "send_relay"
	CommandStartDemo EffectKind = "start_demo"
)

// Effect is one instruction produced by Transition.
type Effect struct {
	Kind    EffectKind `json:"kind"`
	Field   Role       `json:"field,omitempty"`
	Message string     `json:"message,omitempty"`
	Banner  BannerKind `json:"banner,omitempty"`
	Seq     uint64     `json:"seq,omitempty"`
	// Delay in milliseconds: auto-dismiss for banners, wait for the demo send.
	Delay int64 `json:"delay_ms,omitempty"`
}

// IsCommand reports whether the effect is addressed to the dispatcher rather
// than the page.
func (e Effect) IsCommand() bool {
	return e.Kind == CommandSendRelay || e.Kind == CommandStartDemo
}

// PageEffects drops dispatcher commands.
func PageEffects(effects []Effect) []Effect {
	out := make([]Effect, 0, len(effects))
	for _, e := range effects {
		if !e.IsCommand() {
			out = append(out, e)
		}
	}
	return out
}
