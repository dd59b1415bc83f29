package client

// Phase names the controller's state.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseDebouncing Phase = "debouncing"
	PhaseRequesting Phase = "requesting"
	PhaseDisplaying Phase = "displaying"
	PhaseDisabled   Phase = "disabled"
)

type event string

const (
	evInput       event = "input"
	evFire        event = "fire"
	evSkip        event = "skip"
	evSuggestion  event = "suggestion"
	evEmpty       event = "empty"
	evFailure     event = "failure"
	evAccept      event = "accept"
	evReject      event = "reject"
	evDisable     event = "disable"
	evCooldownEnd event = "cooldown_end"
)

// transitions is the complete (phase, event) table. Pairs that are absent
// are ignored.
var transitions = map[Phase]map[event]Phase{
	PhaseIdle: {
		evInput:   PhaseDebouncing,
		evDisable: PhaseDisabled,
	},
	PhaseDebouncing: {
		evInput:   PhaseDebouncing,
		evFire:    PhaseRequesting,
		evSkip:    PhaseIdle,
		evAccept:  PhaseDebouncing,
		evDisable: PhaseDisabled,
	},
	PhaseRequesting: {
		evInput:      PhaseDebouncing,
		evSuggestion: PhaseDisplaying,
		evEmpty:      PhaseIdle,
		evFailure:    PhaseIdle,
		evDisable:    PhaseDisabled,
	},
	PhaseDisplaying: {
		evInput:   PhaseDebouncing,
		evAccept:  PhaseDebouncing,
		evReject:  PhaseIdle,
		evDisable: PhaseDisabled,
	},
	PhaseDisabled: {
		evCooldownEnd: PhaseIdle,
	},
}

// step applies ev to the current phase.
func (c *Controller) step(ev event) bool {
	next, ok := transitions[c.phase][ev]
	if !ok {
		c.log.Debug().Str("phase", string(c.phase)).Str("event", string(ev)).Msg("event ignored")
		return false
	}
	if next != c.phase {
		c.log.Debug().Str("from", string(c.phase)).Str("to", string(next)).Str("event", string(ev)).Msg("phase")
	}
	c.phase = next
	return true
}
