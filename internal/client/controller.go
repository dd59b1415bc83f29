// Package client implements the editor-side suggestion controller: it decides
// when to ask the server for an inline completion, discards superseded
// replies, reveals suggestions incrementally and backs off on failures.
package client

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"suggestd/pkg/types"
)

// Defaults applied when the corresponding Options fields are zero.
const (
	DefaultDebounceBase    = 300 * time.Millisecond
	DefaultDebounceStep    = 150 * time.Millisecond
	DefaultDebounceMin     = 150 * time.Millisecond
	DefaultDebounceMax     = 800 * time.Millisecond
	DefaultTypingStop      = 250 * time.Millisecond
	DefaultMinIntervalBase = 300 * time.Millisecond
	DefaultMinIntervalCap  = 2 * time.Second
	DefaultRequestTimeout  = 6 * time.Second
	DefaultRevealInterval  = 16 * time.Millisecond
	DefaultRevealChunk     = 3
	DefaultErrorThreshold  = 3
	DefaultCooldownBase    = time.Second
	DefaultCooldownCap     = 30 * time.Second
	DefaultAuthCooldown    = 60 * time.Second

	// tailRunes is the window compared by the meaningful-change guard.
	tailRunes = 20
)

// Key identifies the editor keys the controller may consume.
type Key int

const (
	KeyOther Key = iota
	KeyTab
	KeyEscape
)

// NoticeKind classifies user-visible notices.
type NoticeKind string

const (
	NoticeAuth   NoticeKind = "auth"
	NoticeErrors NoticeKind = "errors"
)

// Notice is emitted when suggestions get disabled for a while.
type Notice struct {
	Kind    NoticeKind
	Message string
	Until   time.Time
	Err     error
}

// Options tunes timing and wires the controller's hooks. OnDisplay and
// OnNotice run while the controller lock is held and must not call back
// into the Controller.
type Options struct {
	DebounceBase    time.Duration
	DebounceStep    time.Duration
	DebounceMin     time.Duration
	DebounceMax     time.Duration
	TypingStop      time.Duration
	MinIntervalBase time.Duration
	MinIntervalCap  time.Duration
	RequestTimeout  time.Duration
	RevealInterval  time.Duration
	RevealChunk     int
	ErrorThreshold  int
	CooldownBase    time.Duration
	CooldownCap     time.Duration
	AuthCooldown    time.Duration

	// Request parameters; zero values leave the server defaults in place.
	MaxTokens   int
	Temperature *float64
	IsMarkdown  bool

	Clock  Clock
	Logger zerolog.Logger

	// OnDisplay receives the visible part of the suggestion, "" when cleared.
	OnDisplay func(visible string)
	OnNotice  func(Notice)
}

func (o *Options) applyDefaults() {
	setDur := func(p *time.Duration, d time.Duration) {
		if *p <= 0 {
			*p = d
		}
	}
	setDur(&o.DebounceBase, DefaultDebounceBase)
	setDur(&o.DebounceStep, DefaultDebounceStep)
	setDur(&o.DebounceMin, DefaultDebounceMin)
	setDur(&o.DebounceMax, DefaultDebounceMax)
	setDur(&o.TypingStop, DefaultTypingStop)
	setDur(&o.MinIntervalBase, DefaultMinIntervalBase)
	setDur(&o.MinIntervalCap, DefaultMinIntervalCap)
	setDur(&o.RequestTimeout, DefaultRequestTimeout)
	setDur(&o.RevealInterval, DefaultRevealInterval)
	setDur(&o.CooldownBase, DefaultCooldownBase)
	setDur(&o.CooldownCap, DefaultCooldownCap)
	setDur(&o.AuthCooldown, DefaultAuthCooldown)
	if o.RevealChunk <= 0 {
		o.RevealChunk = DefaultRevealChunk
	}
	if o.ErrorThreshold <= 0 {
		o.ErrorThreshold = DefaultErrorThreshold
	}
	if o.Clock == nil {
		o.Clock = realClock{}
	}
}

// State is a snapshot of the controller.
type State struct {
	Phase               Phase
	CurrentSuggestion   string
	DisplayedSuggestion string
	ConsecutiveErrors   int
	DisabledUntil       time.Time
	LastRequestAt       time.Time
	UserIsTyping        bool
	Seq                 uint64
}

type timerSlot struct {
	t   Timer
	gen uint64
}

// Controller serializes every input, key, timer and network completion
// through one mutex.
type Controller struct {
	mu    sync.Mutex
	opts  Options
	doc   Document
	req   Requester
	clock Clock
	log   zerolog.Logger

	phase             Phase
	current           string
	displayed         string
	consecutiveErrors int
	disabledUntil     time.Time
	lastRequestAt     time.Time
	userIsTyping      bool
	debounceDone      bool
	lastSent          string
	sent              bool
	seq               uint64
	cancel            context.CancelFunc
	closed            bool

	debounce timerSlot
	typing   timerSlot
	spacing  timerSlot
	reveal   timerSlot
	cooldown timerSlot
}

// New returns an idle controller for doc that fetches through req.
func New(doc Document, req Requester, opts Options) *Controller {
	opts.applyDefaults()
	return &Controller{
		opts:  opts,
		doc:   doc,
		req:   req,
		clock: opts.Clock,
		log:   opts.Logger,
		phase: PhaseIdle,
	}
}

// State returns a snapshot.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Phase:               c.phase,
		CurrentSuggestion:   c.current,
		DisplayedSuggestion: c.displayed,
		ConsecutiveErrors:   c.consecutiveErrors,
		DisabledUntil:       c.disabledUntil,
		LastRequestAt:       c.lastRequestAt,
		UserIsTyping:        c.userIsTyping,
		Seq:                 c.seq,
	}
}

// Input reports that the document content changed.
func (c *Controller) Input() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.clearSuggestion()
	c.abortRequest()
	c.userIsTyping = true
	c.arm(&c.typing, c.opts.TypingStop, c.onTypingStopped)
	if c.phase == PhaseDisabled {
		return
	}
	c.step(evInput)
	c.debounceDone = false
	c.stop(&c.spacing)
	c.arm(&c.debounce, c.debounceDelay(), c.onDebounce)
}

// Accept splices the full suggestion at the cursor and immediately starts a
// new cycle. It reports whether a suggestion was showing.
func (c *Controller) Accept() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.phase != PhaseDisplaying || c.current == "" {
		return false
	}
	s := c.current
	c.doc.Insert(c.doc.Cursor(), s)
	c.clearSuggestion()
	c.step(evAccept)
	c.stop(&c.debounce)
	c.stop(&c.typing)
	c.debounceDone = true
	c.userIsTyping = false
	c.log.Debug().Int("runes", len([]rune(s))).Msg("suggestion accepted")
	c.tryFire()
	return true
}

// Reject drops the visible suggestion.
func (c *Controller) Reject() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.phase != PhaseDisplaying {
		return false
	}
	c.clearSuggestion()
	c.step(evReject)
	return true
}

// HandleKey routes Tab and Escape and reports whether the key was consumed.
func (c *Controller) HandleKey(k Key) bool {
	switch k {
	case KeyTab:
		return c.Accept()
	case KeyEscape:
		return c.Reject()
	}
	return false
}

// Close stops every timer and cancels in-flight work.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	for _, s := range []*timerSlot{&c.debounce, &c.typing, &c.spacing, &c.reveal, &c.cooldown} {
		c.stop(s)
	}
	c.abortRequest()
	c.closed = true
}

func (c *Controller) onDebounce() {
	c.debounceDone = true
	c.tryFire()
}

func (c *Controller) onTypingStopped() {
	c.userIsTyping = false
	c.tryFire()
}

func (c *Controller) onCooldownEnd() {
	c.consecutiveErrors = 0
	c.disabledUntil = time.Time{}
	c.step(evCooldownEnd)
	c.log.Debug().Msg("suggestions re-enabled")
}

// tryFire sends a request once every gate is open.
func (c *Controller) tryFire() {
	if c.phase != PhaseDebouncing || !c.debounceDone || c.userIsTyping {
		return
	}
	now := c.clock.Now()
	if now.Before(c.disabledUntil) {
		return
	}
	if !c.lastRequestAt.IsZero() {
		if wait := c.minInterval() - now.Sub(c.lastRequestAt); wait > 0 {
			c.arm(&c.spacing, wait, c.tryFire)
			return
		}
	}
	text := textBeforeCursor(c.doc)
	if strings.TrimSpace(text) == "" || (c.sent && !meaningfulChange(c.lastSent, text)) {
		c.step(evSkip)
		return
	}
	c.send(text, now)
}

func (c *Controller) send(text string, now time.Time) {
	c.step(evFire)
	c.seq++
	seq := c.seq
	c.lastRequestAt = now
	c.lastSent, c.sent = text, true
	ctx, cancel := context.WithTimeout(context.Background(), c.opts.RequestTimeout)
	c.cancel = cancel
	req := types.SuggestRequest{
		Text:        text,
		MaxTokens:   c.opts.MaxTokens,
		Temperature: c.opts.Temperature,
		IsMarkdown:  c.opts.IsMarkdown,
	}
	c.log.Debug().Uint64("seq", seq).Int("chars", len([]rune(text))).Msg("suggestion requested")
	go func() {
		resp, err := c.req.Suggest(ctx, req)
		c.complete(seq, resp, err)
	}()
}

type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeNeutral
	outcomeFailure
	outcomeAuth
)

func classify(resp types.SuggestResponse, err error) outcome {
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.IsAuth() {
			return outcomeAuth
		}
		return outcomeFailure
	}
	switch resp.Error {
	case "":
		return outcomeSuccess
	case "auth":
		return outcomeAuth
	case "timeout", "upstream_error", "busy":
		return outcomeFailure
	}
	return outcomeNeutral
}

func (c *Controller) complete(seq uint64, resp types.SuggestResponse, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || seq != c.seq || c.phase != PhaseRequesting {
		c.log.Debug().Uint64("seq", seq).Uint64("current", c.seq).Msg("stale suggestion dropped")
		return
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	failed := false
	switch classify(resp, err) {
	case outcomeAuth:
		c.disable(c.opts.AuthCooldown, Notice{
			Kind:    NoticeAuth,
			Message: "Suggestions are unavailable: the server rejected the credentials.",
			Err:     err,
		})
		return
	case outcomeFailure:
		failed = true
		c.consecutiveErrors++
		c.log.Debug().Err(err).Str("error", resp.Error).Int("consecutive", c.consecutiveErrors).Msg("suggestion failed")
		if c.consecutiveErrors >= c.opts.ErrorThreshold {
			c.disable(c.cooldownFor(c.consecutiveErrors), Notice{
				Kind:    NoticeErrors,
				Message: "Suggestions paused after repeated errors.",
				Err:     err,
			})
			return
		}
	case outcomeSuccess:
		c.consecutiveErrors = 0
	}
	if strings.TrimSpace(resp.Suggestion) == "" {
		if failed {
			c.step(evFailure)
		} else {
			c.step(evEmpty)
		}
		return
	}
	c.step(evSuggestion)
	c.current = resp.Suggestion
	c.displayed = ""
	c.revealStep()
}

func (c *Controller) revealStep() {
	cur := []rune(c.current)
	n := len([]rune(c.displayed)) + c.opts.RevealChunk
	if n > len(cur) {
		n = len(cur)
	}
	c.displayed = string(cur[:n])
	if c.opts.OnDisplay != nil {
		c.opts.OnDisplay(c.displayed)
	}
	if n < len(cur) {
		c.arm(&c.reveal, c.opts.RevealInterval, c.revealStep)
	}
}

func (c *Controller) disable(d time.Duration, n Notice) {
	c.clearSuggestion()
	c.abortRequest()
	c.stop(&c.debounce)
	c.stop(&c.spacing)
	c.step(evDisable)
	c.disabledUntil = c.clock.Now().Add(d)
	n.Until = c.disabledUntil
	c.arm(&c.cooldown, d, c.onCooldownEnd)
	c.log.Warn().Str("kind", string(n.Kind)).Dur("cooldown", d).Int("consecutive", c.consecutiveErrors).Msg("suggestions disabled")
	if c.opts.OnNotice != nil {
		c.opts.OnNotice(n)
	}
}

func (c *Controller) clearSuggestion() {
	c.stop(&c.reveal)
	had := c.current != ""
	c.current, c.displayed = "", ""
	if had && c.opts.OnDisplay != nil {
		c.opts.OnDisplay("")
	}
}

// abortRequest cancels the in-flight call; bumping seq marks its reply stale.
func (c *Controller) abortRequest() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	c.cancel = nil
	c.seq++
	// an aborted request never produced a reply, so its text stays eligible
	c.sent = false
}

func (c *Controller) arm(s *timerSlot, d time.Duration, fn func()) {
	c.stop(s)
	gen := s.gen
	s.t = c.clock.AfterFunc(d, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closed || s.gen != gen {
			return
		}
		s.t = nil
		fn()
	})
}

func (c *Controller) stop(s *timerSlot) {
	if s.t != nil {
		s.t.Stop()
		s.t = nil
	}
	s.gen++
}

func (c *Controller) debounceDelay() time.Duration {
	d := c.opts.DebounceBase + time.Duration(c.consecutiveErrors)*c.opts.DebounceStep
	if d < c.opts.DebounceMin {
		d = c.opts.DebounceMin
	}
	if d > c.opts.DebounceMax {
		d = c.opts.DebounceMax
	}
	return d
}

func (c *Controller) minInterval() time.Duration {
	return doubled(c.opts.MinIntervalBase, c.consecutiveErrors, c.opts.MinIntervalCap)
}

func (c *Controller) cooldownFor(n int) time.Duration {
	return doubled(c.opts.CooldownBase, n-1, c.opts.CooldownCap)
}

// doubled returns base·2^n, capped at limit.
func doubled(base time.Duration, n int, limit time.Duration) time.Duration {
	d := base
	for i := 0; i < n && d < limit; i++ {
		d *= 2
	}
	if d > limit {
		d = limit
	}
	return d
}

func meaningfulChange(prev, cur string) bool {
	p, q := []rune(prev), []rune(cur)
	delta := len(q) - len(p)
	if delta < 0 {
		delta = -delta
	}
	if delta >= 2 {
		return true
	}
	return string(tail(p, tailRunes)) != string(tail(q, tailRunes))
}

func tail(r []rune, n int) []rune {
	if len(r) <= n {
		return r
	}
	return r[len(r)-n:]
}
