package suggest

// limiter bounds concurrent upstream calls with a channel semaphore.
type limiter struct {
	slots chan struct{}
}

func newLimiter(n int) *limiter {
	return &limiter{slots: make(chan struct{}, n)}
}

// tryAcquire reserves a slot without waiting. The returned release func must
// be called exactly once when ok is true.
func (l *limiter) tryAcquire() (release func(), ok bool) {
	select {
	case l.slots <- struct{}{}:
		return func() { <-l.slots }, true
	default:
		return func() {}, false
	}
}

func (l *limiter) inflight() int { return len(l.slots) }
func (l *limiter) capacity() int { return cap(l.slots) }
