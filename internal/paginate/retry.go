package paginate

// DefaultFrameAttempts bounds how many layout frames a DOM-style read
// will wait for elements that mount with a staggered entrance animation.
const DefaultFrameAttempts = 6

// Retry is a bounded retry-with-yield primitive. Yield hands control back
// to the scheduler between attempts (an animation frame in a GUI, a no-op
// in tests).
type Retry struct {
	Attempts int
	Yield    func()
}

// FrameRetry returns the standard bounded retry used for layout reads.
func FrameRetry(yield func()) Retry {
	return Retry{Attempts: DefaultFrameAttempts, Yield: yield}
}

// Do invokes fn until it reports done or attempts are exhausted.
// It returns whether fn ever completed.
func (r Retry) Do(fn func() bool) bool {
	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		if fn() {
			return true
		}
		if r.Yield != nil && i < attempts-1 {
			r.Yield()
		}
	}
	return false
}
