package ipc

import (
	"sync"

	"golang.org/x/time/rate"
)

// callerLimits throttles each caller on its own token bucket.
type callerLimits struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	callers map[string]*rate.Limiter
}

// newCallerLimits allows perSecond calls per caller with the given burst.
// A rate of zero or below disables throttling; config.AuthConfig passes a
// negative rate_limit through for that.
func newCallerLimits(perSecond float64, burst int) *callerLimits {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &callerLimits{
		limit:   limit,
		burst:   burst,
		callers: make(map[string]*rate.Limiter),
	}
}

func (c *callerLimits) limiter(caller string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.callers[caller]
	if !ok {
		l = rate.NewLimiter(c.limit, c.burst)
		c.callers[caller] = l
	}
	return l
}

func (c *callerLimits) Allow(caller string) bool {
	return c.limiter(caller).Allow()
}
