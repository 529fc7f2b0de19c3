package syncer

import (
	"sync"

	"golang.org/x/time/rate"
)

// limiterPool hands out one token-bucket limiter per scope key so a hot
// scope cannot crowd out fetches for the others.
type limiterPool struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func newLimiterPool(rps float64, burst int) *limiterPool {
	if rps <= 0 {
		rps = 5
	}
	if burst <= 0 {
		burst = 10
	}
	return &limiterPool{
		limiters: map[string]*rate.Limiter{},
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

// allow reports whether a fetch for scope may proceed right now.
func (p *limiterPool) allow(scope string) bool {
	p.mu.Lock()
	lim, ok := p.limiters[scope]
	if !ok {
		lim = rate.NewLimiter(p.rps, p.burst)
		p.limiters[scope] = lim
	}
	p.mu.Unlock()
	return lim.Allow()
}
