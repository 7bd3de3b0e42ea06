package verifier

import "sync"

// DomainLimiter is an admission gate for SMTP probes: it bounds how many
// probes may target one destination domain and the process as a whole,
// so the scrubber never hammers a single receiving server. It is not a
// queue; waiters are admitted in no particular order, which is fine
// because verification order carries no meaning.
type DomainLimiter struct {
	mu        sync.Mutex
	cond      *sync.Cond
	perDomain map[string]int
	inFlight  int
	domainCap int
	globalCap int
}

func NewDomainLimiter(domainCap, globalCap int) *DomainLimiter {
	if domainCap <= 0 {
		domainCap = 5
	}
	if globalCap <= 0 {
		globalCap = 200
	}
	l := &DomainLimiter{
		perDomain: make(map[string]int),
		domainCap: domainCap,
		globalCap: globalCap,
	}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Acquire blocks until both the domain slot and a global slot are free,
// then claims them. Every Acquire must be paired with exactly one
// Release, normally via defer.
func (l *DomainLimiter) Acquire(domain string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.perDomain[domain] >= l.domainCap || l.inFlight >= l.globalCap {
		l.cond.Wait()
	}
	l.perDomain[domain]++
	l.inFlight++
}

// Release returns the slots claimed by Acquire. Counters floor at zero.
func (l *DomainLimiter) Release(domain string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.perDomain[domain] > 0 {
		l.perDomain[domain]--
		if l.perDomain[domain] == 0 {
			delete(l.perDomain, domain)
		}
	}
	if l.inFlight > 0 {
		l.inFlight--
	}
	l.cond.Broadcast()
}

// InFlight reports the current counters for a domain and globally.
func (l *DomainLimiter) InFlight(domain string) (domainCount, globalCount int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.perDomain[domain], l.inFlight
}
