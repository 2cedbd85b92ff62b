package stream

import "sync"

// globalStreamCap bounds the total number of live SSE connections across all
// clients, so a fleet of well-behaved IPs cannot exhaust the server either.
const globalStreamCap = 1000

// streamLimiter admits SSE connections subject to a per-IP cap and the
// global cap. Slots are returned with release; an IP's entry is removed once
// its last connection closes so the map stays bounded by live clients.
type streamLimiter struct {
	mu       sync.Mutex
	perIP    map[string]int
	active   int
	maxPerIP int
}

func newStreamLimiter(maxPerIP int) *streamLimiter {
	return &streamLimiter{
		perIP:    make(map[string]int),
		maxPerIP: maxPerIP,
	}
}

// acquire claims a connection slot for ip. It fails when either cap is
// already reached.
func (l *streamLimiter) acquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.active >= globalStreamCap || l.perIP[ip] >= l.maxPerIP {
		return false
	}
	l.perIP[ip]++
	l.active++
	return true
}

// release returns a slot claimed by acquire.
func (l *streamLimiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.active--
	l.perIP[ip]--
	if l.perIP[ip] <= 0 {
		delete(l.perIP, ip)
	}
}

// count reports the live connections for ip.
func (l *streamLimiter) count(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.perIP[ip]
}
