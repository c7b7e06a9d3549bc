package middleware

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultRateWindowSeconds = 60
	visitorIdleTimeout       = 3 * time.Minute
	visitorCleanupInterval   = time.Minute
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimitManager owns per-client limiters and evicts idle ones in the background.
type RateLimitManager struct {
	visitors   map[string]*visitor
	visitorsMu sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

func NewRateLimitManager(ctx context.Context) *RateLimitManager {
	managerCtx, cancel := context.WithCancel(ctx)

	m := &RateLimitManager{
		visitors: make(map[string]*visitor),
		ctx:      managerCtx,
		cancel:   cancel,
	}

	m.wg.Add(1)
	go m.cleanupLoop()

	return m
}

// GetVisitor returns the limiter for key, creating it on first use. A nil
// limiter means rate limiting is disabled.
func (m *RateLimitManager) GetVisitor(key string, requestsPerWindow int, windowSeconds int, burst int) *rate.Limiter {
	if requestsPerWindow <= 0 {
		return nil
	}

	m.visitorsMu.Lock()
	defer m.visitorsMu.Unlock()

	if v, exists := m.visitors[key]; exists {
		v.lastSeen = time.Now()
		return v.limiter
	}

	if windowSeconds <= 0 {
		windowSeconds = defaultRateWindowSeconds
	}
	if burst < requestsPerWindow {
		burst = requestsPerWindow
	}

	limiter := rate.NewLimiter(rate.Limit(float64(requestsPerWindow)/float64(windowSeconds)), burst)
	m.visitors[key] = &visitor{limiter: limiter, lastSeen: time.Now()}
	return limiter
}

func (m *RateLimitManager) visitorCount() int {
	m.visitorsMu.Lock()
	defer m.visitorsMu.Unlock()
	return len(m.visitors)
}

func (m *RateLimitManager) cleanupLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(visitorCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.evictIdle(time.Now().Add(-visitorIdleTimeout))
		}
	}
}

func (m *RateLimitManager) evictIdle(cutoff time.Time) {
	m.visitorsMu.Lock()
	defer m.visitorsMu.Unlock()

	for key, v := range m.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(m.visitors, key)
		}
	}
}

// Shutdown stops the cleanup goroutine and waits for it to finish.
func (m *RateLimitManager) Shutdown() error {
	m.cancel()
	m.wg.Wait()
	return nil
}
