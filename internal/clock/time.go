package clock

import (
	"sync"
	"time"
)

// Ticker is an interface for time.Ticker to allow mocking.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TimeProvider provides time-related functionality for dependency injection.
type TimeProvider interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// RealTicker wraps time.Ticker to implement the Ticker interface.
type RealTicker struct {
	ticker *time.Ticker
}

// C returns the ticker's channel.
func (r *RealTicker) C() <-chan time.Time {
	return r.ticker.C
}

// Stop stops the ticker.
func (r *RealTicker) Stop() {
	r.ticker.Stop()
}

// RealTimeProvider implements TimeProvider using real time functions.
type RealTimeProvider struct{}

// NewTicker creates a new ticker.
func (RealTimeProvider) NewTicker(d time.Duration) Ticker {
	return &RealTicker{ticker: time.NewTicker(d)}
}

// Now returns the current time.
func (RealTimeProvider) Now() time.Time {
	return time.Now()
}

// MockTicker is a hand-driven Ticker for tests.
type MockTicker struct {
	Interval time.Duration
	TickChan chan time.Time

	mu      sync.Mutex
	stopped bool
}

// C returns the ticker's channel.
func (m *MockTicker) C() <-chan time.Time {
	return m.TickChan
}

// Stop marks the ticker stopped. The channel is left open so a pending
// Fire never panics.
func (m *MockTicker) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
}

// Stopped reports whether Stop was called.
func (m *MockTicker) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// MockTimeProvider is a settable clock that records every ticker it creates.
type MockTimeProvider struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*MockTicker
}

// NewMockTimeProvider returns a provider frozen at now.
func NewMockTimeProvider(now time.Time) *MockTimeProvider {
	return &MockTimeProvider{now: now}
}

// Now returns the frozen time.
func (m *MockTimeProvider) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock.
func (m *MockTimeProvider) Set(now time.Time) {
	m.mu.Lock()
	m.now = now
	m.mu.Unlock()
}

// Advance moves the clock forward by d.
func (m *MockTimeProvider) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// NewTicker creates a MockTicker with a buffered channel.
func (m *MockTimeProvider) NewTicker(d time.Duration) Ticker {
	t := &MockTicker{Interval: d, TickChan: make(chan time.Time, 1)}
	m.mu.Lock()
	m.tickers = append(m.tickers, t)
	m.mu.Unlock()
	return t
}

// Tickers returns every ticker created so far, oldest first.
func (m *MockTimeProvider) Tickers() []*MockTicker {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*MockTicker, len(m.tickers))
	copy(out, m.tickers)
	return out
}

// Active returns the most recently created, not yet stopped ticker with the
// given interval, or nil.
func (m *MockTimeProvider) Active(d time.Duration) *MockTicker {
	tickers := m.Tickers()
	for i := len(tickers) - 1; i >= 0; i-- {
		if tickers[i].Interval == d && !tickers[i].Stopped() {
			return tickers[i]
		}
	}
	return nil
}
