package netmon

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lessonforge/playback/internal/logx"
)

// Prober answers a single reachability question. Platforms with push-based
// reachability can substitute an implementation that reports cached state.
type Prober interface {
	Probe(ctx context.Context) bool
}

// HTTPProber treats any HTTP response from the target as reachable. Status
// codes do not matter: a 503 still proves the network path is up.
type HTTPProber struct {
	URL    string
	Client *http.Client
}

func NewHTTPProber(url string, client *http.Client) *HTTPProber {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &HTTPProber{URL: url, Client: client}
}

func (p *HTTPProber) Probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return false
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return false
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return true
}

// Monitor polls reachability at a fixed interval and publishes boolean
// transitions to subscribers. It holds no queued state of its own.
type Monitor struct {
	prober   Prober
	interval time.Duration
	log      zerolog.Logger

	mu     sync.Mutex
	online bool
	probed bool // first probe publishes regardless of prior state
	subs   []func(online bool)
	stop   chan struct{}
}

func New(prober Prober, interval time.Duration) *Monitor {
	return &Monitor{
		prober:   prober,
		interval: interval,
		log:      logx.WithComponent("netmon"),
	}
}

// Subscribe registers a transition callback. Callbacks fire once per
// transition, in subscription order, on the monitor's polling goroutine.
// Subscribe before Start.
func (m *Monitor) Subscribe(fn func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

// Online returns the last observed reachability state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// CheckNow performs one probe and publishes a transition if the state
// changed. It returns the observed state.
func (m *Monitor) CheckNow(ctx context.Context) bool {
	online := m.prober.Probe(ctx)

	m.mu.Lock()
	changed := !m.probed || online != m.online
	m.probed = true
	m.online = online
	subs := m.subs
	m.mu.Unlock()

	if changed {
		m.log.Info().Bool("online", online).Msg("reachability changed")
		for _, fn := range subs {
			fn(online)
		}
	}
	return online
}

// Start launches the polling loop. It probes immediately, then at the fixed
// interval until ctx is cancelled or Stop is called.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.stop != nil {
		m.mu.Unlock()
		return
	}
	m.stop = make(chan struct{})
	stop := m.stop
	m.mu.Unlock()

	go func() {
		m.CheckNow(ctx)
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
				m.CheckNow(ctx)
			}
		}
	}()
}

// Stop halts the polling loop.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stop != nil {
		close(m.stop)
		m.stop = nil
	}
}
