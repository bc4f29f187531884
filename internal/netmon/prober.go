package netmon

import (
	"context"
	"net"
	"time"

	"go.uber.org/zap"
)

// Prober drives a Manual monitor by periodically dialing a probe address.
// A successful dial means connected+reachable; a failed dial means offline.
// The probe can only observe its own target, so it never reports
// ReachUnknown itself; that state belongs to platforms with a native
// connectivity signal feeding Manual.Set directly.
type Prober struct {
	*Manual

	addr     string
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
	cancel   context.CancelFunc
}

// NewProber creates a prober targeting addr (host:port).
func NewProber(m *Manual, addr string, interval time.Duration, logger *zap.Logger) *Prober {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Prober{
		Manual:   m,
		addr:     addr,
		interval: interval,
		timeout:  3 * time.Second,
		logger:   logger,
	}
}

// Start begins probing until Stop or ctx cancellation.
func (p *Prober) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	go p.loop(ctx)
}

// Stop stops the probe loop.
func (p *Prober) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
}

func (p *Prober) loop(ctx context.Context) {
	p.probe()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.probe()
		case <-ctx.Done():
			return
		}
	}
}

func (p *Prober) probe() {
	conn, err := net.DialTimeout("tcp", p.addr, p.timeout)
	if err != nil {
		p.Set(State{Connected: false, Reachability: ReachNo})
		return
	}
	_ = conn.Close()
	p.Set(State{Connected: true, Reachability: ReachYes})
}
