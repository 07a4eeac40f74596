package middleware

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/ratelimit"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/time/rate"

	"github.com/dtroode/onboarding-server/internal/logger"
)

const (
	DefaultRateLimitRPS   = 5
	DefaultRateLimitBurst = 10
	maxTrackedPeers       = 100000
	peerIdleTTL           = 10 * time.Minute
)

var _ ratelimit.Limiter = (*PeerRateLimiter)(nil)

// PeerRateLimiter keeps one token bucket per client host. Buckets of idle
// peers expire.
type PeerRateLimiter struct {
	rps    rate.Limit
	burst  int
	mu     sync.Mutex
	peers  *expirable.LRU[string, *rate.Limiter]
	logger *logger.Logger
}

func NewPeerRateLimiter(rps float64, burst int, logger *logger.Logger) *PeerRateLimiter {
	if rps <= 0 {
		rps = DefaultRateLimitRPS
	}
	if burst <= 0 {
		burst = DefaultRateLimitBurst
	}
	return &PeerRateLimiter{
		rps:    rate.Limit(rps),
		burst:  burst,
		peers:  expirable.NewLRU[string, *rate.Limiter](maxTrackedPeers, nil, peerIdleTTL),
		logger: logger,
	}
}

// Limit rejects the call when the caller's bucket is empty.
func (l *PeerRateLimiter) Limit(ctx context.Context) error {
	key := peerHost(ctx)
	if l.limiter(key).Allow() {
		return nil
	}

	l.logger.Warn("Rate limit middleware: request rejected",
		"peer", key)
	return fmt.Errorf("too many requests from %s", key)
}

// Peers returns the number of tracked clients.
func (l *PeerRateLimiter) Peers() int {
	return l.peers.Len()
}

func (l *PeerRateLimiter) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.peers.Get(key)
	if !ok {
		lim = rate.NewLimiter(l.rps, l.burst)
	}
	// Re-adding refreshes the idle deadline.
	l.peers.Add(key, lim)
	return lim
}

func peerHost(ctx context.Context) string {
	addr := peerAddr(ctx)
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
