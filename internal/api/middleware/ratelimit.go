package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	burstCapacityMultiplier            = 2
	defaultMaxClients                  = 10000
	defaultGlobalRPS           float64 = 100
	defaultClientRPS           float64 = 20
	thresholdMultiplier        float64 = 0.8
	thresholdPercentage        int     = 80
	rateLimiterCleanupInterval         = 5 * time.Minute
	rateLimiterIdleTimeout             = 1 * time.Hour
)

type (
	// RateLimiter provides rate limiting for incoming requests.
	RateLimiter interface {
		// Allow reports whether a request from clientKey may proceed.
		// An empty clientKey is only subject to the global limit.
		Allow(clientKey string) bool
	}

	// RejectObserver is notified of every rate-limited request. metrics.Recorder implements it.
	RejectObserver interface {
		ObserveRateLimited()
	}

	// InMemoryRateLimiter implements RateLimiter using golang.org/x/time/rate.
	//
	// Provides two-tier rate limiting:
	// 1. Global limit (applied to all requests)
	// 2. Per-client limit (applied per client key, usually the remote IP)
	//
	// Uses token bucket algorithm with configurable burst capacity.
	// Memory cleanup runs periodically; clients idle longer than IdleTimeout are removed.
	// When MaxClients is reached, new clients share the global bucket only until cleanup
	// frees space.
	InMemoryRateLimiter struct {
		global        *rate.Limiter
		perClient     map[string]*clientLimiter
		mu            sync.RWMutex
		cleanupTicker *time.Ticker
		done          chan struct{}
		closeOnce     sync.Once

		clientRPS       float64
		clientBurst     int
		cleanupInterval time.Duration
		idleTimeout     time.Duration
		maxClients      int
		trustForwarded  bool
	}

	// clientLimiter tracks rate limit state for a single client.
	clientLimiter struct {
		limiter    *rate.Limiter
		lastAccess time.Time
		mu         sync.Mutex
	}
)

// NewInMemoryRateLimiter creates a new in-memory rate limiter with global and per-client limits.
//
// Burst capacity is computed automatically as 2 × rate unless overridden in config.
// Cleanup runs periodically to prevent unbounded memory growth.
//
// Example:
//
//	rl := NewInMemoryRateLimiter(&Config{
//	    GlobalRPS: 100,
//	    ClientRPS: 20,
//	})
//	defer rl.Close()
func NewInMemoryRateLimiter(config *Config) *InMemoryRateLimiter {
	maxClients := config.MaxClients
	if maxClients <= 0 {
		maxClients = defaultMaxClients
	}

	rl := &InMemoryRateLimiter{
		global:          rate.NewLimiter(rate.Limit(config.GlobalRPS), computeBurstCapacity(config.GlobalRPS, config.GlobalBurst)),
		perClient:       make(map[string]*clientLimiter),
		done:            make(chan struct{}),
		clientRPS:       config.ClientRPS,
		clientBurst:     computeBurstCapacity(config.ClientRPS, config.ClientBurst),
		cleanupInterval: config.CleanupInterval,
		idleTimeout:     config.IdleTimeout,
		maxClients:      maxClients,
		trustForwarded:  config.TrustForwardedFor,
	}

	rl.startCleanup()

	return rl
}

// computeBurstCapacity returns burstOverride when positive, otherwise 2 × rate (at least 1).
//
// Example:
//
//	computeBurstCapacity(100, 0)   // Returns 200 (auto-computed)
//	computeBurstCapacity(100, 500) // Returns 500 (use override)
func computeBurstCapacity(rps float64, burstOverride int) int {
	if burstOverride > 0 {
		return burstOverride
	}

	return max(1, int(rps*burstCapacityMultiplier))
}

// Allow checks the global limit first, then the client's own bucket.
func (rl *InMemoryRateLimiter) Allow(clientKey string) bool {
	if !rl.global.Allow() {
		return false
	}

	if clientKey == "" || rl.clientRPS <= 0 {
		return true
	}

	cl := rl.limiterFor(clientKey)
	if cl == nil {
		return true
	}

	cl.mu.Lock()
	cl.lastAccess = time.Now()
	cl.mu.Unlock()

	return cl.limiter.Allow()
}

// limiterFor returns the client's limiter, creating it lazily. It returns nil when the table is
// full.
func (rl *InMemoryRateLimiter) limiterFor(clientKey string) *clientLimiter {
	rl.mu.RLock()
	cl, ok := rl.perClient[clientKey]
	rl.mu.RUnlock()

	if ok {
		return cl
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Double-check after acquiring the write lock.
	if cl, ok = rl.perClient[clientKey]; ok {
		return cl
	}

	count := len(rl.perClient)
	if count >= rl.maxClients {
		return nil
	}

	cl = &clientLimiter{
		limiter:    rate.NewLimiter(rate.Limit(rl.clientRPS), rl.clientBurst),
		lastAccess: time.Now(),
	}
	rl.perClient[clientKey] = cl

	if threshold := int(float64(rl.maxClients) * thresholdMultiplier); count+1 == threshold {
		slog.Warn("rate limiter approaching max clients limit",
			slog.Int("current_clients", count+1),
			slog.Int("max_clients", rl.maxClients),
			slog.Int("threshold_percent", thresholdPercentage),
		)
	}

	return cl
}

// Close stops the cleanup goroutine. It is safe to call more than once.
func (rl *InMemoryRateLimiter) Close() error {
	rl.closeOnce.Do(func() {
		if rl.cleanupTicker != nil {
			rl.cleanupTicker.Stop()
		}

		close(rl.done)
	})

	return nil
}

func (rl *InMemoryRateLimiter) startCleanup() {
	cleanupInterval := rl.cleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = rateLimiterCleanupInterval
	}

	rl.cleanupTicker = time.NewTicker(cleanupInterval)

	go func() {
		for {
			select {
			case <-rl.cleanupTicker.C:
				rl.cleanup(time.Now())
			case <-rl.done:
				return
			}
		}
	}()
}

// cleanup removes client limiters not accessed within the idle timeout.
func (rl *InMemoryRateLimiter) cleanup(now time.Time) {
	idleTimeout := rl.idleTimeout
	if idleTimeout <= 0 {
		idleTimeout = rateLimiterIdleTimeout
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, cl := range rl.perClient {
		cl.mu.Lock()
		lastAccess := cl.lastAccess
		cl.mu.Unlock()

		if now.Sub(lastAccess) > idleTimeout {
			delete(rl.perClient, key)
		}
	}
}

func (rl *InMemoryRateLimiter) trustForwardedFor() bool {
	return rl.trustForwarded
}

func (rl *InMemoryRateLimiter) clientCount() int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	return len(rl.perClient)
}

// ClientKey identifies the caller for per-client limiting: the host part of RemoteAddr, or the
// first X-Forwarded-For entry when trustForwardedFor is set.
func ClientKey(r *http.Request, trustForwardedFor bool) string {
	if trustForwardedFor {
		if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}

// RateLimit returns a middleware that enforces rate limits on incoming requests.
//
// When a request exceeds the rate limit, the middleware returns a 429 (Too Many Requests)
// response with RFC 7807 error format and a Retry-After hint.
//
// Example:
//
//	rateLimiter := NewInMemoryRateLimiter(&Config{GlobalRPS: 100, ClientRPS: 20})
//	defer rateLimiter.Close()
//
//	handler = RateLimit(rateLimiter, logger, recorder)(handler)
func RateLimit(limiter RateLimiter, logger *slog.Logger, observer RejectObserver) func(http.Handler) http.Handler {
	trustForwardedFor := false
	if rl, ok := limiter.(*InMemoryRateLimiter); ok {
		trustForwardedFor = rl.trustForwardedFor()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter.Allow(ClientKey(r, trustForwardedFor)) {
				next.ServeHTTP(w, r)

				return
			}

			if observer != nil {
				observer.ObserveRateLimited()
			}

			correlationID := GetCorrelationID(r.Context())
			detail := "Rate limit exceeded. Please retry after some time."

			w.Header().Set("Retry-After", "1")

			if err := writeRFC7807Error(w, r, http.StatusTooManyRequests, detail, correlationID); err != nil {
				logger.Error("failed to write response with RFC 7807 error format",
					slog.String("correlation_id", correlationID),
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
			}
		})
	}
}
