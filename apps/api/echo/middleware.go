package echoapi

import (
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/KhalilH786/GTManager-sub001/core"
	"github.com/KhalilH786/GTManager-sub001/core/session"
	"github.com/KhalilH786/GTManager-sub001/core/user"
)

var (
	limiterTTL        = 5 * time.Minute
	limiterPruneEvery = 3 * time.Minute
)

// sessionMiddleware loads the session cookie into a request-scoped session.
func sessionMiddleware(sessions *session.Manager) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			req := ctx.Request()
			sess := sessions.Load(ctx.Response(), req)
			ctx.SetRequest(req.WithContext(session.NewContext(req.Context(), sess)))
			return next(ctx)
		}
	}
}

// gateMiddleware applies the route gate to page requests.
func gateMiddleware(gate *session.Gate, cookies *session.CookieCodec) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			req := ctx.Request()
			if isAPIRequest(ctx) {
				return next(ctx)
			}
			d := gate.Decide(req.URL.Path, cookies.Read(req))
			if !gate.Apply(ctx.Response(), req, d) {
				return nil
			}
			return next(ctx)
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.Role == user.RoleAdmin {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

type (
	ipLimiter struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	// rateLimiter limits the unauthenticated auth endpoints per client IP.
	rateLimiter struct {
		mu        sync.Mutex
		limiters  map[string]*ipLimiter
		rate      rate.Limit
		burst     int
		lastPrune time.Time
	}
)

func newRateLimiter(conf core.RateLimitConfig) *rateLimiter {
	rl := &rateLimiter{
		limiters:  make(map[string]*ipLimiter),
		rate:      rate.Limit(conf.RPS),
		burst:     conf.Burst,
		lastPrune: time.Now(),
	}
	if rl.rate <= 0 {
		rl.rate = 1
	}
	if rl.burst <= 0 {
		rl.burst = 1
	}
	return rl
}

func (rl *rateLimiter) get(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastPrune) > limiterPruneEvery {
		for key, l := range rl.limiters {
			if now.Sub(l.lastSeen) > limiterTTL {
				delete(rl.limiters, key)
			}
		}
		rl.lastPrune = now
	}

	if l, ok := rl.limiters[ip]; ok {
		l.lastSeen = now
		return l.limiter
	}
	l := &ipLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst), lastSeen: now}
	rl.limiters[ip] = l
	return l.limiter
}

func (rl *rateLimiter) middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if !rl.get(ctx.RealIP()).Allow() {
				retryAfter := int(1 / float64(rl.rate))
				if retryAfter < 1 {
					retryAfter = 1
				}
				ctx.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				return errTooManyRequests
			}
			return next(ctx)
		}
	}
}
