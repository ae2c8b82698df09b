package services

import (
	"sync"

	"golang.org/x/time/rate"
)

// TurnLimiter rate-limits inbound turns per (tenant, user) pair so a single
// chatty end user cannot burn the tenant's model quota.
type TurnLimiter struct {
	perMinute int
	burst     int
	limiters  sync.Map // key string -> *rate.Limiter
}

// NewTurnLimiter creates a limiter allowing perMinute turns with the given
// burst per user.
func NewTurnLimiter(perMinute, burst int) *TurnLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	if burst <= 0 {
		burst = 3
	}
	return &TurnLimiter{perMinute: perMinute, burst: burst}
}

// Allow reports whether the user may take another turn right now.
func (l *TurnLimiter) Allow(tenantID, userID string) bool {
	key := tenantID + "/" + userID
	v, ok := l.limiters.Load(key)
	if !ok {
		v, _ = l.limiters.LoadOrStore(key, rate.NewLimiter(rate.Limit(float64(l.perMinute)/60.0), l.burst))
	}
	return v.(*rate.Limiter).Allow()
}
