package middleware

import (
	"net/http"
	"sync"
	"time"

	"fornoro/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// ── Fixed-window rate limiter ─────────────────────────────────────────────────

type rateEntry struct {
	count     int
	windowEnd time.Time
}

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(c *gin.Context) string

// PorIP buckets by client address.
func PorIP(c *gin.Context) string { return c.ClientIP() }

// PorSucursal buckets by the branch in the token, falling back to the client address.
func PorSucursal(c *gin.Context) string {
	if claims := GetClaims(c); claims != nil {
		return "sucursal:" + claims.SucursalID
	}
	return c.ClientIP()
}

type limiter struct {
	mu      sync.Mutex
	entries map[string]*rateEntry
	limit   int
	window  time.Duration
	nombre  string
}

// RateLimiter allows limit requests per window for each key.
// Expired buckets are purged in the background every few windows.
func RateLimiter(nombre string, limit int, window time.Duration, key KeyFunc) gin.HandlerFunc {
	l := &limiter{entries: make(map[string]*rateEntry), limit: limit, window: window, nombre: nombre}
	go l.purgeLoop(5 * window)

	return func(c *gin.Context) {
		k := key(c)
		now := time.Now()

		l.mu.Lock()
		entry, ok := l.entries[k]
		if !ok || now.After(entry.windowEnd) {
			entry = &rateEntry{windowEnd: now.Add(l.window)}
			l.entries[k] = entry
		}
		entry.count++
		exceeded := entry.count > l.limit
		windowEnd := entry.windowEnd
		l.mu.Unlock()

		if exceeded {
			c.Header("Retry-After", windowEnd.Format(time.RFC1123))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New("Demasiadas solicitudes. Intente nuevamente en un momento."))
			return
		}
		c.Next()
	}
}

func (l *limiter) purgeLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		l.mu.Lock()
		purged := 0
		for k, e := range l.entries {
			if now.After(e.windowEnd) {
				delete(l.entries, k)
				purged++
			}
		}
		remaining := len(l.entries)
		l.mu.Unlock()

		if purged > 0 {
			log.Debug().
				Str("limiter", l.nombre).
				Int("entries_purged", purged).
				Int("entries_remaining", remaining).
				Msg("rate limiter purged")
		}
	}
}
