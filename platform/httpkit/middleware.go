// Package httpkit provides HTTP middleware infrastructure.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"builderportal_backend/platform/config"
	"builderportal_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"
)

const (
	// ContextSubjectKey is the gin context key for the authenticated caller subject.
	ContextSubjectKey = "subject"
	// ContextRoleKey is the gin context key for the caller's role.
	ContextRoleKey = "role"

	errMissingToken = "missing token"
	errInvalidToken = "invalid token"
)

// RequestLogger logs HTTP requests with timing.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		clientIP := c.ClientIP()

		log.HTTPRequest(c.Request.Method, path, status, float64(latency.Milliseconds()), clientIP)
	}
}

// SecurityHeaders adds security headers to responses.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS over TLS
		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

// ipEntry pairs a limiter with its last use so stale entries can be evicted.
type ipEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter manages per-IP rate limiters with bounded state: entries
// not seen within the TTL are evicted on a background sweep, so the map
// never grows for the lifetime of the process.
type IPRateLimiter struct {
	mu      sync.Mutex
	entries map[string]*ipEntry
	rate    rate.Limit
	burst   int
	ttl     time.Duration
	log     *logger.Logger
}

// NewIPRateLimiter creates a new IP-based rate limiter. Entries idle for
// longer than ttl are evicted.
func NewIPRateLimiter(r rate.Limit, burst int, ttl time.Duration, log *logger.Logger) *IPRateLimiter {
	l := &IPRateLimiter{
		entries: make(map[string]*ipEntry),
		rate:    r,
		burst:   burst,
		ttl:     ttl,
		log:     log,
	}
	go l.sweep()
	return l
}

func (i *IPRateLimiter) sweep() {
	interval := i.ttl
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-i.ttl)
		i.mu.Lock()
		for ip, entry := range i.entries {
			if entry.lastSeen.Before(cutoff) {
				delete(i.entries, ip)
			}
		}
		i.mu.Unlock()
	}
}

func (i *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	i.mu.Lock()
	defer i.mu.Unlock()

	entry, exists := i.entries[ip]
	if !exists {
		entry = &ipEntry{limiter: rate.NewLimiter(i.rate, i.burst)}
		i.entries[ip] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

// RateLimit returns a middleware that rate limits by IP.
func (i *IPRateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		limiter := i.getLimiter(ip)

		if !limiter.Allow() {
			if i.log != nil {
				i.log.RateLimitExceeded(ip, c.Request.URL.Path)
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}

// AuthRequired returns middleware that validates JWT access tokens and
// stores the caller's subject and role on the context.
func AuthRequired(cfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawToken, ok := extractBearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortUnauthorized(c, errMissingToken)
			return
		}

		claims, err := parseAccessClaims(rawToken, cfg)
		if err != nil {
			abortUnauthorized(c, errInvalidToken)
			return
		}

		subject, _ := claims["sub"].(string)
		if strings.TrimSpace(subject) == "" {
			abortUnauthorized(c, errInvalidToken)
			return
		}

		role, _ := claims["role"].(string)
		c.Set(ContextSubjectKey, subject)
		c.Set(ContextRoleKey, role)
		c.Next()
	}
}

// APIKeyOrAuth accepts either the pre-shared form-submission API key (the
// Apps Script caller) or a regular bearer token. The original spreadsheet
// integration authenticates with a static key, so the key path must keep
// working alongside user tokens.
func APIKeyOrAuth(cfg config.WebhookConfig) gin.HandlerFunc {
	jwtAuth := AuthRequired(cfg)
	return func(c *gin.Context) {
		apiKey := cfg.GetFormAPIKey()
		if apiKey != "" {
			if raw, ok := extractBearerToken(c.GetHeader("Authorization")); ok {
				if subtle.ConstantTimeCompare([]byte(raw), []byte(apiKey)) == 1 {
					c.Set(ContextSubjectKey, "apps-script")
					c.Set(ContextRoleKey, "integration")
					c.Next()
					return
				}
			}
		}
		jwtAuth(c)
	}
}

// RequireRole returns middleware that checks if the caller has the specified
// role. The integration role (API key callers) passes every role check, as
// the original form-submission endpoint skips role checks for key auth.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := c.Get(ContextRoleKey)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		callerRole, ok := raw.(string)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		if strings.EqualFold(callerRole, role) || strings.EqualFold(callerRole, "integration") {
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

func extractBearerToken(authHeader string) (string, bool) {
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}

	rawToken := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if rawToken == "" {
		return "", false
	}

	return rawToken, true
}

func parseAccessClaims(rawToken string, cfg config.JWTConfig) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(rawToken, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(cfg.GetJWTAccessSecret()), nil
	})
	if err != nil || !parsed.Valid {
		return nil, errors.New(errInvalidToken)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New(errInvalidToken)
	}

	return claims, nil
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
}
