package core

import (
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
)

// bearerPrefix is the exact, case-sensitive prefix expected in the
// Authorization header.
const bearerPrefix = "Bearer "

const principalKey = "principal"

// CurrentPrincipal returns the principal attached to the request, if any.
func CurrentPrincipal(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

// AuthMiddleware authenticates each request. Public paths pass through with no
// token inspection. On protected paths it extracts the bearer token, verifies
// it, resolves the subject against the user store, and attaches the resulting
// Principal to the request context. Every failure mode collapses to a generic
// 401; the specific class is only logged.
func AuthMiddleware(policy *AccessPolicy, codec *TokenCodec, users UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Already authenticated earlier in the chain; do not verify twice.
		if _, ok := CurrentPrincipal(c); ok {
			c.Next()
			return
		}

		if policy.IsPublic(c.Request.URL.Path) {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, bearerPrefix) {
			rejectUnauthorized(c, "missing or malformed authorization header")
			return
		}
		token := strings.TrimSpace(header[len(bearerPrefix):])
		if token == "" {
			rejectUnauthorized(c, "empty bearer token")
			return
		}

		claims, err := codec.Parse(token)
		if err != nil {
			rejectUnauthorized(c, err.Error())
			return
		}

		u, err := users.FindByEmail(c.Request.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, ErrUserNotFound) {
				rejectUnauthorized(c, ErrUnknownSubject.Error())
			} else {
				// Store failures must not hang or half-authenticate the
				// request; they fail closed like any other auth failure.
				rejectUnauthorized(c, "user lookup failed: "+err.Error())
			}
			return
		}
		role, err := ParseRole(u.Role)
		if err != nil {
			rejectUnauthorized(c, err.Error())
			return
		}

		c.Set(principalKey, Principal{Email: u.Email, Name: u.Name, Role: role})
		c.Next()
	}
}

func rejectUnauthorized(c *gin.Context, reason string) {
	log.Printf("auth: %s %s rejected: %s", c.Request.Method, c.Request.URL.Path, reason)
	respondError(c, http.StatusUnauthorized, "Unauthorized")
	c.Abort()
}

// RequireAccess enforces the role requirements of the access policy. It runs
// after AuthMiddleware, so an absent principal on a protected path means a
// wiring bug rather than a missing token; it still fails closed.
func RequireAccess(policy *AccessPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		rule := policy.Match(c.Request.URL.Path)
		if rule.Public {
			c.Next()
			return
		}
		p, ok := CurrentPrincipal(c)
		if !ok {
			respondError(c, http.StatusUnauthorized, "Unauthorized")
			c.Abort()
			return
		}
		if rule.Role != "" && p.Role != rule.Role {
			respondError(c, http.StatusForbidden, "Access Denied")
			c.Abort()
			return
		}
		c.Next()
	}
}

// OriginMiddleware validates Origin/Referer against the allowed list and sets
// CORS headers. With no configured origins, cross-origin requests are refused.
func OriginMiddleware(cfg Config) gin.HandlerFunc {
	allowed := map[string]struct{}{}
	for _, o := range cfg.AllowedOrigins {
		allowed[strings.ToLower(o)] = struct{}{}
	}

	isAllowed := func(origin string) bool {
		if origin == "" {
			// Same-origin navigation (no Origin header) is allowed.
			return true
		}
		if len(allowed) == 0 {
			return false
		}
		origin = strings.ToLower(origin)
		_, ok := allowed[origin]
		return ok
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		referer := c.GetHeader("Referer")
		if origin == "" && referer != "" {
			if u, err := url.Parse(referer); err == nil {
				origin = u.Scheme + "://" + u.Host
			}
		}

		// Preflight handling
		if c.Request.Method == http.MethodOptions && origin != "" {
			if !isAllowed(origin) {
				respondError(c, http.StatusForbidden, "origin not allowed")
				c.Abort()
				return
			}
			setCORSHeaders(c, origin)
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}

		if !isAllowed(origin) {
			respondError(c, http.StatusForbidden, "origin not allowed")
			c.Abort()
			return
		}
		if origin != "" {
			setCORSHeaders(c, origin)
		}
		c.Next()
	}
}

func setCORSHeaders(c *gin.Context, origin string) {
	c.Header("Access-Control-Allow-Origin", origin)
	c.Header("Vary", "Origin")
	c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
	c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
}
