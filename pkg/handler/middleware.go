// Package handler wires the OAuth client, API proxy, TTL cache, and rate
// limiter into the site's JSON endpoints.
package handler

import (
	"net/http"
	"strings"

	"portfolio/pkg/core"
	"portfolio/pkg/session"

	"github.com/gin-gonic/gin"
)

const (
	// sessionCookie is the browser cookie carrying the session ID.
	sessionCookie = "portfolio_session"
	// sessionKey is the gin context key holding the request's session.
	sessionKey = "session"
)

// SessionMiddleware resolves the request's session from the cookie, creating
// one as needed, and makes it available via SessionFromContext.
func SessionMiddleware(store *session.MemoryStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(sessionCookie)
		newID, sess := store.Open(id)
		if newID != id {
			c.SetCookie(sessionCookie, newID, 0, "/", "", false, true)
		}
		c.Set(sessionKey, sess)
		c.Request = c.Request.WithContext(core.WithRequestID(c.Request.Context()))
		c.Next()
	}
}

// SessionFromContext returns the session attached by SessionMiddleware.
func SessionFromContext(c *gin.Context) session.Session {
	sess, _ := c.MustGet(sessionKey).(session.Session)
	return sess
}

// RequireAuth aborts with 401 when the session holds no access token. The
// check is explicit middleware so the dependency is visible at each route
// registration.
func RequireAuth(c *gin.Context) {
	sess := SessionFromContext(c)
	if token, ok := session.AccessToken(sess); !ok || token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}
	c.Next()
}

// CORSMiddleware is an optimized CORS handler for Gin.
// It merges allowed headers with defaults, sets standard options, and can be further customized.
func CORSMiddleware(allowedHeaders ...string) gin.HandlerFunc {
	defaultHeaders := []string{"Authorization", "Content-Type"}
	var headersList []string
	if len(allowedHeaders) > 0 {
		// Output headers preserving canonical casing and custom order
		headers := []string{}
		headers = append(headers, defaultHeaders...)
		for _, h := range allowedHeaders {
			hNorm := strings.TrimSpace(h)
			if hNorm != "" && hNorm != "*" && !containsCI(defaultHeaders, hNorm) {
				headers = append(headers, hNorm)
			}
		}
		headersList = headers
	} else {
		headersList = defaultHeaders
	}

	allowedMethods := []string{"GET", "POST", "PUT", "OPTIONS"}
	return func(c *gin.Context) {
		// For production, set allowlist for origins here; demo fallback is *
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Vary", "Origin")
		c.Header("Access-Control-Allow-Methods", strings.Join(allowedMethods, ", "))
		c.Header("Access-Control-Allow-Headers", strings.Join(headersList, ", "))
		c.Header("Access-Control-Max-Age", "86400")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

// containsCI checks if slice contains item (case-insensitive).
func containsCI(slice []string, item string) bool {
	item = strings.ToLower(item)
	for _, s := range slice {
		if strings.ToLower(s) == item {
			return true
		}
	}
	return false
}
