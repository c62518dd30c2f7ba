package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/truthsource/backend/internal/interfaces/http/dto"
)

// CSRF protection uses the double-submit cookie scheme: the token lives in a
// cookie the browser sends automatically and must be echoed in a header the
// attacker cannot set cross-origin. Requests without the cookie are bearer
// token API calls and are exempt.

const (
	// CSRFCookieName is the cookie carrying the token. Not HttpOnly:
	// browser clients read it to fill the header.
	CSRFCookieName = "ts_csrf"
	// CSRFHeaderName is the header the cookie value must be echoed in
	CSRFHeaderName = "X-CSRF-Token"

	csrfTokenBytes = 32
)

// CSRFConfig holds CSRF cookie settings
type CSRFConfig struct {
	CookiePath   string
	CookieDomain string
	Secure       bool
	SameSite     http.SameSite
	MaxAge       int // seconds
}

// DefaultCSRFConfig returns browser-safe defaults
func DefaultCSRFConfig() CSRFConfig {
	return CSRFConfig{
		CookiePath: "/",
		Secure:     true,
		SameSite:   http.SameSiteLaxMode,
		MaxAge:     12 * 60 * 60,
	}
}

// IssueCSRFToken generates a fresh token, sets the cookie, and returns the
// token so the handler can include it in the response body.
func IssueCSRFToken(c *gin.Context, cfg CSRFConfig) (string, error) {
	buf := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	token := hex.EncodeToString(buf)

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     cfg.CookiePath,
		Domain:   cfg.CookieDomain,
		MaxAge:   cfg.MaxAge,
		Secure:   cfg.Secure,
		HttpOnly: false,
		SameSite: cfg.SameSite,
	})
	return token, nil
}

// CSRF returns the double-submit check middleware
func CSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		cookie, err := c.Cookie(CSRFCookieName)
		if err != nil || cookie == "" {
			// no cookie session in play; bearer requests are exempt
			c.Next()
			return
		}

		header := c.GetHeader(CSRFHeaderName)
		if subtle.ConstantTimeCompare([]byte(cookie), []byte(header)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden,
				dto.NewErrorResponse(dto.ErrCodeForbidden, "CSRF token missing or mismatched"))
			return
		}

		c.Next()
	}
}
