package router

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/justogm/user-gaze-track/internal/handlers"
	"github.com/justogm/user-gaze-track/internal/utils"
)

const (
	csrfTokenSessionKey = "csrf_token"
	csrfTokenFormKey    = "_csrf"
	csrfTokenHeaderKey  = "X-CSRF-Token"
)

// csrfToken returns the cookie session's token, minting one on first use.
func csrfToken(session sessions.Session) (string, error) {
	if token, ok := session.Get(csrfTokenSessionKey).(string); ok && token != "" {
		return token, nil
	}
	token, err := utils.GenerateSecureToken(32)
	if err != nil {
		return "", err
	}
	session.Set(csrfTokenSessionKey, token)
	if err := session.Save(); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return token, nil
}

// CSRFProtection guards every unsafe request. Page scripts send the token
// from the csrf-token meta tag in the X-CSRF-Token header; the beacon sent
// on page exit cannot set headers and uses the _csrf form field instead.
func CSRFProtection() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		existing, _ := session.Get(csrfTokenSessionKey).(string)

		token, err := csrfToken(session)
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.Set(handlers.CSRFContextKey, token)

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		submitted := c.GetHeader(csrfTokenHeaderKey)
		if submitted == "" {
			submitted = c.PostForm(csrfTokenFormKey)
		}
		// A token minted by this very request cannot have been submitted.
		if existing == "" || subtle.ConstantTimeCompare([]byte(submitted), []byte(existing)) != 1 {
			_ = c.Error(errors.New("invalid CSRF token"))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid CSRF token"})
			return
		}
		c.Next()
	}
}
