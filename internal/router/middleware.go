package router

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/justogm/user-gaze-track/internal/handlers"
	"github.com/justogm/user-gaze-track/internal/session"
)

// SessionLoaderMiddleware looks up the participant session named in the
// cookie and adds it to the context. A key the store no longer knows
// (evicted or replaced) is dropped from the cookie so the browser is
// treated as new.
func SessionLoaderMiddleware(store *session.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		cookie := sessions.Default(c)
		key, ok := cookie.Get(handlers.SessionCookieKey).(string)
		if !ok {
			c.Next()
			return
		}

		s, found := store.Get(key)
		if !found {
			cookie.Delete(handlers.SessionCookieKey)
			_ = cookie.Save()
			c.Next()
			return
		}
		c.Set(handlers.SessionContextKey, s)
		c.Next()
	}
}

// SessionRequired rejects event calls from a browser without a live
// session; the page has to be reloaded to start one.
func SessionRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := handlers.CurrentSession(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No active session; reload the page"})
			return
		}
		c.Next()
	}
}
