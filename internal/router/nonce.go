package router

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/justogm/user-gaze-track/internal/handlers"
	"github.com/justogm/user-gaze-track/internal/utils"
)

// NonceMiddleware mints a CSP nonce per request for the page's scripts.
func NonceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		nonce, err := utils.GenerateSecureToken(16)
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, err)
			return
		}
		c.Set(handlers.NonceContextKey, nonce)
		c.Next()
	}
}

// ContentSecurityPolicy allows the tracker library, the chart assets and the
// study prototype. Prototypes are researcher-hosted pages or images on any
// origin, plain http included, so frames and images accept both schemes. The
// tracker fetches its face mesh model over https at start. Hosts are read per
// request so a config reload of the assets host is honoured.
func ContentSecurityPolicy(hosts func() (trackerHost, assetsHost string)) gin.HandlerFunc {
	return func(c *gin.Context) {
		nonce, _ := c.Get(handlers.NonceContextKey)
		trackerHost, assetsHost := hosts()
		c.Header("Content-Security-Policy", fmt.Sprintf(
			"default-src 'self'; script-src 'self' %s %s 'nonce-%s'; style-src 'self' 'unsafe-inline'; "+
				"img-src 'self' data: blob: http: https:; frame-src 'self' http: https:; "+
				"media-src 'self' blob: mediastream:; connect-src 'self' https:; worker-src 'self' blob:",
			trackerHost, assetsHost, nonce,
		))
		c.Next()
	}
}
