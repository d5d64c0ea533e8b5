package router

import (
	"net/http"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"

	"github.com/justogm/user-gaze-track/internal/config"
	"github.com/justogm/user-gaze-track/internal/handlers"
	"github.com/justogm/user-gaze-track/internal/models"
	"github.com/justogm/user-gaze-track/internal/session"
	"github.com/justogm/user-gaze-track/internal/tracker"
	"github.com/justogm/user-gaze-track/internal/visualizer"
)

// Dependencies are the long-lived services the routes are built on.
type Dependencies struct {
	Store    *session.Store
	API      handlers.ResearchAPI
	Recorder *visualizer.Recorder
	Layout   *models.CalibrationLayout
}

func keyFunc(c *gin.Context) string {
	return c.ClientIP()
}

func errorHandler(c *gin.Context, info ratelimit.Info) {
	c.String(http.StatusTooManyRequests, "Too many exports. Try again later.")
}

// Setup builds the engine from the active configuration. Results settings
// and the CSP hosts are re-read per request; everything else is fixed here.
func Setup(log *zap.Logger, deps Dependencies) *gin.Engine {
	conf := config.Current()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(log))

	store := cookie.NewStore([]byte(conf.Server.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   conf.Server.SecureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(conf.Session.IdleTimeout / time.Second),
	})
	router.Use(sessions.Sessions("gazesession", store))

	// Everything below relies on the cookie session.
	router.Use(NonceMiddleware())
	router.Use(CSRFProtection())
	router.Use(SessionLoaderMiddleware(deps.Store))
	router.Use(ContentSecurityPolicy(func() (string, string) {
		return conf.Tracker.ScriptURL, config.Current().Results.AssetsHost
	}))

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "same-origin",
	})
	router.Use(func(c *gin.Context) {
		if err := secureMiddleware.Process(c.Writer, c.Request); err != nil {
			c.Abort()
			return
		}
		c.Next()
	})

	router.Static("/assets", "./assets")

	trackerOpts := tracker.Options{
		Regression:             conf.Tracker.Regression,
		Backend:                conf.Tracker.Backend,
		SaveDataAcrossSessions: conf.Tracker.SaveDataAcrossSessions,
	}
	experimentHandler := handlers.NewExperimentHandler(log, deps.Store, deps.API, deps.Layout, trackerOpts, conf.Tracker.ScriptURL)
	eventsHandler := handlers.NewEventsHandler(log)
	resultsHandler := handlers.NewResultsHandler(log, deps.API, deps.Recorder, conf.Results.Route, func() config.ResultsConfig {
		return config.Current().Results
	})

	// Animation export renders every frame; keep a browser from queueing many.
	rateLimitStore := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Minute,
		Limit: 5,
	})
	limiter := ratelimit.RateLimiter(rateLimitStore, &ratelimit.Options{
		ErrorHandler: errorHandler,
		KeyFunc:      keyFunc,
	})

	router.GET("/", experimentHandler.Show)

	events := router.Group("/session")
	events.Use(SessionRequired())
	{
		events.GET("/state", eventsHandler.State)
		events.POST("/calibration/:point", eventsHandler.Click)
		events.POST("/mouse", eventsHandler.Mouse)
		events.POST("/gaze", eventsHandler.Gaze)
		events.POST("/restart", eventsHandler.Restart)
		events.POST("/end", eventsHandler.End)

		sidebar := events.Group("/sidebar")
		sidebar.POST("/open", eventsHandler.OpenSidebar)
		sidebar.POST("/close", eventsHandler.CloseSidebar)
		sidebar.POST("/submit", eventsHandler.Submit)
		sidebar.POST("/skip", eventsHandler.Skip)
	}

	results := router.Group(conf.Results.Route)
	{
		results.GET("", resultsHandler.ShowResults)
		results.GET("/frame.png", resultsHandler.Frame)
		results.GET("/animation.gif", limiter, resultsHandler.Animation)
	}

	router.GET("/download/points", resultsHandler.DownloadPoints)
	router.GET("/download/tasklogs", resultsHandler.DownloadTaskLogs)

	return router
}
