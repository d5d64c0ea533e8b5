package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/justogm/user-gaze-track/internal/config"
	logger "github.com/justogm/user-gaze-track/internal/logging"
	"github.com/justogm/user-gaze-track/internal/models"
	"github.com/justogm/user-gaze-track/internal/router"
	"github.com/justogm/user-gaze-track/internal/services"
	"github.com/justogm/user-gaze-track/internal/session"
	"github.com/justogm/user-gaze-track/internal/tracker"
	"github.com/justogm/user-gaze-track/internal/upload"
	"github.com/justogm/user-gaze-track/internal/visualizer"
)

func main() {
	projectRoot, err := os.Getwd()
	if err != nil {
		panic("failed to resolve working directory: " + err.Error())
	}

	// Initialize Logger
	log, err := logger.Init(logger.DefaultOptions(projectRoot))
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}

	if err := config.Init(projectRoot, log); err != nil {
		log.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Rebuild the logger with the configured rotation settings.
	lc := config.Current().Logging
	dir := lc.Directory
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(projectRoot, dir)
	}
	if configured, err := logger.Init(logger.Options{
		Directory:  dir,
		MaxSize:    lc.MaxSize,
		MaxBackups: lc.MaxBackups,
		MaxAge:     lc.MaxAge,
		Compress:   lc.Compress,
	}); err != nil {
		log.Error("Failed to apply logging configuration; keeping defaults", zap.Error(err))
	} else {
		_ = log.Sync()
		log = configured
	}
	defer log.Sync()

	conf := config.Current()

	layout := models.DefaultCalibrationLayout()
	if conf.Calibration.LayoutFile != "" {
		layout, err = models.LoadCalibrationLayout(conf.Calibration.LayoutFile)
		if err != nil {
			log.Fatal("Failed to load calibration layout", zap.Error(err), zap.String("file", conf.Calibration.LayoutFile))
		}
	}

	location, err := time.LoadLocation(conf.Tracker.TimeZone)
	if err != nil {
		log.Fatal("Failed to load time zone", zap.Error(err))
	}

	client := upload.NewClient(conf.API.BaseURL, nil, conf.API.Timeout, log.Named("upload"))

	store := session.NewStore(session.Deps{
		Layout: layout,
		Uploader: func(subject models.SubjectID) session.Uploader {
			return client.ForSubject(subject)
		},
		TrackerOptions: tracker.Options{
			Regression:             conf.Tracker.Regression,
			Backend:                conf.Tracker.Backend,
			SaveDataAcrossSessions: conf.Tracker.SaveDataAcrossSessions,
		},
		Location:     location,
		ResultsRoute: conf.Results.Route,
		Log:          log.Named("session"),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	janitor := services.NewJanitor(log.Named("janitor"), store, conf.Session.SweepInterval, conf.Session.IdleTimeout)
	janitor.Start(ctx)

	recorder := visualizer.NewRecorder(conf.Results.MaxVideoFrames, conf.Results.FrameDelayMs)
	config.OnReload(func(next *config.Config) {
		recorder.SetLimits(next.Results.MaxVideoFrames, next.Results.FrameDelayMs)
	})

	// Setup router, passing the logger to it
	r := router.Setup(log, router.Dependencies{
		Store:    store,
		API:      client,
		Recorder: recorder,
		Layout:   layout,
	})

	srv := &http.Server{
		Addr:    ":" + conf.Server.Port,
		Handler: r,
	}
	go func() {
		log.Info("Server listening on http://localhost:" + conf.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to run server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
	// In-flight uploads are abandoned, as when the participant closes the tab.
}
