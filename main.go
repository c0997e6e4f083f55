package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mbeukers/tvguide/internal/config"
	"github.com/mbeukers/tvguide/internal/database"
	"github.com/mbeukers/tvguide/internal/feed"
	"github.com/mbeukers/tvguide/internal/model"
	"github.com/mbeukers/tvguide/internal/server"
)

func main() {
	cfg := config.Get()

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		logrus.WithError(err).Fatal("failed to open database")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// A configured feed URL seeds the setting once; after that the stored
	// value is authoritative so API changes survive restarts.
	if cfg.FeedURL != "" {
		if stored, err := db.Setting(ctx, model.SettingFeedURL); err == nil && stored == "" {
			if err := db.SetSetting(ctx, model.SettingFeedURL, cfg.FeedURL); err != nil {
				logrus.WithError(err).Warn("failed to seed feed url")
			}
		}
	}

	fetcher := feed.NewFetcher(db, &http.Client{Timeout: cfg.HTTPTimeout})
	poller := feed.NewPoller(fetcher, cfg.FetchInterval)
	poller.Start()
	defer poller.Stop()

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.New(db, fetcher).Router(),
	}

	go func() {
		logrus.WithField("addr", cfg.ListenAddr).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logrus.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("server shutdown")
	}
}
