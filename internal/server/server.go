// Package server provides the HTTP API over the guide store.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/mbeukers/tvguide/internal/database"
	"github.com/mbeukers/tvguide/internal/feed"
	"github.com/mbeukers/tvguide/internal/model"
	"github.com/mbeukers/tvguide/internal/xmltv"
)

// refreshTimeout bounds a manually triggered feed update.
const refreshTimeout = 5 * time.Minute

// Server is the main HTTP server.
type Server struct {
	db      database.Store
	fetcher *feed.Fetcher
	router  chi.Router
}

// New creates a new server.
func New(db database.Store, fetcher *feed.Fetcher) *Server {
	s := &Server{db: db, fetcher: fetcher}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Route("/api", func(r chi.Router) {
		r.Get("/channels", s.handleChannels)
		r.Get("/channels/{channelID}/programmes", s.handleProgrammes)
		r.Get("/nownext", s.handleNowNext)
		r.Get("/search", s.handleSearch)
		r.Get("/stats", s.handleStats)
		r.Get("/guide.xml", s.handleExport)
		r.Post("/refresh", s.handleRefresh)
		r.Get("/settings", s.handleGetSettings)
		r.Post("/settings", s.handleSaveSettings)
	})

	r.Handle("/metrics", promhttp.Handler())

	s.router = r
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return s.router
}

// --- Handlers ---

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	channels, err := s.db.Channels(r.Context())
	if err != nil {
		http.Error(w, "Failed to load channels", http.StatusInternalServerError)
		return
	}
	writeJSON(w, channels)
}

func (s *Server) handleProgrammes(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")

	day := time.Now()
	if v := r.URL.Query().Get("date"); v != "" {
		parsed, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			http.Error(w, "Invalid date, want YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		day = parsed
	}

	programmes, err := s.db.ProgrammesOn(r.Context(), channelID, day)
	if err != nil {
		http.Error(w, "Failed to load programmes", http.StatusInternalServerError)
		return
	}
	writeJSON(w, programmes)
}

func (s *Server) handleNowNext(w http.ResponseWriter, r *http.Request) {
	entries, err := s.db.NowNext(r.Context(), time.Now())
	if err != nil {
		http.Error(w, "Failed to load now/next", http.StatusInternalServerError)
		return
	}
	writeJSON(w, entries)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	programmes, err := s.db.SearchProgrammes(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		http.Error(w, "Search failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, programmes)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.Stats(r.Context())
	if err != nil {
		http.Error(w, "Failed to load stats", http.StatusInternalServerError)
		return
	}
	writeJSON(w, stats)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	channels, err := s.db.Channels(r.Context())
	if err != nil {
		http.Error(w, "Failed to load channels", http.StatusInternalServerError)
		return
	}
	programmes, err := s.db.AllProgrammes(r.Context())
	if err != nil {
		http.Error(w, "Failed to load programmes", http.StatusInternalServerError)
		return
	}
	doc, err := xmltv.Export(channels, programmes)
	if err != nil {
		http.Error(w, "Failed to render guide", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Write(doc)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), refreshTimeout)
	defer cancel()

	if err := s.fetcher.Update(ctx); err != nil {
		logrus.WithError(err).Warn("manual feed refresh failed")
		var httpErr *feed.HTTPError
		switch {
		case errors.Is(err, feed.ErrInvalidURL):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.As(err, &httpErr):
			http.Error(w, err.Error(), http.StatusBadGateway)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	stats, _ := s.db.Stats(r.Context())
	writeJSON(w, map[string]interface{}{
		"status":     "ok",
		"channels":   stats.Channels,
		"programmes": stats.Programmes,
	})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	feedURL, err := s.db.Setting(r.Context(), model.SettingFeedURL)
	if err != nil {
		http.Error(w, "Failed to load settings", http.StatusInternalServerError)
		return
	}
	resp := map[string]interface{}{"feed_url": feedURL}
	if last, err := s.fetcher.LastUpdate(r.Context()); err == nil && !last.IsZero() {
		resp["last_update"] = last.Format(time.RFC3339)
	}
	writeJSON(w, resp)
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FeedURL string `json:"feed_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := s.db.SetSetting(r.Context(), model.SettingFeedURL, req.FeedURL); err != nil {
		http.Error(w, "Failed to save", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("encode response")
	}
}
