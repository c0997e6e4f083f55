// Package feed drives the XMLTV ingest pipeline: conditional fetch,
// decompression, streaming parse and windowed persistence.
package feed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mbeukers/tvguide/internal/database"
	"github.com/mbeukers/tvguide/internal/metrics"
	"github.com/mbeukers/tvguide/internal/model"
	"github.com/mbeukers/tvguide/internal/xmltv"
)

var (
	// ErrInvalidURL means the configured feed URL is empty or unparsable.
	ErrInvalidURL = errors.New("feed: invalid feed URL")
	// ErrInvalidResponse means the transport produced no usable HTTP response.
	ErrInvalidResponse = errors.New("feed: invalid response")
)

// HTTPError reports a response status outside {200, 304}.
type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("feed: unexpected HTTP status %d", e.StatusCode)
}

// DefaultTimeout bounds the feed request when no client is supplied.
const DefaultTimeout = 30 * time.Second

// Fetcher performs conditional feed fetches and feeds the result through the
// decoder, the parser and the store.
type Fetcher struct {
	db     database.Store
	client *http.Client

	mu sync.Mutex // at most one update in flight per process
}

// NewFetcher creates a fetcher. A nil client gets a default one with a 30s
// timeout.
func NewFetcher(db database.Store, client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &Fetcher{db: db, client: client}
}

// Update runs one fetch-parse-save cycle. A call arriving while another
// update is in flight is coalesced: it logs, records a skip and returns nil.
// The context cancels the network round trip and is re-checked before the
// save transaction, so a cancelled call leaves all persisted state untouched.
func (f *Fetcher) Update(ctx context.Context) error {
	if !f.mu.TryLock() {
		logrus.Info("feed update already in flight, skipping")
		metrics.FeedUpdates.WithLabelValues("skipped").Inc()
		return nil
	}
	defer f.mu.Unlock()

	start := time.Now()
	result, err := f.update(ctx)
	metrics.FeedUpdateDuration.Observe(time.Since(start).Seconds())
	metrics.FeedUpdates.WithLabelValues(result).Inc()
	return err
}

func (f *Fetcher) update(ctx context.Context) (string, error) {
	rawURL, err := f.db.Setting(ctx, model.SettingFeedURL)
	if err != nil {
		return "error", fmt.Errorf("read feed url: %w", err)
	}
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "error", ErrInvalidURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "error", ErrInvalidURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "error", ErrInvalidURL
	}
	req.Header.Set("Cache-Control", "no-cache")
	// A failed token read just degrades to an unconditional fetch.
	etag, err := f.db.Setting(ctx, model.SettingETag)
	if err != nil {
		logrus.WithError(err).Warn("failed to read stored etag")
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	lm, err := f.db.Setting(ctx, model.SettingLastModified)
	if err != nil {
		logrus.WithError(err).Warn("failed to read stored last-modified")
	}
	if lm != "" {
		req.Header.Set("If-Modified-Since", lm)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "error", ctx.Err()
		}
		return "error", fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		logrus.Debug("feed not modified")
		return "not_modified", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "error", &HTTPError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "error", fmt.Errorf("%w: reading body: %v", ErrInvalidResponse, err)
	}

	likelyGzip := strings.HasSuffix(strings.ToLower(u.Path), ".gz") ||
		strings.Contains(resp.Header.Get("Content-Type"), "gzip")
	raw := xmltv.Decompress(body, likelyGzip)

	channels, programmes, err := xmltv.Parse(bytes.NewReader(raw))
	if err != nil {
		return "error", err
	}

	if err := ctx.Err(); err != nil {
		return "error", err
	}
	if err := f.db.SaveGuide(ctx, channels, programmes); err != nil {
		return "error", fmt.Errorf("save guide: %w", err)
	}

	// Caching tokens are persisted only after a successful save, so a failed
	// cycle cannot leave the next conditional fetch believing it is current.
	// Absent headers leave the stored values untouched.
	if etag := resp.Header.Get("ETag"); etag != "" {
		if err := f.db.SetSetting(ctx, model.SettingETag, etag); err != nil {
			return "error", fmt.Errorf("store etag: %w", err)
		}
	}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if err := f.db.SetSetting(ctx, model.SettingLastModified, lm); err != nil {
			return "error", fmt.Errorf("store last-modified: %w", err)
		}
	}
	if err := f.db.SetSetting(ctx, model.SettingLastUpdate,
		strconv.FormatInt(time.Now().Unix(), 10)); err != nil {
		return "error", fmt.Errorf("store last-update: %w", err)
	}

	if stats, err := f.db.Stats(ctx); err == nil {
		metrics.StoredChannels.Set(float64(stats.Channels))
		metrics.StoredProgrammes.Set(float64(stats.Programmes))
	}

	logrus.WithFields(logrus.Fields{
		"channels":   len(channels),
		"programmes": len(programmes),
	}).Info("feed updated")
	return "ok", nil
}

// LastUpdate returns the time of the last successful update, or the zero
// time when none has happened yet.
func (f *Fetcher) LastUpdate(ctx context.Context) (time.Time, error) {
	val, err := f.db.Setting(ctx, model.SettingLastUpdate)
	if err != nil || val == "" {
		return time.Time{}, err
	}
	ts, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, nil
	}
	return time.Unix(ts, 0), nil
}
