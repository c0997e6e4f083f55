// Package database provides SQLite storage for the TV guide.
package database

import (
	"context"
	"time"

	"github.com/mbeukers/tvguide/internal/model"
)

// Store defines the interface for guide storage. The SQLite implementation
// satisfies it; tests may substitute stubs.
type Store interface {
	Close() error

	// SaveGuide atomically upserts the given channels, prunes programmes
	// outside the current retention window and inserts the programmes that
	// fall fully inside it. Either every step commits or none do.
	SaveGuide(ctx context.Context, channels []model.Channel, programmes []model.Programme) error

	// Channels returns all channels ordered by name.
	Channels(ctx context.Context) ([]model.Channel, error)

	// NowNext returns, for every channel ordered by name, the programme
	// airing at now and the one starting next. Missing entries are nil.
	NowNext(ctx context.Context, now time.Time) ([]model.NowNext, error)

	// ProgrammesOn returns the programmes of one channel whose start falls
	// on the given local calendar day, ordered by start.
	ProgrammesOn(ctx context.Context, channelID string, day time.Time) ([]model.Programme, error)

	// AllProgrammes returns every stored programme ordered by channel and
	// start, for guide export.
	AllProgrammes(ctx context.Context) ([]model.Programme, error)

	// SearchProgrammes matches query case-insensitively against programme
	// titles, ordered by start and capped at 200 results. An empty query
	// matches nothing.
	SearchProgrammes(ctx context.Context, query string) ([]model.Programme, error)

	// Stats returns the stored channel and programme counts.
	Stats(ctx context.Context) (model.Stats, error)

	// Settings operations. Setting returns "" for an absent key.
	Setting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}
