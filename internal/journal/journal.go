// Package journal keeps the private vent-box journal of a scope.
package journal

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/mannmitra/backend/internal/kvstore"
	"go.uber.org/zap"
)

// KeyJournal is the storage key of the journal, namespaced per scope.
const KeyJournal = "mannmitra.journal"

// DateLayout renders entry dates the way they are shown to the user.
const DateLayout = "1/2/2006, 3:04:05 PM"

var (
	ErrMissingScope  = errors.New("journal: scope id is required")
	ErrEntryNotFound = errors.New("journal: entry not found")
)

// Entry is one saved vent.
type Entry struct {
	ID   int64  `json:"id"`
	Text string `json:"text"`
	Date string `json:"date"`
}

type Config struct {
	Adapter  *kvstore.Adapter
	Clock    func() time.Time
	Location *time.Location
	Logger   *zap.Logger
}

// Journal stores entries newest first.
type Journal struct {
	adapter  *kvstore.Adapter
	clock    func() time.Time
	location *time.Location
	logger   *zap.Logger

	mu   sync.Mutex
	last int64
}

func New(cfg Config) *Journal {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	location := cfg.Location
	if location == nil {
		location = time.UTC
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Journal{adapter: cfg.Adapter, clock: clock, location: location, logger: logger}
}

func (j *Journal) repository(scopeID string) (kvstore.Repository[[]Entry], error) {
	if strings.TrimSpace(scopeID) == "" {
		return kvstore.Repository[[]Entry]{}, ErrMissingScope
	}
	return kvstore.NewRepository(j.adapter, kvstore.ScopedKey(scopeID, KeyJournal), func() []Entry { return []Entry{} }), nil
}

// Save prepends a new entry. Blank text is ignored and reports false.
func (j *Journal) Save(ctx context.Context, scopeID, text string) (Entry, bool, error) {
	repo, err := j.repository(scopeID)
	if err != nil {
		return Entry{}, false, err
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Entry{}, false, nil
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.clock()
	id := now.UnixMilli()
	if id <= j.last {
		id = j.last + 1
	}
	j.last = id

	entry := Entry{ID: id, Text: trimmed, Date: now.In(j.location).Format(DateLayout)}
	entries := repo.Load(ctx)
	repo.Save(ctx, append([]Entry{entry}, entries...))
	j.logger.Debug("journal entry saved", zap.String("scope_id", scopeID), zap.Int64("entry_id", id))
	return entry, true, nil
}

// List returns entries whose text or date contains search, case-insensitively.
func (j *Journal) List(ctx context.Context, scopeID, search string) ([]Entry, error) {
	repo, err := j.repository(scopeID)
	if err != nil {
		return nil, err
	}
	entries := repo.Load(ctx)
	needle := strings.ToLower(search)
	if needle == "" {
		return entries, nil
	}
	return slices.DeleteFunc(entries, func(entry Entry) bool {
		return !strings.Contains(strings.ToLower(entry.Text), needle) &&
			!strings.Contains(strings.ToLower(entry.Date), needle)
	}), nil
}

// Delete removes one entry.
func (j *Journal) Delete(ctx context.Context, scopeID string, id int64) error {
	repo, err := j.repository(scopeID)
	if err != nil {
		return err
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	entries := repo.Load(ctx)
	remaining := slices.DeleteFunc(slices.Clone(entries), func(entry Entry) bool { return entry.ID == id })
	if len(remaining) == len(entries) {
		return ErrEntryNotFound
	}
	repo.Save(ctx, remaining)
	return nil
}

// Clear drops the whole journal.
func (j *Journal) Clear(ctx context.Context, scopeID string) error {
	repo, err := j.repository(scopeID)
	if err != nil {
		return err
	}
	repo.Remove(ctx)
	return nil
}
