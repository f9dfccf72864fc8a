package kvstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errMissingDatabase = errors.New("kvstore: database handle is required")

// Entry is a single persisted key and its JSON document.
type Entry struct {
	Key              string `gorm:"column:entry_key;primaryKey;size:512;not null"`
	ValueJSON        string `gorm:"column:value_json;type:text;not null"`
	UpdatedAtSeconds int64  `gorm:"column:updated_at_s;not null"`
}

// TableName provides the explicit table binding for GORM.
func (Entry) TableName() string {
	return "kv_entries"
}

// SQLiteBackend stores entries in a gorm-managed table.
type SQLiteBackend struct {
	db    *gorm.DB
	clock func() time.Time
}

// NewSQLiteBackend wraps an already migrated database handle.
func NewSQLiteBackend(db *gorm.DB, clock func() time.Time) (*SQLiteBackend, error) {
	if db == nil {
		return nil, errMissingDatabase
	}
	if clock == nil {
		clock = time.Now
	}
	return &SQLiteBackend{db: db, clock: clock}, nil
}

func (b *SQLiteBackend) Get(ctx context.Context, key string) ([]byte, error) {
	var entry Entry
	err := b.db.WithContext(ctx).Where("entry_key = ?", key).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(entry.ValueJSON), nil
}

func (b *SQLiteBackend) Set(ctx context.Context, key string, value []byte) error {
	entry := Entry{
		Key:              key,
		ValueJSON:        string(value),
		UpdatedAtSeconds: b.clock().UTC().Unix(),
	}
	return b.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "entry_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value_json", "updated_at_s"}),
		}).
		Create(&entry).Error
}

func (b *SQLiteBackend) Delete(ctx context.Context, key string) error {
	return b.db.WithContext(ctx).Where("entry_key = ?", key).Delete(&Entry{}).Error
}

func (b *SQLiteBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := b.db.WithContext(ctx).
		Model(&Entry{}).
		Where("entry_key LIKE ? ESCAPE '\\'", escapeLike(prefix)+"%").
		Order("entry_key ASC").
		Pluck("entry_key", &keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
