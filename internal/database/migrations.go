package database

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/mannmitra/backend/internal/community"
	"github.com/mannmitra/backend/internal/kvstore"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	migrationPurgeOrphanedComments = "2025-01-20_purge_orphaned_comments"
	migrationNormalizePostFlairs   = "2025-01-20_normalize_post_flairs"
)

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB, *zap.Logger) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	migrations := []migrationDefinition{
		{name: migrationNormalizePostFlairs, apply: normalizePostFlairs},
		{name: migrationPurgeOrphanedComments, apply: purgeOrphanedComments},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := migration.apply(tx, logger); err != nil {
				return err
			}
			appliedAt := time.Now().UTC().Unix()
			return tx.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error
		})
		if err != nil {
			return err
		}
		logger.Info("database migration applied", zap.String("migration", migration.name))
	}
	return nil
}

// entriesNamed loads every scope's entry for the given document name.
func entriesNamed(db *gorm.DB, name string) ([]kvstore.Entry, error) {
	var entries []kvstore.Entry
	err := db.Where("entry_key LIKE ?", kvstore.ScopedKey("%", name)).Find(&entries).Error
	if err != nil {
		return nil, err
	}
	matching := entries[:0]
	for _, entry := range entries {
		if _, entryName, ok := kvstore.SplitScopedKey(entry.Key); ok && entryName == name {
			matching = append(matching, entry)
		}
	}
	return matching, nil
}

func saveEntryValue(db *gorm.DB, entry kvstore.Entry, value any) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return db.Model(&kvstore.Entry{}).
		Where("entry_key = ?", entry.Key).
		Updates(map[string]any{"value_json": string(encoded), "updated_at_s": time.Now().UTC().Unix()}).Error
}

// normalizePostFlairs rewrites legacy flair spellings to their canonical
// values. Posts with unrecognised flairs become General.
func normalizePostFlairs(db *gorm.DB, logger *zap.Logger) error {
	entries, err := entriesNamed(db, community.KeyPosts)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		var posts []community.Post
		if err := json.Unmarshal([]byte(entry.ValueJSON), &posts); err != nil {
			logger.Warn("skipping unreadable posts document", zap.String("key", entry.Key), zap.Error(err))
			continue
		}
		changed := false
		for index := range posts {
			canonical, err := community.ParseFlair(string(posts[index].Flair))
			if err != nil {
				canonical = community.FlairGeneral
			}
			if canonical != posts[index].Flair {
				posts[index].Flair = canonical
				changed = true
			}
		}
		if !changed {
			continue
		}
		if err := saveEntryValue(db, entry, posts); err != nil {
			return err
		}
	}
	return nil
}

// purgeOrphanedComments drops comment threads whose post no longer exists.
// Scopes that never persisted posts are left untouched.
func purgeOrphanedComments(db *gorm.DB, logger *zap.Logger) error {
	entries, err := entriesNamed(db, community.KeyComments)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		scopeID, _, _ := kvstore.SplitScopedKey(entry.Key)

		var postsEntry kvstore.Entry
		err := db.Where("entry_key = ?", kvstore.ScopedKey(scopeID, community.KeyPosts)).Take(&postsEntry).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return err
		}

		var posts []community.Post
		var threads map[community.PostID][]community.Comment
		if err := json.Unmarshal([]byte(postsEntry.ValueJSON), &posts); err != nil {
			logger.Warn("skipping scope with unreadable posts", zap.String("scope_id", scopeID), zap.Error(err))
			continue
		}
		if err := json.Unmarshal([]byte(entry.ValueJSON), &threads); err != nil {
			logger.Warn("skipping unreadable comments document", zap.String("key", entry.Key), zap.Error(err))
			continue
		}

		live := make(map[community.PostID]struct{}, len(posts))
		for _, post := range posts {
			live[post.ID] = struct{}{}
		}
		purged := 0
		for postID := range threads {
			if _, ok := live[postID]; !ok {
				delete(threads, postID)
				purged++
			}
		}
		if purged == 0 {
			continue
		}
		if err := saveEntryValue(db, entry, threads); err != nil {
			return err
		}
		logger.Info("orphaned comment threads purged", zap.String("scope_id", scopeID), zap.Int("threads", purged))
	}
	return nil
}
