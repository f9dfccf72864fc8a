// Package profile stores the single profile document of a scope.
package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mannmitra/backend/internal/kvstore"
	"go.uber.org/zap"
)

// KeyProfile is the storage key of the profile document.
const KeyProfile = "mm_profile"

const (
	ThemeSystem = "system"
	ThemeLight  = "light"
	ThemeDark   = "dark"

	defaultName = "Anonymous"
	defaultBio  = "Hey! I’m exploring MannMitra 💚"
)

var (
	ErrMissingScope   = errors.New("profile: scope id is required")
	ErrInvalidProfile = errors.New("profile: invalid profile")
)

// Profile is the user-editable profile. Unset stored fields keep their defaults.
type Profile struct {
	Name           string `json:"name" validate:"max=80"`
	Username       string `json:"username" validate:"required,max=40"`
	Phone          string `json:"phone" validate:"max=20"`
	Bio            string `json:"bio" validate:"max=500"`
	Avatar         string `json:"avatar" validate:"omitempty,datauri"`
	Theme          string `json:"theme" validate:"oneof=system light dark"`
	NotifyEmail    bool   `json:"notifyEmail"`
	NotifyWhatsapp bool   `json:"notifyWhatsapp"`
	HideIdentity   bool   `json:"hideIdentity"`
}

// Random draws the numeric suffix of generated usernames.
type Random interface {
	IntN(n int) int
}

type globalRandom struct{}

func (globalRandom) IntN(n int) int {
	return rand.IntN(n)
}

// Defaults builds the profile shown before anything was saved.
func Defaults(random Random) Profile {
	if random == nil {
		random = globalRandom{}
	}
	return Profile{
		Name:           defaultName,
		Username:       fmt.Sprintf("shinchan_%d", 1000+random.IntN(9000)),
		Bio:            defaultBio,
		Theme:          ThemeSystem,
		NotifyEmail:    false,
		NotifyWhatsapp: true,
		HideIdentity:   true,
	}
}

type Config struct {
	Adapter   *kvstore.Adapter
	Random    Random
	Validator *validator.Validate
	Logger    *zap.Logger
}

type Store struct {
	adapter  *kvstore.Adapter
	random   Random
	validate *validator.Validate
	logger   *zap.Logger
}

func NewStore(cfg Config) *Store {
	validate := cfg.Validator
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{adapter: cfg.Adapter, random: cfg.Random, validate: validate, logger: logger}
}

func (s *Store) repository(scopeID string) (kvstore.Repository[json.RawMessage], error) {
	if strings.TrimSpace(scopeID) == "" {
		return kvstore.Repository[json.RawMessage]{}, ErrMissingScope
	}
	return kvstore.NewRepository[json.RawMessage](s.adapter, kvstore.ScopedKey(scopeID, KeyProfile), nil), nil
}

// Load merges the stored document over the defaults. Whenever the generated
// username is used it is persisted, so it stays stable across loads.
func (s *Store) Load(ctx context.Context, scopeID string) (Profile, error) {
	repo, err := s.repository(scopeID)
	if err != nil {
		return Profile{}, err
	}
	profile := Defaults(s.random)
	raw := repo.Load(ctx)
	if len(raw) == 0 {
		repo.Save(ctx, mustEncode(profile))
		return profile, nil
	}
	merged := profile
	if err := json.Unmarshal(raw, &merged); err != nil {
		s.logger.Debug("profile document unreadable, using defaults", zap.String("scope_id", scopeID), zap.Error(err))
		repo.Save(ctx, mustEncode(profile))
		return profile, nil
	}
	var stored struct {
		Username string `json:"username"`
	}
	_ = json.Unmarshal(raw, &stored)
	if strings.TrimSpace(stored.Username) == "" {
		// a document without a username gets the drawn one pinned
		merged.Username = profile.Username
		repo.Save(ctx, mustEncode(merged))
	}
	return merged, nil
}

// Save validates and replaces the profile.
func (s *Store) Save(ctx context.Context, scopeID string, profile Profile) (Profile, error) {
	repo, err := s.repository(scopeID)
	if err != nil {
		return Profile{}, err
	}
	profile.Name = strings.TrimSpace(profile.Name)
	profile.Username = strings.TrimSpace(profile.Username)
	profile.Theme = strings.ToLower(strings.TrimSpace(profile.Theme))
	if profile.Theme == "" {
		profile.Theme = ThemeSystem
	}
	if err := s.validate.Struct(profile); err != nil {
		return Profile{}, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	repo.Save(ctx, mustEncode(profile))
	return profile, nil
}

// Reset removes the stored profile; the next Load starts from fresh defaults.
func (s *Store) Reset(ctx context.Context, scopeID string) error {
	repo, err := s.repository(scopeID)
	if err != nil {
		return err
	}
	repo.Remove(ctx)
	return nil
}

func mustEncode(profile Profile) json.RawMessage {
	encoded, err := json.Marshal(profile)
	if err != nil {
		panic(fmt.Sprintf("profile: encode: %v", err))
	}
	return encoded
}
