// Package contact validates contact-form submissions and keeps them in the
// scope's inbox.
package contact

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mannmitra/backend/internal/kvstore"
	"go.uber.org/zap"
)

// KeyInbox is the storage key of accepted messages.
const KeyInbox = "mm.contact.inbox"

const DefaultTopic = "General"

// Topics offered by the contact form.
var Topics = []string{DefaultTopic, "Partnerships", "Press"}

var (
	ErrMissingScope = errors.New("contact: scope id is required")
	// ErrIncomplete mirrors the form's blocking check.
	ErrIncomplete   = errors.New("contact: please fill your name, email, and message")
	ErrInvalidEmail = errors.New("contact: invalid email address")
	ErrInvalidTopic = errors.New("contact: unknown topic")
)

// Submission is the raw form input.
type Submission struct {
	Name    string `json:"name" validate:"required,max=120"`
	Email   string `json:"email" validate:"required,email"`
	Topic   string `json:"topic" validate:"required,oneof=General Partnerships Press"`
	Message string `json:"message" validate:"required,max=5000"`
}

// Message is an accepted submission.
type Message struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Topic           string `json:"topic"`
	Message         string `json:"message"`
	CreatedAtMillis int64  `json:"createdAt"`
}

type Config struct {
	Adapter   *kvstore.Adapter
	Clock     func() time.Time
	Validator *validator.Validate
	Logger    *zap.Logger
}

type Inbox struct {
	adapter  *kvstore.Adapter
	clock    func() time.Time
	validate *validator.Validate
	logger   *zap.Logger

	mu   sync.Mutex
	last int64
}

func NewInbox(cfg Config) *Inbox {
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	validate := cfg.Validator
	if validate == nil {
		validate = validator.New(validator.WithRequiredStructEnabled())
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Inbox{adapter: cfg.Adapter, clock: clock, validate: validate, logger: logger}
}

func (i *Inbox) repository(scopeID string) (kvstore.Repository[[]Message], error) {
	if strings.TrimSpace(scopeID) == "" {
		return kvstore.Repository[[]Message]{}, ErrMissingScope
	}
	return kvstore.NewRepository(i.adapter, kvstore.ScopedKey(scopeID, KeyInbox), func() []Message { return []Message{} }), nil
}

// Normalize trims every field and applies the default topic.
func Normalize(submission Submission) Submission {
	normalized := Submission{
		Name:    strings.TrimSpace(submission.Name),
		Email:   strings.TrimSpace(submission.Email),
		Topic:   strings.TrimSpace(submission.Topic),
		Message: strings.TrimSpace(submission.Message),
	}
	if normalized.Topic == "" {
		normalized.Topic = DefaultTopic
	}
	return normalized
}

// Validate reports the first blocking problem with a normalized submission.
func (i *Inbox) Validate(submission Submission) error {
	err := i.validate.Struct(submission)
	if err == nil {
		return nil
	}
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}
	for _, fieldError := range fieldErrors {
		if fieldError.Tag() == "required" {
			return ErrIncomplete
		}
	}
	for _, fieldError := range fieldErrors {
		switch fieldError.Field() {
		case "Email":
			return fmt.Errorf("%w: %q", ErrInvalidEmail, submission.Email)
		case "Topic":
			return fmt.Errorf("%w: %q", ErrInvalidTopic, submission.Topic)
		}
	}
	return fmt.Errorf("contact: %s is too long", strings.ToLower(fieldErrors[0].Field()))
}

// Submit validates the submission and appends it to the inbox.
func (i *Inbox) Submit(ctx context.Context, scopeID string, submission Submission) (Message, error) {
	repo, err := i.repository(scopeID)
	if err != nil {
		return Message{}, err
	}
	normalized := Normalize(submission)
	if err := i.Validate(normalized); err != nil {
		return Message{}, err
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	now := i.clock().UnixMilli()
	id := now
	if id <= i.last {
		id = i.last + 1
	}
	i.last = id

	message := Message{
		ID:              id,
		Name:            normalized.Name,
		Email:           normalized.Email,
		Topic:           normalized.Topic,
		Message:         normalized.Message,
		CreatedAtMillis: now,
	}
	repo.Save(ctx, append(repo.Load(ctx), message))
	i.logger.Info("contact message accepted", zap.String("scope_id", scopeID), zap.String("topic", message.Topic))
	return message, nil
}

// List returns accepted messages oldest first.
func (i *Inbox) List(ctx context.Context, scopeID string) ([]Message, error) {
	repo, err := i.repository(scopeID)
	if err != nil {
		return nil, err
	}
	return repo.Load(ctx), nil
}
