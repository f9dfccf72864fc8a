package community

import (
	"errors"
	"fmt"
	"strings"
)

// Flair is the topic tag attached to a post.
type Flair string

const (
	FlairGuidedMeditation Flair = "Guided meditation"
	FlairVentBox          Flair = "Vent-box"
	FlairProfessionals    Flair = "Professionals"
	FlairGeneral          Flair = "General"
)

// AllFlairs lists every flair in display order.
var AllFlairs = []Flair{FlairGuidedMeditation, FlairVentBox, FlairProfessionals, FlairGeneral}

var (
	// ErrInvalidFlair indicates a flair outside the enumerated set.
	ErrInvalidFlair = errors.New("community: invalid flair")
	// ErrInvalidActor indicates a missing scope or user identifier.
	ErrInvalidActor = errors.New("community: invalid actor")
	// ErrPostNotFound indicates the post id is not in the store.
	ErrPostNotFound = errors.New("community: post not found")
	// ErrCommentNotFound indicates the comment id is not recorded for the post.
	ErrCommentNotFound = errors.New("community: comment not found")
	// ErrNotAuthor indicates the acting user did not author the post.
	ErrNotAuthor = errors.New("community: acting user is not the author")
)

// ParseFlair accepts the display value or its compact identifier
// ("GuidedMeditation", "vent_box", ...). Blank input defaults to General.
func ParseFlair(raw string) (Flair, error) {
	key := flairKey(raw)
	if key == "" {
		return FlairGeneral, nil
	}
	for _, flair := range AllFlairs {
		if flairKey(string(flair)) == key {
			return flair, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidFlair, raw)
}

func flairKey(raw string) string {
	var builder strings.Builder
	for _, r := range strings.ToLower(raw) {
		if r == ' ' || r == '-' || r == '_' {
			continue
		}
		builder.WriteRune(r)
	}
	return builder.String()
}

// PostID identifies a post; it is the creation time in epoch milliseconds or
// the next free value after it.
type PostID int64

// CommentID identifies a comment within its post.
type CommentID int64

// Post is a discussion post. Votes never drop below zero.
type Post struct {
	ID              PostID `json:"id"`
	Author          string `json:"author"`
	Flair           Flair  `json:"flair"`
	Title           string `json:"title"`
	Body            string `json:"body"`
	Votes           int    `json:"votes"`
	CreatedAtMillis int64  `json:"createdAt"`
}

// Comment is a reply on a post. Author holds the resolved alias, not a raw id.
type Comment struct {
	ID              CommentID `json:"id"`
	PostID          PostID    `json:"postId,omitempty"`
	Text            string    `json:"text"`
	Author          string    `json:"author"`
	CreatedAtMillis int64     `json:"createdAt"`
}

// Draft is the single unsent post being composed.
type Draft struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Flair Flair  `json:"flair"`
}

// Actor identifies who is acting and which storage scope they act in.
type Actor struct {
	ScopeID string
	UserID  string
}

// Validate reports ErrInvalidActor when either identifier is blank.
func (a Actor) Validate() error {
	if strings.TrimSpace(a.ScopeID) == "" {
		return fmt.Errorf("%w: empty scope", ErrInvalidActor)
	}
	if strings.TrimSpace(a.UserID) == "" {
		return fmt.Errorf("%w: empty user", ErrInvalidActor)
	}
	return nil
}
