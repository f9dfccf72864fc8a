package contact

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mannmitra/backend/internal/kvstore"
)

func newTestInbox() *Inbox {
	adapter := kvstore.NewAdapter(kvstore.NewMemoryBackend(), nil)
	return NewInbox(Config{
		Adapter: adapter,
		Clock:   func() time.Time { return time.UnixMilli(1700000000000) },
	})
}

func TestSubmitValidation(t *testing.T) {
	inbox := newTestInbox()
	testCases := []struct {
		name       string
		submission Submission
		expected   error
	}{
		{name: "missing_name", submission: Submission{Name: " ", Email: "a@b.co", Message: "hi"}, expected: ErrIncomplete},
		{name: "missing_email", submission: Submission{Name: "Asha", Message: "hi"}, expected: ErrIncomplete},
		{name: "missing_message", submission: Submission{Name: "Asha", Email: "a@b.co", Message: "\n"}, expected: ErrIncomplete},
		{name: "bad_email", submission: Submission{Name: "Asha", Email: "not-an-email", Message: "hi"}, expected: ErrInvalidEmail},
		{name: "bad_topic", submission: Submission{Name: "Asha", Email: "a@b.co", Topic: "Sales", Message: "hi"}, expected: ErrInvalidTopic},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if _, err := inbox.Submit(context.Background(), "scope", testCase.submission); !errors.Is(err, testCase.expected) {
				t.Fatalf("expected %v, got %v", testCase.expected, err)
			}
		})
	}
	messages, _ := inbox.List(context.Background(), "scope")
	if len(messages) != 0 {
		t.Fatalf("rejected submissions must not be stored, got %+v", messages)
	}
}

func TestSubmitStoresNormalizedMessage(t *testing.T) {
	inbox := newTestInbox()
	ctx := context.Background()

	first, err := inbox.Submit(ctx, "scope", Submission{Name: " Asha ", Email: "asha@example.com", Message: " Loved the app "})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if first.Topic != DefaultTopic || first.Name != "Asha" || first.Message != "Loved the app" {
		t.Fatalf("unexpected message %+v", first)
	}
	second, err := inbox.Submit(ctx, "scope", Submission{Name: "Ravi", Email: "ravi@example.com", Topic: "Press", Message: "Interview?"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if second.ID <= first.ID {
		t.Fatalf("expected increasing ids")
	}

	messages, err := inbox.List(ctx, "scope")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(messages) != 2 || messages[0].ID != first.ID || messages[1].Topic != "Press" {
		t.Fatalf("unexpected inbox %+v", messages)
	}

	if _, err := inbox.Submit(ctx, "", Submission{}); !errors.Is(err, ErrMissingScope) {
		t.Fatalf("expected ErrMissingScope, got %v", err)
	}
}
