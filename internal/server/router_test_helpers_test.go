package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mannmitra/backend/internal/community"
	"github.com/mannmitra/backend/internal/companions"
	"github.com/mannmitra/backend/internal/contact"
	"github.com/mannmitra/backend/internal/journal"
	"github.com/mannmitra/backend/internal/kvstore"
	"github.com/mannmitra/backend/internal/profile"
	"github.com/mannmitra/backend/internal/scope"
	"github.com/mannmitra/backend/internal/screening"
	"go.uber.org/zap"
)

var errUnknownTestToken = errors.New("unknown test token")

// stubScopeTokens accepts the tokens registered in identities.
type stubScopeTokens struct {
	identities map[string]scope.Identity
}

func (s stubScopeTokens) Issue(context.Context) (scope.Grant, error) {
	return scope.Grant{Token: "token-new", ScopeID: "scope-new", UserID: "user-new", ExpiresIn: 60}, nil
}

func (s stubScopeTokens) Refresh(_ context.Context, token string) (scope.Grant, error) {
	identity, err := s.Validate(token)
	if err != nil {
		return scope.Grant{}, err
	}
	return scope.Grant{Token: token + "-refreshed", ScopeID: identity.ScopeID, UserID: identity.UserID, ExpiresIn: 60}, nil
}

func (s stubScopeTokens) Validate(token string) (scope.Identity, error) {
	identity, ok := s.identities[token]
	if !ok {
		return scope.Identity{}, errUnknownTestToken
	}
	return identity, nil
}

type testServer struct {
	handler    http.Handler
	dispatcher *RealtimeDispatcher
	adapter    *kvstore.Adapter
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	now := time.UnixMilli(1700000000000).UTC()
	clock := func() time.Time { return now }
	adapter := kvstore.NewAdapter(kvstore.NewMemoryBackend(), nil)
	dispatcher := NewRealtimeDispatcher()

	communityService, err := community.NewService(community.ServiceConfig{
		Adapter:  adapter,
		Clock:    clock,
		PageSize: 2,
		Seeds:    community.DefaultSeedPosts,
		Notifier: dispatcher,
	})
	if err != nil {
		t.Fatalf("community service: %v", err)
	}
	catalog, err := screening.DefaultCatalog()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	personas, err := companions.DefaultCatalog()
	if err != nil {
		t.Fatalf("companions: %v", err)
	}

	handler, err := NewHTTPHandler(Dependencies{
		ScopeTokens: stubScopeTokens{identities: map[string]scope.Identity{
			"token-alice": {ScopeID: "scope-1", UserID: "alice"},
			"token-bob":   {ScopeID: "scope-1", UserID: "bob"},
			"token-carol": {ScopeID: "scope-2", UserID: "carol"},
		}},
		Storage:           adapter,
		Community:         communityService,
		Screening:         catalog,
		Journal:           journal.New(journal.Config{Adapter: adapter, Clock: clock}),
		Profiles:          profile.NewStore(profile.Config{Adapter: adapter}),
		Contact:           contact.NewInbox(contact.Config{Adapter: adapter, Clock: clock}),
		Companions:        personas,
		Realtime:          dispatcher,
		HeartbeatInterval: time.Hour,
		Logger:            zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	return testServer{handler: handler, dispatcher: dispatcher, adapter: adapter}
}

func (s testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}
	recorder := httptest.NewRecorder()
	s.handler.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var decoded T
	if err := json.Unmarshal(recorder.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode %s: %v", recorder.Body.String(), err)
	}
	return decoded
}
