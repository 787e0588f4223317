// Package session owns the persisted credential pair for the signed-in user
// and every call to the identity/database backend. All requests funnel
// through one helper that injects the API key and bearer token uniformly, so
// nothing in the rest of the program can make a silently unauthenticated
// call.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// StorageKey is the fixed key the serialized Session is persisted under.
const StorageKey = "tekpress_session"

const defaultRequestTimeout = 15 * time.Second

// Session is the bearer credential pair representing a signed-in user.
// A session is authenticated iff AccessToken is non-empty.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// Authenticated reports whether the session carries an access token.
func (s Session) Authenticated() bool { return s.AccessToken != "" }

// Config holds the explicit dependencies of a Store. No package-level
// client instance exists; callers construct one and pass it down.
type Config struct {
	// IdentityURL is the base URL of the identity/database backend.
	IdentityURL string
	// AnonKey is the public API key sent with every request.
	AnonKey string
	// Storage is the durable boundary the session is persisted to.
	Storage Storage
	// AuthFlow drives the interactive OAuth consent flow. Optional; required
	// only for SignInWithOAuth.
	AuthFlow AuthFlow
	// HTTPClient defaults to a client with a 15s timeout.
	HTTPClient *http.Client
}

// Store is the single source of truth for "who is signed in".
type Store struct {
	identityURL string
	anonKey     string
	storage     Storage
	authFlow    AuthFlow
	http        *http.Client

	current Session
	loaded  bool
}

// New constructs a Store from cfg.
func New(cfg Config) *Store {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultRequestTimeout}
	}
	return &Store{
		identityURL: strings.TrimRight(cfg.IdentityURL, "/"),
		anonKey:     cfg.AnonKey,
		storage:     cfg.Storage,
		authFlow:    cfg.AuthFlow,
		http:        hc,
	}
}

// Init loads a persisted session if one exists. It is idempotent and safe to
// call before every session-dependent operation: the owning process may be
// torn down and recreated between messages, losing in-memory state.
func (s *Store) Init(ctx context.Context) error {
	if s.loaded {
		return nil
	}
	raw, ok, err := s.storage.Get(StorageKey)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if ok {
		var sess Session
		if err := json.Unmarshal(raw, &sess); err != nil {
			return fmt.Errorf("decode stored session: %w", err)
		}
		s.current = sess
	}
	s.loaded = true
	return nil
}

// IsAuthenticated reports whether an in-memory session with an access token
// exists. Pure predicate; no I/O.
func (s *Store) IsAuthenticated() bool { return s.current.Authenticated() }

// Current returns the in-memory session and whether one is present.
func (s *Store) Current() (Session, bool) {
	return s.current, s.current.Authenticated()
}

// SignIn exchanges email/password for a token payload. The backend may
// answer 200 with an error object, so success is "the payload contains an
// access token", not the HTTP status. The raw payload is always returned so
// callers can surface backend error bodies.
func (s *Store) SignIn(ctx context.Context, email, password string) (json.RawMessage, error) {
	return s.passwordGrant(ctx, "/auth/v1/token?grant_type=password", email, password)
}

// SignUp registers a new account. Same success semantics as SignIn.
func (s *Store) SignUp(ctx context.Context, email, password string) (json.RawMessage, error) {
	return s.passwordGrant(ctx, "/auth/v1/signup", email, password)
}

func (s *Store) passwordGrant(ctx context.Context, endpoint, email, password string) (json.RawMessage, error) {
	body, _, err := s.do(ctx, http.MethodPost, endpoint, nil, map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}
	if tok := gjson.GetBytes(body, "access_token"); tok.Exists() && tok.String() != "" {
		sess := Session{
			AccessToken:  tok.String(),
			RefreshToken: gjson.GetBytes(body, "refresh_token").String(),
		}
		if err := s.setSession(sess); err != nil {
			return nil, err
		}
	}
	return body, nil
}

// OAuthResult is the outcome of a completed interactive sign-in.
type OAuthResult struct {
	Session Session         `json:"session"`
	User    json.RawMessage `json:"user"`
}

// SignOut notifies the backend on a best-effort basis, then unconditionally
// clears the in-memory and persisted session. A logout call failure is still
// reported to the caller even though the local session is gone.
func (s *Store) SignOut(ctx context.Context) error {
	var logoutErr error
	if s.current.Authenticated() {
		_, _, logoutErr = s.do(ctx, http.MethodPost, "/auth/v1/logout", nil, nil)
	}
	s.current = Session{}
	if err := s.storage.Delete(StorageKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return logoutErr
}

// GetUser fetches the current user from the identity backend. Returns nil
// with no error when unauthenticated. The payload is a projection, not
// cached state.
func (s *Store) GetUser(ctx context.Context) (json.RawMessage, error) {
	if !s.current.Authenticated() {
		return nil, nil
	}
	body, _, err := s.do(ctx, http.MethodGet, "/auth/v1/user", nil, nil)
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (s *Store) setSession(sess Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	s.current = sess
	if err := s.storage.Set(StorageKey, raw); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	return nil
}

// do performs a request against the identity backend. It injects the API key
// header and, when a session exists, the bearer token. Every backend call in
// this package and the query builder goes through here.
func (s *Store) do(ctx context.Context, method, endpoint string, headers map[string]string, body any) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, 0, err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.identityURL+endpoint, reader)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("apikey", s.anonKey)
	req.Header.Set("Content-Type", "application/json")
	if s.current.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.current.AccessToken)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return raw, resp.StatusCode, nil
}

func encodeMatch(match map[string]string) string {
	params := url.Values{}
	for k, v := range match {
		params.Set(k, v)
	}
	return params.Encode()
}
