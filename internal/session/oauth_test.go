package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFlow returns a canned redirect URL without opening anything.
type fakeFlow struct {
	redirect string
	err      error
	gotAuth  string
}

func (f *fakeFlow) RedirectURL() string { return "http://127.0.0.1:7777/callback" }

func (f *fakeFlow) Authenticate(ctx context.Context, authURL string) (string, error) {
	f.gotAuth = authURL
	return f.redirect, f.err
}

func TestParseFragmentTokens(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    Session
		wantErr error
	}{
		{
			name: "access and refresh tokens",
			url:  "http://127.0.0.1:7777/callback#access_token=abc&refresh_token=def",
			want: Session{AccessToken: "abc", RefreshToken: "def"},
		},
		{
			name: "access token only",
			url:  "http://127.0.0.1:7777/callback#access_token=abc",
			want: Session{AccessToken: "abc"},
		},
		{
			name:    "no access token",
			url:     "http://127.0.0.1:7777/callback#state=xyz",
			wantErr: ErrNoAccessToken,
		},
		{
			name:    "tokens in query not fragment",
			url:     "http://127.0.0.1:7777/callback?access_token=abc",
			wantErr: ErrNoAccessToken,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, err := ParseFragmentTokens(tt.url)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, sess)
		})
	}
}

func TestSignInWithOAuthPersistsSessionAndFetchesUser(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "user-1"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	flow := &fakeFlow{redirect: "http://127.0.0.1:7777/callback#access_token=abc&refresh_token=def"}
	storage := &MemoryStorage{}
	store := New(Config{IdentityURL: srv.URL, AnonKey: "anon", Storage: storage, AuthFlow: flow})
	require.NoError(t, store.Init(context.Background()))

	result, err := store.SignInWithOAuth(context.Background(), "google")
	require.NoError(t, err)
	assert.Equal(t, Session{AccessToken: "abc", RefreshToken: "def"}, result.Session)
	assert.Contains(t, string(result.User), "user-1")

	// Authorize URL embeds provider and install-unique redirect.
	assert.Contains(t, flow.gotAuth, "/auth/v1/authorize?provider=google")
	assert.Contains(t, flow.gotAuth, url.QueryEscape(flow.RedirectURL()))

	raw, ok, err := storage.Get(StorageKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, string(raw), `"access_token":"abc"`)
}

func TestSignInWithOAuthNoTokenLeavesSessionUntouched(t *testing.T) {
	flow := &fakeFlow{redirect: "http://127.0.0.1:7777/callback#error=access_denied"}
	storage := &MemoryStorage{}
	store := New(Config{IdentityURL: "http://127.0.0.1:0", Storage: storage, AuthFlow: flow})
	require.NoError(t, store.Init(context.Background()))

	_, err := store.SignInWithOAuth(context.Background(), "google")
	assert.ErrorIs(t, err, ErrNoAccessToken)
	assert.False(t, store.IsAuthenticated())

	_, ok, err := storage.Get(StorageKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSignInWithOAuthCanceled(t *testing.T) {
	flow := &fakeFlow{err: ErrAuthCanceled}
	store := New(Config{IdentityURL: "http://127.0.0.1:0", Storage: &MemoryStorage{}, AuthFlow: flow})
	require.NoError(t, store.Init(context.Background()))

	_, err := store.SignInWithOAuth(context.Background(), "google")
	assert.ErrorIs(t, err, ErrAuthCanceled)
	assert.False(t, store.IsAuthenticated())
}

func TestLoopbackFlowReassemblesFragment(t *testing.T) {
	flow, err := NewLoopbackFlow()
	require.NoError(t, err)

	// Stand in for the browser: follow the callback redirect chain the way
	// the served script would.
	flow.openURL = func(authURL string) error {
		go func() {
			base := flow.RedirectURL()
			resp, err := http.Get(base)
			if err != nil {
				return
			}
			resp.Body.Close()
			complete := strings.Replace(base, "/callback", "/complete", 1)
			resp, err = http.Get(complete + "?access_token=abc&refresh_token=def")
			if err != nil {
				return
			}
			resp.Body.Close()
		}()
		return nil
	}

	redirect, err := flow.Authenticate(context.Background(), "http://identity.invalid/authorize")
	require.NoError(t, err)

	sess, err := ParseFragmentTokens(redirect)
	require.NoError(t, err)
	assert.Equal(t, Session{AccessToken: "abc", RefreshToken: "def"}, sess)
}

func TestLoopbackFlowCanceled(t *testing.T) {
	flow, err := NewLoopbackFlow()
	require.NoError(t, err)
	flow.openURL = func(string) error { return nil }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = flow.Authenticate(ctx, "http://identity.invalid/authorize")
	assert.ErrorIs(t, err, ErrAuthCanceled)
}
