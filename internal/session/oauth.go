package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/pkg/browser"
)

// AuthFlow drives the interactive consent flow: it opens authURL in some
// user-facing surface and blocks until the provider redirects back, returning
// the full redirect URL (tokens in the fragment). Implementations must honor
// ctx cancellation by returning ErrAuthCanceled.
type AuthFlow interface {
	// RedirectURL is the redirect target unique to this installation,
	// embedded in the authorization URL.
	RedirectURL() string
	Authenticate(ctx context.Context, authURL string) (string, error)
}

// SignInWithOAuth runs the interactive flow for the named provider. On
// success the session is persisted and the user fetched; on a canceled flow
// or a redirect without an access token, nothing is mutated.
func (s *Store) SignInWithOAuth(ctx context.Context, provider string) (*OAuthResult, error) {
	if s.authFlow == nil {
		return nil, errors.New("no auth flow configured")
	}

	authURL := fmt.Sprintf("%s/auth/v1/authorize?provider=%s&redirect_to=%s",
		s.identityURL, url.QueryEscape(provider), url.QueryEscape(s.authFlow.RedirectURL()))

	redirectURL, err := s.authFlow.Authenticate(ctx, authURL)
	if err != nil {
		return nil, err
	}

	sess, err := ParseFragmentTokens(redirectURL)
	if err != nil {
		return nil, err
	}
	if err := s.setSession(sess); err != nil {
		return nil, err
	}

	user, err := s.GetUser(ctx)
	if err != nil {
		return nil, err
	}
	return &OAuthResult{Session: sess, User: user}, nil
}

// ParseFragmentTokens extracts the credential pair from a redirect URL. The
// provider delivers tokens in the URL fragment, not the query string.
func ParseFragmentTokens(rawURL string) (Session, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return Session{}, fmt.Errorf("parse redirect url: %w", err)
	}
	params, err := url.ParseQuery(u.Fragment)
	if err != nil {
		return Session{}, fmt.Errorf("parse redirect fragment: %w", err)
	}
	access := params.Get("access_token")
	if access == "" {
		return Session{}, ErrNoAccessToken
	}
	return Session{
		AccessToken:  access,
		RefreshToken: params.Get("refresh_token"),
	}, nil
}

// LoopbackFlow completes the consent flow through a localhost HTTP listener:
// it opens the system browser at the authorization URL and waits for the
// provider to redirect back. Because URL fragments never reach a server, the
// callback page runs a tiny script that re-submits the fragment as a query
// string, and the flow reassembles it into a fragment URL so callers see the
// provider's original shape.
type LoopbackFlow struct {
	listener net.Listener
	openURL  func(string) error
}

// NewLoopbackFlow binds an ephemeral localhost port. The port is held for
// the life of the flow so RedirectURL stays stable across attempts.
func NewLoopbackFlow() (*LoopbackFlow, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("bind loopback listener: %w", err)
	}
	return &LoopbackFlow{listener: ln, openURL: browser.OpenURL}, nil
}

func (f *LoopbackFlow) RedirectURL() string {
	return fmt.Sprintf("http://%s/callback", f.listener.Addr().String())
}

// Close releases the loopback port.
func (f *LoopbackFlow) Close() error { return f.listener.Close() }

const callbackPage = `<!doctype html>
<html><body><script>
  location.replace('/complete?' + location.hash.substring(1));
</script></body></html>`

const completePage = `<!doctype html>
<html><body><p>Signed in. You can close this window and return to the terminal.</p></body></html>`

func (f *LoopbackFlow) Authenticate(ctx context.Context, authURL string) (string, error) {
	results := make(chan string, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, callbackPage)
	})
	mux.HandleFunc("/complete", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, completePage)
		select {
		case results <- f.RedirectURL() + "#" + r.URL.RawQuery:
		default:
		}
	})

	srv := &http.Server{Handler: mux}
	go srv.Serve(f.listener) //nolint:errcheck // shut down via ctx or result below
	defer srv.Shutdown(context.Background())

	if err := f.openURL(authURL); err != nil {
		return "", fmt.Errorf("open browser: %w", err)
	}

	select {
	case redirectURL := <-results:
		return redirectURL, nil
	case <-ctx.Done():
		return "", ErrAuthCanceled
	}
}
