package coordinator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tekpress/cli/internal/bus"
	"github.com/tekpress/cli/internal/session"
)

// backend fakes both the identity endpoints and an in-memory print_orders
// table behind the tabular REST contract.
type backend struct {
	mu   sync.Mutex
	rows []map[string]any
}

func (b *backend) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "tok", "refresh_token": "ref"})
	})
	mux.HandleFunc("GET /auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"id": "user-1", "email": "a@b.co"})
	})
	mux.HandleFunc("POST /auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /rest/v1/print_orders", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "return=representation", r.Header.Get("Prefer"))
		var row map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&row))
		b.mu.Lock()
		b.rows = append(b.rows, row)
		b.mu.Unlock()
		_ = json.NewEncoder(w).Encode([]map[string]any{row})
	})
	mux.HandleFunc("GET /rest/v1/print_orders", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		_ = json.NewEncoder(w).Encode(b.rows)
	})
	return mux
}

func newCoordinator(t *testing.T) *Coordinator {
	t.Helper()
	srv := httptest.NewServer((&backend{}).handler(t))
	t.Cleanup(srv.Close)
	store := session.New(session.Config{
		IdentityURL: srv.URL,
		AnonKey:     "anon",
		Storage:     &session.MemoryStorage{},
	})
	return New(store)
}

func TestHandleUnknownAction(t *testing.T) {
	c := newCoordinator(t)
	resp := c.Handle(context.Background(), bus.Request{Action: "frobnicate"})
	assert.False(t, resp.Success)
	assert.Equal(t, "unknown action", resp.Error)
}

func TestHandleGetSessionUnauthenticated(t *testing.T) {
	c := newCoordinator(t)
	resp := c.Handle(context.Background(), bus.Request{Action: bus.ActionGetSession})
	require.True(t, resp.Success)
	info, ok := resp.Data.(SessionInfo)
	require.True(t, ok)
	assert.False(t, info.IsAuthenticated)
	assert.Nil(t, info.User)
}

func TestHandleSignInThenGetSession(t *testing.T) {
	c := newCoordinator(t)
	ctx := context.Background()

	resp := c.Handle(ctx, bus.Request{Action: bus.ActionSignIn, Email: "a@b.co", Password: "x"})
	require.True(t, resp.Success)
	payload, ok := resp.Data.(json.RawMessage)
	require.True(t, ok)
	assert.Contains(t, string(payload), "access_token")

	resp = c.Handle(ctx, bus.Request{Action: bus.ActionGetSession})
	require.True(t, resp.Success)
	info := resp.Data.(SessionInfo)
	assert.True(t, info.IsAuthenticated)
	assert.Contains(t, string(info.User), "a@b.co")
}

func TestSavePrintOrderThenList(t *testing.T) {
	c := newCoordinator(t)
	ctx := context.Background()

	resp := c.Handle(ctx, bus.Request{
		Action:      bus.ActionSavePrintOrder,
		UserID:      "user-1",
		ImageURL:    "https://img.example/c.jpg",
		ProductType: "poster-11x14",
	})
	require.True(t, resp.Success, resp.Error)

	resp = c.Handle(ctx, bus.Request{Action: bus.ActionGetPrintOrders})
	require.True(t, resp.Success)
	rows := resp.Data.(json.RawMessage)

	var orders []PrintOrder
	require.NoError(t, json.Unmarshal(rows, &orders))
	require.Len(t, orders, 1)
	assert.Equal(t, "pending", orders[0].Status)
	assert.Equal(t, "poster-11x14", orders[0].ProductType)
	assert.Equal(t, "user-1", orders[0].UserID)
	assert.NotEmpty(t, orders[0].CreatedAt)
}

func TestHandleSignOut(t *testing.T) {
	c := newCoordinator(t)
	ctx := context.Background()

	c.Handle(ctx, bus.Request{Action: bus.ActionSignIn, Email: "a@b.co", Password: "x"})
	resp := c.Handle(ctx, bus.Request{Action: bus.ActionSignOut})
	require.True(t, resp.Success)

	resp = c.Handle(ctx, bus.Request{Action: bus.ActionGetSession})
	require.True(t, resp.Success)
	assert.False(t, resp.Data.(SessionInfo).IsAuthenticated)
}

func TestHandleNetworkFailureIsEnvelopedNotThrown(t *testing.T) {
	// Unreachable backend: the error must come back inside the envelope.
	store := session.New(session.Config{
		IdentityURL: "http://127.0.0.1:1",
		AnonKey:     "anon",
		Storage:     &session.MemoryStorage{},
	})
	c := New(store)

	resp := c.Handle(context.Background(), bus.Request{Action: bus.ActionSignIn, Email: "a@b.co", Password: "x"})
	assert.False(t, resp.Success)
	assert.NotEmpty(t, resp.Error)
}

func TestHandleRecoversPanic(t *testing.T) {
	c := newCoordinator(t)
	c.now = func() time.Time { panic("clock exploded") }

	resp := c.Handle(context.Background(), bus.Request{Action: bus.ActionSavePrintOrder})
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "internal error")
}
