// Package coordinator is the background half of the message protocol: a
// stateless dispatcher that receives typed requests from the UI contexts,
// performs them against the session store or the order table, and answers
// with the uniform envelope. It is the only place errors are caught and
// converted — the callers live in other contexts with no shared
// error-handling path, so nothing may cross the bus unconverted.
package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tekpress/cli/internal/bus"
	"github.com/tekpress/cli/internal/session"
)

const ordersTable = "print_orders"

// SessionInfo is the getSession success payload.
type SessionInfo struct {
	IsAuthenticated bool            `json:"isAuthenticated"`
	User            json.RawMessage `json:"user,omitempty"`
}

// PrintOrder is the row shape inserted into the order table. Status begins
// at "pending"; later transitions arrive from the backend and are only read
// here, never written.
type PrintOrder struct {
	UserID      string `json:"user_id"`
	ImageURL    string `json:"image_url"`
	ProductType string `json:"product_type"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
}

// Coordinator dispatches bus requests. It holds no state of its own beyond
// the injected session store; construct one per process at startup.
type Coordinator struct {
	sessions *session.Store
	now      func() time.Time
}

// New builds a Coordinator around the given session store.
func New(sessions *session.Store) *Coordinator {
	return &Coordinator{sessions: sessions, now: time.Now}
}

// Handle implements bus.Handler. Every request re-runs Init first: the
// background process may have been recycled since the last message, and the
// persisted session is the only state that survives.
func (c *Coordinator) Handle(ctx context.Context, req bus.Request) (resp bus.Response) {
	defer func() {
		if r := recover(); r != nil {
			resp = bus.Fail(fmt.Sprintf("internal error: %v", r))
		}
	}()

	if err := c.sessions.Init(ctx); err != nil {
		return bus.Fail(err.Error())
	}

	switch req.Action {
	case bus.ActionGetSession:
		return c.getSession(ctx)
	case bus.ActionSignIn:
		return c.tokenGrant(c.sessions.SignIn)(ctx, req)
	case bus.ActionSignUp:
		return c.tokenGrant(c.sessions.SignUp)(ctx, req)
	case bus.ActionSignInWithGoogle:
		return c.signInWithGoogle(ctx)
	case bus.ActionSignOut:
		return c.signOut(ctx)
	case bus.ActionSavePrintOrder:
		return c.savePrintOrder(ctx, req)
	case bus.ActionGetPrintOrders:
		return c.getPrintOrders(ctx)
	default:
		return bus.Fail("unknown action")
	}
}

func (c *Coordinator) getSession(ctx context.Context) bus.Response {
	info := SessionInfo{IsAuthenticated: c.sessions.IsAuthenticated()}
	if info.IsAuthenticated {
		user, err := c.sessions.GetUser(ctx)
		if err != nil {
			return bus.Fail(err.Error())
		}
		info.User = user
	}
	return bus.OK(info)
}

func (c *Coordinator) tokenGrant(grant func(context.Context, string, string) (json.RawMessage, error)) func(context.Context, bus.Request) bus.Response {
	return func(ctx context.Context, req bus.Request) bus.Response {
		payload, err := grant(ctx, req.Email, req.Password)
		if err != nil {
			return bus.Fail(err.Error())
		}
		// The payload may be a backend error body; callers decide by
		// looking for a token, as the session store did.
		return bus.OK(payload)
	}
}

func (c *Coordinator) signInWithGoogle(ctx context.Context) bus.Response {
	result, err := c.sessions.SignInWithOAuth(ctx, "google")
	if err != nil {
		return bus.Fail(err.Error())
	}
	return bus.OK(result)
}

func (c *Coordinator) signOut(ctx context.Context) bus.Response {
	if err := c.sessions.SignOut(ctx); err != nil {
		return bus.Fail(err.Error())
	}
	return bus.OK(nil)
}

func (c *Coordinator) savePrintOrder(ctx context.Context, req bus.Request) bus.Response {
	row, err := c.sessions.From(ordersTable).Insert(ctx, PrintOrder{
		UserID:      req.UserID,
		ImageURL:    req.ImageURL,
		ProductType: req.ProductType,
		Status:      "pending",
		CreatedAt:   c.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return bus.Fail(err.Error())
	}
	return bus.OK(row)
}

func (c *Coordinator) getPrintOrders(ctx context.Context) bus.Response {
	rows, err := c.sessions.From(ordersTable).Select(ctx, "*")
	if err != nil {
		return bus.Fail(err.Error())
	}
	return bus.OK(rows)
}
