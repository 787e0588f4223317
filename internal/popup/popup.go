// Package popup is the short-lived view shown when the user opens the
// extension surface: an auth form when signed out, an order dashboard when
// signed in. It holds no authority over any state — every action round-trips
// through the coordinator and the view is rebuilt from the response.
package popup

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"github.com/tekpress/cli/internal/bus"
	"github.com/tekpress/cli/internal/coordinator"
)

// ErrorWindow is how long a transient error stays visible before it is
// auto-hidden. A new error replaces the current one immediately.
const ErrorWindow = 5 * time.Second

// OrderView is one dashboard row, already formatted for display.
type OrderView struct {
	ImageURL    string
	ProductType string
	CreatedAt   string
	Status      string
}

// View is the render model: either the auth view (Authenticated false) or
// the dashboard.
type View struct {
	Authenticated bool
	Email         string
	Avatar        string
	Orders        []OrderView
	ErrorText     string
}

// Controller mediates between the rendered view and the coordinator.
type Controller struct {
	dispatcher  bus.Dispatcher
	errorWindow time.Duration

	mu       sync.Mutex
	view     View
	errTimer *time.Timer
}

// NewController wires a controller to the coordinator.
func NewController(d bus.Dispatcher) *Controller {
	return &Controller{dispatcher: d, errorWindow: ErrorWindow}
}

// View returns a snapshot of the current render model.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view
}

// Open queries the authoritative session and rebuilds the view: dashboard
// with orders when signed in, auth forms otherwise.
func (c *Controller) Open(ctx context.Context) error {
	resp, err := c.dispatcher.Send(ctx, bus.Request{Action: bus.ActionGetSession})
	if err != nil {
		return err
	}
	info, _ := resp.Data.(coordinator.SessionInfo)

	next := View{}
	if resp.Success && info.IsAuthenticated {
		email := gjson.GetBytes(info.User, "email").String()
		if email == "" {
			email = "User"
		}
		next.Authenticated = true
		next.Email = email
		next.Avatar = strings.ToUpper(email[:1])

		orders, err := c.loadOrders(ctx)
		if err != nil {
			return err
		}
		next.Orders = orders
	}

	c.mu.Lock()
	next.ErrorText = c.view.ErrorText
	c.view = next
	c.mu.Unlock()
	return nil
}

func (c *Controller) loadOrders(ctx context.Context) ([]OrderView, error) {
	resp, err := c.dispatcher.Send(ctx, bus.Request{Action: bus.ActionGetPrintOrders})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, errors.New(resp.Error)
	}
	raw, _ := resp.Data.(json.RawMessage)
	rows := gjson.ParseBytes(raw).Array()
	return lo.Map(rows, func(row gjson.Result, _ int) OrderView {
		return OrderView{
			ImageURL:    row.Get("image_url").String(),
			ProductType: FormatProductType(row.Get("product_type").String()),
			CreatedAt:   FormatDate(row.Get("created_at").String()),
			Status:      row.Get("status").String(),
		}
	}), nil
}

// SignIn authenticates and re-queries the authoritative state. The extra
// round trip guarantees the displayed state is the coordinator's view, never
// an optimistic local guess.
func (c *Controller) SignIn(ctx context.Context, email, password string) error {
	return c.grant(ctx, bus.Request{Action: bus.ActionSignIn, Email: email, Password: password}, "Sign in failed")
}

// SignUp validates the confirmation locally, registers, and re-queries.
func (c *Controller) SignUp(ctx context.Context, email, password, confirm string) error {
	if password != confirm {
		c.ShowError("Passwords do not match")
		return nil
	}
	return c.grant(ctx, bus.Request{Action: bus.ActionSignUp, Email: email, Password: password}, "Sign up failed")
}

func (c *Controller) grant(ctx context.Context, req bus.Request, fallback string) error {
	resp, err := c.dispatcher.Send(ctx, req)
	if err != nil {
		return err
	}
	payload, _ := resp.Data.(json.RawMessage)
	if !resp.Success || !gjson.GetBytes(payload, "access_token").Exists() {
		c.ShowError(firstNonEmpty(
			gjson.GetBytes(payload, "error_description").String(),
			resp.Error,
			fallback,
		))
		return nil
	}
	return c.Open(ctx)
}

// SignInWithGoogle runs the OAuth flow and re-queries.
func (c *Controller) SignInWithGoogle(ctx context.Context) error {
	resp, err := c.dispatcher.Send(ctx, bus.Request{Action: bus.ActionSignInWithGoogle})
	if err != nil {
		return err
	}
	if !resp.Success {
		c.ShowError(firstNonEmpty(resp.Error, "Google sign in failed"))
		return nil
	}
	return c.Open(ctx)
}

// SignOut clears the session and re-queries.
func (c *Controller) SignOut(ctx context.Context) error {
	if _, err := c.dispatcher.Send(ctx, bus.Request{Action: bus.ActionSignOut}); err != nil {
		return err
	}
	return c.Open(ctx)
}

// ShowError displays a transient error. A second error replaces the first
// immediately; each one is hidden after the error window elapses.
func (c *Controller) ShowError(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.view.ErrorText = msg
	if c.errTimer != nil {
		c.errTimer.Stop()
	}
	c.errTimer = time.AfterFunc(c.errorWindow, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.view.ErrorText == msg {
			c.view.ErrorText = ""
		}
	})
}

// FormatProductType renders "poster-11x14" as "Poster 11x14".
func FormatProductType(productType string) string {
	if productType == "" {
		return "Print"
	}
	parts := strings.Split(productType, "-")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, " ")
}

// FormatDate renders an RFC3339 timestamp as "Jan 2, 2006"; anything
// unparseable is shown as-is.
func FormatDate(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return t.Format("Jan 2, 2006")
}

func firstNonEmpty(items ...string) string {
	for _, s := range items {
		if s != "" {
			return s
		}
	}
	return ""
}
