package injector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/tekpress/cli/internal/bus"
	"github.com/tekpress/cli/internal/coordinator"
)

// ModalState enumerates the print-flow modal's states.
type ModalState string

const (
	StateClosed    ModalState = "closed"
	StateLogin     ModalState = "login"
	StateSignup    ModalState = "signup"
	StatePrint     ModalState = "print"
	StateConfirmed ModalState = "confirmed"
)

var (
	// ErrBusy rejects an action while a previous request is still in
	// flight. The coordinator does not debounce double submissions, so the
	// modal must.
	ErrBusy = errors.New("request already in flight")
	// ErrPasswordMismatch is the client-side signup validation failure.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrWrongState rejects a transition the current state does not allow.
	ErrWrongState = errors.New("action not available in current state")
)

// Modal is the print-flow state machine. A single instance exists per page;
// opening it again tears down the previous flow first, so at most one modal
// is ever active. All backend work goes through the dispatcher.
type Modal struct {
	dispatcher bus.Dispatcher

	state    ModalState
	imageURL string
	userID   string
	busy     bool
}

// NewModal builds a closed modal wired to the coordinator.
func NewModal(d bus.Dispatcher) *Modal {
	return &Modal{dispatcher: d, state: StateClosed}
}

// State returns the current state.
func (m *Modal) State() ModalState { return m.state }

// ImageURL returns the image the open flow is about.
func (m *Modal) ImageURL() string { return m.imageURL }

// Open starts the flow for imageURL after refreshing auth status: signed-in
// users land on the print options, everyone else on the login form. Any
// previous flow, including its form state, is discarded.
func (m *Modal) Open(ctx context.Context, imageURL string) error {
	m.reset()
	m.imageURL = imageURL

	resp, err := m.dispatcher.Send(ctx, bus.Request{Action: bus.ActionGetSession})
	if err != nil {
		m.reset()
		return err
	}
	info, ok := resp.Data.(coordinator.SessionInfo)
	if resp.Success && ok && info.IsAuthenticated {
		m.userID = gjson.GetBytes(info.User, "id").String()
		m.state = StatePrint
		return nil
	}
	m.state = StateLogin
	return nil
}

// Close discards the flow and all in-progress form input.
func (m *Modal) Close() { m.reset() }

func (m *Modal) reset() {
	m.state = StateClosed
	m.imageURL = ""
	m.userID = ""
	m.busy = false
}

// ShowSignup switches the login form to the signup form.
func (m *Modal) ShowSignup() error {
	if m.state != StateLogin {
		return ErrWrongState
	}
	m.state = StateSignup
	return nil
}

// ShowLogin switches the signup form back to login.
func (m *Modal) ShowLogin() error {
	if m.state != StateSignup {
		return ErrWrongState
	}
	m.state = StateLogin
	return nil
}

// SubmitLogin signs in with email/password and, on success, advances to the
// print options.
func (m *Modal) SubmitLogin(ctx context.Context, email, password string) error {
	if m.state != StateLogin {
		return ErrWrongState
	}
	return m.authenticate(ctx, bus.Request{Action: bus.ActionSignIn, Email: email, Password: password})
}

// SubmitSignup validates the confirmation client-side, registers, and on
// success advances to the print options.
func (m *Modal) SubmitSignup(ctx context.Context, email, password, confirm string) error {
	if m.state != StateSignup {
		return ErrWrongState
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	return m.authenticate(ctx, bus.Request{Action: bus.ActionSignUp, Email: email, Password: password})
}

// SignInWithGoogle runs the OAuth flow from the login form.
func (m *Modal) SignInWithGoogle(ctx context.Context) error {
	if m.state != StateLogin {
		return ErrWrongState
	}
	return m.authenticate(ctx, bus.Request{Action: bus.ActionSignInWithGoogle})
}

func (m *Modal) authenticate(ctx context.Context, req bus.Request) error {
	if m.busy {
		return ErrBusy
	}
	m.busy = true
	defer func() { m.busy = false }()

	resp, err := m.dispatcher.Send(ctx, req)
	if err != nil {
		return err
	}
	if !resp.Success {
		return errors.New(resp.Error)
	}
	// Password grants answer 200 with an error body on bad credentials;
	// only a token payload counts as signed in.
	if payload, ok := resp.Data.(json.RawMessage); ok {
		if !gjson.GetBytes(payload, "access_token").Exists() {
			if desc := gjson.GetBytes(payload, "error_description"); desc.Exists() {
				return errors.New(desc.String())
			}
			return errors.New("sign in failed")
		}
	}

	// Re-query for the authoritative user id rather than trusting the
	// grant payload shape.
	resp, err = m.dispatcher.Send(ctx, bus.Request{Action: bus.ActionGetSession})
	if err != nil {
		return err
	}
	if info, ok := resp.Data.(coordinator.SessionInfo); ok {
		m.userID = gjson.GetBytes(info.User, "id").String()
	}
	m.state = StatePrint
	return nil
}

// SubmitOrder composes the productType as "{product}-{size}", saves the
// order through the coordinator, and shows the confirmation.
func (m *Modal) SubmitOrder(ctx context.Context, product, size string) error {
	if m.state != StatePrint {
		return ErrWrongState
	}
	if m.busy {
		return ErrBusy
	}
	if product == "" || size == "" {
		return errors.New("product and size are required")
	}
	m.busy = true
	defer func() { m.busy = false }()

	resp, err := m.dispatcher.Send(ctx, bus.Request{
		Action:      bus.ActionSavePrintOrder,
		UserID:      m.userID,
		ImageURL:    m.imageURL,
		ProductType: fmt.Sprintf("%s-%s", product, size),
	})
	if err != nil {
		return err
	}
	if !resp.Success {
		return errors.New(resp.Error)
	}
	m.state = StateConfirmed
	return nil
}

// Attach renders the modal overlay into doc. Any existing overlay is removed
// first, so the document never holds more than one. A closed modal leaves
// the document overlay-free.
func (m *Modal) Attach(doc *html.Node) {
	removeNodesWithClass(doc, OverlayClass)
	if m.state == StateClosed {
		return
	}

	body := findBody(doc)
	if body == nil {
		return
	}
	overlay := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Div,
		Data:     "div",
		Attr: []html.Attribute{
			{Key: "class", Val: OverlayClass},
			{Key: "data-state", Val: string(m.state)},
			{Key: "data-image-url", Val: m.imageURL},
		},
	}
	body.AppendChild(overlay)
}

func findBody(doc *html.Node) *html.Node {
	for n := range doc.Descendants() {
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			return n
		}
	}
	return nil
}
