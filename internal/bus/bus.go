// Package bus defines the request/response contract between the UI contexts
// and the background coordinator, and an in-process bus that carries it. The
// envelope types here are the only coupling between contexts: no shared
// state, no direct references.
package bus

import (
	"context"
	"errors"
	"sync"
)

// Action tags a request with the operation the coordinator should perform.
type Action string

const (
	ActionGetSession       Action = "getSession"
	ActionSignIn           Action = "signIn"
	ActionSignUp           Action = "signUp"
	ActionSignInWithGoogle Action = "signInWithGoogle"
	ActionSignOut          Action = "signOut"
	ActionSavePrintOrder   Action = "savePrintOrder"
	ActionGetPrintOrders   Action = "getPrintOrders"
)

// Request is the tagged union sent across the bus. Only the fields relevant
// to the Action are set.
type Request struct {
	Action Action `json:"action"`

	Email       string `json:"email,omitempty"`
	Password    string `json:"password,omitempty"`
	UserID      string `json:"userId,omitempty"`
	ImageURL    string `json:"imageUrl,omitempty"`
	ProductType string `json:"productType,omitempty"`
}

// Response is the uniform envelope every request is answered with.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OK wraps data in a success envelope.
func OK(data any) Response { return Response{Success: true, Data: data} }

// Fail wraps an error message in a failure envelope.
func Fail(msg string) Response { return Response{Success: false, Error: msg} }

// Handler answers requests. The coordinator is the only implementation in
// production; it must never let a panic or error escape unconverted.
type Handler interface {
	Handle(ctx context.Context, req Request) Response
}

// Dispatcher is the caller-side capability UI contexts hold. They never see
// the handler directly.
type Dispatcher interface {
	Send(ctx context.Context, req Request) (Response, error)
}

// ErrBusClosed is returned when the bus shuts down before a response is
// delivered. The background context's lifetime is not guaranteed; callers
// treat this as a failed request.
var ErrBusClosed = errors.New("message bus closed")

type pending struct {
	ctx  context.Context
	req  Request
	resp chan Response
}

// Bus pumps requests to a single handler goroutine, mirroring the
// single-threaded background context: requests are handled one at a time, in
// arrival order. Each Send opens a pending-response slot that is closed
// exactly once — by the envelope, or implicitly when the bus is torn down.
type Bus struct {
	requests chan pending
	done     chan struct{}
	once     sync.Once
}

// New starts the handler pump.
func New(h Handler) *Bus {
	b := &Bus{
		requests: make(chan pending),
		done:     make(chan struct{}),
	}
	go b.pump(h)
	return b
}

func (b *Bus) pump(h Handler) {
	for {
		select {
		case p := <-b.requests:
			p.resp <- h.Handle(p.ctx, p.req)
		case <-b.done:
			return
		}
	}
}

// Send delivers a request and blocks for its response. Returns ErrBusClosed
// if the bus is torn down first, or the context error on cancellation.
func (b *Bus) Send(ctx context.Context, req Request) (Response, error) {
	p := pending{ctx: ctx, req: req, resp: make(chan Response, 1)}

	select {
	case b.requests <- p:
	case <-b.done:
		return Response{}, ErrBusClosed
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}

	select {
	case resp := <-p.resp:
		return resp, nil
	case <-b.done:
		return Response{}, ErrBusClosed
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

// Close tears the bus down. In-flight Sends fail with ErrBusClosed.
func (b *Bus) Close() {
	b.once.Do(func() { close(b.done) })
}
