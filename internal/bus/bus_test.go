package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handlerFunc func(ctx context.Context, req Request) Response

func (f handlerFunc) Handle(ctx context.Context, req Request) Response { return f(ctx, req) }

func TestSendRoundTrip(t *testing.T) {
	b := New(handlerFunc(func(ctx context.Context, req Request) Response {
		assert.Equal(t, ActionSignIn, req.Action)
		return OK(map[string]string{"access_token": "tok"})
	}))
	t.Cleanup(b.Close)

	resp, err := b.Send(context.Background(), Request{Action: ActionSignIn, Email: "a@b.co", Password: "x"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestSendPreservesOrderWithinCaller(t *testing.T) {
	var seen []Action
	b := New(handlerFunc(func(ctx context.Context, req Request) Response {
		seen = append(seen, req.Action)
		return OK(nil)
	}))
	t.Cleanup(b.Close)

	ctx := context.Background()
	for _, a := range []Action{ActionSignIn, ActionGetSession, ActionGetPrintOrders} {
		_, err := b.Send(ctx, Request{Action: a})
		require.NoError(t, err)
	}
	assert.Equal(t, []Action{ActionSignIn, ActionGetSession, ActionGetPrintOrders}, seen)
}

func TestSendAfterCloseFails(t *testing.T) {
	b := New(handlerFunc(func(ctx context.Context, req Request) Response { return OK(nil) }))
	b.Close()

	_, err := b.Send(context.Background(), Request{Action: ActionGetSession})
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestCloseDuringInFlightRequestFails(t *testing.T) {
	started := make(chan struct{})
	block := make(chan struct{})
	b := New(handlerFunc(func(ctx context.Context, req Request) Response {
		close(started)
		<-block
		return OK(nil)
	}))
	t.Cleanup(func() { close(block) })

	errs := make(chan error, 1)
	go func() {
		_, err := b.Send(context.Background(), Request{Action: ActionGetSession})
		errs <- err
	}()

	<-started
	b.Close()

	select {
	case err := <-errs:
		assert.ErrorIs(t, err, ErrBusClosed)
	case <-time.After(time.Second):
		t.Fatal("send did not unblock after bus close")
	}
}

func TestSendHonorsContextCancellation(t *testing.T) {
	block := make(chan struct{})
	b := New(handlerFunc(func(ctx context.Context, req Request) Response {
		<-block
		return OK(nil)
	}))
	t.Cleanup(func() { close(block); b.Close() })

	// First request occupies the handler; the second caller gives up.
	go b.Send(context.Background(), Request{Action: ActionGetSession}) //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := b.Send(ctx, Request{Action: ActionGetSession})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCloseIsIdempotent(t *testing.T) {
	b := New(handlerFunc(func(ctx context.Context, req Request) Response { return OK(nil) }))
	b.Close()
	b.Close()
}
