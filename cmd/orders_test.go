package cmd

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tekpress/cli/internal/bus"
	"github.com/tekpress/cli/internal/coordinator"
)

type FakeDispatcher struct {
	SendFunc func(ctx context.Context, req bus.Request) (bus.Response, error)
	Sent     []bus.Request
}

func (f *FakeDispatcher) Send(ctx context.Context, req bus.Request) (bus.Response, error) {
	f.Sent = append(f.Sent, req)
	if f.SendFunc != nil {
		return f.SendFunc(ctx, req)
	}
	return bus.OK(nil), nil
}

func TestOrdersList_PrintsTable(t *testing.T) {
	setupStdoutCapture(t)

	fake := &FakeDispatcher{
		SendFunc: func(ctx context.Context, req bus.Request) (bus.Response, error) {
			require.Equal(t, bus.ActionGetPrintOrders, req.Action)
			return bus.OK(json.RawMessage(`[{"image_url":"https://img.example/cat.jpg",` +
				`"product_type":"poster-11x14","created_at":"2026-08-27T10:00:00Z","status":"pending"}]`)), nil
		},
	}
	c := OrdersCmd{dispatcher: fake}

	require.NoError(t, c.List(context.Background(), OrdersListInput{}))

	out := outBuf.String()
	assert.Contains(t, out, "Poster 11x14")
	assert.Contains(t, out, "pending")
	assert.Contains(t, out, "Aug 27, 2026")
}

func TestOrdersList_Empty(t *testing.T) {
	setupStdoutCapture(t)

	fake := &FakeDispatcher{
		SendFunc: func(ctx context.Context, req bus.Request) (bus.Response, error) {
			return bus.OK(json.RawMessage(`[]`)), nil
		},
	}
	c := OrdersCmd{dispatcher: fake}

	require.NoError(t, c.List(context.Background(), OrdersListInput{}))
	assert.Contains(t, outBuf.String(), "No print orders")
}

func TestOrdersList_FailureEnvelope(t *testing.T) {
	fake := &FakeDispatcher{
		SendFunc: func(ctx context.Context, req bus.Request) (bus.Response, error) {
			return bus.Fail("Auth session missing"), nil
		},
	}
	c := OrdersCmd{dispatcher: fake}

	err := c.List(context.Background(), OrdersListInput{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Auth session missing")
}

func TestOrdersCreate_ComposesProductType(t *testing.T) {
	setupStdoutCapture(t)

	fake := &FakeDispatcher{
		SendFunc: func(ctx context.Context, req bus.Request) (bus.Response, error) {
			switch req.Action {
			case bus.ActionGetSession:
				return bus.OK(coordinator.SessionInfo{
					IsAuthenticated: true,
					User:            json.RawMessage(`{"id":"user-1"}`),
				}), nil
			case bus.ActionSavePrintOrder:
				return bus.OK(json.RawMessage(`[{}]`)), nil
			}
			return bus.Fail("unknown action"), nil
		},
	}
	c := OrdersCmd{dispatcher: fake}

	err := c.Create(context.Background(), OrdersCreateInput{
		ImageURL: "https://img.example/cat.jpg",
		Product:  "poster",
		Size:     "11x14",
	})
	require.NoError(t, err)

	require.Len(t, fake.Sent, 2)
	saved := fake.Sent[1]
	assert.Equal(t, "user-1", saved.UserID)
	assert.Equal(t, "poster-11x14", saved.ProductType)
	assert.Contains(t, outBuf.String(), "GLOBAL-HPR-11X14")
}

func TestOrdersCreate_RequiresSignIn(t *testing.T) {
	fake := &FakeDispatcher{
		SendFunc: func(ctx context.Context, req bus.Request) (bus.Response, error) {
			return bus.OK(coordinator.SessionInfo{IsAuthenticated: false}), nil
		},
	}
	c := OrdersCmd{dispatcher: fake}

	err := c.Create(context.Background(), OrdersCreateInput{
		ImageURL: "https://img.example/cat.jpg",
		Product:  "poster",
		Size:     "8x10",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not signed in")
	require.Len(t, fake.Sent, 1)
}
