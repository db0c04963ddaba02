package adapter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/MKhiriev/go-sync-keeper/internal/app"
	"github.com/MKhiriev/go-sync-keeper/internal/config"
	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// feedServer accepts one websocket per request and runs script on it.
func feedServer(t *testing.T, script func(ctx context.Context, conn *websocket.Conn)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "/api/collections/accounts/changes", r.URL.Path)

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		script(r.Context(), conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// waitForClient blocks until the client side goes away.
func waitForClient(ctx context.Context, conn *websocket.Conn) {
	<-conn.CloseRead(ctx).Done()
}

func receive(t *testing.T, sub Subscription) models.ChangeEvent {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok, "events channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return models.ChangeEvent{}
}

func TestSubscribe_DropsMalformedEnvelopes(t *testing.T) {
	valid := models.ChangeEvent{Kind: models.ChangeInsert, Collection: models.Accounts, Record: models.Record{"id": "acc-1"}}

	srv := feedServer(t, func(ctx context.Context, conn *websocket.Conn) {
		_ = conn.Write(ctx, websocket.MessageText, []byte("{not json"))
		_ = conn.Write(ctx, websocket.MessageBinary, []byte{1, 2, 3})
		_ = wsjson.Write(ctx, conn, models.ChangeEvent{Kind: "UPSERT", Collection: models.Accounts, Record: models.Record{"id": "x"}})
		_ = wsjson.Write(ctx, conn, models.ChangeEvent{Kind: models.ChangeInsert, Collection: models.Accounts, Record: models.Record{}})
		_ = wsjson.Write(ctx, conn, models.ChangeEvent{Kind: models.ChangeInsert, Collection: models.Goals, Record: models.Record{"id": "g"}})
		_ = wsjson.Write(ctx, conn, valid)
		waitForClient(ctx, conn)
	})

	sub, err := newTestGateway(t, srv.URL).Subscribe(context.Background(), models.Accounts, "u")
	require.NoError(t, err)

	got := receive(t, sub)
	assert.Equal(t, valid.Record.ID(), got.Record.ID())
	assert.Equal(t, models.ChangeInsert, got.Kind)

	require.NoError(t, sub.Close())
	select {
	case <-sub.Done():
	default:
		t.Fatal("Close returned before the reader exited")
	}
	_, ok := <-sub.Events()
	assert.False(t, ok)
	assert.NoError(t, sub.Err(), "local close is not a failure")
	assert.NoError(t, sub.Close(), "second close is a no-op")
}

func TestSubscribe_ServerClosure(t *testing.T) {
	srv := feedServer(t, func(ctx context.Context, conn *websocket.Conn) {
		_ = conn.Close(websocket.StatusGoingAway, "shutting down")
	})

	sub, err := newTestGateway(t, srv.URL).Subscribe(context.Background(), models.Accounts, "u")
	require.NoError(t, err)

	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscription did not end")
	}
	assert.ErrorIs(t, sub.Err(), app.ErrNetwork)
	assert.NoError(t, sub.Close())
}

func TestSubscribe_ContextCancellation(t *testing.T) {
	srv := feedServer(t, waitForClient)

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := newTestGateway(t, srv.URL).Subscribe(ctx, models.Accounts, "u")
	require.NoError(t, err)

	cancel()
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("subscription ignored cancellation")
	}
	assert.NoError(t, sub.Err())
}

func TestSubscribe_Unauthorized(t *testing.T) {
	srv := feedServer(t, func(ctx context.Context, conn *websocket.Conn) {})

	g, err := NewHTTPGateway(config.ClientAdapter{BaseURL: srv.URL, RequestTimeout: 2 * time.Second}, "wrong", logger.Nop())
	require.NoError(t, err)

	_, err = g.Subscribe(context.Background(), models.Accounts, "u")
	assert.ErrorIs(t, err, app.ErrAuth)
}

func TestSubscribe_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := newTestGateway(t, url).Subscribe(context.Background(), models.Accounts, "u")
	assert.ErrorIs(t, err, app.ErrNetwork)
}
