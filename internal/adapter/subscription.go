package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/MKhiriev/go-sync-keeper/internal/app"
	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"github.com/MKhiriev/go-sync-keeper/models"
	"nhooyr.io/websocket"
)

// maxEnvelopeSize bounds a single push message.
const maxEnvelopeSize = 1 << 20

// Subscribe implements [Gateway]. It dials the websocket change feed of
// collection. The subscription lives until ctx ends or Close is called;
// the handshake itself is bounded by the request timeout.
func (g *httpGateway) Subscribe(ctx context.Context, collection models.Collection, userID string) (Subscription, error) {
	const op = "gateway.Subscribe"

	feedURL := g.baseURL + fmt.Sprintf(changesPath, url.PathEscape(collection.String()))

	header := http.Header{}
	if g.token != "" {
		header.Set("Authorization", "Bearer "+g.token)
	}

	subCtx, cancel := context.WithCancel(ctx)
	var handshake *time.Timer
	if g.timeout > 0 {
		handshake = time.AfterFunc(g.timeout, cancel)
	}

	conn, resp, err := websocket.Dial(subCtx, feedURL, &websocket.DialOptions{HTTPHeader: header})
	if handshake != nil && !handshake.Stop() && err == nil {
		err = context.DeadlineExceeded
		_ = conn.Close(websocket.StatusGoingAway, "handshake timeout")
	}
	if err != nil {
		cancel()
		g.logger.Err(err).
			Str("func", "httpGateway.Subscribe").
			Str("collection", collection.String()).
			Str("user_id", userID).
			Msg("failed to open change feed")
		if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
			return nil, app.E(statusKind(resp.StatusCode, app.KindValidation), op, err)
		}
		return nil, mapTransportError(op, err)
	}
	conn.SetReadLimit(maxEnvelopeSize)

	sub := newWSSubscription(conn, collection, cancel, g.logger)
	go sub.readLoop(subCtx)
	return sub, nil
}

type wsSubscription struct {
	conn       *websocket.Conn
	collection models.Collection
	cancel     context.CancelFunc
	logger     *logger.Logger

	events chan models.ChangeEvent
	done   chan struct{}

	mu     sync.Mutex
	err    error
	closed bool
}

func newWSSubscription(conn *websocket.Conn, collection models.Collection, cancel context.CancelFunc, log *logger.Logger) *wsSubscription {
	return &wsSubscription{
		conn:       conn,
		collection: collection,
		cancel:     cancel,
		logger:     log,
		events:     make(chan models.ChangeEvent),
		done:       make(chan struct{}),
	}
}

func (s *wsSubscription) Events() <-chan models.ChangeEvent { return s.events }

func (s *wsSubscription) Done() <-chan struct{} { return s.done }

func (s *wsSubscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close implements [Subscription].
func (s *wsSubscription) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	_ = s.conn.Close(websocket.StatusNormalClosure, "")
	<-s.done
	return nil
}

func (s *wsSubscription) readLoop(ctx context.Context) {
	defer close(s.done)
	defer close(s.events)
	defer s.cancel()

	for {
		typ, data, err := s.conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			s.finish(err)
			return
		}
		if typ != websocket.MessageText {
			s.drop("binary message", nil)
			continue
		}

		var event models.ChangeEvent
		if err = json.Unmarshal(data, &event); err != nil {
			s.drop("undecodable envelope", err)
			continue
		}
		if err = event.Validate(); err != nil {
			s.drop("invalid envelope", err)
			continue
		}
		if event.Collection != s.collection {
			s.drop("envelope for another collection", nil)
			continue
		}

		select {
		case s.events <- event:
		case <-ctx.Done():
			s.finish(ctx.Err())
			return
		}
	}
}

func (s *wsSubscription) drop(reason string, err error) {
	s.logger.Warn().
		Err(err).
		Str("func", "wsSubscription.readLoop").
		Str("collection", s.collection.String()).
		Msg("dropping push message: " + reason)
}

// finish records why the reader stopped. Local closes are not failures.
func (s *wsSubscription) finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || errors.Is(err, context.Canceled) {
		return
	}
	if status := websocket.CloseStatus(err); status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
		s.err = app.E(app.KindNetwork, "subscription.read", fmt.Errorf("change feed closed by server: %w", err))
		return
	}
	s.err = app.E(app.KindNetwork, "subscription.read", err)
	s.logger.Err(err).
		Str("func", "wsSubscription.readLoop").
		Str("collection", s.collection.String()).
		Msg("change feed interrupted")
}
