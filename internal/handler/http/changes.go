package http

import (
	"context"
	"net/http"
	"time"

	"github.com/MKhiriev/go-sync-keeper/internal/logger"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// writeTimeout bounds the delivery of one change envelope.
const writeTimeout = 5 * time.Second

// changes upgrades the request to a websocket and streams the change events
// of the collection as {kind, collection, record} text frames until either
// side goes away.
func (h *Handler) changes(w http.ResponseWriter, r *http.Request) {
	log := logger.FromRequest(r)
	userID, collection := scope(r)

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		log.Err(err).Str("func", "*Handler.changes").Msg("websocket upgrade failed")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	events, release := h.services.ChangeHub.Subscribe(userID, collection)
	defer release()

	// clients never send; reading only watches for the close frame
	ctx := conn.CloseRead(r.Context())

	log.Info().
		Str("func", "*Handler.changes").
		Str("user_id", userID).
		Str("collection", collection.String()).
		Msg("change feed opened")

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case event, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "feed closed")
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = wsjson.Write(writeCtx, conn, event)
			cancel()
			if err != nil {
				log.Warn().Err(err).
					Str("func", "*Handler.changes").
					Str("collection", collection.String()).
					Msg("change feed write failed")
				return
			}
		}
	}
}
