package server

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/adamantos/aide/internal/events"
)

// EventsWebsocketHandler streams job lifecycle events over a websocket,
// for consumers that cannot use SSE (the TUI client).
type EventsWebsocketHandler struct {
	bus *events.Bus
	log zerolog.Logger
}

// NewEventsWebsocketHandler creates a new websocket events handler.
func NewEventsWebsocketHandler(bus *events.Bus, log zerolog.Logger) *EventsWebsocketHandler {
	return &EventsWebsocketHandler{
		bus: bus,
		log: log.With().Str("component", "events_ws").Logger(),
	}
}

// ServeHTTP handles GET /api/events/ws requests. The same `types` filter
// as the SSE stream applies.
func (h *EventsWebsocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // CORS is enforced by the router middleware
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket accept failed")
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	allowedTypes := parseTypesFilter(r.URL.Query().Get("types"))

	h.log.Info().Msg("Client connected to websocket event stream")

	eventChan := make(chan *events.Event, 100)
	unsubscribe := subscribeJobEvents(h.bus, allowedTypes, eventChan, h.log)
	defer unsubscribe()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("Client disconnected from websocket event stream")
			return
		case event := <-eventChan:
			writeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			err := wsjson.Write(writeCtx, conn, event)
			cancel()
			if err != nil {
				h.log.Debug().Err(err).Msg("Websocket write failed, closing")
				return
			}
		}
	}
}
