package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/adamantos/aide/internal/events"
)

// jobEventTypes are the lifecycle events exposed over the streams.
var jobEventTypes = []events.EventType{
	events.JobSubmitted,
	events.JobDeferred,
	events.JobStarted,
	events.JobProgress,
	events.JobCompleted,
	events.JobRetrying,
	events.JobFailed,
	events.JobCancelled,
	events.JobEvicted,
	events.ErrorOccurred,
}

// EventsStreamHandler handles Server-Sent Events (SSE) streaming of job
// lifecycle events.
type EventsStreamHandler struct {
	bus *events.Bus
	log zerolog.Logger
}

// NewEventsStreamHandler creates a new events stream handler.
func NewEventsStreamHandler(bus *events.Bus, log zerolog.Logger) *EventsStreamHandler {
	return &EventsStreamHandler{
		bus: bus,
		log: log.With().Str("component", "events_stream").Logger(),
	}
}

// ServeHTTP handles GET /api/events/stream requests (SSE). The optional
// `types` query parameter is a comma-separated filter of event types.
func (h *EventsStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	allowedTypes := parseTypesFilter(r.URL.Query().Get("types"))

	h.log.Info().Msg("Client connected to event stream")

	// Buffered channel per connection; events are dropped rather than
	// blocking the emitting goroutine.
	eventChan := make(chan *events.Event, 100)
	unsubscribe := subscribeJobEvents(h.bus, allowedTypes, eventChan, h.log)
	defer unsubscribe()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			h.log.Info().Msg("Client disconnected from event stream")
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case event := <-eventChan:
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
			flusher.Flush()
		}
	}
}

// parseTypesFilter builds the allowed-type set from a comma-separated
// filter; nil means all types are allowed.
func parseTypesFilter(filter string) map[events.EventType]bool {
	if filter == "" {
		return nil
	}
	allowed := make(map[events.EventType]bool)
	for _, t := range strings.Split(filter, ",") {
		allowed[events.EventType(strings.TrimSpace(t))] = true
	}
	return allowed
}

// subscribeJobEvents subscribes the channel to all job event types passing
// the filter, returning a function that removes every subscription.
func subscribeJobEvents(bus *events.Bus, allowed map[events.EventType]bool, ch chan<- *events.Event, log zerolog.Logger) func() {
	var unsubscribes []func()
	for _, eventType := range jobEventTypes {
		if allowed != nil && !allowed[eventType] {
			continue
		}
		unsub := bus.Subscribe(eventType, func(event *events.Event) {
			select {
			case ch <- event:
			default:
				log.Warn().
					Str("event_type", string(event.Type)).
					Msg("Event channel full, dropping event")
			}
		})
		unsubscribes = append(unsubscribes, unsub)
	}
	return func() {
		for _, unsub := range unsubscribes {
			unsub()
		}
	}
}
