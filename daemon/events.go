package daemon

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/artpar/confchan/domain/value"
	"github.com/artpar/confchan/ports"
)

// EventName is the SSE event type carrying a property change.
const EventName = "property-changed"

// keepaliveInterval paces SSE comment lines so idle connections are
// not reaped by intermediaries.
const keepaliveInterval = 30 * time.Second

// wireEvent is the JSON shape of one change notification.
type wireEvent struct {
	Channel string      `json:"channel"`
	Path    string      `json:"path"`
	Value   value.Value `json:"value"`
}

// StreamEvents serves the change feed for one channel as Server-Sent
// Events. The response stays open until the client disconnects.
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "remote_failure", "streaming unsupported")
		return
	}

	sub, err := h.store.Subscribe(r.Context(), channel)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Tell the client the stream is live before any event arrives.
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	if h.metrics != nil {
		h.metrics.SubscribersLive.Inc()
		defer h.metrics.SubscribersLive.Dec()
	}
	h.logger.Debug().Str("channel", channel).Msg("event stream opened")
	defer h.logger.Debug().Str("channel", channel).Msg("event stream closed")

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := writeSSEEvent(w, ev); err != nil {
				return
			}
			flusher.Flush()
			if h.metrics != nil {
				h.metrics.EventsEmitted.WithLabelValues(ev.Channel).Inc()
			}
		case <-keepalive.C:
			if _, err := fmt.Fprint(w, ": keepalive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, ev ports.Event) error {
	data, err := json.Marshal(wireEvent{Channel: ev.Channel, Path: ev.Path, Value: ev.Value})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", EventName, data)
	return err
}
