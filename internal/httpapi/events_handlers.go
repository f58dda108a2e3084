package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"jobpulse-engine/internal/events"
)

type EventsHandler struct {
	Hub       *events.Hub
	KeepAlive time.Duration // 25s when zero
}

func (h EventsHandler) ServeSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, r, http.StatusInternalServerError, "stream_unsupported", "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, unsubscribe := h.Hub.Subscribe()
	defer unsubscribe()

	reqID := RequestIDFrom(r.Context())
	send := func(msg string) {
		fmt.Fprintf(w, "event: message\ndata: %s\n\n", msg)
		flusher.Flush()
	}
	send(events.MakeEvent(reqID, events.TypePing, 1, nil))

	every := h.KeepAlive
	if every <= 0 {
		every = 25 * time.Second
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			send(events.MakeEvent(reqID, events.TypePing, 1, nil))
		case msg, open := <-ch:
			if !open {
				return
			}
			send(msg)
		}
	}
}
