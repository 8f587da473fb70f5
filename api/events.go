package api

import (
	"fmt"
	"net/http"

	"duoaudio/events"
)

// SSEHandler handles Server-Sent Events connections
func SSEHandler(broker *events.EventBroker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "Streaming unsupported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")

		// Buffered so a slow client does not block broadcasts
		client := make(chan string, 32)
		broker.Register(client)
		defer broker.Unregister(client)

		fmt.Fprintf(w, "event: connected\ndata: {\"message\": \"Connected to duoaudio events\"}\n\n")
		flusher.Flush()

		for {
			select {
			case message, open := <-client:
				if !open {
					return
				}
				fmt.Fprint(w, message)
				flusher.Flush()
			case <-r.Context().Done():
				return
			}
		}
	}
}
