package handlers

import (
	"fmt"
	"net/http"
	"time"

	"filedrop/internal/api/middleware"
	"filedrop/internal/pkg/errors"
	"filedrop/internal/platform/cache"

	"github.com/rs/zerolog/log"
)

const defaultHeartbeat = 25 * time.Second

// EventsHandler streams refresh signals to a creator's dashboard as server-sent events.
type EventsHandler struct {
	subscriber cache.Subscriber
	heartbeat  time.Duration
}

func NewEventsHandler(subscriber cache.Subscriber) *EventsHandler {
	return &EventsHandler{subscriber: subscriber, heartbeat: defaultHeartbeat}
}

// Stream emits a "refresh" event whenever the caller's inboxes or counters
// change, and a comment line as heartbeat. It returns when the client leaves.
func (h *EventsHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity := middleware.IdentityFrom(ctx)

	signals, err := h.subscriber.Subscribe(ctx, identity.UserID)
	if err != nil {
		errors.WriteDomainError(w, &errors.ExternalServiceError{Service: "cache", Err: err})
		return
	}

	rc := http.NewResponseController(w)
	// the server's write timeout would cut the stream
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
		return
	}
	if err := rc.Flush(); err != nil {
		log.Warn().Err(err).Msg("event stream cannot flush")
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-signals:
			if !ok {
				return
			}
			_, err = fmt.Fprint(w, "event: refresh\ndata: {}\n\n")
		case <-ticker.C:
			_, err = fmt.Fprint(w, ": ping\n\n")
		}
		if err == nil {
			err = rc.Flush()
		}
		if err != nil {
			log.Debug().Err(err).Str("user_id", identity.UserID).Msg("event stream closed")
			return
		}
	}
}
