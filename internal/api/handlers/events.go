package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ambermind/chat-controller/internal/api/sse"
)

// keepaliveInterval bounds how long an idle event stream stays silent.
// Proxies tend to drop connections that look dead.
const keepaliveInterval = 15 * time.Second

// EventsHandler streams chat state changes over Server-Sent Events.
type EventsHandler struct {
	hub *sse.Hub
}

// NewEventsHandler creates a new EventsHandler.
func NewEventsHandler(hub *sse.Hub) *EventsHandler {
	return &EventsHandler{hub: hub}
}

// Stream handles GET /events.
func (h *EventsHandler) Stream(c *gin.Context) {
	writer, err := sse.NewWriter(c.Writer)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "STREAMING_UNSUPPORTED",
			"message": err.Error(),
		})
		return
	}

	events, cancel := h.hub.Subscribe()
	defer cancel()

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := writer.WriteJSON(event.Type, event.Data); err != nil {
				log.Debug().Err(err).Msg("event stream write failed, closing")
				return
			}
		case <-keepalive.C:
			if err := writer.WriteComment("keepalive"); err != nil {
				return
			}
		}
	}
}
