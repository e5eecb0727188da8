package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type EventStream interface {
	Serve(w http.ResponseWriter, r *http.Request, subject string) error
}

type EventHandler struct {
	stream EventStream
}

func NewEventHandler(stream EventStream) *EventHandler {
	return &EventHandler{
		stream: stream,
	}
}

// HandleEvents godoc
// @Summary      Stream admin notifications
// @Description  Upgrades to a websocket that receives one event per admin action outcome.
// @Tags         events
// @Success      101  {string}  string  "Switching Protocols to WebSocket"
// @Failure      401  {object}  response.Err
// @Router       /admin/events [get]
// @Security BearerAuth
func (h *EventHandler) HandleEvents(ctx *gin.Context) {
	if err := h.stream.Serve(ctx.Writer, ctx.Request, actorID(ctx)); err != nil {
		// The upgrader has already written the HTTP error.
		zap.L().Warn("websocket upgrade failed", zap.Error(err))
	}
}
