package v1

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"

	"logimatch/internal/api/middleware"
	"logimatch/internal/api/response"
	"logimatch/internal/model"
	"logimatch/internal/sse"
	jwtutil "logimatch/pkg/jwt"
)

type SSEHandler struct {
	hub       *sse.Hub
	publicKey *rsa.PublicKey
}

func NewSSEHandler(hub *sse.Hub, publicKey *rsa.PublicKey) *SSEHandler {
	return &SSEHandler{hub: hub, publicKey: publicKey}
}

func RegisterSSERoutes(group *gin.RouterGroup, handler *SSEHandler) {
	if handler == nil {
		return
	}
	group.GET("/events", handler.Events)
}

// Events streams notifications, pass updates and premium status changes for
// the caller. Last-Event-ID replays buffered events the caller may see.
func (h *SSEHandler) Events(c *gin.Context) {
	if h.hub == nil {
		response.Fail(c, 503, response.ErrInternal, "sse hub unavailable")
		return
	}

	tokenStr := middleware.TokenFromRequest(c)
	if tokenStr == "" || h.publicKey == nil {
		response.Fail(c, 401, response.ErrUnauthorized, "unauthorized")
		return
	}

	claims, err := jwtutil.ParseAccessToken(tokenStr, h.publicKey)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			response.Fail(c, 401, response.ErrTokenExpired, "token expired")
			return
		}
		response.Fail(c, 401, response.ErrUnauthorized, "unauthorized")
		return
	}

	userID := strings.TrimSpace(claims.UserID)
	if userID == "" {
		response.Fail(c, 401, response.ErrUnauthorized, "unauthorized")
		return
	}

	flusher, ok := c.Writer.(interface{ Flush() })
	if !ok {
		response.Fail(c, 500, response.ErrInternal, "stream unsupported")
		return
	}

	// The server write timeout would otherwise end the stream before the
	// first heartbeat.
	if err := http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		response.Fail(c, 500, response.ErrInternal, "stream unsupported")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Header("Connection", "keep-alive")
	c.Status(200)

	stream := sse.NewStream(model.Session{UserID: userID, Role: model.Role(strings.ToLower(claims.Role))})
	h.hub.Register(stream)
	defer h.hub.Unregister(stream)

	for _, event := range h.hub.Replay(stream, c.GetHeader("Last-Event-ID")) {
		if err := writeSSEEvent(c, event); err != nil {
			return
		}
	}
	flusher.Flush()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-stream.Done:
			return
		case event := <-stream.Events:
			if err := writeSSEEvent(c, event); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSEEvent(c *gin.Context, event sse.Event) error {
	if _, err := fmt.Fprintf(c.Writer, "id: %s\n", event.ID); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.Writer, "event: %s\n", event.Type); err != nil {
		return err
	}

	for _, line := range strings.Split(event.Data, "\n") {
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n", line); err != nil {
			return err
		}
	}

	_, err := fmt.Fprint(c.Writer, "\n")
	return err
}
