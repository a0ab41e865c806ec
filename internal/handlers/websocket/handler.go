package websocket

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sharpsoft/almosthuman/internal/config"
	"github.com/sharpsoft/almosthuman/pkg/Logger"
)

// Handler binds the session pipeline to the HTTP layer: upgrade, supervise,
// and the stats snapshot.
type Handler struct {
	logger   *Logger.Logger
	registry *ConnectionRegistry
	collab   Collaborators
	cfg      *config.Settings
	upgrader websocket.Upgrader
}

func NewHandler(logger *Logger.Logger, registry *ConnectionRegistry, collab Collaborators, cfg *config.Settings) *Handler {
	return &Handler{
		logger:   logger,
		registry: registry,
		collab:   collab,
		cfg:      cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// TODO: restrict origins once the web client has a fixed host
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// HandleSession upgrades /ws/:client_id and runs the session supervisor until
// the session is fully torn down.
func (h *Handler) HandleSession(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("websocket upgrade failed: %v", err)
		return
	}

	clientID := c.Param("client_id")
	if clientID == "" {
		clientID = uuid.NewString()
		h.logger.Debugf("no client id in path, generated %s", clientID)
	}

	session := NewSession(clientID, conn, h.cfg.Pipeline.QueueBound)
	supervisor := NewSupervisor(
		h.logger,
		h.registry,
		h.collab,
		session,
		h.cfg.Pipeline.KeepaliveInterval,
		h.cfg.Pipeline.DrainTimeout,
	)

	// The request context dies with the HTTP handler; the supervisor owns
	// its own lifetime.
	supervisor.Run(context.Background())
}

// HandleStats serves the read-only registry snapshot.
func (h *Handler) HandleStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.Stats())
}
