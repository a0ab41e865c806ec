package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sharpsoft/almosthuman/internal/config"
	ws "github.com/sharpsoft/almosthuman/internal/handlers/websocket"
	"github.com/sharpsoft/almosthuman/pkg/Logger"
)

// Dependencies carries everything the routes need, composed in internal/app.
type Dependencies struct {
	Logger        *Logger.Logger
	Configs       *config.Settings
	Registry      *ws.ConnectionRegistry
	Collaborators ws.Collaborators
}

func NewServerDependencies(
	logger *Logger.Logger,
	cfg *config.Settings,
	registry *ws.ConnectionRegistry,
	collab ws.Collaborators,
) Dependencies {
	return Dependencies{
		Logger:        logger,
		Configs:       cfg,
		Registry:      registry,
		Collaborators: collab,
	}
}

func InitializeRoutes(r *gin.Engine, dep Dependencies) {
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"*"},
	}))

	handler := ws.NewHandler(dep.Logger, dep.Registry, dep.Collaborators, dep.Configs)

	r.GET("/", func(ctx *gin.Context) { ctx.JSON(200, gin.H{"message": "Server healthy"}) })
	r.GET("/health", func(ctx *gin.Context) { ctx.JSON(200, gin.H{"status": "ok"}) })
	r.GET("/stats", handler.HandleStats)
	r.GET("/ws/:client_id", handler.HandleSession)
}
