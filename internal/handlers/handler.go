package handlers

import (
	"plant_monitor/internal/logger"
	"plant_monitor/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
	apiKey   string
}

// NewHandler constructs a new HTTP handler with dependencies.
// An empty apiKey leaves the API open.
func NewHandler(services *service.Service, log *logger.Logger, apiKey string) *Handler {
	return &Handler{services: services, log: log, apiKey: apiKey}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)

	h.registerAPIRoutes(router)

	// snapshot stream on the same port
	router.GET("/ws", h.apiKeyMiddleware, h.wsConnect)

	return router
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.apiKeyMiddleware)
	{
		api.GET("/snapshot", h.getSnapshot)
		api.GET("/ranges", h.getRanges)
		api.GET("/events", h.getEvents)
	}
}
