package api

import (
	"github.com/gin-gonic/gin"

	"github.com/avcontrol/onkyo-bridge/pkg/api/handlers"
	"github.com/avcontrol/onkyo-bridge/pkg/bridge"
	"github.com/avcontrol/onkyo-bridge/pkg/device/schema"
)

// Router holds the Gin engine and dependencies
type Router struct {
	engine    *gin.Engine
	bridge    *bridge.Bridge
	validator *schema.Validator
}

// NewRouter creates a new API router
func NewRouter(b *bridge.Bridge, validator *schema.Validator) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	SetupMiddleware(engine)

	router := &Router{
		engine:    engine,
		bridge:    b,
		validator: validator,
	}

	router.setupRoutes()

	return router
}

// setupRoutes configures all API routes
func (r *Router) setupRoutes() {
	// Health check at root
	healthHandler := handlers.NewHealthHandler(r.bridge)
	r.engine.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.engine.Group("/api/v1")
	{
		// Health
		v1.GET("/health", healthHandler.Health)

		// Receiver description and state
		receiverHandler := handlers.NewReceiverHandler(r.bridge, r.validator)
		receiver := v1.Group("/receiver")
		{
			receiver.GET("", receiverHandler.GetReceiver)
			receiver.GET("/state", receiverHandler.GetState)
			receiver.POST("/state", receiverHandler.SetState)

			// Actions
			actionsHandler := handlers.NewActionsHandler(r.bridge)
			receiver.POST("/actions/probe-input", actionsHandler.ProbeInput)
		}

		// Event stream
		eventsHandler := handlers.NewEventsHandler(r.bridge)
		v1.GET("/events", eventsHandler.Events)
	}
}

// Engine exposes the underlying Gin engine, mainly for tests.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Run starts the HTTP server
func (r *Router) Run(addr string) error {
	return r.engine.Run(addr)
}
