// Package routes defines the HTTP routes for the chat session controller.
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/ambermind/chat-controller/internal/api/handlers"
	"github.com/ambermind/chat-controller/internal/api/middleware"
)

// Config holds the dependencies for setting up routes.
type Config struct {
	HealthHandler  *handlers.HealthHandler
	SessionHandler *handlers.SessionHandler
	ChatsHandler   *handlers.ChatsHandler
	EventsHandler  *handlers.EventsHandler
}

// Setup configures all routes on the Gin engine. The paths mirror the
// chat backend's surface so the browser client needs no translation
// layer.
func Setup(r *gin.Engine, cfg *Config) {
	// Health routes
	r.GET("/health", cfg.HealthHandler.Health)
	r.GET("/live", cfg.HealthHandler.Live)

	// Session routes
	r.POST("/signup", cfg.SessionHandler.Signup)
	r.POST("/login", cfg.SessionHandler.Login)
	r.POST("/logout", cfg.SessionHandler.Logout)

	// Chat routes
	r.GET("/chats", cfg.ChatsHandler.GetChats)
	r.POST("/new_chat", cfg.ChatsHandler.NewChat)
	r.POST("/select_chat", cfg.ChatsHandler.SelectChat)
	r.GET("/history/:chat_id", cfg.ChatsHandler.GetHistory)
	r.POST("/chat/:chat_id", cfg.ChatsHandler.SendPrompt)

	// Admin route
	r.GET("/admin", cfg.ChatsHandler.GetAdmin)

	// Event stream
	r.GET("/events", cfg.EventsHandler.Stream)
}

// SetupWithMiddleware sets up routes with common middleware.
func SetupWithMiddleware(r *gin.Engine, cfg *Config, loggingMw *middleware.LoggingMiddleware) {
	r.Use(middleware.NewCORSMiddleware(middleware.DefaultCORSConfig()))
	r.Use(loggingMw.RequestLogger())
	r.Use(loggingMw.Logger())
	r.Use(middleware.Recovery())

	r.NoRoute(middleware.NotFound())
	r.NoMethod(middleware.MethodNotAllowed())

	Setup(r, cfg)
}
