// Package main is the entry point for the chat session controller.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/ambermind/chat-controller/internal/api/handlers"
	"github.com/ambermind/chat-controller/internal/api/middleware"
	"github.com/ambermind/chat-controller/internal/api/routes"
	"github.com/ambermind/chat-controller/internal/api/sse"
	"github.com/ambermind/chat-controller/internal/config"
	"github.com/ambermind/chat-controller/internal/controller"
	"github.com/ambermind/chat-controller/internal/core/cache"
	"github.com/ambermind/chat-controller/internal/core/docdb"
	"github.com/ambermind/chat-controller/internal/core/gateway"
	rediscache "github.com/ambermind/chat-controller/internal/infrastructure/cache/redis"
	"github.com/ambermind/chat-controller/internal/infrastructure/docdb/mongodb"
	"github.com/ambermind/chat-controller/internal/infrastructure/gateway/docstore"
	"github.com/ambermind/chat-controller/internal/infrastructure/gateway/rest"
	"github.com/ambermind/chat-controller/internal/pkg/encryption"
	"github.com/ambermind/chat-controller/internal/render"
	"github.com/ambermind/chat-controller/internal/services/profilecache"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	setupLogging(cfg.Log)

	ctx := context.Background()

	// Initialize the chat backend using factory pattern. The docstore
	// backend also wires the cache and document db clients into the
	// health checks.
	gw, cacheClient, docDBClient, err := createGateway(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize chat backend: %v", err)
	}
	if cacheClient != nil {
		defer cacheClient.Close()
	}
	if docDBClient != nil {
		defer docDBClient.Close(ctx)
	}

	// Initialize markdown renderer
	renderer := render.NewService(&render.Config{
		Deadline: cfg.Render.Deadline,
	})

	// The SSE hub is the presentation sink for all controller state
	hub := sse.NewHub(renderer)

	ctrl, err := controller.New(&controller.Config{
		Gateway:      gw,
		HistoryView:  hub,
		ChatListView: hub,
		AdminView:    hub,
		SendKey:      controller.SendKey(cfg.UI.SendKey),
	})
	if err != nil {
		log.Fatalf("failed to initialize controller: %v", err)
	}
	ctrl.Start()

	// Push session state changes out to connected event streams
	sessions, cancelSessions := ctrl.Sessions()
	defer cancelSessions()
	go func() {
		for session := range sessions {
			hub.ShowSession(session)
		}
	}()

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	router := setupRouter(ctrl, renderer, hub, cacheClient, docDBClient)

	srv := &http.Server{
		Addr:    cfg.Server.Address(),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		zlog.Info().Str("address", cfg.Server.Address()).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	zlog.Info().Msg("server exited")
}

// setupLogging configures the global zerolog logger.
func setupLogging(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Format == "console" {
		zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

// createGateway creates a chat backend based on the configuration. The
// cache and document db clients are non-nil only for the docstore
// backend.
func createGateway(ctx context.Context, cfg *config.Config) (gateway.Gateway, cache.Client, docdb.Client, error) {
	switch gateway.Type(cfg.Gateway.Type) {
	case gateway.TypeREST:
		gw, err := rest.NewClient(&rest.Config{
			BaseURL: cfg.Gateway.RESTURL,
			Timeout: cfg.Gateway.RESTTimeout,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return gw, nil, nil, nil

	case gateway.TypeDocStore:
		if cache.Type(cfg.Cache.Type) != cache.TypeRedis {
			return nil, nil, nil, fmt.Errorf("unsupported cache type: %s", cfg.Cache.Type)
		}
		if docdb.Type(cfg.DocDB.Type) != docdb.TypeMongoDB {
			return nil, nil, nil, fmt.Errorf("unsupported docdb type: %s", cfg.DocDB.Type)
		}

		cacheClient, err := rediscache.NewClient(rediscache.Config{
			Host:       cfg.Cache.Host,
			Port:       cfg.Cache.Port,
			Password:   cfg.Cache.Password,
			DB:         cfg.Cache.DB,
			DefaultTTL: cfg.Cache.TTL,
		})
		if err != nil {
			return nil, nil, nil, err
		}

		docDBClient, err := mongodb.NewClient(ctx, &mongodb.ClientConfig{
			URI:          cfg.DocDB.URI,
			DatabaseName: cfg.DocDB.Database,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		if err := docDBClient.EnsureIndexes(ctx); err != nil {
			zlog.Warn().Err(err).Msg("failed to ensure indexes")
		}

		profiles, err := profilecache.NewService(&profilecache.Config{
			CacheClient: cacheClient,
			Encryptor:   createEncryptor(cfg.Secrets),
			TTL:         cfg.Cache.TTL,
		})
		if err != nil {
			return nil, nil, nil, err
		}

		gw, err := docstore.NewStore(&docstore.Config{
			DB:       docDBClient,
			Cache:    cacheClient,
			Profiles: profiles,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return gw, cacheClient, docDBClient, nil

	default:
		return nil, nil, nil, fmt.Errorf("unsupported gateway type: %s", cfg.Gateway.Type)
	}
}

// createEncryptor creates the profile cache encryptor.
func createEncryptor(cfg config.SecretsConfig) encryption.Encryptor {
	if cfg.EncryptionKey == "" {
		zlog.Warn().Msg("PROFILE_ENCRYPTION_KEY not set, using NoOp encryptor")
		return encryption.NewNoOpEncryptor()
	}

	encryptor, err := encryption.NewAESEncryptor(cfg.EncryptionKey)
	if err != nil {
		log.Fatalf("failed to initialize encryptor: %v", err)
	}
	return encryptor
}

// setupRouter creates and configures the Gin router.
func setupRouter(ctrl *controller.Controller, renderer render.Service, hub *sse.Hub, cacheClient cache.Client, docDBClient docdb.Client) *gin.Engine {
	router := gin.New()

	loggingMw := middleware.NewLoggingMiddleware()

	routesCfg := &routes.Config{
		HealthHandler:  handlers.NewHealthHandler(cacheClient, docDBClient),
		SessionHandler: handlers.NewSessionHandler(ctrl),
		ChatsHandler:   handlers.NewChatsHandler(ctrl, renderer),
		EventsHandler:  handlers.NewEventsHandler(hub),
	}

	routes.SetupWithMiddleware(router, routesCfg, loggingMw)

	return router
}
