package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipeshare/auth"
	"recipeshare/config"
	"recipeshare/db"
	"recipeshare/middleware"
	"recipeshare/mq"
	"recipeshare/notify"
	"recipeshare/recipes"
	"recipeshare/routes"

	"github.com/julienschmidt/httprouter"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
)

type stores struct {
	users   auth.UserStore
	recipes recipes.Store
	dir     recipes.UserDirectory
	close   func(ctx context.Context) error
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.UseMemoryStore() {
		slog.Warn("MONGODB_URI is not set, using the in-memory store")
		users := db.NewMemoryUsers()
		return &stores{
			users:   users,
			recipes: db.NewMemoryRecipes(),
			dir:     users,
			close:   func(context.Context) error { return nil },
		}, nil
	}

	m, err := db.Connect(ctx, cfg.MongoURI, cfg.DBName)
	if err != nil {
		return nil, err
	}
	users := db.NewMongoUsers(m)
	return &stores{
		users:   users,
		recipes: db.NewMongoRecipes(m),
		dir:     users,
		close:   m.Close,
	}, nil
}

// Set up all routes and middleware layers
func setupRouter(cfg *config.Config, authn *middleware.Authenticator, authHandlers *auth.Handlers, recipeHandlers *recipes.Handlers, hub *notify.Hub) http.Handler {
	router := httprouter.New()

	routes.AddUtilityRoutes(router)
	routes.AddAuthRoutes(router, authn, authHandlers)
	routes.AddRecipeRoutes(router, authn, recipeHandlers)
	routes.AddStaticRoutes(router, cfg.UploadDir)
	routes.AddNotificationRoutes(router, authn, hub)

	var handler http.Handler = newCORS(cfg.AllowedOrigins).Handler(router)
	handler = middleware.Timeout(cfg.RequestTimeout)(handler)
	handler = middleware.SecurityHeaders(handler)
	handler = middleware.RecoverMiddleware(handler)
	handler = middleware.Logging(handler)
	handler = middleware.RequestID(handler)
	return middleware.Metrics(handler)
}

// newCORS allows the configured origins without credentials. Callers
// authenticate with a bearer header, not cookies.
func newCORS(origins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
	})
}

func newLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.Production {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	st, err := openStores(connectCtx, cfg)
	cancel()
	if err != nil {
		slog.Error("opening stores", "error", err)
		os.Exit(1)
	}

	hub := notify.NewHub(cfg.AllowedOrigins)

	var events mq.Emitter = mq.Local{Sink: hub.Deliver}
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			slog.Error("connecting to Redis", "addr", cfg.RedisAddr, "error", err)
			os.Exit(1)
		}
		events = mq.NewRedisEmitter(rdb, cfg.RedisChannel)
		go func() {
			if err := mq.Subscribe(ctx, rdb, cfg.RedisChannel, hub.Deliver); err != nil {
				slog.Error("recipe event subscription ended", "error", err)
			}
		}()
	}

	creds := auth.NewCredentials(cfg.JWTSecret, cfg.TokenTTL, cfg.BcryptCost)
	authn := middleware.NewAuthenticator(creds)
	authHandlers := auth.NewHandlers(auth.NewService(st.users, creds))
	recipeHandlers := recipes.NewHandlers(recipes.NewService(st.recipes, st.dir, events), cfg.UploadDir)

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           setupRouter(cfg, authn, authHandlers, recipeHandlers, hub),
		ReadTimeout:       7 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	server.RegisterOnShutdown(func() {
		slog.Info("cleaning up resources before shutdown")
	})

	go func() {
		slog.Info("server started", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("could not listen", "addr", server.Addr, "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutdown signal received, shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			slog.Warn("closing Redis", "error", err)
		}
	}
	if err := st.close(shutdownCtx); err != nil {
		slog.Warn("closing store", "error", err)
	}

	slog.Info("server stopped cleanly")
}
