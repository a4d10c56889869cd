//	@title			Memora API
//	@version		1.0
//	@description	Multi-tenant media hosting: collections, uploads, trash with retention, public share links.
//
//	@host		localhost:8080
//	@BasePath	/api/v1
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: **Bearer {token}**

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/memora/service/internal/auth"
	"github.com/memora/service/internal/collection"
	"github.com/memora/service/internal/config"
	"github.com/memora/service/internal/db"
	"github.com/memora/service/internal/media"
	appMiddleware "github.com/memora/service/internal/middleware"
	"github.com/memora/service/internal/payment"
	"github.com/memora/service/internal/quota"
	"github.com/memora/service/internal/share"
	"github.com/memora/service/internal/storage"
	"github.com/memora/service/internal/sweeper"
	"github.com/memora/service/internal/trash"
	"github.com/memora/service/internal/user"

	_ "github.com/memora/service/docs/swagger"
)

func main() {
	cfg := config.Load()

	pool, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}

	store, err := storage.NewMinioStorage(
		cfg.StorageEndpoint,
		cfg.StorageAccessKey,
		cfg.StorageSecretKey,
		cfg.StorageBucket,
		cfg.StoragePublicBase,
		cfg.StorageUseSSL,
	)
	if err != nil {
		log.Fatalf("object storage init failed: %v", err)
	}

	// Wire dependencies: repository → service → handler
	ledger := quota.NewLedger(pool, cfg.QuotaCapBytes)

	userRepo := user.NewRepository(pool)
	userSvc := user.NewService(userRepo)
	userHandler := user.NewHandler(userSvc)

	authRepo := auth.NewRepository(pool)
	authSvc := auth.NewService(authRepo, userSvc, cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authHandler := auth.NewHandler(authSvc, cfg.IsProduction())

	collectionRepo := collection.NewRepository(pool)
	collectionSvc := collection.NewService(collectionRepo)
	collectionHandler := collection.NewHandler(collectionSvc)

	mediaRepo := media.NewRepository(pool)
	mediaSvc := media.NewService(mediaRepo, collectionSvc, ledger, store)
	mediaHandler := media.NewHandler(mediaSvc, cfg.MaxUploadBytes)

	trashRepo := trash.NewRepository(pool)
	trashSvc := trash.NewService(trashRepo, store, ledger)
	trashHandler := trash.NewHandler(trashSvc)

	shareRepo := share.NewRepository(pool)
	shareHandler := share.NewHandler(shareRepo, store)

	paymentHandler := payment.NewHandler(ledger)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Swagger UI — available at http://localhost:8080/swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Public auth endpoints
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.Post("/logout", authHandler.Logout)
		})

		// Public share read path
		r.Route("/share", func(r chi.Router) {
			r.Get("/{shareID}", shareHandler.Get)
			r.Get("/{shareID}/media/{mediaID}", shareHandler.GetMedia)
		})

		// Protected endpoints
		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.RequireAuth(cfg.JWTSecret))

			r.Route("/users", func(r chi.Router) {
				r.Get("/me", userHandler.GetMe)
				r.Get("/stats", userHandler.GetStats)
			})

			r.Route("/collections", func(r chi.Router) {
				r.Post("/", collectionHandler.Create)
				r.Get("/", collectionHandler.List)
				r.Patch("/{id}", collectionHandler.Rename)
				r.Delete("/{id}", collectionHandler.Trash)
			})

			r.Route("/media", func(r chi.Router) {
				r.Post("/upload", mediaHandler.Upload)
				r.Get("/{collectionID}", mediaHandler.List)
				r.Delete("/{id}", mediaHandler.Trash)
			})

			r.Route("/trash", func(r chi.Router) {
				r.Get("/", trashHandler.List)
				r.Post("/restore", trashHandler.Restore)
				r.Delete("/{type}/{id}", trashHandler.Purge)
			})

			r.Post("/payments/confirm", paymentHandler.Confirm)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Retention sweeper runs for the life of the process.
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go sweeper.New(trashSvc, authRepo, cfg.SweepInterval, cfg.RetentionWindow()).Run(sweepCtx)

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("server listening on :%s (env=%s)", cfg.Port, cfg.AppEnv)
		log.Printf("swagger UI at http://localhost:%s/swagger/", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-quit
	log.Println("shutting down gracefully...")
	stopSweeper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}

	log.Println("server stopped")
}
