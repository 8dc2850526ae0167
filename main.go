package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/asehgal-dev/wanderlust/config"
	"github.com/asehgal-dev/wanderlust/controllers"
	"github.com/asehgal-dev/wanderlust/geocode"
	"github.com/asehgal-dev/wanderlust/httperr"
	"github.com/asehgal-dev/wanderlust/middleware"
	"github.com/asehgal-dev/wanderlust/render"
	"github.com/asehgal-dev/wanderlust/routes"
	"github.com/asehgal-dev/wanderlust/session"
	"github.com/asehgal-dev/wanderlust/storage"
	"github.com/asehgal-dev/wanderlust/upload"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load(logger)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	client, err := config.ConnectDB(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to the database", zap.Error(err))
	}
	defer func() {
		if err := client.Disconnect(context.TODO()); err != nil {
			logger.Error("Error closing MongoDB connection", zap.Error(err))
			return
		}
		logger.Info("MongoDB connection closed")
	}()
	logger.Info("Connected to MongoDB")

	redisClient, err := config.ConnectRedis(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	logger.Info("Connected to Redis")

	db := config.Database(client, cfg)
	listings := storage.NewListingStore(db)
	reviews := storage.NewReviewStore(db)
	users := storage.NewUserStore(db)
	cache := storage.NewListingCache(redisClient, logger)

	sessions := session.NewStore(redisClient)
	codec := session.NewCodec(cfg.SessionSecret)

	var uploads upload.Store
	uploadsDir := ""
	if cfg.ObjectStorageConfigured() {
		minioStore, err := upload.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey,
			cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL, logger)
		if err != nil {
			logger.Fatal("Failed to initialize object storage", zap.Error(err))
		}
		uploads = minioStore
	} else {
		logger.Warn("object storage not configured, falling back to local disk uploads",
			zap.String("dir", cfg.UploadDir))
		diskStore, err := upload.NewDiskStore(cfg.UploadDir)
		if err != nil {
			logger.Fatal("Failed to initialize upload directory", zap.Error(err))
		}
		uploads = diskStore
		uploadsDir = diskStore.Dir()
	}

	var geocoder *geocode.Client
	geocoder, err = geocode.NewClient(cfg.MapTilerKey, logger)
	if err != nil {
		logger.Warn("geocoding disabled", zap.Error(err))
		geocoder = nil
	}

	renderer, err := render.New(logger)
	if err != nil {
		logger.Fatal("Failed to parse templates", zap.Error(err))
	}
	respond := httperr.NewResponder(renderer, logger)

	router := mux.NewRouter()
	sessionLoader := middleware.NewSessionLoader(sessions, codec, logger)
	router.Use(middleware.MethodOverride)
	router.Use(sessionLoader.Middleware)

	routes.Routes(router, routes.Deps{
		Listings: controllers.NewListingController(listings, reviews, users, cache,
			uploads, geocoder, renderer, logger, cfg.MaxUploadBytes),
		Reviews:    controllers.NewReviewController(listings, reviews, logger),
		Auth:       controllers.NewAuthController(users, sessions, codec, renderer, logger),
		Guard:      middleware.NewGuard(listings, reviews, respond, logger),
		Respond:    respond,
		UploadsDir: uploadsDir,
	})

	corsOptions := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: true,
	})
	handler := corsOptions.Handler(router)

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        handler,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logger.Info("Server running", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Error starting server", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	<-sigCh

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Error during server shutdown", zap.Error(err))
	}
	logger.Info("Server gracefully stopped")
}
