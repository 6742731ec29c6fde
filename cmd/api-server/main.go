package main

import (
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/nmhoang2304/AniTrack-Group07/internal/auth"
	"github.com/nmhoang2304/AniTrack-Group07/internal/catalog"
	"github.com/nmhoang2304/AniTrack-Group07/internal/health"
	"github.com/nmhoang2304/AniTrack-Group07/internal/library"
	"github.com/nmhoang2304/AniTrack-Group07/internal/realtime"
	"github.com/nmhoang2304/AniTrack-Group07/internal/recommend"
	"github.com/nmhoang2304/AniTrack-Group07/internal/store"
	"github.com/nmhoang2304/AniTrack-Group07/internal/transfer"
	"github.com/nmhoang2304/AniTrack-Group07/pkg/config"
	"github.com/nmhoang2304/AniTrack-Group07/pkg/database"
	"github.com/nmhoang2304/AniTrack-Group07/pkg/logger"
	"github.com/nmhoang2304/AniTrack-Group07/pkg/metrics"
)

func main() {
	// Load environment variables from .env if present (optional)
	_ = godotenv.Load()

	// Initialize logger
	logLevel := logger.INFO
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		logLevel = logger.LogLevel(level)
	}
	jsonFormat := os.Getenv("LOG_FORMAT") == "json"
	logger.Init(logLevel, jsonFormat, os.Stdout)

	log := logger.GetLogger().WithContext("component", "api_server")
	log.Info("starting_api_server", "version", "1.0.0")

	// Initialize database
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./data/anitrack.db"
	}

	if err := database.InitDatabase(dbPath); err != nil {
		log.Error("failed_to_initialize_database", "error", err.Error(), "path", dbPath)
		os.Exit(1)
	}
	defer database.Close()

	// Get JWT secret from environment or use default (change in production!)
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "your-secret-key-change-this-in-production"
		log.Warn("using_default_jwt_secret", "message", "Set JWT_SECRET environment variable in production!")
	}

	// frontend URL from environment or use default
	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "http://localhost:3000"
		log.Info("using_default_frontend_url", "url", frontendURL)
	}

	syncCfg := config.LoadSyncConfig()

	// Durable store + per-user reconciler sessions
	st := store.NewSQLiteStore(database.DB)
	libraryManager := library.NewManager(st, syncCfg)
	defer libraryManager.Close()

	// Offline development runs against canned catalog results.
	var catalogSource catalog.ExternalSource = catalog.NewJikanSource()
	if os.Getenv("CATALOG_SOURCE") == "mock" {
		log.Info("using_mock_catalog_source")
		catalogSource = catalog.NewMockSource()
	}

	// Initialize handlers
	authHandler := auth.NewHandler(jwtSecret)
	catalogHandler := catalog.NewHandler(catalogSource)
	recommendHandler := recommend.NewHandler(recommend.NewClientFromEnv())
	libraryHandler := library.NewHandler(libraryManager)
	transferHandler := transfer.NewHandler(libraryManager, st, syncCfg.ImportRowCap)
	feedServer := realtime.NewServer(libraryManager, jwtSecret)

	// Setup Gin router
	router := gin.Default()

	// CORS middleware configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{frontendURL}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	corsConfig.ExposeHeaders = []string{"Content-Length", "Content-Disposition"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	// Health and metrics endpoints
	healthHandler := health.NewHandler()
	metricsHandler := metrics.NewHandler()
	router.GET("/health", healthHandler.Healthz)
	router.GET("/readyz", healthHandler.Readyz)
	router.GET("/metrics", metricsHandler.Metrics)

	// Auth routes (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}
	// Protected account routes
	protectedAuth := router.Group("/auth")
	protectedAuth.Use(auth.AuthMiddleware(jwtSecret), authHandler.BlacklistMiddleware())
	{
		protectedAuth.POST("/logout", authHandler.Logout)
		protectedAuth.POST("/change-password", authHandler.ChangePassword)
		protectedAuth.PUT("/username", authHandler.UpdateUsername)
	}

	// Catalog search (public)
	router.GET("/anime", catalogHandler.SearchAnime)

	// User routes (all protected)
	userGroup := router.Group("/users")
	userGroup.Use(auth.AuthMiddleware(jwtSecret), authHandler.BlacklistMiddleware())
	{
		userGroup.GET("/me", authHandler.GetProfile)

		userGroup.GET("/library", libraryHandler.GetLibrary)
		userGroup.POST("/library", libraryHandler.AddEntry)
		userGroup.PUT("/library/episodes", libraryHandler.UpdateEpisodes)
		userGroup.PUT("/library/favorite", libraryHandler.SetFavorite)
		userGroup.DELETE("/library/:entry_id", libraryHandler.RemoveEntry)

		userGroup.GET("/history", libraryHandler.GetHistory)
		userGroup.PUT("/history/:history_id", libraryHandler.UpdateHistory)
		userGroup.DELETE("/history/:history_id", libraryHandler.DeleteHistory)

		userGroup.GET("/stats", libraryHandler.GetStats)

		userGroup.GET("/library/export", transferHandler.Export)
		userGroup.POST("/library/import", transferHandler.Import)

		userGroup.POST("/recommendations", recommendHandler.GetRecommendations)
	}

	// Realtime feed (token authenticated on connect)
	router.GET("/ws", feedServer.HandleFeed)

	// Get port from environment or use default
	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080"
	}

	log.Info("starting_api_server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("failed_to_start_api_server", "error", err.Error())
		os.Exit(1)
	}
}
