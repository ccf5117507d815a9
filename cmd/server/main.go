package main

import (
	"context"
	"database/sql"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	_ "github.com/jackc/pgx/v5/stdlib"

	"cumulus/internal/auth"
	"cumulus/internal/config"
	"cumulus/internal/handler"
	"cumulus/internal/middleware"
	"cumulus/internal/repository/postgres"
	"cumulus/internal/repository/postgres/migrations"
	"cumulus/internal/service"
	"cumulus/internal/storage"
)

// maxLogFiles bounds the rotated log files kept on disk.
const maxLogFiles = 10

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	// Setup structured logging. Outside dev, logs also land in a
	// timestamped file with count-based rotation.
	logLevel := slog.LevelInfo
	logOutput := io.Writer(os.Stdout)
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	} else {
		logFile, err := config.SetupLogFile(cfg.LogDir, maxLogFiles)
		if err != nil {
			log.Fatalf("Failed to set up log file: %v", err)
		}
		defer logFile.Close()
		logOutput = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOutput, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
	)

	// Run migrations over database/sql; the pool below uses native pgx
	migrationDB, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open migration connection: %v", err)
	}
	if err := migrations.MigrateUp(migrationDB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	migrationDB.Close()
	logger.Info("migrations applied")

	// JWT verifier (optional in dev: no JWKS URL means guest-only)
	var jwtVerifier auth.TokenVerifier
	if cfg.JWKSURL != "" {
		jwtVerifier, err = auth.NewJWTVerifier(cfg.JWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create JWT verifier: %v", err)
		}
		defer jwtVerifier.Close()
	}

	// Create pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", 25,
		"min_conns", 5,
	)

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Logger: logger,
	}
	entityRepo := postgres.NewEntityRepository(repoConfig)
	permRepo := postgres.NewPermissionRepository(repoConfig)
	docRepo := postgres.NewDocumentRepository(repoConfig)
	activityRepo := postgres.NewActivityRepository(repoConfig)
	favoriteRepo := postgres.NewFavoriteRepository(repoConfig)
	notificationRepo := postgres.NewNotificationRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	// Storage collaborators
	store, err := storage.NewLocalStore(cfg.StorageDir)
	if err != nil {
		log.Fatalf("Failed to create content store: %v", err)
	}
	mimeKinds, err := storage.LoadMimeKinds()
	if err != nil {
		log.Fatalf("Failed to load mime kind rules: %v", err)
	}
	thumbs, err := storage.NewThumbnailDispatcher(
		cfg.ThumbnailDir,
		mimeKinds,
		storage.NewImageGenerator(store),
		cfg.ThumbnailQueueSize,
		logger,
	)
	if err != nil {
		log.Fatalf("Failed to create thumbnail dispatcher: %v", err)
	}
	thumbs.Start(ctx)
	defer thumbs.Close()

	// Create services
	accessResolver := service.NewAccessResolver(entityRepo, permRepo, logger)
	homeResolver := service.NewHomeResolver(entityRepo, logger)
	shareManager := service.NewShareManager(entityRepo, permRepo, accessResolver, txManager, logger)
	treeMutator := service.NewTreeMutator(
		entityRepo,
		permRepo,
		docRepo,
		activityRepo,
		favoriteRepo,
		notificationRepo,
		accessResolver,
		homeResolver,
		store,
		thumbs,
		txManager,
		logger,
	)
	listingService := service.NewListingService(entityRepo, permRepo, docRepo, accessResolver, logger)

	// Create handlers
	treeHandler := handler.NewTreeHandler(treeMutator, logger)
	shareHandler := handler.NewShareHandler(shareManager, accessResolver, logger)
	listingHandler := handler.NewListingHandler(listingService, store, logger)
	homeHandler := handler.NewHomeHandler(homeResolver, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", listingHandler.HealthCheck)

	// Creation routes
	mux.HandleFunc("POST /api/folders", treeHandler.CreateFolder)
	mux.HandleFunc("POST /api/files", treeHandler.UploadFile)
	mux.HandleFunc("POST /api/documents", treeHandler.CreateDocument)

	// Tree mutation routes
	mux.HandleFunc("POST /api/entities/{id}/rename", treeHandler.Rename)
	mux.HandleFunc("POST /api/entities/{id}/move", treeHandler.Move)
	mux.HandleFunc("POST /api/entities/{id}/copy", treeHandler.Copy)
	mux.HandleFunc("POST /api/entities/{id}/trash", treeHandler.Trash)
	mux.HandleFunc("POST /api/entities/{id}/restore", treeHandler.Restore)
	mux.HandleFunc("POST /api/entities/{id}/color", treeHandler.ChangeColor)
	mux.HandleFunc("POST /api/entities/{id}/allow-comments", treeHandler.ToggleAllowComments)
	mux.HandleFunc("POST /api/entities/{id}/allow-download", treeHandler.ToggleAllowDownload)
	mux.HandleFunc("DELETE /api/entities/{id}", treeHandler.Delete)

	// Sharing routes
	mux.HandleFunc("POST /api/entities/{id}/share", shareHandler.Share)
	mux.HandleFunc("POST /api/entities/{id}/unshare", shareHandler.Unshare)
	mux.HandleFunc("PUT /api/entities/{id}/general-access", shareHandler.SetGeneralAccess)
	mux.HandleFunc("GET /api/entities/{id}/general-access", shareHandler.GetGeneralAccess)
	mux.HandleFunc("GET /api/entities/{id}/shared-with", shareHandler.SharedWith)
	mux.HandleFunc("GET /api/entities/{id}/access", shareHandler.GetUserAccess)

	// Listing routes
	mux.HandleFunc("GET /api/home", homeHandler.GetHome)
	mux.HandleFunc("GET /api/entities", listingHandler.AllMyEntities)
	mux.HandleFunc("GET /api/shared-with-me", listingHandler.SharedWithMe)
	mux.HandleFunc("GET /api/files/{id}", listingHandler.GetFile)
	mux.HandleFunc("GET /api/files/{id}/content", listingHandler.DownloadFile)
	mux.HandleFunc("GET /api/documents/{id}", listingHandler.GetDocument)

	// Build middleware chain
	var root http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	if jwtVerifier != nil {
		root = middleware.Auth(jwtVerifier)(root)
	}
	root = middleware.Recovery(logger)(root)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	root = corsHandler.Handler(root)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // uploads and downloads of large files
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
