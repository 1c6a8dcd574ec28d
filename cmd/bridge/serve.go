package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/hairizuan-noorazman/automation-bridge/apitoken"
	"github.com/hairizuan-noorazman/automation-bridge/cmd/bridge/handlers"
	"github.com/hairizuan-noorazman/automation-bridge/commandgen"
	"github.com/hairizuan-noorazman/automation-bridge/credential"
	"github.com/hairizuan-noorazman/automation-bridge/database"
	"github.com/hairizuan-noorazman/automation-bridge/dispatch"
	"github.com/hairizuan-noorazman/automation-bridge/engine"
	"github.com/hairizuan-noorazman/automation-bridge/logger"
	"github.com/hairizuan-noorazman/automation-bridge/notify"
	"github.com/hairizuan-noorazman/automation-bridge/run"
	"github.com/hairizuan-noorazman/automation-bridge/storage"
)

var configFile string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server and run workers",
	RunE:  runServer,
}

func init() {
	serveCmd.Flags().StringVarP(&configFile, "config", "c", "", "config file path")
	rootCmd.AddCommand(serveCmd)
}

func newLogger(cfg LogConfig) logger.Logger {
	if cfg.File == "" {
		return logger.NewLogrusLogger(cfg.Level)
	}
	return logger.NewLogrusLoggerWithFile(cfg.Level, logger.FileOutput{
		Path:       cfg.File,
		MaxSizeMB:  cfg.FileMaxSizeMB,
		MaxBackups: cfg.FileMaxBackups,
		MaxAgeDays: cfg.FileMaxAgeDays,
		Compress:   cfg.FileCompress,
	})
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	// Load configuration
	cfg, err := LoadConfig(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	log := newLogger(cfg.Log)
	log.Info(ctx, "starting server", map[string]interface{}{
		"version": Version,
		"commit":  Commit,
		"date":    BuildDate,
	})

	// Connect to database
	dbCfg := database.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	}

	db, err := database.Connect(dbCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	defer sqlDB.Close()

	log.Info(ctx, "database connected", map[string]interface{}{
		"host":     cfg.Database.Host,
		"port":     cfg.Database.Port,
		"database": cfg.Database.Database,
	})

	// Initialize stores
	runStore := run.NewMySQLStore(db, log)
	itemStore := run.NewMySQLItemStore(db, log)
	assetStore := run.NewMySQLAssetStore(db, log)
	credentialStore := credential.NewMySQLStore(db, log)
	tokenStore := apitoken.NewMySQLStore(db, log)
	draftStore := commandgen.NewMySQLStore(db, log)

	// Initialize blob storage
	blobs, err := storage.NewBlobStorage(storage.Config{
		Type:          cfg.Storage.Type,
		BaseDir:       cfg.Storage.BaseDir,
		Bucket:        cfg.Storage.S3Bucket,
		Region:        cfg.Storage.S3Region,
		PresignExpiry: cfg.Storage.S3PresignExpiry,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	log.Info(ctx, "storage initialized", map[string]interface{}{
		"type": cfg.Storage.Type,
	})

	// Initialize engine invoker
	runner := engine.NewRunner(cfg.Engine.ScriptPath, log)
	if cfg.Engine.PythonBin != "" {
		runner.PythonBin = cfg.Engine.PythonBin
	}
	invoker := engine.NewBridge(runner, log)

	// Initialize run dispatch
	masterKey := credential.DeriveKey(cfg.Credentials.MasterPassphrase)
	pipeline := dispatch.NewPipeline(dispatch.Config{
		Workers:          cfg.Dispatch.Workers,
		ItemWorkers:      cfg.Dispatch.ItemWorkers,
		RunTimeout:       cfg.Dispatch.RunTimeout,
		DefaultAPIKey:    cfg.Engine.APIKey,
		MasterKey:        masterKey,
		NotifyProvider:   notify.ProviderType(cfg.Notify.Provider),
		NotifyCredential: cfg.Notify.Credential,
	}, runStore, itemStore, assetStore, credentialStore, invoker, blobs, log)

	pool := dispatch.NewWorkerPool(cfg.Dispatch.Workers, pipeline, log)

	poolCtx, poolCancel := context.WithCancel(ctx)
	defer poolCancel()
	pool.Start(poolCtx)

	log.Info(ctx, "worker pool started", map[string]interface{}{
		"workers":      cfg.Dispatch.Workers,
		"item_workers": cfg.Dispatch.ItemWorkers,
	})

	// Initialize command drafting when a Bedrock region is configured
	var generator commandgen.Generator
	if cfg.Drafts.BedrockRegion != "" {
		bedrock, err := commandgen.NewBedrockGenerator(cfg.Drafts.BedrockRegion, cfg.Drafts.BedrockModel, cfg.Drafts.MaxTokens)
		if err != nil {
			return fmt.Errorf("failed to initialize command drafting: %w", err)
		}
		generator = bedrock
		log.Info(ctx, "command drafting initialized", map[string]interface{}{
			"region": cfg.Drafts.BedrockRegion,
			"model":  cfg.Drafts.BedrockModel,
		})
	}

	// Setup router
	router := mux.NewRouter()

	// Health check endpoint (public)
	router.HandleFunc("/healthz", handlers.HealthHandler).Methods("GET")

	// Protected API routes
	authMiddleware := handlers.NewAuthMiddleware(tokenStore, log)

	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(authMiddleware.Handler)
	apiRouter.Use(handlers.WriteScopeMiddleware)

	runHandler := handlers.NewRunHandler(runStore, itemStore, assetStore, credentialStore, blobs, pool, log)
	apiRouter.HandleFunc("/runs", runHandler.Submit).Methods("POST")
	apiRouter.HandleFunc("/runs", runHandler.List).Methods("GET")
	apiRouter.HandleFunc("/runs/{id}", runHandler.GetByID).Methods("GET")
	apiRouter.HandleFunc("/runs/{id}/items", runHandler.ListItems).Methods("GET")
	apiRouter.HandleFunc("/runs/{id}/items/{index}/screenshots/{n}", runHandler.GetScreenshot).Methods("GET")

	commandHandler := handlers.NewCommandHandler(draftStore, generator, cfg.Drafts.BedrockModel, log)
	apiRouter.HandleFunc("/commands/draft", commandHandler.Draft).Methods("POST")
	apiRouter.HandleFunc("/commands/drafts", commandHandler.ListDrafts).Methods("GET")
	apiRouter.HandleFunc("/commands/drafts/{id}", commandHandler.GetDraft).Methods("GET")

	tokenHandler := handlers.NewAPITokenHandler(tokenStore, log)
	apiRouter.HandleFunc("/tokens", tokenHandler.Create).Methods("POST")
	apiRouter.HandleFunc("/tokens", tokenHandler.List).Methods("GET")
	apiRouter.HandleFunc("/tokens/{token_id}", tokenHandler.Revoke).Methods("DELETE")

	credentialHandler := handlers.NewCredentialHandler(credentialStore, masterKey, log)
	apiRouter.HandleFunc("/credentials", credentialHandler.Create).Methods("POST")
	apiRouter.HandleFunc("/credentials", credentialHandler.List).Methods("GET")
	apiRouter.HandleFunc("/credentials/{name}", credentialHandler.Delete).Methods("DELETE")

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info(ctx, "server listening", map[string]interface{}{
			"address": addr,
		})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "server error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info(ctx, "shutting down server", nil)

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	// Stop workers after the HTTP server has drained so accepted
	// submissions still reach the queue.
	poolCancel()

	log.Info(ctx, "server stopped", nil)
	return nil
}
