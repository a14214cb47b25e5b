// Package main initializes and starts the task tracker server, setting up
// configuration, logging, credential and task stores, services, handlers,
// and optional TLS.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/taskboard/internal/auth"
	"github.com/atinyakov/taskboard/internal/config"
	"github.com/atinyakov/taskboard/internal/db"
	"github.com/atinyakov/taskboard/internal/logger"
	"github.com/atinyakov/taskboard/internal/repository"
	"github.com/atinyakov/taskboard/internal/server/handler/http"
	"github.com/atinyakov/taskboard/internal/service"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line, config file and environment configuration.
	options := config.Parse()

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Credential store: Postgres when a DSN is configured, the users file otherwise.
	var authRepo service.AuthRepository
	if options.DatabaseDSN != "" {
		postgresDB, err := db.InitPostgres(options.DatabaseDSN)
		if err != nil {
			zapLogger.Fatal("cannot init database", zap.Error(err))
		}
		defer postgresDB.Close()
		authRepo = repository.NewPostgresAuthRepository(postgresDB)
		zapLogger.Info("using postgres user store")
	} else {
		authRepo = repository.NewFileUserRepository(options.UsersFile)
		zapLogger.Info("using file user store", zap.String("path", options.UsersFile))
	}

	statuses, err := repository.LoadStatuses(options.StatusesFile)
	if err != nil {
		zapLogger.Fatal("cannot load statuses", zap.Error(err))
	}

	taskRepo, err := repository.NewFileTaskRepository(options.TasksFile, options.FilesDir)
	if err != nil {
		zapLogger.Fatal("cannot init task store", zap.Error(err))
	}

	// Remove uploads abandoned between staging and rename.
	repository.StartUploadCleaner(ctx, options.FilesDir,
		options.CleanupInterval,
		options.UploadRetention,
		zapLogger,
	)

	// Initialize business-logic services.
	tokens := auth.NewTokenManager(options.JWTKey, options.TokenTTL)
	authService := service.NewAuthService(authRepo, auth.NewPasswordHasher())
	taskService := service.NewTaskService(taskRepo, statuses)

	// Create handlers for auth, task and live endpoints.
	authHandler := &http.AuthHandler{AuthService: authService, Tokens: tokens, Logger: zapLogger}
	taskHandler := &http.TaskHandler{TaskService: taskService, Logger: zapLogger}
	liveHandler := &http.LiveHandler{TaskService: taskService, Logger: zapLogger}

	// Build the router with middleware and routes.
	router := http.NewRouter(authHandler, taskHandler, liveHandler, tokens, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("graceful shutdown failed", zap.Error(err))
		}
	}()

	if options.TLSCert != "" && options.TLSKey != "" {
		zapLogger.Info("starting HTTPS server", zap.String("addr", options.Port))
		err = server.ListenAndServeTLS(options.TLSCert, options.TLSKey)
	} else {
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Port))
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("server failed", zap.Error(err))
	}
	zapLogger.Info("server stopped")
}
