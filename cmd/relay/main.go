package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"

	"chat-relay/auth"
	"chat-relay/domain"
	"chat-relay/internal"
	"chat-relay/moderation"
	"chat-relay/registry"
	"chat-relay/repositories"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/server"
	"chat-relay/services"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}

	log := internal.NewLogger(config.LogLevel)

	// 2. Storage (BadgerDB + Bluge, both in memory: the relay makes no
	// durability promise, the stores exist for paging and search)
	db, err := badger.Open(badger.DefaultOptions("").
		WithInMemory(true).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		log.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	// 3. Moderation
	words, err := moderation.LoadWordlists()
	if err != nil {
		return exitRuntime, fmt.Errorf("wordlist loading failed: %w", err)
	}
	moderator, err := moderation.NewModerator(words, charReplacement)
	if err != nil {
		return exitRuntime, fmt.Errorf("moderator init failed: %w", err)
	}

	// 4. Core state
	moderationStore := moderation.NewStore(log)
	sessionRegistry := registry.New(log, moderationStore)
	channels := runtime.NewChannelStore(log, config.ChannelNames()...)
	router := runtime.NewRouter(log, sessionRegistry)

	// 5. Auth & repositories
	tokens := auth.NewTokenManager(config.JWTSecret, config.AuthTokenDuration)
	messageRepository := repositories.NewMessageRepository(db, log, &config.ArchivePageSize)
	searchRepository := repositories.NewSearchRepository(blugeWriter, log)
	authService := services.NewAuthService(repositories.NewUserRepository(db), tokens, log)
	if err := authService.SeedAdmin(config.AdminEmail, config.AdminPassword); err != nil {
		return exitRuntime, fmt.Errorf("admin seeding failed: %w", err)
	}

	// 6. Dispatcher & HTTP front
	archiveChan := make(chan domain.ChatEvent, config.BufferSize)
	dispatcher := runtime.NewDispatcher(
		log, sessionRegistry, moderationStore, channels, router,
		moderator, tokens, archiveChan, config.MaxContentLength,
	)

	healthWorker := workers.NewHealthWorker(log, sessionRegistry, channels, config.MetricInterval)
	httpServer := server.New(
		log, &config, dispatcher, channels,
		messageRepository, searchRepository, authService, tokens, healthWorker,
	)

	// 7. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 8. Supervision: everything long-running restarts on crash
	sup := workers.NewSupervisor(log)
	sup.Add(
		httpServer,
		workers.NewArchiveWorker(log, archiveChan, messageRepository, searchRepository),
		workers.NewSweepWorker(log, moderationStore, sessionRegistry, router, config.SweepInterval),
		healthWorker,
	)

	log.Info("Relay starting",
		"host", config.Host,
		"port", config.Port,
		"channels", config.ChannelNames())

	// Blocks until the context is canceled and every worker returned.
	sup.Run(ctx)

	log.Info("Program stopped cleanly")
	return exitOK, nil
}
