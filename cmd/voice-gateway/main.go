// main package for the voice-gateway service
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go"

	"github.com/book-expert/voice-gateway/internal/cloud"
	"github.com/book-expert/voice-gateway/internal/config"
	"github.com/book-expert/voice-gateway/internal/gateway"
	"github.com/book-expert/voice-gateway/internal/notify"
	"github.com/book-expert/voice-gateway/internal/objectstore"
	"github.com/book-expert/voice-gateway/internal/registry"
)

const shutdownTimeout = 15 * time.Second

func setupLogger(logPath string) (*logger.Logger, error) {
	log, err := logger.New(logPath, "voice-gateway.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

// connectNATS wires the optional NATS-backed collaborators. An empty URL
// disables both the sample archive and event publishing.
func connectNATS(
	cfg *config.Config,
	log *logger.Logger,
) (*nats.Conn, *objectstore.SampleArchive, *notify.NatsPublisher, error) {
	if cfg.NATS.URL == "" {
		log.Warn("NATS URL not configured; sample archive and events disabled")

		return nil, nil, nil, nil
	}

	natsConnection, err := nats.Connect(cfg.NATS.URL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	jetstreamContext, err := natsConnection.JetStream()
	if err != nil {
		natsConnection.Close()

		return nil, nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	archive, err := objectstore.New(jetstreamContext, cfg.NATS.SampleObjectStoreBucket)
	if err != nil {
		natsConnection.Close()

		return nil, nil, nil, fmt.Errorf("failed to create sample archive: %w", err)
	}

	publisher, err := notify.NewNatsPublisher(natsConnection, cfg.NATS.VoiceCloneCreatedSubject)
	if err != nil {
		natsConnection.Close()

		return nil, nil, nil, fmt.Errorf("failed to create event publisher: %w", err)
	}

	return natsConnection, archive, publisher, nil
}

// serve runs the HTTP server until a termination signal arrives, then shuts
// it down gracefully.
func serve(server *gateway.Server, log *logger.Logger) error {
	errChannel := make(chan error, 1)

	go func() {
		errChannel <- server.Start()
	}()

	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChannel:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}

		return nil
	case sig := <-signalChannel:
		log.System("Received signal %v, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	return nil
}

func run() error {
	// 1. Create a temporary logger for the bootstrap process
	bootstrapLog, err := setupLogger(os.TempDir())
	if err != nil {
		// If bootstrap logger fails, we can only print to stderr
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	// 2. Load configuration using the central configurator
	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// 3. Initialize the final logger based on the loaded configuration
	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
		}
	}()

	// 4. Wire the collaborators
	natsConnection, archive, publisher, err := connectNATS(cfg, finalLog)
	if err != nil {
		return err
	}

	if natsConnection != nil {
		defer natsConnection.Close()
	}

	voiceRegistry, err := registry.New(cfg.Paths.VoiceRegistryFile)
	if err != nil {
		return fmt.Errorf("failed to open voice registry: %w", err)
	}

	cloudClient := cloud.NewClient(
		cfg.Cloud.BaseURL,
		cfg.Cloud.APIKey,
		time.Duration(cfg.Cloud.TimeoutSeconds)*time.Second,
	)

	deps := gateway.Deps{
		Synthesizer: cloudClient,
		Cloner:      cloudClient,
		Registry:    voiceRegistry,
		Archive:     nil,
		Events:      nil,
	}

	// Assign only non-nil pointers so the optional-dependency nil checks in
	// the handlers see a nil interface, not a typed nil.
	if archive != nil {
		deps.Archive = archive
	}

	if publisher != nil {
		deps.Events = publisher
	}

	server := gateway.New(cfg, finalLog, deps)

	finalLog.System("Voice gateway initialized, serving on port %d", cfg.HTTP.Port)

	return serve(server, finalLog)
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
