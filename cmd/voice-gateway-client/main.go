// main package for the voice-gateway command-line client
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/voice-gateway/internal/audioutil"
	"github.com/book-expert/voice-gateway/internal/client"
)

// Flag descriptions.
const (
	flagServerDesc  = "Voice gateway base URL"
	flagTokenDesc   = "Bearer token for authenticated endpoints"
	flagTextDesc    = "Text to convert to speech"
	flagOutputDesc  = "Output file path (.wav) or directory for --chunks"
	flagChunksDesc  = "JSON file containing text chunks to process"
	flagVoiceDesc   = "Voice ID to synthesize with (from a previous clone)"
	flagWorkersDesc = "Number of parallel chunk workers"
	flagCloneDesc   = "Path to a WAV sample to clone a voice from"
	flagNameDesc    = "Name for the cloned voice (required with --clone)"
	flagVoicesDesc  = "List cloned voices and exit"
	flagHealthDesc  = "Check gateway health and exit"
	flagVerboseDesc = "Enable verbose logging"
)

// Error messages.
const (
	errNoAction          = "one of --text, --chunks, --clone, --voices or --health must be provided"
	errTextAndChunks     = "cannot specify both --text and --chunks"
	errCloneRequiresName = "--clone requires --name"
)

// Defaults.
const (
	defaultServerURL  = "http://localhost:8080"
	defaultWorkers    = 4
	defaultOutputFile = "output.wav"

	logFileNameDefault = "voice-client.log"
	logFileNameVerbose = "voice-client-verbose.log"

	healthTimeout = 10 * time.Second
	cloneTimeout  = 120 * time.Second
)

// appFlags holds the parsed command-line flag values.
type appFlags struct {
	server  string
	token   string
	text    string
	output  string
	chunks  string
	voice   string
	clone   string
	name    string
	workers int
	voices  bool
	health  bool
	verbose bool
}

func main() {
	err := run()
	if err != nil {
		// A logger might not be initialized yet, so use the standard log package.
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	flags := parseFlags()

	appLogger, err := setupLogger(flags.verbose)
	if err != nil {
		return err
	}

	defer func() {
		_ = appLogger.Close()
	}()

	apiClient := client.NewAPIClient(flags.server, flags.token)

	switch {
	case flags.health:
		return handleHealthCheck(apiClient)
	case flags.voices:
		return handleListVoices(apiClient)
	case flags.clone != "":
		return handleClone(apiClient, appLogger, flags)
	default:
		return handleSynthesis(apiClient, appLogger, flags)
	}
}

// parseFlags defines and parses command-line flags, returning them in a struct.
func parseFlags() appFlags {
	var flags appFlags

	flag.StringVar(&flags.server, "server", defaultServerURL, flagServerDesc)
	flag.StringVar(&flags.token, "token", "", flagTokenDesc)
	flag.StringVar(&flags.text, "text", "", flagTextDesc)
	flag.StringVar(&flags.output, "output", "", flagOutputDesc)
	flag.StringVar(&flags.chunks, "chunks", "", flagChunksDesc)
	flag.StringVar(&flags.voice, "voice", "", flagVoiceDesc)
	flag.StringVar(&flags.clone, "clone", "", flagCloneDesc)
	flag.StringVar(&flags.name, "name", "", flagNameDesc)
	flag.IntVar(&flags.workers, "workers", defaultWorkers, flagWorkersDesc)
	flag.BoolVar(&flags.voices, "voices", false, flagVoicesDesc)
	flag.BoolVar(&flags.health, "health", false, flagHealthDesc)
	flag.BoolVar(&flags.verbose, "verbose", false, flagVerboseDesc)
	flag.Parse()

	return flags
}

func setupLogger(verbose bool) (*logger.Logger, error) {
	logFileName := logFileNameDefault
	if verbose {
		logFileName = logFileNameVerbose
	}

	appLogger, err := logger.New(os.TempDir(), logFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return appLogger, nil
}

// handleHealthCheck checks the gateway and its upstream and prints the result.
func handleHealthCheck(apiClient *client.APIClient) error {
	ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
	defer cancel()

	err := apiClient.HealthCheck(ctx)
	if err != nil {
		fmt.Printf("Gateway is not healthy: %v\n", err)

		return fmt.Errorf("health check failed: %w", err)
	}

	fmt.Println("Gateway is healthy")

	return nil
}

// handleListVoices prints every persisted clone record.
func handleListVoices(apiClient *client.APIClient) error {
	ctx, cancel := context.WithTimeout(context.Background(), healthTimeout)
	defer cancel()

	resp, err := apiClient.ListVoices(ctx)
	if err != nil {
		return fmt.Errorf("failed to list voices: %w", err)
	}

	if len(resp.Voices) == 0 {
		fmt.Println("No cloned voices")

		return nil
	}

	for _, voice := range resp.Voices {
		fmt.Printf(
			"%s  %s  (sample %s, created %s)\n",
			voice.VoiceID,
			voice.Name,
			audioutil.FormatDuration(voice.SampleSeconds),
			voice.CreatedAt.Format(time.RFC3339),
		)
	}

	return nil
}

// handleClone uploads a WAV sample and prints the new voice ID.
func handleClone(
	apiClient *client.APIClient,
	appLogger *logger.Logger,
	flags appFlags,
) error {
	if flags.name == "" {
		return errors.New(errCloneRequiresName)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cloneTimeout)
	defer cancel()

	appLogger.Info("Cloning voice %q from %s", flags.name, flags.clone)

	resp, err := apiClient.CloneVoice(ctx, flags.name, flags.clone)
	if err != nil {
		appLogger.Error("Clone failed: %v", err)

		return fmt.Errorf("clone failed: %w", err)
	}

	fmt.Printf("Cloned voice %s (%s)\n", resp.VoiceID, resp.Name)

	for _, warning := range resp.Warnings {
		fmt.Printf("warning: %s\n", warning)
	}

	return nil
}

// handleSynthesis dispatches to single-text or batch chunk processing.
func handleSynthesis(
	apiClient *client.APIClient,
	appLogger *logger.Logger,
	flags appFlags,
) error {
	if flags.text == "" && flags.chunks == "" {
		flag.Usage()

		return errors.New(errNoAction)
	}

	if flags.text != "" && flags.chunks != "" {
		return errors.New(errTextAndChunks)
	}

	engine := client.NewEngine(apiClient, appLogger, flags.voice, flags.workers)

	if flags.text != "" {
		outputPath := flags.output
		if outputPath == "" {
			outputPath = defaultOutputFile
		}

		err := engine.ProcessSingleText(flags.text, outputPath)
		if err != nil {
			return fmt.Errorf("failed to process text: %w", err)
		}

		fmt.Printf("Generated: %s\n", outputPath)

		return nil
	}

	outputDir := flags.output
	if outputDir == "" {
		outputDir = "."
	}

	err := engine.ProcessChunks(flags.chunks, outputDir)
	if err != nil {
		return fmt.Errorf("failed to process chunks: %w", err)
	}

	fmt.Printf("Generated audio files in: %s\n", filepath.Clean(outputDir))

	return nil
}
