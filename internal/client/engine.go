package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/book-expert/logger"

	"github.com/book-expert/voice-gateway/internal/audioutil"
)

const (
	filePermissions = 0o600

	outputFileFormat = "chunk_%04d.wav"

	requestTimeout = 120 * time.Second
)

// Static errors.
var (
	ErrChunksPathEmpty = errors.New("chunks path cannot be empty")
	ErrOutputDirEmpty  = errors.New("output directory cannot be empty")
	ErrOutputPathEmpty = errors.New("output path cannot be empty")
	ErrNoChunksFound   = errors.New("no chunks found")
)

func newNoChunksFoundError(path string) error {
	return fmt.Errorf("%w in %s", ErrNoChunksFound, path)
}

// Engine drives batch synthesis against the gateway. Chunks are processed
// in parallel with a bounded worker pool; per-chunk failures are logged and
// reported without aborting the remaining chunks.
type Engine struct {
	client  *APIClient
	logger  *logger.Logger
	voiceID string
	workers int
}

// NewEngine creates a batch engine that synthesizes with the given voice
// using up to workers concurrent requests.
func NewEngine(apiClient *APIClient, log *logger.Logger, voiceID string, workers int) *Engine {
	if workers < 1 {
		workers = 1
	}

	return &Engine{
		client:  apiClient,
		logger:  log,
		voiceID: voiceID,
		workers: workers,
	}
}

// ProcessSingleText synthesizes one text and writes the audio to outputPath.
func (e *Engine) ProcessSingleText(text, outputPath string) error {
	if text == "" {
		return ErrTextEmpty
	}

	if outputPath == "" {
		return ErrOutputPathEmpty
	}

	err := audioutil.EnsureDir(filepath.Dir(outputPath))
	if err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	audio, err := e.client.Synthesize(ctx, text, e.voiceID)
	if err != nil {
		return fmt.Errorf("failed to synthesize text: %w", err)
	}

	err = os.WriteFile(outputPath, audio, filePermissions)
	if err != nil {
		return fmt.Errorf("failed to write audio file: %w", err)
	}

	e.logger.Info("Generated audio: %s (%s)", outputPath, audioutil.FormatFileSize(int64(len(audio))))

	return nil
}

// ProcessChunks reads a JSON array of text chunks from chunksPath and
// synthesizes each into a sequentially numbered WAV file under outputDir.
func (e *Engine) ProcessChunks(chunksPath, outputDir string) error {
	if chunksPath == "" {
		return ErrChunksPathEmpty
	}

	if outputDir == "" {
		return ErrOutputDirEmpty
	}

	chunks, err := readChunksFile(chunksPath)
	if err != nil {
		return err
	}

	err = audioutil.EnsureDir(outputDir)
	if err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	healthCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = e.client.HealthCheck(healthCtx)
	if err != nil {
		return fmt.Errorf("gateway health check failed: %w", err)
	}

	e.logger.Info("Gateway is healthy, processing %d chunks", len(chunks))

	return e.processChunksParallel(chunks, outputDir)
}

// processChunksParallel fans chunks out to the worker pool. The last error
// observed is returned after every chunk has been attempted.
func (e *Engine) processChunksParallel(chunks []string, outputDir string) error {
	var (
		waitGroup sync.WaitGroup
		mutex     sync.Mutex
		lastError error
	)

	workerPool := make(chan struct{}, e.workers)

	for chunkIndex, chunk := range chunks {
		waitGroup.Add(1)

		go func(index int, text string) {
			defer waitGroup.Done()

			workerPool <- struct{}{}

			defer func() { <-workerPool }()

			outputPath := filepath.Join(outputDir, fmt.Sprintf(outputFileFormat, index+1))

			err := e.ProcessSingleText(text, outputPath)
			if err != nil {
				mutex.Lock()

				lastError = fmt.Errorf("chunk %d failed: %w", index+1, err)

				mutex.Unlock()
				e.logger.Error("Failed to process chunk %d: %v", index+1, err)

				return
			}

			e.logger.Info("Processed chunk %d/%d", index+1, len(chunks))
		}(chunkIndex, chunk)
	}

	waitGroup.Wait()
	close(workerPool)

	return lastError
}

// readChunksFile reads and parses a JSON file containing an array of text
// chunks.
func readChunksFile(chunksPath string) ([]string, error) {
	data, err := os.ReadFile(chunksPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var chunks []string

	err = parseJSON(data, &chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to parse chunks JSON: %w", err)
	}

	if len(chunks) == 0 {
		return nil, newNoChunksFoundError(chunksPath)
	}

	return chunks, nil
}
