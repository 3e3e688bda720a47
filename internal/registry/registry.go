// Package registry persists cloned-voice records as JSON lines appended to a
// flat file. Each completed clone operation appends exactly one record; the
// file is the service's only durable state.
package registry

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/book-expert/voice-gateway/internal/core"
)

// File and directory permissions.
const (
	filePermissions = 0o600
	dirPermissions  = 0o750
)

// ErrPathEmpty indicates that the registry file path is empty.
var ErrPathEmpty = errors.New("registry file path cannot be empty")

// FileRegistry implements core.VoiceRegistry over an append-only JSON Lines
// file. Appends are serialized by a mutex so concurrent clone requests cannot
// interleave partial records.
type FileRegistry struct {
	path string
	mu   sync.Mutex
}

// New creates a FileRegistry at the given path, creating the parent directory
// if it does not exist. The file itself is created on first append.
func New(path string) (*FileRegistry, error) {
	if path == "" {
		return nil, ErrPathEmpty
	}

	dirErr := os.MkdirAll(filepath.Dir(path), dirPermissions)
	if dirErr != nil {
		return nil, fmt.Errorf("failed to create registry directory: %w", dirErr)
	}

	return &FileRegistry{path: path}, nil
}

// Append writes one record as a single JSON line at the end of the file.
func (r *FileRegistry) Append(record core.VoiceRecord) error {
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal voice record: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := os.OpenFile(
		r.path,
		os.O_APPEND|os.O_CREATE|os.O_WRONLY,
		filePermissions,
	)
	if err != nil {
		return fmt.Errorf("failed to open registry file: %w", err)
	}

	_, writeErr := file.Write(append(line, '\n'))
	closeErr := file.Close()

	if writeErr != nil {
		return fmt.Errorf("failed to append voice record: %w", writeErr)
	}

	if closeErr != nil {
		return fmt.Errorf("failed to close registry file: %w", closeErr)
	}

	return nil
}

// List reads every record from the file in append order. A missing file is
// an empty registry, not an error.
func (r *FileRegistry) List() ([]core.VoiceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []core.VoiceRecord{}, nil
		}

		return nil, fmt.Errorf("failed to open registry file: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	records := make([]core.VoiceRecord, 0)
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var record core.VoiceRecord

		unmarshalErr := json.Unmarshal(line, &record)
		if unmarshalErr != nil {
			return nil, fmt.Errorf("failed to parse voice record: %w", unmarshalErr)
		}

		records = append(records, record)
	}

	scanErr := scanner.Err()
	if scanErr != nil {
		return nil, fmt.Errorf("failed to read registry file: %w", scanErr)
	}

	return records, nil
}
