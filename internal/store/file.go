package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

type fileState struct {
	Version   int64    `json:"version"`
	UpdatedAt string   `json:"updated_at"`
	Symbols   []string `json:"symbols"`
}

// FileStore keeps the symbol list in a JSON file, replaced atomically on
// every save.
type FileStore struct {
	path    string
	mu      sync.Mutex
	version int64
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// LoadSymbols returns nil when the file does not exist yet.
func (f *FileStore) LoadSymbols(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read watchlist state: %w", err)
	}
	var st fileState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal watchlist state: %w", err)
	}
	f.version = st.Version
	return clean(st.Symbols), nil
}

func (f *FileStore) SaveSymbols(_ context.Context, symbols []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.version++
	data, err := json.MarshalIndent(fileState{
		Version:   f.version,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
		Symbols:   clean(symbols),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal watchlist state: %w", err)
	}

	if dir := filepath.Dir(f.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	// temp file + rename so readers never see a partial write
	tempPath := f.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp watchlist state: %w", err)
	}
	if err := os.Rename(tempPath, f.path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename watchlist state: %w", err)
	}
	return nil
}

func (f *FileStore) Close() error { return nil }
