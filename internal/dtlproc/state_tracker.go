package dtlproc

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	stateFileName = "dtlflow.state"
	lockFileName  = ".dtlflow.lock"
	stateVersion  = "1.0"
)

// SourceFileState records the identity of a converted source file so an
// unchanged file can be skipped on the next run.
type SourceFileState struct {
	Path        string    `json:"path"`
	Size        int64     `json:"size"`
	ModTime     time.Time `json:"mod_time"`
	ConvertedAt time.Time `json:"converted_at"`
	Archive     string    `json:"archive,omitempty"`
	ErrorMsg    string    `json:"error_msg,omitempty"`
}

// ConversionState is the persistent state of per-file conversions.
type ConversionState struct {
	ConvertedFiles map[string]SourceFileState `json:"converted_files"`
	FailedFiles    map[string]SourceFileState `json:"failed_files"`
	LastUpdated    time.Time                  `json:"last_updated"`
	Version        string                     `json:"version"`
}

// NewConversionState creates an empty state with initialized maps.
func NewConversionState() *ConversionState {
	return &ConversionState{
		ConvertedFiles: make(map[string]SourceFileState),
		FailedFiles:    make(map[string]SourceFileState),
		LastUpdated:    time.Now(),
		Version:        stateVersion,
	}
}

// StateTracker persists conversion state in a directory guarded by a
// file lock, so two dtlflow instances never race on the same output
// directory.
type StateTracker struct {
	mu        sync.Mutex
	state     *ConversionState
	statePath string
	lock      *flock.Flock
	logger    *slog.Logger
}

// NewStateTracker creates the output directory if needed and acquires
// its lock. It returns an error when another instance holds the lock.
func NewStateTracker(outputDir string, logger *slog.Logger) (*StateTracker, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("could not create output directory %s: %w", outputDir, err)
	}

	lockPath := filepath.Join(outputDir, lockFileName)
	fileLock := flock.New(lockPath)

	locked, err := fileLock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("could not acquire file lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("output directory %s is locked by another dtlflow instance", outputDir)
	}

	logger.Debug("Acquired conversion state lock.", "path", lockPath)

	return &StateTracker{
		state:     NewConversionState(),
		statePath: filepath.Join(outputDir, stateFileName),
		lock:      fileLock,
		logger:    logger,
	}, nil
}

// Load reads the state file. A missing or empty file yields a fresh
// state; a corrupted file is backed up and replaced rather than aborting
// the run.
func (st *StateTracker) Load() error {
	st.mu.Lock()
	defer st.mu.Unlock()

	data, err := os.ReadFile(st.statePath)
	if os.IsNotExist(err) {
		st.state = NewConversionState()
		return nil
	}
	if err != nil {
		return fmt.Errorf("could not read state file: %w", err)
	}
	if len(data) == 0 {
		st.state = NewConversionState()
		return nil
	}

	var loaded ConversionState
	if err := json.Unmarshal(data, &loaded); err != nil {
		st.backupCorrupted(data, err)
		st.state = NewConversionState()
		return nil
	}
	if loaded.ConvertedFiles == nil {
		loaded.ConvertedFiles = make(map[string]SourceFileState)
	}
	if loaded.FailedFiles == nil {
		loaded.FailedFiles = make(map[string]SourceFileState)
	}

	st.state = &loaded
	return nil
}

func (st *StateTracker) backupCorrupted(data []byte, cause error) {
	backupPath := st.statePath + ".corrupted." + time.Now().Format("20060102-150405")
	if err := os.WriteFile(backupPath, data, 0644); err != nil {
		st.logger.Warn("Could not back up corrupted state file.", "error", err)
		return
	}
	st.logger.Warn("State file corrupted, starting fresh.", "backup", backupPath, "error", cause)
}

// ShouldConvert reports whether path needs converting: true unless a
// previous successful conversion recorded the same size and mtime.
func (st *StateTracker) ShouldConvert(path string, info os.FileInfo) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	prev, ok := st.state.ConvertedFiles[path]
	if !ok {
		return true
	}
	return prev.Size != info.Size() || !prev.ModTime.Equal(info.ModTime())
}

// MarkConverted records a successful conversion of path.
func (st *StateTracker) MarkConverted(path string, info os.FileInfo, archive string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.state.ConvertedFiles[path] = SourceFileState{
		Path:        path,
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		ConvertedAt: time.Now(),
		Archive:     archive,
	}
	delete(st.state.FailedFiles, path)
	st.state.LastUpdated = time.Now()
}

// MarkFailed records a failed conversion of path.
func (st *StateTracker) MarkFailed(path string, errMsg string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.state.FailedFiles[path] = SourceFileState{
		Path:        path,
		ConvertedAt: time.Now(),
		ErrorMsg:    errMsg,
	}
	st.state.LastUpdated = time.Now()
}

// ConvertedCount returns the number of successfully converted files.
func (st *StateTracker) ConvertedCount() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.state.ConvertedFiles)
}

// Save writes the state atomically (temp file + rename).
func (st *StateTracker) Save() error {
	st.mu.Lock()
	defer st.mu.Unlock()

	data, err := json.MarshalIndent(st.state, "", "  ")
	if err != nil {
		return fmt.Errorf("could not serialize state: %w", err)
	}

	tempPath := st.statePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("could not write temporary state file: %w", err)
	}
	if err := os.Rename(tempPath, st.statePath); err != nil {
		return fmt.Errorf("could not replace state file: %w", err)
	}
	return nil
}

// Close releases the directory lock.
func (st *StateTracker) Close() error {
	return st.lock.Unlock()
}
