// Package prefs keeps the last-used analysis form values in a JSON file so
// the next run can pre-fill them. Nothing here is required for a
// submission to work; a missing or unreadable file just means no defaults.
package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	DefaultDebounce = 300 * time.Millisecond
	appDirName      = "cortexctl"
	fileName        = "form.json"
)

// FormState is the snapshot of the form fields. Credentials are never part
// of it.
type FormState struct {
	Ticker         string   `json:"ticker,omitempty"`
	Date           string   `json:"date,omitempty"`
	Provider       string   `json:"provider,omitempty"`
	ProviderURL    string   `json:"provider_url,omitempty"`
	QuickModel     string   `json:"quick_model,omitempty"`
	DeepModel      string   `json:"deep_model,omitempty"`
	Depth          int      `json:"depth,omitempty"`
	DiscordWebhook string   `json:"discord_webhook,omitempty"`
	DiscordNotify  bool     `json:"discord_notify,omitempty"`
	Analysts       []string `json:"analysts,omitempty"`
}

// Empty reports whether no field has been recorded yet.
func (f FormState) Empty() bool {
	if len(f.Analysts) > 0 {
		return false
	}
	f.Analysts = nil
	return reflect.DeepEqual(f, FormState{})
}

func (f FormState) clone() FormState {
	if f.Analysts != nil {
		f.Analysts = append([]string(nil), f.Analysts...)
	}
	return f
}

// Store owns one form file.
type Store struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger

	mu    sync.RWMutex
	state FormState
	// disk is the content this store last read or wrote. A watch event
	// whose file still holds it is our own write.
	disk     FormState
	dirty    bool
	timer    *time.Timer
	watcher  *fsnotify.Watcher
	onChange func(FormState)
}

type storeOptions struct {
	path     string
	debounce time.Duration
	logger   *slog.Logger
}

type Option func(*storeOptions)

func WithPath(path string) Option {
	return func(o *storeOptions) {
		if path != "" {
			o.path = path
		}
	}
}

func WithDebounce(d time.Duration) Option {
	return func(o *storeOptions) {
		if d > 0 {
			o.debounce = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *storeOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// Open creates the store and loads whatever the file currently holds.
func Open(opts ...Option) (*Store, error) {
	options := storeOptions{
		debounce: DefaultDebounce,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(&options)
	}

	if options.path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		options.path = p
	}

	s := &Store{
		path:     options.path,
		debounce: options.debounce,
		logger:   options.logger,
	}
	s.state = s.Load()
	s.disk = s.state.clone()
	return s, nil
}

// DefaultPath is form.json under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir, err = os.Getwd()
		if err != nil {
			return "", err
		}
	}
	return filepath.Join(dir, appDirName, fileName), nil
}

func (s *Store) Path() string {
	return s.path
}

// Load reads the file. A missing or corrupt file yields an empty state.
func (s *Store) Load() FormState {
	state, err := readStateFile(s.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("ignoring unreadable form state", "path", s.path, "error", err)
		}
		return FormState{}
	}
	return state
}

// Get returns a copy of the in-memory state.
func (s *Store) Get() FormState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// Update applies fn to the state and schedules a debounced write. Bursts of
// updates within the debounce window collapse into one write.
func (s *Store) Update(fn func(*FormState)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.state.clone()
	fn(&next)
	if reflect.DeepEqual(next, s.state) {
		return
	}
	s.state = next
	s.dirty = true

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() {
		if err := s.Flush(); err != nil {
			s.logger.Warn("form state flush failed", "path", s.path, "error", err)
		}
	})
}

// Flush writes pending changes now.
func (s *Store) Flush() error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	state := s.state.clone()
	s.dirty = false
	s.mu.Unlock()

	if err := writeStateFile(s.path, state); err != nil {
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.disk = state
	s.mu.Unlock()
	return nil
}

// Close flushes pending changes and stops the watcher.
func (s *Store) Close() error {
	err := s.Flush()
	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()
	if w != nil {
		_ = w.Close()
	}
	return err
}

// Watch reloads the state when another process edits the file and hands
// the new state to onChange. Local edits not yet flushed win over the file.
// The watcher stops when ctx ends or the store is closed.
func (s *Store) Watch(ctx context.Context, onChange func(FormState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.onChange = onChange
	if s.watcher != nil {
		return nil
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create prefs watcher: %w", err)
	}
	// The directory is watched because writes replace the file by rename.
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch prefs dir: %w", err)
	}
	s.watcher = watcher

	go s.watchLoop(ctx, watcher)
	return nil
}

// watchLoop waits for the file to settle for one debounce period before
// reloading it.
func (s *Store) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	settle := time.NewTimer(s.debounce)
	settle.Stop()
	defer settle.Stop()

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			if s.watcher == watcher {
				s.watcher = nil
			}
			s.mu.Unlock()
			_ = watcher.Close()
			return
		case evt, ok := <-watcher.Events:
			if !ok {
				return
			}
			if s.concerns(evt) {
				settle.Reset(s.debounce)
			}
		case <-settle.C:
			s.reloadFromDisk()
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("form state watcher error", "path", s.path, "error", err)
		}
	}
}

func (s *Store) concerns(evt fsnotify.Event) bool {
	if evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	return filepath.Clean(evt.Name) == filepath.Clean(s.path)
}

func (s *Store) reloadFromDisk() {
	state, err := readStateFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return
	}
	if err != nil {
		s.logger.Warn("form state reload failed", "path", s.path, "error", err)
		return
	}

	s.mu.Lock()
	if s.dirty || reflect.DeepEqual(state, s.disk) {
		s.mu.Unlock()
		return
	}
	s.disk = state.clone()
	s.state = state
	cb := s.onChange
	s.mu.Unlock()

	s.logger.Debug("form state reloaded", "path", s.path)
	if cb != nil {
		cb(state.clone())
	}
}

func readStateFile(path string) (FormState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return FormState{}, err
	}
	var state FormState
	if err := json.Unmarshal(data, &state); err != nil {
		return FormState{}, fmt.Errorf("parse form state: %w", err)
	}
	return state, nil
}

func writeStateFile(path string, state FormState) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	tmpFile, err := os.CreateTemp(dir, "form-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp form state: %w", err)
	}
	encoder := json.NewEncoder(tmpFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(&state); err != nil {
		tmpFile.Close()
		_ = os.Remove(tmpFile.Name())
		return fmt.Errorf("encode form state: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		_ = os.Remove(tmpFile.Name())
		return fmt.Errorf("flush form state: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		_ = os.Remove(tmpFile.Name())
		return fmt.Errorf("close temp form state: %w", err)
	}
	return os.Rename(tmpFile.Name(), path)
}
