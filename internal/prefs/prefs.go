package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"

	"reddot-watch/feedsreader/internal/theme"
)

// FileName is the preferences file kept next to the database.
const FileName = "prefs.toml"

// Preferences is the on-disk shape of the preferences file.
type Preferences struct {
	ContentStyle string `toml:"content_style" json:"content_style"`
}

// Defaults returns the preferences used when no file exists.
func Defaults() Preferences {
	return Preferences{ContentStyle: theme.DefaultStyle}
}

// Listener is notified with the new content style after it changed.
type Listener func(style string)

// Store keeps the preferences in memory and persists every change.
type Store struct {
	path string

	mu        sync.RWMutex
	current   Preferences
	listeners []Listener
}

// Open loads the preferences file at path. A missing file yields the defaults;
// it is only written on the first change.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("preferences path cannot be empty")
	}

	s := &Store{path: path, current: Defaults()}
	p, err := s.load()
	if err != nil {
		return nil, err
	}
	s.current = p
	return s, nil
}

// Path returns the preferences file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) load() (Preferences, error) {
	p := Defaults()
	if _, err := toml.DecodeFile(s.path, &p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Debug().Str("path", s.path).Msg("Preferences file not found, using defaults")
			return Defaults(), nil
		}
		return Preferences{}, fmt.Errorf("failed to read preferences %s: %w", s.path, err)
	}

	if strings.TrimSpace(p.ContentStyle) == "" {
		p.ContentStyle = theme.DefaultStyle
	}
	return p, nil
}

// Get returns a copy of the current preferences.
func (s *Store) Get() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// ContentStyle returns the current content style.
func (s *Store) ContentStyle() string {
	return s.Get().ContentStyle
}

// OnChange registers fn to be called after every content style change.
func (s *Store) OnChange(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// SetContentStyle persists style and notifies the listeners. Setting the
// current value again is a no-op.
func (s *Store) SetContentStyle(style string) error {
	style = strings.TrimSpace(style)
	if style == "" {
		return errors.New("content style cannot be empty")
	}

	s.mu.Lock()
	if s.current.ContentStyle == style {
		s.mu.Unlock()
		return nil
	}
	next := s.current
	next.ContentStyle = style
	if err := s.save(next); err != nil {
		s.mu.Unlock()
		return err
	}
	s.current = next
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	log.Info().Str("content_style", style).Msg("Content style changed")
	notify(listeners, style)
	return nil
}

// Reload rereads the file and notifies the listeners when the content style
// differs from the one in memory.
func (s *Store) Reload() error {
	p, err := s.load()
	if err != nil {
		return err
	}

	s.mu.Lock()
	changed := p.ContentStyle != s.current.ContentStyle
	s.current = p
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	if changed {
		notify(listeners, p.ContentStyle)
	}
	return nil
}

func notify(listeners []Listener, style string) {
	for _, fn := range listeners {
		fn(style)
	}
}

// save writes p to a temporary file and renames it over the preferences file.
func (s *Store) save(p Preferences) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create preferences directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, FileName+".*")
	if err != nil {
		return fmt.Errorf("failed to create preferences file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := toml.NewEncoder(tmp).Encode(p); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode preferences: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to save preferences: %w", err)
	}
	return nil
}
