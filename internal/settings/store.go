// Package settings owns the runtime-tunable configuration: persistence to
// a JSON document, the field-by-field precedence of persisted values over
// environment defaults, and the locking that guarantees a poll cycle sees
// either the fully-old or fully-new configuration, never a half-applied
// save.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// EnvDefaults carries the environment-provided connection defaults that
// persisted settings override field by field.
type EnvDefaults struct {
	RadarrURL    string
	RadarrAPIKey string
	SonarrURL    string
	SonarrAPIKey string
}

// Store is the settings store. Reads take a shared lock, saves take an
// exclusive one.
type Store struct {
	path     string
	defaults EnvDefaults
	logger   zerolog.Logger

	mu     sync.RWMutex
	stored Settings
}

// NewStore loads the persisted settings document if present. A missing or
// malformed file falls back to defaults rather than failing startup.
func NewStore(path string, defaults EnvDefaults, logger zerolog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create settings directory: %w", err)
	}

	s := &Store{
		path:     path,
		defaults: defaults,
		logger:   logger.With().Str("component", "settings").Logger(),
		stored:   Default(),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read settings: %w", err)
		}
		return s, nil
	}

	var stored Settings
	if err := json.Unmarshal(data, &stored); err != nil {
		s.logger.Warn().Err(err).Msg("settings file is malformed, using defaults")
		return s, nil
	}

	stored.normalize()
	s.stored = stored
	return s, nil
}

// Stored returns the persisted document as-is, without the environment
// overlay. This is what the settings form edits.
func (s *Store) Stored() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stored
}

// Effective returns the configuration a cycle should act on: the
// persisted document with empty connection fields filled from the
// environment defaults. The whole snapshot is taken under one read lock.
func (s *Store) Effective() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.stored
	if out.Radarr.URL == "" {
		out.Radarr.URL = s.defaults.RadarrURL
	}
	if out.Radarr.APIKey == "" {
		out.Radarr.APIKey = s.defaults.RadarrAPIKey
	}
	if out.Sonarr.URL == "" {
		out.Sonarr.URL = s.defaults.SonarrURL
	}
	if out.Sonarr.APIKey == "" {
		out.Sonarr.APIKey = s.defaults.SonarrAPIKey
	}
	return out
}

// Save validates, persists, and installs the new document. The write to
// disk is atomic (temp file + rename) and the in-memory replacement
// happens under the exclusive lock, so concurrent readers observe either
// the old or the new document in full.
func (s *Store) Save(in Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The read model masks API keys, so a document round-tripped through
	// GET carries the masked form back. A masked key means "keep what is
	// stored"; only a new plaintext key replaces it.
	if keyIsMasked(in.Radarr.APIKey) {
		in.Radarr.APIKey = s.stored.Radarr.APIKey
	}
	if keyIsMasked(in.Sonarr.APIKey) {
		in.Sonarr.APIKey = s.stored.Sonarr.APIKey
	}

	in.normalize()

	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace settings: %w", err)
	}

	s.stored = in
	s.logger.Info().Msg("settings saved")
	return nil
}
