package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDefaults = EnvDefaults{
	RadarrURL:    "http://radarr.env:7878",
	RadarrAPIKey: "env-radarr-key",
	SonarrURL:    "http://sonarr.env:8989",
	SonarrAPIKey: "env-sonarr-key",
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "settings.json"), testDefaults, zerolog.Nop())
	require.NoError(t, err)
	return store
}

func TestStore_MissingFileUsesDefaults(t *testing.T) {
	store := newTestStore(t)

	stored := store.Stored()
	assert.True(t, stored.Enabled)
	assert.Equal(t, DefaultPollIntervalSeconds, stored.PollIntervalSeconds)
	assert.Equal(t, StopModeCutoff, stored.Radarr.StopMode)
	assert.Empty(t, stored.Radarr.URL, "stored document does not carry env values")
}

func TestStore_EnvDefaultsFillEmptyFields(t *testing.T) {
	store := newTestStore(t)

	eff := store.Effective()
	assert.Equal(t, "http://radarr.env:7878", eff.Radarr.URL)
	assert.Equal(t, "env-radarr-key", eff.Radarr.APIKey)
	assert.Equal(t, "http://sonarr.env:8989", eff.Sonarr.URL)
	assert.Equal(t, "env-sonarr-key", eff.Sonarr.APIKey)
}

func TestStore_PersistedValueOverridesEnvDefault(t *testing.T) {
	store := newTestStore(t)

	in := store.Stored()
	in.Radarr.URL = "http://radarr.saved:7878"
	in.Radarr.StopQuality = "Remux-2160p"
	require.NoError(t, store.Save(in))

	eff := store.Effective()
	assert.Equal(t, "http://radarr.saved:7878", eff.Radarr.URL, "persisted value wins over env default")
	assert.Equal(t, "env-radarr-key", eff.Radarr.APIKey, "absent field still falls back to env")
	assert.Equal(t, "Remux-2160p", eff.Radarr.StopQuality)
}

func TestStore_SaveSurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	store, err := NewStore(path, testDefaults, zerolog.Nop())
	require.NoError(t, err)

	in := store.Stored()
	in.PollIntervalSeconds = 120
	in.Sonarr.StopQuality = "Bluray-1080p"
	in.Sonarr.Enabled = false
	require.NoError(t, store.Save(in))

	reloaded, err := NewStore(path, testDefaults, zerolog.Nop())
	require.NoError(t, err)

	got := reloaded.Stored()
	assert.Equal(t, 120, got.PollIntervalSeconds)
	assert.Equal(t, "Bluray-1080p", got.Sonarr.StopQuality)
	assert.False(t, got.Sonarr.Enabled)
}

func TestStore_SaveRetainsStoredKeyForMaskedInput(t *testing.T) {
	store := newTestStore(t)

	in := store.Stored()
	in.Radarr.APIKey = "realsecretapikey1234"
	require.NoError(t, store.Save(in))

	// Round-trip the masked read model straight back into Save, the way
	// the settings form does when the key field is left untouched.
	require.NoError(t, store.Save(store.Effective().Masked()))

	assert.Equal(t, "realsecretapikey1234", store.Stored().Radarr.APIKey,
		"a masked key must never overwrite the stored plaintext")
	assert.Equal(t, "env-sonarr-key", store.Effective().Sonarr.APIKey,
		"a masked env-sourced key keeps falling back to the env default")

	// A new plaintext key still replaces the stored one.
	in = store.Stored()
	in.Radarr.APIKey = "rotatedapikey9999"
	require.NoError(t, store.Save(in))
	assert.Equal(t, "rotatedapikey9999", store.Stored().Radarr.APIKey)
}

func TestStore_MalformedFileFallsBackToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	store, err := NewStore(path, testDefaults, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, DefaultPollIntervalSeconds, store.Stored().PollIntervalSeconds)
}

func TestStore_SaveNormalizes(t *testing.T) {
	store := newTestStore(t)

	in := store.Stored()
	in.PollIntervalSeconds = 5 // below floor
	in.Radarr.URL = "  http://radarr:7878  "
	in.Radarr.StopMode = ""
	require.NoError(t, store.Save(in))

	got := store.Stored()
	assert.Equal(t, MinPollIntervalSeconds, got.PollIntervalSeconds)
	assert.Equal(t, "http://radarr:7878", got.Radarr.URL)
	assert.Equal(t, StopModeCutoff, got.Radarr.StopMode)
}

func TestStore_SaveWritesValidJSONDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	store, err := NewStore(path, testDefaults, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, store.Save(store.Stored()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc Settings
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, DefaultPollIntervalSeconds, doc.PollIntervalSeconds)
}

func TestSettings_MaskedKeepsLastFour(t *testing.T) {
	s := Default()
	s.Radarr.APIKey = "abcdef123456"
	s.Sonarr.APIKey = "xy"

	masked := s.Masked()
	assert.Equal(t, "********3456", masked.Radarr.APIKey)
	assert.Equal(t, "**", masked.Sonarr.APIKey)
	assert.Equal(t, "abcdef123456", s.Radarr.APIKey, "masking must not mutate the source")
}

func TestSettings_IntervalFloor(t *testing.T) {
	s := Default()
	s.PollIntervalSeconds = 1
	assert.Equal(t, int64(MinPollIntervalSeconds), int64(s.Interval().Seconds()))
}

func TestServiceSettings_Configured(t *testing.T) {
	assert.False(t, ServiceSettings{}.Configured())
	assert.False(t, ServiceSettings{URL: "http://radarr:7878"}.Configured())
	assert.True(t, ServiceSettings{URL: "http://radarr:7878", APIKey: "k"}.Configured())
}
