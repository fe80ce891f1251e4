package settings

import (
	"strings"
	"time"

	"github.com/haltarr/haltarr/internal/arr"
)

const (
	// DefaultPollIntervalSeconds is the interval between poll cycles.
	DefaultPollIntervalSeconds = 300
	// MinPollIntervalSeconds is the floor enforced on saved intervals.
	MinPollIntervalSeconds = 30

	// StopModeCutoff stops upgrade tracking once the quality text matches.
	StopModeCutoff = "cutoff"
)

// ServiceSettings holds the per-service configuration.
type ServiceSettings struct {
	URL         string `json:"url"`
	APIKey      string `json:"apiKey"`
	Enabled     bool   `json:"enabled"`
	ProfileID   *int64 `json:"profileId,omitempty"`
	ProfileName string `json:"profileName,omitempty"`
	StopQuality string `json:"stopQuality"`
	StopMode    string `json:"stopMode"`
}

// Configured reports whether the service has enough configuration to be
// polled at all.
func (s ServiceSettings) Configured() bool {
	return s.URL != "" && s.APIKey != ""
}

// Settings is the full runtime-tunable configuration document. It is
// replaced wholesale on save.
type Settings struct {
	Enabled             bool            `json:"enabled"`
	PollIntervalSeconds int             `json:"pollIntervalSeconds"`
	Radarr              ServiceSettings `json:"radarr"`
	Sonarr              ServiceSettings `json:"sonarr"`
}

// Default returns the settings used when nothing has been persisted.
func Default() Settings {
	return Settings{
		Enabled:             true,
		PollIntervalSeconds: DefaultPollIntervalSeconds,
		Radarr:              ServiceSettings{Enabled: true, StopMode: StopModeCutoff},
		Sonarr:              ServiceSettings{Enabled: true, StopMode: StopModeCutoff},
	}
}

// Service returns the settings block for the named service.
func (s Settings) Service(service arr.Service) ServiceSettings {
	if service == arr.ServiceSonarr {
		return s.Sonarr
	}
	return s.Radarr
}

// Interval returns the poll interval with the floor applied.
func (s Settings) Interval() time.Duration {
	secs := s.PollIntervalSeconds
	if secs < MinPollIntervalSeconds {
		secs = MinPollIntervalSeconds
	}
	return time.Duration(secs) * time.Second
}

// Masked returns a copy safe to expose in the read model: API keys keep
// only their last four characters.
func (s Settings) Masked() Settings {
	out := s
	out.Radarr.APIKey = maskKey(s.Radarr.APIKey)
	out.Sonarr.APIKey = maskKey(s.Sonarr.APIKey)
	return out
}

func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}

// keyIsMasked reports whether key is a masked form produced by maskKey.
// Real arr API keys are hex and never contain the mask character.
func keyIsMasked(key string) bool {
	return strings.Contains(key, "*")
}

func (s *Settings) normalize() {
	if s.PollIntervalSeconds < MinPollIntervalSeconds {
		s.PollIntervalSeconds = MinPollIntervalSeconds
	}

	for _, svc := range []*ServiceSettings{&s.Radarr, &s.Sonarr} {
		svc.URL = strings.TrimSpace(svc.URL)
		svc.APIKey = strings.TrimSpace(svc.APIKey)
		svc.StopQuality = strings.TrimSpace(svc.StopQuality)
		svc.StopMode = strings.TrimSpace(svc.StopMode)
		if svc.StopMode == "" {
			svc.StopMode = StopModeCutoff
		}
	}
}
