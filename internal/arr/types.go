package arr

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Service identifies one of the two supported remotes.
type Service string

const (
	ServiceRadarr Service = "radarr"
	ServiceSonarr Service = "sonarr"
)

// Services lists the supported remotes in processing order.
var Services = []Service{ServiceRadarr, ServiceSonarr}

// Item is the normalized representation of one unit under consideration:
// a movie for Radarr, an episode for Sonarr. It is rebuilt fresh from the
// remote on every cycle and never persisted.
type Item struct {
	Service     Service
	ID          int64
	SeriesID    int64 // owning series, episode items only
	Title       string
	Monitored   bool
	HasFile     bool
	QualityName string // current file's quality label, empty without a file
	ProfileID   int64

	// Raw carries the resource exactly as the remote returned it, so an
	// unmonitor write can PUT the full document back with only the
	// monitored flag changed (the v3 API replaces the whole resource).
	Raw json.RawMessage
}

// Key returns the item's stable identity scoped to its service.
func (i Item) Key() string {
	if i.Service == ServiceSonarr {
		return fmt.Sprintf("series/%d/episode/%d", i.SeriesID, i.ID)
	}
	return fmt.Sprintf("movie/%d", i.ID)
}

// QualityProfile is a quality profile as configured on the remote. Used
// only to populate UI choices, never for the matching decision.
type QualityProfile struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ConnectionStatus is the outcome of a connectivity probe. It is always a
// resolved value, never an error.
type ConnectionStatus struct {
	Connected bool       `json:"connected"`
	Message   string     `json:"message"`
	Version   string     `json:"version,omitempty"`
	CheckedAt *time.Time `json:"checkedAt,omitempty"`
}

// Client is the read/write surface of one remote service. Implementations
// are stateless per call.
type Client interface {
	Service() Service
	FetchInventory(ctx context.Context) ([]Item, error)
	FetchQualityProfiles(ctx context.Context) ([]QualityProfile, error)
	SetUnmonitored(ctx context.Context, item Item) error
	TestConnection(ctx context.Context) ConnectionStatus
}
