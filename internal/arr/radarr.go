package arr

import (
	"context"
	"encoding/json"
	"strconv"
)

// RadarrClient talks to a Radarr server. Inventory granularity is the
// movie.
type RadarrClient struct {
	*client
}

// NewRadarr creates a Radarr client.
func NewRadarr(cfg ClientConfig) *RadarrClient {
	return &RadarrClient{client: newClient(ServiceRadarr, cfg)}
}

func (c *RadarrClient) Service() Service {
	return ServiceRadarr
}

// radarrMovie is the subset of the movie resource the engine cares about.
type radarrMovie struct {
	ID               int64  `json:"id"`
	Title            string `json:"title"`
	Monitored        bool   `json:"monitored"`
	HasFile          bool   `json:"hasFile"`
	QualityProfileID int64  `json:"qualityProfileId"`
	MovieFile        *struct {
		Quality *qualityRevision `json:"quality"`
	} `json:"movieFile"`
}

// qualityRevision mirrors the nested quality envelope both remotes use on
// file resources.
type qualityRevision struct {
	Quality *struct {
		Name string `json:"name"`
	} `json:"quality"`
}

func (q *qualityRevision) name() string {
	if q == nil || q.Quality == nil {
		return ""
	}
	return q.Quality.Name
}

// FetchInventory returns every movie in the Radarr library, normalized.
func (c *RadarrClient) FetchInventory(ctx context.Context) ([]Item, error) {
	var rawMovies []json.RawMessage
	if err := c.getJSON(ctx, "/movie", &rawMovies); err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(rawMovies))
	for _, raw := range rawMovies {
		var movie radarrMovie
		if err := json.Unmarshal(raw, &movie); err != nil {
			return nil, wrapError(ServiceRadarr, "inventory", ErrProtocol, "malformed movie resource: "+err.Error())
		}

		item := Item{
			Service:   ServiceRadarr,
			ID:        movie.ID,
			Title:     movie.Title,
			Monitored: movie.Monitored,
			HasFile:   movie.HasFile,
			ProfileID: movie.QualityProfileID,
			Raw:       raw,
		}
		if movie.MovieFile != nil {
			item.QualityName = movie.MovieFile.Quality.name()
		}
		items = append(items, item)
	}

	c.logger.Debug().Int("count", len(items)).Msg("fetched movie inventory")
	return items, nil
}

// FetchQualityProfiles returns Radarr's configured quality profiles.
func (c *RadarrClient) FetchQualityProfiles(ctx context.Context) ([]QualityProfile, error) {
	return c.fetchQualityProfiles(ctx)
}

// SetUnmonitored flips the movie's monitored flag to false. A movie that
// is already unmonitored PUTs back unchanged, which the remote treats as
// a no-op.
func (c *RadarrClient) SetUnmonitored(ctx context.Context, item Item) error {
	if len(item.Raw) == 0 {
		return wrapError(ServiceRadarr, "unmonitor", ErrProtocol, "item carries no source document")
	}

	payload, err := unmonitorPayload(item.Raw)
	if err != nil {
		return wrapError(ServiceRadarr, "unmonitor", ErrProtocol, err.Error())
	}

	if err := c.putJSON(ctx, "/movie/"+strconv.FormatInt(item.ID, 10), payload); err != nil {
		return err
	}

	c.logger.Info().
		Int64("movieID", item.ID).
		Str("title", item.Title).
		Msg("unmonitored movie")
	return nil
}

// TestConnection probes Radarr's system status endpoint.
func (c *RadarrClient) TestConnection(ctx context.Context) ConnectionStatus {
	return c.testConnection(ctx)
}

var _ Client = (*RadarrClient)(nil)
