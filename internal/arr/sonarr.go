package arr

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// SonarrClient talks to a Sonarr server. Inventory granularity is the
// episode; the owning series is read for context but never mutated.
type SonarrClient struct {
	*client
}

// NewSonarr creates a Sonarr client.
func NewSonarr(cfg ClientConfig) *SonarrClient {
	return &SonarrClient{client: newClient(ServiceSonarr, cfg)}
}

func (c *SonarrClient) Service() Service {
	return ServiceSonarr
}

type sonarrSeries struct {
	ID               int64  `json:"id"`
	Title            string `json:"title"`
	Monitored        bool   `json:"monitored"`
	QualityProfileID int64  `json:"qualityProfileId"`
}

type sonarrEpisode struct {
	ID            int64  `json:"id"`
	SeriesID      int64  `json:"seriesId"`
	EpisodeFileID int64  `json:"episodeFileId"`
	SeasonNumber  int64  `json:"seasonNumber"`
	EpisodeNumber int64  `json:"episodeNumber"`
	Title         string `json:"title"`
	Monitored     bool   `json:"monitored"`
	HasFile       bool   `json:"hasFile"`
}

type sonarrEpisodeFile struct {
	ID      int64            `json:"id"`
	Quality *qualityRevision `json:"quality"`
}

// FetchInventory walks every series and returns its episodes, normalized.
// The episode file quality is resolved through the per-series episodefile
// listing; episodes without a file carry an empty quality label.
func (c *SonarrClient) FetchInventory(ctx context.Context) ([]Item, error) {
	var series []sonarrSeries
	if err := c.getJSON(ctx, "/series", &series); err != nil {
		return nil, err
	}

	var items []Item
	for _, s := range series {
		episodes, files, err := c.fetchSeriesDetail(ctx, s.ID)
		if err != nil {
			return nil, err
		}

		fileByID := make(map[int64]*sonarrEpisodeFile, len(files))
		for i := range files {
			fileByID[files[i].ID] = &files[i]
		}

		for _, raw := range episodes {
			var ep sonarrEpisode
			if err := json.Unmarshal(raw, &ep); err != nil {
				return nil, wrapError(ServiceSonarr, "inventory", ErrProtocol, "malformed episode resource: "+err.Error())
			}

			item := Item{
				Service:   ServiceSonarr,
				ID:        ep.ID,
				SeriesID:  s.ID,
				Title:     episodeLabel(s.Title, ep.SeasonNumber, ep.EpisodeNumber, ep.Title),
				Monitored: ep.Monitored,
				HasFile:   ep.HasFile || ep.EpisodeFileID > 0,
				ProfileID: s.QualityProfileID,
				Raw:       raw,
			}
			if file, ok := fileByID[ep.EpisodeFileID]; ok {
				item.QualityName = file.Quality.name()
			}
			items = append(items, item)
		}
	}

	c.logger.Debug().
		Int("series", len(series)).
		Int("episodes", len(items)).
		Msg("fetched episode inventory")
	return items, nil
}

func (c *SonarrClient) fetchSeriesDetail(ctx context.Context, seriesID int64) ([]json.RawMessage, []sonarrEpisodeFile, error) {
	id := strconv.FormatInt(seriesID, 10)

	var episodes []json.RawMessage
	if err := c.getJSON(ctx, "/episode?seriesId="+id, &episodes); err != nil {
		return nil, nil, err
	}

	var files []sonarrEpisodeFile
	if err := c.getJSON(ctx, "/episodefile?seriesId="+id, &files); err != nil {
		return nil, nil, err
	}

	return episodes, files, nil
}

// FetchQualityProfiles returns Sonarr's configured quality profiles.
func (c *SonarrClient) FetchQualityProfiles(ctx context.Context) ([]QualityProfile, error) {
	return c.fetchQualityProfiles(ctx)
}

// SetUnmonitored flips the episode's monitored flag to false. Only the
// episode resource is written; the series container is never unmonitored.
func (c *SonarrClient) SetUnmonitored(ctx context.Context, item Item) error {
	if len(item.Raw) == 0 {
		return wrapError(ServiceSonarr, "unmonitor", ErrProtocol, "item carries no source document")
	}

	payload, err := unmonitorPayload(item.Raw)
	if err != nil {
		return wrapError(ServiceSonarr, "unmonitor", ErrProtocol, err.Error())
	}

	if err := c.putJSON(ctx, "/episode/"+strconv.FormatInt(item.ID, 10), payload); err != nil {
		return err
	}

	c.logger.Info().
		Int64("seriesID", item.SeriesID).
		Int64("episodeID", item.ID).
		Str("title", item.Title).
		Msg("unmonitored episode")
	return nil
}

// TestConnection probes Sonarr's system status endpoint.
func (c *SonarrClient) TestConnection(ctx context.Context) ConnectionStatus {
	return c.testConnection(ctx)
}

var _ Client = (*SonarrClient)(nil)

// episodeLabel formats the human-readable identity of an episode for
// change-log entries.
func episodeLabel(seriesTitle string, season, episode int64, title string) string {
	label := fmt.Sprintf("S%02dE%02d", season, episode)
	if title != "" {
		label += " - " + title
	}
	if seriesTitle != "" {
		label = seriesTitle + " " + label
	}
	return label
}
