// Package poller drives the sync cycle: fetch each enabled service's
// inventory, decide which items have reached their configured quality
// threshold, unmonitor them exactly once, and record the outcome.
package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/haltarr/haltarr/internal/arr"
	"github.com/haltarr/haltarr/internal/changelog"
	"github.com/haltarr/haltarr/internal/history"
	"github.com/haltarr/haltarr/internal/matcher"
	"github.com/haltarr/haltarr/internal/settings"
	"github.com/haltarr/haltarr/internal/tracker"
	"github.com/haltarr/haltarr/internal/websocket"
)

// recentChangesLimit bounds the change-log slice in the status payload.
const recentChangesLimit = 200

// ClientFactory builds a remote client from the per-service settings.
// Tests substitute fakes here.
type ClientFactory func(service arr.Service, cfg settings.ServiceSettings) arr.Client

// DefaultClientFactory builds real Radarr/Sonarr clients.
func DefaultClientFactory(logger zerolog.Logger) ClientFactory {
	return func(service arr.Service, cfg settings.ServiceSettings) arr.Client {
		clientCfg := arr.ClientConfig{
			URL:    cfg.URL,
			APIKey: cfg.APIKey,
			Logger: logger,
		}
		if service == arr.ServiceSonarr {
			return arr.NewSonarr(clientCfg)
		}
		return arr.NewRadarr(clientCfg)
	}
}

// Service orchestrates poll cycles and owns the process-scoped run state.
type Service struct {
	settings  *settings.Store
	changeLog *changelog.Store
	tracker   *tracker.Tracker
	history   *history.History
	hub       *websocket.Hub
	clients   ClientFactory
	logger    zerolog.Logger

	running atomic.Bool

	mu            sync.RWMutex
	lastRun       *time.Time
	lastError     string
	lastActioned  map[arr.Service]int
	serviceStatus map[arr.Service]arr.ConnectionStatus
}

// NewService creates the poll engine.
func NewService(
	settingsStore *settings.Store,
	changeLog *changelog.Store,
	actionTracker *tracker.Tracker,
	runHistory *history.History,
	hub *websocket.Hub,
	clients ClientFactory,
	logger zerolog.Logger,
) *Service {
	return &Service{
		settings:      settingsStore,
		changeLog:     changeLog,
		tracker:       actionTracker,
		history:       runHistory,
		hub:           hub,
		clients:       clients,
		logger:        logger.With().Str("component", "poller").Logger(),
		lastActioned:  make(map[arr.Service]int),
		serviceStatus: make(map[arr.Service]arr.ConnectionStatus),
	}
}

// IsRunning returns whether a cycle is currently in flight.
func (s *Service) IsRunning() bool {
	return s.running.Load()
}

// RunOnce executes a full poll cycle across both services. Overlapping
// invocations collapse into one: a second caller returns immediately.
// One service's failure never aborts the other's pass.
func (s *Service) RunOnce(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	defer s.running.Store(false)

	start := time.Now()
	s.logger.Info().Msg("poll cycle starting")

	// One settings snapshot per cycle: a save landing mid-cycle applies
	// from the next cycle on.
	cfg := s.settings.Effective()

	s.broadcast(EventCycleStarted, StartedEvent{Services: arr.Services})

	summaries := make([]history.RunSummary, 0, len(arr.Services))
	actioned := make(map[arr.Service]int, len(arr.Services))
	lastError := ""

	for _, service := range arr.Services {
		summary := s.runService(ctx, service, cfg)
		s.history.Append(summary)
		summaries = append(summaries, summary)
		actioned[service] = summary.Actioned
		if summary.Error != "" {
			lastError = summary.Error
		}

		if ctx.Err() != nil {
			break
		}
	}

	now := time.Now()
	s.mu.Lock()
	s.lastRun = &now
	s.lastError = lastError
	s.lastActioned = actioned
	s.mu.Unlock()

	elapsed := int(time.Since(start).Milliseconds())
	s.broadcast(EventCycleCompleted, CompletedEvent{Summaries: summaries, ElapsedMs: elapsed})

	s.logger.Info().
		Int("elapsedMs", elapsed).
		Int("radarrActioned", actioned[arr.ServiceRadarr]).
		Int("sonarrActioned", actioned[arr.ServiceSonarr]).
		Msg("poll cycle completed")
}

// runService executes the fetch → match → act → record pass for one
// service and returns its summary.
func (s *Service) runService(ctx context.Context, service arr.Service, cfg settings.Settings) history.RunSummary {
	summary := history.RunSummary{
		ID:        uuid.NewString(),
		Service:   service,
		StartedAt: time.Now().UTC(),
	}

	svcCfg := cfg.Service(service)
	if !cfg.Enabled || !svcCfg.Enabled || !svcCfg.Configured() {
		summary.Skipped = true
		summary.FinishedAt = time.Now().UTC()
		s.logger.Debug().Str("service", string(service)).Msg("service skipped")
		return summary
	}

	client := s.clients(service, svcCfg)

	items, err := client.FetchInventory(ctx)
	if err != nil {
		summary.Error = err.Error()
		summary.FinishedAt = time.Now().UTC()
		s.setServiceStatus(service, arr.ConnectionStatus{Message: err.Error(), CheckedAt: timePtr(time.Now().UTC())})
		s.logger.Warn().Err(err).Str("service", string(service)).Msg("inventory fetch failed")
		return summary
	}

	s.setServiceStatus(service, arr.ConnectionStatus{
		Connected: true,
		Message:   "Connected",
		CheckedAt: timePtr(time.Now().UTC()),
	})

	for i := range items {
		// Cancellation is honored between items, never mid-item.
		if ctx.Err() != nil {
			summary.Error = ctx.Err().Error()
			break
		}

		item := items[i]
		summary.Scanned++

		decision := matcher.Decide(item, svcCfg.StopQuality)
		if !decision.Actionable {
			continue
		}

		if !s.tracker.ShouldAct(service, item.Key()) {
			s.logger.Debug().
				Str("service", string(service)).
				Str("item", item.Key()).
				Msg("already actioned, skipping")
			continue
		}

		if err := client.SetUnmonitored(ctx, item); err != nil {
			// Not recorded as acted, so the next cycle retries it.
			summary.Errored++
			summary.Error = err.Error()
			s.logger.Warn().Err(err).
				Str("service", string(service)).
				Str("item", item.Key()).
				Msg("unmonitor failed")
			continue
		}

		s.tracker.RecordActed(service, item.Key())

		entry := changelog.Entry{
			Timestamp: time.Now().UTC(),
			Service:   service,
			ItemKey:   item.Key(),
			ItemID:    item.ID,
			SeriesID:  item.SeriesID,
			Title:     item.Title,
			Quality:   item.QualityName,
			Action:    actionFor(service),
		}
		if err := s.changeLog.Append(entry); err != nil {
			// The remote write already succeeded; a lost ledger line is
			// an audit gap, not a correctness problem, and must not stop
			// the cycle.
			s.logger.Error().Err(err).
				Str("service", string(service)).
				Str("item", item.Key()).
				Msg("failed to append change log entry")
		}

		s.broadcast(EventActionTaken, ActionEvent{Entry: entry})
		summary.Actioned++
	}

	summary.FinishedAt = time.Now().UTC()

	s.logger.Info().
		Str("service", string(service)).
		Int("scanned", summary.Scanned).
		Int("actioned", summary.Actioned).
		Int("errored", summary.Errored).
		Msg("service pass completed")

	return summary
}

// TestConnection probes one service on demand and records the outcome in
// the status read model.
func (s *Service) TestConnection(ctx context.Context, service arr.Service) arr.ConnectionStatus {
	svcCfg := s.settings.Effective().Service(service)
	if !svcCfg.Configured() {
		status := arr.ConnectionStatus{
			Message:   "Not configured",
			CheckedAt: timePtr(time.Now().UTC()),
		}
		s.setServiceStatus(service, status)
		return status
	}

	status := s.clients(service, svcCfg).TestConnection(ctx)
	s.setServiceStatus(service, status)
	return status
}

// FetchQualityProfiles lists one service's quality profiles for the
// settings form. It does not feed the matching decision.
func (s *Service) FetchQualityProfiles(ctx context.Context, service arr.Service) ([]arr.QualityProfile, error) {
	svcCfg := s.settings.Effective().Service(service)
	if !svcCfg.Configured() {
		return nil, arr.ErrNotConfigured
	}
	return s.clients(service, svcCfg).FetchQualityProfiles(ctx)
}

// ServiceView is the per-service slice of the status read model.
type ServiceView struct {
	Connectivity arr.ConnectionStatus `json:"connectivity"`
	LastRun      *history.RunSummary  `json:"lastRun,omitempty"`
	LastActioned int                  `json:"lastActioned"`
}

// Status is the read model for the UI. It is assembled purely from
// already-recorded state and never blocks on a live remote call.
type Status struct {
	Running       bool                        `json:"running"`
	LastRun       *time.Time                  `json:"lastRun,omitempty"`
	LastError     string                      `json:"lastError,omitempty"`
	Services      map[arr.Service]ServiceView `json:"services"`
	RecentRuns    []history.RunSummary        `json:"recentRuns"`
	RecentChanges []changelog.Entry           `json:"recentChanges"`
	Settings      settings.Settings           `json:"settings"`
}

// Status assembles the status read model.
func (s *Service) Status() (Status, error) {
	changes, err := s.changeLog.Recent(recentChangesLimit)
	if err != nil {
		return Status{}, err
	}

	s.mu.RLock()
	status := Status{
		Running:       s.running.Load(),
		LastRun:       s.lastRun,
		LastError:     s.lastError,
		Services:      make(map[arr.Service]ServiceView, len(arr.Services)),
		RecentChanges: changes,
		Settings:      s.settings.Effective().Masked(),
	}
	for _, service := range arr.Services {
		view := ServiceView{
			Connectivity: s.serviceStatus[service],
			LastActioned: s.lastActioned[service],
		}
		if last, ok := s.history.Last(service); ok {
			view.LastRun = &last
		}
		status.Services[service] = view
	}
	s.mu.RUnlock()

	status.RecentRuns = s.history.List()
	return status, nil
}

// ClearHistory empties the run history. The change log and remote state
// are untouched.
func (s *Service) ClearHistory() {
	s.history.Clear()
	s.logger.Info().Msg("run history cleared")
}

// ClearChangeLog truncates the durable change log and resets the action
// tracker so the two stay consistent. Previously actioned items remain
// unmonitored on the remote, which keeps them non-actionable.
func (s *Service) ClearChangeLog() error {
	if err := s.changeLog.Clear(); err != nil {
		return err
	}
	s.tracker.Reset()
	return nil
}

func (s *Service) setServiceStatus(service arr.Service, status arr.ConnectionStatus) {
	s.mu.Lock()
	s.serviceStatus[service] = status
	s.mu.Unlock()
}

func (s *Service) broadcast(eventType string, payload interface{}) {
	// Nothing listening, skip the encode.
	if s.hub == nil || s.hub.ClientCount() == 0 {
		return
	}
	if err := s.hub.Broadcast(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("failed to broadcast event")
	}
}

func actionFor(service arr.Service) string {
	if service == arr.ServiceSonarr {
		return changelog.ActionUnmonitorEpisode
	}
	return changelog.ActionUnmonitorMovie
}

func timePtr(t time.Time) *time.Time {
	return &t
}
