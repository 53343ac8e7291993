package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/michaeldiestelberg/podcast-insights/internal/config"
	"github.com/michaeldiestelberg/podcast-insights/internal/ledger"
	"github.com/michaeldiestelberg/podcast-insights/internal/logging"
	"github.com/michaeldiestelberg/podcast-insights/internal/notifications"
	"github.com/michaeldiestelberg/podcast-insights/internal/services"
	"github.com/michaeldiestelberg/podcast-insights/internal/stage"
)

// eventBuffer sizes the run event channel. Sends always block rather than
// drop so the Seq numbering stays gap free.
const eventBuffer = 64

// Manager coordinates episode processing runs. At most one run is active per
// process at a time.
type Manager struct {
	cfg      *config.Config
	store    *ledger.Store
	runner   *stage.Runner
	notifier notifications.Service
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
}

// ProcessRequest selects what a run works on.
type ProcessRequest struct {
	FeedID int64
	// EpisodeIDs limits the run to specific episodes. When empty, every
	// pending episode of the feed is processed.
	EpisodeIDs []int64
	Mode       Mode
}

// Summary aggregates the outcome of a finished run.
type Summary struct {
	Processed int
	Skipped   int
	Failed    int
	Duration  time.Duration
}

// Run is a handle on an in-flight processing run.
type Run struct {
	ID     string
	Events <-chan Event

	done    chan struct{}
	summary Summary
	err     error
}

// Wait blocks until the run finishes and returns its summary. The events
// channel must be drained by the caller for the run to make progress.
func (r *Run) Wait() (Summary, error) {
	<-r.done
	return r.summary, r.err
}

// NewManager constructs a workflow manager with the configured notifier.
func NewManager(cfg *config.Config, store *ledger.Store, logger *slog.Logger) *Manager {
	return NewManagerWithNotifier(cfg, store, logger, notifications.NewService(cfg))
}

// NewManagerWithNotifier constructs a workflow manager with a custom notifier (used in tests).
func NewManagerWithNotifier(cfg *config.Config, store *ledger.Store, logger *slog.Logger, notifier notifications.Service) *Manager {
	return &Manager{
		cfg:      cfg,
		store:    store,
		runner:   stage.NewRunner(cfg, store, logger),
		notifier: notifier,
		logger:   logging.NewComponentLogger(logger, "workflow"),
	}
}

// Process starts a run. It fails fast with a busy error while another run is
// active. A stage failure rolls that episode back and the run continues with
// the next episode; cancellation stops between stages, never mid-transition.
func (m *Manager) Process(ctx context.Context, req ProcessRequest) (*Run, error) {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return nil, services.Wrap(services.ErrBusy, "workflow", "start run", "", nil)
	}
	m.running = true
	m.mu.Unlock()

	episodes, err := m.selectEpisodes(ctx, req)
	if err != nil {
		m.release()
		return nil, err
	}

	events := make(chan Event, eventBuffer)
	run := &Run{
		ID:     uuid.NewString(),
		Events: events,
		done:   make(chan struct{}),
	}

	go m.execute(ctx, run, events, episodes, req.Mode)
	return run, nil
}

func (m *Manager) release() {
	m.mu.Lock()
	m.running = false
	m.mu.Unlock()
}

func (m *Manager) selectEpisodes(ctx context.Context, req ProcessRequest) ([]*ledger.Episode, error) {
	if len(req.EpisodeIDs) == 0 {
		return m.store.PendingEpisodes(ctx, req.FeedID, req.Mode.Terminal())
	}
	episodes := make([]*ledger.Episode, 0, len(req.EpisodeIDs))
	for _, id := range req.EpisodeIDs {
		ep, err := m.store.GetEpisode(ctx, id)
		if err != nil {
			return nil, err
		}
		if ep == nil {
			return nil, services.Wrap(services.ErrInvalidSelection, "workflow", "select episodes",
				"episode no longer exists", nil)
		}
		episodes = append(episodes, ep)
	}
	return episodes, nil
}

func (m *Manager) execute(ctx context.Context, run *Run, events chan<- Event, episodes []*ledger.Episode, mode Mode) {
	runCtx := services.WithRunID(ctx, run.ID)
	logger := logging.WithContext(runCtx, m.logger)
	start := time.Now()

	seq := 0
	emit := func(eventType EventType, ep *ledger.Episode, st stage.Stage, err error) {
		seq++
		event := Event{
			Seq:   seq,
			RunID: run.ID,
			Type:  eventType,
			Err:   err,
		}
		if ep != nil {
			event.EpisodeID = ep.ID
			event.EpisodeTitle = ep.Title
		}
		if st != "" {
			event.Stage = string(st)
		}
		events <- event
	}

	var summary Summary
	var runErr error

	for _, ep := range episodes {
		if err := runCtx.Err(); err != nil {
			runErr = err
			break
		}
		// Re-fetch so this run sees transitions from earlier heals.
		current, err := m.store.GetEpisode(runCtx, ep.ID)
		if err != nil {
			runErr = err
			break
		}
		if current == nil {
			continue
		}

		outcome, fatal := m.processEpisode(runCtx, current, mode, emit)
		switch outcome {
		case episodeCompleted:
			summary.Processed++
		case episodeSkipped:
			summary.Skipped++
		case episodeFailed:
			summary.Failed++
		case episodeCancelled:
			runErr = runCtx.Err()
		case episodeAborted:
			summary.Failed++
			runErr = fatal
		}
		if outcome == episodeCancelled || outcome == episodeAborted {
			break
		}
	}

	summary.Duration = time.Since(start)
	logger.Info("run finished",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Int("processed", summary.Processed),
		logging.Int("skipped", summary.Skipped),
		logging.Int("failed", summary.Failed),
		logging.Duration("duration", summary.Duration))

	if summary.Processed > 0 || summary.Failed > 0 {
		if err := m.notifier.NotifyRunCompleted(runCtx, summary.Processed, summary.Failed, summary.Duration); err != nil {
			logger.Debug("run notification failed", logging.Error(err))
		}
	}

	run.summary = summary
	run.err = runErr
	close(events)
	m.release()
	close(run.done)
}

type episodeOutcome int

const (
	episodeCompleted episodeOutcome = iota
	episodeSkipped
	episodeFailed
	episodeCancelled
	episodeAborted
)

// processEpisode drives one episode through the mode's stages. A stage failure
// marks the episode and lets the batch continue; ledger corruption aborts the
// whole run and is returned as the fatal error.
func (m *Manager) processEpisode(ctx context.Context, ep *ledger.Episode, mode Mode, emit func(EventType, *ledger.Episode, stage.Stage, error)) (episodeOutcome, error) {
	worked := false
	for _, st := range mode.Stages() {
		if ctx.Err() != nil {
			return episodeCancelled, nil
		}
		emit(EventStageStarted, ep, st, nil)
		updated, skipped, err := m.runner.Run(ctx, ep, st)
		if err != nil {
			emit(EventStageFailed, updated, st, err)
			emit(EventEpisodeFailed, updated, "", err)
			if notifyErr := m.notifyEpisodeFailed(ctx, updated, err); notifyErr != nil {
				logging.WithContext(ctx, m.logger).Debug("failure notification failed", logging.Error(notifyErr))
			}
			if errors.Is(err, services.ErrLedgerCorrupt) {
				return episodeAborted, err
			}
			return episodeFailed, nil
		}
		ep = updated
		if skipped {
			emit(EventStageSkipped, ep, st, nil)
		} else {
			worked = true
			emit(EventStageCompleted, ep, st, nil)
		}
	}

	if !worked {
		emit(EventEpisodeSkipped, ep, "", nil)
		return episodeSkipped, nil
	}

	emit(EventEpisodeCompleted, ep, "", nil)
	if mode.Terminal() == ledger.StatusDone {
		if err := m.notifyEpisodeCompleted(ctx, ep); err != nil {
			logging.WithContext(ctx, m.logger).Debug("completion notification failed", logging.Error(err))
		}
	}
	return episodeCompleted, nil
}

func (m *Manager) notifyEpisodeCompleted(ctx context.Context, ep *ledger.Episode) error {
	feedName := m.feedName(ctx, ep.FeedID)
	return m.notifier.NotifyEpisodeCompleted(ctx, feedName, ep.Title)
}

func (m *Manager) notifyEpisodeFailed(ctx context.Context, ep *ledger.Episode, cause error) error {
	if ep == nil {
		return nil
	}
	feedName := m.feedName(ctx, ep.FeedID)
	return m.notifier.NotifyEpisodeFailed(ctx, feedName, ep.Title, cause)
}

func (m *Manager) feedName(ctx context.Context, feedID int64) string {
	feed, err := m.store.FeedByID(ctx, feedID)
	if err != nil || feed == nil {
		return ""
	}
	return feed.Name
}
