package stage

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/michaeldiestelberg/podcast-insights/internal/config"
	"github.com/michaeldiestelberg/podcast-insights/internal/fileutil"
	"github.com/michaeldiestelberg/podcast-insights/internal/ledger"
	"github.com/michaeldiestelberg/podcast-insights/internal/logging"
	"github.com/michaeldiestelberg/podcast-insights/internal/services"
)

// Runner executes pipeline stages against episodes, persisting status
// transitions around every attempt.
type Runner struct {
	cfg    *config.Config
	store  *ledger.Store
	logger *slog.Logger
	client *http.Client

	// runCommand is the execution seam for tests.
	runCommand func(ctx context.Context, command string) ([]byte, error)
}

// NewRunner builds a stage runner.
func NewRunner(cfg *config.Config, store *ledger.Store, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:    cfg,
		store:  store,
		logger: logging.NewComponentLogger(logger, "stage"),
		client: &http.Client{Timeout: 30 * time.Minute},
		runCommand: func(ctx context.Context, command string) ([]byte, error) {
			return exec.CommandContext(ctx, "sh", "-c", command).CombinedOutput()
		},
	}
}

// Run executes one stage for one episode. When the stage's artifact already
// exists the work is skipped; a ledger that lags behind the artifact is healed
// forward instead of redoing the work. The returned episode reflects the
// final persisted state.
func (r *Runner) Run(ctx context.Context, ep *ledger.Episode, st Stage) (*ledger.Episode, bool, error) {
	stageCtx := logging.WithStage(logging.WithEpisodeID(ctx, ep.ID), string(st))
	logger := logging.WithContext(stageCtx, r.logger)

	artifact := st.ArtifactPath(ep)
	if fileutil.NonEmpty(artifact, r.cfg.Runtime.MinArtifactBytes) {
		if ledger.Rank(ep.Status) < ledger.Rank(st.Done()) {
			healed, err := r.store.SetStatus(stageCtx, ep.ID, st.Done())
			if err != nil {
				return ep, false, err
			}
			logger.Info("healed from existing artifact",
				logging.String("artifact", artifact),
				logging.String("status", string(healed.Status)))
			return healed, true, nil
		}
		return ep, true, nil
	}

	ep, err := r.store.SetStatus(stageCtx, ep.ID, st.Processing())
	if err != nil {
		return ep, false, err
	}

	if err := os.MkdirAll(ep.EpisodeDir, 0o755); err != nil {
		return r.fail(stageCtx, logger, ep, fmt.Errorf("create episode directory: %w", err), 1)
	}

	maxAttempts := r.cfg.Runtime.MaxRetries
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	backoff := time.Duration(r.cfg.Runtime.RetryBackoffSeconds) * time.Second

	var attemptErr error
	attempts := 0
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attempts = attempt
		attemptErr = r.execute(stageCtx, ep, st)
		if attemptErr == nil && !fileutil.NonEmpty(artifact, r.cfg.Runtime.MinArtifactBytes) {
			attemptErr = services.Wrap(services.ErrVerification, string(st), "verify artifact",
				fmt.Sprintf("%s missing or below %d bytes", artifact, r.cfg.Runtime.MinArtifactBytes), nil)
		}
		if attemptErr == nil {
			break
		}
		if !services.Retryable(attemptErr) || attempt == maxAttempts {
			break
		}
		logger.Warn("stage attempt failed",
			logging.Int(logging.FieldAttempt, attempt),
			logging.Error(attemptErr))
		select {
		case <-time.After(backoff * time.Duration(attempt)):
		case <-ctx.Done():
			return r.fail(stageCtx, logger, ep, ctx.Err(), attempts)
		}
	}
	if attemptErr != nil {
		return r.fail(stageCtx, logger, ep, attemptErr, attempts)
	}

	ep, err = r.store.SetStatus(stageCtx, ep.ID, st.Done())
	if err != nil {
		return ep, false, err
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.String("status", string(ep.Status)))
	return ep, false, nil
}

func (r *Runner) fail(ctx context.Context, logger *slog.Logger, ep *ledger.Episode, stageErr error, attempts int) (*ledger.Episode, bool, error) {
	logger.Error("stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.Error(stageErr))
	failed, markErr := r.store.MarkFailure(ctx, ep.ID, stageErr.Error(), attempts)
	if markErr != nil {
		logger.Error("failed to persist stage failure", logging.Error(markErr))
		return ep, false, stageErr
	}
	return failed, false, stageErr
}

func (r *Runner) execute(ctx context.Context, ep *ledger.Episode, st Stage) error {
	switch st {
	case Download:
		return r.download(ctx, ep)
	case Transcribe:
		return r.runTool(ctx, st, r.cfg.Tools.TranscribeCmd, map[string]string{
			"audio":      ep.AudioPath,
			"transcript": ep.TranscriptPath,
		})
	case Insights:
		return r.runTool(ctx, st, r.cfg.Tools.InsightsCmd, map[string]string{
			"transcript":    ep.TranscriptPath,
			"episode_dir":   ep.EpisodeDir,
			"insights_file": ep.InsightsPath,
			"model":         r.cfg.Tools.Model,
		})
	default:
		return fmt.Errorf("unknown stage %q", st)
	}
}

func (r *Runner) runTool(ctx context.Context, st Stage, template string, vars map[string]string) error {
	command, err := Expand(template, vars)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, string(st), "expand command", "", err)
	}
	output, err := r.runCommand(ctx, command)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, string(st), "run command",
			outputTail(output), err)
	}
	return nil
}

// outputTail keeps the end of a tool's combined output for error messages,
// where the actual failure usually is.
func outputTail(output []byte) string {
	const maxTail = 400
	text := strings.TrimSpace(string(output))
	if len(text) > maxTail {
		text = "... " + text[len(text)-maxTail:]
	}
	return text
}
