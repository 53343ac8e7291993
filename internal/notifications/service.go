package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/michaeldiestelberg/podcast-insights/internal/config"
)

const userAgent = "podcast-insights/1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyEpisodeCompleted(ctx context.Context, feedName, episodeTitle string) error
	NotifyEpisodeFailed(ctx context.Context, feedName, episodeTitle string, cause error) error
	NotifyRunCompleted(ctx context.Context, processed, failed int, duration time.Duration) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyEpisodeCompleted(ctx context.Context, feedName, episodeTitle string) error {
	data := payload{
		title:   "Podcast Insights - Episode Ready",
		message: fmt.Sprintf("Insights ready: %s - %s", strings.TrimSpace(feedName), strings.TrimSpace(episodeTitle)),
		tags:    []string{"podcast-insights", "episode", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyEpisodeFailed(ctx context.Context, feedName, episodeTitle string, cause error) error {
	message := fmt.Sprintf("Failed: %s - %s", strings.TrimSpace(feedName), strings.TrimSpace(episodeTitle))
	if cause != nil {
		message = fmt.Sprintf("%s (%s)", message, cause)
	}
	data := payload{
		title:    "Podcast Insights - Episode Failed",
		message:  message,
		tags:     []string{"podcast-insights", "episode", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, processed, failed int, duration time.Duration) error {
	data := payload{
		title:   "Podcast Insights - Run Complete",
		message: fmt.Sprintf("Processed %d episode(s), %d failed in %s", processed, failed, duration.Round(time.Second)),
		tags:    []string{"podcast-insights", "run", "completed"},
	}
	if failed > 0 {
		data.priority = "high"
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:   "Podcast Insights - Test",
		message: "Notifications are configured correctly.",
		tags:    []string{"podcast-insights", "test"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyEpisodeCompleted(context.Context, string, string) error     { return nil }
func (noopService) NotifyEpisodeFailed(context.Context, string, string, error) error { return nil }
func (noopService) NotifyRunCompleted(context.Context, int, int, time.Duration) error {
	return nil
}
func (noopService) TestNotification(context.Context) error { return nil }
