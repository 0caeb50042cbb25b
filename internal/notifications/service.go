package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"filesorter/internal/config"
)

const userAgent = "filesorter/0.1.0"

// Service defines the notification surface used by the engine and CLI.
type Service interface {
	NotifyFileSorted(ctx context.Context, filename, category string) error
	NotifyQuotaExceeded(ctx context.Context, dashboardURL string) error
	NotifyOrganizeCompleted(ctx context.Context, moved, skipped, failed int, duration time.Duration) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When notifications are disabled or no topic is set a noop is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil || !cfg.Notifications.Enabled {
		return noopService{}
	}
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

// Noop returns a Service that discards everything.
func Noop() Service {
	return noopService{}
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

func (n *ntfyService) NotifyFileSorted(ctx context.Context, filename, category string) error {
	filename = strings.TrimSpace(filename)
	category = strings.TrimSpace(category)
	if category == "" {
		category = "Other"
	}
	return n.send(ctx, payload{
		title:   "File sorted",
		message: fmt.Sprintf("%s moved to %s", filename, category),
		tags:    []string{"filesorter", "sorted"},
	})
}

func (n *ntfyService) NotifyQuotaExceeded(ctx context.Context, dashboardURL string) error {
	message := "Classification quota reached. Files are left in place until the quota resets."
	if dashboardURL = strings.TrimSpace(dashboardURL); dashboardURL != "" {
		message = fmt.Sprintf("%s\nUpgrade: %s", message, dashboardURL)
	}
	return n.send(ctx, payload{
		title:    "Quota exceeded",
		message:  message,
		tags:     []string{"filesorter", "quota", "warning"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyOrganizeCompleted(ctx context.Context, moved, skipped, failed int, duration time.Duration) error {
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	title := "Organize complete"
	message := fmt.Sprintf("%d moved, %d skipped in %s", moved, skipped, duration)
	if failed > 0 {
		title = "Organize complete (with errors)"
		message = fmt.Sprintf("%d moved, %d skipped, %d failed in %s", moved, skipped, failed, duration)
	}
	return n.send(ctx, payload{
		title:   title,
		message: message,
		tags:    []string{"filesorter", "organize", "completed"},
	})
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	if err != nil {
		builder.WriteString(": ")
		builder.WriteString(err.Error())
	}
	return n.send(ctx, payload{
		title:    "filesorter error",
		message:  builder.String(),
		tags:     []string{"filesorter", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "filesorter test",
		message:  "Notification system test",
		tags:     []string{"filesorter", "test"},
		priority: "low",
	})
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

func (noopService) NotifyFileSorted(context.Context, string, string) error { return nil }
func (noopService) NotifyQuotaExceeded(context.Context, string) error      { return nil }
func (noopService) NotifyOrganizeCompleted(context.Context, int, int, int, time.Duration) error {
	return nil
}
func (noopService) NotifyError(context.Context, error, string) error { return nil }
func (noopService) TestNotification(context.Context) error           { return nil }
