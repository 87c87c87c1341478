package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"platter/internal/config"
	"platter/internal/disc"
)

const userAgent = "Platter/0.1.0"

// Service defines the notification surface exposed to the orchestrator.
type Service interface {
	NotifyBackupStarted(ctx context.Context, discName, discType string) error
	NotifyBackupCompleted(ctx context.Context, discName string, savedTitles int) error
	NotifyBackupFailed(ctx context.Context, discName, reason string) error
	NotifyIdentificationComplete(ctx context.Context, title, mediaType string) error
	NotifyError(ctx context.Context, err error, context string) error
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

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
		backups:  cfg.Notifications.Backups,
		errors:   cfg.Notifications.Errors,
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
	backups  bool
	errors   bool
}

func (n *ntfyService) NotifyBackupStarted(ctx context.Context, discName, discType string) error {
	if !n.backups {
		return nil
	}
	discName = disc.PrettyLabel(discName)
	discType = strings.TrimSpace(discType)
	if discType == "" {
		discType = "unknown"
	}
	data := payload{
		title:   "Platter - Backup Started",
		message: fmt.Sprintf("Started backup: %s (%s)", discName, discType),
		tags:    []string{"platter", "backup", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyBackupCompleted(ctx context.Context, discName string, savedTitles int) error {
	if !n.backups {
		return nil
	}
	discName = disc.PrettyLabel(discName)
	message := fmt.Sprintf("Backup complete: %s", discName)
	if savedTitles > 0 {
		message = fmt.Sprintf("%s (%d titles saved)", message, savedTitles)
	}
	data := payload{
		title:    "Platter - Backup Complete",
		message:  message,
		tags:     []string{"platter", "backup", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyBackupFailed(ctx context.Context, discName, reason string) error {
	if !n.backups {
		return nil
	}
	discName = disc.PrettyLabel(discName)
	reason = strings.TrimSpace(reason)
	message := fmt.Sprintf("Backup failed: %s", discName)
	if reason != "" {
		message = fmt.Sprintf("%s\n%s", message, reason)
	}
	data := payload{
		title:    "Platter - Backup Failed",
		message:  message,
		tags:     []string{"platter", "backup", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyIdentificationComplete(ctx context.Context, title, mediaType string) error {
	if !n.backups {
		return nil
	}
	title = strings.TrimSpace(title)
	mediaType = strings.TrimSpace(mediaType)
	if mediaType == "" {
		mediaType = "unknown"
	}
	data := payload{
		title:   "Platter - Identified",
		message: fmt.Sprintf("Identified: %s (%s)", title, mediaType),
		tags:    []string{"platter", "identify", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Platter - Error",
		message:  builder.String(),
		tags:     []string{"platter", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Platter - Test",
		message:  "Notification system test",
		tags:     []string{"platter", "test"},
		priority: "low",
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

func (noopService) NotifyBackupStarted(context.Context, string, string) error          { return nil }
func (noopService) NotifyBackupCompleted(context.Context, string, int) error           { return nil }
func (noopService) NotifyBackupFailed(context.Context, string, string) error           { return nil }
func (noopService) NotifyIdentificationComplete(context.Context, string, string) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error                   { return nil }
func (noopService) TestNotification(context.Context) error                             { return nil }
