package identify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"platter/internal/disc"
	"platter/internal/fingerprint"
	"platter/internal/logging"
	"platter/internal/platform"
)

// Request describes one completed backup handed to the identification
// pipeline.
type Request struct {
	DriveID     int                     `json:"drive_id"`
	DiscName    string                  `json:"disc_name"`
	BackupDir   string                  `json:"backup_dir"`
	Fingerprint fingerprint.Fingerprint `json:"fingerprint"`
}

// Result is the pipeline's verdict on what the disc contains.
type Result struct {
	Title     string `json:"title"`
	Year      int    `json:"year,omitempty"`
	MediaType string `json:"media_type,omitempty"`
}

// Identifier resolves extracted disc content to a title. Identification runs
// after a successful backup and never blocks or fails it.
type Identifier interface {
	Identify(ctx context.Context, req Request) (Result, error)
}

type nopIdentifier struct{}

func (nopIdentifier) Identify(context.Context, Request) (Result, error) {
	return Result{}, errors.New("identification disabled")
}

// NewNop returns an identifier that reports identification as disabled.
func NewNop() Identifier {
	return nopIdentifier{}
}

type commandIdentifier struct {
	command string
	timeout time.Duration
	exec    platform.Executor
	logger  *slog.Logger
}

// Option adjusts command identifier construction.
type Option func(*commandIdentifier)

// WithExecutor swaps the subprocess executor, used by tests.
func WithExecutor(exec platform.Executor) Option {
	return func(c *commandIdentifier) { c.exec = exec }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *commandIdentifier) { c.logger = logging.NewComponentLogger(logger, "identify") }
}

// NewCommand returns an identifier that invokes an external command with the
// backup directory and disc name and expects a JSON result on stdout.
func NewCommand(command string, timeoutSeconds int, opts ...Option) Identifier {
	c := &commandIdentifier{
		command: command,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		exec:    platform.NewCommandExecutor(),
		logger:  logging.NewNop(),
	}
	if c.timeout <= 0 {
		c.timeout = 2 * time.Minute
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *commandIdentifier) Identify(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(c.command) == "" {
		return Result{}, errors.New("identification command not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	output, err := c.exec.Run(ctx, c.command, []string{req.BackupDir, req.DiscName})
	if err != nil {
		return Result{}, fmt.Errorf("run identification command: %w", err)
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("parse identification output: %w", err)
	}
	if strings.TrimSpace(result.Title) == "" {
		// Fall back to the volume label when it actually names content.
		if disc.IsGenericLabel(req.DiscName) {
			return Result{}, errors.New("identification produced no title")
		}
		result.Title = disc.PrettyLabel(req.DiscName)
	}

	c.logger.Info("disc identified",
		logging.Int(logging.FieldDriveID, req.DriveID),
		logging.String("title", result.Title),
		logging.Int("year", result.Year),
	)
	return result, nil
}
