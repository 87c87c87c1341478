package makemkv

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"platter/internal/logging"
)

// Notable MSG codes. Codes >= 5000 are disc/backup-level messages; codes
// below are general informational or I/O-level messages.
const (
	MsgReadError    = 2003 // read error on the source disc
	MsgSaveFailed   = 5003 // single file/title save failed
	MsgCompleted    = 5004 // "N titles saved, M failed"
	MsgDiscOpen     = 5010 // can't open disc
	MsgBackupFailed = 5080 // backup mode failed
)

// infoDiscProbe forces makemkvcon to enumerate every drive instead of
// scanning a single disc.
const infoDiscProbe = "disc:9999"

// ErrExternalTool marks failures of the makemkvcon subprocess itself, as
// opposed to bad arguments or filesystem errors on our side.
var ErrExternalTool = errors.New("external tool failed")

// ProgressUpdate captures backup progress output.
type ProgressUpdate struct {
	Stage   string
	Percent float64
	Message string
}

// Result summarizes one finished backup subprocess run.
type Result struct {
	SavedTitles     int
	FailedTitles    int
	Errors          []ErrorRecord
	RecoveryPercent float64
}

// Backuper defines the behaviour the orchestrator requires from the backup
// subprocess driver. One instance is scoped to one backup run.
type Backuper interface {
	Backup(ctx context.Context, discIndex int, destDir string, progress func(ProgressUpdate), onLog func(string)) (*Result, error)
}

// DriveLister exposes the drive enumeration query used during scans.
type DriveLister interface {
	Drives(ctx context.Context) (map[string]DriveRecord, error)
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithLogger attaches a logger for diagnostic messages.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "makemkv")
		}
	}
}

// Client wraps makemkvcon CLI interactions.
type Client struct {
	binary        string
	infoTimeout   time.Duration
	backupTimeout time.Duration
	exec          Executor
	logger        *slog.Logger
}

// New constructs a makemkvcon client.
func New(binary string, infoTimeoutSeconds, backupTimeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("makemkv binary required")
	}
	client := &Client{
		binary:        binary,
		infoTimeout:   time.Duration(infoTimeoutSeconds) * time.Second,
		backupTimeout: time.Duration(backupTimeoutSeconds) * time.Second,
		exec:          commandExecutor{},
		logger:        logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Drives queries makemkvcon for its internal drive-to-disc-index table.
// Only drives reporting media present are returned, keyed by upper-case
// drive letter. Malformed lines are skipped individually; an execution
// failure returns an empty map alongside the error so callers can treat the
// condition as a degraded state rather than a scan abort.
func (c *Client) Drives(ctx context.Context) (map[string]DriveRecord, error) {
	mapping := make(map[string]DriveRecord)

	infoCtx := ctx
	if c.infoTimeout > 0 {
		var cancel context.CancelFunc
		infoCtx, cancel = context.WithTimeout(ctx, c.infoTimeout)
		defer cancel()
	}

	args := []string{"-r", "--cache=1", "info", infoDiscProbe}
	err := c.exec.Run(infoCtx, c.binary, args, func(raw string) {
		line := ParseLine(raw)
		if line.Kind != LineDrive {
			return
		}
		record := line.Drive
		switch record.Flags {
		case FlagsMediaPresent:
		case FlagsDriveEmpty, FlagsDriveEmptyAlt:
			return
		default:
			c.logger.Warn("unexpected drive flags",
				logging.String(logging.FieldEventType, "makemkv_unexpected_flags"),
				logging.Int("flags", record.Flags),
				logging.String("drive", record.DriveLetter),
			)
			return
		}
		letter := normalizeDriveLetter(record.DriveLetter)
		if letter == "" {
			return
		}
		mapping[letter] = record
	})
	if err != nil {
		return mapping, fmt.Errorf("makemkv drive query: %w: %w", ErrExternalTool, err)
	}
	return mapping, nil
}

// Backup runs a full-disc decrypting backup targeting the given disc index.
// Progress updates and diagnostic lines stream through the callbacks as the
// subprocess emits them. The subprocess exit status decides success; the
// returned Result is populated either way with whatever was observed.
func (c *Client) Backup(ctx context.Context, discIndex int, destDir string, progress func(ProgressUpdate), onLog func(string)) (*Result, error) {
	if destDir == "" {
		return nil, errors.New("destination directory required")
	}
	if discIndex < 0 {
		return nil, fmt.Errorf("disc index must not be negative, got %d", discIndex)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create destination: %w", err)
	}

	backupCtx := ctx
	if c.backupTimeout > 0 {
		var cancel context.CancelFunc
		backupCtx, cancel = context.WithTimeout(ctx, c.backupTimeout)
		defer cancel()
	}

	result := &Result{}
	var stage string

	args := []string{"--robot", "--progress=-same", "backup", "--decrypt", fmt.Sprintf("disc:%d", discIndex), destDir}
	err := c.exec.Run(backupCtx, c.binary, args, func(raw string) {
		line := ParseLine(raw)
		switch line.Kind {
		case LineProgressTitle:
			stage = line.Title
		case LineProgressStep:
			if progress != nil {
				progress(ProgressUpdate{Stage: stage, Percent: -1, Message: line.Title})
			}
		case LineProgressValue:
			if progress != nil {
				percent := float64(line.Progress.Total) / float64(line.Progress.Max) * 100
				progress(ProgressUpdate{Stage: stage, Percent: percent})
			}
		case LineMessage:
			c.handleMessage(line.Message, result, onLog)
		}
	})

	result.RecoveryPercent = RecoveryPercent(result.SavedTitles, result.FailedTitles)

	if err != nil {
		return result, fmt.Errorf("makemkv backup: %w: %w", ErrExternalTool, err)
	}
	return result, nil
}

func (c *Client) handleMessage(message Message, result *Result, onLog func(string)) {
	if onLog != nil {
		onLog(message.Text)
	}

	switch message.Code {
	case MsgCompleted:
		saved, failed := parseCompletionCounts(message.Args)
		result.SavedTitles = saved
		result.FailedTitles = failed
	case MsgReadError, MsgSaveFailed, MsgDiscOpen, MsgBackupFailed:
		result.Errors = append(result.Errors, ParseErrorMessage(message.Text))
	default:
		if looksLikeDiagnosticError(message.Text) {
			result.Errors = append(result.Errors, ParseErrorMessage(message.Text))
		}
	}

	if message.Code >= 5000 {
		c.logger.Debug("makemkv disc message",
			logging.Int("msg_code", message.Code),
			logging.String("msg_text", message.Text),
		)
	}
}

// parseCompletionCounts reads the saved and failed totals from a MSG:5004
// args list: sprintf[0] = saved count, sprintf[1] = failed count.
func parseCompletionCounts(args []string) (saved, failed int) {
	if len(args) >= 1 {
		saved = atoiOrZero(args[0])
	}
	if len(args) >= 2 {
		failed = atoiOrZero(args[1])
	}
	return saved, failed
}

func atoiOrZero(value string) int {
	n := 0
	for _, r := range strings.TrimSpace(value) {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

func looksLikeDiagnosticError(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "error") || strings.Contains(lower, "failed")
}

func normalizeDriveLetter(letter string) string {
	trimmed := strings.TrimSpace(letter)
	trimmed = strings.TrimSuffix(trimmed, `\`)
	trimmed = strings.TrimSuffix(trimmed, ":")
	if len(trimmed) != 1 {
		return ""
	}
	upper := strings.ToUpper(trimmed)
	if upper[0] < 'A' || upper[0] > 'Z' {
		return ""
	}
	return upper
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	// Both streams feed the same callback; callers mutate parse state in
	// it, so invocations must never overlap.
	var emitMu sync.Mutex
	emit := func(line string) {
		if onStdout == nil {
			return
		}
		emitMu.Lock()
		defer emitMu.Unlock()
		onStdout(line)
	}

	scan := func(r io.Reader) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			emit(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	wg.Add(2)
	go scan(stdout)
	go scan(stderr)

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}
