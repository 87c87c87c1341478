package fingerprint

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"platter/internal/logging"
)

// Type identifies which strategy produced a fingerprint.
type Type string

const (
	TypeContentID     Type = "content-id"
	TypeDiscID        Type = "disc-id"
	TypeEmbeddedTitle Type = "embedded-title"
	TypeCRC64         Type = "crc64"
	TypeUnknown       Type = "unknown"
)

// Match is a cached title/year guess keyed by a content hash.
type Match struct {
	Title string `json:"title"`
	Year  int    `json:"year,omitempty"`
}

// Fingerprint is a disc-derived identifying signal captured before extraction
// alters file timestamps. Exactly one capture happens per backup attempt; the
// result is attached to the completion record and persisted with the output's
// metadata.
type Fingerprint struct {
	Type           Type      `json:"type"`
	CapturedAt     time.Time `json:"captured_at"`
	CRC64          string    `json:"crc64,omitempty"`
	ContentID      string    `json:"content_id,omitempty"`
	DiscID         string    `json:"disc_id,omitempty"`
	OrganizationID string    `json:"organization_id,omitempty"`
	EmbeddedTitle  string    `json:"embedded_title,omitempty"`
	ARMMatch       *Match    `json:"arm_match,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// CacheKey returns the hash usable as an ARM cache key, or "" when the
// fingerprint carries no content hash.
func (f Fingerprint) CacheKey() string {
	if f.ContentID != "" {
		return f.ContentID
	}
	return f.CRC64
}

// Lookup resolves a content hash to a previously confirmed title/year guess.
type Lookup interface {
	Lookup(ctx context.Context, hash string) (Match, bool, error)
}

// Capturer runs fingerprint strategies in fixed priority order and returns
// the first non-empty result.
type Capturer struct {
	timeout time.Duration
	lookup  Lookup
	root    func(driveLetter string) string
	logger  *slog.Logger
}

// Option adjusts capturer construction.
type Option func(*Capturer)

// WithLookup attaches a fingerprint-match cache queried on content-hash hits.
func WithLookup(lookup Lookup) Option {
	return func(c *Capturer) { c.lookup = lookup }
}

// WithRoot overrides how a drive letter maps to a readable root directory.
func WithRoot(root func(driveLetter string) string) Option {
	return func(c *Capturer) { c.root = root }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Capturer) { c.logger = logging.NewComponentLogger(logger, "fingerprint") }
}

// New constructs a capturer. timeout bounds one whole capture attempt; zero
// or negative falls back to 30 seconds.
func New(timeout time.Duration, opts ...Option) *Capturer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Capturer{
		timeout: timeout,
		root:    defaultRoot,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func defaultRoot(driveLetter string) string {
	return driveLetter + `:\`
}

// Capture fingerprints the disc in the given drive. It must run strictly
// before extraction starts, because extraction rewrites timestamps on the
// disc-derived files some strategies read. Capture never fails: a total
// strategy miss or an error degrades to a Type unknown fingerprint with the
// cause recorded, and the backup proceeds.
func (c *Capturer) Capture(ctx context.Context, driveLetter, discName string) Fingerprint {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	capturedAt := time.Now().UTC()
	base := c.root(driveLetter)

	fp, err := c.run(ctx, base, discName)
	fp.CapturedAt = capturedAt
	if err != nil {
		c.logger.Warn("fingerprint capture degraded",
			logging.String("drive", driveLetter),
			logging.Error(err),
		)
		return Fingerprint{Type: TypeUnknown, CapturedAt: capturedAt, Error: err.Error()}
	}

	if key := fp.CacheKey(); key != "" && c.lookup != nil {
		match, ok, err := c.lookup.Lookup(ctx, key)
		switch {
		case err != nil:
			c.logger.Warn("fingerprint cache lookup failed",
				logging.String("drive", driveLetter),
				logging.Error(err),
			)
		case ok:
			fp.ARMMatch = &match
		}
	}

	c.logger.Info("fingerprint captured",
		logging.String("drive", driveLetter),
		logging.String("type", string(fp.Type)),
		logging.Bool("arm_match", fp.ARMMatch != nil),
	)
	return fp
}

func (c *Capturer) run(ctx context.Context, base, discName string) (Fingerprint, error) {
	strategies := []func(context.Context, string, string) (Fingerprint, bool, error){
		contentHashStrategy,
		discIDStrategy,
		embeddedTitleStrategy,
		manifestStrategy,
	}
	for _, strategy := range strategies {
		if err := ctx.Err(); err != nil {
			return Fingerprint{}, err
		}
		fp, ok, err := strategy(ctx, base, discName)
		if err != nil {
			return Fingerprint{}, err
		}
		if ok {
			return fp, nil
		}
	}
	return Fingerprint{Type: TypeUnknown}, nil
}

func usableTitle(discName string) string {
	discName = strings.TrimSpace(discName)
	if discName == "" || strings.EqualFold(discName, "Unknown Disc") {
		return ""
	}
	return discName
}
