// Package security implements the script security gate: a static pattern
// scan plus an optional external linter pass before any script reaches an
// execution environment, and secret redaction for everything that leaves it.
package security

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/intinstall/intinstall/internal/log"
)

// Severity of a scan issue.
type Severity string

const (
	// SeverityCritical issues make the script invalid.
	SeverityCritical Severity = "critical"
	// SeverityHigh issues are reported but do not block execution.
	SeverityHigh Severity = "high"
	// SeverityMedium issues are reported but do not block execution.
	SeverityMedium Severity = "medium"
	// SeverityLow issues are informational.
	SeverityLow Severity = "low"
)

// Issue is a single finding from the pattern scan or the linter pass.
type Issue struct {
	Line     int
	Severity Severity
	Message  string
}

// ScanResult is the outcome of scanning one script. Valid=true does not imply
// zero issues, only that nothing critical was found.
type ScanResult struct {
	Valid  bool
	Issues []Issue
}

type scanPattern struct {
	regexp   *regexp.Regexp
	severity Severity
	message  string
}

// Fixed pattern table. Destructive operations are critical/high, probable
// embedded credentials are medium.
var scanPatterns = []scanPattern{
	{regexp.MustCompile(`rm\s+-(?:[a-zA-Z]*r[a-zA-Z]*f|[a-zA-Z]*f[a-zA-Z]*r)[a-zA-Z]*\s+/(?:\s|$|\*)`), SeverityCritical, "recursive forced removal of the filesystem root"},
	{regexp.MustCompile(`(?:dd\s+[^\n]*of=|>\s*)/dev/(?:sd|hd|nvme|xvd|vd)[a-z0-9]*`), SeverityCritical, "write to a raw block device"},
	{regexp.MustCompile(`mkfs(?:\.[a-z0-9]+)?\s+`), SeverityCritical, "filesystem creation destroys existing data"},
	{regexp.MustCompile(`:\(\)\s*\{\s*:\s*\|\s*:\s*&\s*\}\s*;\s*:`), SeverityCritical, "fork bomb"},
	{regexp.MustCompile(`(?:curl|wget)[^\n|]*\|\s*(?:sudo\s+)?(?:ba|da|z)?sh\b`), SeverityHigh, "download piped directly into a shell"},
	{regexp.MustCompile(`chmod\s+(?:-R\s+)?777\s+/(?:\s|$)`), SeverityHigh, "world-writable permissions on the filesystem root"},
	{regexp.MustCompile(`(?i)password\s*=\s*\S+`), SeverityMedium, "probable embedded credential"},
	{regexp.MustCompile(`\b[A-Za-z0-9]{40,}\b`), SeverityMedium, "long opaque token, possible embedded secret"},
}

// ScannerConfig is the configuration for the security gate scanner.
type ScannerConfig struct {
	// Linter is the optional external shell linter pass. When nil or
	// unavailable the pass is skipped, never treated as a failure.
	Linter Linter
	Logger log.Logger
}

func (c *ScannerConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "security.Scanner"})
	return nil
}

// Scanner is the pre-execution security gate.
type Scanner struct {
	linter Linter
	logger log.Logger
}

// NewScanner creates a new scanner.
func NewScanner(cfg ScannerConfig) (*Scanner, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Scanner{
		linter: cfg.Linter,
		logger: cfg.Logger,
	}, nil
}

// Scan runs the pattern scan and the optional linter pass over a script. The
// script is invalid only if a critical issue is found.
func (s *Scanner) Scan(ctx context.Context, script string) *ScanResult {
	result := &ScanResult{Valid: true}

	for lineNo, line := range strings.Split(script, "\n") {
		for _, p := range scanPatterns {
			if !p.regexp.MatchString(line) {
				continue
			}
			result.Issues = append(result.Issues, Issue{
				Line:     lineNo + 1,
				Severity: p.severity,
				Message:  p.message,
			})
		}
	}

	if s.linter != nil {
		issues, err := s.linter.Lint(ctx, script)
		if err != nil {
			// The linter pass degrades gracefully, it never blocks a script.
			s.logger.Warningf("Linter pass skipped: %v", err)
		} else {
			result.Issues = append(result.Issues, issues...)
		}
	}

	for _, issue := range result.Issues {
		if issue.Severity == SeverityCritical {
			result.Valid = false
			break
		}
	}

	return result
}
