package security

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"

	"github.com/intinstall/intinstall/internal/log"
)

// Linter is an external shell-script linter invoked over a temporary file.
type Linter interface {
	Lint(ctx context.Context, script string) ([]Issue, error)
}

// ShellcheckLinterConfig is the configuration for the shellcheck linter.
type ShellcheckLinterConfig struct {
	// BinPath is the shellcheck binary, discovered on PATH when empty.
	BinPath string
	Logger  log.Logger
}

func (c *ShellcheckLinterConfig) defaults() error {
	if c.BinPath == "" {
		path, err := exec.LookPath("shellcheck")
		if err != nil {
			return fmt.Errorf("shellcheck not found on PATH: %w", err)
		}
		c.BinPath = path
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "security.Shellcheck"})
	return nil
}

// ShellcheckLinter runs shellcheck against a temporary copy of the script and
// translates its findings into scan issues.
type ShellcheckLinter struct {
	binPath string
	logger  log.Logger
}

// NewShellcheckLinter creates a new shellcheck linter. It fails if the binary
// cannot be found, callers treat that as "pass unavailable" and continue
// without it.
func NewShellcheckLinter(cfg ShellcheckLinterConfig) (*ShellcheckLinter, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &ShellcheckLinter{
		binPath: cfg.BinPath,
		logger:  cfg.Logger,
	}, nil
}

type shellcheckFinding struct {
	Line    int    `json:"line"`
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Lint writes the script to a temporary file and runs shellcheck over it.
func (l *ShellcheckLinter) Lint(ctx context.Context, script string) ([]Issue, error) {
	tmp, err := os.CreateTemp("", "intinstall-lint-*.sh")
	if err != nil {
		return nil, fmt.Errorf("could not create temp script: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(script); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("could not write temp script: %w", err)
	}
	tmp.Close()

	cmd := exec.CommandContext(ctx, l.binPath, "--format=json", "--shell=bash", tmp.Name())
	out, err := cmd.Output()
	if err != nil {
		// shellcheck exits non-zero when it has findings, only a missing
		// JSON payload is a real failure.
		if _, ok := err.(*exec.ExitError); !ok || len(out) == 0 {
			return nil, fmt.Errorf("could not run shellcheck: %w", err)
		}
	}

	var findings []shellcheckFinding
	if err := json.Unmarshal(out, &findings); err != nil {
		return nil, fmt.Errorf("could not parse shellcheck output: %w", err)
	}

	issues := make([]Issue, 0, len(findings))
	for _, f := range findings {
		issues = append(issues, Issue{
			Line:     f.Line,
			Severity: shellcheckSeverity(f.Level),
			Message:  fmt.Sprintf("shellcheck: %s", f.Message),
		})
	}

	l.logger.Debugf("Shellcheck reported %d findings", len(issues))

	return issues, nil
}

// shellcheckSeverity maps shellcheck levels to gate severities. Error-level
// findings map to critical so they mark the script invalid.
func shellcheckSeverity(level string) Severity {
	switch level {
	case "error":
		return SeverityCritical
	case "warning":
		return SeverityMedium
	default:
		return SeverityLow
	}
}
