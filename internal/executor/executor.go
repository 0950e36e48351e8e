// Package executor copies rendered scripts into leased environments and runs
// them under a timeout, capturing and redacting their output.
package executor

import (
	"bytes"
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/intinstall/intinstall/internal/log"
	"github.com/intinstall/intinstall/internal/model"
	"github.com/intinstall/intinstall/internal/runtime"
	"github.com/intinstall/intinstall/internal/security"
)

// DefaultTimeout bounds a script run when the caller sets none.
const DefaultTimeout = 300 * time.Second

// EnvironmentPool is the part of the pool the executor needs: giving leased
// environments back.
type EnvironmentPool interface {
	Release(id string)
}

// ServiceConfig is the configuration for the executor service.
type ServiceConfig struct {
	Runtime runtime.Runtime
	Pool    EnvironmentPool
	// Timeout is the default bound per script run. Defaults to 300s.
	Timeout time.Duration
	Logger  log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Runtime == nil {
		return fmt.Errorf("runtime is required")
	}
	if c.Pool == nil {
		return fmt.Errorf("pool is required")
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "executor.Service"})
	return nil
}

// Service runs commands and scripts inside leased environments. Whatever
// happens during a run (success, timeout, stream error) the environment is
// released back to the pool.
type Service struct {
	runtime runtime.Runtime
	pool    EnvironmentPool
	timeout time.Duration
	logger  log.Logger
}

// NewService creates a new executor service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		runtime: cfg.Runtime,
		pool:    cfg.Pool,
		timeout: cfg.Timeout,
		logger:  cfg.Logger,
	}, nil
}

// RunOpts contains options for a single run.
type RunOpts struct {
	// Env contains additional environment variables for the run.
	Env map[string]string
	// Timeout overrides the service default for this run.
	Timeout time.Duration
}

// Run executes a command through a non-interactive shell in a leased
// environment and returns the captured, secret-redacted result. The
// environment is released back to the pool on every exit path.
func (s *Service) Run(ctx context.Context, envID string, command string, opts RunOpts) (*model.ExecutionResult, error) {
	defer s.pool.Release(envID)

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = s.timeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var output bytes.Buffer
	start := time.Now()
	exitCode, err := s.runtime.Exec(runCtx, envID, []string{"/bin/sh", "-c", command}, runtime.ExecOpts{
		Env:    opts.Env,
		Output: &output,
	})
	duration := time.Since(start)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, model.WrapError(model.ErrKindExecutionTimeout, err,
				"execution in environment %s exceeded %s", envID, timeout)
		}
		return nil, fmt.Errorf("could not execute command in environment %s: %w", envID, err)
	}

	result := &model.ExecutionResult{
		ExitCode: exitCode,
		Output:   security.MaskSecrets(output.String()),
		Duration: duration,
	}

	s.logger.Debugf("Executed command in environment %s: exit code %d (%s)", envID, exitCode, duration)

	return result, nil
}

// RunScript copies a rendered script into the environment and runs it. The
// environment is released on every exit path, including transfer failures.
func (s *Service) RunScript(ctx context.Context, envID string, script string, opts RunOpts) (*model.ExecutionResult, error) {
	name := fmt.Sprintf("intinstall-%s.sh", strings.ToLower(ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()))
	remotePath := "/tmp/" + name

	localPath, err := s.writeTempScript(name, script)
	if err != nil {
		s.pool.Release(envID)
		return nil, err
	}
	defer os.Remove(localPath)

	if err := s.runtime.CopyTo(ctx, envID, localPath, remotePath); err != nil {
		s.pool.Release(envID)
		return nil, fmt.Errorf("could not copy script into environment %s: %w", envID, err)
	}

	return s.Run(ctx, envID, "sh "+remotePath, opts)
}

func (s *Service) writeTempScript(name, script string) (string, error) {
	f, err := os.CreateTemp("", name)
	if err != nil {
		return "", model.WrapError(model.ErrKindContainer, err, "could not create local script file")
	}

	if _, err := f.WriteString(script); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", model.WrapError(model.ErrKindContainer, err, "could not write local script file")
	}
	f.Close()

	return f.Name(), nil
}
