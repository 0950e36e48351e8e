// Package doctor runs preflight checks against the local setup: container
// runtime reachability, template hierarchy and optional tooling.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/intinstall/intinstall/internal/log"
	"github.com/intinstall/intinstall/internal/model"
)

// Pinger checks connectivity with the container runtime.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ServiceConfig is the configuration for the doctor service.
type ServiceConfig struct {
	Runtime      Pinger
	TemplatesDir string
	BaseImage    string
	// LookPath resolves binaries on PATH. Defaults to exec.LookPath.
	LookPath func(file string) (string, error)
	Logger   log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Runtime == nil {
		return fmt.Errorf("runtime is required")
	}
	if c.LookPath == nil {
		c.LookPath = exec.LookPath
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Doctor"})
	return nil
}

// Service handles preflight check business logic.
type Service struct {
	runtime      Pinger
	templatesDir string
	baseImage    string
	lookPath     func(file string) (string, error)
	logger       log.Logger
}

// NewService creates a new doctor service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		runtime:      cfg.Runtime,
		templatesDir: cfg.TemplatesDir,
		baseImage:    cfg.BaseImage,
		lookPath:     cfg.LookPath,
		logger:       cfg.Logger,
	}, nil
}

// Check runs every preflight check and returns the results. It never fails,
// failures are results.
func (s *Service) Check(ctx context.Context) []model.CheckResult {
	return []model.CheckResult{
		s.checkRuntime(ctx),
		s.checkTemplatesDir(),
		s.checkBaseImage(),
		s.checkShellcheck(),
	}
}

func (s *Service) checkRuntime(ctx context.Context) model.CheckResult {
	if err := s.runtime.Ping(ctx); err != nil {
		return model.CheckResult{ID: "docker_daemon", Status: model.CheckStatusError,
			Message: fmt.Sprintf("Docker daemon not reachable: %v", err)}
	}
	return model.CheckResult{ID: "docker_daemon", Status: model.CheckStatusOK,
		Message: "Docker daemon reachable"}
}

func (s *Service) checkTemplatesDir() model.CheckResult {
	info, err := os.Stat(s.templatesDir)
	switch {
	case err != nil:
		return model.CheckResult{ID: "templates_dir", Status: model.CheckStatusError,
			Message: fmt.Sprintf("templates directory %q not accessible: %v", s.templatesDir, err)}
	case !info.IsDir():
		return model.CheckResult{ID: "templates_dir", Status: model.CheckStatusError,
			Message: fmt.Sprintf("%q is not a directory", s.templatesDir)}
	}
	return model.CheckResult{ID: "templates_dir", Status: model.CheckStatusOK,
		Message: fmt.Sprintf("templates directory %q present", s.templatesDir)}
}

func (s *Service) checkBaseImage() model.CheckResult {
	if s.baseImage == "" {
		return model.CheckResult{ID: "base_image", Status: model.CheckStatusError,
			Message: "no base image configured"}
	}
	return model.CheckResult{ID: "base_image", Status: model.CheckStatusOK,
		Message: fmt.Sprintf("base image %q configured", s.baseImage)}
}

// checkShellcheck is a warning only, the security gate degrades gracefully
// without the linter.
func (s *Service) checkShellcheck() model.CheckResult {
	path, err := s.lookPath("shellcheck")
	if err != nil {
		return model.CheckResult{ID: "shellcheck", Status: model.CheckStatusWarning,
			Message: "shellcheck not found on PATH, script linting disabled"}
	}
	return model.CheckResult{ID: "shellcheck", Status: model.CheckStatusOK,
		Message: fmt.Sprintf("shellcheck available at %s", path)}
}
