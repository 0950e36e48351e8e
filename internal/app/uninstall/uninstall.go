// Package uninstall implements the integration removal flow: render the
// uninstall script, gate it and run it in a leased environment. There are no
// verification or rollback phases.
package uninstall

import (
	"context"
	"fmt"

	"github.com/intinstall/intinstall/internal/executor"
	"github.com/intinstall/intinstall/internal/log"
	"github.com/intinstall/intinstall/internal/model"
	"github.com/intinstall/intinstall/internal/security"
	"github.com/intinstall/intinstall/internal/template"
)

// Renderer resolves and renders integration script templates.
type Renderer interface {
	Render(spec template.RenderSpec) (*model.RenderedScript, error)
}

// Gate scans rendered scripts before they are allowed to run.
type Gate interface {
	Scan(ctx context.Context, script string) *security.ScanResult
}

// EnvironmentPool leases execution environments.
type EnvironmentPool interface {
	Acquire(ctx context.Context, image string) (*model.Environment, error)
}

// Runner executes scripts inside leased environments.
type Runner interface {
	RunScript(ctx context.Context, envID, script string, opts executor.RunOpts) (*model.ExecutionResult, error)
}

// ServiceConfig is the configuration for the uninstall service.
type ServiceConfig struct {
	Renderer Renderer
	Gate     Gate
	Pool     EnvironmentPool
	Runner   Runner
	// Image is the default execution environment image.
	Image  string
	Logger log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Renderer == nil {
		return fmt.Errorf("renderer is required")
	}
	if c.Gate == nil {
		return fmt.Errorf("gate is required")
	}
	if c.Pool == nil {
		return fmt.Errorf("pool is required")
	}
	if c.Runner == nil {
		return fmt.Errorf("runner is required")
	}
	if c.Image == "" {
		return fmt.Errorf("image is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Uninstall"})
	return nil
}

// Service handles uninstallation business logic.
type Service struct {
	renderer Renderer
	gate     Gate
	pool     EnvironmentPool
	runner   Runner
	image    string
	logger   log.Logger
}

// NewService creates a new uninstall service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		renderer: cfg.Renderer,
		gate:     cfg.Gate,
		pool:     cfg.Pool,
		runner:   cfg.Runner,
		image:    cfg.Image,
		logger:   cfg.Logger,
	}, nil
}

// Request describes one uninstallation attempt.
type Request struct {
	Integration string
	Params      map[string]any
	OS          string
	OSVersion   string
	// Image overrides the service default environment image.
	Image string
}

// Uninstall renders and runs the uninstall script of an integration.
func (s *Service) Uninstall(ctx context.Context, req Request) (*model.InstallResult, error) {
	if req.Integration == "" {
		return nil, fmt.Errorf("integration name is required")
	}

	logger := s.logger.WithValues(log.Kv{"integration": req.Integration})

	script, err := s.renderer.Render(template.RenderSpec{
		Integration: req.Integration,
		Operation:   model.OperationUninstall,
		OS:          req.OS,
		OSVersion:   req.OSVersion,
		Params:      req.Params,
	})
	if err != nil {
		return failure(fmt.Sprintf("could not generate uninstall script: %v", err)), nil
	}

	scan := s.gate.Scan(ctx, script.Text)
	for _, issue := range scan.Issues {
		logger.Warningf("Security finding in uninstall script (line %d, %s): %s", issue.Line, issue.Severity, issue.Message)
	}
	if !scan.Valid {
		return failure("uninstall script rejected by security gate"), nil
	}

	image := req.Image
	if image == "" {
		image = s.image
	}
	env, err := s.pool.Acquire(ctx, image)
	if err != nil {
		return failure(fmt.Sprintf("could not provision environment: %v", err)), nil
	}

	result, err := s.runner.RunScript(ctx, env.ID, script.Text, executor.RunOpts{})
	if err != nil {
		return failure(fmt.Sprintf("uninstall script failed: %v", err)), nil
	}
	if !result.Success() {
		r := failure(fmt.Sprintf("uninstall script exited with code %d", result.ExitCode))
		r.Logs = []string{result.Output}
		return r, nil
	}

	logger.Infof("Integration %s uninstalled", req.Integration)

	return &model.InstallResult{
		Success: true,
		Message: fmt.Sprintf("integration %q uninstalled successfully", req.Integration),
		Logs:    []string{result.Output},
		Phase:   model.PhaseCompleted,
	}, nil
}

func failure(message string) *model.InstallResult {
	return &model.InstallResult{
		Success: false,
		Message: security.MaskSecrets(message),
		Phase:   model.PhaseFailed,
	}
}
