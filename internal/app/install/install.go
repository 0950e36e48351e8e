// Package install implements the integration installation orchestration: it
// renders the scripts, gates them, provisions an environment and drives the
// execute/verify/rollback state machine.
package install

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/intinstall/intinstall/internal/executor"
	"github.com/intinstall/intinstall/internal/log"
	"github.com/intinstall/intinstall/internal/model"
	"github.com/intinstall/intinstall/internal/retry"
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

// Runner executes commands and scripts inside leased environments.
type Runner interface {
	Run(ctx context.Context, envID, command string, opts executor.RunOpts) (*model.ExecutionResult, error)
	RunScript(ctx context.Context, envID, script string, opts executor.RunOpts) (*model.ExecutionResult, error)
}

// ServiceConfig is the configuration for the install service.
type ServiceConfig struct {
	Renderer Renderer
	Gate     Gate
	Pool     EnvironmentPool
	Runner   Runner
	// Image is the default execution environment image.
	Image string
	// InstallRetries is the retry budget for the install run itself.
	// Defaults to 0 (single attempt).
	InstallRetries int
	// VerifyRetries and VerifyRetryDelay bound the per-check verification
	// retry loop. Default to 3 and 5s.
	VerifyRetries    int
	VerifyRetryDelay time.Duration
	// SkipVerification and SkipRollback disable the optional phases globally,
	// requests can also disable them per call.
	SkipVerification bool
	SkipRollback     bool
	Logger           log.Logger
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
	if c.InstallRetries < 0 {
		c.InstallRetries = 0
	}
	if c.VerifyRetries <= 0 {
		c.VerifyRetries = 3
	}
	if c.VerifyRetryDelay <= 0 {
		c.VerifyRetryDelay = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Install"})
	return nil
}

// Service handles installation orchestration business logic.
type Service struct {
	renderer         Renderer
	gate             Gate
	pool             EnvironmentPool
	runner           Runner
	image            string
	installRetries   int
	verifyRetries    int
	verifyRetryDelay time.Duration
	skipVerification bool
	skipRollback     bool
	logger           log.Logger
}

// NewService creates a new install service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		renderer:         cfg.Renderer,
		gate:             cfg.Gate,
		pool:             cfg.Pool,
		runner:           cfg.Runner,
		image:            cfg.Image,
		installRetries:   cfg.InstallRetries,
		verifyRetries:    cfg.VerifyRetries,
		verifyRetryDelay: cfg.VerifyRetryDelay,
		skipVerification: cfg.SkipVerification,
		skipRollback:     cfg.SkipRollback,
		logger:           cfg.Logger,
	}, nil
}

// Request describes one installation attempt.
type Request struct {
	Integration string
	Params      map[string]any
	// OS and OSVersion narrow the template lookup, both optional.
	OS        string
	OSVersion string
	// Image overrides the service default environment image.
	Image string
	// DryRun renders and gates the install script without provisioning
	// anything.
	DryRun bool
	// ExtraChecks run after the verify script, each as its own command.
	ExtraChecks []model.VerificationCheck
	// SkipVerification and SkipRollback disable the optional phases for this
	// request only.
	SkipVerification bool
	SkipRollback     bool
}

// Install drives one installation attempt through the state machine. The
// returned result is always structured: failures come back as a result with
// Success=false and the terminal Failed phase, never as a raw component error.
func (s *Service) Install(ctx context.Context, req Request) (*model.InstallResult, error) {
	if req.Integration == "" {
		return nil, fmt.Errorf("integration name is required")
	}

	logger := s.logger.WithValues(log.Kv{"integration": req.Integration})

	// Phase: generating script. Nothing is provisioned before the install
	// script renders and passes the gate.
	logger.Debugf("Phase %s", model.PhaseGeneratingScript)
	script, err := s.renderer.Render(template.RenderSpec{
		Integration: req.Integration,
		Operation:   model.OperationInstall,
		OS:          req.OS,
		OSVersion:   req.OSVersion,
		Params:      req.Params,
	})
	if err != nil {
		return failure(fmt.Sprintf("could not generate install script: %v", err)), nil
	}

	if result := s.gateScript(ctx, logger, "install", script.Text); result != nil {
		return result, nil
	}

	if req.DryRun {
		return &model.InstallResult{
			Success: true,
			Message: fmt.Sprintf("dry run: install script for %q generated", req.Integration),
			Phase:   model.PhaseCompleted,
			Script:  script.Text,
		}, nil
	}

	// Phase: provisioning. A failure here has nothing to roll back.
	logger.Debugf("Phase %s", model.PhaseProvisioning)
	image := req.Image
	if image == "" {
		image = s.image
	}
	env, err := s.pool.Acquire(ctx, image)
	if err != nil {
		return failure(fmt.Sprintf("could not provision environment: %v", err)), nil
	}
	logger = logger.WithValues(log.Kv{"env": env.ID})

	// Phase: executing.
	logger.Debugf("Phase %s", model.PhaseExecuting)
	installOutput, err := s.runInstall(ctx, env.ID, script.Text)
	if err != nil {
		logger.Errorf("Install script failed: %v", err)
		return s.rollback(ctx, logger, req, env.ID,
			fmt.Sprintf("install script failed: %v", err), installOutput), nil
	}

	// Phase: verifying.
	if !s.skipVerification && !req.SkipVerification {
		logger.Debugf("Phase %s", model.PhaseVerifying)
		verification := s.runVerification(ctx, logger, req, env.ID)
		if !verification.Success {
			logger.Errorf("Verification failed")
			return s.rollback(ctx, logger, req, env.ID,
				"verification failed", verificationOutput(verification)), nil
		}
	}

	logger.Infof("Integration %s installed", req.Integration)

	return &model.InstallResult{
		Success: true,
		Message: fmt.Sprintf("integration %q installed successfully", req.Integration),
		Logs:    []string{installOutput},
		Phase:   model.PhaseCompleted,
	}, nil
}

// gateScript scans a rendered script and returns a failure result when the
// gate rejects it. Non-critical findings are only logged.
func (s *Service) gateScript(ctx context.Context, logger log.Logger, name, script string) *model.InstallResult {
	scan := s.gate.Scan(ctx, script)
	for _, issue := range scan.Issues {
		logger.Warningf("Security finding in %s script (line %d, %s): %s", name, issue.Line, issue.Severity, issue.Message)
	}
	if scan.Valid {
		return nil
	}

	err := model.NewError(model.ErrKindValidation, "%s script rejected by security gate", name)
	return failure(err.Error())
}

// runInstall runs the install script under the configured retry budget and
// returns the redacted output of the last attempt.
func (s *Service) runInstall(ctx context.Context, envID, script string) (string, error) {
	var output string
	err := retry.Do(ctx, retry.Config{Times: s.installRetries, Delay: time.Second}, func(ctx context.Context) error {
		result, err := s.runner.RunScript(ctx, envID, script, executor.RunOpts{})
		if err != nil {
			return err
		}
		output = result.Output
		if !result.Success() {
			return model.NewError(model.ErrKindExecution, "install script exited with code %d", result.ExitCode)
		}
		return nil
	})

	return output, err
}

// runVerification runs the verify script (when a template exists) and any
// extra checks, each under a bounded retry with backoff.
func (s *Service) runVerification(ctx context.Context, logger log.Logger, req Request, envID string) *model.VerificationResult {
	verification := &model.VerificationResult{Success: true}

	script, err := s.renderer.Render(template.RenderSpec{
		Integration: req.Integration,
		Operation:   model.OperationVerify,
		OS:          req.OS,
		OSVersion:   req.OSVersion,
		Params:      req.Params,
	})
	switch {
	case err == nil:
		check := model.VerificationCheck{
			Command:     script.Text,
			Description: fmt.Sprintf("%s verify script", req.Integration),
			RetryCount:  s.verifyRetries,
			RetryDelay:  s.verifyRetryDelay,
		}
		result := s.runCheck(ctx, envID, check, func(ctx context.Context) (*model.ExecutionResult, error) {
			return s.runner.RunScript(ctx, envID, script.Text, executor.RunOpts{})
		})
		verification.Checks = append(verification.Checks, result)
	default:
		// No verify template is not a failure, the integration simply ships
		// without one.
		logger.Warningf("No verify script for %s: %v", req.Integration, err)
	}

	for _, check := range req.ExtraChecks {
		check := check
		if check.RetryCount <= 0 {
			check.RetryCount = s.verifyRetries
		}
		if check.RetryDelay <= 0 {
			check.RetryDelay = s.verifyRetryDelay
		}
		result := s.runCheck(ctx, envID, check, func(ctx context.Context) (*model.ExecutionResult, error) {
			return s.runner.Run(ctx, envID, check.Command, executor.RunOpts{Timeout: check.Timeout})
		})
		verification.Checks = append(verification.Checks, result)
	}

	for _, c := range verification.Checks {
		if !c.Passed {
			verification.Success = false
			break
		}
	}

	return verification
}

// runCheck runs one verification check under its retry budget.
func (s *Service) runCheck(ctx context.Context, envID string, check model.VerificationCheck, run func(ctx context.Context) (*model.ExecutionResult, error)) model.VerificationCheckResult {
	result := model.VerificationCheckResult{Check: check}

	err := retry.Do(ctx, retry.Config{Times: check.RetryCount, Delay: check.RetryDelay}, func(ctx context.Context) error {
		exec, err := run(ctx)
		if err != nil {
			return err
		}
		result.ExitCode = exec.ExitCode
		result.Output = exec.Output
		if exec.ExitCode != check.ExpectedExitCode {
			return model.NewError(model.ErrKindExecution, "check %q exited with code %d, expected %d",
				check.Description, exec.ExitCode, check.ExpectedExitCode)
		}
		return nil
	})

	result.Passed = err == nil
	return result
}

// rollback runs the best-effort compensating script and builds the terminal
// failure result. The rollback's own failure never masks the original cause.
func (s *Service) rollback(ctx context.Context, logger log.Logger, req Request, envID, cause, causeOutput string) *model.InstallResult {
	logs := []string{causeOutput}

	if s.skipRollback || req.SkipRollback {
		result := failure(cause)
		result.Logs = logs
		return result
	}

	logger.Debugf("Phase %s", model.PhaseRollingBack)

	script, err := s.renderer.Render(template.RenderSpec{
		Integration: req.Integration,
		Operation:   model.OperationRollback,
		OS:          req.OS,
		OSVersion:   req.OSVersion,
		Params:      req.Params,
	})
	switch {
	case err != nil:
		logger.Warningf("No rollback script for %s: %v", req.Integration, err)
		logs = append(logs, fmt.Sprintf("rollback skipped: %v", err))

	default:
		result, err := s.runner.RunScript(ctx, envID, script.Text, executor.RunOpts{})
		switch {
		case err != nil:
			logger.Errorf("Rollback script failed: %v", err)
			logs = append(logs, fmt.Sprintf("rollback failed: %v", err))
		case !result.Success():
			logger.Errorf("Rollback script exited with code %d", result.ExitCode)
			logs = append(logs, result.Output)
		default:
			logger.Infof("Rolled back integration %s", req.Integration)
			logs = append(logs, result.Output)
		}
	}

	result := failure(cause)
	result.Logs = logs
	return result
}

func verificationOutput(v *model.VerificationResult) string {
	var sb strings.Builder
	for _, c := range v.Checks {
		status := "passed"
		if !c.Passed {
			status = "failed"
		}
		fmt.Fprintf(&sb, "%s: %s (exit code %d)\n%s", c.Check.Description, status, c.ExitCode, c.Output)
	}
	return sb.String()
}

func failure(message string) *model.InstallResult {
	return &model.InstallResult{
		Success: false,
		Message: security.MaskSecrets(message),
		Phase:   model.PhaseFailed,
	}
}
