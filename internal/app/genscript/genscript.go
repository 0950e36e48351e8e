// Package genscript renders integration scripts without touching the
// container runtime, for inspection and offline use.
package genscript

import (
	"context"
	"fmt"

	"github.com/intinstall/intinstall/internal/log"
	"github.com/intinstall/intinstall/internal/model"
	"github.com/intinstall/intinstall/internal/security"
	"github.com/intinstall/intinstall/internal/template"
)

// Renderer resolves and renders integration script templates.
type Renderer interface {
	Render(spec template.RenderSpec) (*model.RenderedScript, error)
}

// Gate scans rendered scripts.
type Gate interface {
	Scan(ctx context.Context, script string) *security.ScanResult
}

// ServiceConfig is the configuration for the script generation service.
type ServiceConfig struct {
	Renderer Renderer
	Gate     Gate
	Logger   log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Renderer == nil {
		return fmt.Errorf("renderer is required")
	}
	if c.Gate == nil {
		return fmt.Errorf("gate is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.GenScript"})
	return nil
}

// Service handles script generation business logic.
type Service struct {
	renderer Renderer
	gate     Gate
	logger   log.Logger
}

// NewService creates a new script generation service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		renderer: cfg.Renderer,
		gate:     cfg.Gate,
		logger:   cfg.Logger,
	}, nil
}

// Request describes the script to generate.
type Request struct {
	Integration string
	Operation   model.Operation
	Params      map[string]any
	OS          string
	OSVersion   string
}

// Generate renders the requested script and scans it. The scan result is
// returned alongside so callers can surface findings, a gate rejection is
// still a generation error.
func (s *Service) Generate(ctx context.Context, req Request) (*model.RenderedScript, *security.ScanResult, error) {
	if req.Integration == "" {
		return nil, nil, fmt.Errorf("integration name is required")
	}
	if req.Operation == "" {
		req.Operation = model.OperationInstall
	}

	script, err := s.renderer.Render(template.RenderSpec{
		Integration: req.Integration,
		Operation:   req.Operation,
		OS:          req.OS,
		OSVersion:   req.OSVersion,
		Params:      req.Params,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not generate %s script: %w", req.Operation, err)
	}

	scan := s.gate.Scan(ctx, script.Text)
	if !scan.Valid {
		return nil, scan, model.NewError(model.ErrKindValidation, "%s script rejected by security gate", req.Operation)
	}

	s.logger.Debugf("Generated %s script for %s from %s", req.Operation, req.Integration, script.TemplatePath)

	return script, scan, nil
}
