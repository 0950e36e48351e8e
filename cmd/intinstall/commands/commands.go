package commands

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/alecthomas/kingpin/v2"
	"k8s.io/client-go/util/homedir"

	"github.com/intinstall/intinstall/internal/config"
	"github.com/intinstall/intinstall/internal/executor"
	"github.com/intinstall/intinstall/internal/log"
	"github.com/intinstall/intinstall/internal/pool"
	dockerruntime "github.com/intinstall/intinstall/internal/runtime/docker"
	"github.com/intinstall/intinstall/internal/security"
	"github.com/intinstall/intinstall/internal/template"
)

const (
	// LoggerTypeDefault is the logger default type.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON is the logger json type.
	LoggerTypeJSON = "json"
)

// Command represents an application command, all commands that want to be executed
// should implement and setup on main.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand represents the root command configuration and global configuration
// for all the commands.
type RootCommand struct {
	// Global flags.
	Debug        bool
	NoLog        bool
	NoColor      bool
	LoggerType   string
	ConfigPath   string
	TemplatesDir string

	// Global instances.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

// NewRootCommand initializes the main root configuration.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Enable debug mode.").BoolVar(&c.Debug)
	app.Flag("no-log", "Disable logger.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Disable logger color.").BoolVar(&c.NoColor)
	app.Flag("logger", "Selects the logger type.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)

	defaultConfigPath := filepath.Join(homedir.HomeDir(), ".intinstall", "config.yaml")
	app.Flag("config", "Path to the configuration file.").Envar("INTINSTALL_CONFIG").Default(defaultConfigPath).StringVar(&c.ConfigPath)
	app.Flag("templates-dir", "Path to the template hierarchy (overrides the config file).").Envar("INTINSTALL_TEMPLATES_DIR").StringVar(&c.TemplatesDir)

	return c
}

// loadConfig loads the configuration file and applies flag overrides.
func (c *RootCommand) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("could not load configuration: %w", err)
	}
	if c.TemplatesDir != "" {
		cfg.TemplatesDir = c.TemplatesDir
	}
	return cfg, nil
}

// stack bundles the wired application components the commands share.
type stack struct {
	cfg      *config.Config
	runtime  *dockerruntime.Runtime
	pool     *pool.Pool
	executor *executor.Service
	engine   *template.Engine
	scanner  *security.Scanner
}

// newStack wires the full application stack: Docker runtime, environment
// pool, executor, template engine and security gate.
func (c *RootCommand) newStack() (*stack, error) {
	logger := c.Logger

	cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}

	rt, err := dockerruntime.NewRuntime(dockerruntime.RuntimeConfig{Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("could not create Docker runtime: %w", err)
	}

	p, err := pool.NewPool(pool.Config{
		Runtime:       rt,
		Capacity:      cfg.Pool.Capacity,
		MaxAge:        cfg.Pool.MaxAge.Std(),
		IdleTimeout:   cfg.Pool.IdleTimeout.Std(),
		SweepInterval: cfg.Pool.SweepInterval.Std(),
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create environment pool: %w", err)
	}

	exec, err := executor.NewService(executor.ServiceConfig{
		Runtime: rt,
		Pool:    p,
		Timeout: cfg.Execution.Timeout.Std(),
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create executor: %w", err)
	}

	engine, scanner, err := newRenderStack(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &stack{
		cfg:      cfg,
		runtime:  rt,
		pool:     p,
		executor: exec,
		engine:   engine,
		scanner:  scanner,
	}, nil
}

// close drains the environment pool, destroying every pooled container.
func (s *stack) close(ctx context.Context) {
	s.pool.Drain(ctx)
}

// newRenderStack wires the template engine and the security gate. Commands
// that never touch the container runtime use it directly.
func newRenderStack(cfg *config.Config, logger log.Logger) (*template.Engine, *security.Scanner, error) {
	engine, err := template.NewEngine(template.EngineConfig{
		Dir:    cfg.TemplatesDir,
		Logger: logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not create template engine: %w", err)
	}

	var linter security.Linter
	if sl, err := security.NewShellcheckLinter(security.ShellcheckLinterConfig{Logger: logger}); err != nil {
		logger.Debugf("Shellcheck unavailable, script linting disabled: %v", err)
	} else {
		linter = sl
	}

	scanner, err := security.NewScanner(security.ScannerConfig{
		Linter: linter,
		Logger: logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("could not create security scanner: %w", err)
	}

	return engine, scanner, nil
}
