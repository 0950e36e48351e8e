package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/intinstall/intinstall/internal/app/install"
	"github.com/intinstall/intinstall/internal/model"
	"github.com/intinstall/intinstall/internal/utils/params"
)

type InstallCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	integration  string
	paramSpecs   []string
	os           string
	osVersion    string
	image        string
	dryRun       bool
	retries      int
	checks       []string
	skipVerify   bool
	skipRollback bool
}

// NewInstallCommand returns the install command.
func NewInstallCommand(rootCmd *RootCommand, app *kingpin.Application) *InstallCommand {
	c := &InstallCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("install", "Install a monitoring integration in a disposable environment.")
	c.Cmd.Arg("integration", "Name of the integration (e.g. redis, nginx).").Required().StringVar(&c.integration)
	c.Cmd.Flag("param", "Integration parameter as key=value (repeatable).").Short('p').StringsVar(&c.paramSpecs)
	c.Cmd.Flag("os", "Target operating system for template lookup.").StringVar(&c.os)
	c.Cmd.Flag("os-version", "Target operating system version for template lookup.").StringVar(&c.osVersion)
	c.Cmd.Flag("image", "Environment image (overrides the configured base image).").StringVar(&c.image)
	c.Cmd.Flag("dry-run", "Render and validate the install script without running anything.").BoolVar(&c.dryRun)
	c.Cmd.Flag("retries", "Retry budget for the install script run.").Default("0").IntVar(&c.retries)
	c.Cmd.Flag("check", "Extra verification command expected to exit 0 (repeatable).").StringsVar(&c.checks)
	c.Cmd.Flag("skip-verify", "Skip the verification phase.").BoolVar(&c.skipVerify)
	c.Cmd.Flag("skip-rollback", "Skip the rollback phase on failure.").BoolVar(&c.skipRollback)

	return c
}

func (c InstallCommand) Name() string { return c.Cmd.FullCommand() }

func (c InstallCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger
	out := c.rootCmd.Stdout

	integrationParams, err := params.ParseSpecs(c.paramSpecs)
	if err != nil {
		return fmt.Errorf("invalid --param value: %w", err)
	}

	stack, err := c.rootCmd.newStack()
	if err != nil {
		return err
	}
	defer stack.close(ctx)

	svc, err := install.NewService(install.ServiceConfig{
		Renderer:         stack.engine,
		Gate:             stack.scanner,
		Pool:             stack.pool,
		Runner:           stack.executor,
		Image:            stack.cfg.BaseImage,
		InstallRetries:   c.retries,
		VerifyRetries:    stack.cfg.Verification.RetryCount,
		VerifyRetryDelay: stack.cfg.Verification.RetryDelay.Std(),
		SkipVerification: stack.cfg.Verification.Skip,
		SkipRollback:     stack.cfg.Rollback.Skip,
		Logger:           logger,
	})
	if err != nil {
		return fmt.Errorf("could not create install service: %w", err)
	}

	var extraChecks []model.VerificationCheck
	for _, check := range c.checks {
		extraChecks = append(extraChecks, model.VerificationCheck{
			Command:     check,
			Description: check,
		})
	}

	result, err := svc.Install(ctx, install.Request{
		Integration:      c.integration,
		Params:           integrationParams,
		OS:               c.os,
		OSVersion:        c.osVersion,
		Image:            c.image,
		DryRun:           c.dryRun,
		ExtraChecks:      extraChecks,
		SkipVerification: c.skipVerify,
		SkipRollback:     c.skipRollback,
	})
	if err != nil {
		return fmt.Errorf("could not install integration: %w", err)
	}

	if c.dryRun && result.Success {
		fmt.Fprint(out, result.Script)
		return nil
	}

	for _, logEntry := range result.Logs {
		fmt.Fprintln(c.rootCmd.Stderr, logEntry)
	}

	if !result.Success {
		return fmt.Errorf("%s", result.Message)
	}

	fmt.Fprintln(out, result.Message)

	return nil
}
