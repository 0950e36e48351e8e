package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/intinstall/intinstall/internal/app/uninstall"
	"github.com/intinstall/intinstall/internal/utils/params"
)

type UninstallCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	integration string
	paramSpecs  []string
	os          string
	osVersion   string
	image       string
}

// NewUninstallCommand returns the uninstall command.
func NewUninstallCommand(rootCmd *RootCommand, app *kingpin.Application) *UninstallCommand {
	c := &UninstallCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("uninstall", "Remove a monitoring integration in a disposable environment.")
	c.Cmd.Arg("integration", "Name of the integration (e.g. redis, nginx).").Required().StringVar(&c.integration)
	c.Cmd.Flag("param", "Integration parameter as key=value (repeatable).").Short('p').StringsVar(&c.paramSpecs)
	c.Cmd.Flag("os", "Target operating system for template lookup.").StringVar(&c.os)
	c.Cmd.Flag("os-version", "Target operating system version for template lookup.").StringVar(&c.osVersion)
	c.Cmd.Flag("image", "Environment image (overrides the configured base image).").StringVar(&c.image)

	return c
}

func (c UninstallCommand) Name() string { return c.Cmd.FullCommand() }

func (c UninstallCommand) Run(ctx context.Context) error {
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

	svc, err := uninstall.NewService(uninstall.ServiceConfig{
		Renderer: stack.engine,
		Gate:     stack.scanner,
		Pool:     stack.pool,
		Runner:   stack.executor,
		Image:    stack.cfg.BaseImage,
		Logger:   c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not create uninstall service: %w", err)
	}

	result, err := svc.Uninstall(ctx, uninstall.Request{
		Integration: c.integration,
		Params:      integrationParams,
		OS:          c.os,
		OSVersion:   c.osVersion,
		Image:       c.image,
	})
	if err != nil {
		return fmt.Errorf("could not uninstall integration: %w", err)
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
