package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/intinstall/intinstall/internal/app/genscript"
	"github.com/intinstall/intinstall/internal/model"
	"github.com/intinstall/intinstall/internal/utils/params"
)

type ScriptCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	integration string
	operation   string
	paramSpecs  []string
	os          string
	osVersion   string
}

// NewScriptCommand returns the script command.
func NewScriptCommand(rootCmd *RootCommand, app *kingpin.Application) *ScriptCommand {
	c := &ScriptCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("script", "Render an integration script without running it.")
	c.Cmd.Arg("integration", "Name of the integration (e.g. redis, nginx).").Required().StringVar(&c.integration)
	c.Cmd.Flag("operation", "Script operation to render.").Default(string(model.OperationInstall)).
		EnumVar(&c.operation, string(model.OperationInstall), string(model.OperationUninstall),
			string(model.OperationVerify), string(model.OperationRollback))
	c.Cmd.Flag("param", "Integration parameter as key=value (repeatable).").Short('p').StringsVar(&c.paramSpecs)
	c.Cmd.Flag("os", "Target operating system for template lookup.").StringVar(&c.os)
	c.Cmd.Flag("os-version", "Target operating system version for template lookup.").StringVar(&c.osVersion)

	return c
}

func (c ScriptCommand) Name() string { return c.Cmd.FullCommand() }

func (c ScriptCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger
	out := c.rootCmd.Stdout

	integrationParams, err := params.ParseSpecs(c.paramSpecs)
	if err != nil {
		return fmt.Errorf("invalid --param value: %w", err)
	}

	cfg, err := c.rootCmd.loadConfig()
	if err != nil {
		return err
	}

	// Script generation never touches the container runtime, wire only the
	// template engine and the gate.
	engine, scanner, err := newRenderStack(cfg, logger)
	if err != nil {
		return err
	}

	svc, err := genscript.NewService(genscript.ServiceConfig{
		Renderer: engine,
		Gate:     scanner,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("could not create script service: %w", err)
	}

	script, scan, err := svc.Generate(ctx, genscript.Request{
		Integration: c.integration,
		Operation:   model.Operation(c.operation),
		Params:      integrationParams,
		OS:          c.os,
		OSVersion:   c.osVersion,
	})
	if scan != nil {
		for _, issue := range scan.Issues {
			fmt.Fprintf(c.rootCmd.Stderr, "# finding (line %d, %s): %s\n", issue.Line, issue.Severity, issue.Message)
		}
	}
	if err != nil {
		return fmt.Errorf("could not generate script: %w", err)
	}

	fmt.Fprint(out, script.Text)

	return nil
}
