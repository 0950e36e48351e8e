package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	"github.com/intinstall/intinstall/internal/app/doctor"
	"github.com/intinstall/intinstall/internal/model"
	dockerruntime "github.com/intinstall/intinstall/internal/runtime/docker"
)

type DoctorCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand
}

// NewDoctorCommand returns the doctor command.
func NewDoctorCommand(rootCmd *RootCommand, app *kingpin.Application) *DoctorCommand {
	c := &DoctorCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("doctor", "Run preflight checks for the local setup.")

	return c
}

func (c DoctorCommand) Name() string { return c.Cmd.FullCommand() }

func (c DoctorCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger
	out := c.rootCmd.Stdout

	cfg, err := c.rootCmd.loadConfig()
	if err != nil {
		return err
	}

	rt, err := dockerruntime.NewRuntime(dockerruntime.RuntimeConfig{Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create Docker runtime: %w", err)
	}

	svc, err := doctor.NewService(doctor.ServiceConfig{
		Runtime:      rt,
		TemplatesDir: cfg.TemplatesDir,
		BaseImage:    cfg.BaseImage,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("could not create doctor service: %w", err)
	}

	results := svc.Check(ctx)

	fmt.Fprintln(out, "Checking local setup...")
	for _, r := range results {
		fmt.Fprintf(out, "  %s %-16s %s\n", statusIcon(r.Status), r.ID, r.Message)
	}

	ok, warnings, errs := model.CountByStatus(results)
	fmt.Fprintln(out)
	if errs == 0 && warnings == 0 {
		fmt.Fprintln(out, "All checks passed!")
	} else {
		var summary []string
		if errs > 0 {
			summary = append(summary, fmt.Sprintf("%d error(s)", errs))
		}
		if warnings > 0 {
			summary = append(summary, fmt.Sprintf("%d warning(s)", warnings))
		}
		summary = append(summary, fmt.Sprintf("%d ok", ok))
		fmt.Fprintln(out, strings.Join(summary, ", "))
	}

	if errs > 0 {
		return fmt.Errorf("preflight checks failed with %d error(s)", errs)
	}

	return nil
}

func statusIcon(status model.CheckStatus) string {
	switch status {
	case model.CheckStatusOK:
		return "OK"
	case model.CheckStatusWarning:
		return "!!"
	case model.CheckStatusError:
		return "XX"
	default:
		return "??"
	}
}
