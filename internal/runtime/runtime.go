package runtime

import (
	"context"
	"io"

	"github.com/intinstall/intinstall/internal/model"
)

// ExecOpts contains options for running a command inside an environment.
type ExecOpts struct {
	// Env contains additional environment variables for this exec.
	Env map[string]string
	// Output receives the combined stdout/stderr stream as bytes arrive.
	// Defaults to discard.
	Output io.Writer
}

// Runtime is the interface to the container runtime. The core depends only on
// this capability set, not on any particular client library.
type Runtime interface {
	// CreateEnvironment pulls the image if needed, then creates and starts an
	// isolated execution environment. Returns the runtime-assigned ID.
	CreateEnvironment(ctx context.Context, image string) (string, error)

	// DestroyEnvironment force-stops and removes an environment. Idempotent,
	// destroying an already-removed environment is not an error.
	DestroyEnvironment(ctx context.Context, id string) error

	// InspectEnvironment returns the runtime-reported state of an environment.
	InspectEnvironment(ctx context.Context, id string) (*model.EnvironmentState, error)

	// Exec runs a command in an environment bound to a non-interactive shell,
	// streaming combined output, and returns the exit code. Cancelling the
	// context cancels the wait on the stream.
	Exec(ctx context.Context, id string, command []string, opts ExecOpts) (int, error)

	// CopyTo copies a local file into the environment using an archive-based
	// transfer.
	CopyTo(ctx context.Context, id string, srcLocal string, dstRemote string) error

	// CopyFrom copies a file from the environment to the local host.
	CopyFrom(ctx context.Context, id string, srcRemote string, dstLocal string) error

	// Ping checks that the runtime control socket is reachable.
	Ping(ctx context.Context) error
}
