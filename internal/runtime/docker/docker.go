// Package docker implements the runtime.Runtime interface over the Docker
// control socket.
package docker

import (
	"archive/tar"
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/oklog/ulid/v2"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"

	"github.com/intinstall/intinstall/internal/log"
	"github.com/intinstall/intinstall/internal/model"
	"github.com/intinstall/intinstall/internal/runtime"
)

// DockerClient is the interface for the Docker operations that we use. This
// allows us to mock the Docker client for testing.
type DockerClient interface {
	Ping(ctx context.Context) (types.Ping, error)
	ImageList(ctx context.Context, options image.ListOptions) ([]image.Summary, error)
	ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *ocispec.Platform, containerName string) (container.CreateResponse, error)
	ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerStop(ctx context.Context, containerID string, options container.StopOptions) error
	ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error
	ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error)
	ContainerExecCreate(ctx context.Context, containerID string, options container.ExecOptions) (container.ExecCreateResponse, error)
	ContainerExecAttach(ctx context.Context, execID string, options container.ExecAttachOptions) (types.HijackedResponse, error)
	ContainerExecInspect(ctx context.Context, execID string) (container.ExecInspect, error)
	CopyToContainer(ctx context.Context, containerID, dstPath string, content io.Reader, options container.CopyToContainerOptions) error
	CopyFromContainer(ctx context.Context, containerID, srcPath string) (io.ReadCloser, container.PathStat, error)
}

// RuntimeConfig is the configuration for the Docker runtime.
type RuntimeConfig struct {
	Client DockerClient
	Logger log.Logger
}

func (c *RuntimeConfig) defaults() error {
	if c.Client == nil {
		cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
		if err != nil {
			return fmt.Errorf("could not create Docker client: %w", err)
		}
		c.Client = cli
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "runtime.Docker"})
	return nil
}

// Runtime is the Docker implementation of the runtime.Runtime interface.
type Runtime struct {
	client DockerClient
	logger log.Logger
}

// NewRuntime creates a new Docker runtime.
func NewRuntime(cfg RuntimeConfig) (*Runtime, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Runtime{
		client: cfg.Client,
		logger: cfg.Logger,
	}, nil
}

// Ping checks connectivity with the Docker daemon.
func (r *Runtime) Ping(ctx context.Context) error {
	if _, err := r.client.Ping(ctx); err != nil {
		return model.WrapError(model.ErrKindContainer, err, "could not reach the Docker daemon")
	}
	return nil
}

// CreateEnvironment pulls the image if not locally present, then creates and
// starts a container configured for no elevated privileges on an isolated
// bridge network.
func (r *Runtime) CreateEnvironment(ctx context.Context, imageRef string) (string, error) {
	if err := r.ensureImage(ctx, imageRef); err != nil {
		return "", err
	}

	id := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
	containerName := fmt.Sprintf("intinstall-%s", strings.ToLower(id))

	containerConfig := &container.Config{
		Image: imageRef,
		Cmd:   []string{"tail", "-f", "/dev/null"}, // Keep container running.
		Labels: map[string]string{
			"intinstall.managed-by": "intinstall",
		},
	}

	hostConfig := &container.HostConfig{
		NetworkMode: "bridge",
		SecurityOpt: []string{"no-new-privileges:true"},
	}

	resp, err := r.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, containerName)
	if err != nil {
		return "", model.WrapError(model.ErrKindContainer, err, "could not create container for image %s", imageRef)
	}

	if err := r.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		// Best effort cleanup, a half-created container is useless to the pool.
		_ = r.client.ContainerRemove(ctx, resp.ID, container.RemoveOptions{Force: true})
		return "", model.WrapError(model.ErrKindContainer, err, "could not start container %s", containerName)
	}

	r.logger.Debugf("Created environment %s (image: %s)", resp.ID, imageRef)

	return resp.ID, nil
}

func (r *Runtime) ensureImage(ctx context.Context, imageRef string) error {
	images, err := r.client.ImageList(ctx, image.ListOptions{
		Filters: filters.NewArgs(filters.Arg("reference", imageRef)),
	})
	if err != nil {
		return model.WrapError(model.ErrKindContainer, err, "could not list images")
	}
	if len(images) > 0 {
		return nil
	}

	r.logger.Infof("Pulling image: %s", imageRef)
	pullResp, err := r.client.ImagePull(ctx, imageRef, image.PullOptions{})
	if err != nil {
		return model.WrapError(model.ErrKindContainer, err, "could not pull image %s", imageRef)
	}
	// Consume the pull response to ensure it completes.
	_, _ = io.Copy(io.Discard, pullResp)
	pullResp.Close()

	return nil
}

// DestroyEnvironment force-stops and removes a container.
func (r *Runtime) DestroyEnvironment(ctx context.Context, id string) error {
	stopTimeout := 10
	if err := r.client.ContainerStop(ctx, id, container.StopOptions{Timeout: &stopTimeout}); err != nil {
		if !isNotFound(err) {
			r.logger.Debugf("Could not stop container %s: %v", id, err)
		}
	}

	if err := r.client.ContainerRemove(ctx, id, container.RemoveOptions{Force: true}); err != nil {
		if isNotFound(err) {
			return nil
		}
		return model.WrapError(model.ErrKindContainer, err, "could not remove container %s", id)
	}

	r.logger.Debugf("Destroyed environment %s", id)

	return nil
}

// InspectEnvironment returns the runtime-reported state of a container.
func (r *Runtime) InspectEnvironment(ctx context.Context, id string) (*model.EnvironmentState, error) {
	info, err := r.client.ContainerInspect(ctx, id)
	if err != nil {
		return nil, model.WrapError(model.ErrKindContainer, err, "could not inspect container %s", id)
	}

	state := &model.EnvironmentState{}
	if info.State != nil {
		state.Running = info.State.Running
		if info.State.Health != nil {
			state.HealthStatus = info.State.Health.Status
		}
	}
	if t, err := time.Parse(time.RFC3339Nano, info.Created); err == nil {
		state.CreatedAt = t
	}

	return state, nil
}

// Exec runs a command bound to a non-interactive shell inside a container,
// streaming combined output to opts.Output, and returns the exit code.
func (r *Runtime) Exec(ctx context.Context, id string, command []string, opts runtime.ExecOpts) (int, error) {
	if len(command) == 0 {
		return 0, model.NewError(model.ErrKindExecution, "command cannot be empty")
	}

	var env []string
	for k, v := range opts.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	execResp, err := r.client.ContainerExecCreate(ctx, id, container.ExecOptions{
		Cmd:          command,
		Env:          env,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return 0, model.WrapError(model.ErrKindExecution, err, "could not create exec in container %s", id)
	}

	attachResp, err := r.client.ContainerExecAttach(ctx, execResp.ID, container.ExecAttachOptions{})
	if err != nil {
		return 0, model.WrapError(model.ErrKindExecution, err, "could not attach to exec in container %s", id)
	}
	defer attachResp.Close()

	out := opts.Output
	if out == nil {
		out = io.Discard
	}

	// Stream in the background so the caller's context can cancel the wait.
	done := make(chan error, 1)
	go func() {
		_, err := stdcopy.StdCopy(out, out, attachResp.Reader)
		done <- err
	}()

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case err := <-done:
		if err != nil {
			return 0, model.WrapError(model.ErrKindExecution, err, "could not read exec output from container %s", id)
		}
	}

	inspectResp, err := r.client.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return 0, model.WrapError(model.ErrKindExecution, err, "could not inspect exec in container %s", id)
	}

	return inspectResp.ExitCode, nil
}

// CopyTo packs a single local file into a tar archive and streams it into the
// container, naming the entry after the requested remote basename.
func (r *Runtime) CopyTo(ctx context.Context, id string, srcLocal string, dstRemote string) error {
	data, err := os.ReadFile(srcLocal)
	if err != nil {
		return model.WrapError(model.ErrKindContainer, err, "could not read local file %s", srcLocal)
	}

	info, err := os.Stat(srcLocal)
	if err != nil {
		return model.WrapError(model.ErrKindContainer, err, "could not stat local file %s", srcLocal)
	}

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	hdr := &tar.Header{
		Name:    path.Base(dstRemote),
		Mode:    int64(info.Mode().Perm()),
		Size:    int64(len(data)),
		ModTime: info.ModTime(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return model.WrapError(model.ErrKindContainer, err, "could not write archive header")
	}
	if _, err := tw.Write(data); err != nil {
		return model.WrapError(model.ErrKindContainer, err, "could not write archive content")
	}
	if err := tw.Close(); err != nil {
		return model.WrapError(model.ErrKindContainer, err, "could not close archive")
	}

	dstDir := path.Dir(dstRemote)
	if err := r.client.CopyToContainer(ctx, id, dstDir, &buf, container.CopyToContainerOptions{}); err != nil {
		return model.WrapError(model.ErrKindContainer, err, "could not copy %s to container %s:%s", srcLocal, id, dstRemote)
	}

	return nil
}

// CopyFrom streams a file out of the container as a tar archive and unpacks
// the first regular entry to the requested local path.
func (r *Runtime) CopyFrom(ctx context.Context, id string, srcRemote string, dstLocal string) error {
	reader, _, err := r.client.CopyFromContainer(ctx, id, srcRemote)
	if err != nil {
		return model.WrapError(model.ErrKindContainer, err, "could not copy %s from container %s", srcRemote, id)
	}
	defer reader.Close()

	tr := tar.NewReader(reader)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return model.NewError(model.ErrKindContainer, "archive from container %s had no regular file for %s", id, srcRemote)
		}
		if err != nil {
			return model.WrapError(model.ErrKindContainer, err, "could not read archive from container %s", id)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		f, err := os.OpenFile(dstLocal, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(hdr.Mode).Perm())
		if err != nil {
			return model.WrapError(model.ErrKindContainer, err, "could not create local file %s", dstLocal)
		}
		_, err = io.Copy(f, tr)
		f.Close()
		if err != nil {
			return model.WrapError(model.ErrKindContainer, err, "could not write local file %s", dstLocal)
		}

		return nil
	}
}

func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "No such container")
}
