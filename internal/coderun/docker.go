package coderun

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	specs "github.com/opencontainers/image-spec/specs-go/v1"
	"go.uber.org/zap"
)

type dockerClient interface {
	ImageInspectWithRaw(ctx context.Context, image string) (types.ImageInspect, []byte, error)
	ImagePull(ctx context.Context, ref string, options types.ImagePullOptions) (io.ReadCloser, error)
	ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, networkingConfig *network.NetworkingConfig, platform *specs.Platform, containerName string) (container.ContainerCreateCreatedBody, error)
	ContainerRemove(ctx context.Context, containerID string, options types.ContainerRemoveOptions) error
	ContainerStart(ctx context.Context, containerID string, options types.ContainerStartOptions) error
	ContainerKill(ctx context.Context, containerID string, signal string) error
	CopyToContainer(ctx context.Context, containerID, dstPath string, content io.Reader, options types.CopyToContainerOptions) error
	ContainerExecCreate(ctx context.Context, container string, config types.ExecConfig) (types.IDResponse, error)
	ContainerExecAttach(ctx context.Context, execID string, config types.ExecStartCheck) (types.HijackedResponse, error)
	ContainerExecStart(ctx context.Context, execID string, config types.ExecStartCheck) error
	ContainerExecInspect(ctx context.Context, execID string) (types.ContainerExecInspect, error)
}

// DockerRunner runs each program in a throwaway container with no network.
type DockerRunner struct {
	cli    dockerClient
	limits Limits
	logger *zap.Logger
}

var newDockerClient = func() (dockerClient, error) {
	return client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
}

func NewDockerRunner(limits Limits, logger *zap.Logger) (*DockerRunner, error) {
	cli, err := newDockerClient()
	if err != nil {
		return nil, translateDockerErr(err)
	}
	return &DockerRunner{cli: cli, limits: limits.withDefaults(), logger: logger}, nil
}

func (r *DockerRunner) log() *zap.Logger {
	if r.logger == nil {
		return zap.NewNop()
	}
	return r.logger
}

func (r *DockerRunner) Run(ctx context.Context, p Program) (Output, error) {
	spec, err := lookupLanguage(p.Language)
	if err != nil {
		return Output{}, err
	}
	if err := r.ensureImage(ctx, spec.image); err != nil {
		return Output{}, err
	}

	runCtx, cancel := context.WithTimeout(ctx, r.limits.WallTime)
	defer cancel()

	hostCfg := &container.HostConfig{
		NetworkMode: "none",
		Resources: container.Resources{
			Memory:   r.limits.MemoryB,
			NanoCPUs: r.limits.NanoCPUs,
		},
		SecurityOpt: []string{"no-new-privileges"},
	}
	conf := &container.Config{
		Image:      spec.image,
		Cmd:        []string{"/bin/sh", "-c", "sleep infinity"},
		WorkingDir: "/workspace",
		Env:        []string{"PYTHONDONTWRITEBYTECODE=1"},
	}

	create, err := r.cli.ContainerCreate(runCtx, conf, hostCfg, nil, nil, "")
	if err != nil {
		return Output{}, translateDockerErr(err)
	}
	cid := create.ID
	defer func() {
		_ = r.cli.ContainerRemove(context.Background(), cid, types.ContainerRemoveOptions{Force: true})
	}()

	if err := r.cli.ContainerStart(runCtx, cid, types.ContainerStartOptions{}); err != nil {
		return Output{}, translateDockerErr(err)
	}
	if err := r.copyFile(runCtx, cid, spec.fileName, []byte(p.Code)); err != nil {
		return Output{}, translateDockerErr(err)
	}

	var stdout, stderr bytes.Buffer
	for i, cmd := range spec.cmds {
		var stdin []byte
		if i == len(spec.cmds)-1 {
			stdin = []byte(p.Stdin)
		}
		code, err := r.exec(runCtx, cid, cmd, stdin, &stdout, &stderr)
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			_ = r.cli.ContainerKill(context.Background(), cid, "SIGKILL")
			return Output{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: -1, TimedOut: true}, nil
		}
		if err != nil {
			return Output{}, translateDockerErr(err)
		}
		if code != 0 {
			return Output{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: code}, nil
		}
	}
	return Output{Stdout: stdout.String(), Stderr: stderr.String()}, nil
}

func (r *DockerRunner) ensureImage(ctx context.Context, image string) error {
	_, _, err := r.cli.ImageInspectWithRaw(ctx, image)
	if err == nil {
		return nil
	}
	if !client.IsErrNotFound(err) {
		return translateDockerErr(err)
	}
	r.log().Info("pulling sandbox image", zap.String("image", image))
	pullCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	reader, err := r.cli.ImagePull(pullCtx, image, types.ImagePullOptions{})
	if err != nil {
		return translateDockerErr(err)
	}
	defer reader.Close()
	_, _ = io.Copy(io.Discard, reader)
	return nil
}

func (r *DockerRunner) copyFile(ctx context.Context, cid, fileName string, content []byte) error {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	if err := tw.WriteHeader(&tar.Header{
		Name: "workspace/" + fileName,
		Mode: 0o600,
		Size: int64(len(content)),
	}); err != nil {
		return err
	}
	if _, err := tw.Write(content); err != nil {
		return err
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return r.cli.CopyToContainer(ctx, cid, "/", &buf, types.CopyToContainerOptions{})
}

// exec runs one command to completion and returns its exit code. When the
// context ends first the attached stream is closed so the copy unblocks.
func (r *DockerRunner) exec(ctx context.Context, cid string, cmd []string, stdin []byte, stdout, stderr io.Writer) (int, error) {
	execResp, err := r.cli.ContainerExecCreate(ctx, cid, types.ExecConfig{
		Cmd:          cmd,
		WorkingDir:   "/workspace",
		AttachStdin:  true,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return -1, err
	}
	attach, err := r.cli.ContainerExecAttach(ctx, execResp.ID, types.ExecStartCheck{})
	if err != nil {
		return -1, err
	}
	defer attach.Close()
	if err := r.cli.ContainerExecStart(ctx, execResp.ID, types.ExecStartCheck{}); err != nil {
		return -1, err
	}

	if len(stdin) > 0 {
		if _, err := attach.Conn.Write(stdin); err != nil {
			return -1, fmt.Errorf("write stdin: %w", err)
		}
	}
	if closer, ok := attach.Conn.(interface{ CloseWrite() error }); ok {
		_ = closer.CloseWrite()
	}

	copied := make(chan struct{})
	go func() {
		defer close(copied)
		_, _ = stdcopy.StdCopy(stdout, stderr, attach.Reader)
	}()
	select {
	case <-copied:
	case <-ctx.Done():
		attach.Close()
		<-copied
		return -1, ctx.Err()
	}

	inspect, err := r.cli.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return -1, err
	}
	return inspect.ExitCode, nil
}

func translateDockerErr(err error) error {
	if err == nil {
		return nil
	}
	if client.IsErrConnectionFailed(err) {
		return ErrSandboxUnavailable
	}
	return err
}
