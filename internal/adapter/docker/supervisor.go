// Package docker adapts the Docker Engine API to the supervisor contract:
// each monitored service runs as a container, and the container's init PID
// is recorded to the service's well-known pid file.
package docker

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"

	"vigil/internal/stack"
	"vigil/internal/supervisor"
)

var _ supervisor.Supervisor = (*Supervisor)(nil)

// Supervisor runs roster services as docker containers named
// "<prefix><service>".
type Supervisor struct {
	cli    *client.Client
	roster stack.Roster
	prefix string
}

const daemonPollInterval = time.Second

// NewSupervisor creates a Supervisor with a docker client from the
// environment and waits for the daemon to answer pings.
func NewSupervisor(ctx context.Context, roster stack.Roster, prefix string) (*Supervisor, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	if err := waitDaemon(ctx, cli, daemonPollInterval); err != nil {
		return nil, err
	}
	return &Supervisor{cli: cli, roster: roster, prefix: prefix}, nil
}

// waitDaemon pings until the daemon answers, polling at the given cadence.
// Connection refusals are waited out; any other ping error fails at once.
func waitDaemon(ctx context.Context, cli *client.Client, every time.Duration) error {
	log := slog.With("component", "docker")
	waited := false
	for {
		_, err := cli.Ping(ctx)
		if err == nil {
			if waited {
				log.Debug("daemon reachable")
			}
			return nil
		}
		if !client.IsErrConnectionFailed(err) {
			return fmt.Errorf("connect to docker daemon: %w", err)
		}
		if !waited {
			waited = true
			log.Debug("waiting for docker daemon")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(every):
		}
	}
}

// NewSupervisorFromClient wraps an existing docker client.
func NewSupervisorFromClient(cli *client.Client, roster stack.Roster, prefix string) *Supervisor {
	return &Supervisor{cli: cli, roster: roster, prefix: prefix}
}

func (s *Supervisor) containerName(service string) string {
	return s.prefix + service
}

// Start creates the container if absent, starts it (a no-op when already
// running), and records its init PID at the service's pid file.
func (s *Supervisor) Start(ctx context.Context, serviceName string) (int, error) {
	svc, ok := s.roster.Lookup(serviceName)
	if !ok {
		return 0, fmt.Errorf("unknown service %q", serviceName)
	}
	name := s.containerName(serviceName)

	if _, err := s.cli.ContainerInspect(ctx, name); err != nil {
		if !errdefs.IsNotFound(err) {
			return 0, fmt.Errorf("inspect container %q: %w", name, err)
		}
		if err := s.create(ctx, svc, name); err != nil {
			return 0, err
		}
	}

	if err := s.cli.ContainerStart(ctx, name, container.StartOptions{}); err != nil {
		return 0, fmt.Errorf("start container %q: %w", name, err)
	}

	info, err := s.cli.ContainerInspect(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("inspect started container %q: %w", name, err)
	}
	if info.State == nil || info.State.Pid == 0 {
		return 0, fmt.Errorf("container %q reported no pid", name)
	}
	pid := info.State.Pid

	if err := writePIDFile(svc.PIDFile, pid); err != nil {
		return 0, err
	}
	slog.Debug("service started", "service", serviceName, "container", name, "pid", pid)
	return pid, nil
}

// Stop stops the container. A missing container is already stopped.
func (s *Supervisor) Stop(ctx context.Context, serviceName string) error {
	name := s.containerName(serviceName)
	if err := s.cli.ContainerStop(ctx, name, container.StopOptions{}); err != nil {
		if errdefs.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("stop container %q: %w", name, err)
	}
	slog.Debug("service stopped", "service", serviceName, "container", name)
	return nil
}

func (s *Supervisor) create(ctx context.Context, svc stack.ServiceSpec, name string) error {
	if _, err := s.cli.ImageInspect(ctx, svc.Image); err != nil {
		if !errdefs.IsNotFound(err) {
			return fmt.Errorf("inspect image %q: %w", svc.Image, err)
		}
		if err := s.pull(ctx, svc.Image); err != nil {
			return err
		}
	}

	target, err := nat.NewPort("tcp", strconv.Itoa(svc.TargetPort))
	if err != nil {
		return fmt.Errorf("container port for %q: %w", svc.Name, err)
	}

	cc := &container.Config{
		Image:        svc.Image,
		ExposedPorts: nat.PortSet{target: struct{}{}},
	}
	hc := &container.HostConfig{
		PortBindings: nat.PortMap{
			target: []nat.PortBinding{{
				HostIP:   "127.0.0.1",
				HostPort: strconv.Itoa(svc.Port),
			}},
		},
	}
	if _, err := s.cli.ContainerCreate(ctx, cc, hc, nil, nil, name); err != nil {
		return fmt.Errorf("create container %q: %w", name, err)
	}
	return nil
}

func (s *Supervisor) pull(ctx context.Context, img string) error {
	slog.Debug("pulling image", "image", img)
	rc, err := s.cli.ImagePull(ctx, img, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %q: %w", img, err)
	}
	_, _ = io.Copy(io.Discard, rc)
	_ = rc.Close()
	return nil
}

func writePIDFile(path string, pid int) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create pid directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	return nil
}
