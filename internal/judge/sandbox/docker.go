package sandbox

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DockerExecutor runs programs in a throwaway container: no network, the
// workspace bind-mounted as the only writable host path, and a kernel
// memory limit that kills rather than refuses. This is the default
// backend for untrusted code.
type DockerExecutor struct {
	rootDir        string
	image          string
	cpus           string
	maxOutputBytes int
	logger         *zap.Logger
}

func NewDockerExecutor(rootDir, image, cpus string, maxOutputBytes int, logger *zap.Logger) *DockerExecutor {
	if rootDir == "" {
		rootDir = os.TempDir()
	}
	if maxOutputBytes <= 0 {
		maxOutputBytes = 1 << 20
	}
	return &DockerExecutor{
		rootDir:        rootDir,
		image:          image,
		cpus:           cpus,
		maxOutputBytes: maxOutputBytes,
		logger:         logger,
	}
}

func (e *DockerExecutor) NewWorkspace() (*Workspace, error) {
	return newWorkspace(e.rootDir)
}

// The container is killed by the OOM killer at the memory limit; docker
// reports that as exit 137 (128 + SIGKILL).
const oomExitCode = 137

func (e *DockerExecutor) Execute(ctx context.Context, ws *Workspace, argv []string, input string, limits Limits) (*ExecutionResult, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	name := "judge-" + uuid.NewString()[:8]
	args := dockerRunArgs(name, ws.Dir(), e.image, e.cpus, limits)
	args = append(args, "/bin/sh", "-c", "exec "+shellJoin(argv))

	cmd := exec.Command("docker", args...)
	cmd.Stdin = strings.NewReader(input)
	stdout := &cappedBuffer{max: e.maxOutputBytes}
	stderr := &cappedBuffer{max: e.maxOutputBytes}
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start docker: %w", err)
	}
	// Covers every exit path; a second remove of a gone container is a
	// cheap no-op.
	defer e.removeContainer(name)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timedOut := false
	var timeout <-chan time.Time
	if limits.TimeLimit > 0 {
		timer := time.NewTimer(limits.TimeLimit)
		defer timer.Stop()
		timeout = timer.C
	}

	var waitErr error
	select {
	case waitErr = <-done:
	case <-timeout:
		timedOut = true
		e.removeContainer(name)
		waitErr = <-done
	case <-ctx.Done():
		e.removeContainer(name)
		<-done
		return nil, ctx.Err()
	}

	res := &ExecutionResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		TimedOut: timedOut,
		Duration: time.Since(start),
	}
	if waitErr != nil {
		if _, ok := waitErr.(*exec.ExitError); !ok {
			return nil, fmt.Errorf("wait docker: %w", waitErr)
		}
	}
	res.ExitCode = cmd.ProcessState.ExitCode()
	if limits.MemoryLimitMB > 0 && !timedOut {
		if res.ExitCode == oomExitCode || looksLikeMemoryFailure(res.Stderr) {
			res.MemExceeded = true
		}
	}

	if e.logger != nil {
		e.logger.Debug("executed container",
			zap.String("container", name),
			zap.Int("exit_code", res.ExitCode),
			zap.Bool("timed_out", res.TimedOut),
			zap.Bool("mem_exceeded", res.MemExceeded),
			zap.Duration("duration", res.Duration))
	}
	return res, nil
}

// dockerRunArgs builds the container invocation: no network, workspace
// mounted at /workspace, hard memory cap with swap disabled so the limit
// is the limit.
func dockerRunArgs(name, dir, image, cpus string, limits Limits) []string {
	args := []string{
		"run", "--rm", "-i",
		"--name", name,
		"--network", "none",
		"-v", dir + ":/workspace",
		"-w", "/workspace",
	}
	if limits.MemoryLimitMB > 0 {
		mem := fmt.Sprintf("%dm", limits.MemoryLimitMB)
		args = append(args, "--memory", mem, "--memory-swap", mem)
	}
	if cpus != "" {
		args = append(args, "--cpus", cpus)
	}
	return append(args, image)
}

func (e *DockerExecutor) removeContainer(name string) {
	rm := exec.Command("docker", "rm", "-f", name)
	if err := rm.Run(); err != nil && e.logger != nil {
		e.logger.Debug("container cleanup", zap.String("container", name), zap.Error(err))
	}
}
