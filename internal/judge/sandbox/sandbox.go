// Package sandbox runs one untrusted program invocation inside a scoped
// working directory with hard wall-clock and memory limits. Two backends
// implement it: a docker one (full filesystem and network isolation, the
// default) and a local one for development hosts without docker.
package sandbox

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"
)

type Limits struct {
	TimeLimit     time.Duration
	MemoryLimitMB int
}

type ExecutionResult struct {
	Stdout      string
	Stderr      string
	ExitCode    int
	TimedOut    bool
	MemExceeded bool
	Duration    time.Duration
}

// Executor runs one command in a workspace under the given limits. A
// non-nil error is an infrastructure failure, never a property of the
// executed program.
type Executor interface {
	NewWorkspace() (*Workspace, error)
	Execute(ctx context.Context, ws *Workspace, argv []string, input string, limits Limits) (*ExecutionResult, error)
}

// Workspace is the per-invocation scratch directory. It is never shared
// between concurrent runs and must be closed on every exit path.
type Workspace struct {
	dir string
}

func newWorkspace(rootDir string) (*Workspace, error) {
	dir, err := os.MkdirTemp(rootDir, "judge-*")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

func (w *Workspace) Dir() string { return w.dir }

func (w *Workspace) WriteFile(name, content string) error {
	if err := os.WriteFile(w.dir+"/"+name, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// Close removes the directory and everything the program left in it,
// compiled artifacts included.
func (w *Workspace) Close() error {
	return os.RemoveAll(w.dir)
}

// LocalExecutor runs programs directly on the host. Network isolation
// uses a network namespace (an unprivileged user namespace grants the
// capability where the service is not root); filesystem access is NOT
// confined beyond the working directory, which is why the docker backend
// is the default for untrusted code.
type LocalExecutor struct {
	rootDir        string
	maxOutputBytes int
	netIsolation   bool
	logger         *zap.Logger
}

func NewLocalExecutor(rootDir string, maxOutputBytes int, netIsolation bool, logger *zap.Logger) *LocalExecutor {
	if rootDir == "" {
		rootDir = os.TempDir()
	}
	if maxOutputBytes <= 0 {
		maxOutputBytes = 1 << 20
	}
	return &LocalExecutor{
		rootDir:        rootDir,
		maxOutputBytes: maxOutputBytes,
		netIsolation:   netIsolation,
		logger:         logger,
	}
}

func (e *LocalExecutor) NewWorkspace() (*Workspace, error) {
	return newWorkspace(e.rootDir)
}

// Execute runs argv inside the workspace, feeding input on stdin. The
// process group is SIGKILLed (not merely signalled) once the wall-clock
// limit or the parent context expires. The address-space limit is applied
// in-shell via ulimit; because a refused allocation makes the program die
// on its own well under the cap, limit-induced deaths are also classified
// from rusage and the failure text (see classifyMemExceeded).
func (e *LocalExecutor) Execute(ctx context.Context, ws *Workspace, argv []string, input string, limits Limits) (*ExecutionResult, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	shellCmd := shellJoin(argv)
	if limits.MemoryLimitMB > 0 {
		shellCmd = fmt.Sprintf("ulimit -v %d; exec %s", limits.MemoryLimitMB*1024, shellCmd)
	} else {
		shellCmd = "exec " + shellCmd
	}

	cmd := exec.Command("/bin/sh", "-c", shellCmd)
	cmd.Dir = ws.dir
	cmd.Stdin = strings.NewReader(input)
	stdout := &cappedBuffer{max: e.maxOutputBytes}
	stderr := &cappedBuffer{max: e.maxOutputBytes}
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Env = minimalEnv()
	cmd.SysProcAttr = sysProcAttr(e.netIsolation)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start command: %w", err)
	}

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
		killProcessGroup(cmd)
		waitErr = <-done
	case <-ctx.Done():
		killProcessGroup(cmd)
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
			return nil, fmt.Errorf("wait command: %w", waitErr)
		}
	}
	res.ExitCode = cmd.ProcessState.ExitCode()
	classifyMemExceeded(res, maxRSSKB(cmd.ProcessState), limits)

	if e.logger != nil {
		e.logger.Debug("executed command",
			zap.String("dir", ws.dir),
			zap.Int("exit_code", res.ExitCode),
			zap.Bool("timed_out", res.TimedOut),
			zap.Bool("mem_exceeded", res.MemExceeded),
			zap.Duration("duration", res.Duration))
	}
	return res, nil
}

// classifyMemExceeded marks a result as over the memory limit. Peak RSS
// over the cap is definitive. An rlimit-refused allocation never shows up
// there, though: the runtime dies on its own with RSS under the cap, so a
// non-zero exit whose failure text is an allocation failure counts too.
func classifyMemExceeded(res *ExecutionResult, rssKB int64, limits Limits) {
	if limits.MemoryLimitMB <= 0 || res.TimedOut {
		return
	}
	if rssKB > int64(limits.MemoryLimitMB)*1024 {
		res.MemExceeded = true
		return
	}
	if res.ExitCode != 0 && looksLikeMemoryFailure(res.Stderr) {
		res.MemExceeded = true
	}
}

// Allocation-failure signatures of the supported runtimes: CPython, the
// JVM, V8/node, and glibc/libstdc++ for C and C++.
var memoryFailureSignatures = []string{
	"memoryerror",
	"outofmemoryerror",
	"std::bad_alloc",
	"out of memory",
	"cannot allocate memory",
}

func looksLikeMemoryFailure(stderr string) bool {
	lower := strings.ToLower(stderr)
	for _, sig := range memoryFailureSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}

// minimalEnv strips the host environment down to what compilers and
// runtimes need to start.
func minimalEnv() []string {
	return []string{
		"PATH=" + os.Getenv("PATH"),
		"HOME=/tmp",
		"LANG=C.UTF-8",
	}
}

func shellJoin(argv []string) string {
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = "'" + strings.ReplaceAll(a, "'", `'\''`) + "'"
	}
	return strings.Join(quoted, " ")
}

// cappedBuffer keeps the first max bytes and silently discards the rest,
// so an output-flooding program cannot exhaust host memory.
type cappedBuffer struct {
	buf bytes.Buffer
	max int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	room := b.max - b.buf.Len()
	if room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *cappedBuffer) String() string { return b.buf.String() }
