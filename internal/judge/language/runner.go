package language

import (
	"context"
	"fmt"
	"strings"
	"time"

	"codearena/internal/judge/sandbox"
)

// Compile limits are fixed: submissions never control the build step.
const (
	compileTimeLimit     = 30 * time.Second
	compileMemoryLimitMB = 1024
)

// CompileError reports a build failure caused by the submitted source,
// as opposed to an infrastructure error.
type CompileError struct {
	Output string
}

func (e *CompileError) Error() string {
	return "compilation failed: " + strings.TrimSpace(e.Output)
}

// Runner binds a Spec to the sandbox executor, satisfying the adapter
// capability set: Prepare builds an executable unit in the workspace,
// Run executes it against one input under the problem's limits.
type Runner struct {
	spec Spec
	exec sandbox.Executor
}

func NewRunner(spec Spec, exec sandbox.Executor) *Runner {
	return &Runner{spec: spec, exec: exec}
}

func (r *Runner) Prepare(ctx context.Context, ws *sandbox.Workspace, code string) error {
	if err := ws.WriteFile(r.spec.SourceFile, code); err != nil {
		return fmt.Errorf("prepare %s: %w", r.spec.Name, err)
	}
	if !r.spec.Compiled() {
		return nil
	}
	res, err := r.exec.Execute(ctx, ws, r.spec.CompileCmd, "", sandbox.Limits{
		TimeLimit:     compileTimeLimit,
		MemoryLimitMB: compileMemoryLimitMB,
	})
	if err != nil {
		return fmt.Errorf("compile %s: %w", r.spec.Name, err)
	}
	if res.TimedOut || res.ExitCode != 0 {
		out := res.Stderr
		if out == "" {
			out = res.Stdout
		}
		if res.TimedOut {
			out = "compilation timed out\n" + out
		}
		return &CompileError{Output: out}
	}
	return nil
}

func (r *Runner) Run(ctx context.Context, ws *sandbox.Workspace, input string, limits sandbox.Limits) (*sandbox.ExecutionResult, error) {
	if limits.MemoryLimitMB > 0 && limits.MemoryLimitMB < r.spec.MinMemoryMB {
		limits.MemoryLimitMB = r.spec.MinMemoryMB
	}
	return r.exec.Execute(ctx, ws, r.spec.RunCmd, input, limits)
}
