// Package judge orchestrates per-test-case execution of one submission
// and derives its verdict.
package judge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"codearena/internal/domain/model"
	"codearena/internal/judge/language"
	"codearena/internal/judge/sandbox"
)

// Runner is the per-language adapter capability set, implemented by the
// language package.
type Runner interface {
	Prepare(ctx context.Context, ws *sandbox.Workspace, code string) error
	Run(ctx context.Context, ws *sandbox.Workspace, input string, limits sandbox.Limits) (*sandbox.ExecutionResult, error)
}

// Result is the outcome of judging one submission. Status is always
// terminal. A nil TestCasesPassed means no test case ran (compilation
// failure).
type Result struct {
	Status          model.SubmissionStatus
	ErrorMessage    *string
	TestCasesPassed *int
	TotalTestCases  *int
}

type Engine struct {
	runners  map[string]Runner
	executor sandbox.Executor
	logger   *zap.Logger

	defaultTimeLimitSeconds int
	defaultMemoryLimitMB    int
}

func NewEngine(specs map[string]language.Spec, executor sandbox.Executor, defaultTimeLimitSeconds, defaultMemoryLimitMB int, logger *zap.Logger) *Engine {
	runners := make(map[string]Runner, len(specs))
	for tag, spec := range specs {
		runners[tag] = language.NewRunner(spec, executor)
	}
	return &Engine{
		runners:                 runners,
		executor:                executor,
		logger:                  logger,
		defaultTimeLimitSeconds: defaultTimeLimitSeconds,
		defaultMemoryLimitMB:    defaultMemoryLimitMB,
	}
}

// NewEngineWithRunners is the seam for tests that substitute fake
// adapters for real process execution.
func NewEngineWithRunners(runners map[string]Runner, executor sandbox.Executor, logger *zap.Logger) *Engine {
	return &Engine{runners: runners, executor: executor, logger: logger}
}

// Judge runs every test case of the problem against the submission (no
// fail-fast: partial results are reported over early exit) and derives
// the verdict by failure priority: compilation > time limit > memory
// limit > runtime error > wrong answer.
//
// A non-nil error means the judging infrastructure itself failed, not
// the submission; the caller decides on retry.
func (e *Engine) Judge(ctx context.Context, sub *model.Submission, prob *model.Problem) (Result, error) {
	runner, ok := e.runners[sub.Language]
	if !ok {
		// Enqueue validation should make this unreachable.
		return Result{}, fmt.Errorf("no runner for language %q", sub.Language)
	}

	ws, err := e.executor.NewWorkspace()
	if err != nil {
		return Result{}, err
	}
	defer ws.Close()

	if err := runner.Prepare(ctx, ws, sub.Code); err != nil {
		var ce *language.CompileError
		if errors.As(err, &ce) {
			msg := truncateMessage(ce.Output)
			return Result{Status: model.StatusCompilationError, ErrorMessage: &msg}, nil
		}
		return Result{}, err
	}

	limits := sandbox.Limits{
		TimeLimit:     secondsOrDefault(prob.TimeLimitSeconds, e.defaultTimeLimitSeconds),
		MemoryLimitMB: intOrDefault(prob.MemoryLimitMB, e.defaultMemoryLimitMB),
	}

	total := prob.TestCaseCount()
	passed := 0
	// First diagnostic per failure category; the reported one follows
	// verdict priority, not test-case order.
	var tleMsg, mleMsg, reMsg, waMsg *string

	for i := 0; i < total; i++ {
		res, err := runner.Run(ctx, ws, prob.InputTestCases[i], limits)
		if err != nil {
			return Result{}, fmt.Errorf("test case %d: %w", i+1, err)
		}

		switch {
		case res.TimedOut:
			setOnce(&tleMsg, fmt.Sprintf("Test case %d: time limit exceeded", i+1))
		case res.MemExceeded:
			setOnce(&mleMsg, fmt.Sprintf("Test case %d: memory limit exceeded", i+1))
		case res.ExitCode != 0:
			setOnce(&reMsg, truncateMessage(fmt.Sprintf(
				"Test case %d: runtime error (exit code %d)\n%s", i+1, res.ExitCode, res.Stderr)))
		case !OutputsMatch(prob.ExpectedOutputs[i], res.Stdout):
			setOnce(&waMsg, truncateMessage(fmt.Sprintf(
				"Test case %d failed.\nExpected: %s\nGot: %s",
				i+1, NormalizeOutput(prob.ExpectedOutputs[i]), NormalizeOutput(res.Stdout))))
		default:
			passed++
		}
	}

	result := Result{TestCasesPassed: &passed, TotalTestCases: &total}
	switch {
	case tleMsg != nil:
		result.Status, result.ErrorMessage = model.StatusTimeLimitExceeded, tleMsg
	case mleMsg != nil:
		result.Status, result.ErrorMessage = model.StatusMemoryLimitExceeded, mleMsg
	case reMsg != nil:
		result.Status, result.ErrorMessage = model.StatusRuntimeError, reMsg
	case waMsg != nil:
		result.Status, result.ErrorMessage = model.StatusWrongAnswer, waMsg
	default:
		result.Status = model.StatusAccepted
	}

	if e.logger != nil {
		e.logger.Info("judged submission",
			zap.String("submission_id", sub.ID),
			zap.String("status", string(result.Status)),
			zap.Int("passed", passed),
			zap.Int("total", total))
	}
	return result, nil
}

// NormalizeOutput strips trailing whitespace from every line and drops
// trailing blank lines. Everything else, leading whitespace included,
// is compared exactly.
func NormalizeOutput(s string) string {
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], " \t\r")
	}
	end := len(lines)
	for end > 0 && lines[end-1] == "" {
		end--
	}
	return strings.Join(lines[:end], "\n")
}

func OutputsMatch(expected, actual string) bool {
	return NormalizeOutput(expected) == NormalizeOutput(actual)
}

const maxMessageLen = 4096

func truncateMessage(s string) string {
	s = strings.TrimRight(s, "\n")
	if len(s) > maxMessageLen {
		return s[:maxMessageLen] + "\n... (truncated)"
	}
	return s
}

func setOnce(slot **string, msg string) {
	if *slot == nil {
		*slot = &msg
	}
}

func secondsOrDefault(v, def int) time.Duration {
	if v <= 0 {
		v = def
	}
	return time.Duration(v) * time.Second
}

func intOrDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
