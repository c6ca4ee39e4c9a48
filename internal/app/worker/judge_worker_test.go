package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"
	"codearena/internal/judge"
	"codearena/internal/platform/queue"
)

type fakeJudger struct {
	mu       sync.Mutex
	calls    map[string]int
	result   judge.Result
	failures int // first N calls per submission return an error
	delay    time.Duration
}

func acceptedResult() judge.Result {
	passed, total := 1, 1
	return judge.Result{Status: model.StatusAccepted, TestCasesPassed: &passed, TotalTestCases: &total}
}

func (f *fakeJudger) Judge(ctx context.Context, sub *model.Submission, _ *model.Problem) (judge.Result, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return judge.Result{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[sub.ID]++
	if f.calls[sub.ID] <= f.failures {
		return judge.Result{}, errors.New("sandbox setup failed")
	}
	return f.result, nil
}

func (f *fakeJudger) callCount(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

type poolFixture struct {
	queue       queue.Queue
	submissions repository.SubmissionRepository
	contests    repository.ContestRepository
	judger      *fakeJudger
}

func newPoolFixture(t *testing.T) *poolFixture {
	t.Helper()
	f := &poolFixture{
		queue:       queue.NewMemoryQueue(),
		submissions: repository.NewMemSubmissionRepository(),
		contests:    repository.NewMemContestRepository(),
		judger:      &fakeJudger{result: acceptedResult()},
	}
	now := time.Now()
	require.NoError(t, f.contests.CreateContest(context.Background(), &model.Contest{
		ContestID: "c1",
		Name:      "Test Contest",
		StartTime: now.Add(-time.Hour),
		EndTime:   now.Add(time.Hour),
		Problems: []model.Problem{{
			ProblemID:        "p1",
			Title:            "Echo",
			InputTestCases:   []string{"1"},
			ExpectedOutputs:  []string{"1"},
			TimeLimitSeconds: 2,
			MemoryLimitMB:    64,
		}},
	}))
	return f
}

func (f *poolFixture) submit(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, f.submissions.CreateSubmission(context.Background(), &model.Submission{
		ID:          id,
		ContestID:   "c1",
		ProblemID:   "p1",
		Username:    "alice",
		Language:    model.LangPython,
		Code:        "print(1)",
		Status:      model.StatusPending,
		SubmittedAt: time.Now(),
	}))
	require.NoError(t, f.queue.Push(context.Background(), id))
}

func (f *poolFixture) startPool(t *testing.T, size int, staleAfter, reclaimEvery time.Duration) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPool(f.queue, f.submissions, f.contests, f.judger, size, staleAfter, reclaimEvery, zap.NewNop())
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, pool.Start(ctx))
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("pool did not stop")
		}
	})
	return cancel
}

func (f *poolFixture) waitTerminal(t *testing.T, ids ...string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for _, id := range ids {
		for {
			sub, err := f.submissions.GetSubmissionByID(context.Background(), id)
			require.NoError(t, err)
			if sub.Status.IsTerminal() {
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("submission %s stuck in %s", id, sub.Status)
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func TestPoolJudgesSubmission(t *testing.T) {
	f := newPoolFixture(t)
	f.submit(t, "s1")
	f.startPool(t, 2, time.Minute, 0)
	f.waitTerminal(t, "s1")

	sub, err := f.submissions.GetSubmissionByID(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAccepted, sub.Status)
	assert.Equal(t, 1, *sub.TestCasesPassed)
	assert.NotNil(t, sub.ProcessedAt)
	assert.Equal(t, 1, f.judger.callCount("s1"))
}

func TestPoolDuplicateQueueEntriesJudgeOnce(t *testing.T) {
	f := newPoolFixture(t)
	ctx := context.Background()

	const n = 10
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("s%d", i)
		f.submit(t, id)
		// A reclaim can leave a second copy of the id in the queue.
		require.NoError(t, f.queue.Push(ctx, id))
		ids = append(ids, id)
	}

	f.startPool(t, 4, time.Minute, 0)
	f.waitTerminal(t, ids...)

	for _, id := range ids {
		assert.Equal(t, 1, f.judger.callCount(id), "submission %s judged more than once", id)
	}
}

func TestPoolRetriesInfraErrorOnce(t *testing.T) {
	f := newPoolFixture(t)
	f.judger.failures = 1
	f.submit(t, "s1")
	f.startPool(t, 1, time.Minute, 0)
	f.waitTerminal(t, "s1")

	sub, err := f.submissions.GetSubmissionByID(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAccepted, sub.Status)
	assert.Equal(t, 2, f.judger.callCount("s1"))
}

func TestPoolPersistentInfraErrorBecomesRuntimeError(t *testing.T) {
	f := newPoolFixture(t)
	f.judger.failures = 1000
	f.submit(t, "s1")
	f.startPool(t, 1, time.Minute, 0)
	f.waitTerminal(t, "s1")

	sub, err := f.submissions.GetSubmissionByID(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusRuntimeError, sub.Status)
	require.NotNil(t, sub.ErrorMessage)
	assert.Contains(t, *sub.ErrorMessage, "judging infrastructure failure")
	assert.Equal(t, 2, f.judger.callCount("s1"), "infra errors retry exactly once")
}

func TestPoolReclaimsStaleSubmission(t *testing.T) {
	f := newPoolFixture(t)
	ctx := context.Background()
	f.submit(t, "s1")

	// Simulate a worker that claimed the submission and crashed: drain the
	// queue entry and leave the row RUNNING with an old claim time.
	_, err := f.queue.Pop(ctx)
	require.NoError(t, err)
	claimed, err := f.submissions.ClaimPending(ctx, "s1", time.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.True(t, claimed)

	f.startPool(t, 1, 100*time.Millisecond, 20*time.Millisecond)
	f.waitTerminal(t, "s1")

	sub, err := f.submissions.GetSubmissionByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusAccepted, sub.Status)
}

func TestPoolShutdownLeavesInFlightForReclaimer(t *testing.T) {
	f := newPoolFixture(t)
	f.judger.delay = 10 * time.Second
	f.submit(t, "s1")
	cancel := f.startPool(t, 1, time.Minute, 0)

	// Wait for the worker to claim, then shut down mid-judging.
	deadline := time.Now().Add(2 * time.Second)
	for {
		sub, err := f.submissions.GetSubmissionByID(context.Background(), "s1")
		require.NoError(t, err)
		if sub.Status == model.StatusRunning {
			break
		}
		require.False(t, time.Now().After(deadline), "submission never claimed")
		time.Sleep(10 * time.Millisecond)
	}
	cancel()

	// Give the worker a moment to exit, then confirm the claim was not
	// overwritten with a bogus verdict.
	time.Sleep(100 * time.Millisecond)
	sub, err := f.submissions.GetSubmissionByID(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusRunning, sub.Status)
}
