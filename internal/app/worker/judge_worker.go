// Package worker runs the judging pool: a fixed number of workers
// draining the submission queue plus a reclaimer that rescues
// submissions orphaned by a crashed worker.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"
	"codearena/internal/judge"
	"codearena/internal/platform/queue"
)

// Judger is what a worker needs from the judge engine.
type Judger interface {
	Judge(ctx context.Context, sub *model.Submission, prob *model.Problem) (judge.Result, error)
}

type Pool struct {
	queue       queue.Queue
	submissions repository.SubmissionRepository
	contests    repository.ContestRepository
	judger      Judger
	logger      *zap.Logger

	size         int
	staleAfter   time.Duration
	reclaimEvery time.Duration
	now          func() time.Time
}

func NewPool(
	q queue.Queue,
	subs repository.SubmissionRepository,
	contests repository.ContestRepository,
	judger Judger,
	size int,
	staleAfter, reclaimEvery time.Duration,
	logger *zap.Logger,
) *Pool {
	if size <= 0 {
		size = 1
	}
	return &Pool{
		queue:        q,
		submissions:  subs,
		contests:     contests,
		judger:       judger,
		logger:       logger,
		size:         size,
		staleAfter:   staleAfter,
		reclaimEvery: reclaimEvery,
		now:          time.Now,
	}
}

// Start blocks until ctx is cancelled. Workers exit once their current
// submission is finished, so shutdown never abandons a claim silently:
// anything still RUNNING afterwards is picked up by the reclaimer on the
// next start.
func (p *Pool) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.size; i++ {
		id := i
		g.Go(func() error { return p.runWorker(ctx, id) })
	}
	if p.reclaimEvery > 0 {
		g.Go(func() error { return p.runReclaimer(ctx) })
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (p *Pool) runWorker(ctx context.Context, id int) error {
	log := p.logger.With(zap.Int("worker", id))
	log.Info("judge worker started")
	for {
		submissionID, err := p.queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("judge worker stopping")
				return ctx.Err()
			}
			log.Error("queue pop failed", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		claimed, err := p.submissions.ClaimPending(ctx, submissionID, p.now())
		if err != nil {
			log.Error("claim failed", zap.String("submission_id", submissionID), zap.Error(err))
			continue
		}
		if !claimed {
			// Another worker got there first, or the submission already
			// reached a terminal status (duplicate queue entry after a
			// reclaim). Either way this entry is spent.
			continue
		}

		p.process(ctx, log, submissionID)
	}
}

func (p *Pool) process(ctx context.Context, log *zap.Logger, submissionID string) {
	sub, err := p.submissions.GetSubmissionByID(ctx, submissionID)
	if err != nil {
		log.Error("claimed submission vanished", zap.String("submission_id", submissionID), zap.Error(err))
		return
	}

	result, err := p.judgeWithRetry(ctx, sub)
	if err != nil {
		if ctx.Err() != nil {
			// Shutdown mid-judging; leave RUNNING for the reclaimer.
			return
		}
		msg := truncate(fmt.Sprintf("judging infrastructure failure: %v", err))
		result = judge.Result{Status: model.StatusRuntimeError, ErrorMessage: &msg}
		log.Error("judging failed after retry", zap.String("submission_id", submissionID), zap.Error(err))
	}

	finished, err := p.submissions.Finish(ctx, submissionID, repository.Verdict{
		Status:          result.Status,
		ErrorMessage:    result.ErrorMessage,
		TestCasesPassed: result.TestCasesPassed,
		TotalTestCases:  result.TotalTestCases,
	}, p.now())
	if err != nil {
		log.Error("verdict write failed", zap.String("submission_id", submissionID), zap.Error(err))
		return
	}
	if !finished {
		// The reclaimer decided we were dead and handed the submission
		// to someone else; their verdict stands.
		log.Warn("submission no longer ours", zap.String("submission_id", submissionID))
		return
	}
	log.Info("submission judged",
		zap.String("submission_id", submissionID),
		zap.String("status", string(result.Status)))
}

// judgeWithRetry retries exactly once on infrastructure errors (sandbox
// setup failure, host resource exhaustion). Verdicts, including
// compilation errors, are not errors and never retried.
func (p *Pool) judgeWithRetry(ctx context.Context, sub *model.Submission) (judge.Result, error) {
	prob, err := p.lookupProblem(ctx, sub)
	if err != nil {
		return judge.Result{}, err
	}
	result, err := p.judger.Judge(ctx, sub, prob)
	if err == nil || ctx.Err() != nil {
		return result, err
	}
	p.logger.Warn("judging failed, retrying once",
		zap.String("submission_id", sub.ID), zap.Error(err))
	return p.judger.Judge(ctx, sub, prob)
}

func (p *Pool) lookupProblem(ctx context.Context, sub *model.Submission) (*model.Problem, error) {
	contest, err := p.contests.FindContestByID(ctx, sub.ContestID)
	if err != nil {
		return nil, fmt.Errorf("load contest %s: %w", sub.ContestID, err)
	}
	prob := contest.Problem(sub.ProblemID)
	if prob == nil {
		return nil, fmt.Errorf("problem %s not in contest %s", sub.ProblemID, sub.ContestID)
	}
	return prob, nil
}

// runReclaimer periodically requeues RUNNING submissions whose claim is
// older than the staleness threshold, so a worker crash never strands a
// submission. The queue may briefly hold duplicate ids; the
// compare-and-set claim makes duplicates harmless.
func (p *Pool) runReclaimer(ctx context.Context) error {
	ticker := time.NewTicker(p.reclaimEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		cutoff := p.now().Add(-p.staleAfter)
		ids, err := p.submissions.ReclaimStale(ctx, cutoff)
		if err != nil {
			p.logger.Error("stale reclaim failed", zap.Error(err))
			continue
		}
		for _, id := range ids {
			p.logger.Warn("requeued stale submission", zap.String("submission_id", id))
			if err := p.queue.Push(ctx, id); err != nil {
				p.logger.Error("requeue push failed", zap.String("submission_id", id), zap.Error(err))
			}
		}
	}
}

func truncate(s string) string {
	const max = 2048
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
