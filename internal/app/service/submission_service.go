package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"codearena/internal/common"
	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"
	"codearena/internal/platform/queue"
)

type SubmissionService struct {
	contestRepo    repository.ContestRepository
	submissionRepo repository.SubmissionRepository
	queue          queue.Queue
	languages      map[string]struct{}
	logger         *zap.Logger
	now            func() time.Time
}

func NewSubmissionService(
	contestRepo repository.ContestRepository,
	submissionRepo repository.SubmissionRepository,
	q queue.Queue,
	supportedLanguages []string,
	logger *zap.Logger,
) *SubmissionService {
	langs := make(map[string]struct{}, len(supportedLanguages))
	for _, l := range supportedLanguages {
		langs[l] = struct{}{}
	}
	return &SubmissionService{
		contestRepo:    contestRepo,
		submissionRepo: submissionRepo,
		queue:          q,
		languages:      langs,
		logger:         logger,
		now:            time.Now,
	}
}

type CreateSubmissionRequest struct {
	ContestID string `json:"contestId"`
	ProblemID string `json:"problemId"`
	Username  string `json:"username"`
	Code      string `json:"code"`
	Language  string `json:"language"`
}

// Enqueue validates the request, persists a PENDING submission and
// pushes it onto the judging queue. Judging is asynchronous: the caller
// polls GetSubmission for the verdict. The contest-phase gate applies
// here only; a queued submission is still judged if the contest ends
// mid-flight.
func (s *SubmissionService) Enqueue(ctx context.Context, req CreateSubmissionRequest) (*model.Submission, error) {
	contest, err := s.contestRepo.FindContestByID(ctx, req.ContestID)
	if err != nil {
		return nil, err
	}
	problem := contest.Problem(req.ProblemID)
	if problem == nil {
		return nil, common.ErrProblemNotFound
	}
	lang, ok := model.NormalizeLanguage(req.Language)
	if ok {
		_, ok = s.languages[lang]
	}
	if !ok {
		return nil, common.Errorf("%w: %q", common.ErrUnsupportedLanguage, req.Language)
	}
	if phase := contest.PhaseAt(s.now()); phase != model.PhaseActive {
		return nil, common.Errorf("%w (phase %s)", common.ErrContestNotActive, phase)
	}
	if strings.TrimSpace(req.Code) == "" {
		return nil, common.ErrEmptySubmission
	}

	sub := &model.Submission{
		ID:          uuid.NewString(),
		Username:    req.Username,
		ContestID:   contest.ContestID,
		ProblemID:   problem.ProblemID,
		Code:        req.Code,
		Language:    lang,
		Status:      model.StatusPending,
		SubmittedAt: s.now(),
	}
	if err := s.submissionRepo.CreateSubmission(ctx, sub); err != nil {
		return nil, common.Errorf("persist submission: %w", err)
	}
	if err := s.queue.Push(ctx, sub.ID); err != nil {
		// The record stays PENDING and visible; the reclaimer cannot
		// rescue an unqueued PENDING, so surface the failure loudly.
		s.logger.Error("queue push failed", zap.String("submission_id", sub.ID), zap.Error(err))
		return nil, common.Errorf("enqueue submission: %w", err)
	}

	s.logger.Info("submission enqueued",
		zap.String("submission_id", sub.ID),
		zap.String("contest_id", sub.ContestID),
		zap.String("problem_id", sub.ProblemID),
		zap.String("language", sub.Language),
		zap.String("username", sub.Username))
	return sub, nil
}

func (s *SubmissionService) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	return s.submissionRepo.GetSubmissionByID(ctx, id)
}
