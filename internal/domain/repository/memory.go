package repository

import (
	"context"
	"sync"
	"time"

	"codearena/internal/common"
	"codearena/internal/domain/model"
)

// In-memory implementations backing tests and single-node deployments.
// All methods copy on the way in and out so callers never share the
// stored structs.

type memContestRepository struct {
	mu       sync.RWMutex
	contests map[string]model.Contest
}

func NewMemContestRepository() ContestRepository {
	return &memContestRepository{contests: make(map[string]model.Contest)}
}

func (r *memContestRepository) CreateContest(_ context.Context, c *model.Contest) error {
	if err := validateContest(c); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.contests[c.ContestID]; exists {
		return common.Errorf("contest %s already exists", c.ContestID)
	}
	stored := *c
	stored.Problems = append([]model.Problem(nil), c.Problems...)
	r.contests[c.ContestID] = stored
	return nil
}

func (r *memContestRepository) FindContestByID(_ context.Context, contestID string) (*model.Contest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.contests[contestID]
	if !ok {
		return nil, common.ErrContestNotFound
	}
	out := c
	out.Problems = append([]model.Problem(nil), c.Problems...)
	return &out, nil
}

type memSubmissionRepository struct {
	mu    sync.Mutex
	subs  map[string]*model.Submission
	order []string
}

func NewMemSubmissionRepository() SubmissionRepository {
	return &memSubmissionRepository{subs: make(map[string]*model.Submission)}
}

func (r *memSubmissionRepository) CreateSubmission(_ context.Context, s *model.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.subs[s.ID]; exists {
		return common.Errorf("submission %s already exists", s.ID)
	}
	stored := *s
	r.subs[s.ID] = &stored
	r.order = append(r.order, s.ID)
	return nil
}

func (r *memSubmissionRepository) GetSubmissionByID(_ context.Context, id string) (*model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[id]
	if !ok {
		return nil, common.ErrSubmissionNotFound
	}
	out := *s
	return &out, nil
}

func (r *memSubmissionRepository) ClaimPending(_ context.Context, id string, claimedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[id]
	if !ok || s.Status != model.StatusPending {
		return false, nil
	}
	s.Status = model.StatusRunning
	t := claimedAt
	s.ClaimedAt = &t
	return true, nil
}

func (r *memSubmissionRepository) Finish(_ context.Context, id string, v Verdict, processedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[id]
	if !ok || s.Status != model.StatusRunning {
		return false, nil
	}
	s.Status = v.Status
	s.ErrorMessage = v.ErrorMessage
	s.TestCasesPassed = v.TestCasesPassed
	s.TotalTestCases = v.TotalTestCases
	t := processedAt
	s.ProcessedAt = &t
	return true, nil
}

func (r *memSubmissionRepository) ReclaimStale(_ context.Context, cutoff time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for _, id := range r.order {
		s := r.subs[id]
		if s.Status == model.StatusRunning && s.ClaimedAt != nil && s.ClaimedAt.Before(cutoff) {
			s.Status = model.StatusPending
			s.ClaimedAt = nil
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *memSubmissionRepository) ListByContest(_ context.Context, contestID string) ([]model.Submission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var subs []model.Submission
	for _, id := range r.order {
		s := r.subs[id]
		if s.ContestID == contestID {
			subs = append(subs, *s)
		}
	}
	return subs, nil
}
