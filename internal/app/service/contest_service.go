package service

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"codearena/internal/common"
	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"
)

type ContestService struct {
	contestRepo    repository.ContestRepository
	submissionRepo repository.SubmissionRepository
	logger         *zap.Logger
}

func NewContestService(
	contestRepo repository.ContestRepository,
	submissionRepo repository.SubmissionRepository,
	logger *zap.Logger,
) *ContestService {
	return &ContestService{
		contestRepo:    contestRepo,
		submissionRepo: submissionRepo,
		logger:         logger,
	}
}

func (s *ContestService) GetContest(ctx context.Context, contestID string) (*model.Contest, error) {
	return s.contestRepo.FindContestByID(ctx, contestID)
}

func (s *ContestService) GetProblems(ctx context.Context, contestID string) ([]model.Problem, error) {
	contest, err := s.contestRepo.FindContestByID(ctx, contestID)
	if err != nil {
		return nil, err
	}
	return contest.Problems, nil
}

// Leaderboard recomputes the ranking from the contest's submission
// history on every read. Reads are snapshot-consistent only: a verdict
// written after the snapshot shows up on the next poll. An unknown
// contest yields an empty board, not an error, so the leaderboard view
// never breaks.
func (s *ContestService) Leaderboard(ctx context.Context, contestID string) ([]model.LeaderboardEntry, error) {
	if _, err := s.contestRepo.FindContestByID(ctx, contestID); err != nil {
		if errors.Is(err, common.ErrContestNotFound) {
			return []model.LeaderboardEntry{}, nil
		}
		return nil, err
	}

	subs, err := s.submissionRepo.ListByContest(ctx, contestID)
	if err != nil {
		return nil, err
	}
	return ComputeLeaderboard(subs), nil
}

// ComputeLeaderboard groups submissions by username and ranks users by
// distinct problems solved, then accepted submissions, then username.
// The order is total, so repeated polls always agree.
func ComputeLeaderboard(subs []model.Submission) []model.LeaderboardEntry {
	type userStats struct {
		total    int
		accepted int
		solved   map[string]struct{}
	}
	stats := make(map[string]*userStats)
	for _, sub := range subs {
		st, ok := stats[sub.Username]
		if !ok {
			st = &userStats{solved: make(map[string]struct{})}
			stats[sub.Username] = st
		}
		st.total++
		if sub.Status == model.StatusAccepted {
			st.accepted++
			st.solved[sub.ProblemID] = struct{}{}
		}
	}

	entries := make([]model.LeaderboardEntry, 0, len(stats))
	for username, st := range stats {
		entries = append(entries, model.LeaderboardEntry{
			Username:            username,
			TotalSubmissions:    st.total,
			AcceptedSubmissions: st.accepted,
			TotalProblemsSolved: len(st.solved),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.TotalProblemsSolved != b.TotalProblemsSolved {
			return a.TotalProblemsSolved > b.TotalProblemsSolved
		}
		if a.AcceptedSubmissions != b.AcceptedSubmissions {
			return a.AcceptedSubmissions > b.AcceptedSubmissions
		}
		return a.Username < b.Username
	})
	return entries
}
