package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"
)

func sub(username, problemID string, status model.SubmissionStatus) model.Submission {
	return model.Submission{Username: username, ProblemID: problemID, Status: status}
}

func TestComputeLeaderboard(t *testing.T) {
	subs := []model.Submission{
		sub("alice", "p1", model.StatusAccepted),
		sub("alice", "p1", model.StatusAccepted),
		sub("alice", "p2", model.StatusWrongAnswer),
		sub("bob", "p1", model.StatusAccepted),
		sub("bob", "p2", model.StatusAccepted),
		sub("carol", "p1", model.StatusTimeLimitExceeded),
	}

	entries := ComputeLeaderboard(subs)
	require.Len(t, entries, 3)

	// bob: 2 solved. alice: 1 solved, 2 accepted. carol: nothing.
	assert.Equal(t, "bob", entries[0].Username)
	assert.Equal(t, 2, entries[0].TotalProblemsSolved)
	assert.Equal(t, 2, entries[0].TotalSubmissions)

	assert.Equal(t, "alice", entries[1].Username)
	assert.Equal(t, 1, entries[1].TotalProblemsSolved)
	assert.Equal(t, 2, entries[1].AcceptedSubmissions)
	assert.Equal(t, 3, entries[1].TotalSubmissions)

	assert.Equal(t, "carol", entries[2].Username)
	assert.Equal(t, 0, entries[2].TotalProblemsSolved)
	assert.Equal(t, 1, entries[2].TotalSubmissions)
}

func TestComputeLeaderboardRepeatedSolvesCountOnce(t *testing.T) {
	subs := []model.Submission{
		sub("alice", "p1", model.StatusAccepted),
		sub("alice", "p1", model.StatusAccepted),
		sub("alice", "p1", model.StatusAccepted),
	}
	entries := ComputeLeaderboard(subs)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].TotalProblemsSolved)
	assert.Equal(t, 3, entries[0].AcceptedSubmissions)
}

func TestComputeLeaderboardTieBreaksByUsername(t *testing.T) {
	subs := []model.Submission{
		sub("zed", "p1", model.StatusAccepted),
		sub("amy", "p1", model.StatusAccepted),
	}
	entries := ComputeLeaderboard(subs)
	require.Len(t, entries, 2)
	assert.Equal(t, "amy", entries[0].Username)
	assert.Equal(t, "zed", entries[1].Username)
}

func TestLeaderboardUnknownContestIsEmpty(t *testing.T) {
	svc := NewContestService(repository.NewMemContestRepository(),
		repository.NewMemSubmissionRepository(), zap.NewNop())

	entries, err := svc.Leaderboard(context.Background(), "missing")
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestGetProblems(t *testing.T) {
	ctx := context.Background()
	contests := repository.NewMemContestRepository()
	now := time.Now()
	require.NoError(t, contests.CreateContest(ctx, &model.Contest{
		ContestID: "c1",
		Name:      "Test",
		StartTime: now,
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
	svc := NewContestService(contests, repository.NewMemSubmissionRepository(), zap.NewNop())

	problems, err := svc.GetProblems(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, problems, 1)
	assert.Equal(t, "p1", problems[0].ProblemID)
}
