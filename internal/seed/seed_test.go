package seed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"
)

func TestSampleContest(t *testing.T) {
	now := time.Now()
	contest := SampleContest(now, 2, 256)

	assert.Equal(t, "weekly-challenge-1", contest.ContestID)
	assert.Equal(t, model.PhaseActive, contest.PhaseAt(now))
	assert.Equal(t, model.PhaseEnded, contest.PhaseAt(now.Add(8*24*time.Hour)))

	require.Len(t, contest.Problems, 3)
	ids := map[string]bool{}
	for _, p := range contest.Problems {
		ids[p.ProblemID] = true
		assert.Equal(t, len(p.InputTestCases), len(p.ExpectedOutputs), p.ProblemID)
		assert.Equal(t, 2, p.TimeLimitSeconds)
		assert.Equal(t, 256, p.MemoryLimitMB)
	}
	assert.True(t, ids["sum-of-two-numbers"])
	assert.True(t, ids["find-maximum"])
	assert.True(t, ids["reverse-string"])
}

func TestApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemContestRepository()

	require.NoError(t, Apply(ctx, repo, 2, 256))
	require.NoError(t, Apply(ctx, repo, 2, 256), "second apply must not fail on the existing contest")

	contest, err := repo.FindContestByID(ctx, "weekly-challenge-1")
	require.NoError(t, err)
	assert.Len(t, contest.Problems, 3)
}
