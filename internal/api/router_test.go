package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"codearena/internal/app/service"
	"codearena/internal/domain/model"
	"codearena/internal/domain/repository"
	"codearena/internal/platform/queue"
)

type apiFixture struct {
	router      http.Handler
	submissions repository.SubmissionRepository
	queue       queue.Queue
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	contests := repository.NewMemContestRepository()
	submissions := repository.NewMemSubmissionRepository()
	q := queue.NewMemoryQueue()

	now := time.Now()
	require.NoError(t, contests.CreateContest(context.Background(), &model.Contest{
		ContestID:   "c1",
		Name:        "Test Contest",
		Description: "desc",
		StartTime:   now.Add(-time.Hour),
		EndTime:     now.Add(time.Hour),
		Problems: []model.Problem{{
			ProblemID:        "p1",
			Title:            "Echo",
			Description:      "echo the input",
			InputTestCases:   []string{"1"},
			ExpectedOutputs:  []string{"1"},
			TimeLimitSeconds: 2,
			MemoryLimitMB:    64,
		}},
	}))

	logger := zap.NewNop()
	contestService := service.NewContestService(contests, submissions, logger)
	submissionService := service.NewSubmissionService(contests, submissions, q,
		[]string{model.LangPython}, logger)
	return &apiFixture{
		router:      NewRouter(contestService, submissionService),
		submissions: submissions,
		queue:       q,
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestGetContest(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/api/contests/c1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var contest struct {
		ContestID string `json:"contestId"`
		Name      string `json:"name"`
		Problems  []struct {
			ProblemID string `json:"problemId"`
		} `json:"problems"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &contest))
	assert.Equal(t, "c1", contest.ContestID)
	assert.Equal(t, "Test Contest", contest.Name)
	require.Len(t, contest.Problems, 1)
	assert.Equal(t, "p1", contest.Problems[0].ProblemID)
}

func TestGetContestNotFound(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/api/contests/none", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.Error)
}

func TestGetProblems(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/api/contests/c1/problems", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var problems []struct {
		ProblemID        string `json:"problemId"`
		TimeLimitSeconds int    `json:"timeLimitSeconds"`
		MemoryLimitMB    int    `json:"memoryLimitMB"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problems))
	require.Len(t, problems, 1)
	assert.Equal(t, "p1", problems[0].ProblemID)
	assert.Equal(t, 2, problems[0].TimeLimitSeconds)
	assert.Equal(t, 64, problems[0].MemoryLimitMB)
}

func TestCreateSubmission(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodPost, "/api/submissions", map[string]string{
		"contestId": "c1",
		"problemId": "p1",
		"username":  "alice",
		"language":  "python",
		"code":      "print(input())",
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var sub struct {
		SubmissionID string `json:"submissionId"`
		Status       string `json:"status"`
		Code         string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sub))
	assert.NotEmpty(t, sub.SubmissionID)
	assert.Equal(t, "PENDING", sub.Status)
	assert.Empty(t, sub.Code, "source code never appears in responses")

	n, err := f.queue.Len(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Poll endpoint sees the stored submission.
	rec = f.do(t, http.MethodGet, "/api/submissions/"+sub.SubmissionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateSubmissionErrors(t *testing.T) {
	valid := map[string]string{
		"contestId": "c1",
		"problemId": "p1",
		"username":  "alice",
		"language":  "python",
		"code":      "print(1)",
	}
	tests := []struct {
		name     string
		mutate   func(map[string]string)
		wantCode int
	}{
		{"unknown contest", func(m map[string]string) { m["contestId"] = "none" }, http.StatusNotFound},
		{"unknown problem", func(m map[string]string) { m["problemId"] = "none" }, http.StatusNotFound},
		{"unsupported language", func(m map[string]string) { m["language"] = "cobol" }, http.StatusBadRequest},
		{"empty code", func(m map[string]string) { m["code"] = "   " }, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newAPIFixture(t)
			body := make(map[string]string, len(valid))
			for k, v := range valid {
				body[k] = v
			}
			tc.mutate(body)

			rec := f.do(t, http.MethodPost, "/api/submissions", body)
			assert.Equal(t, tc.wantCode, rec.Code)
		})
	}
}

func TestCreateSubmissionMalformedBody(t *testing.T) {
	f := newAPIFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/api/submissions", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetSubmissionNotFound(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/api/submissions/none", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLeaderboard(t *testing.T) {
	f := newAPIFixture(t)
	ctx := context.Background()

	passed, total := 1, 1
	for i, username := range []string{"alice", "bob"} {
		id := []string{"s1", "s2"}[i]
		require.NoError(t, f.submissions.CreateSubmission(ctx, &model.Submission{
			ID: id, ContestID: "c1", ProblemID: "p1", Username: username,
			Language: model.LangPython, Code: "x", Status: model.StatusPending,
			SubmittedAt: time.Now(),
		}))
		_, err := f.submissions.ClaimPending(ctx, id, time.Now())
		require.NoError(t, err)
	}
	_, err := f.submissions.Finish(ctx, "s1",
		repository.Verdict{Status: model.StatusAccepted, TestCasesPassed: &passed, TotalTestCases: &total},
		time.Now())
	require.NoError(t, err)
	_, err = f.submissions.Finish(ctx, "s2",
		repository.Verdict{Status: model.StatusWrongAnswer, TestCasesPassed: new(int), TotalTestCases: &total},
		time.Now())
	require.NoError(t, err)

	rec := f.do(t, http.MethodGet, "/api/contests/c1/leaderboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []struct {
		Username            string `json:"username"`
		TotalSubmissions    int    `json:"totalSubmissions"`
		AcceptedSubmissions int    `json:"acceptedSubmissions"`
		TotalProblemsSolved int    `json:"totalProblemsSolved"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "alice", entries[0].Username)
	assert.Equal(t, 1, entries[0].TotalProblemsSolved)
	assert.Equal(t, "bob", entries[1].Username)
	assert.Equal(t, 0, entries[1].TotalProblemsSolved)
}

func TestLeaderboardUnknownContest(t *testing.T) {
	f := newAPIFixture(t)
	rec := f.do(t, http.MethodGet, "/api/contests/none/leaderboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}
