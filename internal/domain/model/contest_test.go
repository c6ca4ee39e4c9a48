package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPhaseAt(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	c := &Contest{ContestID: "c1", StartTime: start, EndTime: end}

	assert.Equal(t, PhaseUpcoming, c.PhaseAt(start.Add(-time.Second)))
	assert.Equal(t, PhaseActive, c.PhaseAt(start))
	assert.Equal(t, PhaseActive, c.PhaseAt(start.Add(time.Hour)))
	assert.Equal(t, PhaseActive, c.PhaseAt(end.Add(-time.Nanosecond)))
	assert.Equal(t, PhaseEnded, c.PhaseAt(end))
	assert.Equal(t, PhaseEnded, c.PhaseAt(end.Add(time.Hour)))
}

func TestPhaseNeverRegresses(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := &Contest{ContestID: "c1", StartTime: start, EndTime: start.Add(time.Hour)}

	// Walking the clock forward must only ever move UPCOMING -> ACTIVE -> ENDED.
	rank := map[Phase]int{PhaseUpcoming: 0, PhaseActive: 1, PhaseEnded: 2}
	prev := c.PhaseAt(start.Add(-time.Hour))
	for now := start.Add(-time.Hour); now.Before(start.Add(2 * time.Hour)); now = now.Add(time.Minute) {
		cur := c.PhaseAt(now)
		assert.GreaterOrEqual(t, rank[cur], rank[prev], "phase regressed at %v", now)
		prev = cur
	}
}

func TestContestProblemLookup(t *testing.T) {
	c := &Contest{Problems: []Problem{{ProblemID: "p1"}, {ProblemID: "p2"}}}
	assert.NotNil(t, c.Problem("p2"))
	assert.Nil(t, c.Problem("p3"))
}

func TestNormalizeLanguage(t *testing.T) {
	for tag, want := range map[string]string{
		"Java": LangJava, "PYTHON": LangPython, "c++": LangCPP,
		"js": LangJavaScript, " c ": LangC,
	} {
		got, ok := NormalizeLanguage(tag)
		assert.True(t, ok, tag)
		assert.Equal(t, want, got)
	}

	_, ok := NormalizeLanguage("")
	assert.False(t, ok, "empty tag must not default to any language")
	_, ok = NormalizeLanguage("brainfuck")
	assert.False(t, ok)
}

func TestStatusIsTerminal(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusRunning.IsTerminal())
	for _, s := range []SubmissionStatus{
		StatusAccepted, StatusWrongAnswer, StatusTimeLimitExceeded,
		StatusMemoryLimitExceeded, StatusRuntimeError, StatusCompilationError,
	} {
		assert.True(t, s.IsTerminal(), s)
	}
}
