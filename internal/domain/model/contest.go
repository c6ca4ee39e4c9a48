package model

import "time"

// Phase is the lifecycle stage of a contest relative to a point in time.
type Phase string

const (
	PhaseUpcoming Phase = "UPCOMING"
	PhaseActive   Phase = "ACTIVE"
	PhaseEnded    Phase = "ENDED"
)

type Contest struct {
	ContestID   string    `json:"contestId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Problems    []Problem `json:"problems"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
}

// PhaseAt derives the contest phase as a pure function of the clock.
// The boundaries are half-open: a contest is ACTIVE at exactly StartTime
// and ENDED at exactly EndTime.
func (c *Contest) PhaseAt(now time.Time) Phase {
	if now.Before(c.StartTime) {
		return PhaseUpcoming
	}
	if now.Before(c.EndTime) {
		return PhaseActive
	}
	return PhaseEnded
}

// Problem returns the problem with the given id, or nil if the contest
// has no such problem.
func (c *Contest) Problem(problemID string) *Problem {
	for i := range c.Problems {
		if c.Problems[i].ProblemID == problemID {
			return &c.Problems[i]
		}
	}
	return nil
}
