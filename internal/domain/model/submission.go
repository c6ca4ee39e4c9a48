package model

import "time"

type SubmissionStatus string

const (
	StatusPending             SubmissionStatus = "PENDING"
	StatusRunning             SubmissionStatus = "RUNNING"
	StatusAccepted            SubmissionStatus = "ACCEPTED"
	StatusWrongAnswer         SubmissionStatus = "WRONG_ANSWER"
	StatusTimeLimitExceeded   SubmissionStatus = "TIME_LIMIT_EXCEEDED"
	StatusMemoryLimitExceeded SubmissionStatus = "MEMORY_LIMIT_EXCEEDED"
	StatusRuntimeError        SubmissionStatus = "RUNTIME_ERROR"
	StatusCompilationError    SubmissionStatus = "COMPILATION_ERROR"
)

// IsTerminal reports whether the status is a final verdict. Terminal
// statuses are never overwritten.
func (s SubmissionStatus) IsTerminal() bool {
	switch s {
	case StatusPending, StatusRunning:
		return false
	}
	return true
}

type Submission struct {
	ID              string           `json:"submissionId"`
	Username        string           `json:"username"`
	ContestID       string           `json:"contestId"`
	ProblemID       string           `json:"problemId"`
	Code            string           `json:"-"`
	Language        string           `json:"language"`
	Status          SubmissionStatus `json:"status"`
	ErrorMessage    *string          `json:"errorMessage,omitempty"`
	TestCasesPassed *int             `json:"testCasesPassed,omitempty"`
	TotalTestCases  *int             `json:"totalTestCases,omitempty"`
	SubmittedAt     time.Time        `json:"submittedAt"`
	ProcessedAt     *time.Time       `json:"processedAt,omitempty"`
	// ClaimedAt is set when a worker claims the submission and is the
	// basis for the staleness reclaim of crashed workers.
	ClaimedAt *time.Time `json:"-"`
}
