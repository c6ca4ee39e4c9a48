package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"codearena/internal/common"
	"codearena/internal/domain/model"
)

// Verdict carries everything a worker writes back when a submission
// reaches a terminal status.
type Verdict struct {
	Status          model.SubmissionStatus
	ErrorMessage    *string
	TestCasesPassed *int
	TotalTestCases  *int
}

// SubmissionRepository owns the submission lifecycle. Status writes are
// guarded so that transitions stay monotonic even with concurrent
// workers: ClaimPending and Finish are compare-and-set operations.
type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, sub *model.Submission) error
	GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error)

	// ClaimPending transitions PENDING -> RUNNING atomically. It returns
	// false when the submission was already claimed or is terminal, so a
	// second worker holding the same queue entry backs off.
	ClaimPending(ctx context.Context, id string, claimedAt time.Time) (bool, error)

	// Finish transitions RUNNING -> terminal. It returns false when the
	// submission is no longer RUNNING (e.g. it was reclaimed and judged
	// by another worker in the meantime).
	Finish(ctx context.Context, id string, v Verdict, processedAt time.Time) (bool, error)

	// ReclaimStale requeues RUNNING submissions claimed before the
	// cutoff back to PENDING and returns their ids.
	ReclaimStale(ctx context.Context, cutoff time.Time) ([]string, error)

	ListByContest(ctx context.Context, contestID string) ([]model.Submission, error)
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

func (r *pgSubmissionRepository) CreateSubmission(ctx context.Context, s *model.Submission) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO submissions (id, username, contest_id, problem_id, code, language, status, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.Username, s.ContestID, s.ProblemID, s.Code, s.Language, s.Status, s.SubmittedAt)
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.CreateSubmission: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) GetSubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	s := &model.Submission{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, contest_id, problem_id, code, language, status, error_message, test_cases_passed, total_test_cases, submitted_at, processed_at, claimed_at
		 FROM submissions WHERE id = $1`, id).
		Scan(&s.ID, &s.Username, &s.ContestID, &s.ProblemID, &s.Code, &s.Language, &s.Status,
			&s.ErrorMessage, &s.TestCasesPassed, &s.TotalTestCases, &s.SubmittedAt, &s.ProcessedAt, &s.ClaimedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("pgSubmissionRepository.GetSubmissionByID: %w", err)
	}
	return s, nil
}

func (r *pgSubmissionRepository) ClaimPending(ctx context.Context, id string, claimedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE submissions SET status = $1, claimed_at = $2 WHERE id = $3 AND status = $4`,
		model.StatusRunning, claimedAt, id, model.StatusPending)
	if err != nil {
		return false, fmt.Errorf("pgSubmissionRepository.ClaimPending: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("pgSubmissionRepository.ClaimPending rows: %w", err)
	}
	return n == 1, nil
}

func (r *pgSubmissionRepository) Finish(ctx context.Context, id string, v Verdict, processedAt time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE submissions
		 SET status = $1, error_message = $2, test_cases_passed = $3, total_test_cases = $4, processed_at = $5
		 WHERE id = $6 AND status = $7`,
		v.Status, v.ErrorMessage, v.TestCasesPassed, v.TotalTestCases, processedAt, id, model.StatusRunning)
	if err != nil {
		return false, fmt.Errorf("pgSubmissionRepository.Finish: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("pgSubmissionRepository.Finish rows: %w", err)
	}
	return n == 1, nil
}

func (r *pgSubmissionRepository) ReclaimStale(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`UPDATE submissions SET status = $1, claimed_at = NULL
		 WHERE status = $2 AND claimed_at < $3
		 RETURNING id`,
		model.StatusPending, model.StatusRunning, cutoff)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ReclaimStale: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.ReclaimStale scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ReclaimStale rows: %w", err)
	}
	return ids, nil
}

func (r *pgSubmissionRepository) ListByContest(ctx context.Context, contestID string) ([]model.Submission, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, username, contest_id, problem_id, language, status, test_cases_passed, total_test_cases, submitted_at, processed_at
		 FROM submissions WHERE contest_id = $1 ORDER BY submitted_at ASC`, contestID)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListByContest: %w", err)
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		var s model.Submission
		if err := rows.Scan(&s.ID, &s.Username, &s.ContestID, &s.ProblemID, &s.Language, &s.Status,
			&s.TestCasesPassed, &s.TotalTestCases, &s.SubmittedAt, &s.ProcessedAt); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.ListByContest scan: %w", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.ListByContest rows: %w", err)
	}
	return subs, nil
}
