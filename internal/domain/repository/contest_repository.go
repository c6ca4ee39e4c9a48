package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"codearena/internal/common"
	"codearena/internal/domain/model"
)

// ContestRepository is the persistence contract for contests and their
// problems. Contests are immutable once created; there is no update or
// delete in scope.
type ContestRepository interface {
	CreateContest(ctx context.Context, contest *model.Contest) error
	FindContestByID(ctx context.Context, contestID string) (*model.Contest, error)
}

type pgContestRepository struct {
	db *sql.DB
}

func NewPgContestRepository(db *sql.DB) ContestRepository {
	return &pgContestRepository{db: db}
}

func (r *pgContestRepository) CreateContest(ctx context.Context, c *model.Contest) error {
	if err := validateContest(c); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgContestRepository.CreateContest begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO contests (contest_id, name, description, start_time, end_time)
		 VALUES ($1, $2, $3, $4, $5)`,
		c.ContestID, c.Name, c.Description, c.StartTime, c.EndTime)
	if err != nil {
		return fmt.Errorf("pgContestRepository.CreateContest insert contest: %w", err)
	}

	for i, p := range c.Problems {
		inputs, err := json.Marshal(p.InputTestCases)
		if err != nil {
			return fmt.Errorf("pgContestRepository.CreateContest marshal inputs: %w", err)
		}
		outputs, err := json.Marshal(p.ExpectedOutputs)
		if err != nil {
			return fmt.Errorf("pgContestRepository.CreateContest marshal outputs: %w", err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO problems (contest_id, problem_id, title, description, input_test_cases, expected_outputs, time_limit_seconds, memory_limit_mb, sort_order)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			c.ContestID, p.ProblemID, p.Title, p.Description, inputs, outputs, p.TimeLimitSeconds, p.MemoryLimitMB, i)
		if err != nil {
			return fmt.Errorf("pgContestRepository.CreateContest insert problem %s: %w", p.ProblemID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("pgContestRepository.CreateContest commit: %w", err)
	}
	return nil
}

func (r *pgContestRepository) FindContestByID(ctx context.Context, contestID string) (*model.Contest, error) {
	contest := &model.Contest{}
	err := r.db.QueryRowContext(ctx,
		`SELECT contest_id, name, description, start_time, end_time
		 FROM contests WHERE contest_id = $1`, contestID).
		Scan(&contest.ContestID, &contest.Name, &contest.Description, &contest.StartTime, &contest.EndTime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrContestNotFound
		}
		return nil, fmt.Errorf("pgContestRepository.FindContestByID: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT problem_id, title, description, input_test_cases, expected_outputs, time_limit_seconds, memory_limit_mb
		 FROM problems WHERE contest_id = $1 ORDER BY sort_order ASC`, contestID)
	if err != nil {
		return nil, fmt.Errorf("pgContestRepository.FindContestByID problems: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p model.Problem
		var inputs, outputs []byte
		if err := rows.Scan(&p.ProblemID, &p.Title, &p.Description, &inputs, &outputs, &p.TimeLimitSeconds, &p.MemoryLimitMB); err != nil {
			return nil, fmt.Errorf("pgContestRepository.FindContestByID scan: %w", err)
		}
		if err := json.Unmarshal(inputs, &p.InputTestCases); err != nil {
			return nil, fmt.Errorf("pgContestRepository.FindContestByID unmarshal inputs: %w", err)
		}
		if err := json.Unmarshal(outputs, &p.ExpectedOutputs); err != nil {
			return nil, fmt.Errorf("pgContestRepository.FindContestByID unmarshal outputs: %w", err)
		}
		contest.Problems = append(contest.Problems, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgContestRepository.FindContestByID rows: %w", err)
	}
	return contest, nil
}

func validateContest(c *model.Contest) error {
	if c.ContestID == "" {
		return common.Errorf("contest id is required")
	}
	if !c.EndTime.After(c.StartTime) {
		return common.Errorf("contest %s: end time must be after start time", c.ContestID)
	}
	for _, p := range c.Problems {
		if len(p.InputTestCases) != len(p.ExpectedOutputs) {
			return common.Errorf("problem %s: %d inputs but %d expected outputs",
				p.ProblemID, len(p.InputTestCases), len(p.ExpectedOutputs))
		}
		if p.TimeLimitSeconds <= 0 || p.MemoryLimitMB <= 0 {
			return common.Errorf("problem %s: limits must be positive", p.ProblemID)
		}
	}
	return nil
}
