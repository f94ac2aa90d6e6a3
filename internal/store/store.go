// Package store persists challenge data in SQLite: submissions, test
// cases and per-user progress. It implements the grader's store
// interfaces.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/LuthoYRN/isipython/internal/grader"
)

const schema = `
CREATE TABLE IF NOT EXISTS submissions (
	id           TEXT PRIMARY KEY,
	challenge_id TEXT NOT NULL,
	user_id      TEXT NOT NULL,
	source       TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'pending',
	score        INTEGER NOT NULL DEFAULT 0,
	tests_passed INTEGER NOT NULL DEFAULT 0,
	tests_total  INTEGER NOT NULL DEFAULT 0,
	created_at   TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS test_cases (
	id           TEXT PRIMARY KEY,
	challenge_id TEXT NOT NULL,
	input        TEXT NOT NULL DEFAULT '',
	expected     TEXT NOT NULL,
	weight       INTEGER NOT NULL DEFAULT 1,
	hidden       INTEGER NOT NULL DEFAULT 0,
	example      INTEGER NOT NULL DEFAULT 0,
	explanation  TEXT NOT NULL DEFAULT '',
	position     INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_test_cases_challenge
	ON test_cases (challenge_id, position);

CREATE TABLE IF NOT EXISTS challenge_progress (
	user_id      TEXT NOT NULL,
	challenge_id TEXT NOT NULL,
	attempts     INTEGER NOT NULL DEFAULT 0,
	best_score   REAL NOT NULL DEFAULT 0,
	completed    INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (user_id, challenge_id)
);
`

// Store is a SQLite-backed challenge database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema
// exists. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Submission loads one submission by id.
func (s *Store) Submission(ctx context.Context, id string) (*grader.Submission, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, challenge_id, user_id, source FROM submissions WHERE id = ?`, id)

	var sub grader.Submission
	if err := row.Scan(&sub.ID, &sub.ChallengeID, &sub.UserID, &sub.Source); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("submission %s not found", id)
		}
		return nil, err
	}
	return &sub, nil
}

// UpdateSubmissionResults writes the grading outcome onto an existing
// submission row.
func (s *Store) UpdateSubmissionResults(ctx context.Context, id string, res grader.SubmissionResults) error {
	r, err := s.db.ExecContext(ctx,
		`UPDATE submissions SET status = ?, score = ?, tests_passed = ?, tests_total = ? WHERE id = ?`,
		res.Status, res.Score, res.TestsPassed, res.TestsTotal, id)
	if err != nil {
		return err
	}
	n, err := r.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("submission %s not found", id)
	}
	return nil
}

// SaveSubmission inserts a submission.
func (s *Store) SaveSubmission(ctx context.Context, sub *grader.Submission) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO submissions (id, challenge_id, user_id, source) VALUES (?, ?, ?, ?)`,
		sub.ID, sub.ChallengeID, sub.UserID, sub.Source)
	return err
}

// TestCases lists a challenge's test cases in their defined order.
func (s *Store) TestCases(ctx context.Context, challengeID string) ([]grader.TestCase, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, challenge_id, input, expected, weight, hidden, example, explanation
		 FROM test_cases WHERE challenge_id = ? ORDER BY position, id`, challengeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cases []grader.TestCase
	for rows.Next() {
		var tc grader.TestCase
		if err := rows.Scan(&tc.ID, &tc.ChallengeID, &tc.Input, &tc.Expected, &tc.Weight, &tc.Hidden, &tc.Example, &tc.Explanation); err != nil {
			return nil, err
		}
		cases = append(cases, tc)
	}
	return cases, rows.Err()
}

// SaveTestCase inserts one test case at the given position.
func (s *Store) SaveTestCase(ctx context.Context, tc *grader.TestCase, position int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO test_cases (id, challenge_id, input, expected, weight, hidden, example, explanation, position)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tc.ID, tc.ChallengeID, tc.Input, tc.Expected, tc.Weight, tc.Hidden, tc.Example, tc.Explanation, position)
	return err
}

// Progress loads a user's standing on a challenge. Returns nil (no
// error) when the user has never attempted it.
func (s *Store) Progress(ctx context.Context, userID, challengeID string) (*grader.Progress, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT user_id, challenge_id, attempts, best_score, completed
		 FROM challenge_progress WHERE user_id = ? AND challenge_id = ?`, userID, challengeID)

	var p grader.Progress
	if err := row.Scan(&p.UserID, &p.ChallengeID, &p.Attempts, &p.BestScore, &p.Completed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// SaveProgress upserts a user's standing on a challenge.
func (s *Store) SaveProgress(ctx context.Context, p *grader.Progress) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO challenge_progress (user_id, challenge_id, attempts, best_score, completed)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, challenge_id) DO UPDATE SET
			attempts = excluded.attempts,
			best_score = excluded.best_score,
			completed = excluded.completed`,
		p.UserID, p.ChallengeID, p.Attempts, p.BestScore, p.Completed)
	return err
}
