package postgres

import (
	"context"
	"fmt"
	"time"
)

// CountFailedAttempts returns the number of failed attempts for the
// identifier within the window and the time of the most recent one.
func (s *Store) CountFailedAttempts(ctx context.Context, identifier, kind string, since time.Time) (int, time.Time, error) {
	var count int
	var last *time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT count(*), max(attempted_at)
		 FROM login_attempts
		 WHERE identifier = $1 AND kind = $2 AND NOT success AND attempted_at > $3`,
		identifier, kind, since,
	).Scan(&count, &last)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("count attempts for %s: %w", identifier, err)
	}
	if last == nil {
		return count, time.Time{}, nil
	}
	return count, *last, nil
}

func (s *Store) RecordAttempt(ctx context.Context, identifier, kind, ip string, success bool, at time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO login_attempts (identifier, kind, ip_address, success, attempted_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		identifier, kind, ip, success, at)
	if err != nil {
		return fmt.Errorf("record attempt for %s: %w", identifier, err)
	}
	return nil
}

func (s *Store) ClearFailedAttempts(ctx context.Context, identifier, kind string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM login_attempts
		 WHERE identifier = $1 AND kind = $2 AND NOT success`,
		identifier, kind)
	if err != nil {
		return fmt.Errorf("clear attempts for %s: %w", identifier, err)
	}
	return nil
}

func (s *Store) PruneAttemptsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM login_attempts WHERE attempted_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune attempts: %w", err)
	}
	return tag.RowsAffected(), nil
}
