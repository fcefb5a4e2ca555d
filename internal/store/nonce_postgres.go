package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Compile-time check that PostgresStore implements NonceLedger.
var _ NonceLedger = (*PostgresStore)(nil)

func (s *PostgresStore) ClaimNonce(ctx context.Context, consumer, nonce string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO applied_nonces (consumer, nonce, claimed_at) VALUES ($1, $2, $3) ON CONFLICT (consumer, nonce) DO NOTHING`,
		consumer, nonce, time.Now(),
	)
	if err != nil {
		return false, fmt.Errorf("claim nonce failed: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("nonce rows affected check failed: %w", err)
	}
	if n == 0 {
		slog.Debug("PostgresStore.ClaimNonce: nonce already claimed", "consumer", consumer, "nonce", nonce)
	}
	return n > 0, nil
}

func (s *PostgresStore) ReleaseNonce(ctx context.Context, consumer, nonce string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM applied_nonces WHERE consumer = $1 AND nonce = $2`, consumer, nonce)
	if err != nil {
		return fmt.Errorf("release nonce failed: %w", err)
	}
	return nil
}
