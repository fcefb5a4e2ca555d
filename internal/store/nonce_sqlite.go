package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Compile-time check that SQLiteStore implements NonceLedger.
var _ NonceLedger = (*SQLiteStore)(nil)

func (s *SQLiteStore) ClaimNonce(ctx context.Context, consumer, nonce string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO applied_nonces (consumer, nonce, claimed_at) VALUES (?, ?, ?)`,
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
		slog.Debug("SQLiteStore.ClaimNonce: nonce already claimed", "consumer", consumer, "nonce", nonce)
	}
	return n > 0, nil
}

func (s *SQLiteStore) ReleaseNonce(ctx context.Context, consumer, nonce string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM applied_nonces WHERE consumer = ? AND nonce = ?`, consumer, nonce)
	if err != nil {
		return fmt.Errorf("release nonce failed: %w", err)
	}
	return nil
}
