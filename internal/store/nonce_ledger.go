// Package store provides the NonceLedger interface for at-most-once payload application.
package store

import (
	"context"
	"time"
)

// NonceRecord is one claimed dispatch nonce.
type NonceRecord struct {
	Consumer  string    `json:"consumer"`
	Nonce     string    `json:"nonce"`
	ClaimedAt time.Time `json:"claimed_at"`
}

// NonceLedger records which payload nonces a consumer has already applied.
type NonceLedger interface {
	// ClaimNonce records nonce for consumer. Returns false if it was already claimed.
	ClaimNonce(ctx context.Context, consumer, nonce string) (bool, error)

	// ReleaseNonce forgets a claim so that a failed application can be retried.
	ReleaseNonce(ctx context.Context, consumer, nonce string) error
}
