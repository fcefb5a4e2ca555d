package appointments

import (
	"context"
	"sync"

	"github.com/philview/philview/internal/store"
)

// Compile-time check that LastNonceLedger implements store.NonceLedger.
var _ store.NonceLedger = (*LastNonceLedger)(nil)

// LastNonceLedger remembers only the most recent nonce per consumer. A payload is skipped when
// its nonce equals the one applied last, which is enough for a single screen re-rendering the
// same payload but does not catch older replays. Use the store or Redis ledger for those.
type LastNonceLedger struct {
	mu   sync.Mutex
	last map[string]string
}

// NewLastNonceLedger creates an empty ledger.
func NewLastNonceLedger() *LastNonceLedger {
	return &LastNonceLedger{last: make(map[string]string)}
}

func (l *LastNonceLedger) ClaimNonce(ctx context.Context, consumer, nonce string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.last[consumer] == nonce {
		return false, nil
	}
	l.last[consumer] = nonce
	return true, nil
}

func (l *LastNonceLedger) ReleaseNonce(ctx context.Context, consumer, nonce string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.last[consumer] == nonce {
		delete(l.last, consumer)
	}
	return nil
}
