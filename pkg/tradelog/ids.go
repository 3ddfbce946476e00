package tradelog

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDProvider issues identifiers for new stocks and transactions.
type IDProvider interface {
	NewID() string
}

// UUIDProvider issues random UUIDv4 strings.
type UUIDProvider struct{}

// NewID implements IDProvider.
func (UUIDProvider) NewID() string {
	return uuid.NewString()
}

// SequenceProvider issues "<prefix>-1", "<prefix>-2", ... and is meant for
// tests that need deterministic ordering of equal timestamps.
type SequenceProvider struct {
	Prefix string
	n      atomic.Int64
}

// NewID implements IDProvider.
func (p *SequenceProvider) NewID() string {
	return fmt.Sprintf("%s-%04d", p.Prefix, p.n.Add(1))
}
