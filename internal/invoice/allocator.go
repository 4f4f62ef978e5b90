// Package invoice allocates sequential invoice identifiers and renders
// invoices as HTML.
package invoice

import (
	"context"
	"fmt"
	"time"
)

// Prefix is the fixed first segment of every invoice identifier.
const Prefix = "TRI"

// Sequence is the source of post-increment counter values. The backing
// implementation must make the increment-and-read atomic; the allocator
// adds no synchronization of its own.
type Sequence interface {
	NextInvoiceNumber(ctx context.Context) (int64, error)
}

// Allocator hands out formatted invoice identifiers, one per call, never
// repeating. The counter is global: the year in the identifier is a label
// taken from the wall clock at allocation time, not a partition key, so
// numbering does not reset at year end.
type Allocator struct {
	seq Sequence
	now func() time.Time
}

// NewAllocator creates an allocator over the given sequence source.
func NewAllocator(seq Sequence) *Allocator {
	return &Allocator{seq: seq, now: time.Now}
}

// Next allocates the next invoice identifier, e.g. "TRI/2026/00042".
// Returns ErrStorageUnavailable (wrapped) if the store cannot be reached;
// in that case no number has been assigned to anything.
func (a *Allocator) Next(ctx context.Context) (string, error) {
	n, err := a.seq.NextInvoiceNumber(ctx)
	if err != nil {
		return "", err
	}
	return Format(a.now().Year(), n), nil
}

// Format renders an invoice identifier as PREFIX/YEAR/NNNNN. The number is
// zero-padded to 5 digits and simply widens beyond 99999.
func Format(year int, n int64) string {
	return fmt.Sprintf("%s/%d/%05d", Prefix, year, n)
}
