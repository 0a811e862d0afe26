package ports

import "context"

// NegativeList is the lookup of account fingerprints with prior
// confirmed bad returns. Lookups key on a hash of routing+account; the
// raw digits never reach the list backend.
//
// Callers must treat a Lookup error as "not listed" (fail open): the
// risk engine documents availability-over-strictness for this one
// check. Every caller should bound the call with a context timeout.
type NegativeList interface {
	// Lookup reports whether the fingerprint is on the list.
	Lookup(ctx context.Context, routingNumber, accountNumber string) (listed bool, err error)

	// Add puts the fingerprint on the list.
	Add(ctx context.Context, routingNumber, accountNumber, reason string) error
}
