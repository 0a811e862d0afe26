package ports

import (
	"RailSettle/internal/core/domain"
	"context"

	"github.com/google/uuid"
)

// MicrodepositRepository defines persistence for micro-deposit
// verifications. Attempt counters are mutated through Update with
// expected-version semantics so concurrent verify calls cannot both
// consume the same attempt.
type MicrodepositRepository interface {
	// Create saves a new verification record.
	Create(ctx context.Context, v *domain.MicrodepositVerification) error

	// GetByAccountID finds the latest verification for an account.
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.MicrodepositVerification, error)

	// Update writes the verification back, guarded by v.Version.
	Update(ctx context.Context, v *domain.MicrodepositVerification) error
}
