package ports

import (
	"RailSettle/internal/core/domain"
	"context"

	"github.com/google/uuid"
)

// MandateRepository defines the persistence operations for mandates.
type MandateRepository interface {
	// Create saves a new mandate.
	Create(ctx context.Context, m *domain.Mandate) error

	// GetByID finds a mandate by its internal UUID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Mandate, error)

	// Update writes the mandate back, guarded by m.Version.
	Update(ctx context.Context, m *domain.Mandate) error

	// IncrementUsage atomically bumps total_transfers and
	// total_amount_cents and sets last_used_at, enforcing lifetime caps
	// in the same statement. This is the store-side serialization that
	// closes the validate-then-record race between concurrent transfers
	// against one mandate. Returns ErrLimitExceeded when the caps would
	// be breached.
	IncrementUsage(ctx context.Context, id uuid.UUID, amountCents int64) error
}
