package ports

import (
	"RailSettle/internal/core/domain"
	"context"
	"time"

	"github.com/google/uuid"
)

// TransferUsage is the aggregate over usable transfers inside a window.
// A window containing no transfers yields the zero value; a store
// failure is surfaced as an error, never coerced to zero usage.
type TransferUsage struct {
	Count       int64
	AmountCents int64
}

// UsageScope names the rows an aggregate query covers. MandateID nil
// scopes by account only. Windows are half-open [From, To) in UTC.
type UsageScope struct {
	AccountID uuid.UUID
	MandateID *uuid.UUID
	Direction domain.Direction
	From      time.Time
	To        time.Time
}

// ReturnRecord is one returned transfer inside a lookback window.
type ReturnRecord struct {
	Code       string
	ReturnedAt time.Time
}

// TransferRepository defines the persistence operations for transfers,
// including the aggregate queries the mandate and risk engines consume.
type TransferRepository interface {
	// Create saves a new transfer.
	Create(ctx context.Context, t *domain.BankTransfer) error

	// GetByID finds a transfer by its internal UUID.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.BankTransfer, error)

	// Update writes the transfer back, guarded by t.Version.
	Update(ctx context.Context, t *domain.BankTransfer) error

	// UsageInWindow counts and sums usable transfers (not failed,
	// returned or cancelled) inside the scope's window.
	UsageInWindow(ctx context.Context, scope UsageScope) (TransferUsage, error)

	// ReturnsSince lists returned transfers for the account since the
	// given instant, newest first.
	ReturnsSince(ctx context.Context, accountID uuid.UUID, since time.Time) ([]ReturnRecord, error)

	// ListPending returns pending transfers for batching, oldest first.
	ListPending(ctx context.Context, limit int) ([]*domain.BankTransfer, error)
}

// RiskEvent is one persisted risk assessment outcome.
type RiskEvent struct {
	ID             uuid.UUID
	TransferID     uuid.UUID
	AccountID      uuid.UUID
	Score          int
	Recommendation domain.RiskRecommendation
	Flags          []string
	AssessedAt     time.Time
}

// RiskEventRepository records assessment outcomes for audit.
type RiskEventRepository interface {
	Insert(ctx context.Context, ev *RiskEvent) error
}
