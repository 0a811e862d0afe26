package domain

import (
	"time"

	"github.com/google/uuid"
)

// MandateScope is a custom type for our ENUM
type MandateScope string

const (
	ScopeSingle    MandateScope = "single"    // usable at most once
	ScopeRecurring MandateScope = "recurring" // fixed schedule
	ScopeStanding  MandateScope = "standing"  // variable amounts on a schedule
	ScopeBlanket   MandateScope = "blanket"   // any transfer within limits
)

// MandateStatus is the mandate lifecycle ENUM.
type MandateStatus string

const (
	MandatePending   MandateStatus = "pending"
	MandateActive    MandateStatus = "active"
	MandateSuspended MandateStatus = "suspended"
	MandateRevoked   MandateStatus = "revoked"
	MandateExpired   MandateStatus = "expired"
)

// MandateLimits are the caps a transfer is validated against.
// Zero means "no cap" for every field.
type MandateLimits struct {
	PerTransferMinCents int64 `json:"per_transfer_min_cents,omitempty"`
	PerTransferMaxCents int64 `json:"per_transfer_max_cents,omitempty"`
	DailyCents          int64 `json:"daily_cents,omitempty"`
	WeeklyCents         int64 `json:"weekly_cents,omitempty"`
	MonthlyCents        int64 `json:"monthly_cents,omitempty"`
	YearlyCents         int64 `json:"yearly_cents,omitempty"`
	DailyCount          int64 `json:"daily_count,omitempty"`
	MonthlyCount        int64 `json:"monthly_count,omitempty"`
	LifetimeCents       int64 `json:"lifetime_cents,omitempty"`
	LifetimeCount       int64 `json:"lifetime_count,omitempty"`
}

// MandateEvidence is the authorization proof captured at signing.
type MandateEvidence struct {
	SignedAt       time.Time `json:"signed_at"`
	Signature      string    `json:"signature"`
	ConsentText    string    `json:"consent_text"`
	ConsentVersion string    `json:"consent_version"`
	IPAddress      string    `json:"ip_address"`
}

// Mandate is a customer's recorded authorization permitting transfers
// under stated limits.
type Mandate struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	Scope     MandateScope
	Direction Direction
	Rail      Rail
	Country   string
	Limits    MandateLimits
	Evidence  MandateEvidence

	EffectiveFrom time.Time
	ExpiresAt     *time.Time // Nullable
	Revocable     bool
	Status        MandateStatus

	// Usage counters. Monotonically increasing; only mutated after a
	// transfer is recorded as usable (not failed/returned/cancelled).
	TotalTransfers   int64
	TotalAmountCents int64
	LastUsedAt       *time.Time // Nullable

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CoversDirection reports whether the mandate authorizes the given
// transfer direction.
func (m *Mandate) CoversDirection(d Direction) bool {
	return m.Direction == DirectionBoth || m.Direction == d
}
