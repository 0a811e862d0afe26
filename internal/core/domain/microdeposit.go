package domain

import (
	"time"

	"github.com/google/uuid"
)

// MicrodepositStatus is the verification flow ENUM.
type MicrodepositStatus string

const (
	MicrodepositNotInitiated MicrodepositStatus = "not_initiated"
	MicrodepositPending      MicrodepositStatus = "pending"
	MicrodepositVerified     MicrodepositStatus = "verified"
	MicrodepositFailed       MicrodepositStatus = "failed"
	MicrodepositExpired      MicrodepositStatus = "expired"
)

// MicrodepositVerification tracks the two random test deposits sent to
// prove account ownership.
type MicrodepositVerification struct {
	ID        uuid.UUID
	AccountID uuid.UUID

	// The two amounts are minor-currency units in [1,99], guaranteed
	// distinct at generation time.
	Amount1Cents int
	Amount2Cents int

	SentAt    *time.Time // Nullable until deposits go out
	ExpiresAt *time.Time // Nullable

	Attempts    int
	MaxAttempts int

	VerifiedAt *time.Time // Nullable; set exactly once
	Failed     bool       // terminal: max attempts exceeded

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Status derives the current state. Precedence: verified > failed >
// not yet sent > expired > pending.
func (v *MicrodepositVerification) Status(now time.Time) MicrodepositStatus {
	switch {
	case v.VerifiedAt != nil:
		return MicrodepositVerified
	case v.Failed:
		return MicrodepositFailed
	case v.SentAt == nil:
		return MicrodepositNotInitiated
	case v.ExpiresAt != nil && now.After(*v.ExpiresAt):
		return MicrodepositExpired
	default:
		return MicrodepositPending
	}
}
