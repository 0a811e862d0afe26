package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransferStatus is the transfer lifecycle ENUM.
// pending -> processing -> settled | failed | returned; cancelled is
// reachable from pending only.
type TransferStatus string

const (
	TransferPending    TransferStatus = "pending"
	TransferProcessing TransferStatus = "processing"
	TransferSettled    TransferStatus = "settled"
	TransferFailed     TransferStatus = "failed"
	TransferReturned   TransferStatus = "returned"
	TransferCancelled  TransferStatus = "cancelled"
)

// UsableStatus reports whether a transfer in this status counts toward
// mandate and velocity aggregates. Failed, returned and cancelled
// transfers never consume limit headroom.
func (s TransferStatus) UsableStatus() bool {
	switch s {
	case TransferFailed, TransferReturned, TransferCancelled:
		return false
	default:
		return true
	}
}

// BankTransfer is one money movement against a counterparty account.
// AmountCents is always a non-negative integer in the currency's
// smallest unit.
type BankTransfer struct {
	ID          uuid.UUID
	AccountID   uuid.UUID
	MandateID   *uuid.UUID // Nullable
	Direction   Direction
	AmountCents int64
	Currency    string
	Provider    string // settlement strategy name, e.g. "nacha_standard"
	Status      TransferStatus

	ReturnCode   *string // Nullable, e.g. "R01"
	ReturnReason *string // Nullable

	RiskScore *int     // Nullable until assessed
	RiskFlags []string

	// NACHA trace linkage, set when the transfer is written to a batch.
	BatchID     *string
	TraceNumber *string

	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}
