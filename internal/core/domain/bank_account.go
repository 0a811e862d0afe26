package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccountType is a custom type for our ENUM
type AccountType string

const (
	AccountTypeChecking AccountType = "checking"
	AccountTypeSavings  AccountType = "savings"
)

// HolderType distinguishes consumer from business accounts.
type HolderType string

const (
	HolderIndividual HolderType = "individual"
	HolderBusiness   HolderType = "business"
)

// VerificationMethod records how account ownership was (or will be) proven.
type VerificationMethod string

const (
	VerificationMethodInstant       VerificationMethod = "instant"
	VerificationMethodMicrodeposits VerificationMethod = "micro_deposits"
	VerificationMethodManual        VerificationMethod = "manual"
)

// VerificationStatus is the account's ownership-proof state machine ENUM.
type VerificationStatus string

const (
	VerificationUnverified VerificationStatus = "unverified"
	VerificationPending    VerificationStatus = "pending"
	VerificationVerified   VerificationStatus = "verified"
	VerificationFailed     VerificationStatus = "failed"
)

// BankAccount holds a counterparty bank account. The raw account and routing
// numbers never appear on this struct; VaultRef is the opaque token under
// which the vault stores them.
type BankAccount struct {
	ID                 uuid.UUID
	HolderName         string
	HolderType         HolderType
	AccountType        AccountType
	Country            string // ISO 3166-1 alpha-2
	Currency           string // ISO 4217
	VaultRef           string // Opaque vault token, never raw digits
	VerificationMethod VerificationMethod
	VerificationStatus VerificationStatus
	Active             bool
	Default            bool
	Version            int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Rail identifies a clearing/settlement network.
type Rail string

const (
	RailNACHA          Rail = "nacha"
	RailRTP            Rail = "rtp"
	RailFedNow         Rail = "fednow"
	RailSEPA           Rail = "sepa"
	RailSEPAInstant    Rail = "sepa_instant"
	RailBACS           Rail = "bacs"
	RailFasterPayments Rail = "faster_payments"
	RailNPP            Rail = "npp"
	RailBECS           Rail = "becs"
	RailEFT            Rail = "eft"
)

// Direction of money movement relative to the counterparty account.
type Direction string

const (
	DirectionDebit  Direction = "debit"
	DirectionCredit Direction = "credit"
	DirectionBoth   Direction = "both"
)

// Restriction is a capability restriction tag.
type Restriction string

const (
	RestrictionReviewRequired   Restriction = "review_required"
	RestrictionInstantBlocked   Restriction = "instant_blocked"
	RestrictionAmountRestricted Restriction = "amount_restricted"
	RestrictionSuspended        Restriction = "suspended"
)

// VerificationLevel grades how strongly ownership has been established.
type VerificationLevel string

const (
	VerificationLevelNone     VerificationLevel = "none"
	VerificationLevelBasic    VerificationLevel = "basic"
	VerificationLevelVerified VerificationLevel = "verified"
	VerificationLevelEnhanced VerificationLevel = "enhanced"
)

// CapabilityLimits are the per-direction amount ceilings, in cents.
type CapabilityLimits struct {
	MaxDebitCents  int64
	MaxCreditCents int64
	DailyCents     int64
}

// AccountCapabilities is derived, not stored authoritatively. It is
// recomputed on demand and goes stale after CapabilityStaleness.
type AccountCapabilities struct {
	AccountID         uuid.UUID
	CanDebit          bool
	CanCredit         bool
	SupportedRails    []Rail
	VerificationLevel VerificationLevel
	Limits            CapabilityLimits
	Restrictions      []Restriction
	ComputedAt        time.Time
}

// CapabilityStaleness is the window after which derived capabilities
// should be recomputed.
const CapabilityStaleness = 24 * time.Hour

// IsStale reports whether the capabilities need a refresh.
func (c *AccountCapabilities) IsStale(now time.Time) bool {
	return now.Sub(c.ComputedAt) > CapabilityStaleness
}

// HasRestriction reports whether the given restriction is present.
func (c *AccountCapabilities) HasRestriction(r Restriction) bool {
	for _, have := range c.Restrictions {
		if have == r {
			return true
		}
	}
	return false
}

// SupportsRail reports whether the given rail is in the supported set.
func (c *AccountCapabilities) SupportsRail(rail Rail) bool {
	for _, have := range c.SupportedRails {
		if have == rail {
			return true
		}
	}
	return false
}
