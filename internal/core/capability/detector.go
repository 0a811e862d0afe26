package capability

import (
	"fmt"
	"time"

	"RailSettle/internal/core/domain"

	"github.com/rs/zerolog"
)

// Detector derives what an account may do from country, account type,
// verification state and return history. Capabilities are recomputed
// on demand; callers should refresh after domain.CapabilityStaleness.
type Detector struct {
	log zerolog.Logger
}

// NewDetector creates a capability detector.
func NewDetector(baseLogger *zerolog.Logger) *Detector {
	return &Detector{
		log: baseLogger.With().Str("component", "capability_detector").Logger(),
	}
}

// DetectInput carries everything the derivation reads.
type DetectInput struct {
	Account     *domain.BankAccount
	ReturnCodes []string // return history, most recent first
	Suspended   bool
	Now         time.Time
}

// Detect runs the derivation. The rail set only ever narrows from the
// per-country base list.
func (d *Detector) Detect(in DetectInput) domain.AccountCapabilities {
	acct := in.Account

	rails := append([]domain.Rail(nil), baseRails[acct.Country]...)

	caps := domain.AccountCapabilities{
		AccountID:  acct.ID,
		CanCredit:  true,
		ComputedAt: in.Now,
	}
	for _, r := range rails {
		if debitCapable[r] {
			caps.CanDebit = true
			break
		}
	}

	// Regulation D analogue: US savings accounts are not debited over
	// instant rails, and keep nacha for credits only.
	if acct.Country == "US" && acct.AccountType == domain.AccountTypeSavings {
		caps.CanDebit = false
		rails = filterRails(rails, func(r domain.Rail) bool {
			return !debitCapable[r] || r == domain.RailNACHA
		})
	}

	caps.VerificationLevel = verificationLevel(acct)
	if acct.VerificationStatus != domain.VerificationVerified {
		caps.CanDebit = false
		rails = filterRails(rails, func(r domain.Rail) bool { return !instantRails[r] })
	}

	highRisk := false
	for _, code := range in.ReturnCodes {
		if highRiskReturnCodes[code] {
			highRisk = true
			break
		}
	}
	if highRisk {
		caps.Restrictions = append(caps.Restrictions,
			domain.RestrictionReviewRequired, domain.RestrictionInstantBlocked)
		rails = filterRails(rails, func(r domain.Rail) bool { return !fastRails[r] })
	}
	if len(in.ReturnCodes) >= 3 {
		caps.Restrictions = append(caps.Restrictions, domain.RestrictionAmountRestricted)
	}
	if acct.HolderType != domain.HolderBusiness && !caps.HasRestriction(domain.RestrictionAmountRestricted) {
		caps.Restrictions = append(caps.Restrictions, domain.RestrictionAmountRestricted)
	}
	if in.Suspended {
		caps.Restrictions = append(caps.Restrictions, domain.RestrictionSuspended)
	}

	caps.SupportedRails = rails
	caps.Limits = defaultLimits(acct.HolderType)

	d.log.Debug().
		Str("account_id", acct.ID.String()).
		Bool("can_debit", caps.CanDebit).
		Int("rails", len(rails)).
		Msg("Capabilities derived")

	return caps
}

// CanPerformTransfer checks a prospective transfer against derived
// capabilities. It short-circuits on the first failure with a
// human-readable reason.
func (d *Detector) CanPerformTransfer(caps *domain.AccountCapabilities, direction domain.Direction, rail domain.Rail, amountCents int64) (bool, string) {
	if direction == domain.DirectionDebit && !caps.CanDebit {
		return false, "account cannot be debited"
	}
	if direction == domain.DirectionCredit && !caps.CanCredit {
		return false, "account cannot be credited"
	}
	if !caps.SupportsRail(rail) {
		return false, fmt.Sprintf("rail %s is not available for this account", rail)
	}
	if direction == domain.DirectionDebit && amountCents > caps.Limits.MaxDebitCents {
		return false, fmt.Sprintf("amount exceeds the per-transfer debit limit of %d cents", caps.Limits.MaxDebitCents)
	}
	if direction == domain.DirectionCredit && amountCents > caps.Limits.MaxCreditCents {
		return false, fmt.Sprintf("amount exceeds the per-transfer credit limit of %d cents", caps.Limits.MaxCreditCents)
	}
	if caps.HasRestriction(domain.RestrictionSuspended) {
		return false, "account is suspended"
	}
	if instantRails[rail] && caps.HasRestriction(domain.RestrictionInstantBlocked) {
		return false, "instant rails are blocked for this account"
	}
	return true, ""
}

// SelectBestRail picks a rail for the given direction. "speed" prefers
// the first instant-capable rail; anything else takes the first
// eligible rail, relying on catalog order being cost order.
func (d *Detector) SelectBestRail(caps *domain.AccountCapabilities, direction domain.Direction, priority string) (domain.Rail, bool) {
	var eligible []domain.Rail
	for _, r := range caps.SupportedRails {
		if direction == domain.DirectionDebit && !debitCapable[r] {
			continue
		}
		eligible = append(eligible, r)
	}
	if len(eligible) == 0 {
		return "", false
	}
	if priority == "speed" {
		for _, r := range eligible {
			if instantRails[r] {
				return r, true
			}
		}
	}
	return eligible[0], true
}

func verificationLevel(acct *domain.BankAccount) domain.VerificationLevel {
	switch acct.VerificationStatus {
	case domain.VerificationVerified:
		if acct.VerificationMethod == domain.VerificationMethodInstant {
			return domain.VerificationLevelEnhanced
		}
		return domain.VerificationLevelVerified
	case domain.VerificationPending:
		return domain.VerificationLevelBasic
	default:
		return domain.VerificationLevelNone
	}
}

func defaultLimits(holder domain.HolderType) domain.CapabilityLimits {
	if holder == domain.HolderBusiness {
		return domain.CapabilityLimits{
			MaxDebitCents:  businessDebitLimitCents,
			MaxCreditCents: businessCreditLimitCents,
			DailyCents:     businessDailyLimitCents,
		}
	}
	return domain.CapabilityLimits{
		MaxDebitCents:  consumerDebitLimitCents,
		MaxCreditCents: consumerCreditLimitCents,
		DailyCents:     consumerDailyLimitCents,
	}
}

func filterRails(rails []domain.Rail, keep func(domain.Rail) bool) []domain.Rail {
	out := rails[:0]
	for _, r := range rails {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
