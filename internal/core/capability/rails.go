package capability

import "RailSettle/internal/core/domain"

// baseRails is the per-country starting rail list, in assumed cost
// order (cheapest first). Derivation always begins here and only ever
// narrows the set.
var baseRails = map[string][]domain.Rail{
	"US": {domain.RailNACHA, domain.RailRTP, domain.RailFedNow},
	"DE": {domain.RailSEPA, domain.RailSEPAInstant},
	"FR": {domain.RailSEPA, domain.RailSEPAInstant},
	"ES": {domain.RailSEPA, domain.RailSEPAInstant},
	"IT": {domain.RailSEPA, domain.RailSEPAInstant},
	"NL": {domain.RailSEPA, domain.RailSEPAInstant},
	"BE": {domain.RailSEPA, domain.RailSEPAInstant},
	"AT": {domain.RailSEPA, domain.RailSEPAInstant},
	"IE": {domain.RailSEPA, domain.RailSEPAInstant},
	"GB": {domain.RailBACS, domain.RailFasterPayments},
	"AU": {domain.RailBECS, domain.RailNPP},
	"NZ": {domain.RailEFT},
	"CA": {domain.RailEFT},
}

// instantRails settle in seconds and are the first to be stripped when
// trust in the account drops.
var instantRails = map[domain.Rail]bool{
	domain.RailRTP:         true,
	domain.RailFedNow:      true,
	domain.RailSEPAInstant: true,
	domain.RailNPP:         true,
}

// fastRails additionally covers same-day-adjacent networks stripped on
// a bad return history.
var fastRails = map[domain.Rail]bool{
	domain.RailRTP:            true,
	domain.RailFedNow:         true,
	domain.RailSEPAInstant:    true,
	domain.RailFasterPayments: true,
	domain.RailNPP:            true,
}

// debitCapable marks rails that can pull funds. Instant rails are
// push-only everywhere we operate.
var debitCapable = map[domain.Rail]bool{
	domain.RailNACHA: true,
	domain.RailSEPA:  true,
	domain.RailBACS:  true,
	domain.RailBECS:  true,
	domain.RailEFT:   true,
}

// highRiskReturnCodes are the return codes that put an account under
// review: unauthorized or revoked authorization signals.
var highRiskReturnCodes = map[string]bool{
	"R02": true, "R03": true, "R04": true,
	"R07": true, "R10": true, "R29": true,
}

// Policy constant limit table, in cents. These are set figures, not
// derived from anything.
const (
	consumerDebitLimitCents  = 250_00
	businessDebitLimitCents  = 1_000_00
	consumerCreditLimitCents = 1_000_00
	businessCreditLimitCents = 10_000_00
	consumerDailyLimitCents  = 500_00
	businessDailyLimitCents  = 5_000_00
)
