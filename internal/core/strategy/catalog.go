package strategy

import "RailSettle/internal/core/domain"

// DefaultCatalog returns the built-in rail profiles. Entries are
// immutable; callers get a fresh slice each time so nothing can
// mutate shared state.
func DefaultCatalog() []domain.SettlementStrategy {
	return []domain.SettlementStrategy{
		{
			Name:             "nacha_standard",
			Rail:             domain.RailNACHA,
			CostBasis:        domain.CostBasisFlat,
			FlatFeeCents:     25,
			SettlementDays:   3,
			Liability:        domain.LiabilityOriginator,
			ChargebackRisk:   true,
			ReturnWindowDays: 60,
			Directions:       []domain.Direction{domain.DirectionDebit, domain.DirectionCredit},
			Countries:        []string{"US"},
			MinAmountCents:   1,
			MaxAmountCents:   1_000_000_00,
		},
		{
			Name:             "nacha_same_day",
			Rail:             domain.RailNACHA,
			CostBasis:        domain.CostBasisFlat,
			FlatFeeCents:     100,
			SettlementDays:   1,
			SameDay:          true,
			Liability:        domain.LiabilityOriginator,
			ChargebackRisk:   true,
			ReturnWindowDays: 60,
			Directions:       []domain.Direction{domain.DirectionDebit, domain.DirectionCredit},
			Countries:        []string{"US"},
			MinAmountCents:   1,
			MaxAmountCents:   100_000_00, // same-day ACH per-entry cap
		},
		{
			Name:             "rtp",
			Rail:             domain.RailRTP,
			CostBasis:        domain.CostBasisFlat,
			FlatFeeCents:     45,
			SettlementDays:   0,
			Instant:          true,
			Liability:        domain.LiabilityOriginator,
			ReturnWindowDays: 1,
			Directions:       []domain.Direction{domain.DirectionCredit},
			Countries:        []string{"US"},
			MinAmountCents:   1,
			MaxAmountCents:   100_000_00,
			RequiresVerified: true,
		},
		{
			Name:             "fednow",
			Rail:             domain.RailFedNow,
			CostBasis:        domain.CostBasisFlat,
			FlatFeeCents:     45,
			SettlementDays:   0,
			Instant:          true,
			Liability:        domain.LiabilityOriginator,
			ReturnWindowDays: 1,
			Directions:       []domain.Direction{domain.DirectionCredit},
			Countries:        []string{"US"},
			MinAmountCents:   1,
			MaxAmountCents:   50_000_00,
			RequiresVerified: true,
		},
		{
			Name:             "sepa_standard",
			Rail:             domain.RailSEPA,
			CostBasis:        domain.CostBasisPercentage,
			PercentFee:       0.35,
			MinimumFeeCents:  30,
			MaximumFeeCents:  500,
			SettlementDays:   2,
			Liability:        domain.LiabilityOriginator,
			ChargebackRisk:   true,
			ReturnWindowDays: 56, // SEPA Core 8-week refund right
			Directions:       []domain.Direction{domain.DirectionDebit, domain.DirectionCredit},
			Countries:        []string{"DE", "FR", "ES", "IT", "NL", "BE", "AT", "IE"},
			MinAmountCents:   1,
			RequiresMandate:  true,
		},
		{
			Name:             "sepa_instant",
			Rail:             domain.RailSEPAInstant,
			CostBasis:        domain.CostBasisFlat,
			FlatFeeCents:     80,
			SettlementDays:   0,
			Instant:          true,
			Liability:        domain.LiabilityOriginator,
			ReturnWindowDays: 1,
			Directions:       []domain.Direction{domain.DirectionCredit},
			Countries:        []string{"DE", "FR", "ES", "IT", "NL", "BE", "AT", "IE"},
			MinAmountCents:   1,
			MaxAmountCents:   100_000_00,
			RequiresVerified: true,
		},
		{
			Name:             "faster_payments",
			Rail:             domain.RailFasterPayments,
			CostBasis:        domain.CostBasisFlat,
			FlatFeeCents:     35,
			SettlementDays:   0,
			Instant:          true,
			Liability:        domain.LiabilityOriginator,
			ReturnWindowDays: 1,
			Directions:       []domain.Direction{domain.DirectionCredit},
			Countries:        []string{"GB"},
			MinAmountCents:   1,
			MaxAmountCents:   1_000_000_00,
		},
		{
			Name:             "bacs",
			Rail:             domain.RailBACS,
			CostBasis:        domain.CostBasisFlat,
			FlatFeeCents:     20,
			SettlementDays:   3,
			Liability:        domain.LiabilityOriginator,
			ChargebackRisk:   true,
			ReturnWindowDays: 60,
			Directions:       []domain.Direction{domain.DirectionDebit, domain.DirectionCredit},
			Countries:        []string{"GB"},
			MinAmountCents:   1,
			RequiresMandate:  true,
		},
		{
			Name:             "npp",
			Rail:             domain.RailNPP,
			CostBasis:        domain.CostBasisFlat,
			FlatFeeCents:     40,
			SettlementDays:   0,
			Instant:          true,
			Liability:        domain.LiabilityOriginator,
			ReturnWindowDays: 1,
			Directions:       []domain.Direction{domain.DirectionCredit},
			Countries:        []string{"AU"},
			MinAmountCents:   1,
			RequiresVerified: true,
		},
		{
			Name:             "becs",
			Rail:             domain.RailBECS,
			CostBasis:        domain.CostBasisFlat,
			FlatFeeCents:     20,
			SettlementDays:   2,
			Liability:        domain.LiabilityOriginator,
			ChargebackRisk:   true,
			ReturnWindowDays: 30,
			Directions:       []domain.Direction{domain.DirectionDebit, domain.DirectionCredit},
			Countries:        []string{"AU"},
			MinAmountCents:   1,
			RequiresMandate:  true,
		},
		{
			Name:             "eft",
			Rail:             domain.RailEFT,
			CostBasis:        domain.CostBasisPercentage,
			PercentFee:       0.5,
			MinimumFeeCents:  25,
			MaximumFeeCents:  400,
			SettlementDays:   2,
			Liability:        domain.LiabilityOriginator,
			ChargebackRisk:   true,
			ReturnWindowDays: 90,
			Directions:       []domain.Direction{domain.DirectionDebit, domain.DirectionCredit},
			Countries:        []string{"CA", "NZ"},
			MinAmountCents:   1,
		},
	}
}
