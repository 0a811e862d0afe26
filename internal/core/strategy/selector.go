package strategy

import (
	"math"
	"sort"

	"RailSettle/internal/core/domain"

	"github.com/rs/zerolog"
)

// Priority orders surviving strategies.
type Priority string

const (
	PriorityCost        Priority = "cost"
	PrioritySpeed       Priority = "speed"
	PriorityReliability Priority = "reliability"
)

// Criteria filters the catalog for one prospective transfer. The
// caller states the account's standing; rails whose RequiresVerified
// or RequiresMandate flag is unmet are filtered out.
type Criteria struct {
	Country           string
	Direction         domain.Direction
	AmountCents       int64
	Priority          Priority
	RequireInstant    bool
	MaxSettlementDays int   // 0 = no bound
	MaxFeeCents       int64 // 0 = no bound
	AccountVerified   bool
	HasMandate        bool
}

// Option is one ranked result with its fee and speed estimate.
type Option struct {
	Strategy       domain.SettlementStrategy
	FeeCents       int64
	SettlementDays int
}

// Selector filters and ranks the strategy catalog.
type Selector struct {
	catalog []domain.SettlementStrategy
	log     zerolog.Logger
}

// NewSelector creates a selector over the given catalog. Pass
// DefaultCatalog() unless the deployment narrows the enabled set.
func NewSelector(catalog []domain.SettlementStrategy, baseLogger *zerolog.Logger) *Selector {
	return &Selector{
		catalog: catalog,
		log:     baseLogger.With().Str("component", "strategy_selector").Logger(),
	}
}

// Select returns the eligible strategies ranked per the criteria's
// priority. An empty result means no rail can clear this transfer.
func (s *Selector) Select(c Criteria) []Option {
	opts := s.eligible(c)

	switch c.Priority {
	case PrioritySpeed:
		sort.SliceStable(opts, func(i, j int) bool {
			return opts[i].SettlementDays < opts[j].SettlementDays
		})
	case PriorityReliability:
		sort.SliceStable(opts, func(i, j int) bool {
			a, b := opts[i].Strategy, opts[j].Strategy
			if a.ChargebackRisk != b.ChargebackRisk {
				return !a.ChargebackRisk
			}
			return a.ReturnWindowDays < b.ReturnWindowDays
		})
	default: // cost
		sort.SliceStable(opts, func(i, j int) bool {
			return opts[i].FeeCents < opts[j].FeeCents
		})
	}

	s.log.Debug().
		Str("country", c.Country).
		Str("direction", string(c.Direction)).
		Int64("amount_cents", c.AmountCents).
		Int("options", len(opts)).
		Msg("Strategies ranked")

	return opts
}

// EstimateCosts returns the fee for every eligible strategy sorted by
// fee ascending, independent of any priority. Comparison UIs consume
// this directly, so verification and mandate requirements are treated
// as satisfied: the list answers "what would each rail cost", not
// "which rail can this account use today".
func (s *Selector) EstimateCosts(country string, direction domain.Direction, amountCents int64) []Option {
	opts := s.eligible(Criteria{
		Country:         country,
		Direction:       direction,
		AmountCents:     amountCents,
		AccountVerified: true,
		HasMandate:      true,
	})
	sort.SliceStable(opts, func(i, j int) bool {
		return opts[i].FeeCents < opts[j].FeeCents
	})
	return opts
}

func (s *Selector) eligible(c Criteria) []Option {
	var opts []Option
	for _, st := range s.catalog {
		if !st.SupportsCountry(c.Country) || !st.SupportsDirection(c.Direction) {
			continue
		}
		if c.AmountCents < st.MinAmountCents {
			continue
		}
		if st.MaxAmountCents > 0 && c.AmountCents > st.MaxAmountCents {
			continue
		}
		if c.RequireInstant && !st.Instant {
			continue
		}
		if st.RequiresVerified && !c.AccountVerified {
			continue
		}
		if st.RequiresMandate && !c.HasMandate {
			continue
		}
		if c.MaxSettlementDays > 0 && st.SettlementDays > c.MaxSettlementDays {
			continue
		}
		fee := Fee(&st, c.AmountCents)
		if c.MaxFeeCents > 0 && fee > c.MaxFeeCents {
			continue
		}
		opts = append(opts, Option{Strategy: st, FeeCents: fee, SettlementDays: st.SettlementDays})
	}
	return opts
}

// Fee computes the fee in cents for a given amount. Percentage fees
// round half away from zero, then clamp to the strategy's fee floor
// and ceiling. Tiered pricing is not implemented and falls back to the
// flat fee.
func Fee(st *domain.SettlementStrategy, amountCents int64) int64 {
	switch st.CostBasis {
	case domain.CostBasisPercentage:
		fee := int64(math.Round(float64(amountCents) * st.PercentFee / 100))
		if st.MinimumFeeCents > 0 && fee < st.MinimumFeeCents {
			fee = st.MinimumFeeCents
		}
		if st.MaximumFeeCents > 0 && fee > st.MaximumFeeCents {
			fee = st.MaximumFeeCents
		}
		return fee
	case domain.CostBasisTiered:
		// TODO(tiered pricing): needs the published tier tables per rail.
		return st.FlatFeeCents
	default:
		return st.FlatFeeCents
	}
}
