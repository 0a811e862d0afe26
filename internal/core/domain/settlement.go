package domain

// CostBasis selects the fee formula for a settlement strategy.
type CostBasis string

const (
	CostBasisFlat       CostBasis = "flat"
	CostBasisPercentage CostBasis = "percentage"
	CostBasisTiered     CostBasis = "tiered"
)

// LiabilityModel records which party bears financial responsibility for
// a reversed transfer on this rail.
type LiabilityModel string

const (
	LiabilityOriginator LiabilityModel = "originator"
	LiabilityReceiver   LiabilityModel = "receiver"
	LiabilityShared     LiabilityModel = "shared"
)

// SettlementStrategy is a named rail profile. Catalog entries are
// immutable; nothing per-transfer is stored here.
type SettlementStrategy struct {
	Name string
	Rail Rail

	CostBasis       CostBasis
	FlatFeeCents    int64
	PercentFee      float64 // e.g. 0.8 means 0.8%
	MinimumFeeCents int64   // 0 = no floor
	MaximumFeeCents int64   // 0 = no ceiling

	SettlementDays   int
	Instant          bool
	SameDay          bool
	Liability        LiabilityModel
	ChargebackRisk   bool
	ReturnWindowDays int

	Directions []Direction
	Countries  []string

	MinAmountCents int64
	MaxAmountCents int64 // 0 = no ceiling

	RequiresVerified bool
	RequiresMandate  bool
}

// SupportsCountry reports catalog membership for the given country.
func (s *SettlementStrategy) SupportsCountry(country string) bool {
	for _, c := range s.Countries {
		if c == country {
			return true
		}
	}
	return false
}

// SupportsDirection reports whether the strategy clears the given
// direction.
func (s *SettlementStrategy) SupportsDirection(d Direction) bool {
	for _, have := range s.Directions {
		if have == d || have == DirectionBoth {
			return true
		}
	}
	return false
}
