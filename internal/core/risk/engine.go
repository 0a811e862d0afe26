package risk

import (
	"context"
	"fmt"
	"time"

	"RailSettle/internal/core/domain"
	"RailSettle/internal/core/mandate"
	"RailSettle/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Config carries the scoring thresholds. Zero values are replaced by
// DefaultConfig figures at construction.
type Config struct {
	BlockThreshold  int
	ReviewThreshold int

	DailyCountMax         int64
	DailyAmountMaxCents   int64
	MonthlyCountMax       int64
	MonthlyAmountMaxCents int64

	FirstTransferMaxCents int64
	ReturnLookback        time.Duration
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		BlockThreshold:        80,
		ReviewThreshold:       50,
		DailyCountMax:         10,
		DailyAmountMaxCents:   5_000_00,
		MonthlyCountMax:       60,
		MonthlyAmountMaxCents: 20_000_00,
		FirstTransferMaxCents: 1_000_00,
		ReturnLookback:        90 * 24 * time.Hour,
	}
}

// MandateValidator is the slice of the mandate engine the risk engine
// consumes. *mandate.Engine satisfies it.
type MandateValidator interface {
	ValidateForTransfer(ctx context.Context, m *domain.Mandate, amountCents int64, direction domain.Direction, now time.Time) (mandate.ValidationResult, error)
}

// Engine aggregates independent transfer-time checks into a score and
// an approve/review/block recommendation.
type Engine struct {
	cfg          Config
	transfers    ports.TransferRepository
	negativeList ports.NegativeList
	vault        ports.Vault
	mandates     MandateValidator
	events       ports.RiskEventRepository
	bus          ports.EventBus
	log          zerolog.Logger
}

// NewEngine creates a risk engine. events and bus may be nil when no
// audit sink is wired.
func NewEngine(cfg Config, transfers ports.TransferRepository, negativeList ports.NegativeList, vault ports.Vault, mandates MandateValidator, events ports.RiskEventRepository, bus ports.EventBus, baseLogger *zerolog.Logger) *Engine {
	def := DefaultConfig()
	if cfg.BlockThreshold == 0 {
		cfg.BlockThreshold = def.BlockThreshold
	}
	if cfg.ReviewThreshold == 0 {
		cfg.ReviewThreshold = def.ReviewThreshold
	}
	if cfg.ReturnLookback == 0 {
		cfg.ReturnLookback = def.ReturnLookback
	}
	return &Engine{
		cfg:          cfg,
		transfers:    transfers,
		negativeList: negativeList,
		vault:        vault,
		mandates:     mandates,
		events:       events,
		bus:          bus,
		log:          baseLogger.With().Str("component", "risk_engine").Logger(),
	}
}

// AssessInput carries one prospective transfer.
type AssessInput struct {
	Transfer *domain.BankTransfer
	Account  *domain.BankAccount
	Mandate  *domain.Mandate // nil when no mandate attached
	Now      time.Time
}

// AssessTransferRisk runs every check and merges the results. A vault
// decrypt failure or a usage-aggregate store failure aborts the
// assessment with an error; only the negative-list lookup fails open.
func (e *Engine) AssessTransferRisk(ctx context.Context, in AssessInput) (*domain.RiskAssessmentResult, error) {
	now := in.Now.UTC()

	checks := make([]domain.RiskCheckResult, 0, 6)
	checks = append(checks, e.checkVerification(in.Account))

	neg, err := e.checkNegativeList(ctx, in.Account)
	if err != nil {
		return nil, err
	}
	checks = append(checks, neg)

	velocity, firstXfer, err := e.checkVelocity(ctx, in, now)
	if err != nil {
		return nil, err
	}
	checks = append(checks, velocity, firstXfer)

	returns, err := e.checkReturnHistory(ctx, in.Account.ID, now)
	if err != nil {
		return nil, err
	}
	checks = append(checks, returns)

	if in.Mandate != nil {
		mc, err := e.checkMandate(ctx, in, now)
		if err != nil {
			return nil, err
		}
		checks = append(checks, mc)
	}

	res := merge(in, checks, now, e.cfg)

	e.record(ctx, res)

	e.log.Info().
		Str("transfer_id", res.TransferID.String()).
		Int("score", res.TotalScore).
		Str("recommendation", string(res.Recommendation)).
		Strs("flags", res.AllFlags).
		Msg("Transfer risk assessed")

	return res, nil
}

func (e *Engine) checkVerification(acct *domain.BankAccount) domain.RiskCheckResult {
	c := domain.RiskCheckResult{Name: "verification", Passed: true}
	if !acct.Active {
		c.Passed = false
		c.Flags = append(c.Flags, "account_inactive")
	}
	switch acct.VerificationStatus {
	case domain.VerificationVerified:
		if acct.VerificationMethod == domain.VerificationMethodManual {
			c.Score += 10
			c.Flags = append(c.Flags, "manually_verified")
		}
	default:
		c.Passed = false
		c.Score += 50
		c.Flags = append(c.Flags, "account_unverified")
	}
	return c
}

// checkNegativeList fails open: a lookup error scores zero and only
// flags the degraded check. Availability beats strictness here because
// a down list would otherwise halt all transfers. The vault decrypt,
// by contrast, is fatal.
func (e *Engine) checkNegativeList(ctx context.Context, acct *domain.BankAccount) (domain.RiskCheckResult, error) {
	c := domain.RiskCheckResult{Name: "negative_list", Passed: true}

	details, err := ports.OpenVaultRef(e.vault, acct.VaultRef)
	if err != nil {
		return c, fmt.Errorf("negative list check: %w", err)
	}

	listed, err := e.negativeList.Lookup(ctx, details.RoutingNumber, details.AccountNumber)
	if err != nil {
		e.log.Warn().Err(err).Str("account_id", acct.ID.String()).Msg("Negative list lookup failed, treating as not listed")
		c.Flags = append(c.Flags, "negative_list_check_failed")
		return c, nil
	}
	if listed {
		c.Passed = false
		c.Score = 100
		c.Flags = append(c.Flags, "negative_list_match")
	}
	return c, nil
}

func (e *Engine) checkVelocity(ctx context.Context, in AssessInput, now time.Time) (velocity, first domain.RiskCheckResult, err error) {
	velocity = domain.RiskCheckResult{Name: "velocity", Passed: true}
	first = domain.RiskCheckResult{Name: "first_transfer", Passed: true}

	day, err := e.usage(ctx, in, startOfDay(now), now)
	if err != nil {
		return velocity, first, err
	}
	month, err := e.usage(ctx, in, startOfMonth(now), now)
	if err != nil {
		return velocity, first, err
	}
	lifetime, err := e.usage(ctx, in, time.Time{}, now)
	if err != nil {
		return velocity, first, err
	}

	amount := in.Transfer.AmountCents
	if e.cfg.DailyCountMax > 0 && day.Count+1 > e.cfg.DailyCountMax {
		velocity.Score += 20
		velocity.Flags = append(velocity.Flags, "daily_count_exceeded")
	}
	if e.cfg.DailyAmountMaxCents > 0 && day.AmountCents+amount > e.cfg.DailyAmountMaxCents {
		velocity.Score += 40
		velocity.Flags = append(velocity.Flags, "daily_amount_exceeded")
	}
	if e.cfg.MonthlyCountMax > 0 && month.Count+1 > e.cfg.MonthlyCountMax {
		velocity.Score += 20
		velocity.Flags = append(velocity.Flags, "monthly_count_exceeded")
	}
	if e.cfg.MonthlyAmountMaxCents > 0 && month.AmountCents+amount > e.cfg.MonthlyAmountMaxCents {
		velocity.Score += 40
		velocity.Flags = append(velocity.Flags, "monthly_amount_exceeded")
	}

	// A first transfer never blocks on its own.
	if lifetime.Count == 0 {
		first.Flags = append(first.Flags, "first_transfer")
		if e.cfg.FirstTransferMaxCents > 0 && amount > e.cfg.FirstTransferMaxCents {
			first.Score += 30
			first.Flags = append(first.Flags, "first_transfer_large_amount")
		}
	}
	return velocity, first, nil
}

func (e *Engine) checkReturnHistory(ctx context.Context, accountID uuid.UUID, now time.Time) (domain.RiskCheckResult, error) {
	c := domain.RiskCheckResult{Name: "return_history", Passed: true}

	records, err := e.transfers.ReturnsSince(ctx, accountID, now.Add(-e.cfg.ReturnLookback))
	if err != nil {
		return c, fmt.Errorf("return history lookup: %w", err)
	}
	for _, r := range records {
		c.Score += 15
		if highRiskReturnCodes[r.Code] {
			c.Score += 30
			c.Flags = appendUnique(c.Flags, "high_risk_return_"+r.Code)
		}
	}
	if len(records) > 0 {
		c.Flags = appendUnique(c.Flags, "recent_returns")
	}
	return c, nil
}

func (e *Engine) checkMandate(ctx context.Context, in AssessInput, now time.Time) (domain.RiskCheckResult, error) {
	c := domain.RiskCheckResult{Name: "mandate_limits", Passed: true}

	v, err := e.mandates.ValidateForTransfer(ctx, in.Mandate, in.Transfer.AmountCents, in.Transfer.Direction, now)
	if err != nil {
		return c, fmt.Errorf("mandate check: %w", err)
	}
	if !v.Valid {
		// Any mandate breach is a hard fail.
		c.Passed = false
		c.Score = 100
		c.Flags = append(c.Flags, "mandate_limit_breach")
	}
	return c, nil
}

func merge(in AssessInput, checks []domain.RiskCheckResult, now time.Time, cfg Config) *domain.RiskAssessmentResult {
	res := &domain.RiskAssessmentResult{
		TransferID: in.Transfer.ID,
		AccountID:  in.Account.ID,
		Checks:     checks,
		AssessedAt: now,
	}

	total := 0
	anyFailed := false
	for _, c := range checks {
		total += c.Score
		if !c.Passed {
			anyFailed = true
		}
		for _, f := range c.Flags {
			res.AllFlags = appendUnique(res.AllFlags, f)
		}
	}
	if total > 100 {
		total = 100
	}
	res.TotalScore = total

	switch {
	case anyFailed || total >= cfg.BlockThreshold:
		res.Recommendation = domain.RecommendBlock
	case total >= cfg.ReviewThreshold:
		res.Recommendation = domain.RecommendReview
	default:
		res.Recommendation = domain.RecommendApprove
	}
	return res
}

// record persists and publishes the outcome, best effort. Assessment
// results are already returned to the caller; audit sink failures are
// logged, not propagated.
func (e *Engine) record(ctx context.Context, res *domain.RiskAssessmentResult) {
	if e.events != nil {
		ev := &ports.RiskEvent{
			ID:             uuid.New(),
			TransferID:     res.TransferID,
			AccountID:      res.AccountID,
			Score:          res.TotalScore,
			Recommendation: res.Recommendation,
			Flags:          res.AllFlags,
			AssessedAt:     res.AssessedAt,
		}
		if err := e.events.Insert(ctx, ev); err != nil {
			e.log.Error().Err(err).Str("transfer_id", res.TransferID.String()).Msg("Failed to persist risk event")
		}
	}
	if e.bus != nil {
		_ = e.bus.Publish(ctx, ports.TopicRiskAssessed, res)
	}
}

func (e *Engine) usage(ctx context.Context, in AssessInput, from, to time.Time) (ports.TransferUsage, error) {
	u, err := e.transfers.UsageInWindow(ctx, ports.UsageScope{
		AccountID: in.Account.ID,
		Direction: in.Transfer.Direction,
		From:      from,
		To:        to,
	})
	if err != nil {
		return ports.TransferUsage{}, fmt.Errorf("velocity lookup: %w", err)
	}
	return u, nil
}

func appendUnique(flags []string, f string) []string {
	for _, have := range flags {
		if have == f {
			return flags
		}
	}
	return append(flags, f)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
