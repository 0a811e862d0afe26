package mandate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"RailSettle/internal/core/domain"
	"RailSettle/internal/core/ports"

	"github.com/rs/zerolog"
)

var (
	// ErrNotRevocable is returned when revocation is attempted on a
	// mandate whose terms do not allow it.
	ErrNotRevocable = errors.New("mandate is not revocable")

	// ErrInvalidTransition is returned for a state change the mandate
	// lifecycle does not permit.
	ErrInvalidTransition = errors.New("invalid mandate state transition")
)

// ValidationResult is the accumulated outcome of checking a
// prospective transfer against a mandate. Every violated rule lands in
// Errors; nothing short-circuits, so callers see the full picture.
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string

	// Remaining headroom after the prospective transfer, clamped at
	// zero. Only meaningful when the corresponding cap is set.
	RemainingDailyCents   int64
	RemainingMonthlyCents int64
}

// Engine validates transfers against mandates and drives mandate state
// transitions. Aggregate windows are computed on UTC day and month
// boundaries.
type Engine struct {
	mandates  ports.MandateRepository
	transfers ports.TransferRepository
	bus       ports.EventBus
	log       zerolog.Logger
}

// NewEngine creates a mandate engine.
func NewEngine(mandates ports.MandateRepository, transfers ports.TransferRepository, bus ports.EventBus, baseLogger *zerolog.Logger) *Engine {
	return &Engine{
		mandates:  mandates,
		transfers: transfers,
		bus:       bus,
		log:       baseLogger.With().Str("component", "mandate_engine").Logger(),
	}
}

// ValidateForTransfer accumulates every violated rule for the
// prospective transfer. Aggregate queries fail closed: a store error
// aborts validation rather than treating usage as zero.
//
// Two concurrent validations against one mandate can both pass before
// either records usage; RecordUsage closes that race with the store's
// guarded increment, so a limit overrun surfaces there as
// ports.ErrLimitExceeded even after a clean validation.
func (e *Engine) ValidateForTransfer(ctx context.Context, m *domain.Mandate, amountCents int64, direction domain.Direction, now time.Time) (ValidationResult, error) {
	res := ValidationResult{}
	now = now.UTC()

	if m.Status != domain.MandateActive {
		res.Errors = append(res.Errors, fmt.Sprintf("mandate is not active (status %s)", m.Status))
	}
	if !m.CoversDirection(direction) {
		res.Errors = append(res.Errors, fmt.Sprintf("mandate covers %s transfers, not %s", m.Direction, direction))
	}
	if m.ExpiresAt != nil && now.After(*m.ExpiresAt) {
		res.Errors = append(res.Errors, "mandate has expired")
	}
	if now.Before(m.EffectiveFrom) {
		res.Errors = append(res.Errors, "mandate is not yet effective")
	}
	if m.Limits.PerTransferMaxCents > 0 && amountCents > m.Limits.PerTransferMaxCents {
		res.Errors = append(res.Errors, fmt.Sprintf("amount exceeds the per-transfer maximum of %d cents", m.Limits.PerTransferMaxCents))
	}
	if m.Limits.PerTransferMinCents > 0 && amountCents < m.Limits.PerTransferMinCents {
		res.Errors = append(res.Errors, fmt.Sprintf("amount is below the per-transfer minimum of %d cents", m.Limits.PerTransferMinCents))
	}

	day, err := e.usage(ctx, m, direction, startOfDay(now), now)
	if err != nil {
		return ValidationResult{}, err
	}
	month, err := e.usage(ctx, m, direction, startOfMonth(now), now)
	if err != nil {
		return ValidationResult{}, err
	}

	if m.Limits.DailyCents > 0 && day.AmountCents+amountCents > m.Limits.DailyCents {
		res.Errors = append(res.Errors, fmt.Sprintf("daily limit of %d cents would be exceeded", m.Limits.DailyCents))
	}
	if m.Limits.MonthlyCents > 0 && month.AmountCents+amountCents > m.Limits.MonthlyCents {
		res.Errors = append(res.Errors, fmt.Sprintf("monthly limit of %d cents would be exceeded", m.Limits.MonthlyCents))
	}
	if m.Limits.WeeklyCents > 0 {
		week, err := e.usage(ctx, m, direction, startOfWeek(now), now)
		if err != nil {
			return ValidationResult{}, err
		}
		if week.AmountCents+amountCents > m.Limits.WeeklyCents {
			res.Errors = append(res.Errors, fmt.Sprintf("weekly limit of %d cents would be exceeded", m.Limits.WeeklyCents))
		}
	}
	if m.Limits.YearlyCents > 0 {
		year, err := e.usage(ctx, m, direction, startOfYear(now), now)
		if err != nil {
			return ValidationResult{}, err
		}
		if year.AmountCents+amountCents > m.Limits.YearlyCents {
			res.Errors = append(res.Errors, fmt.Sprintf("yearly limit of %d cents would be exceeded", m.Limits.YearlyCents))
		}
	}
	if m.Limits.DailyCount > 0 && day.Count+1 > m.Limits.DailyCount {
		res.Errors = append(res.Errors, fmt.Sprintf("daily transfer count limit of %d would be exceeded", m.Limits.DailyCount))
	}
	if m.Limits.MonthlyCount > 0 && month.Count+1 > m.Limits.MonthlyCount {
		res.Errors = append(res.Errors, fmt.Sprintf("monthly transfer count limit of %d would be exceeded", m.Limits.MonthlyCount))
	}
	if m.Limits.LifetimeCents > 0 && m.TotalAmountCents+amountCents > m.Limits.LifetimeCents {
		res.Errors = append(res.Errors, fmt.Sprintf("lifetime amount limit of %d cents would be exceeded", m.Limits.LifetimeCents))
	}
	if m.Limits.LifetimeCount > 0 && m.TotalTransfers+1 > m.Limits.LifetimeCount {
		res.Errors = append(res.Errors, fmt.Sprintf("lifetime transfer count limit of %d would be exceeded", m.Limits.LifetimeCount))
	}
	if m.Scope == domain.ScopeSingle && m.TotalTransfers >= 1 {
		res.Errors = append(res.Errors, "single-use mandate has already been used")
	}

	if m.Limits.DailyCents > 0 {
		res.RemainingDailyCents = clampZero(m.Limits.DailyCents - day.AmountCents - amountCents)
		if res.RemainingDailyCents < 2*amountCents {
			res.Warnings = append(res.Warnings, "daily headroom is below twice the transfer amount")
		}
	}
	if m.Limits.MonthlyCents > 0 {
		res.RemainingMonthlyCents = clampZero(m.Limits.MonthlyCents - month.AmountCents - amountCents)
		if res.RemainingMonthlyCents < 5*amountCents {
			res.Warnings = append(res.Warnings, "monthly headroom is below five times the transfer amount")
		}
	}

	res.Valid = len(res.Errors) == 0
	return res, nil
}

// RecordUsage bumps the mandate's usage counters through the store's
// atomic guarded increment. Call exactly once per successfully queued
// transfer, never for failed, returned or cancelled ones.
func (e *Engine) RecordUsage(ctx context.Context, m *domain.Mandate, amountCents int64) error {
	if err := e.mandates.IncrementUsage(ctx, m.ID, amountCents); err != nil {
		if errors.Is(err, ports.ErrLimitExceeded) {
			e.log.Warn().
				Str("mandate_id", m.ID.String()).
				Int64("amount_cents", amountCents).
				Msg("Concurrent usage pushed mandate past a lifetime cap")
		}
		return err
	}
	return nil
}

// Revoke permanently revokes a mandate. Requires the mandate to be
// revocable and not already revoked.
func (e *Engine) Revoke(ctx context.Context, m *domain.Mandate, reason string) error {
	if !m.Revocable {
		return ErrNotRevocable
	}
	if m.Status == domain.MandateRevoked {
		return fmt.Errorf("%w: already revoked", ErrInvalidTransition)
	}
	m.Status = domain.MandateRevoked
	if err := e.mandates.Update(ctx, m); err != nil {
		return err
	}
	e.log.Info().Str("mandate_id", m.ID.String()).Str("reason", reason).Msg("Mandate revoked")
	if e.bus != nil {
		_ = e.bus.Publish(ctx, ports.TopicMandateRevoked, map[string]string{
			"mandate_id": m.ID.String(),
			"reason":     reason,
		})
	}
	return nil
}

// Suspend pauses an active mandate.
func (e *Engine) Suspend(ctx context.Context, m *domain.Mandate) error {
	if m.Status != domain.MandateActive {
		return fmt.Errorf("%w: suspend requires active, got %s", ErrInvalidTransition, m.Status)
	}
	m.Status = domain.MandateSuspended
	return e.mandates.Update(ctx, m)
}

// Reactivate resumes a suspended mandate.
func (e *Engine) Reactivate(ctx context.Context, m *domain.Mandate) error {
	if m.Status != domain.MandateSuspended {
		return fmt.Errorf("%w: reactivate requires suspended, got %s", ErrInvalidTransition, m.Status)
	}
	m.Status = domain.MandateActive
	return e.mandates.Update(ctx, m)
}

func (e *Engine) usage(ctx context.Context, m *domain.Mandate, direction domain.Direction, from, to time.Time) (ports.TransferUsage, error) {
	id := m.ID
	u, err := e.transfers.UsageInWindow(ctx, ports.UsageScope{
		AccountID: m.AccountID,
		MandateID: &id,
		Direction: direction,
		From:      from,
		To:        to,
	})
	if err != nil {
		e.log.Error().Err(err).Str("mandate_id", m.ID.String()).Msg("Usage aggregate query failed")
		return ports.TransferUsage{}, fmt.Errorf("mandate usage lookup: %w", err)
	}
	return u, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func startOfWeek(t time.Time) time.Time {
	day := startOfDay(t)
	// ISO week: Monday start.
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func startOfYear(t time.Time) time.Time {
	return time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
}

func clampZero(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
