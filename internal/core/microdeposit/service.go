package microdeposit

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"RailSettle/internal/core/domain"
	"RailSettle/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	// ErrAlreadyVerified is returned by Initiate when the account has
	// already proven ownership.
	ErrAlreadyVerified = errors.New("account is already verified")

	// ErrResendCooldown is returned by Initiate inside the cooldown
	// window after the previous send.
	ErrResendCooldown = errors.New("micro-deposits were sent recently, wait before resending")

	// ErrNotInitiated is returned by Verify before any deposits were
	// sent.
	ErrNotInitiated = errors.New("micro-deposit verification has not been initiated")

	// ErrVerificationFailed is terminal: the maximum number of
	// attempts was exceeded.
	ErrVerificationFailed = errors.New("micro-deposit verification failed permanently")

	// ErrExpired is returned when the deposits expired before a
	// successful verify.
	ErrExpired = errors.New("micro-deposit verification has expired")
)

// Config carries generation and lifecycle parameters.
type Config struct {
	MinAmountCents int           // default 1
	MaxAmountCents int           // default 99
	MaxAttempts    int           // default 3
	ExpiryDays     int           // default 10
	ResendCooldown time.Duration // default 24h
}

// DefaultConfig returns the stock parameters.
func DefaultConfig() Config {
	return Config{
		MinAmountCents: 1,
		MaxAmountCents: 99,
		MaxAttempts:    3,
		ExpiryDays:     10,
		ResendCooldown: 24 * time.Hour,
	}
}

// VerifyResult reports one verify attempt.
type VerifyResult struct {
	Verified          bool
	AttemptsRemaining int
}

// Service drives the micro-deposit ownership-proof state machine.
type Service struct {
	cfg      Config
	repo     ports.MicrodepositRepository
	accounts ports.BankAccountRepository
	log      zerolog.Logger
}

// NewService creates a micro-deposit service.
func NewService(cfg Config, repo ports.MicrodepositRepository, accounts ports.BankAccountRepository, baseLogger *zerolog.Logger) *Service {
	def := DefaultConfig()
	if cfg.MinAmountCents == 0 {
		cfg.MinAmountCents = def.MinAmountCents
	}
	if cfg.MaxAmountCents == 0 {
		cfg.MaxAmountCents = def.MaxAmountCents
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.ExpiryDays == 0 {
		cfg.ExpiryDays = def.ExpiryDays
	}
	if cfg.ResendCooldown == 0 {
		cfg.ResendCooldown = def.ResendCooldown
	}
	return &Service{
		cfg:      cfg,
		repo:     repo,
		accounts: accounts,
		log:      baseLogger.With().Str("component", "microdeposit_service").Logger(),
	}
}

// GenerateAmounts draws two distinct random amounts in
// [minCents, maxCents]. Generation retries until the pair differs.
func GenerateAmounts(minCents, maxCents int) (int, int, error) {
	span := int64(maxCents - minCents + 1)
	draw := func() (int, error) {
		n, err := rand.Int(rand.Reader, big.NewInt(span))
		if err != nil {
			return 0, fmt.Errorf("random amount: %w", err)
		}
		return minCents + int(n.Int64()), nil
	}

	a, err := draw()
	if err != nil {
		return 0, 0, err
	}
	for {
		b, err := draw()
		if err != nil {
			return 0, 0, err
		}
		if b != a {
			return a, b, nil
		}
	}
}

// Initiate sends (or resends) the two test deposits. Rejected when the
// account is already verified or inside the resend cooldown.
func (s *Service) Initiate(ctx context.Context, accountID uuid.UUID, now time.Time) (*domain.MicrodepositVerification, error) {
	now = now.UTC()

	existing, err := s.repo.GetByAccountID(ctx, accountID)
	if err != nil && !errors.Is(err, ports.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		switch existing.Status(now) {
		case domain.MicrodepositVerified:
			return nil, ErrAlreadyVerified
		case domain.MicrodepositPending:
			if existing.SentAt != nil && now.Sub(*existing.SentAt) < s.cfg.ResendCooldown {
				return nil, ErrResendCooldown
			}
		}
	}

	a, b, err := GenerateAmounts(s.cfg.MinAmountCents, s.cfg.MaxAmountCents)
	if err != nil {
		return nil, err
	}
	expires := now.AddDate(0, 0, s.cfg.ExpiryDays)

	if existing != nil {
		existing.Amount1Cents = a
		existing.Amount2Cents = b
		existing.SentAt = &now
		existing.ExpiresAt = &expires
		existing.Attempts = 0
		existing.Failed = false
		if err := s.repo.Update(ctx, existing); err != nil {
			return nil, err
		}
		s.log.Info().Str("account_id", accountID.String()).Msg("Micro-deposits re-sent")
		return existing, nil
	}

	v := &domain.MicrodepositVerification{
		ID:           uuid.New(),
		AccountID:    accountID,
		Amount1Cents: a,
		Amount2Cents: b,
		SentAt:       &now,
		ExpiresAt:    &expires,
		MaxAttempts:  s.cfg.MaxAttempts,
	}
	if err := s.repo.Create(ctx, v); err != nil {
		return nil, err
	}

	s.log.Info().Str("account_id", accountID.String()).Msg("Micro-deposits sent")
	return v, nil
}

// Verify checks a submitted amount pair, order-independent. A repeat
// call after success short-circuits to success; exceeding the attempt
// budget transitions the record to failed for good.
func (s *Service) Verify(ctx context.Context, accountID uuid.UUID, amountA, amountB int, now time.Time) (VerifyResult, error) {
	now = now.UTC()

	v, err := s.repo.GetByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return VerifyResult{}, ErrNotInitiated
		}
		return VerifyResult{}, err
	}

	switch v.Status(now) {
	case domain.MicrodepositVerified:
		return VerifyResult{Verified: true}, nil
	case domain.MicrodepositFailed:
		return VerifyResult{}, ErrVerificationFailed
	case domain.MicrodepositNotInitiated:
		return VerifyResult{}, ErrNotInitiated
	case domain.MicrodepositExpired:
		return VerifyResult{}, ErrExpired
	}

	if v.Attempts+1 > v.MaxAttempts {
		v.Failed = true
		if err := s.repo.Update(ctx, v); err != nil {
			return VerifyResult{}, err
		}
		return VerifyResult{}, ErrVerificationFailed
	}

	if pairMatches(v.Amount1Cents, v.Amount2Cents, amountA, amountB) {
		v.VerifiedAt = &now
		if err := s.repo.Update(ctx, v); err != nil {
			return VerifyResult{}, err
		}
		if err := s.accounts.SetVerification(ctx, accountID, domain.VerificationMethodMicrodeposits, domain.VerificationVerified); err != nil {
			return VerifyResult{}, err
		}
		s.log.Info().Str("account_id", accountID.String()).Msg("Account ownership verified via micro-deposits")
		return VerifyResult{Verified: true}, nil
	}

	v.Attempts++
	if err := s.repo.Update(ctx, v); err != nil {
		return VerifyResult{}, err
	}
	remaining := v.MaxAttempts - v.Attempts
	s.log.Warn().
		Str("account_id", accountID.String()).
		Int("attempts_remaining", remaining).
		Msg("Micro-deposit amounts did not match")
	return VerifyResult{AttemptsRemaining: remaining}, nil
}

// pairMatches compares the submitted pair against the stored pair
// ignoring order.
func pairMatches(stored1, stored2, got1, got2 int) bool {
	if stored1 > stored2 {
		stored1, stored2 = stored2, stored1
	}
	if got1 > got2 {
		got1, got2 = got2, got1
	}
	return stored1 == got1 && stored2 == got2
}
