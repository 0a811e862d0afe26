package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"RailSettle/internal/core/domain"
	"RailSettle/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func newTestMandate(accountID uuid.UUID) *domain.Mandate {
	return &domain.Mandate{
		ID:        uuid.New(),
		AccountID: accountID,
		Scope:     domain.ScopeRecurring,
		Direction: domain.DirectionDebit,
		Rail:      domain.RailNACHA,
		Country:   "US",
		Limits: domain.MandateLimits{
			PerTransferMaxCents: 50_000,
			DailyCents:          100_000,
			LifetimeCount:       2,
		},
		Evidence: domain.MandateEvidence{
			SignedAt:       time.Now().UTC(),
			Signature:      "sig-abc",
			ConsentText:    "I authorize debits under the stated limits.",
			ConsentVersion: "v3",
			IPAddress:      "203.0.113.7",
		},
		EffectiveFrom: time.Now().UTC().Add(-time.Hour),
		Revocable:     true,
		Status:        domain.MandateActive,
	}
}

func cleanupMandate(t *testing.T, id uuid.UUID) {
	t.Helper()
	if _, err := testDB.pool.Exec(context.Background(), "DELETE FROM mandates WHERE id = $1", id); err != nil {
		t.Logf("Warning: failed to cleanup mandate %s: %v", id, err)
	}
}

func TestMandateRepository_CreateGetRoundtrip(t *testing.T) {
	requireDB(t)
	nopLogger := zerolog.Nop()
	repo := NewMandateRepository(testDB, &nopLogger)
	ctx := context.Background()

	acctRepo := NewBankAccountRepository(testDB, &nopLogger)
	acct := newTestAccount()
	if err := acctRepo.Create(ctx, acct); err != nil {
		t.Fatalf("account Create failed: %v", err)
	}
	defer cleanupAccount(t, acct.ID)

	m := newTestMandate(acct.ID)
	if err := repo.Create(ctx, m); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer cleanupMandate(t, m.ID)

	got, err := repo.GetByID(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Limits != m.Limits {
		t.Errorf("limits did not roundtrip: got %+v want %+v", got.Limits, m.Limits)
	}
	if got.Evidence.Signature != m.Evidence.Signature {
		t.Errorf("evidence did not roundtrip: got %+v", got.Evidence)
	}
	if got.TotalTransfers != 0 || got.TotalAmountCents != 0 {
		t.Errorf("fresh mandate should have zero usage, got %d/%d", got.TotalTransfers, got.TotalAmountCents)
	}
}

func TestMandateRepository_IncrementUsage_LifetimeCap(t *testing.T) {
	requireDB(t)
	nopLogger := zerolog.Nop()
	repo := NewMandateRepository(testDB, &nopLogger)
	ctx := context.Background()

	acctRepo := NewBankAccountRepository(testDB, &nopLogger)
	acct := newTestAccount()
	if err := acctRepo.Create(ctx, acct); err != nil {
		t.Fatalf("account Create failed: %v", err)
	}
	defer cleanupAccount(t, acct.ID)

	m := newTestMandate(acct.ID) // lifetime count cap of 2
	if err := repo.Create(ctx, m); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer cleanupMandate(t, m.ID)

	if err := repo.IncrementUsage(ctx, m.ID, 1_000); err != nil {
		t.Fatalf("first increment failed: %v", err)
	}
	if err := repo.IncrementUsage(ctx, m.ID, 1_000); err != nil {
		t.Fatalf("second increment failed: %v", err)
	}

	// Third use breaches the cap of 2.
	err := repo.IncrementUsage(ctx, m.ID, 1_000)
	if !errors.Is(err, ports.ErrLimitExceeded) {
		t.Fatalf("expected ErrLimitExceeded, got %v", err)
	}

	got, err := repo.GetByID(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.TotalTransfers != 2 {
		t.Errorf("cap breach must not mutate counters: got %d transfers", got.TotalTransfers)
	}
	if got.LastUsedAt == nil {
		t.Error("LastUsedAt should be set after successful increments")
	}
}

func TestMandateRepository_IncrementUsage_NotFound(t *testing.T) {
	requireDB(t)
	nopLogger := zerolog.Nop()
	repo := NewMandateRepository(testDB, &nopLogger)

	err := repo.IncrementUsage(context.Background(), uuid.New(), 1_000)
	if !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
