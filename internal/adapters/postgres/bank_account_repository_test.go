package postgres

import (
	"context"
	"errors"
	"testing"

	"RailSettle/internal/core/domain"
	"RailSettle/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func newTestAccount() *domain.BankAccount {
	return &domain.BankAccount{
		ID:                 uuid.New(),
		HolderName:         "Jordan Example",
		HolderType:         domain.HolderIndividual,
		AccountType:        domain.AccountTypeChecking,
		Country:            "US",
		Currency:           "USD",
		VaultRef:           "dGVzdC1vcGFxdWUtcmVm", // opaque token; repo never inspects it
		VerificationMethod: domain.VerificationMethodMicrodeposits,
		VerificationStatus: domain.VerificationPending,
		Active:             true,
	}
}

func cleanupAccount(t *testing.T, id uuid.UUID) {
	t.Helper()
	if _, err := testDB.pool.Exec(context.Background(), "DELETE FROM bank_accounts WHERE id = $1", id); err != nil {
		t.Logf("Warning: failed to cleanup account %s: %v", id, err)
	}
}

func TestBankAccountRepository_CreateGetRoundtrip(t *testing.T) {
	requireDB(t)
	nopLogger := zerolog.Nop()
	repo := NewBankAccountRepository(testDB, &nopLogger)
	ctx := context.Background()

	acct := newTestAccount()
	if err := repo.Create(ctx, acct); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer cleanupAccount(t, acct.ID)

	got, err := repo.GetByID(ctx, acct.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.VaultRef != acct.VaultRef {
		t.Errorf("VaultRef mismatch: got %q want %q", got.VaultRef, acct.VaultRef)
	}
	if got.VerificationStatus != domain.VerificationPending {
		t.Errorf("VerificationStatus mismatch: got %q", got.VerificationStatus)
	}
	if got.Version != 1 {
		t.Errorf("fresh row should have version 1, got %d", got.Version)
	}
}

func TestBankAccountRepository_GetByID_NotFound(t *testing.T) {
	requireDB(t)
	nopLogger := zerolog.Nop()
	repo := NewBankAccountRepository(testDB, &nopLogger)

	_, err := repo.GetByID(context.Background(), uuid.New())
	if !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBankAccountRepository_Update_VersionConflict(t *testing.T) {
	requireDB(t)
	nopLogger := zerolog.Nop()
	repo := NewBankAccountRepository(testDB, &nopLogger)
	ctx := context.Background()

	acct := newTestAccount()
	if err := repo.Create(ctx, acct); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer cleanupAccount(t, acct.ID)

	fresh, err := repo.GetByID(ctx, acct.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	fresh.HolderName = "Jordan Updated"
	if err := repo.Update(ctx, fresh); err != nil {
		t.Fatalf("first Update failed: %v", err)
	}

	// A second writer holding the old version must lose.
	stale := *fresh
	stale.Version = fresh.Version - 1
	stale.HolderName = "Stale Writer"
	if err := repo.Update(ctx, &stale); !errors.Is(err, ports.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
}

func TestBankAccountRepository_SetVerification(t *testing.T) {
	requireDB(t)
	nopLogger := zerolog.Nop()
	repo := NewBankAccountRepository(testDB, &nopLogger)
	ctx := context.Background()

	acct := newTestAccount()
	if err := repo.Create(ctx, acct); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer cleanupAccount(t, acct.ID)

	err := repo.SetVerification(ctx, acct.ID, domain.VerificationMethodMicrodeposits, domain.VerificationVerified)
	if err != nil {
		t.Fatalf("SetVerification failed: %v", err)
	}

	got, err := repo.GetByID(ctx, acct.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.VerificationStatus != domain.VerificationVerified {
		t.Errorf("expected verified, got %q", got.VerificationStatus)
	}
}
