package postgres

import (
	"context"
	"errors"

	"RailSettle/internal/core/domain"
	"RailSettle/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

var _ ports.BankAccountRepository = (*bankAccountRepository)(nil) // Ensure compliance

type bankAccountRepository struct {
	db  *DB
	log zerolog.Logger
}

// NewBankAccountRepository creates a new repo for bank account operations.
// Rows only ever hold the opaque vault reference; the raw routing and
// account numbers never reach this layer.
func NewBankAccountRepository(db *DB, baseLogger *zerolog.Logger) ports.BankAccountRepository {
	return &bankAccountRepository{
		db:  db,
		log: baseLogger.With().Str("component", "bank_account_repo").Logger(),
	}
}

func (r *bankAccountRepository) Create(ctx context.Context, acct *domain.BankAccount) error {
	query := `
		INSERT INTO bank_accounts (
			id, holder_name, holder_type, account_type, country, currency,
			vault_ref, verification_method, verification_status,
			active, is_default, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1)
	`
	_, err := r.db.pool.Exec(ctx, query,
		acct.ID,
		acct.HolderName,
		acct.HolderType,
		acct.AccountType,
		acct.Country,
		acct.Currency,
		acct.VaultRef,
		acct.VerificationMethod,
		acct.VerificationStatus,
		acct.Active,
		acct.Default,
	)
	if err != nil {
		r.log.Error().Err(err).Str("account_id", acct.ID.String()).Msg("Failed to insert bank account")
	}
	return err
}

func (r *bankAccountRepository) scanAccount(row pgx.Row) (*domain.BankAccount, error) {
	var acct domain.BankAccount
	err := row.Scan(
		&acct.ID,
		&acct.HolderName,
		&acct.HolderType,
		&acct.AccountType,
		&acct.Country,
		&acct.Currency,
		&acct.VaultRef,
		&acct.VerificationMethod,
		&acct.VerificationStatus,
		&acct.Active,
		&acct.Default,
		&acct.Version,
		&acct.CreatedAt,
		&acct.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		r.log.Error().Err(err).Msg("Failed to scan bank account row")
		return nil, err
	}
	return &acct, nil
}

func (r *bankAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.BankAccount, error) {
	query := `
		SELECT id, holder_name, holder_type, account_type, country, currency,
			   vault_ref, verification_method, verification_status,
			   active, is_default, version, created_at, updated_at
		FROM bank_accounts
		WHERE id = $1
	`
	return r.scanAccount(r.db.pool.QueryRow(ctx, query, id))
}

// Update writes the account back guarded by its version; a stale
// version yields ErrVersionConflict.
func (r *bankAccountRepository) Update(ctx context.Context, acct *domain.BankAccount) error {
	query := `
		UPDATE bank_accounts SET
			holder_name = $2, holder_type = $3, account_type = $4,
			country = $5, currency = $6, vault_ref = $7,
			verification_method = $8, verification_status = $9,
			active = $10, is_default = $11,
			version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $12
	`
	tag, err := r.db.pool.Exec(ctx, query,
		acct.ID,
		acct.HolderName,
		acct.HolderType,
		acct.AccountType,
		acct.Country,
		acct.Currency,
		acct.VaultRef,
		acct.VerificationMethod,
		acct.VerificationStatus,
		acct.Active,
		acct.Default,
		acct.Version,
	)
	if err != nil {
		r.log.Error().Err(err).Str("account_id", acct.ID.String()).Msg("Failed to update bank account")
		return err
	}
	if tag.RowsAffected() == 0 {
		return r.versionedMiss(ctx, acct.ID)
	}
	acct.Version++
	return nil
}

func (r *bankAccountRepository) SetVerification(ctx context.Context, id uuid.UUID, method domain.VerificationMethod, status domain.VerificationStatus) error {
	query := `
		UPDATE bank_accounts SET
			verification_method = $2, verification_status = $3,
			version = version + 1, updated_at = now()
		WHERE id = $1
	`
	tag, err := r.db.pool.Exec(ctx, query, id, method, status)
	if err != nil {
		r.log.Error().Err(err).Str("account_id", id.String()).Msg("Failed to set verification state")
		return err
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// versionedMiss distinguishes a stale version from a missing row after
// a guarded update touched nothing.
func (r *bankAccountRepository) versionedMiss(ctx context.Context, id uuid.UUID) error {
	var exists bool
	err := r.db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM bank_accounts WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return ports.ErrVersionConflict
	}
	return ports.ErrNotFound
}
