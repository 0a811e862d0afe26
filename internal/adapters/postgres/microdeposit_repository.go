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

var _ ports.MicrodepositRepository = (*microdepositRepository)(nil) // Ensure compliance

type microdepositRepository struct {
	db  *DB
	log zerolog.Logger
}

// NewMicrodepositRepository creates a new repo for micro-deposit
// verification records.
func NewMicrodepositRepository(db *DB, baseLogger *zerolog.Logger) ports.MicrodepositRepository {
	return &microdepositRepository{
		db:  db,
		log: baseLogger.With().Str("component", "microdeposit_repo").Logger(),
	}
}

func (r *microdepositRepository) Create(ctx context.Context, v *domain.MicrodepositVerification) error {
	query := `
		INSERT INTO microdeposit_verifications (
			id, account_id, amount1_cents, amount2_cents,
			sent_at, expires_at, attempts, max_attempts, failed, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false, 1)
	`
	_, err := r.db.pool.Exec(ctx, query,
		v.ID,
		v.AccountID,
		v.Amount1Cents,
		v.Amount2Cents,
		v.SentAt,
		v.ExpiresAt,
		v.Attempts,
		v.MaxAttempts,
	)
	if err != nil {
		r.log.Error().Err(err).Str("account_id", v.AccountID.String()).Msg("Failed to insert micro-deposit verification")
	}
	return err
}

func (r *microdepositRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.MicrodepositVerification, error) {
	query := `
		SELECT id, account_id, amount1_cents, amount2_cents,
			   sent_at, expires_at, attempts, max_attempts,
			   verified_at, failed, version, created_at, updated_at
		FROM microdeposit_verifications
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	var v domain.MicrodepositVerification
	err := r.db.pool.QueryRow(ctx, query, accountID).Scan(
		&v.ID,
		&v.AccountID,
		&v.Amount1Cents,
		&v.Amount2Cents,
		&v.SentAt,
		&v.ExpiresAt,
		&v.Attempts,
		&v.MaxAttempts,
		&v.VerifiedAt,
		&v.Failed,
		&v.Version,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		r.log.Error().Err(err).Str("account_id", accountID.String()).Msg("Failed to scan micro-deposit row")
		return nil, err
	}
	return &v, nil
}

// Update is version-guarded so two concurrent Verify calls cannot both
// consume the same attempt.
func (r *microdepositRepository) Update(ctx context.Context, v *domain.MicrodepositVerification) error {
	query := `
		UPDATE microdeposit_verifications SET
			amount1_cents = $2, amount2_cents = $3,
			sent_at = $4, expires_at = $5, attempts = $6,
			verified_at = $7, failed = $8,
			version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $9
	`
	tag, err := r.db.pool.Exec(ctx, query,
		v.ID,
		v.Amount1Cents,
		v.Amount2Cents,
		v.SentAt,
		v.ExpiresAt,
		v.Attempts,
		v.VerifiedAt,
		v.Failed,
		v.Version,
	)
	if err != nil {
		r.log.Error().Err(err).Str("verification_id", v.ID.String()).Msg("Failed to update micro-deposit verification")
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if scanErr := r.db.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM microdeposit_verifications WHERE id = $1)`, v.ID).Scan(&exists); scanErr != nil {
			return scanErr
		}
		if exists {
			return ports.ErrVersionConflict
		}
		return ports.ErrNotFound
	}
	v.Version++
	return nil
}
