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

var _ ports.MandateRepository = (*mandateRepository)(nil) // Ensure compliance

type mandateRepository struct {
	db  *DB
	log zerolog.Logger
}

// NewMandateRepository creates a new repo for mandate operations.
// Limits and evidence live in jsonb columns; usage counters are flat
// columns so IncrementUsage can guard them in one statement.
func NewMandateRepository(db *DB, baseLogger *zerolog.Logger) ports.MandateRepository {
	return &mandateRepository{
		db:  db,
		log: baseLogger.With().Str("component", "mandate_repo").Logger(),
	}
}

func (r *mandateRepository) Create(ctx context.Context, m *domain.Mandate) error {
	query := `
		INSERT INTO mandates (
			id, account_id, scope, direction, rail, country,
			limits, evidence, effective_from, expires_at, revocable, status,
			total_transfers, total_amount_cents, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 0, 0, 1)
	`
	_, err := r.db.pool.Exec(ctx, query,
		m.ID,
		m.AccountID,
		m.Scope,
		m.Direction,
		m.Rail,
		m.Country,
		m.Limits,
		m.Evidence,
		m.EffectiveFrom,
		m.ExpiresAt,
		m.Revocable,
		m.Status,
	)
	if err != nil {
		r.log.Error().Err(err).Str("mandate_id", m.ID.String()).Msg("Failed to insert mandate")
	}
	return err
}

func (r *mandateRepository) scanMandate(row pgx.Row) (*domain.Mandate, error) {
	var m domain.Mandate
	err := row.Scan(
		&m.ID,
		&m.AccountID,
		&m.Scope,
		&m.Direction,
		&m.Rail,
		&m.Country,
		&m.Limits,
		&m.Evidence,
		&m.EffectiveFrom,
		&m.ExpiresAt,
		&m.Revocable,
		&m.Status,
		&m.TotalTransfers,
		&m.TotalAmountCents,
		&m.LastUsedAt,
		&m.Version,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		r.log.Error().Err(err).Msg("Failed to scan mandate row")
		return nil, err
	}
	return &m, nil
}

func (r *mandateRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Mandate, error) {
	query := `
		SELECT id, account_id, scope, direction, rail, country,
			   limits, evidence, effective_from, expires_at, revocable, status,
			   total_transfers, total_amount_cents, last_used_at,
			   version, created_at, updated_at
		FROM mandates
		WHERE id = $1
	`
	return r.scanMandate(r.db.pool.QueryRow(ctx, query, id))
}

func (r *mandateRepository) Update(ctx context.Context, m *domain.Mandate) error {
	query := `
		UPDATE mandates SET
			scope = $2, direction = $3, rail = $4, country = $5,
			limits = $6, evidence = $7, effective_from = $8, expires_at = $9,
			revocable = $10, status = $11,
			version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $12
	`
	tag, err := r.db.pool.Exec(ctx, query,
		m.ID,
		m.Scope,
		m.Direction,
		m.Rail,
		m.Country,
		m.Limits,
		m.Evidence,
		m.EffectiveFrom,
		m.ExpiresAt,
		m.Revocable,
		m.Status,
		m.Version,
	)
	if err != nil {
		r.log.Error().Err(err).Str("mandate_id", m.ID.String()).Msg("Failed to update mandate")
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if scanErr := r.db.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM mandates WHERE id = $1)`, m.ID).Scan(&exists); scanErr != nil {
			return scanErr
		}
		if exists {
			return ports.ErrVersionConflict
		}
		return ports.ErrNotFound
	}
	m.Version++
	return nil
}

// IncrementUsage bumps the usage counters in one guarded statement.
// The lifetime-cap predicates run inside the UPDATE itself, so two
// concurrent transfers cannot both slip under the last unit of
// headroom: one of them sees zero rows affected.
func (r *mandateRepository) IncrementUsage(ctx context.Context, id uuid.UUID, amountCents int64) error {
	query := `
		UPDATE mandates SET
			total_transfers = total_transfers + 1,
			total_amount_cents = total_amount_cents + $2,
			last_used_at = now(),
			version = version + 1,
			updated_at = now()
		WHERE id = $1
		  AND status = 'active'
		  AND (COALESCE((limits->>'lifetime_count')::bigint, 0) = 0
		       OR total_transfers + 1 <= (limits->>'lifetime_count')::bigint)
		  AND (COALESCE((limits->>'lifetime_cents')::bigint, 0) = 0
		       OR total_amount_cents + $2 <= (limits->>'lifetime_cents')::bigint)
	`
	tag, err := r.db.pool.Exec(ctx, query, id, amountCents)
	if err != nil {
		r.log.Error().Err(err).Str("mandate_id", id.String()).Msg("Failed to increment mandate usage")
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Nothing matched: missing row, inactive mandate, or a cap breach.
	m, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if m.Status != domain.MandateActive {
		return ports.ErrNotFound
	}
	r.log.Warn().Str("mandate_id", id.String()).Msg("Mandate usage increment rejected by lifetime cap")
	return ports.ErrLimitExceeded
}
