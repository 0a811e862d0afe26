package postgres

import (
	"context"
	"errors"
	"time"

	"RailSettle/internal/core/domain"
	"RailSettle/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

var _ ports.TransferRepository = (*transferRepository)(nil) // Ensure compliance

type transferRepository struct {
	db  *DB
	log zerolog.Logger
}

// NewTransferRepository creates a new repo for transfer operations.
func NewTransferRepository(db *DB, baseLogger *zerolog.Logger) ports.TransferRepository {
	return &transferRepository{
		db:  db,
		log: baseLogger.With().Str("component", "transfer_repo").Logger(),
	}
}

func (r *transferRepository) Create(ctx context.Context, t *domain.BankTransfer) error {
	query := `
		INSERT INTO bank_transfers (
			id, account_id, mandate_id, direction, amount_cents, currency,
			provider, status, risk_score, risk_flags, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1)
	`
	_, err := r.db.pool.Exec(ctx, query,
		t.ID,
		t.AccountID,
		t.MandateID,
		t.Direction,
		t.AmountCents,
		t.Currency,
		t.Provider,
		t.Status,
		t.RiskScore,
		t.RiskFlags,
	)
	if err != nil {
		r.log.Error().Err(err).Str("transfer_id", t.ID.String()).Msg("Failed to insert transfer")
	}
	return err
}

func (r *transferRepository) scanTransfer(row pgx.Row) (*domain.BankTransfer, error) {
	var t domain.BankTransfer
	err := row.Scan(
		&t.ID,
		&t.AccountID,
		&t.MandateID,
		&t.Direction,
		&t.AmountCents,
		&t.Currency,
		&t.Provider,
		&t.Status,
		&t.ReturnCode,
		&t.ReturnReason,
		&t.RiskScore,
		&t.RiskFlags,
		&t.BatchID,
		&t.TraceNumber,
		&t.Version,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		r.log.Error().Err(err).Msg("Failed to scan transfer row")
		return nil, err
	}
	return &t, nil
}

const transferColumns = `
	id, account_id, mandate_id, direction, amount_cents, currency,
	provider, status, return_code, return_reason, risk_score, risk_flags,
	batch_id, trace_number, version, created_at, updated_at
`

func (r *transferRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.BankTransfer, error) {
	query := `SELECT ` + transferColumns + ` FROM bank_transfers WHERE id = $1`
	return r.scanTransfer(r.db.pool.QueryRow(ctx, query, id))
}

func (r *transferRepository) Update(ctx context.Context, t *domain.BankTransfer) error {
	query := `
		UPDATE bank_transfers SET
			status = $2, return_code = $3, return_reason = $4,
			risk_score = $5, risk_flags = $6, batch_id = $7, trace_number = $8,
			version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $9
	`
	tag, err := r.db.pool.Exec(ctx, query,
		t.ID,
		t.Status,
		t.ReturnCode,
		t.ReturnReason,
		t.RiskScore,
		t.RiskFlags,
		t.BatchID,
		t.TraceNumber,
		t.Version,
	)
	if err != nil {
		r.log.Error().Err(err).Str("transfer_id", t.ID.String()).Msg("Failed to update transfer")
		return err
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if scanErr := r.db.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM bank_transfers WHERE id = $1)`, t.ID).Scan(&exists); scanErr != nil {
			return scanErr
		}
		if exists {
			return ports.ErrVersionConflict
		}
		return ports.ErrNotFound
	}
	t.Version++
	return nil
}

// UsageInWindow aggregates usable transfers only. Failed, returned and
// cancelled rows never consume limit headroom.
func (r *transferRepository) UsageInWindow(ctx context.Context, scope ports.UsageScope) (ports.TransferUsage, error) {
	query := `
		SELECT COUNT(*), COALESCE(SUM(amount_cents), 0)
		FROM bank_transfers
		WHERE account_id = $1
		  AND status NOT IN ('failed', 'returned', 'cancelled')
		  AND created_at >= $2 AND created_at < $3
		  AND ($4::uuid IS NULL OR mandate_id = $4)
		  AND ($5 = '' OR $5 = 'both' OR direction = $5)
	`
	var usage ports.TransferUsage
	err := r.db.pool.QueryRow(ctx, query,
		scope.AccountID,
		scope.From,
		scope.To,
		scope.MandateID,
		string(scope.Direction),
	).Scan(&usage.Count, &usage.AmountCents)
	if err != nil {
		r.log.Error().Err(err).Str("account_id", scope.AccountID.String()).Msg("Failed to aggregate transfer usage")
		return ports.TransferUsage{}, err
	}
	return usage, nil
}

func (r *transferRepository) ReturnsSince(ctx context.Context, accountID uuid.UUID, since time.Time) ([]ports.ReturnRecord, error) {
	query := `
		SELECT return_code, updated_at
		FROM bank_transfers
		WHERE account_id = $1
		  AND status = 'returned'
		  AND return_code IS NOT NULL
		  AND updated_at >= $2
		ORDER BY updated_at DESC
	`
	rows, err := r.db.pool.Query(ctx, query, accountID, since)
	if err != nil {
		r.log.Error().Err(err).Str("account_id", accountID.String()).Msg("Failed to query return history")
		return nil, err
	}
	defer rows.Close()

	var records []ports.ReturnRecord
	for rows.Next() {
		var rec ports.ReturnRecord
		if err := rows.Scan(&rec.Code, &rec.ReturnedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *transferRepository) ListPending(ctx context.Context, limit int) ([]*domain.BankTransfer, error) {
	query := `SELECT ` + transferColumns + `
		FROM bank_transfers
		WHERE status = 'pending'
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.db.pool.Query(ctx, query, limit)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to list pending transfers")
		return nil, err
	}
	defer rows.Close()

	var transfers []*domain.BankTransfer
	for rows.Next() {
		t, err := r.scanTransfer(rows)
		if err != nil {
			return nil, err
		}
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}
