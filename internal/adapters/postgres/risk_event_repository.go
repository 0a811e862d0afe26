package postgres

import (
	"context"

	"RailSettle/internal/core/ports"

	"github.com/rs/zerolog"
)

var _ ports.RiskEventRepository = (*riskEventRepository)(nil) // Ensure compliance

type riskEventRepository struct {
	db  *DB
	log zerolog.Logger
}

// NewRiskEventRepository creates the append-only audit store for risk
// assessment outcomes.
func NewRiskEventRepository(db *DB, baseLogger *zerolog.Logger) ports.RiskEventRepository {
	return &riskEventRepository{
		db:  db,
		log: baseLogger.With().Str("component", "risk_event_repo").Logger(),
	}
}

func (r *riskEventRepository) Insert(ctx context.Context, ev *ports.RiskEvent) error {
	query := `
		INSERT INTO risk_events (
			id, transfer_id, account_id, score, recommendation, flags, assessed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.pool.Exec(ctx, query,
		ev.ID,
		ev.TransferID,
		ev.AccountID,
		ev.Score,
		ev.Recommendation,
		ev.Flags,
		ev.AssessedAt,
	)
	if err != nil {
		r.log.Error().Err(err).Str("transfer_id", ev.TransferID.String()).Msg("Failed to insert risk event")
	}
	return err
}
