// Package negativelist backs the risk engine's bad-account lookup with
// Redis. Entries are keyed by a SHA-256 fingerprint of the routing and
// account number pair, so the backend never sees raw digits.
package negativelist

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"RailSettle/internal/core/ports"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const keyPrefix = "railsettle:neglist:"

// lookupTimeout bounds every Redis call. The risk engine fails open on
// errors, so a slow backend must not stall assessments.
const lookupTimeout = 2 * time.Second

type redisNegativeList struct {
	client redis.UniversalClient
	log    zerolog.Logger
}

var _ ports.NegativeList = (*redisNegativeList)(nil) // Ensure compliance

// NewRedisNegativeList wraps an already-connected client.
func NewRedisNegativeList(client redis.UniversalClient, baseLogger *zerolog.Logger) ports.NegativeList {
	return &redisNegativeList{
		client: client,
		log:    baseLogger.With().Str("component", "negative_list").Logger(),
	}
}

// Fingerprint hashes a routing and account number pair into the list
// key. Exported so ingestion jobs can precompute keys.
func Fingerprint(routingNumber, accountNumber string) string {
	sum := sha256.Sum256([]byte(routingNumber + "|" + accountNumber))
	return hex.EncodeToString(sum[:])
}

func (l *redisNegativeList) Lookup(ctx context.Context, routingNumber, accountNumber string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	key := keyPrefix + Fingerprint(routingNumber, accountNumber)
	_, err := l.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		l.log.Warn().Err(err).Msg("Negative list lookup failed")
		return false, err
	}
	return true, nil
}

func (l *redisNegativeList) Add(ctx context.Context, routingNumber, accountNumber, reason string) error {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	key := keyPrefix + Fingerprint(routingNumber, accountNumber)
	if err := l.client.Set(ctx, key, reason, 0).Err(); err != nil {
		l.log.Error().Err(err).Msg("Failed to add negative list entry")
		return err
	}
	l.log.Info().Str("reason", reason).Msg("Negative list entry added")
	return nil
}
