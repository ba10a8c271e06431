package workers

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/tradekit-dev/tradekit/internal/discounts"
	"github.com/tradekit-dev/tradekit/internal/payments"
	"github.com/tradekit-dev/tradekit/internal/tasks"
)

// HandleExpireTransaction cancels a pending transaction whose transfer never
// arrived. The task is enqueued at initiation time with the pending TTL delay.
func HandleExpireTransaction(ctx context.Context, t *asynq.Task, paymentsSvc *payments.Service, logger zerolog.Logger) error {
	payload, err := tasks.ParsePaymentPayload(t)
	if err != nil {
		return err
	}

	logger.Info().Str("transaction_id", payload.TransactionID).Msg("Processing transaction expiry")
	return paymentsSvc.Expire(ctx, payload.TransactionID)
}

// HandleHousekeepingSweep runs the periodic cleanup: stale pending
// transactions (expiry tasks lost to a Redis outage) and expired discount codes.
func HandleHousekeepingSweep(ctx context.Context, _ *asynq.Task, paymentsSvc *payments.Service, discountsSvc *discounts.Service, logger zerolog.Logger) error {
	expired, err := paymentsSvc.ExpireStale(ctx)
	if err != nil {
		return err
	}

	deactivated, err := discountsSvc.DeactivateExpired(ctx)
	if err != nil {
		return err
	}

	if expired > 0 || deactivated > 0 {
		logger.Info().
			Int64("transactions_expired", expired).
			Int64("discount_codes_deactivated", deactivated).
			Msg("Housekeeping sweep completed")
	}
	return nil
}
