package workers

import (
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/tradekit-dev/tradekit/internal/tasks"
)

// DefaultSweepSchedule runs housekeeping hourly
const DefaultSweepSchedule = "0 * * * *"

// StartSweepScheduler enqueues the housekeeping sweep on the given cron
// schedule. Checks every minute; an invalid schedule falls back to the default.
func StartSweepScheduler(client *asynq.Client, schedule string, logger zerolog.Logger) {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}

	parsed, err := cron.ParseStandard(schedule)
	if err != nil {
		logger.Warn().Err(err).Str("schedule", schedule).Msg("Invalid sweep schedule, using default")
		parsed, _ = cron.ParseStandard(DefaultSweepSchedule)
	}

	next := parsed.Next(time.Now())
	logger.Info().Str("schedule", schedule).Time("next_sweep_at", next).Msg("Sweep scheduler started")

	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for now := range ticker.C {
		if now.Before(next) {
			continue
		}
		next = parsed.Next(now)

		if _, err := client.Enqueue(tasks.NewHousekeepingSweepTask(), asynq.Queue("low")); err != nil {
			logger.Error().Err(err).Msg("Failed to enqueue housekeeping sweep")
			continue
		}
		logger.Debug().Time("next_sweep_at", next).Msg("Housekeeping sweep enqueued")
	}
}
