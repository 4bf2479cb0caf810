package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type premiumSweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// PremiumJob materialises lapsed premium windows that no reader has touched yet.
type PremiumJob struct {
	premiumService premiumSweeper
	logger         *zap.Logger
}

func NewPremiumJob(premiumService premiumSweeper, logger *zap.Logger) *PremiumJob {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PremiumJob{
		premiumService: premiumService,
		logger:         logger,
	}
}

func (j *PremiumJob) SweepExpired() {
	if j == nil || j.premiumService == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	expired, err := j.premiumService.SweepExpired(ctx)
	if err != nil {
		j.logger.Warn("sweep expired premium windows failed", zap.Error(err))
	}
	if expired > 0 {
		j.logger.Info("sweep expired premium windows finished", zap.Int("expired", expired))
	}
}
