package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type passExpiryWarner interface {
	WarnExpiring(ctx context.Context) (int, error)
}

type PassJob struct {
	passService passExpiryWarner
	logger      *zap.Logger
}

func NewPassJob(passService passExpiryWarner, logger *zap.Logger) *PassJob {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PassJob{
		passService: passService,
		logger:      logger,
	}
}

func (j *PassJob) WarnExpiring() {
	if j == nil || j.passService == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	warned, err := j.passService.WarnExpiring(ctx)
	if err != nil {
		j.logger.Warn("warn expiring passes failed", zap.Error(err))
	}
	if warned > 0 {
		j.logger.Info("expiry warnings sent", zap.Int("passes", warned))
	}
}
