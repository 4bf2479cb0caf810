package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	DefaultPremiumSweepSpec = "0 */5 * * * *"
	DefaultPassWarningSpec  = "0 0 9 * * *"
)

type PremiumTask interface {
	SweepExpired()
}

type PassTask interface {
	WarnExpiring()
}

// Specs holds six-field cron expressions. Empty values fall back to the defaults.
type Specs struct {
	PremiumSweep string
	PassWarning  string
}

type Deps struct {
	PremiumJob PremiumTask
	PassJob    PassTask
}

func NewScheduler(deps Deps, specs Specs, logger *zap.Logger) *cron.Cron {
	if logger == nil {
		logger = zap.NewNop()
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(time.UTC))

	if deps.PremiumJob != nil {
		addFunc(c, specOrDefault(specs.PremiumSweep, DefaultPremiumSweepSpec), "premium.sweep_expired", logger, deps.PremiumJob.SweepExpired)
	}
	if deps.PassJob != nil {
		addFunc(c, specOrDefault(specs.PassWarning, DefaultPassWarningSpec), "pass.warn_expiring", logger, deps.PassJob.WarnExpiring)
	}

	return c
}

func specOrDefault(spec, fallback string) string {
	if spec == "" {
		return fallback
	}
	return spec
}

func addFunc(c *cron.Cron, spec string, name string, logger *zap.Logger, fn func()) {
	if c == nil || fn == nil {
		return
	}

	if _, err := c.AddFunc(spec, func() {
		defer recoverJobPanic(name, logger)
		start := time.Now()
		fn()
		logger.Debug("scheduler job finished", zap.String("job", name), zap.Duration("cost", time.Since(start)))
	}); err != nil {
		logger.Error("register scheduler job failed",
			zap.String("job", name),
			zap.String("spec", spec),
			zap.Error(err),
		)
	}
}

func recoverJobPanic(jobName string, logger *zap.Logger) {
	if logger == nil {
		return
	}

	if recovered := recover(); recovered != nil {
		logger.Error("scheduler job panic recovered",
			zap.String("job", jobName),
			zap.Any("panic", recovered),
		)
	}
}
