package task

import (
	"context"
	"errors"
	"time"

	"posevault/internal/repo"
	"posevault/internal/service"

	"github.com/sirupsen/logrus"
)

// SweepLockKey guards the expiry sweep across worker replicas.
const SweepLockKey = "lock:share:sweep"

type Locker interface {
	Lock(ctx context.Context) error
	Unlock(ctx context.Context) error
}

type Sweeper interface {
	Run(ctx context.Context) (service.SweepResult, error)
}

// RunSweep runs one sweep under lock. A nil lock runs unguarded. It reports
// ran=false when another holder owns the lock.
func RunSweep(ctx context.Context, lock Locker, sweeper Sweeper) (service.SweepResult, bool, error) {
	if lock != nil {
		if err := lock.Lock(ctx); err != nil {
			if errors.Is(err, repo.ErrLockBusy) {
				return service.SweepResult{}, false, nil
			}
			return service.SweepResult{}, false, err
		}
		defer func() {
			if err := lock.Unlock(context.WithoutCancel(ctx)); err != nil {
				logrus.WithError(err).Warn("release sweep lock failed")
			}
		}()
	}
	res, err := sweeper.Run(ctx)
	return res, true, err
}

// RunSweepLoop sweeps every interval until ctx ends.
func RunSweepLoop(ctx context.Context, interval time.Duration, lock Locker, sweeper Sweeper) {
	if interval <= 0 {
		logrus.Info("expiry sweep loop disabled")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, ran, err := RunSweep(ctx, lock, sweeper); err != nil {
			logrus.WithError(err).Error("expiry sweep failed")
		} else if !ran {
			logrus.Debug("expiry sweep skipped, lock held elsewhere")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
