package service

import (
	"context"
	"time"

	"posevault/internal/errs"
	"posevault/internal/metrics"
	"posevault/internal/repo"
	"posevault/model"

	"github.com/sirupsen/logrus"
)

type SweepResult struct {
	Deactivated int `json:"deactivated"`
	Notified    int `json:"notified"`
}

// Sweeper deactivates expired shares and tells their owners.
type Sweeper struct {
	shares     repo.ShareRepository
	validator  *TokenValidator
	dispatcher *Dispatcher
	now        func() time.Time
}

func NewSweeper(shares repo.ShareRepository, validator *TokenValidator, dispatcher *Dispatcher) *Sweeper {
	return &Sweeper{shares: shares, validator: validator, dispatcher: dispatcher, now: time.Now}
}

// Run processes expired shares one at a time. Each share is deactivated
// before its notification is attempted, and a failure on one share never
// stops the others. A share already inactive is not notified again.
func (s *Sweeper) Run(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	expired, err := s.shares.ListExpired(ctx, s.now())
	if err != nil {
		return res, errs.Upstream("list expired shares", err)
	}
	for i := range expired {
		share := &expired[i]
		log := logrus.WithFields(logrus.Fields{"share_id": share.ID, "owner_id": share.OwnerID})

		changed, err := s.shares.Deactivate(ctx, share.ID)
		if err != nil {
			log.WithError(err).Error("deactivate expired share failed")
			continue
		}
		if !changed {
			continue
		}
		res.Deactivated++
		metrics.SweepDeactivated.Inc()
		// A cached copy still carries expires_at, so validation keeps
		// rejecting it even when eviction fails.
		if err := s.validator.Forget(ctx, share.ShareToken); err != nil {
			log.WithError(err).Warn("evict cached share failed")
		}

		out, err := s.dispatcher.Dispatch(ctx, NotifyEvent{
			SharedGalleryID: share.ID,
			Type:            model.NotifyShareExpired,
		})
		if err != nil {
			log.WithError(err).Warn("share expiry notification failed")
			continue
		}
		if !out.Skipped {
			res.Notified++
		}
	}
	logrus.WithFields(logrus.Fields{
		"candidates":  len(expired),
		"deactivated": res.Deactivated,
		"notified":    res.Notified,
	}).Info("expiry sweep finished")
	return res, nil
}
