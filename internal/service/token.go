package service

import (
	"context"
	"errors"
	"time"

	"posevault/internal/errs"
	"posevault/internal/metrics"
	"posevault/internal/repo"
	"posevault/model"

	"github.com/sirupsen/logrus"
)

// ShareCache is a read-through cache of active shares keyed by token.
type ShareCache interface {
	Get(ctx context.Context, token string) (*model.SharedGallery, bool)
	Set(ctx context.Context, share *model.SharedGallery) error
	Invalidate(ctx context.Context, token string) error
}

// TokenValidator resolves share tokens to usable shares.
type TokenValidator struct {
	shares repo.ShareRepository
	cache  ShareCache
	now    func() time.Time
}

// NewTokenValidator builds a validator; cache may be nil.
func NewTokenValidator(shares repo.ShareRepository, cache ShareCache) *TokenValidator {
	return &TokenValidator{shares: shares, cache: cache, now: time.Now}
}

// Validate returns the share for token when it is active and unexpired.
// The share row is never modified here; deactivation belongs to the sweep.
func (v *TokenValidator) Validate(ctx context.Context, token string) (*model.SharedGallery, error) {
	share, err := v.lookup(ctx, token)
	if err != nil {
		metrics.ShareValidations.WithLabelValues(errs.CodeOf(err)).Inc()
		return nil, err
	}
	if share.ExpiredAt(v.now()) {
		metrics.ShareValidations.WithLabelValues(errs.CodeShareExpired).Inc()
		return nil, errs.Denied(errs.CodeShareExpired, "this share link has expired")
	}
	metrics.ShareValidations.WithLabelValues("ok").Inc()
	return share, nil
}

func (v *TokenValidator) lookup(ctx context.Context, token string) (*model.SharedGallery, error) {
	if token == "" {
		return nil, errs.Input(errs.CodeMissingFields, "share token is required")
	}
	if v.cache != nil {
		if share, ok := v.cache.Get(ctx, token); ok && share.ShareToken == token && share.IsActive {
			return share, nil
		}
	}
	share, err := v.shares.GetByToken(ctx, token)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, errs.NotFound(errs.CodeInvalidToken, "share link not found")
	}
	if err != nil {
		return nil, errs.Upstream("load share", err)
	}
	if !share.IsActive {
		return nil, errs.NotFound(errs.CodeShareInactive, "share link is no longer active")
	}
	if v.cache != nil && !share.ExpiredAt(v.now()) {
		if err := v.cache.Set(ctx, share); err != nil {
			logrus.WithError(err).Warn("cache share failed")
		}
	}
	return share, nil
}

// Forget evicts token from the cache. Until it succeeds a cached copy may
// still look active for up to the cache TTL.
func (v *TokenValidator) Forget(ctx context.Context, token string) error {
	if v.cache == nil {
		return nil
	}
	return v.cache.Invalidate(ctx, token)
}
