package service

import (
	"context"
	"testing"
	"time"

	"posevault/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweep_DeactivatesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedGallery(t, "u1", "g1", "Standing")
	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)
	expired := f.seedShare(t, model.SharedGallery{IsActive: true, ExpiresAt: &past})
	live := f.seedShare(t, model.SharedGallery{IsActive: true, ExpiresAt: &future})

	s := NewSweeper(f.repos.Shares, f.validator, NewDispatcher(f.repos))
	res, err := s.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Deactivated: 1, Notified: 1}, res)

	res, err = s.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{}, res)

	rows := f.notifications(t)
	require.Len(t, rows, 1)
	assert.Equal(t, model.NotifyShareExpired, rows[0].Type)
	assert.Equal(t, expired.ID, rows[0].SharedGalleryID)
	assert.Equal(t, `Your share link for "Standing" has expired`, rows[0].Message)

	got, err := f.repos.Shares.GetByID(ctx, expired.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	got, err = f.repos.Shares.GetByID(ctx, live.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
}

func TestSweep_NotificationFailureIsIsolated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedGallery(t, "u1", "g1", "Standing")
	past := time.Now().Add(-time.Hour)
	first := f.seedShare(t, model.SharedGallery{IsActive: true, ExpiresAt: &past})
	second := f.seedShare(t, model.SharedGallery{IsActive: true, ExpiresAt: &past})

	d := NewDispatcher(f.repos)
	d.notifications = failingNotifications{NotificationRepository: f.repos.Notifications}
	res, err := NewSweeper(f.repos.Shares, f.validator, d).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Deactivated: 2, Notified: 0}, res)

	for _, id := range []uint64{first.ID, second.ID} {
		got, err := f.repos.Shares.GetByID(ctx, id)
		require.NoError(t, err)
		assert.False(t, got.IsActive, "deactivation stays after a failed notification")
	}
}

func TestSweep_RespectsPreferences(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedGallery(t, "u1", "g1", "Standing")
	past := time.Now().Add(-time.Hour)
	f.seedShare(t, model.SharedGallery{IsActive: true, ExpiresAt: &past})
	require.NoError(t, f.db.Create(&model.NotificationPreference{UserID: "u1", QuietMode: true}).Error)

	res, err := NewSweeper(f.repos.Shares, f.validator, NewDispatcher(f.repos)).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepResult{Deactivated: 1, Notified: 0}, res)
	assert.Empty(t, f.notifications(t))
}
