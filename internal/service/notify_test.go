package service

import (
	"context"
	"testing"
	"time"

	"posevault/internal/errs"
	"posevault/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNotifyFixture(t *testing.T) (*fixture, *Dispatcher, *model.SharedGallery) {
	t.Helper()
	f := newFixture(t)
	f.seedGallery(t, "u1", "g1", "Standing poses")
	share := f.seedShare(t, model.SharedGallery{IsActive: true})
	return f, NewDispatcher(f.repos), share
}

func TestDispatch_Defaults(t *testing.T) {
	f, d, share := newNotifyFixture(t)
	ctx := context.Background()

	res, err := d.Dispatch(ctx, NotifyEvent{SharedGalleryID: share.ID, Type: model.NotifyView})
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	assert.Equal(t, SkipTypeDisabled, res.Reason)

	res, err = d.Dispatch(ctx, NotifyEvent{SharedGalleryID: share.ID, Type: model.NotifyFavorite, ImageID: "i1"})
	require.NoError(t, err)
	assert.False(t, res.Skipped)

	rows := f.notifications(t)
	require.Len(t, rows, 1)
	assert.Equal(t, "u1", rows[0].UserID)
	assert.Equal(t, model.NotifyFavorite, rows[0].Type)
	assert.Equal(t, `Someone favorited a photo in "Standing poses"`, rows[0].Message)
	require.NotNil(t, rows[0].ImageID)
	assert.Equal(t, "i1", *rows[0].ImageID)
	assert.Nil(t, rows[0].ViewerID)
	assert.False(t, rows[0].IsRead)
}

func TestDispatch_QuietModePerShare(t *testing.T) {
	f, d, share := newNotifyFixture(t)
	require.NoError(t, f.db.Create(&model.NotificationPreference{
		UserID:           "u1",
		SharedGalleryID:  &share.ID,
		QuietMode:        true,
		NotifyOnFavorite: true,
	}).Error)

	res, err := d.Dispatch(context.Background(), NotifyEvent{SharedGalleryID: share.ID, Type: model.NotifyFavorite})
	require.NoError(t, err)
	assert.Equal(t, &DispatchResult{Skipped: true, Reason: SkipQuietMode}, res)
	assert.Empty(t, f.notifications(t))
}

func TestResolvePreferences_Order(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	shareID := uint64(5)

	got, err := ResolvePreferences(ctx, f.repos.Notifications, "u1", shareID)
	require.NoError(t, err)
	assert.Equal(t, DefaultPreferences, got)

	require.NoError(t, f.db.Create(&model.NotificationPreference{
		UserID: "u1", NotifyOnView: true, NotifyOnComment: false, NotifyOnFavorite: true,
	}).Error)
	got, err = ResolvePreferences(ctx, f.repos.Notifications, "u1", shareID)
	require.NoError(t, err)
	assert.True(t, got.OnView)
	assert.False(t, got.OnComment)

	require.NoError(t, f.db.Create(&model.NotificationPreference{
		UserID: "u1", SharedGalleryID: &shareID, NotifyOnComment: true,
	}).Error)
	got, err = ResolvePreferences(ctx, f.repos.Notifications, "u1", shareID)
	require.NoError(t, err)
	assert.False(t, got.OnView, "per-share row wins outright")
	assert.True(t, got.OnComment)

	// Other users and shares keep their own resolution.
	got, err = ResolvePreferences(ctx, f.repos.Notifications, "u2", shareID)
	require.NoError(t, err)
	assert.Equal(t, DefaultPreferences, got)
}

func TestDispatch_ViewerNameLatestWins(t *testing.T) {
	f, d, share := newNotifyFixture(t)
	now := time.Now()
	f.seedViewer(t, share.ID, "Ana", now.Add(-time.Hour))
	latest := f.seedViewer(t, share.ID, "Ana", now)

	res, err := d.Dispatch(context.Background(), NotifyEvent{
		SharedGalleryID: share.ID,
		Type:            model.NotifyComment,
		ViewerName:      "Ana",
	})
	require.NoError(t, err)
	require.NotNil(t, res.Notification.ViewerID)
	assert.Equal(t, latest.ID, *res.Notification.ViewerID)
	assert.Equal(t, `Ana commented on "Standing poses"`, res.Notification.Message)

	res, err = d.Dispatch(context.Background(), NotifyEvent{
		SharedGalleryID: share.ID,
		Type:            model.NotifyComment,
		ViewerName:      "Nobody",
	})
	require.NoError(t, err)
	assert.Nil(t, res.Notification.ViewerID)
}

func TestDispatch_Errors(t *testing.T) {
	f, d, share := newNotifyFixture(t)
	ctx := context.Background()

	_, err := d.Dispatch(ctx, NotifyEvent{SharedGalleryID: 999, Type: model.NotifyFavorite})
	assert.Equal(t, errs.CodeShareNotFound, errs.CodeOf(err))

	_, err = d.Dispatch(ctx, NotifyEvent{SharedGalleryID: share.ID, Type: "poke"})
	assert.ErrorIs(t, err, errs.ErrInput)

	_, err = d.Dispatch(ctx, NotifyEvent{Type: model.NotifyFavorite})
	assert.ErrorIs(t, err, errs.ErrInput)

	d.notifications = failingNotifications{NotificationRepository: f.repos.Notifications}
	_, err = d.Dispatch(ctx, NotifyEvent{SharedGalleryID: share.ID, Type: model.NotifyFavorite})
	assert.ErrorIs(t, err, errs.ErrUpstream)
	assert.ErrorIs(t, err, errInjected)
}

func TestRenderMessage(t *testing.T) {
	cases := map[string]string{
		model.NotifyView:          `Bo viewed your gallery "G"`,
		model.NotifyFavorite:      `Bo favorited a photo in "G"`,
		model.NotifyUploadPending: `Bo uploaded a photo to "G" that is waiting for your approval`,
		model.NotifyComment:       `Bo commented on "G"`,
		model.NotifyShareExpired:  `Your share link for "G" has expired`,
	}
	for typ, want := range cases {
		got, err := RenderMessage(typ, "Bo", "G")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	got, err := RenderMessage(model.NotifyView, "  ", "G")
	require.NoError(t, err)
	assert.Equal(t, `Someone viewed your gallery "G"`, got)
}
