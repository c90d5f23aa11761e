package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"posevault/internal/errs"
	"posevault/internal/metrics"
	"posevault/internal/repo"
	"posevault/model"

	"github.com/sirupsen/logrus"
)

// Skip reasons reported when no notification is written.
const (
	SkipQuietMode    = "quiet_mode"
	SkipTypeDisabled = "type_disabled"
)

const anonymousViewer = "Someone"

// Preferences is a fully resolved notification setting.
type Preferences struct {
	QuietMode  bool
	OnView     bool
	OnFavorite bool
	OnUpload   bool
	OnComment  bool
	OnExpiry   bool
}

// DefaultPreferences apply when the owner has no preference rows.
var DefaultPreferences = Preferences{
	OnView:     false,
	OnFavorite: true,
	OnUpload:   true,
	OnComment:  true,
	OnExpiry:   true,
}

func preferencesFromRow(p *model.NotificationPreference) Preferences {
	return Preferences{
		QuietMode:  p.QuietMode,
		OnView:     p.NotifyOnView,
		OnFavorite: p.NotifyOnFavorite,
		OnUpload:   p.NotifyOnUpload,
		OnComment:  p.NotifyOnComment,
		OnExpiry:   p.NotifyOnExpiry,
	}
}

// Allows reports whether notifyType is enabled, ignoring quiet mode.
func (p Preferences) Allows(notifyType string) bool {
	switch notifyType {
	case model.NotifyView:
		return p.OnView
	case model.NotifyFavorite:
		return p.OnFavorite
	case model.NotifyUploadPending:
		return p.OnUpload
	case model.NotifyComment:
		return p.OnComment
	case model.NotifyShareExpired:
		return p.OnExpiry
	}
	return false
}

// ResolvePreferences picks the per-share row, then the global row, then the
// defaults. The result is always complete.
func ResolvePreferences(ctx context.Context, prefs repo.NotificationRepository, userID string, shareID uint64) (Preferences, error) {
	row, err := prefs.Preference(ctx, userID, &shareID)
	if err == nil {
		return preferencesFromRow(row), nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return Preferences{}, errs.Upstream("load share preferences", err)
	}
	row, err = prefs.Preference(ctx, userID, nil)
	if err == nil {
		return preferencesFromRow(row), nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return Preferences{}, errs.Upstream("load global preferences", err)
	}
	return DefaultPreferences, nil
}

// RenderMessage fills the fixed template for notifyType.
func RenderMessage(notifyType, viewerName, galleryName string) (string, error) {
	if strings.TrimSpace(viewerName) == "" {
		viewerName = anonymousViewer
	}
	switch notifyType {
	case model.NotifyView:
		return fmt.Sprintf("%s viewed your gallery %q", viewerName, galleryName), nil
	case model.NotifyFavorite:
		return fmt.Sprintf("%s favorited a photo in %q", viewerName, galleryName), nil
	case model.NotifyUploadPending:
		return fmt.Sprintf("%s uploaded a photo to %q that is waiting for your approval", viewerName, galleryName), nil
	case model.NotifyComment:
		return fmt.Sprintf("%s commented on %q", viewerName, galleryName), nil
	case model.NotifyShareExpired:
		return fmt.Sprintf("Your share link for %q has expired", galleryName), nil
	}
	return "", errs.Input(errs.CodeInvalidInput, "unknown notification type %q", notifyType)
}

// DispatchResult tells whether a notification row was written.
type DispatchResult struct {
	Skipped      bool
	Reason       string
	Notification *model.Notification
}

// Dispatcher turns viewer activity into owner notifications.
type Dispatcher struct {
	shares        repo.ShareRepository
	galleries     repo.GalleryRepository
	viewers       repo.ViewerRepository
	notifications repo.NotificationRepository
	now           func() time.Time
}

func NewDispatcher(repos repo.Repos) *Dispatcher {
	return &Dispatcher{
		shares:        repos.Shares,
		galleries:     repos.Galleries,
		viewers:       repos.Viewers,
		notifications: repos.Notifications,
		now:           time.Now,
	}
}

// Dispatch writes one notification for ev unless the owner's preferences
// suppress it. A suppressed event is a successful, skipped result.
func (d *Dispatcher) Dispatch(ctx context.Context, ev NotifyEvent) (*DispatchResult, error) {
	res, err := d.dispatch(ctx, ev)
	switch {
	case err != nil:
		metrics.Notifications.WithLabelValues(ev.Type, "error").Inc()
	case res.Skipped:
		metrics.Notifications.WithLabelValues(ev.Type, "skipped").Inc()
	default:
		metrics.Notifications.WithLabelValues(ev.Type, "sent").Inc()
	}
	return res, err
}

func (d *Dispatcher) dispatch(ctx context.Context, ev NotifyEvent) (*DispatchResult, error) {
	if ev.SharedGalleryID == 0 || ev.Type == "" {
		return nil, errs.Input(errs.CodeMissingFields, "sharedGalleryId and type are required")
	}
	if _, err := RenderMessage(ev.Type, "", ""); err != nil {
		return nil, err
	}

	share, err := d.shares.GetByID(ctx, ev.SharedGalleryID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, errs.NotFound(errs.CodeShareNotFound, "shared gallery %d not found", ev.SharedGalleryID)
	}
	if err != nil {
		return nil, errs.Upstream("load share", err)
	}
	gallery, err := d.galleries.Find(ctx, share.OwnerID, share.GalleryID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, errs.NotFound(errs.CodeShareNotFound, "gallery of share %d not found", share.ID)
	}
	if err != nil {
		return nil, errs.Upstream("load gallery", err)
	}

	prefs, err := ResolvePreferences(ctx, d.notifications, share.OwnerID, share.ID)
	if err != nil {
		return nil, err
	}
	if prefs.QuietMode {
		return &DispatchResult{Skipped: true, Reason: SkipQuietMode}, nil
	}
	if !prefs.Allows(ev.Type) {
		return &DispatchResult{Skipped: true, Reason: SkipTypeDisabled}, nil
	}

	msg, err := RenderMessage(ev.Type, ev.ViewerName, gallery.Name)
	if err != nil {
		return nil, err
	}
	n := &model.Notification{
		UserID:          share.OwnerID,
		SharedGalleryID: share.ID,
		Type:            ev.Type,
		Message:         msg,
		ViewerID:        d.viewerID(ctx, share.ID, ev.ViewerName),
		CreatedAt:       d.now(),
	}
	if ev.ImageID != "" {
		imageID := ev.ImageID
		n.ImageID = &imageID
	}
	if err := d.notifications.Create(ctx, n); err != nil {
		return nil, errs.Upstream("insert notification", err)
	}
	return &DispatchResult{Notification: n}, nil
}

// viewerID resolves a display name to the most recently created viewer on
// the share. Names are not unique, so older viewers with the same name lose.
func (d *Dispatcher) viewerID(ctx context.Context, shareID uint64, name string) *uint64 {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	viewer, err := d.viewers.LatestByName(ctx, shareID, name)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			logrus.WithError(err).WithField("share_id", shareID).Warn("resolve viewer by name failed")
		}
		return nil
	}
	id := viewer.ID
	return &id
}
