package repo

import (
	"context"
	"time"

	"posevault/model"

	"gorm.io/gorm"
)

// Repositories return ErrNotFound for missing rows; every other error is a
// datastore failure.

type ShareRepository interface {
	GetByToken(ctx context.Context, token string) (*model.SharedGallery, error)
	GetByID(ctx context.Context, id uint64) (*model.SharedGallery, error)
	Create(ctx context.Context, share *model.SharedGallery) error
	// Deactivate flips is_active to false and reports whether this call
	// changed the row.
	Deactivate(ctx context.Context, id uint64) (bool, error)
	ListExpired(ctx context.Context, now time.Time) ([]model.SharedGallery, error)
}

// GalleryRepository is the owner's gallery list. Soft-deleted galleries
// are never returned.
type GalleryRepository interface {
	Get(ctx context.Context, ownerID string) ([]model.Gallery, error)
	Put(ctx context.Context, ownerID string, galleries []model.Gallery) error
	Find(ctx context.Context, ownerID, uid string) (*model.Gallery, error)
	ImagesByUIDs(ctx context.Context, ownerID string, uids []string) ([]model.Image, error)
}

type ViewerRepository interface {
	Create(ctx context.Context, viewer *model.ShareViewer) error
	Get(ctx context.Context, shareID, viewerID uint64) (*model.ShareViewer, error)
	List(ctx context.Context, shareID uint64) ([]model.ShareViewer, error)
	// LatestByName returns the most recently created viewer on the share
	// with this display name. Names are not unique; the last one wins.
	LatestByName(ctx context.Context, shareID uint64, name string) (*model.ShareViewer, error)
}

type UploadRepository interface {
	CountByViewer(ctx context.Context, shareID, viewerID uint64) (int64, error)
	Create(ctx context.Context, upload *model.ShareUpload) error
	List(ctx context.Context, shareID uint64) ([]model.ShareUpload, error)
}

type ActivityRepository interface {
	AddFavorite(ctx context.Context, fav *model.ShareFavorite) error
	ListFavorites(ctx context.Context, shareID uint64) ([]model.ShareFavorite, error)
	AddComment(ctx context.Context, comment *model.ShareComment) error
	RecentComments(ctx context.Context, shareID uint64, limit int) ([]model.ShareComment, error)
	AddAccessLog(ctx context.Context, entry *model.ShareAccessLog) error
	ListAccessLogs(ctx context.Context, shareID uint64) ([]model.ShareAccessLog, error)
}

type NotificationRepository interface {
	// Preference returns the row for (userID, shareID); a nil shareID
	// selects the global row.
	Preference(ctx context.Context, userID string, shareID *uint64) (*model.NotificationPreference, error)
	Create(ctx context.Context, n *model.Notification) error
}

// Repos bundles every repository the services need.
type Repos struct {
	Shares        ShareRepository
	Galleries     GalleryRepository
	Viewers       ViewerRepository
	Uploads       UploadRepository
	Activity      ActivityRepository
	Notifications NotificationRepository
}

// NewGormRepos builds gorm-backed repositories on db.
func NewGormRepos(db *gorm.DB) Repos {
	return Repos{
		Shares:        &ShareRepo{db: db},
		Galleries:     &GalleryRepo{db: db},
		Viewers:       &ViewerRepo{db: db},
		Uploads:       &UploadRepo{db: db},
		Activity:      &ActivityRepo{db: db},
		Notifications: &NotificationRepo{db: db},
	}
}
