package repo

import (
	"context"

	"posevault/model"

	"gorm.io/gorm"
)

type ViewerRepo struct {
	db *gorm.DB
}

func (r *ViewerRepo) Create(ctx context.Context, viewer *model.ShareViewer) error {
	return r.db.WithContext(ctx).Create(viewer).Error
}

func (r *ViewerRepo) Get(ctx context.Context, shareID, viewerID uint64) (*model.ShareViewer, error) {
	var viewer model.ShareViewer
	err := r.db.WithContext(ctx).
		Where("id = ? AND shared_gallery_id = ?", viewerID, shareID).
		First(&viewer).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &viewer, nil
}

func (r *ViewerRepo) List(ctx context.Context, shareID uint64) ([]model.ShareViewer, error) {
	var viewers []model.ShareViewer
	err := r.db.WithContext(ctx).
		Where("shared_gallery_id = ?", shareID).
		Order("created_at, id").
		Find(&viewers).Error
	return viewers, err
}

func (r *ViewerRepo) LatestByName(ctx context.Context, shareID uint64, name string) (*model.ShareViewer, error) {
	var viewer model.ShareViewer
	err := r.db.WithContext(ctx).
		Where("shared_gallery_id = ? AND display_name = ?", shareID, name).
		Order("created_at DESC, id DESC").
		First(&viewer).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &viewer, nil
}

type UploadRepo struct {
	db *gorm.DB
}

func (r *UploadRepo) CountByViewer(ctx context.Context, shareID, viewerID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ShareUpload{}).
		Where("shared_gallery_id = ? AND viewer_id = ?", shareID, viewerID).
		Count(&count).Error
	return count, err
}

func (r *UploadRepo) Create(ctx context.Context, upload *model.ShareUpload) error {
	return r.db.WithContext(ctx).Create(upload).Error
}

func (r *UploadRepo) List(ctx context.Context, shareID uint64) ([]model.ShareUpload, error) {
	var uploads []model.ShareUpload
	err := r.db.WithContext(ctx).
		Where("shared_gallery_id = ?", shareID).
		Order("uploaded_at, id").
		Find(&uploads).Error
	return uploads, err
}

type ActivityRepo struct {
	db *gorm.DB
}

func (r *ActivityRepo) AddFavorite(ctx context.Context, fav *model.ShareFavorite) error {
	return r.db.WithContext(ctx).Create(fav).Error
}

func (r *ActivityRepo) ListFavorites(ctx context.Context, shareID uint64) ([]model.ShareFavorite, error) {
	var favs []model.ShareFavorite
	err := r.db.WithContext(ctx).
		Where("shared_gallery_id = ?", shareID).
		Order("created_at, id").
		Find(&favs).Error
	return favs, err
}

func (r *ActivityRepo) AddComment(ctx context.Context, comment *model.ShareComment) error {
	return r.db.WithContext(ctx).Create(comment).Error
}

func (r *ActivityRepo) RecentComments(ctx context.Context, shareID uint64, limit int) ([]model.ShareComment, error) {
	var comments []model.ShareComment
	err := r.db.WithContext(ctx).
		Where("shared_gallery_id = ?", shareID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&comments).Error
	return comments, err
}

func (r *ActivityRepo) AddAccessLog(ctx context.Context, entry *model.ShareAccessLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *ActivityRepo) ListAccessLogs(ctx context.Context, shareID uint64) ([]model.ShareAccessLog, error) {
	var logs []model.ShareAccessLog
	err := r.db.WithContext(ctx).
		Where("shared_gallery_id = ?", shareID).
		Order("created_at, id").
		Find(&logs).Error
	return logs, err
}

type NotificationRepo struct {
	db *gorm.DB
}

func (r *NotificationRepo) Preference(ctx context.Context, userID string, shareID *uint64) (*model.NotificationPreference, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if shareID == nil {
		q = q.Where("shared_gallery_id IS NULL")
	} else {
		q = q.Where("shared_gallery_id = ?", *shareID)
	}
	var pref model.NotificationPreference
	if err := q.Order("id DESC").First(&pref).Error; err != nil {
		return nil, notFound(err)
	}
	return &pref, nil
}

func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}
