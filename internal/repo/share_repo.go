package repo

import (
	"context"
	"time"

	"posevault/model"

	"gorm.io/gorm"
)

type ShareRepo struct {
	db *gorm.DB
}

func (r *ShareRepo) GetByToken(ctx context.Context, token string) (*model.SharedGallery, error) {
	var share model.SharedGallery
	if err := r.db.WithContext(ctx).Where("share_token = ?", token).First(&share).Error; err != nil {
		return nil, notFound(err)
	}
	return &share, nil
}

func (r *ShareRepo) GetByID(ctx context.Context, id uint64) (*model.SharedGallery, error) {
	var share model.SharedGallery
	if err := r.db.WithContext(ctx).First(&share, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &share, nil
}

func (r *ShareRepo) Create(ctx context.Context, share *model.SharedGallery) error {
	return r.db.WithContext(ctx).Create(share).Error
}

func (r *ShareRepo) Deactivate(ctx context.Context, id uint64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.SharedGallery{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *ShareRepo) ListExpired(ctx context.Context, now time.Time) ([]model.SharedGallery, error) {
	var shares []model.SharedGallery
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND expires_at IS NOT NULL AND expires_at < ?", true, now).
		Order("id").
		Find(&shares).Error
	return shares, err
}
