package repo

import (
	"context"

	"posevault/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GalleryRepo struct {
	db *gorm.DB
}

func (r *GalleryRepo) Get(ctx context.Context, ownerID string) ([]model.Gallery, error) {
	var galleries []model.Gallery
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, uid") }).
		Order("created_at, uid").
		Find(&galleries).Error
	return galleries, err
}

func (r *GalleryRepo) Find(ctx context.Context, ownerID, uid string) (*model.Gallery, error) {
	var gallery model.Gallery
	err := r.db.WithContext(ctx).
		Where("uid = ? AND owner_id = ?", uid, ownerID).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, uid") }).
		First(&gallery).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &gallery, nil
}

func (r *GalleryRepo) ImagesByUIDs(ctx context.Context, ownerID string, uids []string) ([]model.Image, error) {
	if len(uids) == 0 {
		return nil, nil
	}
	var images []model.Image
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND uid IN ?", ownerID, uids).
		Find(&images).Error
	return images, err
}

// Put replaces the owner's gallery list: listed galleries and images are
// upserted, galleries missing from the list are soft-deleted and images
// missing from the list are removed.
func (r *GalleryRepo) Put(ctx context.Context, ownerID string, galleries []model.Gallery) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		galleryUIDs := make([]string, 0, len(galleries))
		var imageUIDs []string
		for _, g := range galleries {
			galleryUIDs = append(galleryUIDs, g.UID)
			for _, img := range g.Images {
				imageUIDs = append(imageUIDs, img.UID)
			}
		}
		if err := ensureOwned(tx, &model.Gallery{}, ownerID, galleryUIDs); err != nil {
			return err
		}
		if err := ensureOwned(tx, &model.Image{}, ownerID, imageUIDs); err != nil {
			return err
		}

		for i := range galleries {
			g := galleries[i]
			images := g.Images
			g.OwnerID = ownerID
			g.Images = nil
			g.DeletedAt = gorm.DeletedAt{}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "uid"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "notes", "cover_image_uid", "deleted_at", "updated_at"}),
			}).Create(&g).Error; err != nil {
				return err
			}
			for j := range images {
				img := images[j]
				img.OwnerID = ownerID
				img.CategoryUID = g.UID
				if err := tx.Clauses(clause.OnConflict{
					Columns: []clause.Column{{Name: "uid"}},
					DoUpdates: clause.AssignmentColumns([]string{
						"category_uid", "name", "notes", "storage_key", "favorite", "cover_image", "tags", "updated_at",
					}),
				}).Create(&img).Error; err != nil {
					return err
				}
			}
		}

		staleGalleries := tx.Where("owner_id = ?", ownerID)
		if len(galleryUIDs) > 0 {
			staleGalleries = staleGalleries.Where("uid NOT IN ?", galleryUIDs)
		}
		if err := staleGalleries.Delete(&model.Gallery{}).Error; err != nil {
			return err
		}
		staleImages := tx.Where("owner_id = ?", ownerID)
		if len(imageUIDs) > 0 {
			staleImages = staleImages.Where("uid NOT IN ?", imageUIDs)
		}
		return staleImages.Delete(&model.Image{}).Error
	})
}

func ensureOwned(tx *gorm.DB, table any, ownerID string, uids []string) error {
	if len(uids) == 0 {
		return nil
	}
	var foreign int64
	if err := tx.Unscoped().Model(table).
		Where("uid IN ? AND owner_id <> ?", uids, ownerID).
		Count(&foreign).Error; err != nil {
		return err
	}
	if foreign > 0 {
		return ErrOwnership
	}
	return nil
}
