package model

import "time"

// DefaultMaxUploadSizeMB applies when a share does not set its own ceiling.
const DefaultMaxUploadSizeMB = 10

type SharedGallery struct {
	ID uint64 `gorm:"primaryKey" json:"id"`

	OwnerID   string `gorm:"column:owner_id;size:128;not null;index" json:"owner_id"`
	GalleryID string `gorm:"column:gallery_id;size:64;not null;index" json:"gallery_id"`

	ShareToken string `gorm:"column:share_token;size:64;uniqueIndex;not null" json:"share_token"`

	IsActive  bool       `gorm:"column:is_active;not null;index" json:"is_active"`
	ExpiresAt *time.Time `gorm:"column:expires_at;index" json:"expires_at,omitempty"`

	AllowUploads          bool `gorm:"column:allow_uploads;not null;default:false" json:"allow_uploads"`
	RequireUploadApproval bool `gorm:"column:require_upload_approval;not null" json:"require_upload_approval"`
	MaxUploadsPerViewer   *int `gorm:"column:max_uploads_per_viewer" json:"max_uploads_per_viewer,omitempty"`
	MaxUploadSizeMB       int  `gorm:"column:max_upload_size_mb;not null;default:10" json:"max_upload_size_mb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (SharedGallery) TableName() string {
	return "shared_gallery"
}

// ExpiredAt reports whether the share has an expiry at or before now.
func (s *SharedGallery) ExpiredAt(now time.Time) bool {
	return s.ExpiresAt != nil && !s.ExpiresAt.After(now)
}

// UploadLimitBytes is the per-file ceiling in bytes.
func (s *SharedGallery) UploadLimitBytes() int64 {
	mb := s.MaxUploadSizeMB
	if mb <= 0 {
		mb = DefaultMaxUploadSizeMB
	}
	return int64(mb) * 1024 * 1024
}

// OwnerPrefix is the storage namespace of the share owner.
func (s *SharedGallery) OwnerPrefix() string {
	return UserPrefix(s.OwnerID)
}
