package model

import "time"

// Notification types.
const (
	NotifyView          = "view"
	NotifyFavorite      = "favorite"
	NotifyUploadPending = "upload_pending"
	NotifyComment       = "comment"
	NotifyShareExpired  = "share_expired"
)

// NotificationPreference is a user's setting row. A nil SharedGalleryID
// marks the global default row.
type NotificationPreference struct {
	ID uint64 `gorm:"primaryKey" json:"id"`

	UserID          string  `gorm:"column:user_id;size:128;not null;uniqueIndex:uk_pref_user_share,priority:1" json:"user_id"`
	SharedGalleryID *uint64 `gorm:"column:shared_gallery_id;uniqueIndex:uk_pref_user_share,priority:2" json:"shared_gallery_id,omitempty"`

	QuietMode        bool `gorm:"column:quiet_mode;not null;default:false" json:"quiet_mode"`
	NotifyOnView     bool `gorm:"column:notify_on_view;not null;default:false" json:"notify_on_view"`
	NotifyOnFavorite bool `gorm:"column:notify_on_favorite;not null" json:"notify_on_favorite"`
	NotifyOnUpload   bool `gorm:"column:notify_on_upload;not null" json:"notify_on_upload"`
	NotifyOnComment  bool `gorm:"column:notify_on_comment;not null" json:"notify_on_comment"`
	NotifyOnExpiry   bool `gorm:"column:notify_on_expiry;not null" json:"notify_on_expiry"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (NotificationPreference) TableName() string {
	return "notification_preference"
}

type Notification struct {
	ID uint64 `gorm:"primaryKey" json:"id"`

	UserID          string  `gorm:"column:user_id;size:128;not null;index" json:"user_id"`
	SharedGalleryID uint64  `gorm:"column:shared_gallery_id;not null;index" json:"shared_gallery_id"`
	Type            string  `gorm:"column:type;size:32;not null" json:"type"`
	Message         string  `gorm:"column:message;type:text;not null" json:"message"`
	ViewerID        *uint64 `gorm:"column:viewer_id" json:"viewer_id,omitempty"`
	ImageID         *string `gorm:"column:image_id;size:64" json:"image_id,omitempty"`
	IsRead          bool    `gorm:"column:is_read;not null;default:false" json:"is_read"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName returns the database table name.
func (Notification) TableName() string {
	return "notification"
}
