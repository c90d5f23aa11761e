package model

import "time"

// Access log actions.
const (
	ActionViewGallery = "view_gallery"
	ActionJoin        = "join"
	ActionViewImage   = "view_image"
	ActionUpload      = "upload"
)

// ShareViewer is a self-declared viewer identity on one share.
type ShareViewer struct {
	ID uint64 `gorm:"primaryKey" json:"id"`

	SharedGalleryID uint64 `gorm:"column:shared_gallery_id;not null;index:idx_viewer_share_name,priority:1" json:"shared_gallery_id"`
	DisplayName     string `gorm:"column:display_name;size:120;not null;index:idx_viewer_share_name,priority:2" json:"display_name"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName returns the database table name.
func (ShareViewer) TableName() string {
	return "share_viewer"
}

type ShareUpload struct {
	ID uint64 `gorm:"primaryKey" json:"id"`

	SharedGalleryID uint64 `gorm:"column:shared_gallery_id;not null;index:idx_upload_share_viewer,priority:1" json:"shared_gallery_id"`
	ViewerID        uint64 `gorm:"column:viewer_id;not null;index:idx_upload_share_viewer,priority:2" json:"viewer_id"`

	StorageKey       string `gorm:"column:storage_key;size:512;not null" json:"storage_key"`
	OriginalFilename string `gorm:"column:original_filename;size:255;not null" json:"original_filename"`
	Size             int64  `gorm:"column:size;not null;default:0" json:"size"`
	Approved         bool   `gorm:"column:approved;not null" json:"approved"`

	UploadedAt time.Time `gorm:"column:uploaded_at;not null" json:"uploaded_at"`
}

// TableName returns the database table name.
func (ShareUpload) TableName() string {
	return "share_upload"
}

type ShareFavorite struct {
	ID uint64 `gorm:"primaryKey" json:"id"`

	SharedGalleryID uint64 `gorm:"column:shared_gallery_id;not null;index" json:"shared_gallery_id"`
	ViewerID        uint64 `gorm:"column:viewer_id;not null;index" json:"viewer_id"`
	ImageID         string `gorm:"column:image_id;size:64;not null" json:"image_id"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name.
func (ShareFavorite) TableName() string {
	return "share_favorite"
}

type ShareComment struct {
	ID uint64 `gorm:"primaryKey" json:"id"`

	SharedGalleryID uint64  `gorm:"column:shared_gallery_id;not null;index" json:"shared_gallery_id"`
	ViewerID        uint64  `gorm:"column:viewer_id;not null;index" json:"viewer_id"`
	ImageID         *string `gorm:"column:image_id;size:64" json:"image_id,omitempty"`
	Comment         string  `gorm:"column:comment;type:text;not null" json:"comment"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName returns the database table name.
func (ShareComment) TableName() string {
	return "share_comment"
}

// ShareAccessLog stores viewer actions on a share.
type ShareAccessLog struct {
	ID uint64 `gorm:"primaryKey" json:"id"`

	SharedGalleryID uint64  `gorm:"column:shared_gallery_id;not null;index" json:"shared_gallery_id"`
	ViewerID        *uint64 `gorm:"column:viewer_id;index" json:"viewer_id,omitempty"`
	Action          string  `gorm:"column:action;size:32;not null;index" json:"action"`

	VisitorIP string `gorm:"column:visitor_ip;size:64;not null;default:''" json:"visitor_ip"`
	UserAgent string `gorm:"column:user_agent;type:text" json:"user_agent"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name.
func (ShareAccessLog) TableName() string {
	return "share_access_log"
}
