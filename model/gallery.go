package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Gallery is an owner's category of pose images.
type Gallery struct {
	UID string `gorm:"column:uid;primaryKey;size:64" json:"uid"`

	OwnerID string `gorm:"column:owner_id;size:128;not null;index" json:"-"`

	Name          string `gorm:"column:name;size:255;not null" json:"name"`
	Notes         string `gorm:"column:notes;type:text" json:"notes"`
	CoverImageUID string `gorm:"column:cover_image_uid;size:64" json:"cover_image_uid"`

	Images []Image `gorm:"foreignKey:CategoryUID;references:UID" json:"images"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName returns the database table name.
func (Gallery) TableName() string {
	return "gallery"
}

type Image struct {
	UID string `gorm:"column:uid;primaryKey;size:64" json:"uid"`

	OwnerID     string `gorm:"column:owner_id;size:128;not null;index" json:"-"`
	CategoryUID string `gorm:"column:category_uid;size:64;not null;index" json:"category_uid"`

	Name       string   `gorm:"column:name;size:255;not null" json:"name"`
	Notes      string   `gorm:"column:notes;type:text" json:"notes"`
	StorageKey string   `gorm:"column:storage_key;size:512;not null" json:"storage_key"`
	Favorite   bool     `gorm:"column:favorite;not null;default:false" json:"favorite"`
	CoverImage bool     `gorm:"column:cover_image;not null;default:false" json:"cover_image"`
	Tags       []string `gorm:"column:tags;serializer:json" json:"tags"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (Image) TableName() string {
	return "image"
}

// UserPrefix returns the storage namespace owned by userID.
func UserPrefix(userID string) string {
	return "users/" + userID + "/"
}

// KeyOwnedBy reports whether key lives under userID's namespace. Keys with
// parent-directory segments never match.
func KeyOwnedBy(key, userID string) bool {
	if userID == "" || strings.Contains(userID, "/") {
		return false
	}
	prefix := UserPrefix(userID)
	if !strings.HasPrefix(key, prefix) || len(key) == len(prefix) {
		return false
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." || seg == "." {
			return false
		}
	}
	return true
}
