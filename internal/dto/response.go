package dto

import (
	"time"

	"posevault/model"
)

// ShareResponse is the owner's view of a share link.
type ShareResponse struct {
	ID                    uint64     `json:"id"`
	GalleryID             string     `json:"galleryId"`
	Token                 string     `json:"token"`
	IsActive              bool       `json:"isActive"`
	ExpiresAt             *time.Time `json:"expiresAt,omitempty"`
	AllowUploads          bool       `json:"allowUploads"`
	RequireUploadApproval bool       `json:"requireUploadApproval"`
	MaxUploadsPerViewer   *int       `json:"maxUploadsPerViewer,omitempty"`
	MaxUploadSizeMB       int        `json:"maxUploadSizeMb"`
}

func NewShareResponse(s *model.SharedGallery) ShareResponse {
	return ShareResponse{
		ID:                    s.ID,
		GalleryID:             s.GalleryID,
		Token:                 s.ShareToken,
		IsActive:              s.IsActive,
		ExpiresAt:             s.ExpiresAt,
		AllowUploads:          s.AllowUploads,
		RequireUploadApproval: s.RequireUploadApproval,
		MaxUploadsPerViewer:   s.MaxUploadsPerViewer,
		MaxUploadSizeMB:       s.MaxUploadSizeMB,
	}
}

type ViewerResponse struct {
	ID              uint64 `json:"id"`
	SharedGalleryID uint64 `json:"sharedGalleryId"`
	DisplayName     string `json:"displayName"`
}

type UploadResponse struct {
	ID               uint64    `json:"id"`
	SharedGalleryID  uint64    `json:"sharedGalleryId"`
	ViewerID         uint64    `json:"viewerId"`
	StorageKey       string    `json:"r2Key"`
	OriginalFilename string    `json:"originalFilename"`
	Size             int64     `json:"size"`
	Approved         bool      `json:"approved"`
	UploadedAt       time.Time `json:"uploadedAt"`
}

func NewUploadResponse(u *model.ShareUpload) UploadResponse {
	return UploadResponse{
		ID:               u.ID,
		SharedGalleryID:  u.SharedGalleryID,
		ViewerID:         u.ViewerID,
		StorageKey:       u.StorageKey,
		OriginalFilename: u.OriginalFilename,
		Size:             u.Size,
		Approved:         u.Approved,
		UploadedAt:       u.UploadedAt,
	}
}
