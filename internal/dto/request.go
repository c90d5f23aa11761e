package dto

import "posevault/model"

type ShareGalleryRequest struct {
	Token      string `json:"token" binding:"required"`
	ViewerName string `json:"viewerName"`
}

type RegisterViewerRequest struct {
	Token       string `json:"token" binding:"required"`
	DisplayName string `json:"displayName" binding:"required"`
}

type FavoriteRequest struct {
	Token    string `json:"token" binding:"required"`
	ViewerID uint64 `json:"viewerId" binding:"required"`
	ImageID  string `json:"imageId" binding:"required"`
}

type CommentRequest struct {
	Token    string `json:"token" binding:"required"`
	ViewerID uint64 `json:"viewerId" binding:"required"`
	ImageID  string `json:"imageId"`
	Comment  string `json:"comment" binding:"required"`
}

type CreateShareRequest struct {
	GalleryID             string `json:"galleryId" binding:"required"`
	ExpireDays            int    `json:"expireDays" binding:"gte=0"`
	AllowUploads          bool   `json:"allowUploads"`
	RequireUploadApproval bool   `json:"requireUploadApproval"`
	MaxUploadsPerViewer   *int   `json:"maxUploadsPerViewer" binding:"omitempty,gte=0"`
	MaxUploadSizeMB       int    `json:"maxUploadSizeMb" binding:"gte=0"`
}

type PutGalleriesRequest struct {
	Galleries []model.Gallery `json:"galleries"`
}

type NotificationRequest struct {
	SharedGalleryID uint64 `json:"sharedGalleryId" binding:"required"`
	Type            string `json:"type" binding:"required"`
	ViewerName      string `json:"viewerName"`
	ImageID         string `json:"imageId"`
}

type ActivityRequest struct {
	SharedGalleryID uint64 `json:"sharedGalleryId" binding:"required"`
}
