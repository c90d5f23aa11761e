package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"posevault/internal/errs"
	"posevault/internal/repo"
	"posevault/model"
	"posevault/utils"

	"github.com/sirupsen/logrus"
)

const (
	maxDisplayNameLen = 120
	maxCommentLen     = 2000
)

// Visitor carries request metadata recorded in access logs.
type Visitor struct {
	IP        string
	UserAgent string
}

type SharedImage struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Notes string   `json:"notes"`
	R2Key string   `json:"r2Key"`
	Tags  []string `json:"tags"`
}

type SharedGalleryInfo struct {
	Name  string `json:"name"`
	Notes string `json:"notes"`
}

// SharedGalleryView is what a viewer sees through a share link.
type SharedGalleryView struct {
	Gallery SharedGalleryInfo `json:"gallery"`
	Images  []SharedImage     `json:"images"`
	Share   ShareFlags        `json:"share"`
}

// ShareFlags exposes the upload rules a viewer client needs.
type ShareFlags struct {
	ID                    uint64     `json:"id"`
	AllowUploads          bool       `json:"allowUploads"`
	RequireUploadApproval bool       `json:"requireUploadApproval"`
	MaxUploadsPerViewer   *int       `json:"maxUploadsPerViewer,omitempty"`
	MaxUploadSizeMB       int        `json:"maxUploadSizeMb"`
	ExpiresAt             *time.Time `json:"expiresAt,omitempty"`
}

// ShareService serves viewer requests made with a share token.
type ShareService struct {
	validator *TokenValidator
	galleries repo.GalleryRepository
	viewers   repo.ViewerRepository
	activity  repo.ActivityRepository
	events    EventPublisher
	now       func() time.Time
}

func NewShareService(v *TokenValidator, repos repo.Repos, events EventPublisher) *ShareService {
	return &ShareService{
		validator: v,
		galleries: repos.Galleries,
		viewers:   repos.Viewers,
		activity:  repos.Activity,
		events:    events,
		now:       time.Now,
	}
}

func (s *ShareService) sharedGallery(ctx context.Context, share *model.SharedGallery) (*model.Gallery, error) {
	gallery, err := s.galleries.Find(ctx, share.OwnerID, share.GalleryID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, errs.NotFound(errs.CodeNotFound, "shared gallery no longer exists")
	}
	if err != nil {
		return nil, errs.Upstream("load gallery", err)
	}
	return gallery, nil
}

// Gallery returns gallery metadata and images for a valid token. Nothing
// about the gallery is loaded before the token passes.
func (s *ShareService) Gallery(ctx context.Context, token, viewerName string, visitor Visitor) (*SharedGalleryView, error) {
	share, err := s.validator.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	gallery, err := s.sharedGallery(ctx, share)
	if err != nil {
		return nil, err
	}

	view := &SharedGalleryView{
		Gallery: SharedGalleryInfo{Name: gallery.Name, Notes: gallery.Notes},
		Images:  make([]SharedImage, 0, len(gallery.Images)),
		Share: ShareFlags{
			ID:                    share.ID,
			AllowUploads:          share.AllowUploads,
			RequireUploadApproval: share.RequireUploadApproval,
			MaxUploadsPerViewer:   share.MaxUploadsPerViewer,
			MaxUploadSizeMB:       int(share.UploadLimitBytes() >> 20),
			ExpiresAt:             share.ExpiresAt,
		},
	}
	for _, img := range gallery.Images {
		// Rows outside the owner's namespace are never handed out.
		if !model.KeyOwnedBy(img.StorageKey, share.OwnerID) {
			continue
		}
		tags := img.Tags
		if tags == nil {
			tags = []string{}
		}
		view.Images = append(view.Images, SharedImage{
			ID:    img.UID,
			Name:  img.Name,
			Notes: img.Notes,
			R2Key: img.StorageKey,
			Tags:  tags,
		})
	}

	s.logAccess(ctx, share.ID, nil, model.ActionViewGallery, visitor)
	publish(ctx, s.events, NotifyEvent{
		SharedGalleryID: share.ID,
		Type:            model.NotifyView,
		ViewerName:      strings.TrimSpace(viewerName),
	})
	return view, nil
}

// RegisterViewer records a self-declared viewer identity on the share.
func (s *ShareService) RegisterViewer(ctx context.Context, token, displayName string, visitor Visitor) (*model.ShareViewer, error) {
	share, err := s.validator.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, errs.Input(errs.CodeMissingFields, "displayName is required")
	}
	if len([]rune(displayName)) > maxDisplayNameLen {
		return nil, errs.Input(errs.CodeInvalidInput, "displayName is longer than %d characters", maxDisplayNameLen)
	}
	viewer := &model.ShareViewer{
		SharedGalleryID: share.ID,
		DisplayName:     displayName,
		CreatedAt:       s.now(),
	}
	if err := s.viewers.Create(ctx, viewer); err != nil {
		return nil, errs.Upstream("create viewer", err)
	}
	viewerID := viewer.ID
	s.logAccess(ctx, share.ID, &viewerID, model.ActionJoin, visitor)
	return viewer, nil
}

func (s *ShareService) viewer(ctx context.Context, share *model.SharedGallery, viewerID uint64) (*model.ShareViewer, error) {
	if viewerID == 0 {
		return nil, errs.Input(errs.CodeMissingFields, "viewerId is required")
	}
	viewer, err := s.viewers.Get(ctx, share.ID, viewerID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, errs.Denied(errs.CodeAccessDenied, "viewer is not registered on this share")
	}
	if err != nil {
		return nil, errs.Upstream("load viewer", err)
	}
	return viewer, nil
}

func (s *ShareService) imageInShare(ctx context.Context, share *model.SharedGallery, imageID string) error {
	gallery, err := s.sharedGallery(ctx, share)
	if err != nil {
		return err
	}
	for _, img := range gallery.Images {
		if img.UID == imageID {
			return nil
		}
	}
	return errs.NotFound(errs.CodeNotFound, "image %q is not in this gallery", imageID)
}

// Favorite records a viewer favoriting an image of the shared gallery.
func (s *ShareService) Favorite(ctx context.Context, token string, viewerID uint64, imageID string) (*model.ShareFavorite, error) {
	share, err := s.validator.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	viewer, err := s.viewer(ctx, share, viewerID)
	if err != nil {
		return nil, err
	}
	if imageID == "" {
		return nil, errs.Input(errs.CodeMissingFields, "imageId is required")
	}
	if err := s.imageInShare(ctx, share, imageID); err != nil {
		return nil, err
	}
	fav := &model.ShareFavorite{
		SharedGalleryID: share.ID,
		ViewerID:        viewer.ID,
		ImageID:         imageID,
		CreatedAt:       s.now(),
	}
	if err := s.activity.AddFavorite(ctx, fav); err != nil {
		return nil, errs.Upstream("record favorite", err)
	}
	publish(ctx, s.events, NotifyEvent{
		SharedGalleryID: share.ID,
		Type:            model.NotifyFavorite,
		ViewerName:      viewer.DisplayName,
		ImageID:         imageID,
	})
	return fav, nil
}

// Comment records a viewer comment, optionally on one image.
func (s *ShareService) Comment(ctx context.Context, token string, viewerID uint64, imageID, text string) (*model.ShareComment, error) {
	share, err := s.validator.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	viewer, err := s.viewer(ctx, share, viewerID)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errs.Input(errs.CodeMissingFields, "comment is required")
	}
	if len([]rune(text)) > maxCommentLen {
		return nil, errs.Input(errs.CodeInvalidInput, "comment is longer than %d characters", maxCommentLen)
	}
	comment := &model.ShareComment{
		SharedGalleryID: share.ID,
		ViewerID:        viewer.ID,
		Comment:         text,
		CreatedAt:       s.now(),
	}
	if imageID != "" {
		if err := s.imageInShare(ctx, share, imageID); err != nil {
			return nil, err
		}
		comment.ImageID = &imageID
	}
	if err := s.activity.AddComment(ctx, comment); err != nil {
		return nil, errs.Upstream("record comment", err)
	}
	publish(ctx, s.events, NotifyEvent{
		SharedGalleryID: share.ID,
		Type:            model.NotifyComment,
		ViewerName:      viewer.DisplayName,
		ImageID:         imageID,
	})
	return comment, nil
}

func (s *ShareService) logAccess(ctx context.Context, shareID uint64, viewerID *uint64, action string, visitor Visitor) {
	entry := &model.ShareAccessLog{
		SharedGalleryID: shareID,
		ViewerID:        viewerID,
		Action:          action,
		VisitorIP:       visitor.IP,
		UserAgent:       visitor.UserAgent,
		CreatedAt:       s.now(),
	}
	if err := s.activity.AddAccessLog(ctx, entry); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"share_id": shareID,
			"action":   action,
		}).Warn("record share access failed")
	}
}

// CreateShareInput describes a new share link.
type CreateShareInput struct {
	GalleryID             string
	ExpireDays            int
	AllowUploads          bool
	RequireUploadApproval bool
	MaxUploadsPerViewer   *int
	MaxUploadSizeMB       int
}

// ShareManager handles the owner side of share links.
type ShareManager struct {
	shares    repo.ShareRepository
	galleries repo.GalleryRepository
	validator *TokenValidator
	now       func() time.Time
	// maxUploadSizeMB caps the per-file limit an owner may set; 0 is no cap.
	maxUploadSizeMB int
}

func NewShareManager(repos repo.Repos, validator *TokenValidator) *ShareManager {
	return &ShareManager{
		shares:    repos.Shares,
		galleries: repos.Galleries,
		validator: validator,
		now:       time.Now,
	}
}

// WithMaxUploadSizeMB sets the largest maxUploadSizeMb a share may carry.
func (m *ShareManager) WithMaxUploadSizeMB(mb int) *ShareManager {
	m.maxUploadSizeMB = mb
	return m
}

// Create issues a new share token for one of the owner's galleries.
func (m *ShareManager) Create(ctx context.Context, ownerID string, in CreateShareInput) (*model.SharedGallery, error) {
	if strings.TrimSpace(in.GalleryID) == "" {
		return nil, errs.Input(errs.CodeMissingFields, "galleryId is required")
	}
	if in.ExpireDays < 0 || in.MaxUploadSizeMB < 0 {
		return nil, errs.Input(errs.CodeInvalidInput, "expireDays and maxUploadSizeMb must not be negative")
	}
	if m.maxUploadSizeMB > 0 && in.MaxUploadSizeMB > m.maxUploadSizeMB {
		return nil, errs.Input(errs.CodeInvalidInput, "maxUploadSizeMb must be at most %d", m.maxUploadSizeMB)
	}
	if in.MaxUploadsPerViewer != nil && *in.MaxUploadsPerViewer < 0 {
		return nil, errs.Input(errs.CodeInvalidInput, "maxUploadsPerViewer must not be negative")
	}
	if _, err := m.galleries.Find(ctx, ownerID, in.GalleryID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errs.NotFound(errs.CodeNotFound, "gallery not found")
		}
		return nil, errs.Upstream("load gallery", err)
	}

	share := &model.SharedGallery{
		OwnerID:               ownerID,
		GalleryID:             in.GalleryID,
		ShareToken:            utils.NewShareToken(),
		IsActive:              true,
		AllowUploads:          in.AllowUploads,
		RequireUploadApproval: in.RequireUploadApproval,
		MaxUploadsPerViewer:   in.MaxUploadsPerViewer,
		MaxUploadSizeMB:       in.MaxUploadSizeMB,
	}
	if share.MaxUploadSizeMB == 0 {
		share.MaxUploadSizeMB = model.DefaultMaxUploadSizeMB
	}
	if in.ExpireDays > 0 {
		expiresAt := m.now().Add(time.Duration(in.ExpireDays) * 24 * time.Hour)
		share.ExpiresAt = &expiresAt
	}
	if err := m.shares.Create(ctx, share); err != nil {
		return nil, errs.Upstream("create share", err)
	}
	return share, nil
}

// Deactivate revokes a share owned by ownerID.
func (m *ShareManager) Deactivate(ctx context.Context, ownerID string, shareID uint64) error {
	share, err := m.shares.GetByID(ctx, shareID)
	if errors.Is(err, repo.ErrNotFound) {
		return errs.NotFound(errs.CodeShareNotFound, "share not found")
	}
	if err != nil {
		return errs.Upstream("load share", err)
	}
	if share.OwnerID != ownerID {
		return errs.Denied(errs.CodeAccessDenied, "share belongs to another user")
	}
	if _, err := m.shares.Deactivate(ctx, share.ID); err != nil {
		return errs.Upstream("deactivate share", err)
	}
	// The row is already inactive here, so a retry only repeats the eviction.
	if err := m.validator.Forget(ctx, share.ShareToken); err != nil {
		return errs.Upstream("evict cached share", err)
	}
	return nil
}
