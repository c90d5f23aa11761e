package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"posevault/internal/errs"
	"posevault/internal/metrics"
	"posevault/internal/repo"
	"posevault/internal/storage"
	"posevault/model"
	"posevault/utils"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// ViewerUpload is one viewer upload attempt. Identifier fields stay raw so
// that they are only judged after the token and upload flag checks.
type ViewerUpload struct {
	Token           string
	SharedGalleryID string
	ViewerID        string
	File            io.Reader
	FileName        string
	Size            int64
	ContentType     string
	// Oversize marks a request body cut off at its byte budget; the file
	// and form fields are then unknown.
	Oversize bool
}

// MultipartOverhead is the room an upload body gets above the file limit
// for form fields and part headers.
const MultipartOverhead = 1 << 20

type UploadResult struct {
	Upload   *model.ShareUpload
	Approved bool
	Message  string
}

// UploadGate admits viewer uploads into a shared gallery.
type UploadGate struct {
	validator *TokenValidator
	viewers   repo.ViewerRepository
	uploads   repo.UploadRepository
	activity  repo.ActivityRepository
	store     storage.Store
	events    EventPublisher
	now       func() time.Time
}

func NewUploadGate(v *TokenValidator, repos repo.Repos, store storage.Store, events EventPublisher) *UploadGate {
	return &UploadGate{
		validator: v,
		viewers:   repos.Viewers,
		uploads:   repos.Uploads,
		activity:  repos.Activity,
		store:     store,
		events:    events,
		now:       time.Now,
	}
}

// BodyLimit returns the request body budget for an upload made with token:
// the share's file limit plus MultipartOverhead. It reports false when the
// token does not resolve to a live share accepting uploads.
func (g *UploadGate) BodyLimit(ctx context.Context, token string) (int64, bool) {
	share, err := g.validator.lookup(ctx, token)
	if err != nil || share.ExpiredAt(g.validator.now()) || !share.AllowUploads {
		return 0, false
	}
	return share.UploadLimitBytes() + MultipartOverhead, true
}

func fileTooLarge(share *model.SharedGallery) error {
	limit := share.UploadLimitBytes()
	return errs.Denied(errs.CodeFileTooLarge, "file too large: maximum size is %d MB (%s)",
		limit>>20, humanize.IBytes(uint64(limit)))
}

// Upload runs the admission checks in order and stores the file. The object
// is written before the row; a failed row insert deletes the object again
// before the error is returned.
func (g *UploadGate) Upload(ctx context.Context, req ViewerUpload) (*UploadResult, error) {
	res, err := g.upload(ctx, req)
	if err != nil {
		metrics.ViewerUploads.WithLabelValues(errs.CodeOf(err)).Inc()
		return nil, err
	}
	metrics.ViewerUploads.WithLabelValues("ok").Inc()
	return res, nil
}

func (g *UploadGate) upload(ctx context.Context, req ViewerUpload) (*UploadResult, error) {
	share, err := g.validator.Validate(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	if !share.AllowUploads {
		return nil, errs.Denied(errs.CodeUploadsDisabled, "uploads are disabled for this share")
	}
	if req.Oversize {
		return nil, fileTooLarge(share)
	}
	if req.File == nil || strings.TrimSpace(req.ViewerID) == "" || strings.TrimSpace(req.SharedGalleryID) == "" {
		return nil, errs.Input(errs.CodeMissingFields, "file, viewer_id and shared_gallery_id are required")
	}
	sharedGalleryID, err := strconv.ParseUint(strings.TrimSpace(req.SharedGalleryID), 10, 64)
	if err != nil {
		return nil, errs.Input(errs.CodeInvalidInput, "shared_gallery_id must be numeric")
	}
	viewerID, err := strconv.ParseUint(strings.TrimSpace(req.ViewerID), 10, 64)
	if err != nil {
		return nil, errs.Input(errs.CodeInvalidInput, "viewer_id must be numeric")
	}
	if sharedGalleryID != share.ID {
		return nil, errs.Denied(errs.CodeAccessDenied, "shared_gallery_id does not match the share link")
	}

	if req.Size > share.UploadLimitBytes() {
		return nil, fileTooLarge(share)
	}

	if share.MaxUploadsPerViewer != nil {
		count, err := g.uploads.CountByViewer(ctx, share.ID, viewerID)
		if err != nil {
			return nil, errs.Upstream("count viewer uploads", err)
		}
		if count >= int64(*share.MaxUploadsPerViewer) {
			return nil, errs.Denied(errs.CodeUploadLimitReached,
				"upload limit reached: at most %d uploads per viewer", *share.MaxUploadsPerViewer)
		}
	}

	viewer, err := g.viewers.Get(ctx, share.ID, viewerID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, errs.Denied(errs.CodeAccessDenied, "viewer is not registered on this share")
	}
	if err != nil {
		return nil, errs.Upstream("load viewer", err)
	}

	now := g.now()
	key := fmt.Sprintf("%sshare-uploads/%d/%d-%s",
		share.OwnerPrefix(), share.ID, now.UnixMilli(), utils.SanitizeFilename(req.FileName))
	contentType := req.ContentType
	if contentType == "" {
		contentType = storage.DefaultContentType
	}
	if err := g.store.PutObject(ctx, key, req.File, req.Size, storage.PutOptions{ContentType: contentType}); err != nil {
		return nil, errs.Upstream("store upload", err)
	}

	upload := &model.ShareUpload{
		SharedGalleryID:  share.ID,
		ViewerID:         viewerID,
		StorageKey:       key,
		OriginalFilename: req.FileName,
		Size:             req.Size,
		Approved:         !share.RequireUploadApproval,
		UploadedAt:       now,
	}
	if err := g.uploads.Create(ctx, upload); err != nil {
		g.removeOrphan(ctx, key, err)
		return nil, errs.Upstream("record upload", err)
	}

	g.afterUpload(ctx, share, viewer, upload)

	msg := "Photo added to gallery"
	if !upload.Approved {
		msg = "Photo submitted for approval"
	}
	return &UploadResult{Upload: upload, Approved: upload.Approved, Message: msg}, nil
}

func (g *UploadGate) removeOrphan(ctx context.Context, key string, cause error) {
	// Runs on the request path; the caller still gets the insert error.
	if err := g.store.RemoveObject(context.WithoutCancel(ctx), key); err != nil {
		metrics.UploadCompensations.WithLabelValues("failed").Inc()
		logrus.WithError(err).WithFields(logrus.Fields{
			"key":   key,
			"cause": cause.Error(),
		}).Error("remove orphaned upload failed")
		return
	}
	metrics.UploadCompensations.WithLabelValues("removed").Inc()
}

func (g *UploadGate) afterUpload(ctx context.Context, share *model.SharedGallery, viewer *model.ShareViewer, upload *model.ShareUpload) {
	viewerID := viewer.ID
	if err := g.activity.AddAccessLog(ctx, &model.ShareAccessLog{
		SharedGalleryID: share.ID,
		ViewerID:        &viewerID,
		Action:          model.ActionUpload,
	}); err != nil {
		logrus.WithError(err).WithField("share_id", share.ID).Warn("record upload access log failed")
	}
	if upload.Approved {
		return
	}
	publish(ctx, g.events, NotifyEvent{
		SharedGalleryID: share.ID,
		Type:            model.NotifyUploadPending,
		ViewerName:      viewer.DisplayName,
	})
}
