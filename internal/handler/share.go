package handler

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"posevault/internal/dto"
	"posevault/internal/errs"
	"posevault/internal/service"
	"posevault/utils"

	"github.com/gin-gonic/gin"
)

// ShareHandler serves token-authenticated viewer routes.
type ShareHandler struct {
	Shares  *service.ShareService
	Uploads *service.UploadGate
	Proxy   *service.ObjectProxy
	// MaxMultipartBytes bounds a viewer upload request body.
	MaxMultipartBytes int64
}

func visitor(c *gin.Context) service.Visitor {
	return service.Visitor{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}

// Gallery returns the shared gallery metadata and images.
func (h *ShareHandler) Gallery(c *gin.Context) {
	var req dto.ShareGalleryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Fail(c, utils.BindError(err))
		return
	}
	view, err := h.Shares.Gallery(c.Request.Context(), req.Token, req.ViewerName, visitor(c))
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, gin.H{"data": view})
}

// Image streams one object of the shared gallery.
func (h *ShareHandler) Image(c *gin.Context) {
	obj, err := h.Proxy.ShareGet(c.Request.Context(), c.Query("token"), c.Query("key"))
	if err != nil {
		utils.Fail(c, err)
		return
	}
	streamObject(c, obj)
}

// Upload admits a viewer upload. The token comes from the query string.
// The body budget follows the share's file limit; MaxMultipartBytes applies
// when the token does not resolve.
func (h *ShareHandler) Upload(c *gin.Context) {
	req := service.ViewerUpload{Token: c.Query("token")}
	budget := h.MaxMultipartBytes
	if limit, ok := h.Uploads.BodyLimit(c.Request.Context(), req.Token); ok {
		budget = limit
	}
	if budget > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, budget)
	}

	var tooBig *http.MaxBytesError
	if _, err := c.MultipartForm(); errors.As(err, &tooBig) {
		req.Oversize = true
	} else {
		req.SharedGalleryID = c.PostForm("shared_gallery_id")
		req.ViewerID = c.PostForm("viewer_id")
		if header, err := c.FormFile("file"); err == nil {
			file, err := header.Open()
			if err != nil {
				utils.Fail(c, errs.Input(errs.CodeInvalidInput, "unreadable file"))
				return
			}
			defer file.Close()
			req.File = file
			req.FileName = header.Filename
			req.Size = header.Size
			req.ContentType = header.Header.Get("Content-Type")
		}
	}

	res, err := h.Uploads.Upload(c.Request.Context(), req)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, gin.H{
		"data":     dto.NewUploadResponse(res.Upload),
		"approved": res.Approved,
		"message":  res.Message,
	})
}

// RegisterViewer records a viewer's display name on the share.
func (h *ShareHandler) RegisterViewer(c *gin.Context) {
	var req dto.RegisterViewerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Fail(c, utils.BindError(err))
		return
	}
	viewer, err := h.Shares.RegisterViewer(c.Request.Context(), req.Token, req.DisplayName, visitor(c))
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, gin.H{"data": dto.ViewerResponse{
		ID:              viewer.ID,
		SharedGalleryID: viewer.SharedGalleryID,
		DisplayName:     viewer.DisplayName,
	}})
}

func (h *ShareHandler) Favorite(c *gin.Context) {
	var req dto.FavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Fail(c, utils.BindError(err))
		return
	}
	fav, err := h.Shares.Favorite(c.Request.Context(), req.Token, req.ViewerID, req.ImageID)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, gin.H{"data": fav})
}

func (h *ShareHandler) Comment(c *gin.Context) {
	var req dto.CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Fail(c, utils.BindError(err))
		return
	}
	comment, err := h.Shares.Comment(c.Request.Context(), req.Token, req.ViewerID, req.ImageID, req.Comment)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, gin.H{"data": comment})
}

func streamObject(c *gin.Context, obj *service.Object) {
	defer obj.Body.Close()
	c.Header("Cache-Control", obj.CacheControl)
	c.Header("Content-Type", obj.ContentType)
	c.Header("Content-Length", strconv.FormatInt(obj.Size, 10))
	c.Status(http.StatusOK)
	// Headers are already sent; a copy error can only be logged by gin.
	if _, err := io.Copy(c.Writer, obj.Body); err != nil {
		_ = c.Error(err)
	}
}
