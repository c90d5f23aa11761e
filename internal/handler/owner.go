package handler

import (
	"strconv"
	"strings"

	"posevault/internal/dto"
	"posevault/internal/errs"
	"posevault/internal/service"
	"posevault/utils"

	"github.com/gin-gonic/gin"
)

// OwnerHandler serves bearer-authenticated gallery and share management.
type OwnerHandler struct {
	Galleries  *service.GalleryService
	Manager    *service.ShareManager
	Aggregator *service.Aggregator
}

func parseShareID(c *gin.Context) (uint64, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id == 0 {
		return 0, errs.Input(errs.CodeInvalidInput, "share id must be a positive number")
	}
	return id, nil
}

func (h *OwnerHandler) ListGalleries(c *gin.Context) {
	galleries, err := h.Galleries.Get(c.Request.Context(), utils.Subject(c))
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, gin.H{"galleries": galleries})
}

func (h *OwnerHandler) PutGalleries(c *gin.Context) {
	var req dto.PutGalleriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Fail(c, utils.BindError(err))
		return
	}
	if err := h.Galleries.Put(c.Request.Context(), utils.Subject(c), req.Galleries); err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, gin.H{"count": len(req.Galleries)})
}

func (h *OwnerHandler) CreateShare(c *gin.Context) {
	var req dto.CreateShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Fail(c, utils.BindError(err))
		return
	}
	share, err := h.Manager.Create(c.Request.Context(), utils.Subject(c), service.CreateShareInput{
		GalleryID:             req.GalleryID,
		ExpireDays:            req.ExpireDays,
		AllowUploads:          req.AllowUploads,
		RequireUploadApproval: req.RequireUploadApproval,
		MaxUploadsPerViewer:   req.MaxUploadsPerViewer,
		MaxUploadSizeMB:       req.MaxUploadSizeMB,
	})
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, gin.H{"share": dto.NewShareResponse(share)})
}

func (h *OwnerHandler) DeactivateShare(c *gin.Context) {
	id, err := parseShareID(c)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	if err := h.Manager.Deactivate(c.Request.Context(), utils.Subject(c), id); err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, nil)
}

func (h *OwnerHandler) ShareActivity(c *gin.Context) {
	id, err := parseShareID(c)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	summary, err := h.Aggregator.SummaryForOwner(c.Request.Context(), utils.Subject(c), id)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, gin.H{"summary": summary})
}
