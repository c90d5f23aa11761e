package handler

import (
	"posevault/internal/dto"
	"posevault/internal/service"
	"posevault/utils"

	"github.com/gin-gonic/gin"
)

// InternalHandler serves routes called with the service credential.
type InternalHandler struct {
	Dispatcher *service.Dispatcher
	Aggregator *service.Aggregator
	Sweeper    *service.Sweeper
}

func (h *InternalHandler) CreateNotification(c *gin.Context) {
	var req dto.NotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Fail(c, utils.BindError(err))
		return
	}
	res, err := h.Dispatcher.Dispatch(c.Request.Context(), service.NotifyEvent{
		SharedGalleryID: req.SharedGalleryID,
		Type:            req.Type,
		ViewerName:      req.ViewerName,
		ImageID:         req.ImageID,
	})
	if err != nil {
		utils.Fail(c, err)
		return
	}
	if res.Skipped {
		utils.OK(c, gin.H{"skipped": true, "reason": res.Reason})
		return
	}
	utils.OK(c, nil)
}

func (h *InternalHandler) Activity(c *gin.Context) {
	var req dto.ActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Fail(c, utils.BindError(err))
		return
	}
	summary, err := h.Aggregator.Summary(c.Request.Context(), req.SharedGalleryID)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, gin.H{"summary": summary})
}

func (h *InternalHandler) Sweep(c *gin.Context) {
	res, err := h.Sweeper.Run(c.Request.Context())
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, gin.H{"deactivated": res.Deactivated, "notified": res.Notified})
}
