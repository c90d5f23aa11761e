package handler

import (
	"strings"

	"posevault/internal/errs"
	"posevault/internal/service"
	"posevault/utils"

	"github.com/gin-gonic/gin"
)

// ObjectHandler serves owner object routes under the bearer subject's
// namespace.
type ObjectHandler struct {
	Proxy *service.ObjectProxy
}

func objectKey(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("key"), "/")
}

func (h *ObjectHandler) Get(c *gin.Context) {
	obj, err := h.Proxy.OwnerGet(c.Request.Context(), utils.Subject(c), objectKey(c))
	if err != nil {
		utils.Fail(c, err)
		return
	}
	streamObject(c, obj)
}

func (h *ObjectHandler) Delete(c *gin.Context) {
	key := objectKey(c)
	if err := h.Proxy.OwnerDelete(c.Request.Context(), utils.Subject(c), key); err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, gin.H{"key": key})
}

// Upload stores a multipart `file`; the optional `key` form field picks the
// destination.
func (h *ObjectHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		utils.Fail(c, errs.Input(errs.CodeMissingFields, "file is required"))
		return
	}
	file, err := header.Open()
	if err != nil {
		utils.Fail(c, errs.Input(errs.CodeInvalidInput, "unreadable file"))
		return
	}
	defer file.Close()

	key, err := h.Proxy.OwnerPut(
		c.Request.Context(),
		utils.Subject(c),
		c.PostForm("key"),
		header.Filename,
		header.Header.Get("Content-Type"),
		file,
		header.Size,
	)
	if err != nil {
		utils.Fail(c, err)
		return
	}
	utils.OK(c, gin.H{"key": key, "size": header.Size})
}
