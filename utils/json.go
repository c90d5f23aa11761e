package utils

import (
	"errors"
	"net/http"

	"posevault/internal/errs"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// OK writes a success envelope: {ok:true} merged with fields.
func OK(c *gin.Context, fields gin.H) {
	body := gin.H{"ok": true}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// Fail writes an error envelope {ok:false, error, code} with the status
// mapped from the error kind.
func Fail(c *gin.Context, err error) {
	e := errs.As(err)
	status := errs.HTTPStatus(e)
	msg := e.Message
	switch e.Kind {
	case errs.KindUpstream:
		msg = e.Error()
		logrus.WithError(err).WithField("path", c.FullPath()).Error("upstream failure")
	case errs.KindInternal:
		logrus.WithError(err).WithField("path", c.FullPath()).Error("internal failure")
	}
	c.JSON(status, gin.H{
		"ok":    false,
		"error": msg,
		"code":  e.Code,
	})
}

// BindError converts a gin binding failure into an InputError.
func BindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return errs.Input(errs.CodeMissingFields, "invalid field %s: %s", fe.Field(), fe.Tag())
	}
	return errs.Input(errs.CodeInvalidInput, "malformed request body")
}

// MethodNotAllowed is the gin NoMethod handler.
func MethodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{"ok": false, "error": "method not allowed", "code": "method_not_allowed"})
}

// RouteNotFound is the gin NoRoute handler.
func RouteNotFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "route not found", "code": errs.CodeNotFound})
}
