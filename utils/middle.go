package utils

import (
	"strings"

	"posevault/internal/errs"

	"github.com/gin-gonic/gin"
)

// ContextSubject is the gin context key holding the verified subject.
const ContextSubject = "user_id"

// BearerCredential extracts the token from an `Authorization: Bearer` header.
func BearerCredential(header string) (string, error) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", ErrNoBearer
	}
	return strings.TrimSpace(parts[1]), nil
}

// AuthMiddleware verifies the bearer credential and sets the subject.
func AuthMiddleware(v Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		credential, err := BearerCredential(c.GetHeader("Authorization"))
		if err != nil {
			Fail(c, errs.Auth("missing credential"))
			c.Abort()
			return
		}
		subject, err := v.Verify(credential)
		if err != nil {
			Fail(c, err)
			c.Abort()
			return
		}
		c.Set(ContextSubject, subject)
		c.Next()
	}
}

// Subject returns the verified subject set by AuthMiddleware.
func Subject(c *gin.Context) string {
	return c.GetString(ContextSubject)
}
