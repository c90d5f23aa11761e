package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"posevault/internal/errs"
	"posevault/internal/storage"
	"posevault/model"
	"posevault/utils"
)

// Cache policies for proxied objects. Owner keys are written once; share
// validity can change at any time.
const (
	OwnerCacheControl = "private, max-age=31536000, immutable"
	ShareCacheControl = "private, max-age=300"
)

// Object is an opened object ready to stream.
type Object struct {
	Body         io.ReadCloser
	Key          string
	Size         int64
	ContentType  string
	CacheControl string
}

// ObjectProxy streams objects between clients and the store. The
// `users/<id>/` prefix is the only access boundary.
type ObjectProxy struct {
	store     storage.Store
	validator *TokenValidator
	now       func() time.Time
}

func NewObjectProxy(store storage.Store, validator *TokenValidator) *ObjectProxy {
	return &ObjectProxy{store: store, validator: validator, now: time.Now}
}

func checkOwnerKey(subject, key string) error {
	if key == "" {
		return errs.Input(errs.CodeMissingFields, "object key is required")
	}
	if !model.KeyOwnedBy(key, subject) {
		return errs.Denied(errs.CodeAccessDenied, "key is outside your storage namespace")
	}
	return nil
}

// OwnerGet opens key for its owner.
func (p *ObjectProxy) OwnerGet(ctx context.Context, subject, key string) (*Object, error) {
	if err := checkOwnerKey(subject, key); err != nil {
		return nil, err
	}
	return p.open(ctx, key, OwnerCacheControl)
}

// OwnerDelete removes key for its owner.
func (p *ObjectProxy) OwnerDelete(ctx context.Context, subject, key string) error {
	if err := checkOwnerKey(subject, key); err != nil {
		return err
	}
	if err := p.store.RemoveObject(ctx, key); err != nil {
		return errs.Upstream("delete object", err)
	}
	return nil
}

// OwnerPut stores an upload under the subject's namespace. An empty key is
// generated from the filename.
func (p *ObjectProxy) OwnerPut(ctx context.Context, subject, key, fileName, contentType string, r io.Reader, size int64) (string, error) {
	if r == nil {
		return "", errs.Input(errs.CodeMissingFields, "file is required")
	}
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" {
		key = fmt.Sprintf("%s%d-%s", model.UserPrefix(subject), p.now().UnixMilli(), utils.SanitizeFilename(fileName))
	}
	if err := checkOwnerKey(subject, key); err != nil {
		return "", err
	}
	if contentType == "" {
		contentType = storage.DefaultContentType
	}
	if err := p.store.PutObject(ctx, key, r, size, storage.PutOptions{ContentType: contentType}); err != nil {
		return "", errs.Upstream("put object", err)
	}
	return key, nil
}

// ShareGet opens key for a share viewer. The token is revalidated on every
// request and key must sit under the share owner's namespace.
func (p *ObjectProxy) ShareGet(ctx context.Context, token, key string) (*Object, error) {
	share, err := p.validator.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, errs.Input(errs.CodeMissingFields, "key is required")
	}
	if !model.KeyOwnedBy(key, share.OwnerID) {
		return nil, errs.Denied(errs.CodeAccessDenied, "key is not part of this share")
	}
	return p.open(ctx, key, ShareCacheControl)
}

func (p *ObjectProxy) open(ctx context.Context, key, cacheControl string) (*Object, error) {
	body, info, err := p.store.GetObject(ctx, key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, errs.NotFound(errs.CodeNotFound, "object not found")
	}
	if err != nil {
		return nil, errs.Upstream("get object", err)
	}
	contentType := info.ContentType
	if contentType == "" {
		contentType = storage.DefaultContentType
	}
	return &Object{
		Body:         body,
		Key:          key,
		Size:         info.Size,
		ContentType:  contentType,
		CacheControl: cacheControl,
	}, nil
}
