package service

import (
	"context"
	"errors"
	"strings"

	"posevault/internal/errs"
	"posevault/internal/repo"
	"posevault/model"
)

// GalleryService syncs an owner's gallery list with the datastore.
type GalleryService struct {
	galleries repo.GalleryRepository
}

func NewGalleryService(galleries repo.GalleryRepository) *GalleryService {
	return &GalleryService{galleries: galleries}
}

func (s *GalleryService) Get(ctx context.Context, ownerID string) ([]model.Gallery, error) {
	galleries, err := s.galleries.Get(ctx, ownerID)
	if err != nil {
		return nil, errs.Upstream("list galleries", err)
	}
	if galleries == nil {
		galleries = []model.Gallery{}
	}
	return galleries, nil
}

// Put replaces the owner's gallery list. Every image key must live under
// the owner's namespace.
func (s *GalleryService) Put(ctx context.Context, ownerID string, galleries []model.Gallery) error {
	seenGallery := make(map[string]struct{})
	seenImage := make(map[string]struct{})
	for _, g := range galleries {
		if strings.TrimSpace(g.UID) == "" || strings.TrimSpace(g.Name) == "" {
			return errs.Input(errs.CodeMissingFields, "every gallery needs a uid and a name")
		}
		if _, dup := seenGallery[g.UID]; dup {
			return errs.Input(errs.CodeInvalidInput, "duplicate gallery uid %q", g.UID)
		}
		seenGallery[g.UID] = struct{}{}
		for _, img := range g.Images {
			if strings.TrimSpace(img.UID) == "" {
				return errs.Input(errs.CodeMissingFields, "every image needs a uid")
			}
			if _, dup := seenImage[img.UID]; dup {
				return errs.Input(errs.CodeInvalidInput, "duplicate image uid %q", img.UID)
			}
			seenImage[img.UID] = struct{}{}
			if !model.KeyOwnedBy(img.StorageKey, ownerID) {
				return errs.Denied(errs.CodeAccessDenied, "image %q is outside your storage namespace", img.UID)
			}
		}
	}
	err := s.galleries.Put(ctx, ownerID, galleries)
	if errors.Is(err, repo.ErrOwnership) {
		return errs.Denied(errs.CodeAccessDenied, "a gallery or image uid belongs to another user")
	}
	if err != nil {
		return errs.Upstream("save galleries", err)
	}
	return nil
}
