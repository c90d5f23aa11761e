package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"posevault/internal/repo"
	"posevault/internal/repo/repotest"
	"posevault/internal/storage"
	"posevault/model"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var tokenSeq atomic.Int64

var errInjected = errors.New("injected datastore failure")

type recordingPublisher struct {
	mu     sync.Mutex
	events []NotifyEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, ev NotifyEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Events() []NotifyEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]NotifyEvent(nil), p.events...)
}

type failingUploads struct {
	repo.UploadRepository
}

func (failingUploads) Create(ctx context.Context, upload *model.ShareUpload) error {
	return errInjected
}

type failingNotifications struct {
	repo.NotificationRepository
}

func (failingNotifications) Create(ctx context.Context, n *model.Notification) error {
	return errInjected
}

type fixture struct {
	db        *gorm.DB
	repos     repo.Repos
	store     *storage.MemoryStore
	events    *recordingPublisher
	validator *TokenValidator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := repotest.NewTestDB(t)
	repos := repo.NewGormRepos(db)
	return &fixture{
		db:        db,
		repos:     repos,
		store:     storage.NewMemoryStore(),
		events:    &recordingPublisher{},
		validator: NewTokenValidator(repos.Shares, nil),
	}
}

func (f *fixture) seedGallery(t *testing.T, owner, uid, name string, images ...model.Image) {
	t.Helper()
	require.NoError(t, f.repos.Galleries.Put(context.Background(), owner, append(f.galleries(t, owner), model.Gallery{
		UID:    uid,
		Name:   name,
		Notes:  name + " notes",
		Images: images,
	})))
}

func (f *fixture) galleries(t *testing.T, owner string) []model.Gallery {
	t.Helper()
	existing, err := f.repos.Galleries.Get(context.Background(), owner)
	require.NoError(t, err)
	return existing
}

// seedShare stores s with sensible defaults for the unset fields.
func (f *fixture) seedShare(t *testing.T, s model.SharedGallery) *model.SharedGallery {
	t.Helper()
	if s.OwnerID == "" {
		s.OwnerID = "u1"
	}
	if s.GalleryID == "" {
		s.GalleryID = "g1"
	}
	if s.ShareToken == "" {
		s.ShareToken = fmt.Sprintf("tok-%d", tokenSeq.Add(1))
	}
	if s.MaxUploadSizeMB == 0 {
		s.MaxUploadSizeMB = model.DefaultMaxUploadSizeMB
	}
	require.NoError(t, f.repos.Shares.Create(context.Background(), &s))
	return &s
}

func (f *fixture) seedViewer(t *testing.T, shareID uint64, name string, at time.Time) *model.ShareViewer {
	t.Helper()
	v := &model.ShareViewer{SharedGalleryID: shareID, DisplayName: name, CreatedAt: at}
	require.NoError(t, f.repos.Viewers.Create(context.Background(), v))
	return v
}

func (f *fixture) notifications(t *testing.T) []model.Notification {
	t.Helper()
	var rows []model.Notification
	require.NoError(t, f.db.Order("id").Find(&rows).Error)
	return rows
}

func ptr[T any](v T) *T { return &v }
