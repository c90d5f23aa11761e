package service

import (
	"context"
	"errors"
	"sort"
	"time"

	"posevault/internal/errs"
	"posevault/internal/repo"
	"posevault/model"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	recentCommentLimit = 10
	mostFavoritedLimit = 5
	unknownViewer      = "Unknown"
)

type FavoritedImage struct {
	ImageID    string `json:"imageId"`
	Count      int    `json:"count"`
	StorageKey string `json:"r2Key,omitempty"`
}

type ViewerActivity struct {
	ViewerID    uint64 `json:"viewerId"`
	DisplayName string `json:"displayName"`
	Favorites   int    `json:"favorites"`
	Uploads     int    `json:"uploads"`
}

type CommentSummary struct {
	ID         uint64    `json:"id"`
	ViewerID   uint64    `json:"viewerId"`
	ViewerName string    `json:"viewerName"`
	ImageID    *string   `json:"imageId,omitempty"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ActivitySummary is the owner's report on one share.
type ActivitySummary struct {
	SharedGalleryID uint64           `json:"sharedGalleryId"`
	TotalViews      int              `json:"totalViews"`
	TotalViewers    int              `json:"totalViewers"`
	TotalFavorites  int              `json:"totalFavorites"`
	MostFavorited   []FavoritedImage `json:"mostFavorited"`
	PendingUploads  int              `json:"pendingUploads"`
	ApprovedUploads int              `json:"approvedUploads"`
	ViewerActivity  []ViewerActivity `json:"viewerActivity"`
	RecentComments  []CommentSummary `json:"recentComments"`
}

// Aggregator builds activity summaries. It never writes.
type Aggregator struct {
	shares    repo.ShareRepository
	galleries repo.GalleryRepository
	viewers   repo.ViewerRepository
	uploads   repo.UploadRepository
	activity  repo.ActivityRepository
}

func NewAggregator(repos repo.Repos) *Aggregator {
	return &Aggregator{
		shares:    repos.Shares,
		galleries: repos.Galleries,
		viewers:   repos.Viewers,
		uploads:   repos.Uploads,
		activity:  repos.Activity,
	}
}

// SummaryForOwner is Summary restricted to shares owned by ownerID.
func (a *Aggregator) SummaryForOwner(ctx context.Context, ownerID string, shareID uint64) (*ActivitySummary, error) {
	share, err := a.loadShare(ctx, shareID)
	if err != nil {
		return nil, err
	}
	if share.OwnerID != ownerID {
		return nil, errs.Denied(errs.CodeAccessDenied, "share belongs to another user")
	}
	return a.summarize(ctx, share)
}

// Summary reports viewer activity on a share. The underlying reads run
// concurrently and are not a consistent snapshot.
func (a *Aggregator) Summary(ctx context.Context, shareID uint64) (*ActivitySummary, error) {
	share, err := a.loadShare(ctx, shareID)
	if err != nil {
		return nil, err
	}
	return a.summarize(ctx, share)
}

func (a *Aggregator) loadShare(ctx context.Context, shareID uint64) (*model.SharedGallery, error) {
	if shareID == 0 {
		return nil, errs.Input(errs.CodeMissingFields, "sharedGalleryId is required")
	}
	share, err := a.shares.GetByID(ctx, shareID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, errs.NotFound(errs.CodeShareNotFound, "shared gallery %d not found", shareID)
	}
	if err != nil {
		return nil, errs.Upstream("load share", err)
	}
	return share, nil
}

func (a *Aggregator) summarize(ctx context.Context, share *model.SharedGallery) (*ActivitySummary, error) {
	var (
		viewers   []model.ShareViewer
		favorites []model.ShareFavorite
		uploads   []model.ShareUpload
		comments  []model.ShareComment
		logs      []model.ShareAccessLog
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		if viewers, err = a.viewers.List(gctx, share.ID); err != nil {
			return errs.Upstream("list viewers", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if favorites, err = a.activity.ListFavorites(gctx, share.ID); err != nil {
			return errs.Upstream("list favorites", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if uploads, err = a.uploads.List(gctx, share.ID); err != nil {
			return errs.Upstream("list uploads", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if comments, err = a.activity.RecentComments(gctx, share.ID, recentCommentLimit); err != nil {
			return errs.Upstream("list comments", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if logs, err = a.activity.ListAccessLogs(gctx, share.ID); err != nil {
			return errs.Upstream("list access logs", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := Aggregate(share.ID, viewers, favorites, uploads, comments, logs)
	a.attachStorageKeys(ctx, share.OwnerID, summary.MostFavorited)
	return summary, nil
}

// Aggregate joins the fetched rows in memory.
func Aggregate(
	shareID uint64,
	viewers []model.ShareViewer,
	favorites []model.ShareFavorite,
	uploads []model.ShareUpload,
	comments []model.ShareComment,
	logs []model.ShareAccessLog,
) *ActivitySummary {
	s := &ActivitySummary{
		SharedGalleryID: shareID,
		TotalViewers:    len(viewers),
		TotalFavorites:  len(favorites),
		MostFavorited:   []FavoritedImage{},
		ViewerActivity:  make([]ViewerActivity, 0, len(viewers)),
		RecentComments:  make([]CommentSummary, 0, len(comments)),
	}

	for _, entry := range logs {
		if entry.Action == model.ActionViewGallery {
			s.TotalViews++
		}
	}

	// Counts keep first-seen order so equal counts stay stable.
	var order []string
	counts := make(map[string]int)
	favByViewer := make(map[uint64]int)
	for _, f := range favorites {
		if _, seen := counts[f.ImageID]; !seen {
			order = append(order, f.ImageID)
		}
		counts[f.ImageID]++
		favByViewer[f.ViewerID]++
	}
	for _, id := range order {
		s.MostFavorited = append(s.MostFavorited, FavoritedImage{ImageID: id, Count: counts[id]})
	}
	sortFavorited(s.MostFavorited)
	if len(s.MostFavorited) > mostFavoritedLimit {
		s.MostFavorited = s.MostFavorited[:mostFavoritedLimit]
	}

	upByViewer := make(map[uint64]int)
	for _, u := range uploads {
		if u.Approved {
			s.ApprovedUploads++
		} else {
			s.PendingUploads++
		}
		upByViewer[u.ViewerID]++
	}

	names := make(map[uint64]string, len(viewers))
	for _, v := range viewers {
		names[v.ID] = v.DisplayName
		s.ViewerActivity = append(s.ViewerActivity, ViewerActivity{
			ViewerID:    v.ID,
			DisplayName: v.DisplayName,
			Favorites:   favByViewer[v.ID],
			Uploads:     upByViewer[v.ID],
		})
	}

	for _, c := range comments {
		name, ok := names[c.ViewerID]
		if !ok {
			name = unknownViewer
		}
		s.RecentComments = append(s.RecentComments, CommentSummary{
			ID:         c.ID,
			ViewerID:   c.ViewerID,
			ViewerName: name,
			ImageID:    c.ImageID,
			Comment:    c.Comment,
			CreatedAt:  c.CreatedAt,
		})
	}
	return s
}

func sortFavorited(items []FavoritedImage) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Count > items[j].Count })
}

func (a *Aggregator) attachStorageKeys(ctx context.Context, ownerID string, items []FavoritedImage) {
	if len(items) == 0 {
		return
	}
	uids := make([]string, 0, len(items))
	for _, it := range items {
		uids = append(uids, it.ImageID)
	}
	images, err := a.galleries.ImagesByUIDs(ctx, ownerID, uids)
	if err != nil {
		logrus.WithError(err).WithField("owner_id", ownerID).Warn("resolve favorited images failed")
		return
	}
	keys := make(map[string]string, len(images))
	for _, img := range images {
		keys[img.UID] = img.StorageKey
	}
	for i := range items {
		items[i].StorageKey = keys[items[i].ImageID]
	}
}
