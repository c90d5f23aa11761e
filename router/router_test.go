package router

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"posevault/config"
	"posevault/internal/app"
	"posevault/internal/repo"
	"posevault/internal/repo/repotest"
	"posevault/internal/service"
	"posevault/internal/storage"
	"posevault/model"
	"posevault/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret  = "jwt-secret"
	testService = "svc-token"
)

type testServer struct {
	engine *gin.Engine
	app    *app.App
	store  *storage.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	return newTestServerWith(t, nil)
}

func newTestServerWith(t *testing.T, configure func(*config.Config)) *testServer {
	t.Helper()
	db := repotest.NewTestDB(t)
	repos := repo.NewGormRepos(db)
	store := storage.NewMemoryStore()
	cfg := config.Config{
		GinMode:           gin.TestMode,
		JWTSecret:         testSecret,
		ServiceToken:      testService,
		MaxMultipartBytes: 32 << 20,
		MaxShareUploadMB:  100,
	}
	if configure != nil {
		configure(&cfg)
	}

	a := &app.App{Config: cfg, DB: db, Store: store, Repos: repos}
	a.Validator = service.NewTokenValidator(repos.Shares, nil)
	a.Dispatcher = service.NewDispatcher(repos)
	events := service.DirectPublisher{Dispatcher: a.Dispatcher}
	a.Uploads = service.NewUploadGate(a.Validator, repos, store, events)
	a.Proxy = service.NewObjectProxy(store, a.Validator)
	a.Shares = service.NewShareService(a.Validator, repos, events)
	a.Manager = service.NewShareManager(repos, a.Validator).WithMaxUploadSizeMB(cfg.MaxShareUploadMB)
	a.Galleries = service.NewGalleryService(repos.Galleries)
	a.Aggregator = service.NewAggregator(repos)
	a.Sweeper = service.NewSweeper(repos.Shares, a.Validator, a.Dispatcher)

	require.NoError(t, repos.Galleries.Put(context.Background(), "u1", []model.Gallery{{
		UID:  "g1",
		Name: "Standing",
		Images: []model.Image{
			{UID: "i1", Name: "contrapposto", StorageKey: "users/u1/i1.jpg"},
		},
	}}))
	require.NoError(t, store.PutObject(context.Background(), "users/u1/i1.jpg", strings.NewReader("jpeg"), 4,
		storage.PutOptions{ContentType: "image/jpeg"}))

	return &testServer{engine: InitRouter(cfg, NewHandlers(a)), app: a, store: store}
}

func (s *testServer) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	var body map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	}
	return w, body
}

func jsonRequest(method, path string, body any) *http.Request {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(method, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func ownerToken(t *testing.T, subject string) string {
	t.Helper()
	tok, err := utils.GenerateToken(testSecret, subject, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func (s *testServer) share(t *testing.T, mutate func(*model.SharedGallery)) *model.SharedGallery {
	t.Helper()
	sh := &model.SharedGallery{OwnerID: "u1", GalleryID: "g1", ShareToken: utils.NewShareToken(), IsActive: true, MaxUploadSizeMB: 1}
	if mutate != nil {
		mutate(sh)
	}
	require.NoError(t, s.app.Repos.Shares.Create(context.Background(), sh))
	return sh
}

func TestShareGalleryRoute(t *testing.T) {
	s := newTestServer(t)
	sh := s.share(t, nil)

	w, body := s.do(t, jsonRequest(http.MethodPost, "/api/share/gallery", gin.H{"token": sh.ShareToken}))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	data := body["data"].(map[string]any)
	assert.Equal(t, "Standing", data["gallery"].(map[string]any)["name"])
	img := data["images"].([]any)[0].(map[string]any)
	assert.Equal(t, "users/u1/i1.jpg", img["r2Key"])

	w, body = s.do(t, jsonRequest(http.MethodPost, "/api/share/gallery", gin.H{"token": "nope"}))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, false, body["ok"])
	assert.NotEmpty(t, body["error"])
	assert.Nil(t, body["data"])

	w, body = s.do(t, jsonRequest(http.MethodPost, "/api/share/gallery", gin.H{}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, body["ok"])

	w, _ = s.do(t, httptest.NewRequest(http.MethodPut, "/api/share/gallery", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestShareImageRoute(t *testing.T) {
	s := newTestServer(t)
	sh := s.share(t, nil)
	past := time.Now().Add(-time.Minute)
	old := s.share(t, func(m *model.SharedGallery) { m.ExpiresAt = &past })

	w, _ := s.do(t, httptest.NewRequest(http.MethodGet, "/api/share/image?token="+sh.ShareToken+"&key=users/u1/i1.jpg", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jpeg", w.Body.String())
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, service.ShareCacheControl, w.Header().Get("Cache-Control"))

	w, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/api/share/image?token="+old.ShareToken+"&key=users/u1/i1.jpg", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/api/share/image?token="+sh.ShareToken+"&key=users/u2/x.jpg", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func multipartUpload(t *testing.T, path string, fields map[string]string, fileName string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestViewerUploadRoute(t *testing.T) {
	s := newTestServer(t)
	sh := s.share(t, func(m *model.SharedGallery) {
		m.AllowUploads = true
		m.RequireUploadApproval = true
	})
	viewer := &model.ShareViewer{SharedGalleryID: sh.ID, DisplayName: "Ana"}
	require.NoError(t, s.app.Repos.Viewers.Create(context.Background(), viewer))
	fields := map[string]string{
		"viewer_id":         strconv.FormatUint(viewer.ID, 10),
		"shared_gallery_id": strconv.FormatUint(sh.ID, 10),
	}
	path := "/api/share/upload?token=" + sh.ShareToken

	w, body := s.do(t, multipartUpload(t, path, fields, "a b#1.JPG", []byte("img")))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, false, body["approved"])
	assert.Contains(t, body["message"], "approval")
	key := body["data"].(map[string]any)["r2Key"].(string)
	assert.True(t, strings.HasSuffix(key, "-a_b_1.JPG"), key)
	assert.True(t, strings.HasPrefix(key, "users/u1/share-uploads/"+strconv.FormatUint(sh.ID, 10)+"/"), key)

	w, body = s.do(t, multipartUpload(t, path, fields, "big.jpg", make([]byte, 1<<20+1)))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "file_too_large", body["code"])

	w, body = s.do(t, multipartUpload(t, path, fields, "", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "missing_fields", body["code"])

	var notes []model.Notification
	require.NoError(t, s.app.DB.Find(&notes).Error)
	require.Len(t, notes, 1)
	assert.Equal(t, model.NotifyUploadPending, notes[0].Type)
}

func TestOwnerObjectRoutes(t *testing.T) {
	s := newTestServer(t)

	w, body := s.do(t, httptest.NewRequest(http.MethodGet, "/api/objects/users/u1/i1.jpg", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, false, body["ok"])

	req := httptest.NewRequest(http.MethodGet, "/api/objects/users/u1/i1.jpg", nil)
	req.Header.Set("Authorization", ownerToken(t, "u1"))
	w, _ = s.do(t, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jpeg", w.Body.String())
	assert.Equal(t, service.OwnerCacheControl, w.Header().Get("Cache-Control"))

	req = httptest.NewRequest(http.MethodGet, "/api/objects/users/u1/i1.jpg", nil)
	req.Header.Set("Authorization", ownerToken(t, "u2"))
	w, _ = s.do(t, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = multipartUpload(t, "/api/objects", map[string]string{"key": "users/u2/new.jpg"}, "new.jpg", []byte("n"))
	req.Header.Set("Authorization", ownerToken(t, "u2"))
	w, body = s.do(t, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "users/u2/new.jpg", body["key"])
	assert.EqualValues(t, 1, body["size"])

	req = httptest.NewRequest(http.MethodDelete, "/api/objects/users/u2/new.jpg", nil)
	req.Header.Set("Authorization", ownerToken(t, "u2"))
	w, body = s.do(t, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "users/u2/new.jpg", body["key"])

	req = httptest.NewRequest(http.MethodGet, "/api/objects/users/u2/new.jpg", nil)
	req.Header.Set("Authorization", ownerToken(t, "u2"))
	w, _ = s.do(t, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	forged, err := utils.GenerateToken("wrong-secret", "u1", time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/api/objects/users/u1/i1.jpg", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	w, _ = s.do(t, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestInternalRoutes(t *testing.T) {
	s := newTestServer(t)
	sh := s.share(t, nil)
	past := time.Now().Add(-time.Hour)
	s.share(t, func(m *model.SharedGallery) { m.ExpiresAt = &past })

	withService := func(req *http.Request) *http.Request {
		req.Header.Set("Authorization", "Bearer "+testService)
		return req
	}

	w, _ := s.do(t, jsonRequest(http.MethodPost, "/api/internal/notifications", gin.H{"sharedGalleryId": sh.ID, "type": "view"}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, body := s.do(t, withService(jsonRequest(http.MethodPost, "/api/internal/notifications",
		gin.H{"sharedGalleryId": sh.ID, "type": "view", "viewerName": "Ana"})))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, gin.H{"ok": true, "skipped": true, "reason": "type_disabled"}, gin.H(body))

	w, body = s.do(t, withService(jsonRequest(http.MethodPost, "/api/internal/notifications",
		gin.H{"sharedGalleryId": sh.ID, "type": "favorite"})))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, gin.H{"ok": true}, gin.H(body))

	w, body = s.do(t, withService(jsonRequest(http.MethodPost, "/api/internal/notifications",
		gin.H{"sharedGalleryId": 999, "type": "favorite"})))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "share_not_found", body["code"])

	w, body = s.do(t, withService(jsonRequest(http.MethodPost, "/api/internal/activity", gin.H{"sharedGalleryId": sh.ID})))
	require.Equal(t, http.StatusOK, w.Code)
	summary := body["summary"].(map[string]any)
	assert.EqualValues(t, 0, summary["totalViews"])
	assert.Equal(t, []any{}, summary["mostFavorited"])

	w, body = s.do(t, withService(httptest.NewRequest(http.MethodPost, "/api/internal/sweep", nil)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, body["deactivated"])
	assert.EqualValues(t, 1, body["notified"])

	w, body = s.do(t, withService(httptest.NewRequest(http.MethodPost, "/api/internal/sweep", nil)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, body["deactivated"])
}

func TestOwnerShareRoutes(t *testing.T) {
	s := newTestServer(t)

	req := jsonRequest(http.MethodPost, "/api/shares", gin.H{"galleryId": "g1", "expireDays": 3, "allowUploads": true})
	req.Header.Set("Authorization", ownerToken(t, "u1"))
	w, body := s.do(t, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	share := body["share"].(map[string]any)
	token := share["token"].(string)
	id := strconv.FormatFloat(share["id"].(float64), 'f', 0, 64)

	req = httptest.NewRequest(http.MethodGet, "/api/shares/"+id+"/activity", nil)
	req.Header.Set("Authorization", ownerToken(t, "u2"))
	w, _ = s.do(t, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/shares/"+id+"/deactivate", nil)
	req.Header.Set("Authorization", ownerToken(t, "u1"))
	w, _ = s.do(t, req)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, jsonRequest(http.MethodPost, "/api/share/gallery", gin.H{"token": token}))
	assert.Equal(t, http.StatusNotFound, w.Code)

	req = jsonRequest(http.MethodPut, "/api/galleries", gin.H{"galleries": []gin.H{
		{"uid": "g9", "name": "Seated", "images": []gin.H{{"uid": "i9", "storage_key": "users/u1/i9.jpg"}}},
	}})
	req.Header.Set("Authorization", ownerToken(t, "u1"))
	w, _ = s.do(t, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/galleries", nil)
	req.Header.Set("Authorization", ownerToken(t, "u1"))
	w, body = s.do(t, req)
	require.Equal(t, http.StatusOK, w.Code)
	galleries := body["galleries"].([]any)
	require.Len(t, galleries, 1)
	assert.Equal(t, "g9", galleries[0].(map[string]any)["uid"])
}

func TestViewerUploadRoute_SizeBoundary(t *testing.T) {
	// The configured cap is below the share limit; the share decides.
	s := newTestServerWith(t, func(cfg *config.Config) { cfg.MaxMultipartBytes = 1 << 20 })
	sh := s.share(t, func(m *model.SharedGallery) {
		m.AllowUploads = true
		m.MaxUploadSizeMB = 2
	})
	viewer := &model.ShareViewer{SharedGalleryID: sh.ID, DisplayName: "Ana"}
	require.NoError(t, s.app.Repos.Viewers.Create(context.Background(), viewer))
	fields := map[string]string{
		"viewer_id":         strconv.FormatUint(viewer.ID, 10),
		"shared_gallery_id": strconv.FormatUint(sh.ID, 10),
	}
	path := "/api/share/upload?token=" + sh.ShareToken
	limit := 2 << 20

	w, body := s.do(t, multipartUpload(t, path, fields, "exact.jpg", make([]byte, limit)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, limit, body["data"].(map[string]any)["size"])

	w, body = s.do(t, multipartUpload(t, path, fields, "over.jpg", make([]byte, limit+1)))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "file_too_large", body["code"])
	assert.Contains(t, body["error"], "maximum size is 2 MB")

	// Past the body budget the form cannot be read at all.
	w, body = s.do(t, multipartUpload(t, path, fields, "huge.jpg", make([]byte, limit+service.MultipartOverhead+1)))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "file_too_large", body["code"])

	w, body = s.do(t, multipartUpload(t, "/api/share/upload?token=nope", fields, "huge.jpg", make([]byte, limit)))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "invalid_token", body["code"])

	// The seeded gallery image plus the one accepted upload.
	assert.Len(t, s.store.Keys(), 2)
}

func TestCreateShareRoute_RejectsLimitAboveCeiling(t *testing.T) {
	s := newTestServerWith(t, func(cfg *config.Config) { cfg.MaxShareUploadMB = 20 })

	req := jsonRequest(http.MethodPost, "/api/shares", gin.H{"galleryId": "g1", "maxUploadSizeMb": 21})
	req.Header.Set("Authorization", ownerToken(t, "u1"))
	w, body := s.do(t, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_input", body["code"])

	req = jsonRequest(http.MethodPost, "/api/shares", gin.H{"galleryId": "g1", "maxUploadSizeMb": 20})
	req.Header.Set("Authorization", ownerToken(t, "u1"))
	w, _ = s.do(t, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
