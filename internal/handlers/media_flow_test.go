package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"mediavault/api/internal/config"
	"mediavault/api/internal/models"
	"mediavault/api/internal/repository"
	"mediavault/api/internal/service"
	"mediavault/api/internal/storage"
)

// -------- in-memory collaborators --------

type memUsers struct {
	mu    sync.Mutex
	users map[string]models.User
}

func (m *memUsers) Create(ctx context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *memUsers) FindByEmail(ctx context.Context, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (m *memUsers) GetByID(ctx context.Context, id string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

type memMedia struct {
	mu    sync.Mutex
	items map[string]models.Media
}

func (m *memMedia) Create(ctx context.Context, media models.Media) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[media.ID] = media
	return nil
}

func (m *memMedia) GetByID(ctx context.Context, id string) (models.Media, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	media, ok := m.items[id]
	if !ok {
		return models.Media{}, repository.ErrMediaNotFound
	}
	return media, nil
}

func (m *memMedia) ListByOwner(ctx context.Context, ownerID string) ([]models.Media, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Media
	for _, media := range m.items {
		if media.OwnerID == ownerID {
			out = append(out, media)
		}
	}
	return out, nil
}

func (m *memMedia) UpdateAllowList(ctx context.Context, id string, allowedUserIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	media, ok := m.items[id]
	if !ok {
		return repository.ErrMediaNotFound
	}
	media.AllowedUserIDs = allowedUserIDs
	m.items[id] = media
	return nil
}

func (m *memMedia) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return repository.ErrMediaNotFound
	}
	delete(m.items, id)
	return nil
}

type memBlobs struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (b *memBlobs) Bucket() string { return "test-bucket" }

func (b *memBlobs) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.objects[key] = data
	return nil
}

func (b *memBlobs) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.objects[key]
	if !ok {
		return nil, storage.ErrObjectMissing
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *memBlobs) Remove(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, key)
	return nil
}

// -------- harness --------

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.AppConfig{
		Environment: "test",
		Security: config.SecurityConfig{
			JWTAccessSecret:  "flow-access-secret",
			JWTRefreshSecret: "flow-refresh-secret",
			JWTAccessTTL:     15 * time.Minute,
			JWTRefreshTTL:    7 * 24 * time.Hour,
		},
		Upload: config.UploadConfig{MaxSizeBytes: 1 << 20},
	}

	logger := zerolog.Nop()
	users := &memUsers{users: make(map[string]models.User)}
	media := &memMedia{items: make(map[string]models.Media)}
	blobs := &memBlobs{objects: make(map[string][]byte)}

	h := HandlerSet{
		log:          logger,
		cfg:          cfg,
		authService:  service.NewAuthService(users, cfg, logger),
		mediaService: service.NewMediaService(media, blobs, nil, cfg, logger),
	}

	engine := gin.New()
	h.Mount(engine.Group("/api"))
	return engine
}

func doJSON(t *testing.T, engine *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func registerAndLogin(t *testing.T, engine *gin.Engine, email string) (userID, access, refresh string) {
	t.Helper()

	rec := doJSON(t, engine, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email":    email,
		"password": "P@ss1234",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status = %d, body %s", email, rec.Code, rec.Body.String())
	}
	var reg struct {
		User struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	decode(t, rec, &reg)

	rec = doJSON(t, engine, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email":    email,
		"password": "P@ss1234",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status = %d, body %s", email, rec.Code, rec.Body.String())
	}
	var tokens struct {
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	}
	decode(t, rec, &tokens)

	return reg.User.ID, tokens.AccessToken, tokens.RefreshToken
}

func uploadJPEG(t *testing.T, engine *gin.Engine, token string, data []byte) string {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="photo.jpg"`)
	header.Set("Content-Type", "image/jpeg")
	part, err := w.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/media/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload: status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Media struct {
			ID string `json:"id"`
		} `json:"media"`
	}
	decode(t, rec, &resp)
	return resp.Media.ID
}

func jpegPayload() []byte {
	data := []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F'}
	return append(data, make([]byte, 64)...)
}

// -------- tests --------

// Walks the whole sharing lifecycle: two accounts, one object, a grant, a
// revoked delete attempt, and the owner's final delete.
func TestMediaSharingFlow(t *testing.T) {
	engine := newTestEngine(t)

	_, accessA, refreshA := registerAndLogin(t, engine, "a@x.com")
	userB, accessB, _ := registerAndLogin(t, engine, "b@x.com")

	mediaID := uploadJPEG(t, engine, accessA, jpegPayload())

	// B cannot see the object, and is told it does not exist.
	rec := doJSON(t, engine, http.MethodGet, "/api/v1/media/"+mediaID, accessB, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("B get before grant: status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, engine, http.MethodPost, "/api/v1/media/"+mediaID+"/permissions", accessA, gin.H{
		"userIds": []string{userB},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("set permissions: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var perms struct {
		MediaID        string   `json:"mediaId"`
		AllowedUserIDs []string `json:"allowedUserIds"`
	}
	decode(t, rec, &perms)
	if len(perms.AllowedUserIDs) != 1 || perms.AllowedUserIDs[0] != userB {
		t.Fatalf("allowedUserIds = %v, want [%s]", perms.AllowedUserIDs, userB)
	}

	rec = doJSON(t, engine, http.MethodGet, "/api/v1/media/"+mediaID, accessB, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("B get after grant: status = %d, body %s", rec.Code, rec.Body.String())
	}

	// Grantees may read, never delete.
	rec = doJSON(t, engine, http.MethodDelete, "/api/v1/media/"+mediaID, accessB, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("B delete: status = %d, want 403", rec.Code)
	}

	rec = doJSON(t, engine, http.MethodDelete, "/api/v1/media/"+mediaID, accessA, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("A delete: status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, engine, http.MethodGet, "/api/v1/media/"+mediaID, accessA, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("A get after delete: status = %d, want 404", rec.Code)
	}
	rec = doJSON(t, engine, http.MethodDelete, "/api/v1/media/"+mediaID, accessA, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("A second delete: status = %d, want 404", rec.Code)
	}

	// The refresh token still works for minting a new access token.
	rec = doJSON(t, engine, http.MethodPost, "/api/v1/auth/refresh", "", gin.H{
		"refreshToken": refreshA,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestDownloadCarriesMetadataHeaders(t *testing.T) {
	engine := newTestEngine(t)

	_, access, _ := registerAndLogin(t, engine, "a@x.com")
	payload := jpegPayload()
	mediaID := uploadJPEG(t, engine, access, payload)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/media/"+mediaID+"/download", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("download: status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/jpeg" {
		t.Fatalf("Content-Type = %q, want image/jpeg", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "photo.jpg") {
		t.Fatalf("Content-Disposition = %q, want filename photo.jpg", cd)
	}
	if !bytes.Equal(rec.Body.Bytes(), payload) {
		t.Fatal("downloaded body differs from upload")
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	engine := newTestEngine(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/users/me"},
		{http.MethodPost, "/api/v1/media/upload"},
		{http.MethodGet, "/api/v1/media/my"},
		{http.MethodGet, "/api/v1/media/some-id"},
		{http.MethodDelete, "/api/v1/media/some-id"},
	}

	for _, p := range paths {
		rec := doJSON(t, engine, p.method, p.path, "", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: status = %d, want 401", p.method, p.path, rec.Code)
		}
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	engine := newTestEngine(t)

	rec := doJSON(t, engine, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email":    "a@x.com",
		"password": "P@ss1234",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("first register: status = %d", rec.Code)
	}

	rec = doJSON(t, engine, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email":    "a@x.com",
		"password": "P@ss1234",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("second register: status = %d, want 400", rec.Code)
	}
}

func TestUploadRejectsNonJPEG(t *testing.T) {
	engine := newTestEngine(t)
	_, access, _ := registerAndLogin(t, engine, "a@x.com")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="note.txt"`)
	header.Set("Content-Type", "text/plain")
	part, err := w.CreatePart(header)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	fmt.Fprint(part, "not an image")
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/media/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+access)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("upload: status = %d, want 400; body %s", rec.Code, rec.Body.String())
	}
}

func TestMeEchoesIdentity(t *testing.T) {
	engine := newTestEngine(t)
	userID, access, _ := registerAndLogin(t, engine, "a@x.com")

	rec := doJSON(t, engine, http.MethodGet, "/api/v1/users/me", access, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		User struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	decode(t, rec, &resp)
	if resp.User.ID != userID {
		t.Fatalf("user.id = %q, want %q", resp.User.ID, userID)
	}
	if resp.User.Email != "a@x.com" {
		t.Fatalf("user.email = %q, want a@x.com", resp.User.Email)
	}
}
