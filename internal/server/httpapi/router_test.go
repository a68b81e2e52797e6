package httpapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/recipehub/internal/common"
	"github.com/dmitrijs2005/recipehub/internal/cryptox"
	"github.com/dmitrijs2005/recipehub/internal/logging"
	"github.com/dmitrijs2005/recipehub/internal/server/auth"
	"github.com/dmitrijs2005/recipehub/internal/server/metrics"
	"github.com/dmitrijs2005/recipehub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/recipehub/internal/server/services"
	"github.com/dmitrijs2005/recipehub/internal/server/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router    *gin.Engine
	uploadDir string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	tokens, err := auth.NewTokenManager(auth.TokenConfig{
		AccessSecret: "access-secret", AccessTTL: 15 * time.Minute,
		RefreshSecret: "refresh-secret", RefreshTTL: 240 * time.Hour,
	})
	require.NoError(t, err)

	rm := repomanager.NewMemoryRepositoryManager()
	root := t.TempDir()
	hasher := cryptox.NewArgon2idHasher(cryptox.Params{Time: 1, Memory: 8 * 1024, Threads: 1, SaltLen: 16, KeyLen: 32})
	svc := services.NewUserService(rm, tokens, hasher, storage.NewLocalUploader(root, ""), logging.Discard())

	m := metrics.New()
	uploadDir := t.TempDir()
	r := NewRouter(svc, logging.Discard(), Options{
		Cookies:        CookieConfig{Secure: true, AccessTTL: 15 * time.Minute, RefreshTTL: 240 * time.Hour},
		UploadDir:      uploadDir,
		MediaDir:       filepath.Join(root, "media"),
		CORSOrigin:     "http://localhost:5173",
		Observer:       m,
		MetricsHandler: m.Handler(),
	})
	return &testServer{router: r, uploadDir: uploadDir}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func registerRequest(t *testing.T, fields map[string]string, files map[string][]byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for k, data := range files {
		fw, err := w.CreateFormFile(k, k+".png")
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func jsonRequest(method, path string, v any) *http.Request {
	var body bytes.Buffer
	if v != nil {
		_ = json.NewEncoder(&body).Encode(v)
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) (Response, map[string]any) {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	data, _ := resp.Data.(map[string]any)
	return resp, data
}

func cookieOf(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

var png = []byte("\x89PNG\r\n\x1a\n0000")

func (s *testServer) registerAlice(t *testing.T) {
	t.Helper()
	rec := s.do(registerRequest(t,
		map[string]string{"username": "Alice", "email": "alice@x.com", "fullName": "Alice A", "password": "Secret123!"},
		map[string][]byte{"avatar": png}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (s *testServer) login(t *testing.T) *httptest.ResponseRecorder {
	t.Helper()
	rec := s.do(jsonRequest(http.MethodPost, "/api/v1/users/login", map[string]string{"username": "alice", "password": "Secret123!"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return rec
}

func TestRegister(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(registerRequest(t,
		map[string]string{"username": "Alice", "email": "alice@x.com", "fullName": "Alice A", "password": "Secret123!"},
		map[string][]byte{"avatar": png, "coverImage": png}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp, data := decode(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, 201, resp.StatusCode)
	assert.Equal(t, "alice", data["username"])
	assert.NotContains(t, data, "passwordHash")
	assert.NotContains(t, data, "refreshToken")
	assert.NotContains(t, rec.Body.String(), "argon2id")

	avatar, _ := data["avatar"].(string)
	require.True(t, strings.HasPrefix(avatar, "/media/"), avatar)
	media := s.do(httptest.NewRequest(http.MethodGet, avatar, nil))
	assert.Equal(t, http.StatusOK, media.Code, "uploaded media is served")

	rec = s.do(registerRequest(t,
		map[string]string{"username": "alice", "email": "other@x.com", "password": "p"},
		map[string][]byte{"avatar": png}))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegister_MissingAvatar(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(registerRequest(t, map[string]string{"username": "a", "email": "a@x.com", "password": "p"}, nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	resp, _ := decode(t, rec)
	assert.False(t, resp.Success)
	assert.Equal(t, "avatar file is required", resp.Message)
}

func TestLogin_SetsCookies(t *testing.T) {
	s := newTestServer(t)
	s.registerAlice(t)

	rec := s.login(t)
	_, data := decode(t, rec)
	assert.NotEmpty(t, data["accessToken"])
	assert.NotEmpty(t, data["refreshToken"])

	for _, name := range []string{common.AccessTokenCookieName, common.RefreshTokenCookieName} {
		c := cookieOf(rec, name)
		require.NotNil(t, c, name)
		assert.True(t, c.HttpOnly)
		assert.True(t, c.Secure)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
		assert.Equal(t, "/", c.Path)
		assert.Positive(t, c.MaxAge)
	}
	assert.Equal(t, data["refreshToken"], cookieOf(rec, common.RefreshTokenCookieName).Value)
}

func TestLogin_Errors(t *testing.T) {
	s := newTestServer(t)
	s.registerAlice(t)

	rec := s.do(jsonRequest(http.MethodPost, "/api/v1/users/login", map[string]string{"email": "alice@x.com", "password": "nope"}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, cookieOf(rec, common.AccessTokenCookieName))

	rec = s.do(jsonRequest(http.MethodPost, "/api/v1/users/login", map[string]string{"username": "bob", "password": "x"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(jsonRequest(http.MethodPost, "/api/v1/users/login", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProtectedRoutes_TokenSources(t *testing.T) {
	s := newTestServer(t)
	s.registerAlice(t)
	access := cookieOf(s.login(t), common.AccessTokenCookieName).Value

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil)
	req.AddCookie(&http.Cookie{Name: common.AccessTokenCookieName, Value: access})
	rec := s.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	_, data := decode(t, rec)
	assert.Equal(t, "alice", data["username"])

	req = httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	assert.Equal(t, http.StatusOK, s.do(req).Code)

	// the cookie wins over the header
	req = httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil)
	req.AddCookie(&http.Cookie{Name: common.AccessTokenCookieName, Value: "garbage"})
	req.Header.Set("Authorization", "Bearer "+access)
	assert.Equal(t, http.StatusUnauthorized, s.do(req).Code)

	rec = s.do(httptest.NewRequest(http.MethodGet, "/api/v1/users/current-user", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp, _ := decode(t, rec)
	assert.Equal(t, "unauthorized request", resp.Message)
}

func TestRefreshAndLogout(t *testing.T) {
	s := newTestServer(t)
	s.registerAlice(t)
	login := s.login(t)
	r1 := cookieOf(login, common.RefreshTokenCookieName).Value
	access := cookieOf(login, common.AccessTokenCookieName).Value

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil)
	req.AddCookie(&http.Cookie{Name: common.RefreshTokenCookieName, Value: r1})
	rec := s.do(req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	r2 := cookieOf(rec, common.RefreshTokenCookieName).Value
	assert.NotEqual(t, r1, r2)

	// reuse through the body fallback
	rec = s.do(jsonRequest(http.MethodPost, "/api/v1/users/refresh-token", map[string]string{"refreshToken": r1}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/users/logout", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	rec = s.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, name := range []string{common.AccessTokenCookieName, common.RefreshTokenCookieName} {
		c := cookieOf(rec, name)
		require.NotNil(t, c)
		assert.Empty(t, c.Value)
		assert.Negative(t, c.MaxAge)
	}

	rec = s.do(jsonRequest(http.MethodPost, "/api/v1/users/refresh-token", map[string]string{"refreshToken": r2}))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(httptest.NewRequest(http.MethodPost, "/api/v1/users/refresh-token", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAccountRoutes(t *testing.T) {
	s := newTestServer(t)
	s.registerAlice(t)
	access := cookieOf(s.login(t), common.AccessTokenCookieName).Value
	withAuth := func(req *http.Request) *http.Request {
		req.Header.Set("Authorization", "Bearer "+access)
		return req
	}

	rec := s.do(withAuth(jsonRequest(http.MethodPost, "/api/v1/users/change-password",
		map[string]string{"oldPassword": "wrong", "newPassword": "New456!"})))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(withAuth(jsonRequest(http.MethodPost, "/api/v1/users/change-password",
		map[string]string{"oldPassword": "Secret123!"})))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(withAuth(jsonRequest(http.MethodPost, "/api/v1/users/change-password",
		map[string]string{"oldPassword": "Secret123!", "newPassword": "New456!"})))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(withAuth(jsonRequest(http.MethodPatch, "/api/v1/users/update-acc-details",
		map[string]string{"fullName": "Alice B"})))
	require.Equal(t, http.StatusOK, rec.Code)
	_, data := decode(t, rec)
	assert.Equal(t, "Alice B", data["fullName"])

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("coverImage", "c.png")
	require.NoError(t, err)
	_, _ = fw.Write(png)
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/users/update-cover-image", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec = s.do(withAuth(req))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	_, data = decode(t, rec)
	assert.NotEmpty(t, data["coverImage"])

	req = httptest.NewRequest(http.MethodPatch, "/api/v1/users/update-avatar", nil)
	rec = s.do(withAuth(req))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBodyLimit(t *testing.T) {
	s := newTestServer(t)
	big := map[string]string{"username": strings.Repeat("a", maxJSONBody+1), "password": "x"}

	rec := s.do(jsonRequest(http.MethodPost, "/api/v1/users/login", big))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestCORS(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/users/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := s.do(req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, "/api/v1/users/login", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = s.do(req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusOK, s.do(httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)

	rec := s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "recipehub_http_request_duration_seconds")
}

func TestUploadDirLeftClean(t *testing.T) {
	s := newTestServer(t)

	// a validation failure after the files were saved
	rec := s.do(registerRequest(t, map[string]string{"username": "a", "password": "p"},
		map[string][]byte{"avatar": png, "coverImage": png}))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	entries, err := os.ReadDir(s.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temp uploads are removed")
}
