package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"qrcard/internal/config"
	"qrcard/internal/models"
	"qrcard/internal/storage"
	"qrcard/pkg/keylock"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	engine    *gin.Engine
	uploadDir string
	tempDir   string
	legacy    string
	cookies   []*http.Cookie
	token     string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{}
	cfg.Server.PublicDir = filepath.Join(dir, "public")
	cfg.Database = config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(dir, "app.db")}
	cfg.Storage.Driver = "local"
	cfg.Storage.UploadDir = filepath.Join(dir, "uploads")
	cfg.Storage.TempDir = filepath.Join(dir, "tmp")
	cfg.Storage.LegacyDataFile = filepath.Join(dir, "data.json")
	cfg.Upload.MaxFileSizeMB = 1
	cfg.Upload.AllowedMimeTypes = config.DefaultAllowedMimeTypes
	cfg.Session = config.SessionConfig{Secret: "session-secret", CookieName: "qrcard_session", MaxAge: 3600}
	cfg.JWT = config.JWTConfig{SecretKey: "jwt-secret", Algorithm: "HS256", ExpireMinutes: 60}
	cfg.Admin = config.AdminConfig{Username: "admin", Password: "secret123"}
	cfg.CORS.Origins = []string{"*"}
	cfg.Card = config.CardConfig{QRSize: 128, Title: "学生介绍卡"}
	require.NoError(t, os.MkdirAll(cfg.Storage.TempDir, 0755))

	db, err := models.OpenDB(cfg.Database)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	store, err := storage.NewLocalStore(cfg.Storage.UploadDir)
	require.NoError(t, err)

	logger, _ := test.NewNullLogger()
	engine, err := SetupRouter(cfg, logger, db, store, keylock.New())
	require.NoError(t, err)

	return &testServer{
		engine:    engine,
		uploadDir: cfg.Storage.UploadDir,
		tempDir:   cfg.Storage.TempDir,
		legacy:    cfg.Storage.LegacyDataFile,
	}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	for _, c := range s.cookies {
		req.AddCookie(c)
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) apiResponse {
	t.Helper()
	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(resp.Data, data))
	}
	return resp
}

func (s *testServer) login(t *testing.T) {
	t.Helper()
	body := strings.NewReader(`{"username":"admin","password":"secret123"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/login", body)
	req.Header.Set("Content-Type", "application/json")
	w := s.do(req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	s.cookies = w.Result().Cookies()
	require.NotEmpty(t, s.cookies)
}

func uploadRequest(t *testing.T, student, category, filename, mimeType, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("studentName", student))
	require.NoError(t, mw.WriteField("category", category))

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	h.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

type uploadData struct {
	FileInfo struct {
		ID            string `json:"id"`
		DisplayName   string `json:"display_name"`
		OriginalName  string `json:"original_name"`
		CategoryLabel string `json:"category_label"`
		RelativePath  string `json:"relative_path"`
	} `json:"fileInfo"`
	QRCode    string `json:"qrCode"`
	AccessURL string `json:"accessUrl"`
}

func TestRouter_RequiresLogin(t *testing.T) {
	s := newTestServer(t)

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/students", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(uploadRequest(t, "Alice", "self", "photo.jpg", "image/jpeg", "x"))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(httptest.NewRequest(http.MethodDelete, "/api/file/anything", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	body := strings.NewReader(`{"username":"admin","password":"wrong"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/login", body)
	req.Header.Set("Content-Type", "application/json")
	w = s.do(req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_UploadServeDelete(t *testing.T) {
	s := newTestServer(t)
	s.login(t)

	var first uploadData
	w := s.do(uploadRequest(t, "Alice", "self", "photo.jpg", "image/jpeg", "jpeg-bytes"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &first)
	assert.Equal(t, "Alice_自我介绍.jpg", first.FileInfo.DisplayName)
	assert.Equal(t, "photo.jpg", first.FileInfo.OriginalName)
	assert.Equal(t, "自我介绍", first.FileInfo.CategoryLabel)
	assert.Equal(t, "http://example.com/file/"+first.FileInfo.ID, first.AccessURL)
	assert.True(t, strings.HasPrefix(first.QRCode, "data:image/png;base64,"))

	var second uploadData
	w = s.do(uploadRequest(t, "Alice", "self", "photo.jpg", "image/jpeg", "jpeg-bytes-2"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &second)
	assert.Equal(t, "Alice_自我介绍_1.jpg", second.FileInfo.DisplayName)

	_, err := os.Stat(filepath.Join(s.uploadDir, "Alice", "自我介绍", "Alice_自我介绍_1.jpg"))
	assert.NoError(t, err)

	// 访问文件
	w = s.do(httptest.NewRequest(http.MethodGet, "/file/"+first.FileInfo.ID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jpeg-bytes", w.Body.String())
	assert.Equal(t, "image/jpeg", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "inline")

	// 文件信息与卡片
	w = s.do(httptest.NewRequest(http.MethodGet, "/api/file/"+second.FileInfo.ID+"/info", nil))
	require.Equal(t, http.StatusOK, w.Code)
	w = s.do(httptest.NewRequest(http.MethodGet, "/api/file/"+second.FileInfo.ID+"/card", nil))
	require.Equal(t, http.StatusOK, w.Code)

	// 学生汇总
	var summary struct {
		OwnerName  string `json:"owner_name"`
		Total      int64  `json:"total"`
		Categories []struct {
			Category string `json:"category"`
			Count    int64  `json:"count"`
		} `json:"categories"`
	}
	w = s.do(httptest.NewRequest(http.MethodGet, "/api/students/Alice/summary", nil))
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &summary)
	assert.Equal(t, int64(2), summary.Total)
	require.Len(t, summary.Categories, 3)
	assert.Equal(t, "self", summary.Categories[0].Category)
	assert.Equal(t, int64(2), summary.Categories[0].Count)

	// 删除后不可访问
	w = s.do(httptest.NewRequest(http.MethodDelete, "/api/file/"+first.FileInfo.ID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	_, err = os.Stat(filepath.Join(s.uploadDir, "Alice", "自我介绍", "Alice_自我介绍.jpg"))
	assert.True(t, os.IsNotExist(err))

	w = s.do(httptest.NewRequest(http.MethodGet, "/file/"+first.FileInfo.ID, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(httptest.NewRequest(http.MethodDelete, "/api/file/"+first.FileInfo.ID, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(httptest.NewRequest(http.MethodGet, "/api/file/"+first.FileInfo.ID+"/card", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_UploadWithBearerToken(t *testing.T) {
	s := newTestServer(t)

	body := strings.NewReader(`{"username":"admin","password":"secret123"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/login", body)
	req.Header.Set("Content-Type", "application/json")
	w := s.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	var login struct {
		AccessToken string `json:"access_token"`
	}
	decode(t, w, &login)
	require.NotEmpty(t, login.AccessToken)
	s.token = login.AccessToken

	w = s.do(uploadRequest(t, "Bob", "职业介绍", "cv.pdf", "application/pdf", "%PDF"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res uploadData
	decode(t, w, &res)
	assert.Equal(t, "Bob_职业介绍.pdf", res.FileInfo.DisplayName)
}

func TestRouter_InvalidUploadLeavesNoTrace(t *testing.T) {
	s := newTestServer(t)
	s.login(t)

	cases := []*http.Request{
		uploadRequest(t, "Alice", "hobby", "photo.jpg", "image/jpeg", "x"),
		uploadRequest(t, "", "self", "photo.jpg", "image/jpeg", "x"),
		uploadRequest(t, "Alice", "self", "tool.exe", "application/x-msdownload", "x"),
	}
	for _, req := range cases {
		w := s.do(req)
		assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	}

	entries, err := os.ReadDir(s.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	w := s.do(httptest.NewRequest(http.MethodGet, "/api/students", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var owners []map[string]interface{}
	decode(t, w, &owners)
	assert.Empty(t, owners)
}

func TestRouter_OversizedUploadIsCutOff(t *testing.T) {
	s := newTestServer(t)
	s.login(t)

	// 上限 1MB，请求体超过上限加表单余量
	content := strings.Repeat("x", 3<<20)
	w := s.do(uploadRequest(t, "Alice", "self", "big.jpg", "image/jpeg", content))
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	resp := decode(t, w, nil)
	assert.Equal(t, "文件大小超过限制（最大1MB）", resp.Message)

	entries, err := os.ReadDir(s.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
	entries, err = os.ReadDir(s.tempDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// 未超过请求体上限但超过文件上限时由校验拒绝
	content = strings.Repeat("x", (1<<20)+512)
	w = s.do(uploadRequest(t, "Alice", "self", "big.jpg", "image/jpeg", content))
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Contains(t, decode(t, w, nil).Message, "文件大小超过限制")
}

func TestRouter_ServesLegacyFiles(t *testing.T) {
	s := newTestServer(t)

	const id = "9b2f6c1e-1111-4000-8000-000000000000"
	legacy := fmt.Sprintf(`{"%s":{"id":"%s","originalName":"老照片.png","filename":"%s.png","mimetype":"image/png","size":3,"uploadTime":"2023-01-02T03:04:05.000Z"}}`, id, id, id)
	require.NoError(t, os.WriteFile(s.legacy, []byte(legacy), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(s.uploadDir, id+".png"), []byte("png"), 0644))

	w := s.do(httptest.NewRequest(http.MethodGet, "/file/"+id, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "png", w.Body.String())
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	var info struct {
		DisplayName string `json:"display_name"`
		Category    string `json:"category"`
		Legacy      bool   `json:"legacy"`
	}
	w = s.do(httptest.NewRequest(http.MethodGet, "/api/file/"+id+"/info", nil))
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &info)
	assert.Equal(t, "老照片.png", info.DisplayName)
	assert.Empty(t, info.Category)
	assert.True(t, info.Legacy)

	// 记录存在但文件丢失
	require.NoError(t, os.Remove(filepath.Join(s.uploadDir, id+".png")))
	w = s.do(httptest.NewRequest(http.MethodGet, "/file/"+id, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	resp := decode(t, w, nil)
	assert.Equal(t, "文件已被删除", resp.Message)

	w = s.do(httptest.NewRequest(http.MethodGet, "/file/unknown", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_HealthAndMe(t *testing.T) {
	s := newTestServer(t)

	w := s.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var me struct {
		Authenticated bool `json:"authenticated"`
	}
	w = s.do(httptest.NewRequest(http.MethodGet, "/api/me", nil))
	decode(t, w, &me)
	assert.False(t, me.Authenticated)

	s.login(t)
	w = s.do(httptest.NewRequest(http.MethodGet, "/api/me", nil))
	decode(t, w, &me)
	assert.True(t, me.Authenticated)

	w = s.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	body, _ := io.ReadAll(w.Body)
	assert.Contains(t, string(body), "qrcard_")
}
