package service

import (
	"os"
	"path/filepath"
	"testing"

	"qrcard/internal/config"
	"qrcard/internal/models"
	"qrcard/internal/repository"
	"qrcard/internal/storage"
	"qrcard/pkg/keylock"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var admin = AuthContext{Authenticated: true, Username: "admin"}

type testEnv struct {
	db       *gorm.DB
	store    *storage.LocalStore
	files    *repository.FileRecordRepository
	cards    *repository.CardRecordRepository
	registry *Registry
	uploads  *UploadService
	logger   *logrus.Logger
	hook     *test.Hook
	dir      string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()

	db, err := models.OpenDB(config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(dir, "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	store, err := storage.NewLocalStore(filepath.Join(dir, "uploads"))
	require.NoError(t, err)

	logger, hook := test.NewNullLogger()
	files := repository.NewFileRecordRepository(db)
	registry := NewRegistry(files, store, logger)
	uploads := NewUploadService(registry, store, keylock.New(), UploadLimits{
		MaxFileSize:      1024,
		AllowedMimeTypes: config.DefaultAllowedMimeTypes,
	}, logger)

	return &testEnv{
		db:       db,
		store:    store,
		files:    files,
		cards:    repository.NewCardRecordRepository(db),
		registry: registry,
		uploads:  uploads,
		logger:   logger,
		hook:     hook,
		dir:      dir,
	}
}

// tempFile 写一个待上传的临时文件
func (e *testEnv) tempFile(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(e.dir, "upload-*")
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	return f.Name()
}

func (e *testEnv) uploadInput(t *testing.T, owner, category, name string) UploadInput {
	content := "content of " + name
	return UploadInput{
		TempPath:     e.tempFile(t, content),
		OwnerName:    owner,
		Category:     category,
		OriginalName: name,
		MimeType:     "image/jpeg",
		Size:         int64(len(content)),
	}
}
