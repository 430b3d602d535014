package bootstrap

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/cv-screener/internal/config"
	"alfredoptarigan/cv-screener/internal/logger"
	"alfredoptarigan/cv-screener/internal/services"
)

func TestOpenStoreWithSQLite(t *testing.T) {
	dir := t.TempDir()
	cfg := &config.Config{
		Server:   config.ServerConfig{Env: "test"},
		Database: config.DatabaseConfig{Driver: "sqlite", SQLitePath: filepath.Join(dir, "screener.db")},
		Storage:  config.StorageConfig{UploadPath: filepath.Join(dir, "uploads")},
	}

	app, err := OpenStore(cfg, logger.Nop())
	require.NoError(t, err)
	defer app.Close()

	n, err := app.Evaluations.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = app.TalentPool.Similar(context.Background(), nil, 5)
	assert.ErrorIs(t, err, services.ErrTalentPoolDisabled)
	assert.Nil(t, app.Gemini)
}
