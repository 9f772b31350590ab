package main

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Shyam-vadgama/smart-student-hub-sub000/internal/config"
)

func TestCorsConfig(t *testing.T) {
	t.Run("explicit origins", func(t *testing.T) {
		cc := corsConfig(config.CORSConfig{
			AllowedOrigins:   []string{"http://localhost:3000"},
			AllowedMethods:   []string{"GET"},
			AllowCredentials: true,
			MaxAge:           60,
		})
		assert.False(t, cc.AllowAllOrigins)
		assert.Equal(t, []string{"http://localhost:3000"}, cc.AllowOrigins)
		assert.Equal(t, time.Minute, cc.MaxAge)
		assert.NoError(t, cc.Validate())
	})

	t.Run("wildcard", func(t *testing.T) {
		cc := corsConfig(config.CORSConfig{AllowedOrigins: []string{"*"}})
		assert.True(t, cc.AllowAllOrigins)
		assert.Empty(t, cc.AllowOrigins)
		assert.NoError(t, cc.Validate())
	})
}

func TestNewLogger(t *testing.T) {
	ctx := context.Background()

	logger := newLogger(config.LogConfig{Level: "warn", Format: "text"})
	assert.False(t, logger.Enabled(ctx, slog.LevelInfo))
	assert.True(t, logger.Enabled(ctx, slog.LevelWarn))

	logger = newLogger(config.LogConfig{Level: "debug", Format: "json"})
	assert.True(t, logger.Enabled(ctx, slog.LevelDebug))

	logger = newLogger(config.LogConfig{})
	assert.True(t, logger.Enabled(ctx, slog.LevelInfo))
	assert.False(t, logger.Enabled(ctx, slog.LevelDebug))
}

func TestRootCommand(t *testing.T) {
	root := newRootCmd()
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))

	migrate, _, err := root.Find([]string{"migrate"})
	assert.NoError(t, err)
	assert.Equal(t, "migrate", migrate.Name())
}
