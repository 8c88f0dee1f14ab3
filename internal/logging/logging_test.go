package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyerfyer/fund-info-parser/config"
)

func TestSetup(t *testing.T) {
	t.Run("level and json format", func(t *testing.T) {
		logger, err := Setup(config.LogConfig{Level: "debug", Format: "json"})
		require.NoError(t, err)
		assert.Same(t, GetLogger(), logger)
		assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
		assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
	})

	t.Run("rolling file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "logs", "sec497.log")
		logger, err := Setup(config.LogConfig{Level: "info", Format: "json", File: file, MaxSizeMB: 1})
		require.NoError(t, err)

		logger.WithField("run_id", "abc").Info("Extraction started")

		data, err := os.ReadFile(file)
		require.NoError(t, err)
		assert.True(t, strings.Contains(string(data), `"run_id":"abc"`))
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := Setup(config.LogConfig{Level: "verbose"})
		assert.Error(t, err)
		_, err = Setup(config.LogConfig{Level: "info", Format: "xml"})
		assert.Error(t, err)
	})

	t.Cleanup(func() {
		_, _ = Setup(config.LogConfig{Level: "info"})
	})
}
