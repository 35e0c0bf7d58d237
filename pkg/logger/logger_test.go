package logger_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/surrealdb/surrealdb.go/contrib/surrealcatalog/pkg/logger"
)

func TestLog(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	templogger, err := logger.New().FromBuffer(buff).Make()
	require.NoError(t, err)
	require.NotNil(t, templogger)
	require.NotNil(t, templogger.Logger)
	// Get Stats Before
	require.Equal(t, buff.Len(), 0)
	templogger.Logger.Info().Uint("product_id", 3).Msg("Test")
	// Get Stats After
	require.Contains(t, buff.String(), "Test")
	require.Contains(t, buff.String(), `"product_id":3`)
}

func TestLogLevel(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	templogger, err := logger.New().FromBuffer(buff).Level("warn").Make()
	require.NoError(t, err)

	templogger.Logger.Info().Msg("hidden")
	require.Equal(t, 0, buff.Len())

	templogger.Logger.Warn().Msg("shown")
	require.Contains(t, buff.String(), "shown")
}

func TestLogToPath(t *testing.T) {
	buff := bytes.NewBuffer([]byte{})
	path := filepath.Join(t.TempDir(), "catalog.log")

	templogger, err := logger.New().FromBuffer(buff).ToPath(path).Make()
	require.NoError(t, err)
	templogger.Logger.Info().Msg("to both")
	require.NoError(t, templogger.Close())

	require.Contains(t, buff.String(), "to both")
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(content), "to both")
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, zerolog.InfoLevel, logger.ParseLevel(""))
	require.Equal(t, zerolog.DebugLevel, logger.ParseLevel("DEBUG"))
	require.Equal(t, zerolog.InfoLevel, logger.ParseLevel("loud"))
}
