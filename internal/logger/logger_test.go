package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWritesToLogDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	require.NoError(t, Init(Config{Debug: true, LogDir: dir}))
	Info("milestone swept", "count", 3)

	data, err := os.ReadFile(filepath.Join(dir, "milestones.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "milestone swept")
	assert.Contains(t, string(data), "count=3")
}

func TestInitWithoutLogDir(t *testing.T) {
	require.NoError(t, Init(Config{}))
	assert.NotNil(t, Logger)
}

func TestWriterLogsLines(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Init(Config{LogDir: dir}))

	_, err := Writer().Write([]byte("200 GET /api/goals 1ms\n"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "milestones.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "200 GET /api/goals 1ms")
}
