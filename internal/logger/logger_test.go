package logger

import (
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 日志输出为全局状态，以下用例不并行

func TestInit_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "server.log")
	require.NoError(t, Init(path))
	defer Close()

	assert.Equal(t, path, GetLogPath())

	LogInfo("player %s registered", "alice")
	LogWarn("unknown id %d", 7)
	LogError("send failed")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "[INFO] player alice registered")
	assert.Contains(t, out, "[WARN] unknown id 7")
	assert.Contains(t, out, "[ERROR] send failed")
	assert.Contains(t, out, "logger_test.go")
}

func TestInit_Stderr(t *testing.T) {
	require.NoError(t, Init(""))
	assert.Equal(t, os.Stderr, log.Writer())
}

func TestInit_RotatesLargeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.log")
	require.NoError(t, os.WriteFile(path, make([]byte, maxLogSize+1), 0o600))

	require.NoError(t, Init(path))
	defer Close()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Less(t, info.Size(), int64(maxLogSize))
}

func TestLogPanic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "panic.log")
	require.NoError(t, Init(path))
	defer Close()

	LogPanic("boom")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[PANIC] boom")
	assert.Contains(t, string(data), "goroutine")
}
