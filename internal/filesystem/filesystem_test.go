package filesystem

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shaharia-lab/audicord/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFilesystem(t *testing.T) (*Filesystem, string) {
	t.Helper()
	home := t.TempDir()
	fs := NewAppFilesystem(&config.AppConfig{Name: "TestApp"})
	fs.homeDir = func() (string, error) { return home, nil }
	return fs, home
}

func TestEnsureAppDirectory(t *testing.T) {
	fs, home := newTestFilesystem(t)

	appDir, err := fs.ensureAppDirectory()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".testapp"), appDir)

	info, err := os.Stat(appDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	again, err := fs.ensureAppDirectory()
	assert.NoError(t, err, "second call should be idempotent")
	assert.Equal(t, appDir, again)
}

func TestEnsureAllPaths(t *testing.T) {
	fs, home := newTestFilesystem(t)

	paths, err := fs.EnsureAllPaths()
	require.NoError(t, err)

	appDir := filepath.Join(home, ".testapp")
	expected := map[PathType]string{
		AppDirectory:    appDir,
		ConfigDirectory: filepath.Join(appDir, "config"),
		ConfigFilePath:  filepath.Join(appDir, "config", "config.yaml"),
		LogsDirectory:   filepath.Join(appDir, "logs"),
		LogsFilePath:    filepath.Join(appDir, "logs", "testapp.log"),
		DataDirectory:   filepath.Join(appDir, "data"),
		HistoryDBPath:   filepath.Join(appDir, "data", "history.db"),
	}
	assert.Equal(t, expected, paths)

	for _, dir := range []PathType{ConfigDirectory, LogsDirectory, DataDirectory} {
		info, err := os.Stat(paths[dir])
		require.NoError(t, err, string(dir))
		assert.True(t, info.IsDir(), string(dir))
	}
}

func TestEnsureAllPaths_HomeError(t *testing.T) {
	fs := NewAppFilesystem(&config.AppConfig{Name: "TestApp"})
	fs.homeDir = func() (string, error) { return "", errors.New("no home") }

	_, err := fs.EnsureAllPaths()
	assert.Error(t, err)
}
