// Package filesystem lays out the application's directories under the user's home.
package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shaharia-lab/audicord/internal/config"
)

type PathType string

const (
	configYamlFileName = "config.yaml"
	historyDBFileName  = "history.db"

	AppDirectory    PathType = "app"
	ConfigDirectory PathType = "config"
	ConfigFilePath  PathType = "config_file"
	LogsDirectory   PathType = "logs"
	LogsFilePath    PathType = "log_file"
	DataDirectory   PathType = "data"
	HistoryDBPath   PathType = "history_db"
)

// Filesystem resolves and creates the application paths
type Filesystem struct {
	appCfg  *config.AppConfig
	homeDir func() (string, error)
}

// NewAppFilesystem creates a new Filesystem instance.
func NewAppFilesystem(appCfg *config.AppConfig) *Filesystem {
	return &Filesystem{
		appCfg:  appCfg,
		homeDir: os.UserHomeDir,
	}
}

// EnsureAllPaths creates the directory tree and returns every known path.
// Files are not created here; their owners create them on first use.
func (s *Filesystem) EnsureAllPaths() (map[PathType]string, error) {
	paths := map[PathType]string{}

	appDirectory, err := s.ensureAppDirectory()
	if err != nil {
		return paths, err
	}
	paths[AppDirectory] = appDirectory

	for _, dir := range []struct {
		kind PathType
		name string
	}{
		{ConfigDirectory, "config"},
		{LogsDirectory, "logs"},
		{DataDirectory, "data"},
	} {
		full := filepath.Join(appDirectory, dir.name)
		if err := os.MkdirAll(full, 0755); err != nil {
			return paths, fmt.Errorf("failed to create %s directory: %w", dir.name, err)
		}
		paths[dir.kind] = full
	}

	paths[ConfigFilePath] = filepath.Join(paths[ConfigDirectory], configYamlFileName)
	paths[LogsFilePath] = filepath.Join(paths[LogsDirectory], fmt.Sprintf("%s.log", strings.ToLower(s.appCfg.Name)))
	paths[HistoryDBPath] = filepath.Join(paths[DataDirectory], historyDBFileName)

	return paths, nil
}

func (s *Filesystem) ensureAppDirectory() (string, error) {
	homeDir, err := s.homeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}

	appDir := filepath.Join(homeDir, fmt.Sprintf(".%s", strings.ToLower(s.appCfg.Name)))
	if err := os.MkdirAll(appDir, 0755); err != nil {
		return "", err
	}

	return appDir, nil
}
