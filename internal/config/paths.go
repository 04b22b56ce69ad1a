package config

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultSocketPath is the default location for the daemon's Unix socket
const DefaultSocketPath = "$XDG_RUNTIME_DIR/audicord.sock"

// ResolveSocketPath expands $HOME and $XDG_RUNTIME_DIR in a configured path.
// Without XDG_RUNTIME_DIR the socket lives in ~/.audicord.
func ResolveSocketPath(templatePath string) string {
	socketPath := templatePath

	if strings.Contains(socketPath, "$HOME") {
		if home, err := os.UserHomeDir(); err == nil {
			socketPath = strings.Replace(socketPath, "$HOME", home, 1)
		}
	}

	if strings.Contains(socketPath, "$XDG_RUNTIME_DIR") {
		runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
		if runtimeDir == "" {
			if home, err := os.UserHomeDir(); err == nil {
				runtimeDir = filepath.Join(home, ".audicord")
			} else {
				runtimeDir = os.TempDir()
			}
		}
		socketPath = strings.Replace(socketPath, "$XDG_RUNTIME_DIR", runtimeDir, 1)
	}

	return socketPath
}
