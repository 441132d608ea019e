package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/gcfg.v1"
)

// Settings are per-user defaults for the command line, read from an INI
// style file:
//
//	[tether]
//	data = ~/cables
//	theme = retro
//	verbose = 1
type Settings struct {
	Data    string
	Theme   string
	Verbose int
}

type settingsWrapper struct {
	Tether Settings
}

// DefaultSettingsPath is tether/tether.ini under the user config directory.
func DefaultSettingsPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "tether", "tether.ini")
}

// LoadSettings reads path. A missing file yields zero settings and no
// error.
func LoadSettings(path string) (Settings, error) {
	var wrap settingsWrapper
	if path == "" {
		return wrap.Tether, nil
	}
	if err := gcfg.ReadFileInto(&wrap, path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Settings{}, nil
		}
		return Settings{}, err
	}
	if rest, ok := strings.CutPrefix(wrap.Tether.Data, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			wrap.Tether.Data = filepath.Join(home, rest)
		}
	}
	return wrap.Tether, nil
}
