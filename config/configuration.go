// Package config locates and reads the keyfold configuration file.
package config

import (
	"os"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	yaml "gopkg.in/yaml.v3"
)

var (
	// DefaultConfigFiles is the file names from which we attempt to read configuration.
	DefaultConfigFiles = []string{"config.yml", "config.yaml"}

	// defaultUserConfigDirs is searched in order for a config file.
	defaultUserConfigDirs = []string{"~/.keyfold", "~/.config/keyfold"}
)

// Configuration are the file-backed settings. Everything has a working
// default; a missing config file is not an error.
type Configuration struct {
	// CachePath is the SQLite file holding the last discovered update.
	CachePath string `yaml:"cachePath"`
	LogLevel  string `yaml:"loglevel"`
	LogFile   string `yaml:"logfile"`
}

// DefaultCachePath is where the update cache database lives unless
// configuration says otherwise.
func DefaultCachePath() string {
	dir, err := homedir.Expand(defaultUserConfigDirs[0])
	if err != nil {
		return "update-cache.db"
	}
	return filepath.Join(dir, "update-cache.db")
}

// FileExists checks to see if a file exist at the provided path.
func FileExists(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	_ = f.Close()
	return true, nil
}

// FindDefaultConfigPath returns the first path that contains a config file,
// or empty string when none exists.
func FindDefaultConfigPath() string {
	for _, configDir := range defaultUserConfigDirs {
		for _, configFile := range DefaultConfigFiles {
			dirPath, err := homedir.Expand(configDir)
			if err != nil {
				continue
			}
			path := filepath.Join(dirPath, configFile)
			if ok, _ := FileExists(path); ok {
				return path
			}
		}
	}
	return ""
}

// Read loads the configuration at path, or the first default location when
// path is empty. A missing file yields the zero Configuration.
func Read(path string) (*Configuration, error) {
	if path == "" {
		path = FindDefaultConfigPath()
	}
	config := &Configuration{}
	if path == "" {
		return config, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", path)
	}
	if err := yaml.Unmarshal(raw, config); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config file %s", path)
	}
	return config, nil
}
