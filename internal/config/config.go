// Package config reads environment settings and resolves where the database
// file lives.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment variables.
const (
	EnvAddr          = "ASSETDESK_ADDR"
	EnvNetworkPath   = "ASSETDESK_DB_NETWORK_PATH"
	EnvResourcesPath = "ASSETDESK_RESOURCES_PATH"
	EnvCacheTTL      = "ASSETDESK_CACHE_TTL"
)

// Defaults.
const (
	DefaultAddr     = "127.0.0.1:5000"
	DefaultCacheTTL = 60 * time.Second
	DBFileName      = "assetdesk.sqlite3"
	appDir          = "assetdesk"
)

// Env holds settings taken from the environment.
type Env struct {
	Addr          string
	NetworkPath   string
	ResourcesPath string
	CacheTTL      time.Duration
}

// LoadEnv loads the .env file at path, if present, and reads the environment.
// Variables already set in the process environment win over the file.
func LoadEnv(path string) (Env, error) {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Env{}, fmt.Errorf("loading %s: %w", path, err)
	}

	return Env{
		Addr:          getEnv(EnvAddr, DefaultAddr),
		NetworkPath:   os.Getenv(EnvNetworkPath),
		ResourcesPath: os.Getenv(EnvResourcesPath),
		CacheTTL:      getEnvAsDuration(EnvCacheTTL, DefaultCacheTTL),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("90s") or plain seconds ("90").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return defaultValue
}

// Locator resolves the database path. The function fields exist so tests can
// fake the filesystem; the zero value uses the real one.
type Locator struct {
	UserConfigDir func() (string, error)
	Executable    func() (string, error)
	IsDir         func(string) bool
	MkdirAll      func(string, os.FileMode) error
}

func (l Locator) withDefaults() Locator {
	if l.UserConfigDir == nil {
		l.UserConfigDir = os.UserConfigDir
	}
	if l.Executable == nil {
		l.Executable = os.Executable
	}
	if l.IsDir == nil {
		l.IsDir = func(p string) bool {
			info, err := os.Stat(p)
			return err == nil && info.IsDir()
		}
	}
	if l.MkdirAll == nil {
		l.MkdirAll = os.MkdirAll
	}
	return l
}

// DatabasePath picks the database file in priority order: the explicit flag,
// the network path, the packaged resources directory, a local "resources"
// directory, the user config directory and finally the executable's
// directory.
func (l Locator) DatabasePath(flagPath string, env Env) (string, error) {
	l = l.withDefaults()

	switch {
	case flagPath != "":
		return flagPath, nil
	case env.NetworkPath != "":
		return env.NetworkPath, nil
	case env.ResourcesPath != "":
		return filepath.Join(env.ResourcesPath, DBFileName), nil
	case l.IsDir("resources"):
		return filepath.Join("resources", DBFileName), nil
	}

	if dir, err := l.UserConfigDir(); err == nil {
		dir = filepath.Join(dir, appDir)
		if err := l.MkdirAll(dir, 0o755); err == nil {
			return filepath.Join(dir, DBFileName), nil
		}
	}

	exe, err := l.Executable()
	if err != nil {
		return "", fmt.Errorf("locating executable: %w", err)
	}
	return filepath.Join(filepath.Dir(exe), DBFileName), nil
}
