package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeLocator(resources bool, configDir string) Locator {
	return Locator{
		UserConfigDir: func() (string, error) {
			if configDir == "" {
				return "", errors.New("no config dir")
			}
			return configDir, nil
		},
		Executable: func() (string, error) { return "/opt/assetdesk/bin/assetdesk", nil },
		IsDir:      func(p string) bool { return resources && p == "resources" },
		MkdirAll:   func(string, os.FileMode) error { return nil },
	}
}

func TestDatabasePathPriority(t *testing.T) {
	full := Env{NetworkPath: `\\nas\share\assets.sqlite3`, ResourcesPath: "/app/resources"}

	tests := []struct {
		name      string
		flag      string
		env       Env
		resources bool
		configDir string
		want      string
	}{
		{"flag wins", "custom.db", full, true, "/home/u/.config", "custom.db"},
		{"network path", "", full, true, "/home/u/.config", `\\nas\share\assets.sqlite3`},
		{"packaged resources", "", Env{ResourcesPath: "/app/resources"}, true, "/home/u/.config", filepath.Join("/app/resources", DBFileName)},
		{"local resources dir", "", Env{}, true, "/home/u/.config", filepath.Join("resources", DBFileName)},
		{"user config dir", "", Env{}, false, "/home/u/.config", filepath.Join("/home/u/.config", appDir, DBFileName)},
		{"beside executable", "", Env{}, false, "", filepath.Join("/opt/assetdesk/bin", DBFileName)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := fakeLocator(tt.resources, tt.configDir).DatabasePath(tt.flag, tt.env)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("ASSETDESK_RESOURCES_PATH=/srv/res\nASSETDESK_CACHE_TTL=90\n"), 0o644))

	t.Setenv(EnvAddr, ":9000")
	t.Setenv(EnvResourcesPath, "")
	t.Setenv(EnvCacheTTL, "")
	os.Unsetenv(EnvResourcesPath)
	os.Unsetenv(EnvCacheTTL)

	env, err := LoadEnv(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", env.Addr)
	assert.Equal(t, "/srv/res", env.ResourcesPath)
	assert.Equal(t, 90*time.Second, env.CacheTTL)
}

func TestLoadEnvMissingFile(t *testing.T) {
	t.Setenv(EnvAddr, "")
	env, err := LoadEnv(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, DefaultAddr, env.Addr)
}
