package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/hostelbites/storage"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	f, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, f.Storage.Backend)
	assert.Equal(t, "hostelbites", f.Storage.Namespace)
	assert.True(t, f.Metrics.Enabled)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  base_url: http://localhost:9090
  order_timeout: 45s
storage:
  backend: memory
  namespace: meera
logging:
  level: info
`), 0o600))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9090", f.API.BaseURL)
	assert.Equal(t, 45*time.Second, f.API.OrderTimeout)
	assert.Equal(t, 10*time.Second, f.API.Timeout, "unset keys keep defaults")
	assert.Equal(t, BackendMemory, f.Storage.Backend)

	cfg, err := f.Config()
	require.NoError(t, err)
	assert.Equal(t, "meera", cfg.Storage.Namespace)
	assert.Equal(t, 45*time.Second, cfg.API.OrderTimeout)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: [unclosed"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvBaseURL:   "https://api.example.test",
		EnvBackend:   " REDIS ",
		EnvRedisAddr: "cache:6379",
		EnvStatePath: "",
	}
	f := Default()
	before := f.Storage.Path
	f.ApplyEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	assert.Equal(t, "https://api.example.test", f.API.BaseURL)
	assert.Equal(t, BackendRedis, f.Storage.Backend)
	assert.Equal(t, "cache:6379", f.Storage.RedisAddr)
	assert.Equal(t, before, f.Storage.Path, "empty values are ignored")
}

func TestConfigValidates(t *testing.T) {
	f := Default()
	f.API.BaseURL = "not a url"
	_, err := f.Config()
	assert.Error(t, err)

	f = Default()
	f.Storage.Namespace = "has:colon"
	_, err = f.Config()
	assert.Error(t, err)
}

func TestSaveRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	f := Default()
	f.Storage.Backend = BackendMemory
	f.API.Timeout = 3 * time.Second
	require.NoError(t, f.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, f, got)
}

func TestOpenStorageBackends(t *testing.T) {
	ctx := context.Background()

	f := Default()
	f.Storage.Path = filepath.Join(t.TempDir(), "state", "state.db")
	db, err := f.OpenStorage(ctx)
	require.NoError(t, err)
	require.NoError(t, db.Set(ctx, "token", []byte("abc")))
	require.NoError(t, db.Close())

	mr := miniredis.RunT(t)
	f.Storage.Backend = BackendRedis
	f.Storage.RedisAddr = mr.Addr()
	rdb, err := f.OpenStorage(ctx)
	require.NoError(t, err)
	require.NoError(t, rdb.Set(ctx, "token", []byte("abc")))
	assert.True(t, mr.Exists("token"))
	require.NoError(t, rdb.Close())

	f.Storage.Backend = BackendMemory
	mem, err := f.OpenStorage(ctx)
	require.NoError(t, err)
	assert.IsType(t, &storage.Memory{}, mem)

	f.Storage.Backend = "etcd"
	_, err = f.OpenStorage(ctx)
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestLoggerLevels(t *testing.T) {
	f := Default()
	l, err := f.Logger(false)
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(-1), "warn default hides debug")

	l, err = f.Logger(true)
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(-1))

	f.Logging.Level = "loud"
	_, err = f.Logger(false)
	assert.Error(t, err)
}
