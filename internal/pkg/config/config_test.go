package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func inDir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	inDir(t, t.TempDir())

	SetDefaults()
	require.NoError(t, Load("rendezvous-server"))

	assert.Equal(t, 9000, viper.GetInt("control.port"))
	assert.Equal(t, 9001, viper.GetInt("probe.port"))
	assert.Equal(t, 5*time.Second, viper.GetDuration("control.write_timeout"))
	assert.False(t, viper.GetBool("kafka.enabled"))
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, Dir), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, Dir, "rendezvous-server.yaml"), []byte(`
control:
  port: 7000
probe:
  port: 7001
`), 0o644))
	inDir(t, root)
	t.Setenv("PROBE_PORT", "7101")

	SetDefaults()
	require.NoError(t, Load("rendezvous-server"))

	assert.Equal(t, 7000, viper.GetInt("control.port"))
	assert.Equal(t, 7101, viper.GetInt("probe.port"), "environment overrides file")
	assert.Equal(t, 9002, viper.GetInt("grpc_server.port"), "defaults fill the gaps")
}

func TestLoad_MalformedFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, Dir), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, Dir, "broken.yaml"), []byte("control: [\n"), 0o644))
	inDir(t, root)

	assert.Error(t, Load("broken"))
}
