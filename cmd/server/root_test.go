package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hostsYAML = `
addr: ":9090"
hosts:
  node1:
    name: Rack 1 Node 1
    hostname: https://10.0.0.5
    username: root
    password: 0penBmc
    timeout: 30
    validate_certs: false
    ssh_port: 2222
  node2:
    hostname: 10.0.0.6
    session_key: abc
    base_prefix: /redfish/v1
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hosts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(hostsYAML), 0o600))
	return path
}

func TestLoadConfig_File(t *testing.T) {
	cfg := viper.New()
	require.NoError(t, loadConfig(cfg, writeConfig(t)))

	assert.Equal(t, ":9090", cfg.GetString(configAddr))

	got, err := hosts(cfg)
	require.NoError(t, err)
	require.Len(t, got, 2)

	node1 := got["node1"]
	require.NotNil(t, node1)
	assert.Equal(t, "Rack 1 Node 1", node1.Name)
	assert.Equal(t, "https://10.0.0.5", node1.Hostname)
	assert.Equal(t, 30, node1.Timeout)
	assert.Equal(t, lo.ToPtr(false), node1.ValidateCerts)
	assert.Equal(t, 2222, node1.SSHPort)
	assert.Equal(t, "10.0.0.5", node1.Address())

	node2 := got["node2"]
	require.NotNil(t, node2)
	assert.Equal(t, "node2", node2.Name)
	assert.Equal(t, "abc", node2.SessionKey)
	assert.Equal(t, "/redfish/v1", node2.BasePrefix)
	assert.Nil(t, node2.ValidateCerts)
	assert.False(t, node2.RedfishConfig(nil).InsecureSkipVerify, "certificates are checked unless turned off")
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg := viper.New()
	require.NoError(t, loadConfig(cfg, ""))

	assert.Equal(t, ":8080", cfg.GetString(configAddr))
	got, err := hosts(cfg)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	err := loadConfig(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading config")
}

func TestHosts_FromEnvironment(t *testing.T) {
	t.Setenv("OBMC_HOST", "10.0.0.9")
	t.Setenv("OBMC_HOST_ID", "lab")
	t.Setenv("OBMC_USER", "admin")
	t.Setenv("OBMC_PASS", "secret")

	cfg := viper.New()
	require.NoError(t, loadConfig(cfg, writeConfig(t)))

	got, err := hosts(cfg)
	require.NoError(t, err)
	require.Len(t, got, 3)
	lab := got["lab"]
	require.NotNil(t, lab)
	assert.Equal(t, "10.0.0.9", lab.Name)
	assert.Equal(t, "admin", lab.Username)
	assert.Equal(t, "secret", lab.Password)
	assert.Equal(t, lo.ToPtr(true), lab.ValidateCerts)
}

func TestHosts_ValidateCertsFromEnvironment(t *testing.T) {
	t.Setenv("OBMC_HOST", "10.0.0.9")
	t.Setenv("OBMC_HOST_ID", "lab")
	t.Setenv("OBMC_VALIDATE_CERTS", "false")

	cfg := viper.New()
	require.NoError(t, loadConfig(cfg, ""))

	got, err := hosts(cfg)
	require.NoError(t, err)
	host := got["lab"]
	require.NotNil(t, host)
	assert.Equal(t, lo.ToPtr(false), host.ValidateCerts)
	assert.True(t, host.RedfishConfig(nil).InsecureSkipVerify)
}

func TestSetupLogging(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.GlobalLevel())

	require.NoError(t, setupLogging("debug", false))
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	assert.Error(t, setupLogging("loud", false))
}
