package redfish

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/williamzujkowski/obmc-manager/internal/redfish/redfishtest"
)

// newTestAPI starts an in-memory service seeded with fixture and returns an API bound to it.
func newTestAPI(t *testing.T, fixture redfishtest.Fixture) (*API, *redfishtest.Server) {
	t.Helper()
	server := redfishtest.NewServer(t, fixture)
	api, err := NewAPI(Config{
		Hostname: server.Hostname(),
		Port:     server.Port(),
		Username: "root",
		Password: "0penBmc",
	})
	require.NoError(t, err)
	return api, server
}

func openBMC() redfishtest.Fixture { return redfishtest.OpenBMC() }
func mockup() redfishtest.Fixture  { return redfishtest.Mockup() }

func testManager(t *testing.T, api *API, id string) *Manager {
	t.Helper()
	m, err := api.Manager(id)
	require.NoError(t, err)
	require.NotNil(t, m)
	return m
}

func testSystem(t *testing.T, api *API, id string) *System {
	t.Helper()
	s, err := api.System(id)
	require.NoError(t, err)
	require.NotNil(t, s)
	return s
}
