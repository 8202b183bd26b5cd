package modules

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/williamzujkowski/obmc-manager/internal/bmc"
	"github.com/williamzujkowski/obmc-manager/internal/metrics"
	"github.com/williamzujkowski/obmc-manager/internal/redfish"
	"github.com/williamzujkowski/obmc-manager/internal/redfish/redfishtest"
)

const (
	systemPath  = "/redfish/v1/Systems/system"
	managerPath = "/redfish/v1/Managers/bmc"
)

// newRunner connects a runner to an in-memory service seeded with fixture.
func newRunner(t *testing.T, fixture redfishtest.Fixture) (*Runner, *redfishtest.Server, *metrics.Operations) {
	t.Helper()
	server := redfishtest.NewServer(t, fixture)
	client, err := bmc.Connect(redfish.Config{
		Hostname: server.Hostname(),
		Port:     server.Port(),
		Username: "root",
		Password: "0penBmc",
	})
	require.NoError(t, err)
	m := metrics.NewOperations(prometheus.NewRegistry())
	server.ResetCalls()
	return NewRunner(client, m), server, m
}

func ptr[T any](v T) *T { return &v }
