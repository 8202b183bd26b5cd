package redfish

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/williamzujkowski/obmc-manager/internal/typederrors"
)

var staticAddress = IPv4Address{Address: "10.0.0.10", Gateway: "10.0.0.1", SubnetMask: "255.255.255.0"}

func testInterface(t *testing.T, api *API, manager string) EthernetInterface {
	t.Helper()
	iface, err := testManager(t, api, manager).EthernetInterface("eth0")
	require.NoError(t, err)
	require.NotNil(t, iface)
	return iface
}

func TestEthernetInterface_Production(t *testing.T) {
	api, server := newTestAPI(t, openBMC())
	iface := testInterface(t, api, "bmc")
	require.IsType(t, &ethernetInterface{}, iface)

	mode, err := iface.AddressingMode()
	require.NoError(t, err)
	assert.Equal(t, "DHCP", mode)

	require.NoError(t, iface.SetIPv4StaticAddresses([]IPv4Address{staticAddress}))
	dhcp, err := iface.DHCPv4Enabled()
	require.NoError(t, err)
	assert.True(t, dhcp, "production firmware resolves addressing itself")
	assert.Equal(t, 1, server.Count(http.MethodPatch))

	addrs, err := iface.IPv4StaticAddresses()
	require.NoError(t, err)
	assert.Equal(t, []IPv4Address{staticAddress}, addrs)

	server.ResetCalls()
	require.NoError(t, iface.SetIPv4StaticAddresses([]IPv4Address{staticAddress}))
	require.NoError(t, iface.SetDHCPv4Enabled(true))
	require.NoError(t, iface.SetStaticNameServers([]string{}))
	assert.Zero(t, server.Mutations())

	require.NoError(t, iface.SetStaticNameServers([]string{"8.8.8.8"}))
	servers, err := iface.StaticNameServers()
	require.NoError(t, err)
	assert.Equal(t, []string{"8.8.8.8"}, servers)
}

func TestEthernetInterface_MockupCouplesDHCPAndStatic(t *testing.T) {
	api, server := newTestAPI(t, mockup())
	iface := testInterface(t, api, "BMC")
	require.IsType(t, &mockupEthernetInterface{}, iface)

	require.NoError(t, iface.SetIPv4StaticAddresses([]IPv4Address{staticAddress}))
	dhcp, err := iface.DHCPv4Enabled()
	require.NoError(t, err)
	assert.False(t, dhcp, "static addresses disable DHCP")
	mode, err := iface.AddressingMode()
	require.NoError(t, err)
	assert.Equal(t, "Static", mode)

	require.NoError(t, iface.SetDHCPv4Enabled(true))
	addrs, err := iface.IPv4StaticAddresses()
	require.NoError(t, err)
	assert.Empty(t, addrs, "enabling DHCP clears static addresses")
	assert.JSONEq(t, `[]`, server.Get("/redfish/v1/Managers/BMC/EthernetInterfaces/eth0", "IPv4StaticAddresses").Raw)

	server.ResetCalls()
	require.NoError(t, iface.SetDHCPv4Enabled(false))
	require.NoError(t, iface.SetIPv4StaticAddresses(nil))
	assert.Equal(t, 1, server.Count(http.MethodPatch), "only the DHCP switch changes")
}

func TestEthernetInterface_SkipsNullAddresses(t *testing.T) {
	api, server := newTestAPI(t, openBMC())
	server.Set("/redfish/v1/Managers/bmc/EthernetInterfaces/eth0",
		[]any{nil, map[string]any{"Address": "10.0.0.10", "Gateway": "10.0.0.1", "SubnetMask": "255.255.255.0", "AddressOrigin": "Static"}},
		"IPv4StaticAddresses")
	iface := testInterface(t, api, "bmc")

	addrs, err := iface.IPv4StaticAddresses()
	require.NoError(t, err)
	assert.Equal(t, []IPv4Address{staticAddress}, addrs)
}

func TestEthernetInterface_InvalidAddress(t *testing.T) {
	api, server := newTestAPI(t, openBMC())
	iface := testInterface(t, api, "bmc")

	err := iface.SetIPv4StaticAddresses([]IPv4Address{{Gateway: "10.0.0.1", SubnetMask: "255.255.255.0"}})
	assert.True(t, typederrors.IsSchemaValidationError(err))
	assert.Zero(t, server.Mutations())
}
