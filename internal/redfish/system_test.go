package redfish

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystem_Inventory(t *testing.T) {
	api, _ := newTestAPI(t, openBMC())
	s := testSystem(t, api, "system")

	model, err := s.Model()
	require.NoError(t, err)
	assert.Equal(t, "VEGMAN S220 Server", model)
	serial, err := s.SerialNumber()
	require.NoError(t, err)
	assert.Equal(t, "SN-0001", serial)

	cpus, err := s.Processors()
	require.NoError(t, err)
	require.Len(t, cpus, 1)
	cores, err := cpus[0].TotalCores()
	require.NoError(t, err)
	assert.Equal(t, 20, cores)

	dimms, err := s.Memory()
	require.NoError(t, err)
	require.Len(t, dimms, 1)
	capacity, err := dimms[0].CapacityMiB()
	require.NoError(t, err)
	assert.Equal(t, 32768, capacity)

	devices, err := s.PCIeDevices()
	require.NoError(t, err)
	require.Len(t, devices, 1)
	vendor, err := devices[0].Manufacturer()
	require.NoError(t, err)
	assert.Equal(t, "Mellanox", vendor)

	bios, err := s.Bios()
	require.NoError(t, err)
	attrs, err := bios.Attributes()
	require.NoError(t, err)
	assert.Equal(t, "Uefi", attrs["BootMode"])
}

func TestSystem_PowerActions(t *testing.T) {
	api, server := newTestAPI(t, openBMC())
	s := testSystem(t, api, "system")

	tests := []struct {
		name      string
		run       func() error
		resetType string
		state     string
	}{
		{"on", s.PowerOnGraceful, "On", "On"},
		{"force off", s.PowerOffForce, "ForceOff", "Off"},
		{"force on", s.PowerOnForce, "ForceOn", "On"},
		{"graceful off", s.PowerOffGraceful, "GracefulShutdown", "Off"},
		{"graceful restart", s.PowerResetGraceful, "GracefulRestart", "On"},
		{"power cycle", s.PowerResetForce, "PowerCycle", "On"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.run())
			posts := server.Calls(http.MethodPost)
			assert.JSONEq(t, `{"ResetType":"`+tt.resetType+`"}`, string(posts[len(posts)-1].Body))

			state, err := s.PowerState()
			require.NoError(t, err)
			assert.Equal(t, tt.state, state)
		})
	}
}

func TestSystem_BootSourceOverride(t *testing.T) {
	api, server := newTestAPI(t, openBMC())
	s := testSystem(t, api, "system")

	boot, err := s.BootSourceOverride()
	require.NoError(t, err)
	assert.Equal(t, BootOverride{Enabled: "Disabled", Mode: "UEFI", Target: "None"}, boot)

	require.NoError(t, s.SetBootSourceOverride(BootOverride{Enabled: "Disabled", Mode: "UEFI"}))
	assert.Zero(t, server.Mutations())

	require.NoError(t, s.SetBootSourceOverride(BootOverride{Enabled: "Once", Mode: "UEFI", Target: "Pxe"}))
	patches := server.Calls(http.MethodPatch)
	require.Len(t, patches, 1)
	assert.JSONEq(t, `{"Boot":{"BootSourceOverrideEnabled":"Once","BootSourceOverrideTarget":"Pxe"}}`, string(patches[0].Body))

	boot, err = s.BootSourceOverride()
	require.NoError(t, err)
	assert.Equal(t, BootOverride{Enabled: "Once", Mode: "UEFI", Target: "Pxe"}, boot)
}

func TestBios_ResetToDefaults(t *testing.T) {
	api, server := newTestAPI(t, openBMC())
	bios, err := testSystem(t, api, "system").Bios()
	require.NoError(t, err)

	require.NoError(t, bios.ResetToDefaults())
	posts := server.Calls(http.MethodPost)
	require.Len(t, posts, 1)
	assert.Equal(t, "/redfish/v1/Systems/system/Bios/Actions/Bios.ResetBios", posts[0].Path)
	assert.Empty(t, posts[0].Body)
}

func TestChassis(t *testing.T) {
	api, _ := newTestAPI(t, openBMC())

	all, err := api.ChassisCollection()
	require.NoError(t, err)
	require.Len(t, all, 1)

	c, err := api.Chassis("chassis")
	require.NoError(t, err)
	require.NotNil(t, c)
	kind, err := c.ChassisType()
	require.NoError(t, err)
	assert.Equal(t, "RackMount", kind)

	thermal, err := c.Thermal()
	require.NoError(t, err)
	fans, err := thermal.Fans()
	require.NoError(t, err)
	require.Len(t, fans, 1)
	assert.Equal(t, "0", fans[0].ID())
	assert.Equal(t, "FAN0", fans[0].Oem.Connector)
	require.NotNil(t, fans[0].Reading)
	assert.Equal(t, 5400, *fans[0].Reading)

	power, err := c.Power()
	require.NoError(t, err)
	supplies, err := power.PowerSupplies()
	require.NoError(t, err)
	require.Len(t, supplies, 1)
	assert.Equal(t, "Delta", supplies[0].Manufacturer)

	none, err := api.Chassis("missing")
	require.NoError(t, err)
	assert.Nil(t, none)
}
