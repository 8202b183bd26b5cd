// Package bmc selects the device profile for a connected BMC. Profiles
// differ only where firmware builds disagree on how to report update state.
package bmc

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"github.com/williamzujkowski/obmc-manager/internal/redfish"
	"github.com/williamzujkowski/obmc-manager/internal/rest"
	"github.com/williamzujkowski/obmc-manager/internal/typederrors"
)

// Profile names a supported device family.
type Profile string

const (
	ProfileProduction Profile = "production"
	ProfileMockup     Profile = "mockup"
)

// Models maps the system Model string to its profile.
var Models = map[string]Profile{
	"VEGMAN S220 Server": ProfileProduction,
	"Mockup Server":      ProfileMockup,
}

const (
	activationPath   = "/xyz/openbmc_project/software/"
	activationActive = "xyz.openbmc_project.Software.Activation.Activations.Active"
)

// Client is a connection to a BMC with exactly one system and one manager.
type Client interface {
	API() *redfish.API
	Profile() Profile
	SystemID() string
	ManagerID() string
	System() (*redfish.System, error)
	Manager() (*redfish.Manager, error)
	// ActiveSoftwareImage returns the inventory id of the running BMC firmware.
	ActiveSoftwareImage() (string, error)
	// ImageActivated reports whether an uploaded image finished activating.
	ImageActivated(id string) (bool, error)
}

// Connect builds an API from cfg and probes the device.
func Connect(cfg redfish.Config) (Client, error) {
	api, err := redfish.NewAPI(cfg)
	if err != nil {
		return nil, err
	}
	return ConnectAPI(api)
}

// ConnectAPI probes the device behind api and returns the client for its profile.
func ConnectAPI(api *redfish.API) (Client, error) {
	c := api.Client()

	systems, err := memberIDs(c, api.Prefix()+"/Systems")
	if err != nil {
		return nil, err
	}
	if len(systems) != 1 {
		return nil, typederrors.NewUnsupportedSystemError(
			fmt.Sprintf("operations with only one system supported, found %d", len(systems)), nil)
	}

	resp, err := c.Get(api.Prefix() + "/Systems/" + systems[0])
	if err != nil {
		return nil, fmt.Errorf("getting system %s: %w", systems[0], err)
	}
	model := gjson.GetBytes(resp.Body(), "Model").String()
	profile, ok := Models[model]
	if !ok {
		known := lo.Keys(Models)
		sort.Strings(known)
		return nil, typederrors.NewUnsupportedSystemError(
			fmt.Sprintf("system %q unsupported, known systems: %s", model, strings.Join(known, ", ")), nil)
	}

	managers, err := memberIDs(c, api.Prefix()+"/Managers")
	if err != nil {
		return nil, err
	}
	if len(managers) != 1 {
		return nil, typederrors.NewUnsupportedSystemError(
			fmt.Sprintf("operations with only one manager supported, found %d", len(managers)), nil)
	}

	base := &openBMC{api: api, systemID: systems[0], managerID: managers[0]}
	log.Info().
		Str("model", model).
		Str("profile", string(profile)).
		Str("system", base.systemID).
		Str("manager", base.managerID).
		Msg("BMC profile selected")

	if profile == ProfileMockup {
		return &mockup{openBMC: base}, nil
	}
	return base, nil
}

func memberIDs(c *rest.Client, collection string) ([]string, error) {
	resp, err := c.Get(collection)
	if err != nil {
		return nil, fmt.Errorf("getting %s: %w", collection, err)
	}
	members := gjson.GetBytes(resp.Body(), "Members")
	if !members.Exists() {
		return nil, typederrors.NewFieldNotFoundError("Members")
	}
	return lo.Map(members.Array(), func(m gjson.Result, _ int) string {
		return path.Base(m.Get(`\@odata\.id`).String())
	}), nil
}

type openBMC struct {
	api       *redfish.API
	systemID  string
	managerID string
}

func (b *openBMC) API() *redfish.API { return b.api }
func (b *openBMC) Profile() Profile  { return ProfileProduction }
func (b *openBMC) SystemID() string  { return b.systemID }
func (b *openBMC) ManagerID() string { return b.managerID }

func (b *openBMC) System() (*redfish.System, error) {
	s, err := b.api.System(b.systemID)
	if err == nil && s == nil {
		err = typederrors.NewNotFoundError(b.api.Prefix() + "/Systems/" + b.systemID)
	}
	return s, err
}

func (b *openBMC) Manager() (*redfish.Manager, error) {
	m, err := b.api.Manager(b.managerID)
	if err == nil && m == nil {
		err = typederrors.NewNotFoundError(b.api.Prefix() + "/Managers/" + b.managerID)
	}
	return m, err
}

func (b *openBMC) ActiveSoftwareImage() (string, error) {
	m, err := b.Manager()
	if err != nil {
		return "", err
	}
	return m.ActiveSoftwareImage()
}

// ImageActivated reads the activation state from the D-Bus REST mirror.
// A missing object means the image is still being unpacked.
func (b *openBMC) ImageActivated(id string) (bool, error) {
	resp, err := b.api.Client().Get(activationPath + id)
	if typederrors.IsNotFoundError(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("getting activation of %s: %w", id, err)
	}
	return gjson.GetBytes(resp.Body(), "data.Activation").String() == activationActive, nil
}

// mockup serves the DMTF Redfish mockup server, which has no D-Bus mirror
// and no active image link.
type mockup struct {
	*openBMC
}

func (m *mockup) Profile() Profile { return ProfileMockup }

func (m *mockup) ActiveSoftwareImage() (string, error) {
	return "BMC", nil
}

func (m *mockup) ImageActivated(id string) (bool, error) {
	svc, err := m.api.UpdateService()
	if err != nil {
		return false, err
	}
	img, err := svc.FirmwareInventory(id)
	if err != nil || img == nil {
		return false, err
	}
	status, err := img.Status()
	if err != nil {
		return false, err
	}
	return status.State == "Enabled", nil
}
