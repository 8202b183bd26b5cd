package redfish

import (
	"fmt"
	"slices"

	"github.com/williamzujkowski/obmc-manager/internal/typederrors"
)

// Manager reset types.
const (
	ResetGracefulRestart = "GracefulRestart"
	ResetForceRestart    = "ForceRestart"
)

var managers = newRegistry("Manager", map[string]func(*Resource) *Manager{
	"#Manager.v1_9_0.Manager": func(r *Resource) *Manager { return &Manager{Resource: r} },
})

// Manager is the BMC itself.
type Manager struct {
	*Resource
}

func (m *Manager) FirmwareVersion() (string, error) {
	return m.stringField("FirmwareVersion")
}

func (m *Manager) UUID() (string, error) {
	return m.stringField("UUID")
}

func (m *Manager) ServiceEntryPointUUID() (string, error) {
	return m.stringField("ServiceEntryPointUUID")
}

func (m *Manager) PowerState() (string, error) {
	return m.stringField("PowerState")
}

func (m *Manager) Status() (Status, error) {
	return m.status()
}

func (m *Manager) GraphicalConsole() (map[string]any, error) {
	return m.object("GraphicalConsole")
}

func (m *Manager) SerialConsole() (map[string]any, error) {
	return m.object("SerialConsole")
}

// ActiveSoftwareImage returns the inventory id of the running firmware image.
func (m *Manager) ActiveSoftwareImage() (string, error) {
	link, err := m.linkPath("Links", "ActiveSoftwareImage")
	if err != nil {
		return "", err
	}
	return lastSegment(link), nil
}

func (m *Manager) NetworkProtocol() (*NetworkProtocol, error) {
	return networkProtocols.get(m.client, m.child("NetworkProtocol"))
}

func (m *Manager) EthernetInterfaces() ([]EthernetInterface, error) {
	return ethernetInterfaces.collection(m.client, m.child("EthernetInterfaces"))
}

// EthernetInterface returns nil when no interface has the given id.
func (m *Manager) EthernetInterface(id string) (EthernetInterface, error) {
	return ethernetInterfaces.lookup(m.client, m.child("EthernetInterfaces/"+id))
}

func (m *Manager) VirtualMediaCollection() ([]*VirtualMedia, error) {
	return virtualMedia.collection(m.client, m.child("VirtualMedia"))
}

// VirtualMedia returns nil when no slot has the given id.
func (m *Manager) VirtualMedia(id string) (*VirtualMedia, error) {
	return virtualMedia.lookup(m.client, m.child("VirtualMedia/"+id))
}

// ResetGraceful restarts the BMC.
func (m *Manager) ResetGraceful() error {
	return m.reset(ResetGracefulRestart)
}

// ResetForce restarts the BMC immediately.
func (m *Manager) ResetForce() error {
	return m.reset(ResetForceRestart)
}

func (m *Manager) reset(resetType string) error {
	_, err := m.action("Manager.Reset", map[string]any{"ResetType": resetType})
	return err
}

// ResetToDefaults restores factory settings. Only "all" is supported.
func (m *Manager) ResetToDefaults(resetType string) error {
	if resetType != "all" {
		return typederrors.NewSchemaValidationError(fmt.Sprintf("unsupported reset type %q", resetType), nil)
	}
	_, err := m.action("Manager.ResetToDefaults", map[string]any{"ResetType": "ResetAll"})
	return err
}

var networkProtocols = newRegistry("ManagerNetworkProtocol", map[string]func(*Resource) *NetworkProtocol{
	"#ManagerNetworkProtocol.v1_5_0.ManagerNetworkProtocol": func(r *Resource) *NetworkProtocol {
		return &NetworkProtocol{Resource: r}
	},
})

// NetworkProtocol holds the BMC hostname and per-protocol switches.
type NetworkProtocol struct {
	*Resource
}

func (p *NetworkProtocol) HostName() (string, error) {
	return p.stringField("HostName")
}

func (p *NetworkProtocol) NTPEnabled() (bool, error) {
	return p.boolField("NTP", "ProtocolEnabled")
}

func (p *NetworkProtocol) NTPServers() ([]string, error) {
	return p.stringsField("NTP", "NTPServers")
}

func (p *NetworkProtocol) SSHEnabled() (bool, error) {
	return p.boolField("SSH", "ProtocolEnabled")
}

func (p *NetworkProtocol) IPMIEnabled() (bool, error) {
	return p.boolField("IPMI", "ProtocolEnabled")
}

func (p *NetworkProtocol) SetHostName(name string) error {
	current, err := p.HostName()
	if err != nil {
		return err
	}
	if current == name {
		return nil
	}
	return p.patch(map[string]any{"HostName": name})
}

func (p *NetworkProtocol) SetNTPEnabled(enabled bool) error {
	return p.setProtocolEnabled("NTP", p.NTPEnabled, enabled)
}

func (p *NetworkProtocol) SetSSHEnabled(enabled bool) error {
	return p.setProtocolEnabled("SSH", p.SSHEnabled, enabled)
}

func (p *NetworkProtocol) SetIPMIEnabled(enabled bool) error {
	return p.setProtocolEnabled("IPMI", p.IPMIEnabled, enabled)
}

func (p *NetworkProtocol) setProtocolEnabled(protocol string, get func() (bool, error), enabled bool) error {
	current, err := get()
	if err != nil {
		return err
	}
	if current == enabled {
		return nil
	}
	return p.patch(map[string]any{protocol: map[string]any{"ProtocolEnabled": enabled}})
}

// SetNTPServers replaces the NTP server list.
func (p *NetworkProtocol) SetNTPServers(servers []string) error {
	current, err := p.NTPServers()
	if err != nil {
		return err
	}
	if slices.Equal(current, servers) {
		return nil
	}
	if servers == nil {
		servers = []string{}
	}
	return p.patch(map[string]any{"NTP": map[string]any{"NTPServers": servers}})
}

var virtualMedia = newRegistry("VirtualMedia", map[string]func(*Resource) *VirtualMedia{
	"#VirtualMedia.v1_3_0.VirtualMedia": func(r *Resource) *VirtualMedia { return &VirtualMedia{Resource: r} },
})

// VirtualMedia is one remote media slot.
type VirtualMedia struct {
	*Resource
}

// InsertMediaOptions are the InsertMedia action parameters.
type InsertMediaOptions struct {
	Image          string `json:"Image"`
	MediaType      string `json:"MediaType"`
	UserName       string `json:"UserName"`
	Password       string `json:"Password"`
	TransferMethod string `json:"TransferMethod"`
	WriteProtected bool   `json:"WriteProtected"`
	Inserted       bool   `json:"Inserted"`
}

// DefaultInsertMediaOptions returns the options OpenBMC expects for an image URI.
func DefaultInsertMediaOptions(image string) InsertMediaOptions {
	return InsertMediaOptions{
		Image:          image,
		MediaType:      "USBStick",
		TransferMethod: "Stream",
		WriteProtected: true,
		Inserted:       true,
	}
}

var insertMediaSchema = object(map[string]Schema{
	"Image":          required(str()),
	"MediaType":      required(str()),
	"UserName":       str(),
	"Password":       str(),
	"TransferMethod": required(str()),
	"WriteProtected": boolean(),
	"Inserted":       boolean(),
})

func (v *VirtualMedia) Inserted() (bool, error) {
	return v.boolField("Inserted")
}

func (v *VirtualMedia) Image() (string, error) {
	return v.stringField("Image")
}

// Insert attaches a remote image to the slot.
func (v *VirtualMedia) Insert(opts InsertMediaOptions) error {
	if opts.Image == "" {
		return typederrors.NewSchemaValidationError("insert media: image is required", nil)
	}
	if err := ValidateSchema(insertMediaSchema, opts); err != nil {
		return err
	}
	if _, err := v.action("VirtualMedia.InsertMedia", opts); err != nil {
		return err
	}
	return v.Reload()
}

// Eject detaches the current image.
func (v *VirtualMedia) Eject() error {
	if _, err := v.action("VirtualMedia.EjectMedia", map[string]any{}); err != nil {
		return err
	}
	return v.Reload()
}
