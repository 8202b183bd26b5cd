package redfish

// ComputerSystem.Reset types.
const (
	ResetOn               = "On"
	ResetForceOn          = "ForceOn"
	ResetGracefulShutdown = "GracefulShutdown"
	ResetForceOff         = "ForceOff"
	ResetPowerCycle       = "PowerCycle"
)

// Power states reported by systems and chassis.
const (
	PowerStateOn  = "On"
	PowerStateOff = "Off"
)

var systems = newRegistry("ComputerSystem", map[string]func(*Resource) *System{
	"#ComputerSystem.v1_13_0.ComputerSystem": func(r *Resource) *System { return &System{Resource: r} },
})

// System is the host managed by the BMC.
type System struct {
	*Resource
}

func (s *System) Model() (string, error) {
	return s.stringField("Model")
}

func (s *System) Manufacturer() (string, error) {
	return s.stringField("Manufacturer")
}

func (s *System) PartNumber() (string, error) {
	return s.stringField("PartNumber")
}

func (s *System) SerialNumber() (string, error) {
	return s.stringField("SerialNumber")
}

func (s *System) Status() (Status, error) {
	return s.status()
}

func (s *System) PowerState() (string, error) {
	return s.stringField("PowerState")
}

// BootOverride is the boot source override block of a system.
type BootOverride struct {
	Enabled string `json:"BootSourceOverrideEnabled,omitempty"`
	Mode    string `json:"BootSourceOverrideMode,omitempty"`
	Target  string `json:"BootSourceOverrideTarget,omitempty"`
}

func (s *System) BootSourceOverride() (BootOverride, error) {
	var b BootOverride
	err := s.decodeField(&b, "Boot")
	return b, err
}

// SetBootSourceOverride sends only the non-empty fields of cfg that differ
// from the current settings.
func (s *System) SetBootSourceOverride(cfg BootOverride) error {
	current, err := s.BootSourceOverride()
	if err != nil {
		return err
	}

	body := map[string]any{}
	if cfg.Enabled != "" && cfg.Enabled != current.Enabled {
		body["BootSourceOverrideEnabled"] = cfg.Enabled
	}
	if cfg.Mode != "" && cfg.Mode != current.Mode {
		body["BootSourceOverrideMode"] = cfg.Mode
	}
	if cfg.Target != "" && cfg.Target != current.Target {
		body["BootSourceOverrideTarget"] = cfg.Target
	}
	if len(body) == 0 {
		return nil
	}
	return s.patch(map[string]any{"Boot": body})
}

func (s *System) Bios() (*Bios, error) {
	return bioses.get(s.client, s.child("Bios"))
}

func (s *System) Processors() ([]*Processor, error) {
	return processors.collection(s.client, s.child("Processors"))
}

func (s *System) Memory() ([]*Memory, error) {
	return memory.collection(s.client, s.child("Memory"))
}

func (s *System) PCIeDevices() ([]*PCIeDevice, error) {
	return pcieDevices.collection(s.client, s.child("PCIeDevices"))
}

func (s *System) PowerOnGraceful() error    { return s.reset(ResetOn) }
func (s *System) PowerOnForce() error       { return s.reset(ResetForceOn) }
func (s *System) PowerOffGraceful() error   { return s.reset(ResetGracefulShutdown) }
func (s *System) PowerOffForce() error      { return s.reset(ResetForceOff) }
func (s *System) PowerResetGraceful() error { return s.reset(ResetGracefulRestart) }
func (s *System) PowerResetForce() error    { return s.reset(ResetPowerCycle) }

func (s *System) reset(resetType string) error {
	if _, err := s.action("ComputerSystem.Reset", map[string]any{"ResetType": resetType}); err != nil {
		return err
	}
	return s.Reload()
}

var bioses = newRegistry("Bios", map[string]func(*Resource) *Bios{
	"#Bios.v1_1_0.Bios": func(r *Resource) *Bios { return &Bios{Resource: r} },
})

// Bios exposes host firmware settings.
type Bios struct {
	*Resource
}

func (b *Bios) Attributes() (map[string]any, error) {
	return b.object("Attributes")
}

// ActiveSoftwareImage returns the inventory id of the running host firmware.
func (b *Bios) ActiveSoftwareImage() (string, error) {
	link, err := b.linkPath("Links", "ActiveSoftwareImage")
	if err != nil {
		return "", err
	}
	return lastSegment(link), nil
}

// ResetToDefaults schedules a BIOS settings reset.
func (b *Bios) ResetToDefaults() error {
	_, err := b.action("Bios.ResetBios", nil)
	return err
}

var processors = newRegistry("Processor", map[string]func(*Resource) *Processor{
	"#Processor.v1_9_0.Processor": func(r *Resource) *Processor { return &Processor{Resource: r} },
})

type Processor struct {
	*Resource
}

func (p *Processor) Model() (string, error)     { return p.stringField("Model") }
func (p *Processor) TotalCores() (int, error)   { return p.intField("TotalCores") }
func (p *Processor) TotalThreads() (int, error) { return p.intField("TotalThreads") }
func (p *Processor) Status() (Status, error)    { return p.status() }

var memory = newRegistry("Memory", map[string]func(*Resource) *Memory{
	"#Memory.v1_7_0.Memory": func(r *Resource) *Memory { return &Memory{Resource: r} },
})

type Memory struct {
	*Resource
}

func (m *Memory) CapacityMiB() (int, error)         { return m.intField("CapacityMiB") }
func (m *Memory) MemoryDeviceType() (string, error) { return m.stringField("MemoryDeviceType") }
func (m *Memory) Status() (Status, error)           { return m.status() }

var pcieDevices = newRegistry("PCIeDevice", map[string]func(*Resource) *PCIeDevice{
	"#PCIeDevice.v1_4_0.PCIeDevice": func(r *Resource) *PCIeDevice { return &PCIeDevice{Resource: r} },
})

type PCIeDevice struct {
	*Resource
}

func (d *PCIeDevice) Manufacturer() (string, error) { return d.stringField("Manufacturer") }
func (d *PCIeDevice) Model() (string, error)        { return d.stringField("Model") }
func (d *PCIeDevice) DeviceType() (string, error)   { return d.stringField("DeviceType") }
