package redfish

import (
	"slices"

	"github.com/samber/lo"
)

// IPv4Address is a static IPv4 configuration entry.
type IPv4Address struct {
	Address    string `json:"Address"`
	Gateway    string `json:"Gateway"`
	SubnetMask string `json:"SubnetMask"`
}

// EthernetInterface is one BMC network interface.
type EthernetInterface interface {
	Path() string
	ID() (string, error)
	Reload() error
	DHCPv4Enabled() (bool, error)
	StaticNameServers() ([]string, error)
	// IPv4StaticAddresses omits the server-reported AddressOrigin.
	IPv4StaticAddresses() ([]IPv4Address, error)
	AddressingMode() (string, error)
	SetDHCPv4Enabled(enabled bool) error
	SetIPv4StaticAddresses(addresses []IPv4Address) error
	SetStaticNameServers(servers []string) error
}

var ethernetInterfaces = newRegistry("EthernetInterface", map[string]func(*Resource) EthernetInterface{
	"#EthernetInterface.v1_4_1.EthernetInterface": func(r *Resource) EthernetInterface {
		return &ethernetInterface{Resource: r}
	},
	"#EthernetInterface.v1_4_1.EthernetInterface.Mockup": func(r *Resource) EthernetInterface {
		return &mockupEthernetInterface{ethernetInterface: &ethernetInterface{Resource: r}}
	},
})

var ipv4AddressesSchema = arrayOf(object(map[string]Schema{
	"Address":    required(str()),
	"Gateway":    required(str()),
	"SubnetMask": required(str()),
}))

type ethernetInterface struct {
	*Resource
}

func (e *ethernetInterface) DHCPv4Enabled() (bool, error) {
	return e.boolField("DHCPv4", "DHCPEnabled")
}

func (e *ethernetInterface) StaticNameServers() ([]string, error) {
	return e.stringsField("StaticNameServers")
}

func (e *ethernetInterface) IPv4StaticAddresses() ([]IPv4Address, error) {
	var raw []*IPv4Address
	if err := e.decodeField(&raw, "IPv4StaticAddresses"); err != nil {
		return nil, err
	}
	return lo.FilterMap(raw, func(a *IPv4Address, _ int) (IPv4Address, bool) {
		if a == nil {
			return IPv4Address{}, false
		}
		return *a, true
	}), nil
}

func (e *ethernetInterface) AddressingMode() (string, error) {
	dhcp, err := e.DHCPv4Enabled()
	if err != nil {
		return "", err
	}
	if dhcp {
		return "DHCP", nil
	}
	return "Static", nil
}

func (e *ethernetInterface) SetDHCPv4Enabled(enabled bool) error {
	current, err := e.DHCPv4Enabled()
	if err != nil {
		return err
	}
	if current == enabled {
		return nil
	}
	return e.patch(map[string]any{"DHCPv4": map[string]any{"DHCPEnabled": enabled}})
}

func (e *ethernetInterface) SetIPv4StaticAddresses(addresses []IPv4Address) error {
	if addresses == nil {
		addresses = []IPv4Address{}
	}
	if err := ValidateSchema(ipv4AddressesSchema, addresses); err != nil {
		return err
	}
	for _, a := range addresses {
		if a.Address == "" {
			return newInvalidValue("IPv4 address must not be empty")
		}
	}

	current, err := e.IPv4StaticAddresses()
	if err != nil {
		return err
	}
	if slices.Equal(current, addresses) {
		return nil
	}
	return e.patch(map[string]any{"IPv4StaticAddresses": addresses})
}

func (e *ethernetInterface) SetStaticNameServers(servers []string) error {
	if servers == nil {
		servers = []string{}
	}
	current, err := e.StaticNameServers()
	if err != nil {
		return err
	}
	if slices.Equal(current, servers) {
		return nil
	}
	return e.patch(map[string]any{"StaticNameServers": servers})
}

// mockupEthernetInterface keeps DHCP and static addressing mutually
// exclusive, which the mockup server does not do on its own.
type mockupEthernetInterface struct {
	*ethernetInterface
}

func (e *mockupEthernetInterface) SetDHCPv4Enabled(enabled bool) error {
	if err := e.ethernetInterface.SetDHCPv4Enabled(enabled); err != nil {
		return err
	}
	if enabled {
		return e.ethernetInterface.SetIPv4StaticAddresses(nil)
	}
	return nil
}

func (e *mockupEthernetInterface) SetIPv4StaticAddresses(addresses []IPv4Address) error {
	if err := e.ethernetInterface.SetIPv4StaticAddresses(addresses); err != nil {
		return err
	}
	if len(addresses) > 0 {
		return e.ethernetInterface.SetDHCPv4Enabled(false)
	}
	return nil
}
