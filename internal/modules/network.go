package modules

import (
	"errors"
	"net/netip"
	"slices"

	mapset "github.com/deckarep/golang-set/v2"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/williamzujkowski/obmc-manager/internal/redfish"
	"github.com/williamzujkowski/obmc-manager/internal/typederrors"
)

const maxNTPServers = 3

// NetworkInterfaceParams configures one BMC interface. Nil fields are left
// alone; an empty, non-nil slice clears the list.
type NetworkInterfaceParams struct {
	Name              string                `json:"name"`
	DHCPEnabled       *bool                 `json:"dhcp_enabled,omitempty"`
	IPv4Addresses     []redfish.IPv4Address `json:"ipv4_addresses,omitempty"`
	StaticNameServers []string              `json:"static_nameservers,omitempty"`
}

var ipv4Rule = validation.By(func(v any) error {
	s, _ := v.(string)
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is4() {
		return errors.New("must be an IPv4 address")
	}
	return nil
})

func (p NetworkInterfaceParams) Validate() error {
	if p.DHCPEnabled != nil && *p.DHCPEnabled && len(p.IPv4Addresses) > 0 {
		return errors.New("conflict between static configuration and DHCP")
	}
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.IPv4Addresses,
			validation.Length(0, 1).Error("only one IP address supported"),
			validation.Each(validation.By(func(v any) error {
				a, _ := v.(redfish.IPv4Address)
				return validation.ValidateStruct(&a,
					validation.Field(&a.Address, validation.Required, ipv4Rule),
					validation.Field(&a.Gateway, validation.Required, ipv4Rule),
					validation.Field(&a.SubnetMask, validation.Required, ipv4Rule),
				)
			})),
		),
		validation.Field(&p.StaticNameServers, validation.Each(validation.Required)),
	)
}

// NetworkInterface configures addressing of a BMC interface. DHCP and a
// static address are mutually exclusive and at most one static address is
// accepted.
func (r *Runner) NetworkInterface(p NetworkInterfaceParams) (Result, error) {
	return r.run("network_interface", func() (Result, error) {
		if err := invalid(p.Validate()); err != nil {
			return Result{}, err
		}
		manager, err := r.client.Manager()
		if err != nil {
			return Result{}, err
		}
		iface, err := manager.EthernetInterface(p.Name)
		if err != nil {
			return Result{}, err
		}
		if iface == nil {
			return Result{}, typederrors.NewNotFoundError(manager.Path() + "/EthernetInterfaces/" + p.Name)
		}

		var changes []change
		if p.DHCPEnabled != nil {
			dhcp, err := iface.DHCPv4Enabled()
			if err != nil {
				return Result{}, err
			}
			if dhcp != *p.DHCPEnabled {
				changes = append(changes, func() error { return iface.SetDHCPv4Enabled(*p.DHCPEnabled) })
			}
		}
		if p.IPv4Addresses != nil {
			current, err := iface.IPv4StaticAddresses()
			if err != nil {
				return Result{}, err
			}
			if !sameSet(current, p.IPv4Addresses) {
				changes = append(changes, func() error { return iface.SetIPv4StaticAddresses(p.IPv4Addresses) })
			}
		}
		if p.StaticNameServers != nil {
			current, err := iface.StaticNameServers()
			if err != nil {
				return Result{}, err
			}
			if !sameSet(current, p.StaticNameServers) {
				changes = append(changes, func() error { return iface.SetStaticNameServers(p.StaticNameServers) })
			}
		}
		return r.apply("Interface configuration updated.", changes...)
	})
}

// sameSet compares two lists ignoring order.
func sameSet[T comparable](a, b []T) bool {
	return len(a) == len(b) && mapset.NewSet(a...).Equal(mapset.NewSet(b...))
}

// Hostname sets the BMC host name.
func (r *Runner) Hostname(name string) (Result, error) {
	return r.run("hostname", func() (Result, error) {
		if err := invalid(validation.Validate(name, validation.Required)); err != nil {
			return Result{}, err
		}
		protocol, err := r.networkProtocol()
		if err != nil {
			return Result{}, err
		}
		current, err := protocol.HostName()
		if err != nil {
			return Result{}, err
		}
		if current == name {
			return r.apply(msgUnchanged)
		}
		return r.apply(msgChanged, func() error { return protocol.SetHostName(name) })
	})
}

// TimeParams configures NTP. Nil fields are left alone.
type TimeParams struct {
	NTPEnabled *bool    `json:"ntp_enabled,omitempty"`
	NTPServers []string `json:"ntp_servers,omitempty"`
}

func (p TimeParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.NTPServers,
			validation.Length(0, maxNTPServers).Error("supported no more than 3 NTP servers"),
			validation.Each(validation.Required)),
	)
}

// Time configures NTP synchronisation.
func (r *Runner) Time(p TimeParams) (Result, error) {
	return r.run("time", func() (Result, error) {
		if err := invalid(p.Validate()); err != nil {
			return Result{}, err
		}
		protocol, err := r.networkProtocol()
		if err != nil {
			return Result{}, err
		}

		var changes []change
		if p.NTPEnabled != nil {
			enabled, err := protocol.NTPEnabled()
			if err != nil {
				return Result{}, err
			}
			if enabled != *p.NTPEnabled {
				changes = append(changes, func() error { return protocol.SetNTPEnabled(*p.NTPEnabled) })
			}
		}
		if p.NTPServers != nil {
			servers, err := protocol.NTPServers()
			if err != nil {
				return Result{}, err
			}
			if !slices.Equal(servers, p.NTPServers) {
				changes = append(changes, func() error { return protocol.SetNTPServers(p.NTPServers) })
			}
		}
		return r.apply(msgChanged, changes...)
	})
}

// SecurityParams toggles remote access protocols. Nil fields are left alone.
type SecurityParams struct {
	SSHEnabled  *bool `json:"ssh_enabled,omitempty"`
	IPMIEnabled *bool `json:"ipmi_enabled,omitempty"`
}

// SecurityConfig enables or disables SSH and IPMI over LAN.
func (r *Runner) SecurityConfig(p SecurityParams) (Result, error) {
	return r.run("security_config", func() (Result, error) {
		protocol, err := r.networkProtocol()
		if err != nil {
			return Result{}, err
		}

		var changes []change
		if p.SSHEnabled != nil {
			ssh, err := protocol.SSHEnabled()
			if err != nil {
				return Result{}, err
			}
			if ssh != *p.SSHEnabled {
				changes = append(changes, func() error { return protocol.SetSSHEnabled(*p.SSHEnabled) })
			}
		}
		if p.IPMIEnabled != nil {
			ipmi, err := protocol.IPMIEnabled()
			if err != nil {
				return Result{}, err
			}
			if ipmi != *p.IPMIEnabled {
				changes = append(changes, func() error { return protocol.SetIPMIEnabled(*p.IPMIEnabled) })
			}
		}
		return r.apply(msgChanged, changes...)
	})
}

func (r *Runner) networkProtocol() (*redfish.NetworkProtocol, error) {
	manager, err := r.client.Manager()
	if err != nil {
		return nil, err
	}
	return manager.NetworkProtocol()
}
