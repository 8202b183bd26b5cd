package api

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/williamzujkowski/obmc-manager/internal/ipmi"
	"github.com/williamzujkowski/obmc-manager/internal/metrics"
	"github.com/williamzujkowski/obmc-manager/internal/modules"
	"github.com/williamzujkowski/obmc-manager/internal/redfish"
	"github.com/williamzujkowski/obmc-manager/internal/ssh"
)

// Probes reach a host over protocols other than Redfish.
type Probes struct {
	IPMI func(ctx context.Context, host *HostConfig) (*ipmi.ChassisStatus, error)
	SSH  func(ctx context.Context, host *HostConfig) (string, error)
}

func (p Probes) withDefaults() Probes {
	if p.IPMI == nil {
		p.IPMI = func(ctx context.Context, host *HostConfig) (*ipmi.ChassisStatus, error) {
			return ipmi.NewClient(host.Address(), host.IPMIPort, host.Username, host.Password).ChassisStatus(ctx)
		}
	}
	if p.SSH == nil {
		p.SSH = func(ctx context.Context, host *HostConfig) (string, error) {
			return ssh.NewProbe(host.Address(), host.SSHPort, host.Username, host.Password).Login(ctx)
		}
	}
	return p
}

// probeResult compares a protocol's configured state with what the host
// actually answers.
type probeResult struct {
	Expected  bool   `json:"expected"`
	Reachable bool   `json:"reachable"`
	Detail    string `json:"detail,omitempty"`
}

func (h *Handlers) probeSecurity(ctx context.Context, host *HostConfig, p modules.SecurityParams) map[string]probeResult {
	out := map[string]probeResult{}
	if p.SSHEnabled != nil {
		version, err := h.probes.SSH(ctx, host)
		out["ssh"] = newProbeResult(*p.SSHEnabled, version, err)
	}
	if p.IPMIEnabled != nil {
		_, err := h.probes.IPMI(ctx, host)
		out["ipmi"] = newProbeResult(*p.IPMIEnabled, "", err)
	}
	return out
}

func newProbeResult(expected bool, detail string, err error) probeResult {
	if err != nil {
		return probeResult{Expected: expected, Detail: err.Error()}
	}
	return probeResult{Expected: expected, Reachable: true, Detail: detail}
}

// RedfishConfig returns the connection settings for the host.
func (c *HostConfig) RedfishConfig(m *metrics.Transport) redfish.Config {
	return redfish.Config{
		Hostname:           c.Hostname,
		Port:               c.Port,
		Prefix:             c.BasePrefix,
		Username:           c.Username,
		Password:           c.Password,
		SessionKey:         c.SessionKey,
		Timeout:            time.Duration(c.Timeout) * time.Second,
		Metrics:            m,
		InsecureSkipVerify: !lo.FromPtrOr(c.ValidateCerts, true),
	}
}

// Address is the bare host name, without the scheme or port Hostname may carry.
func (c *HostConfig) Address() string {
	raw := c.Hostname
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return c.Hostname
	}
	return u.Hostname()
}
