// Package api provides the HTTP API for the OpenBMC manager.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/williamzujkowski/obmc-manager/internal/bmc"
	"github.com/williamzujkowski/obmc-manager/internal/metrics"
	"github.com/williamzujkowski/obmc-manager/internal/redfish"
)

// Config holds API server configuration.
type Config struct {
	// Hosts maps host IDs to their BMC configurations.
	Hosts map[string]*HostConfig
	// APIKey is the optional API key for authentication.
	APIKey string
	// Operations and Transport receive per-request metrics. Both may be nil.
	Operations *metrics.Operations
	Transport  *metrics.Transport
	// Gatherer is served on /metrics when set.
	Gatherer prometheus.Gatherer
	// Connect opens a device client. Defaults to bmc.Connect.
	Connect func(redfish.Config) (bmc.Client, error)
	// Probes reach hosts over IPMI and SSH. Nil fields use the real protocols.
	Probes Probes
}

// HostConfig holds configuration for a single BMC.
type HostConfig struct {
	Name          string `json:"name" mapstructure:"name"`
	Hostname      string `json:"hostname" mapstructure:"hostname"`
	Port          int    `json:"port,omitempty" mapstructure:"port"`
	Username      string `json:"username,omitempty" mapstructure:"username"`
	Password      string `json:"password,omitempty" mapstructure:"password"`
	SessionKey    string `json:"sessionKey,omitempty" mapstructure:"session_key"`
	ValidateCerts *bool  `json:"validateCerts,omitempty" mapstructure:"validate_certs"` // nil means true
	Timeout       int    `json:"timeout,omitempty" mapstructure:"timeout"`              // seconds
	BasePrefix    string `json:"basePrefix,omitempty" mapstructure:"base_prefix"`
	SSHPort       int    `json:"sshPort,omitempty" mapstructure:"ssh_port"`
	IPMIPort      int    `json:"ipmiPort,omitempty" mapstructure:"ipmi_port"`
}

// NewRouter creates the HTTP router with all API routes.
func NewRouter(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(corsMiddleware)

	h := newHandlers(cfg)

	r.Route("/api", func(r chi.Router) {
		if cfg.APIKey != "" {
			r.Use(apiKeyAuth(cfg.APIKey))
		}

		r.Get("/health", h.Health)

		r.Get("/hosts", h.ListHosts)
		r.Post("/hosts", h.AddHost)

		r.Route("/hosts/{hostID}", func(r chi.Router) {
			r.Use(h.hostCtx)

			r.Get("/info", h.GetSystemInfo)
			r.Get("/firmware", h.GetFirmwareInfo)
			r.Post("/firmware", h.UpdateFirmware)
			r.Get("/bios", h.GetBiosInfo)
			r.Post("/bios/reset", h.ResetBios)

			r.Put("/power", h.SetPower)
			r.Put("/boot", h.SetBoot)

			r.Put("/accounts/{username}", h.PutAccount)
			r.Delete("/accounts/{username}", h.DeleteAccount)

			r.Put("/network/{iface}", h.PutNetworkInterface)
			r.Put("/hostname", h.PutHostname)
			r.Put("/time", h.PutTime)
			r.Put("/security", h.PutSecurity)
			r.Put("/ldap", h.PutLDAP)

			r.Put("/certificates/{type}", h.PutCertificate)
			r.Delete("/certificates/{type}", h.DeleteCertificate)
			r.Post("/csr", h.GenerateCSR)

			r.Post("/sessions", h.CreateSession)
			r.Delete("/sessions/{sessionID}", h.DeleteSession)

			r.Post("/bmc/restart", h.RestartBMC)
			r.Post("/bmc/reset-to-defaults", h.ResetBMCToDefaults)

			r.Put("/virtualmedia/{slot}", h.InsertVirtualMedia)
			r.Delete("/virtualmedia/{slot}", h.EjectVirtualMedia)
			r.Post("/os-deploy", h.DeployOS)

			r.Get("/ipmi", h.GetIPMI)
		})
	})

	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	return r
}
