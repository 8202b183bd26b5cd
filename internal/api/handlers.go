package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/williamzujkowski/obmc-manager/internal/bmc"
	"github.com/williamzujkowski/obmc-manager/internal/modules"
	"github.com/williamzujkowski/obmc-manager/internal/redfish"
	"github.com/williamzujkowski/obmc-manager/internal/typederrors"
)

type contextKey string

const hostConfigKey contextKey = "hostConfig"

// Handlers holds API handler dependencies.
type Handlers struct {
	config  *Config
	mu      sync.RWMutex // guards config.Hosts
	clients sync.Map     // map[string]bmc.Client
	connect func(redfish.Config) (bmc.Client, error)
	probes  Probes
}

func newHandlers(cfg *Config) *Handlers {
	if cfg.Hosts == nil {
		cfg.Hosts = map[string]*HostConfig{}
	}
	connect := cfg.Connect
	if connect == nil {
		connect = bmc.Connect
	}
	return &Handlers{config: cfg, connect: connect, probes: cfg.Probes.withDefaults()}
}

// getClient returns or creates a device client for the given host.
func (h *Handlers) getClient(hostID string, hostCfg *HostConfig) (bmc.Client, error) {
	if cached, ok := h.clients.Load(hostID); ok {
		return cached.(bmc.Client), nil
	}

	client, err := h.connect(hostCfg.RedfishConfig(h.config.Transport))
	if err != nil {
		return nil, err
	}
	log.Info().Str("host", hostID).Str("profile", string(client.Profile())).Msg("connected to BMC")

	h.clients.Store(hostID, client)
	return client, nil
}

// hostCtx middleware extracts the host ID and validates it exists.
func (h *Handlers) hostCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hostID := chi.URLParam(r, "hostID")
		h.mu.RLock()
		hostCfg, ok := h.config.Hosts[hostID]
		h.mu.RUnlock()
		if !ok {
			writeError(w, http.StatusNotFound, "host not found: "+hostID)
			return
		}

		ctx := context.WithValue(r.Context(), hostConfigKey, hostCfg)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func hostFrom(r *http.Request) *HostConfig {
	return r.Context().Value(hostConfigKey).(*HostConfig)
}

// runner builds a module runner for the request's host, in check mode when
// ?check=true is given.
func (h *Handlers) runner(r *http.Request) (*modules.Runner, error) {
	client, err := h.getClient(chi.URLParam(r, "hostID"), hostFrom(r))
	if err != nil {
		return nil, err
	}
	return modules.NewRunner(client, h.config.Operations).WithCheckMode(queryBool(r, "check")), nil
}

// operate runs op against the request's host and writes its result.
func (h *Handlers) operate(w http.ResponseWriter, r *http.Request, op func(*modules.Runner) (modules.Result, error)) {
	runner, err := h.runner(r)
	if err != nil {
		h.fail(w, r, modules.Result{}, err)
		return
	}
	res, err := op(runner)
	if err != nil {
		h.fail(w, r, res, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// fail writes err with its mapped status. A lost connection drops the
// cached client so the next request reconnects.
func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, res modules.Result, err error) {
	hostID := chi.URLParam(r, "hostID")
	if typederrors.IsConnectionError(err) {
		h.clients.Delete(hostID)
	}
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Warn().Err(err).Str("host", hostID).Int("status", status).Msg("request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Changed: res.Changed})
}

// statusFor maps the error taxonomy onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case typederrors.IsSchemaValidationError(err):
		return http.StatusBadRequest
	case typederrors.IsNotFoundError(err):
		return http.StatusNotFound
	case errors.Is(err, modules.ErrPreconditionFailed):
		return http.StatusConflict
	case typederrors.IsUnsupportedSystemError(err), typederrors.IsModelVersionError(err):
		return http.StatusUnprocessableEntity
	case typederrors.IsRequestError(err):
		return http.StatusBadGateway
	case typederrors.IsConnectionError(err):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// decode reads an optional JSON body into a T.
func decode[T any](r *http.Request) (T, error) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil && !errors.Is(err, io.EOF) {
		return v, typederrors.NewSchemaValidationError("invalid request body", err)
	}
	return v, nil
}

// handle decodes the body into a T and passes it to op.
func handle[T any](h *Handlers, op func(r *http.Request, m *modules.Runner, p T) (modules.Result, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := decode[T](r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.operate(w, r, func(m *modules.Runner) (modules.Result, error) { return op(r, m, p) })
	}
}

func queryBool(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return v
}

// Health returns service health status.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "obmc-manager",
	})
}

// ListHosts returns all configured hosts (without credentials).
func (h *Handlers) ListHosts(w http.ResponseWriter, _ *http.Request) {
	type hostInfo struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Hostname string `json:"hostname"`
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := lo.Keys(h.config.Hosts)
	slices.Sort(ids)
	hosts := lo.Map(ids, func(id string, _ int) hostInfo {
		cfg := h.config.Hosts[id]
		return hostInfo{ID: id, Name: cfg.Name, Hostname: cfg.Hostname}
	})

	writeJSON(w, http.StatusOK, hosts)
}

// AddHost adds or replaces a host configuration at runtime.
func (h *Handlers) AddHost(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
		HostConfig
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validation.Validate(req.ID, validation.Required); err != nil {
		writeError(w, http.StatusBadRequest, "id: "+err.Error())
		return
	}
	if err := req.RedfishConfig(nil).Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	host := req.HostConfig
	h.mu.Lock()
	h.config.Hosts[req.ID] = &host
	h.mu.Unlock()
	h.clients.Delete(req.ID)

	writeJSON(w, http.StatusCreated, map[string]string{"status": "added", "id": req.ID})
}

// GetSystemInfo returns hardware inventory.
func (h *Handlers) GetSystemInfo(w http.ResponseWriter, r *http.Request) {
	h.operate(w, r, (*modules.Runner).SystemInfo)
}

// GetFirmwareInfo returns the running BMC and BIOS images.
func (h *Handlers) GetFirmwareInfo(w http.ResponseWriter, r *http.Request) {
	h.operate(w, r, (*modules.Runner).FirmwareInfo)
}

// GetBiosInfo returns the running BIOS image.
func (h *Handlers) GetBiosInfo(w http.ResponseWriter, r *http.Request) {
	h.operate(w, r, (*modules.Runner).BiosInfo)
}

// ResetBios restores BIOS defaults.
func (h *Handlers) ResetBios(w http.ResponseWriter, r *http.Request) {
	h.operate(w, r, (*modules.Runner).BiosResetToDefaults)
}

// SetPower changes the host power state.
func (h *Handlers) SetPower(w http.ResponseWriter, r *http.Request) {
	handle(h, func(_ *http.Request, m *modules.Runner, p modules.PowerParams) (modules.Result, error) {
		return m.PowerState(p)
	})(w, r)
}

// SetBoot sets the boot source override.
func (h *Handlers) SetBoot(w http.ResponseWriter, r *http.Request) {
	handle(h, func(_ *http.Request, m *modules.Runner, p modules.BootParams) (modules.Result, error) {
		return m.BootSettings(p)
	})(w, r)
}

// PutAccount creates or updates a local account.
func (h *Handlers) PutAccount(w http.ResponseWriter, r *http.Request) {
	handle(h, func(r *http.Request, m *modules.Runner, p modules.AccountParams) (modules.Result, error) {
		p.Username = chi.URLParam(r, "username")
		p.State = modules.StatePresent
		return m.Account(p)
	})(w, r)
}

// DeleteAccount removes a local account.
func (h *Handlers) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	h.operate(w, r, func(m *modules.Runner) (modules.Result, error) {
		return m.Account(modules.AccountParams{Username: chi.URLParam(r, "username"), State: modules.StateAbsent})
	})
}

// PutNetworkInterface configures addressing of a BMC interface.
func (h *Handlers) PutNetworkInterface(w http.ResponseWriter, r *http.Request) {
	handle(h, func(r *http.Request, m *modules.Runner, p modules.NetworkInterfaceParams) (modules.Result, error) {
		p.Name = chi.URLParam(r, "iface")
		return m.NetworkInterface(p)
	})(w, r)
}

// PutHostname sets the BMC host name.
func (h *Handlers) PutHostname(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Hostname string `json:"hostname"`
	}
	handle(h, func(_ *http.Request, m *modules.Runner, p request) (modules.Result, error) {
		return m.Hostname(p.Hostname)
	})(w, r)
}

// PutTime configures NTP.
func (h *Handlers) PutTime(w http.ResponseWriter, r *http.Request) {
	handle(h, func(_ *http.Request, m *modules.Runner, p modules.TimeParams) (modules.Result, error) {
		return m.Time(p)
	})(w, r)
}

// PutSecurity toggles SSH and IPMI. With ?probe=true the protocols are
// contacted afterwards and the outcome is reported in data.probe.
func (h *Handlers) PutSecurity(w http.ResponseWriter, r *http.Request) {
	handle(h, func(r *http.Request, m *modules.Runner, p modules.SecurityParams) (modules.Result, error) {
		res, err := m.SecurityConfig(p)
		if err != nil || m.CheckMode() || !queryBool(r, "probe") {
			return res, err
		}
		if res.Data == nil {
			res.Data = map[string]any{}
		}
		res.Data["probe"] = h.probeSecurity(r.Context(), hostFrom(r), p)
		return res, nil
	})(w, r)
}

// PutLDAP configures an LDAP or Active Directory provider.
func (h *Handlers) PutLDAP(w http.ResponseWriter, r *http.Request) {
	handle(h, func(_ *http.Request, m *modules.Runner, p modules.LDAPParams) (modules.Result, error) {
		return m.LDAPConfig(p)
	})(w, r)
}

// PutCertificate installs or replaces a certificate.
func (h *Handlers) PutCertificate(w http.ResponseWriter, r *http.Request) {
	handle(h, func(r *http.Request, m *modules.Runner, p modules.SSLParams) (modules.Result, error) {
		p.Type = chi.URLParam(r, "type")
		p.State = modules.StatePresent
		return m.SSLConfig(p)
	})(w, r)
}

// DeleteCertificate removes the CA certificate.
func (h *Handlers) DeleteCertificate(w http.ResponseWriter, r *http.Request) {
	h.operate(w, r, func(m *modules.Runner) (modules.Result, error) {
		return m.SSLConfig(modules.SSLParams{Type: chi.URLParam(r, "type"), State: modules.StateAbsent})
	})
}

// GenerateCSR requests a certificate signing request.
func (h *Handlers) GenerateCSR(w http.ResponseWriter, r *http.Request) {
	handle(h, func(_ *http.Request, m *modules.Runner, p modules.CSRParams) (modules.Result, error) {
		return m.GenerateCSR(p)
	})(w, r)
}

// CreateSession opens a Redfish session with the given credentials.
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	handle(h, func(_ *http.Request, m *modules.Runner, p request) (modules.Result, error) {
		return m.Session(modules.SessionParams{Username: p.Username, Password: p.Password})
	})(w, r)
}

// DeleteSession closes a Redfish session.
func (h *Handlers) DeleteSession(w http.ResponseWriter, r *http.Request) {
	h.operate(w, r, func(m *modules.Runner) (modules.Result, error) {
		return m.Session(modules.SessionParams{ID: chi.URLParam(r, "sessionID"), State: modules.StateAbsent})
	})
}

// UpdateFirmware uploads an image and waits for it to activate. Timeouts
// are in seconds.
func (h *Handlers) UpdateFirmware(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Image           string `json:"image_path"`
		ValidateCerts   *bool  `json:"validate_certs"`
		UploadTimeout   int    `json:"upload_timeout"`
		ActivateTimeout int    `json:"activate_timeout"`
	}
	handle(h, func(r *http.Request, m *modules.Runner, p request) (modules.Result, error) {
		return m.FirmwareUpdate(r.Context(), modules.FirmwareParams{
			Image:           p.Image,
			ValidateCerts:   p.ValidateCerts,
			UploadTimeout:   time.Duration(p.UploadTimeout) * time.Second,
			ActivateTimeout: time.Duration(p.ActivateTimeout) * time.Second,
		})
	})(w, r)
}

// RestartBMC reboots the BMC.
func (h *Handlers) RestartBMC(w http.ResponseWriter, r *http.Request) {
	type request struct {
		Force bool `json:"force"`
	}
	handle(h, func(_ *http.Request, m *modules.Runner, p request) (modules.Result, error) {
		return m.BMCRestart(p.Force)
	})(w, r)
}

// ResetBMCToDefaults restores BMC factory settings.
func (h *Handlers) ResetBMCToDefaults(w http.ResponseWriter, r *http.Request) {
	type request struct {
		ResetType string `json:"reset_type"`
	}
	handle(h, func(_ *http.Request, m *modules.Runner, p request) (modules.Result, error) {
		if p.ResetType == "" {
			p.ResetType = "all"
		}
		return m.BMCResetToDefaults(p.ResetType)
	})(w, r)
}

// InsertVirtualMedia attaches a remote image to a media slot.
func (h *Handlers) InsertVirtualMedia(w http.ResponseWriter, r *http.Request) {
	handle(h, func(r *http.Request, m *modules.Runner, p modules.VirtualMediaParams) (modules.Result, error) {
		p.Slot = chi.URLParam(r, "slot")
		p.State = modules.StatePresent
		return m.VirtualMedia(p)
	})(w, r)
}

// EjectVirtualMedia detaches the image from a media slot.
func (h *Handlers) EjectVirtualMedia(w http.ResponseWriter, r *http.Request) {
	handle(h, func(r *http.Request, m *modules.Runner, p modules.VirtualMediaParams) (modules.Result, error) {
		p.Slot = chi.URLParam(r, "slot")
		p.State = modules.StateAbsent
		return m.VirtualMedia(p)
	})(w, r)
}

// DeployOS boots the host from a remote installation image.
func (h *Handlers) DeployOS(w http.ResponseWriter, r *http.Request) {
	handle(h, func(_ *http.Request, m *modules.Runner, p modules.VirtualMediaParams) (modules.Result, error) {
		return m.OSDeploy(p)
	})(w, r)
}

// GetIPMI returns the chassis power state read over IPMI.
func (h *Handlers) GetIPMI(w http.ResponseWriter, r *http.Request) {
	status, err := h.probes.IPMI(r.Context(), hostFrom(r))
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, status)
}

type errorResponse struct {
	Error   string `json:"error"`
	Changed bool   `json:"changed,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
