package redfish

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/williamzujkowski/obmc-manager/internal/metrics"
	"github.com/williamzujkowski/obmc-manager/internal/rest"
	"github.com/williamzujkowski/obmc-manager/internal/transport"
	"github.com/williamzujkowski/obmc-manager/internal/typederrors"
)

// DefaultPrefix is the Redfish service root.
const DefaultPrefix = "/redfish/v1"

// Config holds connection settings for one BMC. Username/Password and
// SessionKey are mutually exclusive; with neither set requests are unauthenticated.
type Config struct {
	Hostname   string
	Port       int
	Prefix     string
	Username   string
	Password   string
	SessionKey string
	Timeout    time.Duration
	Metrics    *metrics.Transport

	// InsecureSkipVerify turns off TLS certificate checks, which are on by default.
	InsecureSkipVerify bool
}

// Validate checks that the configuration can be used to connect.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.Hostname, validation.Required),
		validation.Field(&c.Port, validation.Min(0), validation.Max(65535)),
		validation.Field(&c.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&c.Password,
			validation.When(c.Username != "", validation.Required),
		),
		validation.Field(&c.SessionKey,
			validation.When(c.Username != "" || c.Password != "",
				validation.Empty.Error("cannot be combined with username and password")),
		),
	)
	if err != nil {
		return typederrors.NewSchemaValidationError("invalid connection settings", err)
	}
	return nil
}

func (c Config) auth() transport.Auth {
	switch {
	case c.SessionKey != "":
		return transport.SessionAuth{Token: c.SessionKey}
	case c.Username != "":
		return transport.BasicAuth{Username: c.Username, Password: c.Password}
	default:
		return transport.NoAuth{}
	}
}

// API is the entry point to the resource model of one BMC.
type API struct {
	client *rest.Client
	prefix string
}

// NewAPI validates cfg and builds the shared REST client. No request is sent.
func NewAPI(cfg Config) (*API, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	t := transport.New(transport.Config{
		Hostname:           cfg.Hostname,
		Port:               cfg.Port,
		Auth:               cfg.auth(),
		Timeout:            cfg.Timeout,
		Metrics:            cfg.Metrics,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	})
	return NewAPIWithClient(rest.NewClient(t), prefix), nil
}

// NewAPIWithClient wraps an existing REST client.
func NewAPIWithClient(client *rest.Client, prefix string) *API {
	return &API{client: client, prefix: "/" + strings.Trim(prefix, "/")}
}

func (a *API) Client() *rest.Client {
	return a.client
}

func (a *API) Prefix() string {
	return a.prefix
}

func (a *API) path(sub string) string {
	return a.prefix + "/" + sub
}

var createSessionSchema = object(map[string]Schema{
	"UserName": required(str()),
	"Password": required(str()),
})

// CreateSession logs in and returns the new session with its token.
func (a *API) CreateSession(username, password string) (*Session, error) {
	body := map[string]any{"UserName": username, "Password": password}
	if err := ValidateSchema(createSessionSchema, body); err != nil {
		return nil, err
	}
	resp, err := a.client.Post(a.path("SessionService/Sessions"), body)
	if err != nil {
		return nil, fmt.Errorf("creating session for %s: %w", username, err)
	}
	s, err := sessions.load(a.client, resp.Body())
	if err != nil {
		return nil, err
	}
	s.token = resp.Header().Get("X-Auth-Token")
	return s, nil
}

func (a *API) SessionService() (*SessionService, error) {
	return sessionServices.get(a.client, a.path("SessionService"))
}

func (a *API) AccountService() (AccountService, error) {
	return accountServices.get(a.client, a.path("AccountService"))
}

func (a *API) UpdateService() (*UpdateService, error) {
	return updateServices.get(a.client, a.path("UpdateService"))
}

func (a *API) CertificateService() (CertificateService, error) {
	return certificateServices.get(a.client, a.path("CertificateService"))
}

func (a *API) Systems() ([]*System, error) {
	return systems.collection(a.client, a.path("Systems"))
}

// System returns nil when no system has the given id.
func (a *API) System(id string) (*System, error) {
	return systems.lookup(a.client, a.path("Systems/"+id))
}

func (a *API) Managers() ([]*Manager, error) {
	return managers.collection(a.client, a.path("Managers"))
}

// Manager returns nil when no manager has the given id.
func (a *API) Manager(id string) (*Manager, error) {
	return managers.lookup(a.client, a.path("Managers/"+id))
}

func (a *API) ChassisCollection() ([]*Chassis, error) {
	return chassisFamily.collection(a.client, a.path("Chassis"))
}

// Chassis returns nil when no chassis has the given id.
func (a *API) Chassis(id string) (*Chassis, error) {
	return chassisFamily.lookup(a.client, a.path("Chassis/"+id))
}
