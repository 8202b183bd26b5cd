// Package transport performs single Redfish HTTP exchanges.
package transport

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"reflect"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/williamzujkowski/obmc-manager/internal/metrics"
	"github.com/williamzujkowski/obmc-manager/internal/typederrors"
)

const (
	DefaultPort    = 443
	DefaultTimeout = 30 * time.Second

	contentTypeJSON   = "application/json"
	contentTypeBinary = "application/octet-stream"
)

// Config describes one BMC endpoint.
type Config struct {
	// Hostname may carry an explicit scheme ("http://10.0.0.5"); https is used otherwise.
	Hostname string
	Port     int
	Auth     Auth
	Timeout  time.Duration
	Metrics  *metrics.Transport

	// InsecureSkipVerify turns off TLS certificate checks, which are on by default.
	InsecureSkipVerify bool
}

// Request is one HTTP exchange to perform.
type Request struct {
	Method string
	Path   string
	Query  map[string]string
	// Body is nil, a []byte sent as octet-stream, or a map, slice, array or
	// struct sent as JSON.
	Body   any
	Header map[string]string
}

// Transport issues requests against a single BMC endpoint. It never retries.
type Transport struct {
	baseURL string
	auth    Auth
	http    *resty.Client
	metrics *metrics.Transport
}

// New creates a Transport for the endpoint described by cfg.
func New(cfg Config) *Transport {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetDisableWarn(true).
		SetTLSClientConfig(&tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec // opt-in for BMCs with self-signed certs
		})

	return &Transport{
		baseURL: BaseURL(cfg.Hostname, cfg.Port),
		auth:    cfg.Auth,
		http:    client,
		metrics: cfg.Metrics,
	}
}

// BaseURL returns scheme://host:port for a hostname that may already carry a
// scheme. A port in the hostname takes precedence over port.
func BaseURL(hostname string, port int) string {
	scheme := "https"
	host := hostname
	if i := strings.Index(hostname, "://"); i >= 0 {
		scheme = hostname[:i]
		host = hostname[i+3:]
	}
	host = strings.TrimRight(host, "/")
	if _, _, err := net.SplitHostPort(host); err == nil {
		return scheme + "://" + host
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}

// BaseURL returns the endpoint root the transport sends requests to.
func (t *Transport) BaseURL() string {
	return t.baseURL
}

// Do performs one HTTP exchange. Non-success statuses are not errors at this
// level; callers inspect the returned Response.
func (t *Transport) Do(req Request) (*Response, error) {
	payload, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	r := t.http.R()
	if err := t.sign(r); err != nil {
		return nil, err
	}
	if len(req.Query) > 0 {
		r.SetQueryParams(req.Query)
	}
	if contentType != "" {
		r.SetHeader("Content-Type", contentType)
		r.SetBody(payload)
	}
	r.SetHeader("Accept", contentTypeJSON)
	if len(req.Header) > 0 {
		r.SetHeaders(req.Header)
	}

	url := joinURL(t.baseURL, req.Path)
	start := time.Now()
	resp, err := r.Execute(req.Method, url)
	elapsed := time.Since(start)
	if err != nil {
		t.metrics.Observe(req.Method, 0, elapsed)
		log.Debug().Err(err).Str("method", req.Method).Str("url", url).Dur("elapsed", elapsed).Msg("redfish request failed")
		return nil, fmt.Errorf("%s %s: %w", req.Method, url, err)
	}

	t.metrics.Observe(req.Method, resp.StatusCode(), elapsed)
	log.Debug().Str("method", req.Method).Str("url", url).Int("status", resp.StatusCode()).Dur("elapsed", elapsed).Msg("redfish request")

	return NewResponse(resp.StatusCode(), resp.Header(), resp.Body()), nil
}

func (t *Transport) sign(r *resty.Request) error {
	switch a := t.auth.(type) {
	case NoAuth:
	case BasicAuth:
		r.SetBasicAuth(a.Username, a.Password)
	case SessionAuth:
		r.SetHeader("X-Auth-Token", a.Token)
	default:
		return typederrors.NewUnsupportedAuthTypeError(t.auth)
	}
	return nil
}

func encodeBody(body any) ([]byte, string, error) {
	switch b := body.(type) {
	case nil:
		return nil, "", nil
	case json.RawMessage:
		return b, contentTypeJSON, nil
	case []byte:
		return b, contentTypeBinary, nil
	}

	v := reflect.ValueOf(body)
	for v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, "", typederrors.NewUnsupportedBodyTypeError(body)
		}
		v = v.Elem()
	}

	switch v.Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, "", typederrors.UnsupportedBodyTypeError{
				GenericError: typederrors.GenericError{Message: fmt.Sprintf("encoding %T body", body), Err: err},
			}
		}
		return data, contentTypeJSON, nil
	}

	return nil, "", typederrors.NewUnsupportedBodyTypeError(body)
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
