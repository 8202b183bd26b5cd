package transport

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/williamzujkowski/obmc-manager/internal/typederrors"
)

// endpoint splits a test server URL into the hostname and port a Config expects.
func endpoint(t *testing.T, server *httptest.Server) (string, int) {
	t.Helper()
	u, err := url.Parse(server.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return u.Scheme + "://" + u.Hostname(), port
}

func TestBaseURL(t *testing.T) {
	tests := []struct {
		hostname string
		port     int
		want     string
	}{
		{"10.0.0.5", 443, "https://10.0.0.5:443"},
		{"http://10.0.0.5", 8000, "http://10.0.0.5:8000"},
		{"https://bmc.example.com/", 443, "https://bmc.example.com:443"},
		{"https://10.0.0.5:8443", 443, "https://10.0.0.5:8443"},
		{"10.0.0.5:8443", 0, "https://10.0.0.5:8443"},
		{"http://[fe80::1]:8000", 443, "http://[fe80::1]:8000"},
	}

	for _, tt := range tests {
		t.Run(tt.hostname, func(t *testing.T) {
			assert.Equal(t, tt.want, BaseURL(tt.hostname, tt.port))
		})
	}
}

func TestJoinURL(t *testing.T) {
	assert.Equal(t, "https://h:443/redfish/v1/Systems", joinURL("https://h:443/", "//redfish/v1/Systems"))
	assert.Equal(t, "https://h:443/redfish/v1", joinURL("https://h:443", "redfish/v1"))
}

func TestDo_Auth(t *testing.T) {
	var gotUser, gotPass, gotToken string
	var gotBasic bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, gotPass, gotBasic = r.BasicAuth()
		gotToken = r.Header.Get("X-Auth-Token")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	host, port := endpoint(t, server)

	t.Run("basic", func(t *testing.T) {
		tr := New(Config{Hostname: host, Port: port, Auth: BasicAuth{Username: "root", Password: "0penBmc"}})
		_, err := tr.Do(Request{Method: http.MethodGet, Path: "/redfish/v1"})
		require.NoError(t, err)
		assert.True(t, gotBasic)
		assert.Equal(t, "root", gotUser)
		assert.Equal(t, "0penBmc", gotPass)
		assert.Empty(t, gotToken)
	})

	t.Run("session", func(t *testing.T) {
		tr := New(Config{Hostname: host, Port: port, Auth: SessionAuth{Token: "abc"}})
		_, err := tr.Do(Request{Method: http.MethodGet, Path: "/redfish/v1"})
		require.NoError(t, err)
		assert.False(t, gotBasic)
		assert.Equal(t, "abc", gotToken)
	})

	t.Run("none", func(t *testing.T) {
		tr := New(Config{Hostname: host, Port: port, Auth: NoAuth{}})
		_, err := tr.Do(Request{Method: http.MethodGet, Path: "/redfish/v1"})
		require.NoError(t, err)
		assert.False(t, gotBasic)
		assert.Empty(t, gotToken)
	})
}

func TestDo_UnsupportedAuthFailsBeforeIO(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()
	host, port := endpoint(t, server)

	tr := New(Config{Hostname: host, Port: port})
	_, err := tr.Do(Request{Method: http.MethodGet, Path: "/redfish/v1"})

	require.Error(t, err)
	assert.True(t, typederrors.IsUnsupportedAuthTypeError(err))
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestDo_Bodies(t *testing.T) {
	type capture struct {
		contentType string
		body        []byte
	}
	var got capture
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.contentType = r.Header.Get("Content-Type")
		got.body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()
	host, port := endpoint(t, server)
	tr := New(Config{Hostname: host, Port: port, Auth: NoAuth{}})

	t.Run("map is json", func(t *testing.T) {
		_, err := tr.Do(Request{Method: http.MethodPatch, Path: "/x", Body: map[string]any{"HostName": "bmc1"}})
		require.NoError(t, err)
		assert.Equal(t, "application/json", got.contentType)
		assert.JSONEq(t, `{"HostName":"bmc1"}`, string(got.body))
	})

	t.Run("struct pointer is json", func(t *testing.T) {
		body := &struct {
			ResetType string `json:"ResetType"`
		}{"On"}
		_, err := tr.Do(Request{Method: http.MethodPost, Path: "/x", Body: body})
		require.NoError(t, err)
		assert.Equal(t, "application/json", got.contentType)
		assert.JSONEq(t, `{"ResetType":"On"}`, string(got.body))
	})

	t.Run("bytes are binary", func(t *testing.T) {
		_, err := tr.Do(Request{Method: http.MethodPost, Path: "/x", Body: []byte{0x1, 0x2}})
		require.NoError(t, err)
		assert.Equal(t, "application/octet-stream", got.contentType)
		assert.Equal(t, []byte{0x1, 0x2}, got.body)
	})
}

func TestDo_UnsupportedBody(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer server.Close()
	host, port := endpoint(t, server)
	tr := New(Config{Hostname: host, Port: port, Auth: NoAuth{}})

	var nilMap *map[string]any
	for _, body := range []any{42, "text", true, nilMap} {
		_, err := tr.Do(Request{Method: http.MethodPost, Path: "/x", Body: body})
		assert.True(t, typederrors.IsUnsupportedBodyTypeError(err), "body %T", body)
	}
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestDo_QueryAndHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Echo", r.Header.Get("X-Custom"))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"expand": r.URL.Query().Get("$expand")}) //nolint:errcheck
	}))
	defer server.Close()
	host, port := endpoint(t, server)
	tr := New(Config{Hostname: host, Port: port, Auth: NoAuth{}})

	resp, err := tr.Do(Request{
		Method: http.MethodGet,
		Path:   "/redfish/v1/Systems",
		Query:  map[string]string{"$expand": "."},
		Header: map[string]string{"X-Custom": "yes"},
	})
	require.NoError(t, err)

	assert.Equal(t, "yes", resp.Header().Get("X-Echo"))
	data, err := resp.JSON()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"expand": "."}, data)
}

func TestDo_ConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	host, port := endpoint(t, server)
	server.Close()

	tr := New(Config{Hostname: host, Port: port, Auth: NoAuth{}})
	_, err := tr.Do(Request{Method: http.MethodGet, Path: "/redfish/v1"})
	assert.Error(t, err)
}

func TestDo_SelfSignedTLS(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()
	host, port := endpoint(t, server)

	strict := New(Config{Hostname: host, Port: port, Auth: NoAuth{}})
	_, err := strict.Do(Request{Method: http.MethodGet, Path: "/"})
	require.Error(t, err, "certificates are checked by default")

	insecure := New(Config{Hostname: host, Port: port, Auth: NoAuth{}, InsecureSkipVerify: true})
	resp, err := insecure.Do(Request{Method: http.MethodGet, Path: "/"})
	require.NoError(t, err)
	assert.True(t, resp.IsSuccess())
}
