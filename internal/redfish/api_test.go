package redfish

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/williamzujkowski/obmc-manager/internal/redfish/redfishtest"
	"github.com/williamzujkowski/obmc-manager/internal/transport"
	"github.com/williamzujkowski/obmc-manager/internal/typederrors"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"basic", Config{Hostname: "bmc", Username: "root", Password: "0penBmc"}, false},
		{"session", Config{Hostname: "bmc", SessionKey: "token"}, false},
		{"anonymous", Config{Hostname: "bmc"}, false},
		{"no hostname", Config{Username: "root", Password: "x"}, true},
		{"missing password", Config{Hostname: "bmc", Username: "root"}, true},
		{"both auth methods", Config{Hostname: "bmc", Username: "root", Password: "x", SessionKey: "token"}, true},
		{"bad port", Config{Hostname: "bmc", Port: 70000}, true},
		{"negative timeout", Config{Hostname: "bmc", Timeout: -time.Second}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, typederrors.IsSchemaValidationError(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConfig_Auth(t *testing.T) {
	assert.Equal(t, transport.NoAuth{}, Config{Hostname: "bmc"}.auth())
	assert.Equal(t, transport.SessionAuth{Token: "token"}, Config{SessionKey: "token"}.auth())
	assert.Equal(t, transport.BasicAuth{Username: "root", Password: "x"}, Config{Username: "root", Password: "x"}.auth())
}

func TestAPI_Prefix(t *testing.T) {
	api, err := NewAPI(Config{Hostname: "bmc"})
	require.NoError(t, err)
	assert.Equal(t, DefaultPrefix, api.Prefix())

	api = NewAPIWithClient(api.Client(), "redfish/v1/")
	assert.Equal(t, "/redfish/v1", api.Prefix())
}

func TestAPI_Sessions(t *testing.T) {
	server := redfishtest.NewServer(t, openBMC())
	server.RequireAuth("root", "0penBmc")

	anonymous, err := NewAPI(Config{Hostname: server.Hostname(), Port: server.Port()})
	require.NoError(t, err)

	_, err = anonymous.CreateSession("root", "wrong")
	var rerr typederrors.RequestError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, http.StatusUnauthorized, rerr.StatusCode)

	session, err := anonymous.CreateSession("root", "0penBmc")
	require.NoError(t, err)
	require.NotEmpty(t, session.Token())
	user, err := session.UserName()
	require.NoError(t, err)
	assert.Equal(t, "root", user)

	_, err = anonymous.Systems()
	require.Error(t, err, "unauthenticated requests are rejected")

	authed, err := NewAPI(Config{Hostname: server.Hostname(), Port: server.Port(), SessionKey: session.Token()})
	require.NoError(t, err)
	svc, err := authed.SessionService()
	require.NoError(t, err)

	list, err := svc.Sessions()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Empty(t, list[0].Token(), "tokens are only known at creation")

	id, err := session.ID()
	require.NoError(t, err)
	found, err := svc.Session(id)
	require.NoError(t, err)
	require.NotNil(t, found)

	require.NoError(t, svc.DeleteSession(id))
	gone, err := svc.Session(id)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestAPI_CreateSessionBody(t *testing.T) {
	api, server := newTestAPI(t, openBMC())
	_, err := api.CreateSession("operator", "pa55")
	require.NoError(t, err)

	posts := server.Calls(http.MethodPost)
	require.Len(t, posts, 1)
	assert.Equal(t, "/redfish/v1/SessionService/Sessions", posts[0].Path)
	assert.JSONEq(t, `{"UserName":"operator","Password":"pa55"}`, string(posts[0].Body))
}

func TestAPI_Collections(t *testing.T) {
	api, _ := newTestAPI(t, openBMC())

	systems, err := api.Systems()
	require.NoError(t, err)
	require.Len(t, systems, 1)
	assert.Equal(t, "/redfish/v1/Systems/system", systems[0].Path())

	managers, err := api.Managers()
	require.NoError(t, err)
	require.Len(t, managers, 1)

	none, err := api.System("missing")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestAPI_ConnectionError(t *testing.T) {
	server := redfishtest.NewServer(t, openBMC())
	api, err := NewAPI(Config{Hostname: server.Hostname(), Port: server.Port(), Timeout: time.Second})
	require.NoError(t, err)
	server.Close()

	_, err = api.Systems()
	require.Error(t, err)
	assert.True(t, typederrors.IsConnectionError(err))
	assert.ErrorIs(t, err, typederrors.ErrTransportFailure)
}

func TestAPI_SelfSignedCertificate(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"@odata.id":"/redfish/v1/Systems","Members":[]}`))
	}))
	defer server.Close()

	strict, err := NewAPI(Config{Hostname: server.URL, Timeout: time.Second})
	require.NoError(t, err)
	_, err = strict.Systems()
	require.Error(t, err)
	assert.True(t, typederrors.IsConnectionError(err), "certificates are checked by default")

	insecure, err := NewAPI(Config{Hostname: server.URL, Timeout: time.Second, InsecureSkipVerify: true})
	require.NoError(t, err)
	_, err = insecure.Systems()
	assert.False(t, typederrors.IsConnectionError(err))
}

func TestUpdateService(t *testing.T) {
	api, server := newTestAPI(t, openBMC())
	var uploaded []byte
	server.OnUpload(func(s *redfishtest.Server, path string, body []byte) {
		uploaded = body
		s.AddMember("/redfish/v1/UpdateService/FirmwareInventory",
			redfishtest.SoftwareImage("/redfish/v1/UpdateService/FirmwareInventory/new1", "BMC image", "2.11.0", "Updating"))
	})

	svc, err := api.UpdateService()
	require.NoError(t, err)

	images, err := svc.FirmwareInventories()
	require.NoError(t, err)
	assert.Len(t, images, 2)

	require.NoError(t, svc.UploadImage([]byte{0xde, 0xad}))
	assert.Equal(t, []byte{0xde, 0xad}, uploaded)
	posts := server.Calls(http.MethodPost)
	require.Len(t, posts, 1)
	assert.Equal(t, "application/octet-stream", posts[0].Header.Get("Content-Type"))

	img, err := svc.FirmwareInventory("new1")
	require.NoError(t, err)
	require.NotNil(t, img)
	desc, err := img.Description()
	require.NoError(t, err)
	assert.Equal(t, "BMC image", desc)
	status, err := img.Status()
	require.NoError(t, err)
	assert.Equal(t, "Updating", status.State)

	require.NoError(t, svc.SimpleUpdate("tftp://10.0.0.1/image.tar"))
	posts = server.Calls(http.MethodPost)
	assert.JSONEq(t, `{"ImageURI":"tftp://10.0.0.1/image.tar"}`, string(posts[len(posts)-1].Body))

	assert.True(t, typederrors.IsSchemaValidationError(svc.UploadImage(nil)))
	assert.True(t, typederrors.IsSchemaValidationError(svc.SimpleUpdate("")))

	none, err := svc.FirmwareInventory("missing")
	require.NoError(t, err)
	assert.Nil(t, none)
}
