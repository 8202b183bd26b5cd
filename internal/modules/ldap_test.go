package modules

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/williamzujkowski/obmc-manager/internal/redfish"
	"github.com/williamzujkowski/obmc-manager/internal/redfish/redfishtest"
	"github.com/williamzujkowski/obmc-manager/internal/typederrors"
)

const accountServicePath = "/redfish/v1/AccountService"

func TestLDAPConfig(t *testing.T) {
	runner, server, _ := newRunner(t, redfishtest.OpenBMC())

	params := LDAPParams{
		ServiceType: "OpenLDAP",
		URI:         ptr("ldap://ldap.example.com"),
		Enabled:     ptr(true),
		BindDN:      ptr("cn=admin,dc=example,dc=com"),
		BaseDN:      ptr("dc=example,dc=com"),
		RoleGroups: []RoleGroupParams{
			{Name: "admins", Role: redfish.RoleAdministrator},
			{Name: "ops", Role: redfish.RoleOperator},
		},
	}
	res, err := runner.LDAPConfig(params)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	cfg, ok := res.Data["ldap_config"].(*redfish.LDAPConfig)
	require.True(t, ok)
	assert.Equal(t, "ldap://ldap.example.com", cfg.URI)
	assert.Len(t, cfg.RoleGroups, 2)
	assert.Equal(t, "ldap://ldap.example.com", server.Get(accountServicePath, "LDAP", "ServiceAddresses", "0").String())
	assert.False(t, server.Get(accountServicePath, "ActiveDirectory", "ServiceEnabled").Bool())

	server.ResetCalls()
	res, err = runner.LDAPConfig(params)
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Zero(t, server.Mutations())
	assert.NotNil(t, res.Data["ldap_config"])

	res, err = runner.LDAPConfig(LDAPParams{ServiceType: "OpenLDAP", Password: ptr("bindpw")})
	require.NoError(t, err)
	assert.True(t, res.Changed, "a supplied password is always sent")
	patches := server.Calls(http.MethodPatch)
	require.Len(t, patches, 1)
	assert.JSONEq(t, `{"LDAP":{"Authentication":{"Password":"bindpw"}}}`, string(patches[0].Body))

	server.ResetCalls()
	res, err = runner.LDAPConfig(LDAPParams{ServiceType: "OpenLDAP", RoleGroups: []RoleGroupParams{
		{Name: "admins", State: StateAbsent},
		{Name: "ops", Role: redfish.RoleReadOnly},
	}})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	patches = server.Calls(http.MethodPatch)
	require.Len(t, patches, 1)
	mapping := gjson.GetBytes(patches[0].Body, "LDAP.RemoteRoleMapping").Array()
	require.Len(t, mapping, 2)
	assert.Equal(t, gjson.Null, mapping[0].Type)
	assert.Equal(t, "ReadOnly", mapping[1].Get("LocalRole").String())
}

func TestLDAPConfig_CheckMode(t *testing.T) {
	runner, server, _ := newRunner(t, redfishtest.OpenBMC())

	res, err := runner.WithCheckMode(true).LDAPConfig(LDAPParams{ServiceType: "ActiveDirectory", Enabled: ptr(true)})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Zero(t, server.Mutations())
}

func TestLDAPConfig_Validation(t *testing.T) {
	runner, server, _ := newRunner(t, redfishtest.OpenBMC())

	tests := []struct {
		name   string
		params LDAPParams
	}{
		{"no service type", LDAPParams{Enabled: ptr(true)}},
		{"unknown service type", LDAPParams{ServiceType: "Kerberos"}},
		{"group without role", LDAPParams{ServiceType: "OpenLDAP", RoleGroups: []RoleGroupParams{{Name: "admins"}}}},
		{"group with unknown role", LDAPParams{ServiceType: "OpenLDAP", RoleGroups: []RoleGroupParams{{Name: "admins", Role: "Root"}}}},
		{"group without name", LDAPParams{ServiceType: "OpenLDAP", RoleGroups: []RoleGroupParams{{Role: redfish.RoleOperator}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runner.LDAPConfig(tt.params)
			require.Error(t, err)
			assert.True(t, typederrors.IsSchemaValidationError(err))
		})
	}
	assert.Zero(t, server.Count(""))
}
