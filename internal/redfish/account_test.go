package redfish

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/williamzujkowski/obmc-manager/internal/redfish/redfishtest"
	"github.com/williamzujkowski/obmc-manager/internal/typederrors"
)

func TestAccountService_Lifecycle(t *testing.T) {
	fixtures := map[string]redfishtest.Fixture{"openbmc": openBMC(), "mockup": mockup()}

	for name, fixture := range fixtures {
		t.Run(name, func(t *testing.T) {
			api, server := newTestAPI(t, fixture)
			svc, err := api.AccountService()
			require.NoError(t, err)

			missing, err := svc.Account("alice")
			require.NoError(t, err)
			assert.Nil(t, missing)

			require.NoError(t, svc.CreateAccount("alice", "secret123", RoleOperator, true))
			account, err := svc.Account("alice")
			require.NoError(t, err)
			require.NotNil(t, account)

			user, err := account.UserName()
			require.NoError(t, err)
			assert.Equal(t, "alice", user)
			role, err := account.RoleID()
			require.NoError(t, err)
			assert.Equal(t, RoleOperator, role)

			server.ResetCalls()
			require.NoError(t, account.SetRoleID(RoleOperator))
			require.NoError(t, account.SetEnabled(true))
			assert.Zero(t, server.Mutations(), "unchanged values must not be sent")

			require.NoError(t, account.SetRoleID(RoleReadOnly))
			require.NoError(t, account.SetEnabled(false))
			assert.Equal(t, 2, server.Count(http.MethodPatch))
			role, err = account.RoleID()
			require.NoError(t, err)
			assert.Equal(t, RoleReadOnly, role)
			enabled, err := account.Enabled()
			require.NoError(t, err)
			assert.False(t, enabled)

			require.NoError(t, account.SetPassword("another123"))
			assert.Equal(t, 3, server.Count(http.MethodPatch))

			list, err := svc.Accounts()
			require.NoError(t, err)
			assert.Len(t, list, 2)

			require.NoError(t, svc.DeleteAccount("alice"))
			missing, err = svc.Account("alice")
			require.NoError(t, err)
			assert.Nil(t, missing)
		})
	}
}

func TestAccountService_MockupPostsFullDocument(t *testing.T) {
	api, server := newTestAPI(t, mockup())
	svc, err := api.AccountService()
	require.NoError(t, err)
	require.IsType(t, &mockupAccountService{}, svc)

	require.NoError(t, svc.CreateAccount("bob", "secret123", RoleAdministrator, false))

	posts := server.Calls(http.MethodPost)
	require.Len(t, posts, 1)
	var body map[string]any
	require.NoError(t, json.Unmarshal(posts[0].Body, &body))
	assert.Equal(t, "#ManagerAccount.v1_4_0.ManagerAccount", body["@odata.type"])
	assert.Equal(t, "bob", body["Id"])
	assert.Nil(t, body["Password"])
	assert.Equal(t, map[string]any{"Role": map[string]any{"@odata.id": "/redfish/v1/AccountService/Roles/Administrator"}}, body["Links"])
}

func TestAccountService_ProductionPostsCredentials(t *testing.T) {
	api, server := newTestAPI(t, openBMC())
	svc, err := api.AccountService()
	require.NoError(t, err)

	require.NoError(t, svc.CreateAccount("bob", "secret123", RoleAdministrator, true))
	posts := server.Calls(http.MethodPost)
	require.Len(t, posts, 1)
	assert.JSONEq(t, `{"UserName":"bob","Password":"secret123","RoleId":"Administrator","Enabled":true}`, string(posts[0].Body))
	assert.Equal(t, "null", server.Get("/redfish/v1/AccountService/Accounts/bob", "Password").Raw)
}

func TestAccountService_Validation(t *testing.T) {
	api, server := newTestAPI(t, openBMC())
	svc, err := api.AccountService()
	require.NoError(t, err)

	err = svc.CreateAccount("", "secret123", RoleOperator, true)
	assert.True(t, typederrors.IsSchemaValidationError(err))

	account, err := svc.Account("root")
	require.NoError(t, err)
	err = account.SetPassword("")
	assert.True(t, typederrors.IsSchemaValidationError(err))
	assert.Zero(t, server.Mutations())
}

func TestAccountService_Roles(t *testing.T) {
	api, _ := newTestAPI(t, openBMC())
	svc, err := api.AccountService()
	require.NoError(t, err)

	list, err := svc.Roles()
	require.NoError(t, err)
	assert.Len(t, list, 3)

	role, err := svc.Role(RoleOperator)
	require.NoError(t, err)
	require.NotNil(t, role)
	privileges, err := role.AssignedPrivileges()
	require.NoError(t, err)
	assert.Contains(t, privileges, "ConfigureComponents")

	none, err := svc.Role("Nobody")
	require.NoError(t, err)
	assert.Nil(t, none)
}
