package redfish

import (
	"fmt"

	"github.com/williamzujkowski/obmc-manager/internal/typederrors"
)

// Roles defined by OpenBMC.
const (
	RoleAdministrator = "Administrator"
	RoleOperator      = "Operator"
	RoleReadOnly      = "ReadOnly"
	RoleNoAccess      = "NoAccess"
)

var accounts = newRegistry("Account", map[string]func(*Resource) *Account{
	"#ManagerAccount.v1_4_0.ManagerAccount": func(r *Resource) *Account { return &Account{Resource: r} },
})

// Account is a BMC user account.
type Account struct {
	*Resource
}

// UserName returns the login name.
func (a *Account) UserName() (string, error) {
	return a.stringField("UserName")
}

// Enabled reports whether the account may log in.
func (a *Account) Enabled() (bool, error) {
	return a.boolField("Enabled")
}

// Locked reports whether the account is locked out.
func (a *Account) Locked() (bool, error) {
	return a.boolField("Locked")
}

// RoleID returns the assigned role.
func (a *Account) RoleID() (string, error) {
	return a.stringField("RoleId")
}

// SetPassword always sends the password, since the current one cannot be read back.
func (a *Account) SetPassword(password string) error {
	if password == "" {
		return typederrors.NewSchemaValidationError("password must not be empty", nil)
	}
	return a.patch(map[string]any{"Password": password})
}

// SetRoleID assigns a new role.
func (a *Account) SetRoleID(roleID string) error {
	current, err := a.RoleID()
	if err != nil {
		return err
	}
	if current == roleID {
		return nil
	}
	return a.patch(map[string]any{"RoleId": roleID})
}

// SetEnabled enables or disables the account.
func (a *Account) SetEnabled(enabled bool) error {
	current, err := a.Enabled()
	if err != nil {
		return err
	}
	if current == enabled {
		return nil
	}
	return a.patch(map[string]any{"Enabled": enabled})
}

// Delete removes the account.
func (a *Account) Delete() error {
	return a.delete()
}

var roles = newRegistry("Role", map[string]func(*Resource) *Role{
	"#Role.v1_2_2.Role": func(r *Resource) *Role { return &Role{Resource: r} },
})

// Role is a named privilege set.
type Role struct {
	*Resource
}

// RoleID returns the role name, e.g. "Administrator".
func (r *Role) RoleID() (string, error) {
	return r.stringField("RoleId")
}

// AssignedPrivileges returns the Redfish privileges granted by the role.
func (r *Role) AssignedPrivileges() ([]string, error) {
	return r.stringsField("AssignedPrivileges")
}

// AccountService manages local accounts, roles and external LDAP providers.
type AccountService interface {
	Path() string
	Reload() error
	CreateAccount(username, password, roleID string, enabled bool) error
	Accounts() ([]*Account, error)
	Account(id string) (*Account, error)
	Roles() ([]*Role, error)
	Role(id string) (*Role, error)
	DeleteAccount(id string) error
	LDAP(provider LDAPProvider) (*LDAPConfig, error)
	ConfigureLDAP(provider LDAPProvider, update LDAPUpdate) (*LDAPConfig, error)
}

var accountServices = newRegistry("AccountService", map[string]func(*Resource) AccountService{
	"#AccountService.v1_5_0.AccountService": func(r *Resource) AccountService {
		return &accountService{Resource: r}
	},
	"#AccountService.v1_5_0.AccountService.Mockup": func(r *Resource) AccountService {
		return &mockupAccountService{accountService: &accountService{Resource: r}}
	},
})

var createAccountSchema = object(map[string]Schema{
	"UserName": required(str()),
	"Password": required(str()),
	"RoleId":   required(str()),
	"Enabled":  required(boolean()),
})

type accountService struct {
	*Resource
}

func (s *accountService) CreateAccount(username, password, roleID string, enabled bool) error {
	payload := map[string]any{
		"UserName": username,
		"Password": password,
		"RoleId":   roleID,
		"Enabled":  enabled,
	}
	if err := validateNewAccount(payload); err != nil {
		return err
	}
	if _, err := s.client.Post(s.child("Accounts"), payload); err != nil {
		return fmt.Errorf("creating account %s: %w", username, err)
	}
	return nil
}

func validateNewAccount(payload map[string]any) error {
	if err := ValidateSchema(createAccountSchema, payload); err != nil {
		return err
	}
	if payload["UserName"] == "" {
		return typederrors.NewSchemaValidationError("username must not be empty", nil)
	}
	return nil
}

func (s *accountService) Accounts() ([]*Account, error) {
	return accounts.collection(s.client, s.child("Accounts"))
}

func (s *accountService) Account(id string) (*Account, error) {
	return accounts.lookup(s.client, s.child("Accounts/"+id))
}

func (s *accountService) Roles() ([]*Role, error) {
	return roles.collection(s.client, s.child("Roles"))
}

func (s *accountService) Role(id string) (*Role, error) {
	return roles.lookup(s.client, s.child("Roles/"+id))
}

func (s *accountService) DeleteAccount(id string) error {
	if _, err := s.client.Delete(s.child("Accounts/" + id)); err != nil {
		return fmt.Errorf("deleting account %s: %w", id, err)
	}
	return nil
}

// mockupAccountService posts the complete account document, which the DMTF
// mockup server stores verbatim.
type mockupAccountService struct {
	*accountService
}

func (s *mockupAccountService) CreateAccount(username, password, roleID string, enabled bool) error {
	if err := validateNewAccount(map[string]any{
		"UserName": username,
		"Password": password,
		"RoleId":   roleID,
		"Enabled":  enabled,
	}); err != nil {
		return err
	}

	payload := map[string]any{
		"@odata.type":  "#ManagerAccount.v1_4_0.ManagerAccount",
		"AccountTypes": []string{"Redfish"},
		"Description":  "User Account",
		"Id":           username,
		"UserName":     username,
		"Enabled":      enabled,
		"RoleId":       roleID,
		"Links": map[string]any{
			"Role": map[string]any{fieldID: s.rolePath(roleID)},
		},
		"Locked":                         false,
		"Locked@Redfish.AllowableValues": []string{"false"},
		"Name":                           "User Account",
		"Password":                       nil,
		"PasswordChangeRequired":         false,
	}
	if _, err := s.client.Post(s.child("Accounts"), payload); err != nil {
		return fmt.Errorf("creating account %s: %w", username, err)
	}
	return nil
}

func (s *mockupAccountService) rolePath(roleID string) string {
	return s.child("Roles/" + roleID)
}
