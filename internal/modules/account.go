package modules

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/williamzujkowski/obmc-manager/internal/redfish"
)

// AccountParams describes a local BMC account. Password, Role and Enabled
// are required to create an account; on update only the supplied ones are
// applied.
type AccountParams struct {
	Username string `json:"username"`
	Password string `json:"password,omitempty"`
	Role     string `json:"role,omitempty"`
	Enabled  *bool  `json:"enabled,omitempty"`
	State    State  `json:"state,omitempty"`
}

func (p AccountParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Username, validation.Required),
		validation.Field(&p.Role, validation.In(
			redfish.RoleAdministrator, redfish.RoleOperator, redfish.RoleReadOnly, redfish.RoleNoAccess)),
		validation.Field(&p.State, validation.In(StatePresent, StateAbsent)),
	)
}

// Account creates, updates or deletes a local account.
func (r *Runner) Account(p AccountParams) (Result, error) {
	return r.run("account", func() (Result, error) {
		if err := invalid(p.Validate()); err != nil {
			return Result{}, err
		}
		svc, err := r.client.API().AccountService()
		if err != nil {
			return Result{}, err
		}
		account, err := svc.Account(p.Username)
		if err != nil {
			return Result{}, err
		}

		switch {
		case p.State.absent():
			if account == nil {
				return r.apply(msgUnchanged)
			}
			return r.apply("Account deleted.", func() error { return svc.DeleteAccount(p.Username) })

		case account == nil:
			var missing []string
			if p.Password == "" {
				missing = append(missing, "password")
			}
			if p.Role == "" {
				missing = append(missing, "role")
			}
			if p.Enabled == nil {
				missing = append(missing, "enabled")
			}
			if len(missing) > 0 {
				return Result{}, invalidf("cannot create account, fields required: %s", strings.Join(missing, ", "))
			}
			return r.apply("Account created.", func() error {
				return svc.CreateAccount(p.Username, p.Password, p.Role, *p.Enabled)
			})
		}

		var changes []change
		if p.Password != "" {
			changes = append(changes, func() error { return account.SetPassword(p.Password) })
		}
		if p.Role != "" {
			role, err := account.RoleID()
			if err != nil {
				return Result{}, err
			}
			if role != p.Role {
				changes = append(changes, func() error { return account.SetRoleID(p.Role) })
			}
		}
		if p.Enabled != nil {
			enabled, err := account.Enabled()
			if err != nil {
				return Result{}, err
			}
			if enabled != *p.Enabled {
				changes = append(changes, func() error { return account.SetEnabled(*p.Enabled) })
			}
		}
		return r.apply("Account updated.", changes...)
	})
}
