package modules

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/samber/lo"

	"github.com/williamzujkowski/obmc-manager/internal/redfish"
)

// RoleGroupParams maps a remote group to a local role, or removes the
// mapping when State is absent.
type RoleGroupParams struct {
	Name  string `json:"name"`
	Role  string `json:"role,omitempty"`
	State State  `json:"state,omitempty"`
}

func (g RoleGroupParams) Validate() error {
	return validation.ValidateStruct(&g,
		validation.Field(&g.Name, validation.Required),
		validation.Field(&g.Role,
			validation.When(!g.State.absent(), validation.Required),
			validation.In(redfish.RoleAdministrator, redfish.RoleOperator, redfish.RoleReadOnly)),
		validation.Field(&g.State, validation.In(StatePresent, StateAbsent)),
	)
}

// LDAPParams configures an external account provider. Nil fields are left
// alone. A supplied password is always sent since it cannot be read back.
type LDAPParams struct {
	ServiceType      string            `json:"service_type"`
	URI              *string           `json:"uri,omitempty"`
	Enabled          *bool             `json:"enabled,omitempty"`
	BindDN           *string           `json:"bind_dn,omitempty"`
	Password         *string           `json:"password,omitempty"`
	BaseDN           *string           `json:"base_dn,omitempty"`
	UserIDAttribute  *string           `json:"user_id_attribute,omitempty"`
	GroupIDAttribute *string           `json:"group_id_attribute,omitempty"`
	RoleGroups       []RoleGroupParams `json:"role_groups,omitempty"`
}

func (p LDAPParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.ServiceType, validation.Required, validation.In("OpenLDAP", "ActiveDirectory")),
		validation.Field(&p.RoleGroups),
	)
}

// LDAPConfig reconciles the settings of an LDAP or Active Directory provider.
func (r *Runner) LDAPConfig(p LDAPParams) (Result, error) {
	return r.run("ldap_config", func() (Result, error) {
		if err := invalid(p.Validate()); err != nil {
			return Result{}, err
		}
		provider, err := redfish.ParseLDAPProvider(p.ServiceType)
		if err != nil {
			return Result{}, err
		}
		svc, err := r.client.API().AccountService()
		if err != nil {
			return Result{}, err
		}
		current, err := svc.LDAP(provider)
		if err != nil {
			return Result{}, err
		}

		update := redfish.LDAPUpdate{
			URI:              p.URI,
			Enabled:          p.Enabled,
			BindDN:           p.BindDN,
			Password:         p.Password,
			BaseDN:           p.BaseDN,
			UserIDAttribute:  p.UserIDAttribute,
			GroupIDAttribute: p.GroupIDAttribute,
		}
		changed := p.Password != nil ||
			differs(p.URI, current.URI) ||
			differs(p.Enabled, current.Enabled) ||
			differs(p.BindDN, current.BindDN) ||
			differs(p.BaseDN, current.BaseDN) ||
			differs(p.UserIDAttribute, current.UserIDAttribute) ||
			differs(p.GroupIDAttribute, current.GroupIDAttribute)

		if p.RoleGroups != nil {
			desired := lo.Map(p.RoleGroups, func(g RoleGroupParams, _ int) redfish.RoleGroupState {
				return redfish.RoleGroupState{Name: g.Name, Role: g.Role, Absent: g.State.absent()}
			})
			groups := redfish.ReconcileRoleGroups(current.RoleGroups, desired)
			if !redfish.RoleGroupsEqual(groups, current.RoleGroups) {
				update.RoleGroups = groups
				changed = true
			}
		}

		if !changed {
			res, err := r.apply(msgUnchanged)
			res.Data = map[string]any{"ldap_config": current}
			return res, err
		}

		var updated *redfish.LDAPConfig
		res, err := r.apply(msgChanged, func() error {
			var err error
			updated, err = svc.ConfigureLDAP(provider, update)
			return err
		})
		if updated != nil {
			res.Data = map[string]any{"ldap_config": updated}
		}
		return res, err
	})
}

// differs reports whether a supplied value is different from the current one.
func differs[T comparable](want *T, have T) bool {
	return want != nil && *want != have
}
