package redfish

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/williamzujkowski/obmc-manager/internal/typederrors"
)

// LDAPProvider selects the AccountService property holding a provider's settings.
type LDAPProvider string

const (
	ProviderOpenLDAP        LDAPProvider = "LDAP"
	ProviderActiveDirectory LDAPProvider = "ActiveDirectory"
)

// ParseLDAPProvider maps a service type name to its provider.
func ParseLDAPProvider(serviceType string) (LDAPProvider, error) {
	switch serviceType {
	case "OpenLDAP":
		return ProviderOpenLDAP, nil
	case "ActiveDirectory":
		return ProviderActiveDirectory, nil
	}
	return "", typederrors.NewSchemaValidationError(fmt.Sprintf("unsupported LDAP service type %q", serviceType), nil)
}

// RoleGroup maps a remote LDAP group to a local role.
type RoleGroup struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// LDAPConfig is the flattened view of one provider's settings.
type LDAPConfig struct {
	URI              string       `json:"uri"`
	Enabled          bool         `json:"enabled"`
	BindDN           string       `json:"bind_dn"`
	BaseDN           string       `json:"base_dn"`
	UserIDAttribute  string       `json:"user_id_attribute"`
	GroupIDAttribute string       `json:"group_id_attribute"`
	RoleGroups       []*RoleGroup `json:"role_groups"`
}

// LDAPUpdate lists the settings to change; nil fields are left alone.
// A non-nil RoleGroups replaces the mapping list, where nil entries remove
// the mapping at that position.
type LDAPUpdate struct {
	URI              *string
	Enabled          *bool
	BindDN           *string
	Password         *string
	BaseDN           *string
	UserIDAttribute  *string
	GroupIDAttribute *string
	RoleGroups       []*RoleGroup
}

// RoleGroupState is one desired role-group mapping.
type RoleGroupState struct {
	Name   string
	Role   string
	Absent bool
}

// ReconcileRoleGroups applies desired to existing without disturbing the
// positions of untouched entries. Removed entries become nil in place,
// changed roles are updated in place and unknown present entries are appended.
func ReconcileRoleGroups(existing []*RoleGroup, desired []RoleGroupState) []*RoleGroup {
	out := make([]*RoleGroup, len(existing))
	copy(out, existing)

	for _, want := range desired {
		_, idx, found := lo.FindIndexOf(existing, func(g *RoleGroup) bool {
			return g != nil && g.Name == want.Name
		})

		switch {
		case found && want.Absent:
			out[idx] = nil
		case found && existing[idx].Role != want.Role:
			out[idx] = &RoleGroup{Name: want.Name, Role: want.Role}
		case !found && !want.Absent:
			out = append(out, &RoleGroup{Name: want.Name, Role: want.Role})
		}
	}
	return out
}

// RoleGroupsEqual compares two mapping lists position by position.
func RoleGroupsEqual(a, b []*RoleGroup) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if (a[i] == nil) != (b[i] == nil) {
			return false
		}
		if a[i] != nil && *a[i] != *b[i] {
			return false
		}
	}
	return true
}

var roleMappingSchema = Schema{Kind: KindObject, Nullable: true, Fields: map[string]Schema{
	"RemoteGroup": required(str()),
	"LocalRole":   required(str()),
}}

var ldapUpdateSchema = object(map[string]Schema{
	"ServiceEnabled":   boolean(),
	"ServiceAddresses": arrayOf(str()),
	"Authentication": object(map[string]Schema{
		"Username": str(),
		"Password": str(),
	}),
	"LDAPService": object(map[string]Schema{
		"SearchSettings": object(map[string]Schema{
			"BaseDistinguishedNames": arrayOf(str()),
			"UsernameAttribute":      str(),
			"GroupsAttribute":        str(),
		}),
	}),
	"RemoteRoleMapping": arrayOf(roleMappingSchema),
})

func (s *accountService) LDAP(provider LDAPProvider) (*LDAPConfig, error) {
	if _, err := s.Field(string(provider)); err != nil {
		return nil, err
	}
	cfg := &LDAPConfig{RoleGroups: []*RoleGroup{}}
	var err error

	addresses, err := s.stringsField(string(provider), "ServiceAddresses")
	if err != nil {
		return nil, err
	}
	if len(addresses) > 0 {
		cfg.URI = addresses[0]
	}
	if cfg.Enabled, err = s.boolField(string(provider), "ServiceEnabled"); err != nil {
		return nil, err
	}
	if cfg.BindDN, err = s.stringField(string(provider), "Authentication", "Username"); err != nil {
		return nil, err
	}

	search := []string{string(provider), "LDAPService", "SearchSettings"}
	baseDNs, err := s.stringsField(append(search, "BaseDistinguishedNames")...)
	if err != nil {
		return nil, err
	}
	if len(baseDNs) > 0 {
		cfg.BaseDN = baseDNs[0]
	}
	if cfg.UserIDAttribute, err = s.stringField(append(search, "UsernameAttribute")...); err != nil {
		return nil, err
	}
	if cfg.GroupIDAttribute, err = s.stringField(append(search, "GroupsAttribute")...); err != nil {
		return nil, err
	}

	var mappings []*struct {
		RemoteGroup string
		LocalRole   string
	}
	if err := s.decodeField(&mappings, string(provider), "RemoteRoleMapping"); err != nil {
		return nil, err
	}
	for _, m := range mappings {
		if m == nil {
			continue
		}
		cfg.RoleGroups = append(cfg.RoleGroups, &RoleGroup{Name: m.RemoteGroup, Role: m.LocalRole})
	}
	return cfg, nil
}

func (s *accountService) ConfigureLDAP(provider LDAPProvider, update LDAPUpdate) (*LDAPConfig, error) {
	body := map[string]any{}
	if update.URI != nil {
		body["ServiceAddresses"] = []string{*update.URI}
	}
	if update.Enabled != nil {
		body["ServiceEnabled"] = *update.Enabled
	}

	auth := map[string]any{}
	if update.BindDN != nil {
		auth["Username"] = *update.BindDN
	}
	if update.Password != nil {
		auth["Password"] = *update.Password
	}
	if len(auth) > 0 {
		body["Authentication"] = auth
	}

	search := map[string]any{}
	if update.BaseDN != nil {
		search["BaseDistinguishedNames"] = []string{*update.BaseDN}
	}
	if update.UserIDAttribute != nil {
		search["UsernameAttribute"] = *update.UserIDAttribute
	}
	if update.GroupIDAttribute != nil {
		search["GroupsAttribute"] = *update.GroupIDAttribute
	}
	if len(search) > 0 {
		body["LDAPService"] = map[string]any{"SearchSettings": search}
	}

	if update.RoleGroups != nil {
		body["RemoteRoleMapping"] = lo.Map(update.RoleGroups, func(g *RoleGroup, _ int) any {
			if g == nil {
				return nil
			}
			return map[string]any{"RemoteGroup": g.Name, "LocalRole": g.Role}
		})
	}

	if len(body) == 0 {
		return s.LDAP(provider)
	}
	if err := ValidateSchema(ldapUpdateSchema, body); err != nil {
		return nil, err
	}
	if err := s.patch(map[string]any{string(provider): body}); err != nil {
		return nil, err
	}
	return s.LDAP(provider)
}
