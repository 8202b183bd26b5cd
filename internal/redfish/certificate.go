package redfish

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/williamzujkowski/obmc-manager/internal/typederrors"
)

// CertificateType selects where a certificate is installed.
type CertificateType string

const (
	CertificateHTTPS CertificateType = "HTTPS"
	CertificateLDAP  CertificateType = "LDAP"
	CertificateCA    CertificateType = "CA"
)

// ParseCertificateType accepts the type name in any case.
func ParseCertificateType(name string) (CertificateType, error) {
	t := CertificateType(strings.ToUpper(name))
	if _, ok := certificateLocations[t]; !ok {
		return "", typederrors.NewSchemaValidationError(
			fmt.Sprintf("unknown certificate type %q, available: %s", name, strings.Join(certificateTypeNames(), ", ")), nil)
	}
	return t, nil
}

// certificateLocations are relative to the service root.
var certificateLocations = map[CertificateType]string{
	CertificateCA:    "Managers/bmc/Truststore/Certificates",
	CertificateLDAP:  "AccountService/LDAP/Certificates",
	CertificateHTTPS: "Managers/bmc/NetworkProtocol/HTTPS/Certificates",
}

func certificateTypeNames() []string {
	names := make([]string, 0, len(certificateLocations))
	for t := range certificateLocations {
		names = append(names, string(t))
	}
	sort.Strings(names)
	return names
}

var certificates = newRegistry("Certificate", map[string]func(*Resource) *Certificate{
	"#Certificate.v1_0_0.Certificate": func(r *Resource) *Certificate { return &Certificate{Resource: r} },
})

// Certificate is an installed certificate.
type Certificate struct {
	*Resource
}

// Location returns the collection the certificate belongs to.
func (c *Certificate) Location() string {
	return parentPath(c.path)
}

// CertificateID returns the id within the collection.
func (c *Certificate) CertificateID() string {
	return lastSegment(c.path)
}

func (c *Certificate) Content() (string, error)        { return c.stringField("CertificateString") }
func (c *Certificate) ValidNotBefore() (string, error) { return c.stringField("ValidNotBefore") }
func (c *Certificate) ValidNotAfter() (string, error)  { return c.stringField("ValidNotAfter") }

// Issuer and Subject are objects on real firmware and placeholder strings on mockups.
func (c *Certificate) Issuer() (any, error) {
	res, err := c.Field("Issuer")
	if err != nil {
		return nil, err
	}
	return res.Value(), nil
}

func (c *Certificate) Subject() (any, error) {
	res, err := c.Field("Subject")
	if err != nil {
		return nil, err
	}
	return res.Value(), nil
}

func (c *Certificate) KeyUsage() (any, error) {
	res, err := c.Field("KeyUsage")
	if err != nil {
		return nil, err
	}
	return res.Value(), nil
}

// Delete removes the certificate; the handle is unusable afterwards.
func (c *Certificate) Delete() error {
	return c.delete()
}

// CSRRequest holds GenerateCSR parameters. Empty key settings default to an
// EC secp384r1 key pair.
type CSRRequest struct {
	Type               CertificateType `json:"crt_type"`
	Country            string          `json:"country"`
	City               string          `json:"city"`
	CommonName         string          `json:"common_name"`
	State              string          `json:"state"`
	Organization       string          `json:"organization"`
	OrganizationalUnit string          `json:"organizational_unit"`
	AlternativeNames   []string        `json:"alternative_names,omitempty"`
	KeyUsage           []string        `json:"key_usage,omitempty"`
	ContactPerson      string          `json:"contact_person,omitempty"`
	ChallengePassword  string          `json:"challenge_password,omitempty"`
	Email              string          `json:"email,omitempty"`
	GivenName          string          `json:"given_name,omitempty"`
	Initials           string          `json:"initials,omitempty"`
	KeyPairAlgorithm   string          `json:"key_pair_algorithm,omitempty"`
	KeyCurveID         string          `json:"key_curve_id,omitempty"`
	Surname            string          `json:"surname,omitempty"`
	UnstructuredName   string          `json:"unstructured_name,omitempty"`
}

// CertificateService manages TLS certificates.
type CertificateService interface {
	Path() string
	AddCertificate(t CertificateType, content string) (*Certificate, error)
	Certificate(t CertificateType) (*Certificate, error)
	Certificates() ([]*Certificate, error)
	ReplaceCertificate(old *Certificate, content, format string) error
	GenerateCSR(req CSRRequest) (string, error)
}

var certificateServices = newRegistry("CertificateService", map[string]func(*Resource) CertificateService{
	"#CertificateService.v1_0_0.CertificateService": func(r *Resource) CertificateService {
		return &certificateService{Resource: r}
	},
	"#CertificateService.v1_0_0.CertificateService.Mockup": func(r *Resource) CertificateService {
		return &mockupCertificateService{certificateService: &certificateService{Resource: r}}
	},
})

type certificateService struct {
	*Resource
}

// location resolves a type to its collection path next to the service.
func (s *certificateService) location(t CertificateType) (string, error) {
	rel, ok := certificateLocations[t]
	if !ok {
		return "", typederrors.NewSchemaValidationError(
			fmt.Sprintf("unknown certificate type %q, available: %s", t, strings.Join(certificateTypeNames(), ", ")), nil)
	}
	return parentPath(s.path) + "/" + rel, nil
}

func (s *certificateService) AddCertificate(t CertificateType, content string) (*Certificate, error) {
	return s.add(t, map[string]any{"CertificateString": content})
}

func (s *certificateService) add(t CertificateType, body map[string]any) (*Certificate, error) {
	loc, err := s.location(t)
	if err != nil {
		return nil, err
	}
	if body["CertificateString"] == "" {
		return nil, newInvalidValue("certificate content must not be empty")
	}
	if _, err := s.client.Post(loc, body); err != nil {
		return nil, fmt.Errorf("adding %s certificate: %w", t, err)
	}
	return s.Certificate(t)
}

// Certificate returns the first certificate at the type's location, or nil
// when the location is empty.
func (s *certificateService) Certificate(t CertificateType) (*Certificate, error) {
	loc, err := s.location(t)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Get(loc)
	if err != nil {
		return nil, fmt.Errorf("getting %s certificates: %w", t, err)
	}
	first := gjson.GetBytes(resp.Body(), "Members.0")
	if !first.Exists() {
		return nil, nil
	}
	return certificates.get(s.client, first.Get(escapePath(fieldID)).String())
}

// Certificates walks CertificateLocations.
func (s *certificateService) Certificates() ([]*Certificate, error) {
	resp, err := s.client.Get(s.child("CertificateLocations"))
	if err != nil {
		return nil, fmt.Errorf("getting certificate locations: %w", err)
	}
	links := gjson.GetBytes(resp.Body(), escapePath("Links", "Certificates"))
	return certificates.members(s.client, links)
}

func (s *certificateService) ReplaceCertificate(old *Certificate, content, format string) error {
	if old == nil {
		return newInvalidValue("certificate to replace is required")
	}
	if old.Deleted() {
		return ErrResourceDeleted
	}
	if content == "" {
		return newInvalidValue("certificate content must not be empty")
	}
	if format == "" {
		format = "PEM"
	}
	_, err := s.action("CertificateService.ReplaceCertificate", map[string]any{
		"CertificateUri":    map[string]any{fieldID: old.Path()},
		"CertificateType":   format,
		"CertificateString": content,
	})
	if err != nil {
		return err
	}
	return old.Reload()
}

func (s *certificateService) GenerateCSR(req CSRRequest) (string, error) {
	if len(req.Country) != 2 {
		return "", newInvalidValue(fmt.Sprintf(
			"country must have 2 characters, %q has %d", req.Country, len(req.Country)))
	}
	loc, err := s.location(req.Type)
	if err != nil {
		return "", err
	}
	if req.KeyPairAlgorithm == "" {
		req.KeyPairAlgorithm = "EC"
	}
	if req.KeyCurveID == "" {
		req.KeyCurveID = "secp384r1"
	}
	if req.AlternativeNames == nil {
		req.AlternativeNames = []string{}
	}
	if req.KeyUsage == nil {
		req.KeyUsage = []string{}
	}

	resp, err := s.action("CertificateService.GenerateCSR", map[string]any{
		"CertificateCollection": map[string]any{fieldID: loc},
		"Country":               req.Country,
		"City":                  req.City,
		"CommonName":            req.CommonName,
		"State":                 req.State,
		"Organization":          req.Organization,
		"OrganizationalUnit":    req.OrganizationalUnit,
		"AlternativeNames":      req.AlternativeNames,
		"KeyUsage":              req.KeyUsage,
		"ChallengePassword":     req.ChallengePassword,
		"ContactPerson":         req.ContactPerson,
		"Email":                 req.Email,
		"GivenName":             req.GivenName,
		"Initials":              req.Initials,
		"KeyCurveId":            req.KeyCurveID,
		"KeyPairAlgorithm":      req.KeyPairAlgorithm,
		"Surname":               req.Surname,
		"UnstructuredName":      req.UnstructuredName,
	})
	if err != nil {
		return "", err
	}
	csr := gjson.GetBytes(resp.Body(), "CSRString")
	if !csr.Exists() {
		return "", typederrors.NewFieldNotFoundError("CSRString")
	}
	return csr.String(), nil
}

// mockupCertificateService fills in the metadata a real BMC derives from
// the certificate itself.
type mockupCertificateService struct {
	*certificateService
}

const mockupPlaceholder = "Data is not presented in mockup object"

func (s *mockupCertificateService) AddCertificate(t CertificateType, content string) (*Certificate, error) {
	return s.add(t, map[string]any{
		"@odata.type":       "#Certificate.v1_0_0.Certificate",
		"CertificateString": content,
		"Issuer":            mockupPlaceholder,
		"KeyUsage":          mockupPlaceholder,
		"Name":              mockupPlaceholder,
		"Subject":           mockupPlaceholder,
		"ValidNotAfter":     mockupPlaceholder,
		"ValidNotBefore":    mockupPlaceholder,
	})
}
