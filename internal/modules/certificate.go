package modules

import (
	"fmt"
	"os"
	"path/filepath"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/williamzujkowski/obmc-manager/internal/redfish"
	"github.com/williamzujkowski/obmc-manager/internal/typederrors"
)

// SSLParams installs, replaces or removes a certificate. The content comes
// from Content, or from the file at Path when Content is empty.
type SSLParams struct {
	Type    string `json:"crt_type"`
	Path    string `json:"crt_path,omitempty"`
	Content string `json:"crt_content,omitempty"`
	Format  string `json:"crt_format,omitempty"`
	State   State  `json:"state,omitempty"`
}

func (p SSLParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Type, validation.Required),
		validation.Field(&p.Content, validation.When(!p.State.absent() && p.Path == "",
			validation.Required.Error("crt_path or crt_content is required"))),
		validation.Field(&p.State, validation.In(StatePresent, StateAbsent)),
	)
}

func (p SSLParams) content() (string, error) {
	if p.Content != "" {
		return p.Content, nil
	}
	raw, err := os.ReadFile(p.Path)
	if err != nil {
		return "", fmt.Errorf("reading certificate: %w", err)
	}
	return string(raw), nil
}

// SSLConfig manages the HTTPS, LDAP or CA certificate. Only CA certificates
// can be removed. A certificate with identical content is left untouched.
func (r *Runner) SSLConfig(p SSLParams) (Result, error) {
	return r.run("ssl_config", func() (Result, error) {
		if err := invalid(p.Validate()); err != nil {
			return Result{}, err
		}
		certType, err := redfish.ParseCertificateType(p.Type)
		if err != nil {
			return Result{}, err
		}
		if p.State.absent() && certType != redfish.CertificateCA {
			return Result{}, invalidf("state absent is allowed only for CA certificates")
		}

		svc, err := r.client.API().CertificateService()
		if err != nil {
			return Result{}, err
		}
		current, err := svc.Certificate(certType)
		if err != nil {
			return Result{}, err
		}

		if p.State.absent() {
			if current == nil {
				return r.apply(msgUnchanged)
			}
			return r.apply(msgChanged, current.Delete)
		}

		content, err := p.content()
		if err != nil {
			return Result{}, err
		}
		if current == nil {
			return r.apply(msgChanged, func() error {
				_, err := svc.AddCertificate(certType, content)
				return err
			})
		}
		existing, err := current.Content()
		if err != nil && !typederrors.IsFieldNotFoundError(err) {
			return Result{}, err
		}
		if existing == content {
			return r.apply(msgUnchanged)
		}
		return r.apply(msgChanged, func() error {
			return svc.ReplaceCertificate(current, content, p.Format)
		})
	})
}

// CSRParams requests a certificate signing request. When Path is set the
// CSR is also written to that file.
type CSRParams struct {
	redfish.CSRRequest
	Path string `json:"path,omitempty"`
}

func (p CSRParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Type, validation.Required,
			validation.In(redfish.CertificateHTTPS, redfish.CertificateLDAP)),
		validation.Field(&p.Country, validation.Required),
		validation.Field(&p.City, validation.Required),
		validation.Field(&p.CommonName, validation.Required),
		validation.Field(&p.State, validation.Required),
		validation.Field(&p.Organization, validation.Required),
		validation.Field(&p.OrganizationalUnit, validation.Required),
		validation.Field(&p.Path, validation.By(checkOutputPath)),
	)
}

func checkOutputPath(v any) error {
	p, _ := v.(string)
	if p == "" {
		return nil
	}
	if info, err := os.Stat(filepath.Dir(p)); err != nil || !info.IsDir() {
		return fmt.Errorf("directory %s does not exist", filepath.Dir(p))
	}
	if info, err := os.Stat(p); err == nil && info.IsDir() {
		return fmt.Errorf("%s is a directory", p)
	}
	return nil
}

// GenerateCSR asks the BMC for a new key pair and CSR. The CSR is returned
// in Data["csr_content"]. In check mode nothing is generated.
func (r *Runner) GenerateCSR(p CSRParams) (Result, error) {
	return r.run("generate_csr", func() (Result, error) {
		if t, err := redfish.ParseCertificateType(string(p.Type)); err == nil {
			p.Type = t
		}
		if err := invalid(p.Validate()); err != nil {
			return Result{}, err
		}
		svc, err := r.client.API().CertificateService()
		if err != nil {
			return Result{}, err
		}

		var csr string
		res, err := r.apply(msgChanged, func() error {
			var err error
			if csr, err = svc.GenerateCSR(p.CSRRequest); err != nil {
				return err
			}
			if p.Path == "" {
				return nil
			}
			return os.WriteFile(p.Path, []byte(csr), 0o600)
		})
		if err != nil {
			return res, err
		}
		res.Data = map[string]any{"csr_content": csr}
		return res, nil
	})
}
