package redfish

import (
	"path"
	"strings"

	"github.com/williamzujkowski/obmc-manager/internal/typederrors"
)

// Status is the common Redfish health block.
type Status struct {
	State        string `json:"State,omitempty"`
	Health       string `json:"Health,omitempty"`
	HealthRollup string `json:"HealthRollup,omitempty"`
}

func (r *Resource) status() (Status, error) {
	var s Status
	err := r.decodeField(&s, "Status")
	return s, err
}

func (r *Resource) object(keys ...string) (map[string]any, error) {
	var m map[string]any
	err := r.decodeField(&m, keys...)
	return m, err
}

// lastSegment returns the final element of a resource path.
func lastSegment(p string) string {
	return path.Base(p)
}

// parentPath returns p without its last segment, or p itself when it has none.
func parentPath(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[:i]
	}
	return p
}

func newInvalidValue(msg string) error {
	return typederrors.NewSchemaValidationError(msg, nil)
}
