// Package redfish implements the typed Redfish resource model: payload
// classification into versioned variants, cached field access, reload-based
// mutation and collection traversal.
package redfish

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/williamzujkowski/obmc-manager/internal/rest"
	"github.com/williamzujkowski/obmc-manager/internal/transport"
	"github.com/williamzujkowski/obmc-manager/internal/typederrors"
)

// ErrResourceDeleted is returned by any operation on a handle whose DELETE succeeded.
var ErrResourceDeleted = errors.New("resource has been deleted")

const (
	fieldID      = "@odata.id"
	fieldType    = "@odata.type"
	fieldMockup  = "@odata.mockup"
	mockupSuffix = ".Mockup"
)

// Resource is one addressable JSON document on the BMC together with the
// last fetched copy of its state.
type Resource struct {
	client  *rest.Client
	path    string
	data    []byte
	deleted bool
}

func newResource(client *rest.Client, payload []byte) (*Resource, error) {
	if err := checkPayload(payload); err != nil {
		return nil, err
	}
	return &Resource{
		client: client,
		path:   strings.TrimRight(gjson.GetBytes(payload, escapePath(fieldID)).String(), "/"),
		data:   payload,
	}, nil
}

func checkPayload(payload []byte) error {
	if !gjson.ValidBytes(payload) || !gjson.ParseBytes(payload).IsObject() {
		return typederrors.NewModelLoadError("payload is not a JSON object", nil)
	}
	if !gjson.GetBytes(payload, escapePath(fieldID)).Exists() {
		return typederrors.NewModelLoadError("cannot identify object id from data", nil)
	}
	if !gjson.GetBytes(payload, escapePath(fieldType)).Exists() {
		return typederrors.NewModelLoadError("cannot identify object type from data", nil)
	}
	return nil
}

// discriminator returns the registry key for payload.
func discriminator(payload []byte) string {
	version := gjson.GetBytes(payload, escapePath(fieldType)).String()
	if gjson.GetBytes(payload, escapePath(fieldMockup)).Bool() {
		version += mockupSuffix
	}
	return version
}

// Path returns the resource location with any trailing slash removed.
func (r *Resource) Path() string {
	return r.path
}

// ODataType returns the schema version the resource was loaded with.
func (r *Resource) ODataType() string {
	return gjson.GetBytes(r.data, escapePath(fieldType)).String()
}

// Deleted reports whether the resource has been removed from the BMC.
func (r *Resource) Deleted() bool {
	return r.deleted
}

// ID returns the Id property.
func (r *Resource) ID() (string, error) {
	return r.stringField("Id")
}

// Name returns the Name property.
func (r *Resource) Name() (string, error) {
	return r.stringField("Name")
}

// Raw returns a copy of the cached document.
func (r *Resource) Raw() json.RawMessage {
	out := make([]byte, len(r.data))
	copy(out, r.data)
	return out
}

// Data returns the cached document decoded into generic JSON values.
func (r *Resource) Data() map[string]any {
	var m map[string]any
	_ = json.Unmarshal(r.data, &m) // validated as an object on load
	return m
}

// Field returns the value at the given key path. Each element names one
// level of nesting, so keys containing dots need no escaping.
func (r *Resource) Field(keys ...string) (gjson.Result, error) {
	if r.deleted {
		return gjson.Result{}, ErrResourceDeleted
	}
	res := gjson.GetBytes(r.data, escapePath(keys...))
	if !res.Exists() {
		return gjson.Result{}, typederrors.NewFieldNotFoundError(strings.Join(keys, "."))
	}
	return res, nil
}

// Reload replaces the cached document with a fresh GET.
func (r *Resource) Reload() error {
	if r.deleted {
		return ErrResourceDeleted
	}
	resp, err := r.client.Get(r.path)
	if err != nil {
		return fmt.Errorf("reloading %s: %w", r.path, err)
	}
	payload := resp.Body()
	if err := checkPayload(payload); err != nil {
		return err
	}
	r.data = payload
	return nil
}

func (r *Resource) stringField(keys ...string) (string, error) {
	res, err := r.Field(keys...)
	if err != nil {
		return "", err
	}
	return res.String(), nil
}

func (r *Resource) boolField(keys ...string) (bool, error) {
	res, err := r.Field(keys...)
	if err != nil {
		return false, err
	}
	return res.Bool(), nil
}

func (r *Resource) intField(keys ...string) (int, error) {
	res, err := r.Field(keys...)
	if err != nil {
		return 0, err
	}
	return int(res.Int()), nil
}

func (r *Resource) stringsField(keys ...string) ([]string, error) {
	res, err := r.Field(keys...)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(res.Array()))
	for _, v := range res.Array() {
		out = append(out, v.String())
	}
	return out, nil
}

func (r *Resource) decodeField(v any, keys ...string) error {
	res, err := r.Field(keys...)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(res.Raw), v); err != nil {
		return typederrors.NewJSONDecodeError(fmt.Sprintf("decoding %s", strings.Join(keys, ".")), err)
	}
	return nil
}

// linkPath returns the @odata.id stored under keys.
func (r *Resource) linkPath(keys ...string) (string, error) {
	return r.stringField(append(keys, fieldID)...)
}

func (r *Resource) child(sub string) string {
	return r.path + "/" + strings.TrimLeft(sub, "/")
}

// patch sends body to the resource and reloads the cached state.
func (r *Resource) patch(body any) error {
	if r.deleted {
		return ErrResourceDeleted
	}
	if _, err := r.client.Patch(r.path, body); err != nil {
		return fmt.Errorf("patching %s: %w", r.path, err)
	}
	return r.Reload()
}

// action invokes a Redfish action, preferring the target the resource advertises.
func (r *Resource) action(name string, body any) (*transport.Response, error) {
	if r.deleted {
		return nil, ErrResourceDeleted
	}
	target := r.child("Actions/" + name)
	if res := gjson.GetBytes(r.data, escapePath("Actions", "#"+name, "target")); res.Exists() && res.String() != "" {
		target = res.String()
	}
	resp, err := r.client.Post(target, body)
	if err != nil {
		return nil, fmt.Errorf("invoking %s: %w", name, err)
	}
	return resp, nil
}

// delete removes the resource; the handle is unusable afterwards.
func (r *Resource) delete() error {
	if r.deleted {
		return ErrResourceDeleted
	}
	if _, err := r.client.Delete(r.path); err != nil {
		return fmt.Errorf("deleting %s: %w", r.path, err)
	}
	r.deleted = true
	return nil
}

func (r *Resource) String() string {
	return fmt.Sprintf("Resource(%s)", r.path)
}

var pathEscaper = strings.NewReplacer(
	`\`, `\\`,
	`.`, `\.`,
	`*`, `\*`,
	`?`, `\?`,
	`|`, `\|`,
	`#`, `\#`,
	`@`, `\@`,
	`!`, `\!`,
	`=`, `\=`,
	`<`, `\<`,
	`>`, `\>`,
	`%`, `\%`,
	`:`, `\:`,
)

// escapePath builds a gjson path from literal keys.
func escapePath(keys ...string) string {
	escaped := make([]string, len(keys))
	for i, k := range keys {
		escaped[i] = pathEscaper.Replace(k)
	}
	return strings.Join(escaped, ".")
}
