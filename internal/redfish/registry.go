package redfish

import (
	"fmt"
	"sort"

	"github.com/tidwall/gjson"

	"github.com/williamzujkowski/obmc-manager/internal/rest"
	"github.com/williamzujkowski/obmc-manager/internal/typederrors"
)

// registry maps the discriminators of one resource family to constructors.
// Registries are built once at package init and never modified.
type registry[T any] struct {
	family   string
	variants map[string]func(*Resource) T
}

func newRegistry[T any](family string, variants map[string]func(*Resource) T) registry[T] {
	return registry[T]{family: family, variants: variants}
}

// versions lists the registered discriminators in sorted order.
func (g registry[T]) versions() []string {
	out := make([]string, 0, len(g.variants))
	for v := range g.variants {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// load classifies an already fetched payload.
func (g registry[T]) load(client *rest.Client, payload []byte) (T, error) {
	var zero T
	res, err := newResource(client, payload)
	if err != nil {
		return zero, err
	}
	version := discriminator(payload)
	build, ok := g.variants[version]
	if !ok {
		return zero, typederrors.NewModelVersionError(g.family, version)
	}
	return build(res), nil
}

// get fetches path and classifies the result.
func (g registry[T]) get(client *rest.Client, path string) (T, error) {
	var zero T
	resp, err := client.Get(path)
	if err != nil {
		return zero, fmt.Errorf("getting %s: %w", g.family, err)
	}
	return g.load(client, resp.Body())
}

// lookup is get with a missing resource reported as the zero value.
func (g registry[T]) lookup(client *rest.Client, path string) (T, error) {
	v, err := g.get(client, path)
	if typederrors.IsNotFoundError(err) {
		var zero T
		return zero, nil
	}
	return v, err
}

// collection fetches every member of the collection at path in server order.
func (g registry[T]) collection(client *rest.Client, path string) ([]T, error) {
	resp, err := client.Get(path)
	if err != nil {
		return nil, fmt.Errorf("getting %s collection: %w", g.family, err)
	}
	members := gjson.GetBytes(resp.Body(), "Members")
	if !members.Exists() {
		return nil, typederrors.NewFieldNotFoundError("Members")
	}
	return g.members(client, members)
}

// members resolves a JSON array of {"@odata.id": ...} links.
func (g registry[T]) members(client *rest.Client, links gjson.Result) ([]T, error) {
	out := make([]T, 0, len(links.Array()))
	for _, m := range links.Array() {
		v, err := g.get(client, m.Get(escapePath(fieldID)).String())
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
