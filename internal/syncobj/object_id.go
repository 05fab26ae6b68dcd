// Package syncobj maintains the synchronized objects: permission-filtered,
// server-computed projections of domain state pushed to every entitled
// participant whenever the underlying state changes.
package syncobj

import (
	"fmt"
	"sort"
	"strings"
)

// ObjectID addresses one logical synchronized object. The textual form is
// "id?key=value&key2=value2" with the parameters sorted, so equal ids always
// render equally and can be used as map keys via String.
type ObjectID struct {
	ID     string
	Params map[string]string
}

func NewObjectID(id string, params map[string]string) ObjectID {
	return ObjectID{ID: id, Params: params}
}

func (o ObjectID) String() string {
	if len(o.Params) == 0 {
		return o.ID
	}
	keys := make([]string, 0, len(o.Params))
	for k := range o.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + o.Params[k]
	}
	return o.ID + "?" + strings.Join(parts, "&")
}

// ParseObjectID reverses String.
func ParseObjectID(s string) (ObjectID, error) {
	id, query, hasQuery := strings.Cut(s, "?")
	if id == "" {
		return ObjectID{}, fmt.Errorf("empty synchronized object id %q", s)
	}
	if !hasQuery {
		return ObjectID{ID: id}, nil
	}
	params := make(map[string]string)
	for _, pair := range strings.Split(query, "&") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return ObjectID{}, fmt.Errorf("malformed synchronized object id %q", s)
		}
		params[k] = v
	}
	return ObjectID{ID: id, Params: params}, nil
}
