package cache

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// KeySeparator delimits the segments of a rendered cache key.
const KeySeparator = "::"

// Key identifies one cached value inside a namespace. Service and Family
// name the key family (for example "category"/"byGroup"); Scope holds the
// query parameters that discriminate entries within the family (scoping
// ids, normalized names, exclusion ids). Two keys differing in any scope
// element render to different strings, so the predicate cross-product of
// an existence check can never collide.
type Key struct {
	Service string
	Family  string
	Scope   []any
}

// NewKey builds a Key for the given family with optional scope values.
func NewKey(service, family string, scope ...any) Key {
	return Key{Service: service, Family: family, Scope: scope}
}

// Family returns the FamilyKey this key belongs to.
func (k Key) FamilyKey() FamilyKey {
	return FamilyKey{Service: k.Service, Family: k.Family}
}

// String renders the key deterministically: service::family::scope...
func (k Key) String() string {
	parts := make([]string, 0, 2+len(k.Scope))
	parts = append(parts, k.Service, k.Family)
	for _, v := range k.Scope {
		parts = append(parts, serializeScopeValue(v))
	}
	return strings.Join(parts, KeySeparator)
}

// FamilyKey names a whole key family. Invalidating a family clears every
// key whose Service and Family match, regardless of scope.
type FamilyKey struct {
	Service string
	Family  string
}

// Prefix renders the family's key prefix. A key belongs to the family
// when it equals the prefix or continues it with a separator; plain
// string-prefix matching would let "byGroup" invalidation swallow a
// hypothetical "byGroupAndDate" family.
func (f FamilyKey) Prefix() string {
	return f.Service + KeySeparator + f.Family
}

// Matches reports whether the rendered key belongs to this family.
func (f FamilyKey) Matches(renderedKey string) bool {
	prefix := f.Prefix()
	if renderedKey == prefix {
		return true
	}
	return strings.HasPrefix(renderedKey, prefix+KeySeparator)
}

// serializeScopeValue renders one scope value deterministically. Scope
// values are typically uuids, normalized strings, and optional exclusion
// ids (nil pointers render as "nil" so "no exclusion" is its own key).
func serializeScopeValue(v any) string {
	if v == nil {
		return "nil"
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return "nil"
		}
		return serializeScopeValue(rv.Elem().Interface())
	case reflect.Slice:
		if rv.IsNil() {
			return "slice:nil"
		}
		parts := make([]string, rv.Len())
		for i := range parts {
			parts[i] = serializeScopeValue(rv.Index(i).Interface())
		}
		return fmt.Sprintf("slice[%d]:{%s}", len(parts), strings.Join(parts, ","))
	}

	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}

	switch rv.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return fmt.Sprintf("%v", v)
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("fallback:%s", reflect.TypeOf(v).String())
	}
	return fmt.Sprintf("json:%s", string(data))
}
