package cache

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func joinWithSeparator(parts ...string) string {
	return strings.Join(parts, KeySeparator)
}

func TestKey_String(t *testing.T) {
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")

	tests := []struct {
		name string
		key  Key
		want string
	}{
		{
			name: "no scope",
			key:  NewKey("user", "all"),
			want: joinWithSeparator("user", "all"),
		},
		{
			name: "uuid scope",
			key:  NewKey("category", "byGroup", id),
			want: joinWithSeparator("category", "byGroup", id.String()),
		},
		{
			name: "string and uuid scope",
			key:  NewKey("category", "exists", "food", id),
			want: joinWithSeparator("category", "exists", "food", id.String()),
		},
		{
			name: "nil exclusion pointer",
			key:  NewKey("user", "exists", "a@x.com", (*uuid.UUID)(nil)),
			want: joinWithSeparator("user", "exists", "a@x.com", "nil"),
		},
		{
			name: "set exclusion pointer",
			key:  NewKey("user", "exists", "a@x.com", &id),
			want: joinWithSeparator("user", "exists", "a@x.com", id.String()),
		},
		{
			name: "bool and int scope",
			key:  NewKey("item", "byFlag", true, 42),
			want: joinWithSeparator("item", "byFlag", "true", "42"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.String(); got != tt.want {
				t.Errorf("String() = %v, want %v", got, tt.want)
			}
		})
	}
}

// Two existence checks that differ in any parameter must render to
// different keys, otherwise one group's answer could serve another's
// question.
func TestKey_ScopeDiscrimination(t *testing.T) {
	groupA := uuid.MustParse("aaaaaaaa-0000-0000-0000-000000000000")
	groupB := uuid.MustParse("bbbbbbbb-0000-0000-0000-000000000000")
	exclude := uuid.MustParse("cccccccc-0000-0000-0000-000000000000")

	keys := []Key{
		NewKey("category", "exists", "food", groupA, (*uuid.UUID)(nil)),
		NewKey("category", "exists", "food", groupB, (*uuid.UUID)(nil)),
		NewKey("category", "exists", "food", groupA, &exclude),
		NewKey("category", "exists", "drinks", groupA, (*uuid.UUID)(nil)),
	}

	seen := make(map[string]Key, len(keys))
	for _, k := range keys {
		rendered := k.String()
		if prev, dup := seen[rendered]; dup {
			t.Errorf("keys %v and %v both render to %q", prev, k, rendered)
		}
		seen[rendered] = k
	}
}

func TestFamilyKey_Matches(t *testing.T) {
	fam := FamilyKey{Service: "item", Family: "byGroup"}

	tests := []struct {
		name string
		key  string
		want bool
	}{
		{
			name: "bare family key",
			key:  joinWithSeparator("item", "byGroup"),
			want: true,
		},
		{
			name: "scoped member",
			key:  joinWithSeparator("item", "byGroup", "some-id"),
			want: true,
		},
		{
			name: "longer family name sharing the prefix",
			key:  joinWithSeparator("item", "byGroupAndDate", "some-id"),
			want: false,
		},
		{
			name: "different family",
			key:  joinWithSeparator("item", "byEntry", "some-id"),
			want: false,
		},
		{
			name: "different service",
			key:  joinWithSeparator("category", "byGroup", "some-id"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fam.Matches(tt.key); got != tt.want {
				t.Errorf("Matches(%q) = %v, want %v", tt.key, got, tt.want)
			}
		})
	}
}

func TestKey_FamilyKey(t *testing.T) {
	key := NewKey("user", "exists", "a@x.com")
	fam := key.FamilyKey()
	if !fam.Matches(key.String()) {
		t.Errorf("family %q does not match its own key %q", fam.Prefix(), key.String())
	}
}
