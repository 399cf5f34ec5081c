package scopes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testRegistry() *Registry {
	return NewRegistry(map[string][]string{
		"notes_list":   {"notes:read"},
		"notes_create": {"notes:write"},
		"health_check": nil,
	})
}

func TestAllScopes_IsUnionSorted(t *testing.T) {
	r := testRegistry()
	assert.Equal(t, []string{"notes:read", "notes:write"}, r.AllScopes())
}

func TestFilterToolNames_OAuthModeFilters(t *testing.T) {
	r := testRegistry()
	tools := []string{"notes_list", "notes_create", "health_check"}

	filtered := r.FilterToolNames(tools, []string{"notes:read"}, true)
	assert.ElementsMatch(t, []string{"notes_list", "health_check"}, filtered)
}

func TestFilterToolNames_BasicModeDoesNotFilter(t *testing.T) {
	r := testRegistry()
	tools := []string{"notes_list", "notes_create"}

	filtered := r.FilterToolNames(tools, nil, false)
	assert.ElementsMatch(t, tools, filtered)
}

func TestAuthorize_MissingScopes(t *testing.T) {
	r := testRegistry()

	ok, missing := r.Authorize("notes_create", []string{"notes:read"})
	assert.False(t, ok)
	assert.Equal(t, []string{"notes:write"}, missing)

	ok, missing = r.Authorize("notes_create", []string{"notes:write"})
	assert.True(t, ok)
	assert.Empty(t, missing)
}

func TestAuthorize_NoRequiredScopesAlwaysAuthorized(t *testing.T) {
	r := testRegistry()
	ok, missing := r.Authorize("health_check", nil)
	assert.True(t, ok)
	assert.Empty(t, missing)
}

func TestMissing_EmptyHeldTreatsAllAsMissing(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Missing([]string{"a", "b"}, nil))
}
