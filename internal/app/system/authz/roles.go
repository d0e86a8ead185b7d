// internal/app/system/authz/roles.go
package authz

import "strings"

// HasAnyRole reports whether role matches any of the given roles,
// ignoring case and surrounding space.
func HasAnyRole(role string, roles ...string) bool {
	cur := strings.ToLower(strings.TrimSpace(role))
	if cur == "" {
		return false
	}
	for _, want := range roles {
		if cur == strings.ToLower(strings.TrimSpace(want)) {
			return true
		}
	}
	return false
}
