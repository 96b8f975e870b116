package auth

import (
	"strings"
)

type Role string

const (
	RoleSeller      Role = "seller"
	RoleAdmin       Role = "admin"
	RoleSystemAdmin Role = "systemAdmin"
)

// RoleSet is the set of portal roles granted by a profile.
type RoleSet struct {
	Seller      bool
	Admin       bool
	SystemAdmin bool
}

func (r RoleSet) Has(role Role) bool {
	switch role {
	case RoleSeller:
		return r.Seller
	case RoleAdmin:
		return r.Admin
	case RoleSystemAdmin:
		return r.SystemAdmin
	default:
		return false
	}
}

// Any reports whether at least one of roles is present.
func (r RoleSet) Any(roles ...Role) bool {
	for _, role := range roles {
		if r.Has(role) {
			return true
		}
	}
	return false
}

func (r RoleSet) Names() []string {
	names := make([]string, 0, 3)
	if r.Seller {
		names = append(names, string(RoleSeller))
	}
	if r.Admin {
		names = append(names, string(RoleAdmin))
	}
	if r.SystemAdmin {
		names = append(names, string(RoleSystemAdmin))
	}
	return names
}

// ClassifyRoles reads the "role" claim, which identity providers emit either
// as a single string or as an array.
func ClassifyRoles(claims map[string]any) RoleSet {
	var set RoleSet
	for _, name := range roleNames(claims["role"]) {
		switch Role(name) {
		case RoleSeller:
			set.Seller = true
		case RoleAdmin:
			set.Admin = true
		case RoleSystemAdmin:
			set.SystemAdmin = true
		}
	}
	return set
}

func roleNames(v any) []string {
	switch typed := v.(type) {
	case string:
		return []string{strings.TrimSpace(typed)}
	case []string:
		return typed
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			if s, ok := item.(string); ok {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	default:
		return nil
	}
}

// EmailVerified accepts both boolean and "true" string claim values.
func EmailVerified(claims map[string]any) bool {
	switch typed := claims["email_verified"].(type) {
	case bool:
		return typed
	case string:
		return strings.EqualFold(strings.TrimSpace(typed), "true")
	default:
		return false
	}
}
