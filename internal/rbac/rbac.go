// Package rbac holds the closed role/action/resource sets and the static
// permission table that maps them to allow/deny. Keeping the matrix as
// explicit data instead of scattered conditionals makes it independently
// testable and lets an admin-supplied override be validated against the
// known sets before it takes effect.
package rbac

import (
	"fmt"
	"strings"
)

type Role string

const (
	RoleAdmin       Role = "admin"
	RoleRadiologist Role = "radiologist"
	RoleTechnician  Role = "technician"
)

type Action string

const (
	ActionRead  Action = "read"
	ActionWrite Action = "write"
)

type Resource string

const (
	ResourcePatient   Resource = "patient"
	ResourceXRay      Resource = "xray"
	ResourceEquipment Resource = "equipment"
	ResourceUser      Resource = "user"
	ResourceAudit     Resource = "audit"
)

var roles = map[Role]bool{
	RoleAdmin:       true,
	RoleRadiologist: true,
	RoleTechnician:  true,
}

var actions = map[Action]bool{
	ActionRead:  true,
	ActionWrite: true,
}

var resources = map[Resource]bool{
	ResourcePatient:   true,
	ResourceXRay:      true,
	ResourceEquipment: true,
	ResourceUser:      true,
	ResourceAudit:     true,
}

type permission struct {
	Action   Action
	Resource Resource
}

// Table maps role to allowed (action, resource) pairs.
type Table map[Role]map[permission]bool

// Default encodes the clinic's authorization matrix: technicians and
// radiologists work with patient and imaging records, only admins touch
// user accounts or the audit trail.
func Default() Table {
	grants := map[Role][][2]string{
		RoleTechnician: {
			{"read", "patient"}, {"write", "patient"},
			{"read", "xray"}, {"write", "xray"},
			{"read", "equipment"},
		},
		RoleRadiologist: {
			{"read", "patient"}, {"write", "patient"},
			{"read", "xray"}, {"write", "xray"},
			{"read", "equipment"},
		},
		RoleAdmin: {
			{"read", "patient"}, {"write", "patient"},
			{"read", "xray"}, {"write", "xray"},
			{"read", "equipment"}, {"write", "equipment"},
			{"read", "user"}, {"write", "user"},
			{"read", "audit"},
		},
	}

	t := make(Table, len(grants))
	for role, pairs := range grants {
		perms := make(map[permission]bool, len(pairs))
		for _, p := range pairs {
			perms[permission{Action(p[0]), Resource(p[1])}] = true
		}
		t[role] = perms
	}
	return t
}

// Allowed reports whether role may perform action on resource. Unknown
// roles or resources are simply denied; denial is a normal result, not
// an error.
func (t Table) Allowed(role Role, action Action, resource Resource) bool {
	perms, ok := t[role]
	if !ok {
		return false
	}
	return perms[permission{action, resource}]
}

// FromOverrides builds a table from config-supplied grants of the form
// role -> ["action:resource", ...]. Every name must belong to the closed
// sets; anything unknown rejects the whole override.
func FromOverrides(overrides map[string][]string) (Table, error) {
	t := make(Table, len(overrides))
	for roleName, grants := range overrides {
		role := Role(roleName)
		if !roles[role] {
			return nil, fmt.Errorf("unknown role %q", roleName)
		}
		perms := make(map[permission]bool, len(grants))
		for _, grant := range grants {
			action, resource, ok := strings.Cut(grant, ":")
			if !ok {
				return nil, fmt.Errorf("malformed grant %q for role %q", grant, roleName)
			}
			if !actions[Action(action)] {
				return nil, fmt.Errorf("unknown action %q in grant for role %q", action, roleName)
			}
			if !resources[Resource(resource)] {
				return nil, fmt.Errorf("unknown resource %q in grant for role %q", resource, roleName)
			}
			perms[permission{Action(action), Resource(resource)}] = true
		}
		t[role] = perms
	}
	return t, nil
}

// ParseRole validates a role name against the closed set.
func ParseRole(name string) (Role, error) {
	role := Role(strings.ToLower(name))
	if !roles[role] {
		return "", fmt.Errorf("unknown role %q", name)
	}
	return role, nil
}

// ParseResource validates a resource name against the closed set.
func ParseResource(name string) (Resource, error) {
	resource := Resource(strings.ToLower(name))
	if !resources[resource] {
		return "", fmt.Errorf("unknown resource %q", name)
	}
	return resource, nil
}
