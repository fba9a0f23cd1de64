// Package roles defines the role hierarchy and the permission sets derived from it.
package roles

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

type Role string

const (
	Owner  Role = "owner"
	Admin  Role = "admin"
	Member Role = "member"
)

// ParseRole validates a raw role string coming from storage or a request.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case Owner:
		return Owner, nil
	case Admin:
		return Admin, nil
	case Member:
		return Member, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// ParseDepartmentRole is ParseRole restricted to the roles a department can hold.
func ParseDepartmentRole(s string) (Role, error) {
	r, err := ParseRole(s)
	if err != nil {
		return "", err
	}
	if r == Owner {
		return "", fmt.Errorf("departments have no %q role", Owner)
	}
	return r, nil
}

func (r Role) String() string { return string(r) }

// Rank orders roles from least to most privileged.
func (r Role) Rank() int {
	switch r {
	case Owner:
		return 3
	case Admin:
		return 2
	case Member:
		return 1
	}
	return 0
}

type Permission string

const (
	DeleteTeam        Permission = "delete_team"
	EditTeamSettings  Permission = "edit_team_settings"
	AddMembers        Permission = "add_members"
	RemoveMembers     Permission = "remove_members"
	ChangeMemberRoles Permission = "change_member_roles"
	ManageDepartments Permission = "manage_departments"
	ManageProjects    Permission = "manage_projects"
	ManageOwnProjects Permission = "manage_own_projects"
)

// universe is the closed permission enum in bit order.
var universe = []Permission{
	DeleteTeam,
	EditTeamSettings,
	AddMembers,
	RemoveMembers,
	ChangeMemberRoles,
	ManageDepartments,
	ManageProjects,
	ManageOwnProjects,
}

func (p Permission) bit() (uint16, bool) {
	for i, q := range universe {
		if q == p {
			return 1 << uint(i), true
		}
	}
	return 0, false
}

// PermissionSet is an immutable subset of the permission enum.
type PermissionSet struct {
	bits uint16
}

// All is the full permission universe.
var All = NewPermissionSet(universe...)

func NewPermissionSet(perms ...Permission) PermissionSet {
	var s PermissionSet
	for _, p := range perms {
		if b, ok := p.bit(); ok {
			s.bits |= b
		}
	}
	return s
}

// ParsePermissionSet builds a set from stored strings and rejects anything outside the enum.
func ParsePermissionSet(raw []string) (PermissionSet, error) {
	var s PermissionSet
	for _, v := range raw {
		b, ok := Permission(strings.TrimSpace(v)).bit()
		if !ok {
			return PermissionSet{}, fmt.Errorf("unknown permission %q", v)
		}
		s.bits |= b
	}
	return s, nil
}

func (s PermissionSet) Has(p Permission) bool {
	b, ok := p.bit()
	return ok && s.bits&b != 0
}

func (s PermissionSet) With(perms ...Permission) PermissionSet {
	return PermissionSet{bits: s.bits | NewPermissionSet(perms...).bits}
}

func (s PermissionSet) Without(perms ...Permission) PermissionSet {
	return PermissionSet{bits: s.bits &^ NewPermissionSet(perms...).bits}
}

func (s PermissionSet) IsEmpty() bool { return s.bits == 0 }

func (s PermissionSet) Equal(o PermissionSet) bool { return s.bits == o.bits }

// Strings returns the sorted storage form of the set. Never nil.
func (s PermissionSet) Strings() []string {
	out := make([]string, 0, len(universe))
	for _, p := range universe {
		if s.Has(p) {
			out = append(out, string(p))
		}
	}
	sort.Strings(out)
	return out
}

func (s PermissionSet) String() string {
	return "[" + strings.Join(s.Strings(), " ") + "]"
}

func (s PermissionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Strings())
}

var defaults = map[Role]PermissionSet{
	Owner:  All,
	Admin:  All.Without(DeleteTeam),
	Member: NewPermissionSet(ManageOwnProjects),
}

// DefaultPermissions derives the permission set a role starts with.
func DefaultPermissions(r Role) PermissionSet {
	return defaults[r]
}

// EffectivePermissions returns the stored set when one was recorded, else the role default.
func EffectivePermissions(r Role, stored PermissionSet) PermissionSet {
	if !stored.IsEmpty() {
		return stored
	}
	return DefaultPermissions(r)
}
