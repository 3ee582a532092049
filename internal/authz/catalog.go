package authz

import "slices"

// Permission identifies one atomic capability from the closed catalog.
type Permission string

// Category groups related permissions for catalog listings.
type Category string

// Catalog categories.
const (
	CategoryUsers  Category = "users"
	CategoryTeams  Category = "teams"
	CategoryAudit  Category = "audit"
	CategorySystem Category = "system"
)

// Platform permissions. The catalog is closed: identifiers outside this
// set never resolve to an allow.
const (
	PermUsersView   Permission = "users.view"
	PermUsersCreate Permission = "users.create"
	PermUsersEdit   Permission = "users.edit"
	PermUsersDelete Permission = "users.delete"

	PermTeamsView          Permission = "teams.view"
	PermTeamsManageMembers Permission = "teams.manage_members"

	PermAuditView   Permission = "audit.view"
	PermAuditExport Permission = "audit.export"

	PermSystemSettings Permission = "system.settings"
)

var catalog = map[Permission]Category{
	PermUsersView:   CategoryUsers,
	PermUsersCreate: CategoryUsers,
	PermUsersEdit:   CategoryUsers,
	PermUsersDelete: CategoryUsers,

	PermTeamsView:          CategoryTeams,
	PermTeamsManageMembers: CategoryTeams,

	PermAuditView:   CategoryAudit,
	PermAuditExport: CategoryAudit,

	PermSystemSettings: CategorySystem,
}

// Valid reports whether the permission belongs to the catalog.
func (p Permission) Valid() bool {
	_, ok := catalog[p]
	return ok
}

// PermissionCategory returns the category a permission belongs to.
// Unknown permissions report ok=false.
func PermissionCategory(p Permission) (Category, bool) {
	cat, ok := catalog[p]
	return cat, ok
}

// Catalog returns every permission in the closed set, sorted by name.
func Catalog() []Permission {
	perms := make([]Permission, 0, len(catalog))
	for p := range catalog {
		perms = append(perms, p)
	}
	sortPermissions(perms)
	return perms
}

// PermissionsInCategory returns the catalog subset for one category, sorted by name.
func PermissionsInCategory(cat Category) []Permission {
	var perms []Permission
	for p, c := range catalog {
		if c == cat {
			perms = append(perms, p)
		}
	}
	sortPermissions(perms)
	return perms
}

func sortPermissions(perms []Permission) {
	slices.Sort(perms)
}
