package access

import "github.com/magabrotheeeer/strata-gate/internal/models"

// Grantor describes who is editing a grant.
type Grantor struct {
	SuperAdmin bool
	Role       models.Role
	Surfaces   Set
}

// CanGrant reports whether grantor may hand out surface as special access.
// Handing out admin needs an admin-eligible role that already holds admin;
// anything else needs the admin surface.
func CanGrant(grantor Grantor, surface models.Surface) bool {
	if !surface.IsKnown() {
		return false
	}
	if grantor.SuperAdmin {
		return true
	}
	if !grantor.Surfaces.Has(models.SurfaceAdmin) {
		return false
	}
	if surface == models.SurfaceAdmin {
		return AdminEligible(grantor.Role)
	}
	return true
}

// CanAssignRole reports whether grantor may put someone into role. Only
// admin-eligible grantors may create other admin-eligible members.
func CanAssignRole(grantor Grantor, role models.Role) bool {
	if !role.IsTenantRole() {
		return false
	}
	if grantor.SuperAdmin {
		return true
	}
	if !grantor.Surfaces.Has(models.SurfaceAdmin) {
		return false
	}
	if AdminEligible(role) {
		return AdminEligible(grantor.Role)
	}
	return true
}
