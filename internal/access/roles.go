package access

import "github.com/magabrotheeeer/strata-gate/internal/models"

// defaultSurfaces is the single source of truth for what a tenant role can do.
var defaultSurfaces = map[models.Role][]models.Surface{
	models.RoleChairperson: models.Surfaces,
	models.RolePropertyManager: {
		models.SurfaceDashboard,
		models.SurfaceFinancial,
		models.SurfaceLevies,
		models.SurfaceQuotes,
		models.SurfaceVendors,
		models.SurfaceDwellings,
		models.SurfaceDocuments,
		models.SurfaceMaintenance,
		models.SurfaceCommunications,
		models.SurfaceReports,
		models.SurfaceAdmin,
	},
	models.RoleTreasurer: {
		models.SurfaceDashboard,
		models.SurfaceFinancial,
		models.SurfaceLevies,
		models.SurfaceQuotes,
		models.SurfaceVendors,
		models.SurfaceDocuments,
		models.SurfaceReports,
	},
	models.RoleSecretary: {
		models.SurfaceDashboard,
		models.SurfaceDwellings,
		models.SurfaceDocuments,
		models.SurfaceMeetings,
		models.SurfaceCommunications,
		models.SurfaceReports,
	},
	models.RoleCouncilMember: {
		models.SurfaceDashboard,
		models.SurfaceQuotes,
		models.SurfaceVendors,
		models.SurfaceDocuments,
		models.SurfaceMeetings,
		models.SurfaceMaintenance,
		models.SurfaceCommunications,
	},
	models.RoleResident: {
		models.SurfaceDashboard,
		models.SurfaceDocuments,
		models.SurfaceMaintenance,
		models.SurfaceCommunications,
	},
}

// adminEligible are the only roles that may ever see the admin surface.
var adminEligible = map[models.Role]bool{
	models.RoleChairperson:     true,
	models.RolePropertyManager: true,
	models.RoleTreasurer:       true,
	models.RoleSecretary:       true,
}

// DefaultSurfaces returns the role's default set. Unknown roles get nothing.
func DefaultSurfaces(role models.Role) Set {
	return NewSet(defaultSurfaces[role]...)
}

// AdminEligible reports whether role may hold the admin surface at all.
func AdminEligible(role models.Role) bool {
	return adminEligible[role]
}

// AccessibleSurfaces is the role default united with special access. The admin
// surface is removed again for roles outside the admin-eligible set, whatever
// the grant says. A role that is not a tenant role gets nothing, special
// access included.
func AccessibleSurfaces(role models.Role, specialAccess []models.Surface) Set {
	if !role.IsTenantRole() {
		return NewSet()
	}
	surfaces := DefaultSurfaces(role).Union(NewSet(specialAccess...))
	if !AdminEligible(role) {
		delete(surfaces, models.SurfaceAdmin)
	}
	return surfaces
}

// All returns every surface. Reserved for the super-administrator.
func All() Set {
	return NewSet(models.Surfaces...)
}
