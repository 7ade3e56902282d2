package access

import "github.com/magabrotheeeer/strata-gate/internal/models"

// Context is what a gated handler sees about its caller in one tenant.
type Context struct {
	UserID               string      `json:"userId"`
	Email                string      `json:"email"`
	TenantID             string      `json:"tenantId"`
	TenantRole           models.Role `json:"tenantRole"`
	CanPostAnnouncements bool        `json:"canPostAnnouncements"`
	SuperAdmin           bool        `json:"superAdmin"`
	Surfaces             Set         `json:"-"`
}

// AccessibleSurfaces returns the surfaces in stable order for serialization.
func (c Context) AccessibleSurfaces() []models.Surface {
	return c.Surfaces.Slice()
}

// Grantor returns the context as a grant editor.
func (c Context) Grantor() Grantor {
	return Grantor{
		SuperAdmin: c.SuperAdmin,
		Role:       c.TenantRole,
		Surfaces:   c.Surfaces,
	}
}

// ForGrant builds the context for a member of a tenant.
func ForGrant(p models.Principal, g models.TenantAccessGrant) Context {
	return Context{
		UserID:               p.UserID,
		Email:                p.Email,
		TenantID:             g.TenantID,
		TenantRole:           g.Role,
		CanPostAnnouncements: g.CanPostAnnouncements,
		Surfaces:             AccessibleSurfaces(g.Role, g.SpecialAccess),
	}
}

// ForSuperAdmin builds the unconditional context of the super-administrator.
func ForSuperAdmin(p models.Principal, tenantID string) Context {
	return Context{
		UserID:               p.UserID,
		Email:                p.Email,
		TenantID:             tenantID,
		TenantRole:           models.RoleAdministrator,
		CanPostAnnouncements: true,
		SuperAdmin:           true,
		Surfaces:             All(),
	}
}
