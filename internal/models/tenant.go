package models

import "time"

// Tenant is an independently managed strata.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Surface is an access-controlled application area. The set is closed.
type Surface string

const (
	SurfaceDashboard      Surface = "dashboard"
	SurfaceFinancial      Surface = "financial"
	SurfaceLevies         Surface = "levies"
	SurfaceQuotes         Surface = "quotes"
	SurfaceVendors        Surface = "vendors"
	SurfaceDwellings      Surface = "dwellings"
	SurfaceDocuments      Surface = "documents"
	SurfaceMeetings       Surface = "meetings"
	SurfaceMaintenance    Surface = "maintenance"
	SurfaceCommunications Surface = "communications"
	SurfaceReports        Surface = "reports"
	SurfaceAdmin          Surface = "admin"
)

// Surfaces is every known surface in display order.
var Surfaces = []Surface{
	SurfaceDashboard,
	SurfaceFinancial,
	SurfaceLevies,
	SurfaceQuotes,
	SurfaceVendors,
	SurfaceDwellings,
	SurfaceDocuments,
	SurfaceMeetings,
	SurfaceMaintenance,
	SurfaceCommunications,
	SurfaceReports,
	SurfaceAdmin,
}

// IsKnown reports whether s belongs to the closed surface set.
func (s Surface) IsKnown() bool {
	for _, known := range Surfaces {
		if s == known {
			return true
		}
	}
	return false
}

// TenantAccessGrant ties a user to a tenant. There is at most one grant per
// (UserUID, TenantID).
type TenantAccessGrant struct {
	UserUID              string    `json:"user_id"`
	TenantID             string    `json:"tenant_id"`
	Role                 Role      `json:"role"`
	CanPostAnnouncements bool      `json:"can_post_announcements"`
	SpecialAccess        []Surface `json:"special_access"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// TenantMembership is a grant joined with its tenant, used by "list my tenants".
type TenantMembership struct {
	Tenant Tenant            `json:"tenant"`
	Grant  TenantAccessGrant `json:"grant"`
}
