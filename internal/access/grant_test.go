package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/strata-gate/internal/models"
)

func grantorFor(role models.Role, special ...models.Surface) Grantor {
	return Grantor{Role: role, Surfaces: AccessibleSurfaces(role, special)}
}

func TestCanGrant(t *testing.T) {
	tests := []struct {
		name    string
		grantor Grantor
		surface models.Surface
		want    bool
	}{
		{"chairperson grants admin", grantorFor(models.RoleChairperson), models.SurfaceAdmin, true},
		{"property manager grants financial", grantorFor(models.RolePropertyManager), models.SurfaceFinancial, true},
		{"treasurer without admin grants nothing", grantorFor(models.RoleTreasurer), models.SurfaceDocuments, false},
		{"treasurer with admin grants admin", grantorFor(models.RoleTreasurer, models.SurfaceAdmin), models.SurfaceAdmin, true},
		{"resident cannot grant", grantorFor(models.RoleResident, models.SurfaceAdmin), models.SurfaceDashboard, false},
		{"unknown surface", grantorFor(models.RoleChairperson), "payroll", false},
		{"super admin grants admin", Grantor{SuperAdmin: true}, models.SurfaceAdmin, true},
		{"admin-bearing non-eligible role cannot grant admin", Grantor{Role: models.RoleCouncilMember, Surfaces: NewSet(models.SurfaceAdmin)}, models.SurfaceAdmin, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanGrant(tt.grantor, tt.surface))
		})
	}
}

func TestCanAssignRole(t *testing.T) {
	chair := grantorFor(models.RoleChairperson)
	for _, role := range models.TenantRoles {
		assert.True(t, CanAssignRole(chair, role), role)
	}
	assert.False(t, CanAssignRole(chair, models.RoleAdministrator))
	assert.False(t, CanAssignRole(grantorFor(models.RoleResident), models.RoleResident))
	assert.False(t, CanAssignRole(Grantor{Role: models.RoleCouncilMember, Surfaces: NewSet(models.SurfaceAdmin)}, models.RoleTreasurer))
	assert.True(t, CanAssignRole(Grantor{Role: models.RoleCouncilMember, Surfaces: NewSet(models.SurfaceAdmin)}, models.RoleResident))
	assert.True(t, CanAssignRole(Grantor{SuperAdmin: true}, models.RoleChairperson))
}

func TestContext_ForSuperAdmin(t *testing.T) {
	ctx := ForSuperAdmin(models.Principal{UserID: "root", Email: "root@example.com", SuperAdmin: true}, "tenant-1")
	assert.Equal(t, models.Surfaces, ctx.AccessibleSurfaces())
	assert.True(t, ctx.Grantor().SuperAdmin)
}

func TestContext_ForGrantUsesTenantRole(t *testing.T) {
	p := models.Principal{UserID: "u1", Email: "u1@example.com", GlobalRole: models.RoleResident}
	g := models.TenantAccessGrant{UserUID: "u1", TenantID: "t1", Role: models.RoleTreasurer}
	ctx := ForGrant(p, g)
	assert.Equal(t, models.RoleTreasurer, ctx.TenantRole)
	assert.Equal(t, AccessibleSurfaces(models.RoleTreasurer, nil).Slice(), ctx.AccessibleSurfaces())
}
