package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/strata-gate/internal/models"
)

func TestAccessibleSurfaces_DefaultTable(t *testing.T) {
	tests := []struct {
		role models.Role
		want []models.Surface
	}{
		{
			role: models.RoleChairperson,
			want: models.Surfaces,
		},
		{
			role: models.RolePropertyManager,
			want: []models.Surface{
				models.SurfaceDashboard, models.SurfaceFinancial, models.SurfaceLevies,
				models.SurfaceQuotes, models.SurfaceVendors, models.SurfaceDwellings,
				models.SurfaceDocuments, models.SurfaceMaintenance, models.SurfaceCommunications,
				models.SurfaceReports, models.SurfaceAdmin,
			},
		},
		{
			role: models.RoleTreasurer,
			want: []models.Surface{
				models.SurfaceDashboard, models.SurfaceFinancial, models.SurfaceLevies,
				models.SurfaceQuotes, models.SurfaceVendors, models.SurfaceDocuments,
				models.SurfaceReports,
			},
		},
		{
			role: models.RoleSecretary,
			want: []models.Surface{
				models.SurfaceDashboard, models.SurfaceDwellings, models.SurfaceDocuments,
				models.SurfaceMeetings, models.SurfaceCommunications, models.SurfaceReports,
			},
		},
		{
			role: models.RoleCouncilMember,
			want: []models.Surface{
				models.SurfaceDashboard, models.SurfaceQuotes, models.SurfaceVendors,
				models.SurfaceDocuments, models.SurfaceMeetings, models.SurfaceMaintenance,
				models.SurfaceCommunications,
			},
		},
		{
			role: models.RoleResident,
			want: []models.Surface{
				models.SurfaceDashboard, models.SurfaceDocuments, models.SurfaceMaintenance,
				models.SurfaceCommunications,
			},
		},
	}

	require.Len(t, tests, len(models.TenantRoles), "every tenant role must be listed")

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			got := AccessibleSurfaces(tt.role, nil)
			assert.Equal(t, tt.want, got.Slice())
		})
	}
}

func TestAccessibleSurfaces_NonEmptyDeterministicSubset(t *testing.T) {
	all := All()
	for _, role := range models.TenantRoles {
		first := AccessibleSurfaces(role, nil)
		assert.NotEmpty(t, first, role)
		assert.True(t, all.Contains(first), role)
		for range 50 {
			assert.Equal(t, first.Slice(), AccessibleSurfaces(role, nil).Slice(), role)
		}
	}
}

func TestAccessibleSurfaces_UnknownRoleFailsClosed(t *testing.T) {
	for _, role := range []models.Role{"", "owner", "ADMIN", models.RoleAdministrator} {
		got := AccessibleSurfaces(role, models.Surfaces)
		assert.Empty(t, got, role)
		assert.Empty(t, DefaultSurfaces(role), role)
	}
}

func TestAccessibleSurfaces_MonotonicUnion(t *testing.T) {
	specialSets := [][]models.Surface{
		nil,
		{models.SurfaceFinancial},
		{models.SurfaceAdmin},
		{models.SurfaceMeetings, models.SurfaceReports, models.SurfaceAdmin},
		{"not-a-surface", models.SurfaceLevies},
		models.Surfaces,
	}
	for _, role := range models.TenantRoles {
		base := AccessibleSurfaces(role, nil)
		for _, special := range specialSets {
			widened := AccessibleSurfaces(role, special)
			assert.True(t, widened.Contains(base), "role %s special %v", role, special)
		}
	}
}

func TestAccessibleSurfaces_AdminRestriction(t *testing.T) {
	for _, role := range models.TenantRoles {
		got := AccessibleSurfaces(role, models.Surfaces)
		assert.Equal(t, AdminEligible(role), got.Has(models.SurfaceAdmin), role)
	}
}

func TestAccessibleSurfaces_SpecialAccessAdds(t *testing.T) {
	got := AccessibleSurfaces(models.RoleResident, []models.Surface{models.SurfaceFinancial, "bogus"})
	assert.True(t, got.Has(models.SurfaceFinancial))
	assert.True(t, got.Has(models.SurfaceDashboard))
	assert.Len(t, got, len(DefaultSurfaces(models.RoleResident))+1)
}

func TestAccessibleSurfaces_TreasurerCanBeGrantedAdmin(t *testing.T) {
	assert.False(t, AccessibleSurfaces(models.RoleTreasurer, nil).Has(models.SurfaceAdmin))
	assert.True(t, AccessibleSurfaces(models.RoleTreasurer, []models.Surface{models.SurfaceAdmin}).Has(models.SurfaceAdmin))
}

func TestParseSurfaces(t *testing.T) {
	got := ParseSurfaces([]string{"admin", "ADMIN", "levies", ""})
	assert.Equal(t, []models.Surface{models.SurfaceAdmin, models.SurfaceLevies}, got)
}
