package models

import (
	"strings"
	"time"
)

// Role is a user role, global or tenant scoped.
type Role string

// Tenant roles. Administrator only exists as a global role.
const (
	RoleChairperson     Role = "chairperson"
	RoleTreasurer       Role = "treasurer"
	RoleSecretary       Role = "secretary"
	RoleCouncilMember   Role = "council_member"
	RolePropertyManager Role = "property_manager"
	RoleResident        Role = "resident"
	RoleAdministrator   Role = "administrator"
)

// TenantRoles lists the roles a TenantAccessGrant may carry.
var TenantRoles = []Role{
	RoleChairperson,
	RoleTreasurer,
	RoleSecretary,
	RoleCouncilMember,
	RolePropertyManager,
	RoleResident,
}

// IsTenantRole reports whether r may be used in a grant.
func (r Role) IsTenantRole() bool {
	for _, tr := range TenantRoles {
		if r == tr {
			return true
		}
	}
	return false
}

// IsGlobalRole reports whether r may be stored as a user's global role.
func (r Role) IsGlobalRole() bool {
	return r == RoleAdministrator || r.IsTenantRole()
}

// User is a registered account. Users are deactivated, never deleted, so
// dependent records keep a valid author.
type User struct {
	UUID              string     // Unique user identifier
	Email             string     // Stable identity shared by both credential schemes
	Name              string     // Display name
	PasswordHash      string     // Empty for users that only sign in through the identity provider
	Role              Role       // Global role
	IsActive          bool       // false when the account is disabled
	MustResetPassword bool       // Password must be changed on next login
	LastLoginAt       *time.Time // Best-effort, may lag behind
	CreatedAt         time.Time
}

// NormalizeEmail returns the canonical form used for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Principal is the resolved caller of a request.
type Principal struct {
	UserID     string `json:"user_id"`
	Email      string `json:"email"`
	Name       string `json:"name,omitempty"`
	GlobalRole Role   `json:"global_role"`
	SuperAdmin bool   `json:"super_admin"`
	Scheme     string `json:"scheme"`
}
