// Package auth provides administrator authentication and role-based authorization.
package auth

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"rwpay/internal/core/apperror"
	"rwpay/internal/core/id"
)

// Role of an administrator account.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// Permission codes checked by the HTTP layer.
const (
	PermResidentsRead  = "residents:read"
	PermResidentsWrite = "residents:write"
	PermPaymentsRead   = "payments:read"
	PermPaymentsWrite  = "payments:write"
	PermReportsRead    = "reports:read"
	PermSettingsRead   = "settings:read"
	PermSettingsWrite  = "settings:write"
	PermAdminsManage   = "admins:manage"
)

var rolePermissions = map[Role][]string{
	RoleAdmin: {
		PermResidentsRead, PermResidentsWrite,
		PermPaymentsRead, PermPaymentsWrite,
		PermReportsRead,
		PermSettingsRead,
	},
	RoleSuperAdmin: {
		PermResidentsRead, PermResidentsWrite,
		PermPaymentsRead, PermPaymentsWrite,
		PermReportsRead,
		PermSettingsRead, PermSettingsWrite,
		PermAdminsManage,
	},
}

// Permissions returns the permissions granted by the role.
func (r Role) Permissions() []string {
	return slices.Clone(rolePermissions[r])
}

// User is an administrator of the association.
type User struct {
	ID                  id.ID      `db:"id" json:"id"`
	Email               string     `db:"email" json:"email"`
	PasswordHash        string     `db:"password_hash" json:"-"`
	Name                string     `db:"name" json:"name"`
	Role                Role       `db:"role" json:"role"`
	IsActive            bool       `db:"is_active" json:"isActive"`
	LastLoginAt         *time.Time `db:"last_login_at" json:"lastLoginAt,omitempty"`
	FailedLoginAttempts int        `db:"failed_login_attempts" json:"-"`
	LockedUntil         *time.Time `db:"locked_until" json:"-"`
	CreatedAt           time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updatedAt"`
	Version             int        `db:"version" json:"version"`
}

func NewUser(email, passwordHash, name string, role Role) *User {
	now := time.Now().UTC()
	return &User{
		ID:           id.New(),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: passwordHash,
		Name:         strings.TrimSpace(name),
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      1,
	}
}

var validate = validator.New()

func (u *User) Validate(_ context.Context) error {
	if u.Email == "" {
		return apperror.NewValidation("email is required").WithDetail("field", "email")
	}
	if err := validate.Var(u.Email, "email"); err != nil {
		return apperror.NewValidation("email is invalid").WithDetail("field", "email")
	}
	if !u.Role.Valid() {
		return apperror.NewValidation("role must be admin or super_admin").WithDetail("field", "role")
	}
	return nil
}

func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

// CanLogin rejects disabled and locked accounts.
func (u *User) CanLogin(now time.Time) error {
	if !u.IsActive {
		return apperror.NewForbidden("account is disabled")
	}
	if u.IsLocked(now) {
		return apperror.NewForbidden("account is temporarily locked")
	}
	return nil
}

// RecordFailedLogin locks the account once maxAttempts is reached.
func (u *User) RecordFailedLogin(now time.Time, maxAttempts int, lockDuration time.Duration) {
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts >= maxAttempts {
		lockUntil := now.Add(lockDuration)
		u.LockedUntil = &lockUntil
	}
}

func (u *User) RecordSuccessfulLogin(now time.Time) {
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
	u.LastLoginAt = &now
}

func (u *User) HasPermission(perm string) bool {
	return slices.Contains(rolePermissions[u.Role], perm)
}

// RefreshToken is the stored (hashed) half of a refresh token.
type RefreshToken struct {
	ID            id.ID      `db:"id"`
	UserID        id.ID      `db:"user_id"`
	TokenHash     string     `db:"token_hash"`
	ExpiresAt     time.Time  `db:"expires_at"`
	CreatedAt     time.Time  `db:"created_at"`
	RevokedAt     *time.Time `db:"revoked_at"`
	RevokedReason *string    `db:"revoked_reason"`
	UserAgent     string     `db:"user_agent"`
	IPAddress     string     `db:"ip_address"`
}

func (t *RefreshToken) IsValid(now time.Time) bool {
	return t.RevokedAt == nil && now.Before(t.ExpiresAt)
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	TokenType    string    `json:"tokenType"`
}

type Credentials struct {
	Email     string
	Password  string
	UserAgent string
	IPAddress string
}

type CreateAdminRequest struct {
	Email    string
	Password string
	Name     string
	Role     Role
}
