package auth

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"rwpay/internal/core/apperror"
	"rwpay/internal/core/id"
	"rwpay/internal/core/tx"
)

type memUsers struct {
	mu    sync.Mutex
	items map[id.ID]*User
}

func (m *memUsers) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.items[u.ID] = &cp
	return nil
}

func (m *memUsers) GetByID(_ context.Context, uid id.ID) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.items[uid]
	if !ok {
		return nil, apperror.NewNotFound("user", uid)
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.items {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("user", email)
}

func (m *memUsers) Update(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.items[u.ID] = &cp
	return nil
}

func (m *memUsers) Exists(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	return err == nil, nil
}

type memTokens struct {
	mu    sync.Mutex
	items map[string]*RefreshToken
}

func (m *memTokens) SaveRefreshToken(_ context.Context, t *RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.items[t.TokenHash] = &cp
	return nil
}

func (m *memTokens) GetRefreshToken(_ context.Context, hash string) (*RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.items[hash]
	if !ok {
		return nil, apperror.NewNotFound("refresh_token", "")
	}
	cp := *t
	return &cp, nil
}

func (m *memTokens) revoke(match func(*RefreshToken) bool, reason string) {
	now := time.Now()
	for _, t := range m.items {
		if match(t) && t.RevokedAt == nil {
			t.RevokedAt = &now
			t.RevokedReason = &reason
		}
	}
}

func (m *memTokens) RevokeRefreshToken(_ context.Context, tokenID id.ID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoke(func(t *RefreshToken) bool { return t.ID == tokenID }, reason)
	return nil
}

func (m *memTokens) RevokeAllUserTokens(_ context.Context, userID id.ID, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoke(func(t *RefreshToken) bool { return t.UserID == userID }, reason)
	return nil
}

func (m *memTokens) CleanupExpiredTokens(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, t := range m.items {
		if t.ExpiresAt.Before(before) {
			delete(m.items, k)
			n++
		}
	}
	return n, nil
}

func newTestService(t *testing.T) (*Service, *memUsers) {
	t.Helper()
	users := &memUsers{items: map[id.ID]*User{}}
	tokens := &memTokens{items: map[string]*RefreshToken{}}
	cfg := DefaultServiceConfig()
	cfg.BcryptCost = bcrypt.MinCost
	cfg.MaxLoginAttempts = 3
	svc := NewService(users, tokens, tx.Noop{}, NewJWTService(DefaultJWTConfig("test-secret")), cfg)
	return svc, users
}

func TestCreateAdmin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := t.Context()

	u, err := svc.CreateAdmin(ctx, CreateAdminRequest{Email: " Bendahara@RW05.id ", Password: "rahasia123", Name: "Bendahara"})
	require.NoError(t, err)
	assert.Equal(t, "bendahara@rw05.id", u.Email)
	assert.Equal(t, RoleAdmin, u.Role)

	_, err = svc.CreateAdmin(ctx, CreateAdminRequest{Email: "bendahara@rw05.id", Password: "rahasia123"})
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict))

	_, err = svc.CreateAdmin(ctx, CreateAdminRequest{Email: "x@rw05.id", Password: "short"})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = svc.CreateAdmin(ctx, CreateAdminRequest{Email: "x@rw05.id", Password: "rahasia123", Role: "root"})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestLoginRefreshLogout(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := t.Context()

	_, err := svc.CreateAdmin(ctx, CreateAdminRequest{Email: "ketua@rw05.id", Password: "rahasia123", Role: RoleSuperAdmin})
	require.NoError(t, err)

	pair, user, err := svc.Login(ctx, Credentials{Email: "KETUA@rw05.id", Password: "rahasia123"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.NotNil(t, user.LastLoginAt)

	uc, err := svc.jwtService.ValidateToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), uc.UserID)
	assert.True(t, uc.IsSuperAdmin())
	assert.Contains(t, uc.Permissions, PermSettingsWrite)

	next, err := svc.Refresh(ctx, pair.RefreshToken, "", "")
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	_, err = svc.Refresh(ctx, pair.RefreshToken, "", "")
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized), "rotated token is revoked")

	require.NoError(t, svc.Logout(ctx, user.ID))
	_, err = svc.Refresh(ctx, next.RefreshToken, "", "")
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
}

func TestLogin_LockoutAfterFailures(t *testing.T) {
	svc, users := newTestService(t)
	ctx := t.Context()

	u, err := svc.CreateAdmin(ctx, CreateAdminRequest{Email: "admin@rw05.id", Password: "rahasia123"})
	require.NoError(t, err)

	for range 3 {
		_, _, err := svc.Login(ctx, Credentials{Email: "admin@rw05.id", Password: "wrong-password"})
		assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
	}

	_, _, err = svc.Login(ctx, Credentials{Email: "admin@rw05.id", Password: "rahasia123"})
	assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))

	stored, err := users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsLocked(time.Now().UTC()))

	_, _, err = svc.Login(ctx, Credentials{Email: "nobody@rw05.id", Password: "rahasia123"})
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
}

func TestRole_Permissions(t *testing.T) {
	admin := &User{Role: RoleAdmin}
	assert.True(t, admin.HasPermission(PermPaymentsWrite))
	assert.False(t, admin.HasPermission(PermSettingsWrite))

	perms := RoleAdmin.Permissions()
	perms[0] = "mutated"
	assert.Equal(t, PermResidentsRead, RoleAdmin.Permissions()[0])
}

func TestJWT_RejectsForeignSecret(t *testing.T) {
	u := NewUser("a@rw05.id", "", "A", RoleAdmin)
	token, _, err := NewJWTService(DefaultJWTConfig("one")).GenerateAccessToken(u, "", time.Now())
	require.NoError(t, err)

	_, err = NewJWTService(DefaultJWTConfig("two")).ValidateToken(token)
	assert.Error(t, err)
}
