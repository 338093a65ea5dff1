package auth

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/onegreenvn/bizdoc-services-backend/internal/apperror"
	"github.com/onegreenvn/bizdoc-services-backend/internal/config"
	"github.com/onegreenvn/bizdoc-services-backend/internal/models"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]*models.User
	seq   int
}

func newMemUsers() *memUsers { return &memUsers{users: map[string]*models.User{}} }

func (m *memUsers) Create(u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	u.ID = fmt.Sprintf("user-%d", m.seq)
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUsers) GetByID(id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByEmail(email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memUsers) CheckEmailExists(email string) (bool, error) {
	_, err := m.GetByEmail(email)
	return err == nil, nil
}

func (m *memUsers) Update(u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUsers) UpdateLastLogin(string) error { return nil }

func (m *memUsers) UpdatePassword(id, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id].PasswordHash = hash
	m.users[id].TokenVersion++
	return nil
}

func (m *memUsers) SetActive(id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id].IsActive = active
	m.users[id].TokenVersion++
	return nil
}

func (m *memUsers) IncrementTokenVersion(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id].TokenVersion++
	return nil
}

type memTokens struct {
	mu     sync.Mutex
	tokens map[string]*models.RefreshToken
	seq    int
}

func newMemTokens() *memTokens { return &memTokens{tokens: map[string]*models.RefreshToken{}} }

func (m *memTokens) Create(t *models.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t.ID = fmt.Sprintf("rt-%d", m.seq)
	cp := *t
	m.tokens[t.Token] = &cp
	return nil
}

func (m *memTokens) GetByToken(token string) (*models.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[token]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memTokens) Rotate(old, next *models.RefreshToken) error {
	if err := m.Create(next); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.tokens[old.Token]
	if stored.IsRevoked {
		return gorm.ErrRecordNotFound
	}
	stored.IsRevoked = true
	stored.ReplacedBy = &next.ID
	return nil
}

func (m *memTokens) RevokeToken(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tokens[token]; ok {
		t.IsRevoked = true
	}
	return nil
}

func (m *memTokens) RevokeAllUserTokens(userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.UserID == userID {
			t.IsRevoked = true
		}
	}
	return nil
}

func newTestService() (*AuthService, *memUsers, *memTokens) {
	users, tokens := newMemUsers(), newMemTokens()
	s := NewAuthService(config.AuthConfig{
		JWTSecret:       "test-secret",
		Issuer:          "bizdoc-test",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
	}, users, tokens)
	s.bcryptCost = bcrypt.MinCost
	return s, users, tokens
}

func signup(t *testing.T, s *AuthService) *models.AuthResponse {
	t.Helper()
	resp, err := s.Signup(&models.SignupRequest{
		Email:        " Owner@Acme.test ",
		Password:     "correct-horse",
		BusinessName: "Acme Bakery",
	})
	require.NoError(t, err)
	return resp
}

func TestSignupAndLogin(t *testing.T) {
	s, _, _ := newTestService()
	resp := signup(t, s)
	assert.Equal(t, "owner@acme.test", resp.User.Email)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.NotEmpty(t, resp.RefreshToken)

	_, err := s.Signup(&models.SignupRequest{Email: "owner@acme.test", Password: "another-one"})
	assert.True(t, apperror.HasCode(err, apperror.CodeConflict))

	login, err := s.Login(&models.LoginRequest{Email: "OWNER@acme.test", Password: "correct-horse"}, "ua", "127.0.0.1")
	require.NoError(t, err)

	info, user, err := s.ValidateToken(login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, info.UserID)
	assert.Equal(t, "Acme Bakery", user.BusinessName)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s, _, _ := newTestService()
	signup(t, s)

	_, err := s.Login(&models.LoginRequest{Email: "owner@acme.test", Password: "wrong"}, "", "")
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))

	_, err = s.Login(&models.LoginRequest{Email: "nobody@acme.test", Password: "x"}, "", "")
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
}

func TestDeactivatedUserCannotLoginOrUseTokens(t *testing.T) {
	s, _, _ := newTestService()
	resp := signup(t, s)

	require.NoError(t, s.SetUserActive(resp.User.ID, false))

	_, err := s.Login(&models.LoginRequest{Email: "owner@acme.test", Password: "correct-horse"}, "", "")
	assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))

	_, _, err = s.ValidateToken(resp.AccessToken)
	assert.Error(t, err)
}

func TestRefreshRotatesAndDetectsReuse(t *testing.T) {
	s, _, _ := newTestService()
	resp := signup(t, s)

	next, err := s.RefreshToken(resp.RefreshToken, "", "")
	require.NoError(t, err)
	assert.NotEqual(t, resp.RefreshToken, next.RefreshToken)

	// replaying the rotated token revokes every session
	_, err = s.RefreshToken(resp.RefreshToken, "", "")
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))

	_, err = s.RefreshToken(next.RefreshToken, "", "")
	assert.Error(t, err)
	_, _, err = s.ValidateToken(next.AccessToken)
	assert.Error(t, err)
}

func TestRefreshRejectsExpiredToken(t *testing.T) {
	s, _, _ := newTestService()
	resp := signup(t, s)

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err := s.RefreshToken(resp.RefreshToken, "", "")
	assert.True(t, apperror.HasCode(err, apperror.CodeUnauthorized))
}

func TestChangePasswordInvalidatesTokens(t *testing.T) {
	s, _, _ := newTestService()
	resp := signup(t, s)

	err := s.ChangePassword(resp.User.ID, "wrong", "new-password-1")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	require.NoError(t, s.ChangePassword(resp.User.ID, "correct-horse", "new-password-1"))
	_, _, err = s.ValidateToken(resp.AccessToken)
	assert.Error(t, err)

	_, err = s.Login(&models.LoginRequest{Email: "owner@acme.test", Password: "new-password-1"}, "", "")
	assert.NoError(t, err)
}

func TestLogoutEverywhere(t *testing.T) {
	s, _, _ := newTestService()
	resp := signup(t, s)

	require.NoError(t, s.Logout("", resp.User.ID))
	_, _, err := s.ValidateToken(resp.AccessToken)
	assert.Error(t, err)
	_, err = s.RefreshToken(resp.RefreshToken, "", "")
	assert.Error(t, err)
}

func TestCreateAdminUser(t *testing.T) {
	s, users, _ := newTestService()
	require.NoError(t, s.CreateAdminUser("admin@bizdoc.test", ""))
	assert.Empty(t, users.users)

	require.NoError(t, s.CreateAdminUser("admin@bizdoc.test", "admin-pass"))
	require.NoError(t, s.CreateAdminUser("admin@bizdoc.test", "admin-pass"))
	require.Len(t, users.users, 1)

	admin, err := users.GetByEmail("admin@bizdoc.test")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin)
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	s, _, _ := newTestService()
	resp := signup(t, s)

	other, _, _ := newTestService()
	other.jwtSecret = []byte("other-secret")
	_, _, err := other.ValidateToken(resp.AccessToken)
	assert.Error(t, err)
}
