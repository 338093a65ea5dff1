package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/onegreenvn/bizdoc-services-backend/internal/apperror"
	"github.com/onegreenvn/bizdoc-services-backend/internal/config"
	"github.com/onegreenvn/bizdoc-services-backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserStore is the subset of the user repository the auth service needs
type UserStore interface {
	Create(user *models.User) error
	GetByID(id string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	CheckEmailExists(email string) (bool, error)
	Update(user *models.User) error
	UpdateLastLogin(userID string) error
	UpdatePassword(userID, passwordHash string) error
	SetActive(userID string, active bool) error
	IncrementTokenVersion(userID string) error
}

// TokenStore persists refresh tokens
type TokenStore interface {
	Create(token *models.RefreshToken) error
	GetByToken(token string) (*models.RefreshToken, error)
	Rotate(old, next *models.RefreshToken) error
	RevokeToken(token string) error
	RevokeAllUserTokens(userID string) error
}

type AuthService struct {
	userRepo         UserStore
	refreshTokenRepo TokenStore
	jwtSecret        []byte
	issuer           string
	accessTokenTTL   time.Duration
	refreshTokenTTL  time.Duration
	bcryptCost       int
	now              func() time.Time
}

func NewAuthService(cfg config.AuthConfig, users UserStore, tokens TokenStore) *AuthService {
	logrus.Infof("Access token TTL: %s", cfg.AccessTokenTTL)
	logrus.Infof("Refresh token TTL: %s", cfg.RefreshTokenTTL)

	return &AuthService{
		userRepo:         users,
		refreshTokenRepo: tokens,
		jwtSecret:        []byte(cfg.JWTSecret),
		issuer:           cfg.Issuer,
		accessTokenTTL:   cfg.AccessTokenTTL,
		refreshTokenTTL:  cfg.RefreshTokenTTL,
		bcryptCost:       bcrypt.DefaultCost,
		now:              time.Now,
	}
}

// Signup registers a new user and signs them in
func (s *AuthService) Signup(req *models.SignupRequest) (*models.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	exists, err := s.userRepo.CheckEmailExists(email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if exists {
		return nil, apperror.Conflict("email already registered")
	}

	hashedPassword, err := s.hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hashedPassword,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		BusinessName: strings.TrimSpace(req.BusinessName),
		IsActive:     true,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.generateAuthResponse(user, "", "")
}

// Login authenticates a user by email and password
func (s *AuthService) Login(req *models.LoginRequest, userAgent, ip string) (*models.AuthResponse, error) {
	user, err := s.userRepo.GetByEmail(normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Unauthorized("invalid credentials")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperror.Unauthorized("invalid credentials")
	}

	if !user.IsActive {
		return nil, apperror.Forbidden("account is deactivated")
	}

	if err := s.userRepo.UpdateLastLogin(user.ID); err != nil {
		logrus.Warnf("Failed to update last login for user %s: %v", user.ID, err)
	}

	return s.generateAuthResponse(user, userAgent, ip)
}

// RefreshToken exchanges a refresh token for a new token pair. Presenting a
// token that was already rotated revokes every session of the user.
func (s *AuthService) RefreshToken(refreshTokenStr, userAgent, ip string) (*models.AuthResponse, error) {
	refreshToken, err := s.refreshTokenRepo.GetByToken(refreshTokenStr)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Unauthorized("invalid refresh token")
		}
		return nil, fmt.Errorf("failed to load refresh token: %w", err)
	}

	if refreshToken.IsRevoked && refreshToken.ReplacedBy != nil {
		logrus.Warnf("Refresh token reuse detected for user %s, revoking all sessions", refreshToken.UserID)
		if err := s.revokeSessions(refreshToken.UserID); err != nil {
			logrus.Errorf("Failed to revoke sessions for user %s: %v", refreshToken.UserID, err)
		}
		return nil, apperror.Unauthorized("invalid refresh token")
	}
	if !refreshToken.Usable(s.now()) {
		return nil, apperror.Unauthorized("refresh token expired")
	}

	user, err := s.userRepo.GetByID(refreshToken.UserID)
	if err != nil {
		return nil, apperror.Unauthorized("user not found")
	}
	if !user.IsActive {
		return nil, apperror.Forbidden("account is deactivated")
	}

	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	next, err := s.newRefreshToken(user, userAgent, ip)
	if err != nil {
		return nil, err
	}
	if err := s.refreshTokenRepo.Rotate(refreshToken, next); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Unauthorized("invalid refresh token")
		}
		return nil, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	return &models.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: next.Token,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTokenTTL.Seconds()),
		User:         *user,
	}, nil
}

// Logout revokes one refresh token, or every session when none is given
func (s *AuthService) Logout(refreshTokenStr string, userID string) error {
	if refreshTokenStr != "" {
		return s.refreshTokenRepo.RevokeToken(refreshTokenStr)
	}
	return s.revokeSessions(userID)
}

func (s *AuthService) revokeSessions(userID string) error {
	if err := s.userRepo.IncrementTokenVersion(userID); err != nil {
		return fmt.Errorf("failed to increment token version: %w", err)
	}
	if err := s.refreshTokenRepo.RevokeAllUserTokens(userID); err != nil {
		return fmt.Errorf("failed to revoke all refresh tokens: %w", err)
	}
	return nil
}

// ValidateToken validates a JWT and checks it against the user's current
// token version. It returns the loaded user alongside the token info.
func (s *AuthService) ValidateToken(tokenString string) (*models.TokenInfo, *models.User, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid {
		return nil, nil, errors.New("invalid token claims")
	}

	user, err := s.userRepo.GetByID(claims.UserID)
	if err != nil {
		return nil, nil, errors.New("user not found")
	}
	if !user.IsActive {
		return nil, nil, errors.New("account is deactivated")
	}
	if claims.TokenVersion != user.TokenVersion {
		return nil, nil, errors.New("token version mismatch")
	}

	return &models.TokenInfo{
		UserID:       claims.UserID,
		Email:        claims.Email,
		TokenVersion: claims.TokenVersion,
		ExpiresAt:    claims.ExpiresAt.Time,
	}, user, nil
}

func (s *AuthService) generateAuthResponse(user *models.User, userAgent, ip string) (*models.AuthResponse, error) {
	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.newRefreshToken(user, userAgent, ip)
	if err != nil {
		return nil, err
	}
	if err := s.refreshTokenRepo.Create(refreshToken); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &models.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken.Token,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.accessTokenTTL.Seconds()),
		User:         *user,
	}, nil
}

func (s *AuthService) generateAccessToken(user *models.User) (string, error) {
	now := s.now()
	claims := &models.JWTClaims{
		UserID:       user.ID,
		Email:        user.Email,
		TokenVersion: user.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Subject:   user.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func (s *AuthService) newRefreshToken(user *models.User, userAgent, ip string) (*models.RefreshToken, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, fmt.Errorf("failed to generate random token: %w", err)
	}
	if len(userAgent) > 500 {
		userAgent = userAgent[:500]
	}
	return &models.RefreshToken{
		Token:     hex.EncodeToString(tokenBytes),
		UserID:    user.ID,
		ExpiresAt: s.now().Add(s.refreshTokenTTL),
		UserAgent: userAgent,
		IPAddress: ip,
	}, nil
}

// CreateAdminUser creates the bootstrap admin if no user has that email.
// An empty password skips the bootstrap.
func (s *AuthService) CreateAdminUser(email, password string) error {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		logrus.Warn("ADMIN_EMAIL or ADMIN_PASSWORD not set, skipping admin bootstrap")
		return nil
	}

	exists, err := s.userRepo.CheckEmailExists(email)
	if err != nil {
		return fmt.Errorf("failed to check admin user: %w", err)
	}
	if exists {
		return nil
	}

	hashedPassword, err := s.hash(password)
	if err != nil {
		return err
	}

	adminUser := &models.User{
		Email:        email,
		PasswordHash: hashedPassword,
		FirstName:    "Admin",
		LastName:     "User",
		IsActive:     true,
		IsAdmin:      true,
	}
	if err := s.userRepo.Create(adminUser); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}
	logrus.Infof("Created admin user %s", email)
	return nil
}

// GetUser returns a user by ID
func (s *AuthService) GetUser(userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user not found")
		}
		return nil, err
	}
	return user, nil
}

// UpdateProfile changes the caller's display fields
func (s *AuthService) UpdateProfile(userID string, req *models.UpdateProfileRequest) (*models.User, error) {
	user, err := s.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.BusinessName != nil {
		user.BusinessName = strings.TrimSpace(*req.BusinessName)
	}
	if err := s.userRepo.Update(user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// SetUserActive sets the active status of a user. Deactivation ends every
// session immediately.
func (s *AuthService) SetUserActive(userID string, isActive bool) error {
	if _, err := s.GetUser(userID); err != nil {
		return err
	}
	if err := s.userRepo.SetActive(userID, isActive); err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}
	if !isActive {
		return s.refreshTokenRepo.RevokeAllUserTokens(userID)
	}
	return nil
}

// ChangePassword changes a user's own password after verifying the current one
func (s *AuthService) ChangePassword(userID string, currentPassword, newPassword string) error {
	user, err := s.GetUser(userID)
	if err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return apperror.Validation("current password is incorrect")
	}

	return s.setPassword(userID, newPassword)
}

// ResetPassword sets a user's password without the current one (admin only)
func (s *AuthService) ResetPassword(userID, newPassword string) error {
	if _, err := s.GetUser(userID); err != nil {
		return err
	}
	return s.setPassword(userID, newPassword)
}

func (s *AuthService) setPassword(userID, password string) error {
	hashedPassword, err := s.hash(password)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdatePassword(userID, hashedPassword); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return s.refreshTokenRepo.RevokeAllUserTokens(userID)
}

func (s *AuthService) hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
