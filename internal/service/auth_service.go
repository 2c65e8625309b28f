package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"freelance-market/internal/event"
	"freelance-market/internal/metrics"
	"freelance-market/internal/model"
	"freelance-market/pkg/apierror"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

type AuthConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	BcryptCost    int
}

// AuthService issues, verifies, rotates and revokes session credentials. Each
// user holds at most one valid refresh token: the value stored on the user row.
type AuthService struct {
	users         UserStore
	audit         *AuditService
	bus           event.Bus
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	bcryptCost    int
}

func NewAuthService(users UserStore, audit *AuditService, bus event.Bus, cfg AuthConfig) *AuthService {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	return &AuthService{
		users:         users,
		audit:         audit,
		bus:           bus,
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		bcryptCost:    cost,
	}
}

func (s *AuthService) Register(ctx context.Context, name string, email string, password string, rawRole string) (model.AuthUser, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" || email == "" || password == "" || strings.TrimSpace(rawRole) == "" {
		return model.AuthUser{}, apierror.Validation("Please fill all fields", "name|email|password|role")
	}

	role, ok := model.ParseRole(rawRole)
	if !ok {
		return model.AuthUser{}, apierror.Validation("role must be BUYER or SELLER", rawRole)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return model.AuthUser{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	actor := model.AuditActor{UserID: user.ID, Email: email, Role: role}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, model.ErrEmailTaken) {
			metrics.AuthEventsTotal.WithLabelValues("register", "email_taken").Inc()
			s.audit.Log(ctx, AuditUserRegister, actor, model.AuditStatusFailed, "", nil, nil, err.Error())
			return model.AuthUser{}, apierror.From(model.ErrEmailTaken, func(msg string) *apierror.APIError {
				return apierror.Conflict(msg, email)
			})
		}
		return model.AuthUser{}, err
	}

	metrics.AuthEventsTotal.WithLabelValues("register", "success").Inc()
	s.audit.Log(ctx, AuditUserRegister, actor, model.AuditStatusSuccess, "user:"+user.ID, nil, user.Public(), "")
	publish(s.bus, event.New(event.TypeUserRegistered, user.ID, user.Public()))

	return user.Public(), nil
}

func (s *AuthService) Login(ctx context.Context, email string, password string) (model.TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return model.TokenPair{}, apierror.Validation("Please fill all fields", "email|password")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.TokenPair{}, s.rejectLogin(ctx, email)
	}
	if err != nil {
		return model.TokenPair{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return model.TokenPair{}, s.rejectLogin(ctx, email)
	}

	pair, err := s.issueTokenPair(user)
	if err != nil {
		return model.TokenPair{}, err
	}

	if err := s.users.SetRefreshToken(ctx, user.ID, &pair.RefreshToken); err != nil {
		return model.TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}

	metrics.AuthEventsTotal.WithLabelValues("login", "success").Inc()
	s.audit.Log(ctx, AuditUserLogin, actorOf(user), model.AuditStatusSuccess, "user:"+user.ID, nil, nil, "")

	return pair, nil
}

func (s *AuthService) rejectLogin(ctx context.Context, email string) error {
	metrics.AuthEventsTotal.WithLabelValues("login", "bad_credentials").Inc()
	s.audit.Log(ctx, AuditUserLogin, model.AuditActor{Email: email}, model.AuditStatusFailed, "", nil, nil, model.ErrInvalidCredentials.Error())
	return apierror.From(model.ErrInvalidCredentials, apierror.Unauthorized)
}

// Refresh exchanges a refresh token for a new pair. The presented token must
// be the value currently stored for its user; the swap is conditional on it so
// a rotated-out token can never be exchanged twice.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		metrics.AuthEventsTotal.WithLabelValues("refresh", "missing").Inc()
		return model.TokenPair{}, apierror.From(model.ErrMissingToken, apierror.Unauthorized)
	}

	claims, err := s.ValidateToken(refreshToken, TokenTypeRefresh)
	if err != nil {
		metrics.AuthEventsTotal.WithLabelValues("refresh", "invalid").Inc()
		return model.TokenPair{}, apierror.From(model.ErrInvalidToken, apierror.Forbidden)
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if errors.Is(err, model.ErrUserNotFound) {
		metrics.AuthEventsTotal.WithLabelValues("refresh", "invalid").Inc()
		return model.TokenPair{}, apierror.From(model.ErrInvalidToken, apierror.Forbidden)
	}
	if err != nil {
		return model.TokenPair{}, err
	}

	if user.RefreshToken == nil || *user.RefreshToken != refreshToken {
		return model.TokenPair{}, s.rejectReuse(ctx, user)
	}

	pair, err := s.issueTokenPair(user)
	if err != nil {
		return model.TokenPair{}, err
	}

	rotated, err := s.users.RotateRefreshToken(ctx, user.ID, refreshToken, pair.RefreshToken)
	if err != nil {
		return model.TokenPair{}, err
	}
	if !rotated {
		return model.TokenPair{}, s.rejectReuse(ctx, user)
	}

	metrics.AuthEventsTotal.WithLabelValues("refresh", "success").Inc()
	return pair, nil
}

func (s *AuthService) rejectReuse(ctx context.Context, user model.User) error {
	metrics.AuthEventsTotal.WithLabelValues("refresh", "reuse").Inc()
	slog.Warn("refresh token does not match stored session", "user_id", user.ID)
	s.audit.Log(ctx, AuditTokenRefresh, actorOf(user), model.AuditStatusFailed, "user:"+user.ID, nil, nil, model.ErrTokenMismatch.Error())
	return apierror.From(model.ErrTokenMismatch, apierror.Forbidden)
}

// Logout revokes the stored refresh token when the presented one verifies.
// It never fails: problems are logged and the caller still sees success.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return
	}

	claims, err := s.ValidateToken(refreshToken, TokenTypeRefresh)
	if err != nil {
		slog.Debug("logout with unverifiable refresh token", "error", err)
		return
	}

	if err := s.users.SetRefreshToken(ctx, claims.UserID, nil); err != nil {
		slog.Error("logout failed to clear refresh token", "user_id", claims.UserID, "error", err)
		return
	}

	metrics.AuthEventsTotal.WithLabelValues("logout", "success").Inc()
	s.audit.Log(ctx, AuditUserLogout, model.AuditActor{UserID: claims.UserID, Email: claims.Email, Role: claims.Role},
		model.AuditStatusSuccess, "user:"+claims.UserID, nil, nil, "")
}

// ValidateToken verifies signature, expiry and token type. Access tokens are
// checked with the access secret, refresh tokens with the refresh secret.
func (s *AuthService) ValidateToken(tokenString string, expectedType string) (*model.AuthClaims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, apierror.From(model.ErrMissingToken, apierror.Unauthorized)
	}

	secret := s.accessSecret
	if expectedType == TokenTypeRefresh {
		secret = s.refreshSecret
	}

	parsed, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return nil, apierror.From(model.ErrInvalidToken, apierror.Unauthorized)
	}

	claimsMap, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, apierror.From(model.ErrInvalidToken, apierror.Unauthorized)
	}

	typ, _ := claimsMap["typ"].(string)
	if expectedType != "" && typ != expectedType {
		return nil, apierror.From(model.ErrInvalidToken, apierror.Unauthorized)
	}

	claims := &model.AuthClaims{Type: typ}
	claims.UserID, _ = claimsMap["id"].(string)
	claims.Email, _ = claimsMap["email"].(string)
	claims.TokenID, _ = claimsMap["jti"].(string)
	rawRole, _ := claimsMap["role"].(string)

	role, ok := model.ParseRole(rawRole)
	if claims.UserID == "" || !ok {
		return nil, apierror.From(model.ErrInvalidToken, apierror.Unauthorized)
	}
	claims.Role = role

	return claims, nil
}

func (s *AuthService) GetUserByID(ctx context.Context, userID string) (model.AuthUser, error) {
	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, model.ErrUserNotFound) {
		return model.AuthUser{}, apierror.From(model.ErrUserNotFound, func(msg string) *apierror.APIError {
			return apierror.NotFound(msg, userID)
		})
	}
	if err != nil {
		return model.AuthUser{}, err
	}
	return user.Public(), nil
}

func (s *AuthService) issueTokenPair(user model.User) (model.TokenPair, error) {
	now := time.Now().UTC()
	accessExp := now.Add(s.accessTTL)
	refreshExp := now.Add(s.refreshTTL)

	accessToken, err := signToken(s.accessSecret, jwt.MapClaims{
		"id":    user.ID,
		"email": user.Email,
		"role":  string(user.Role),
		"typ":   TokenTypeAccess,
		"jti":   uuid.NewString(),
		"iat":   now.Unix(),
		"exp":   accessExp.Unix(),
	})
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, err := signToken(s.refreshSecret, jwt.MapClaims{
		"id":    user.ID,
		"email": user.Email,
		"role":  string(user.Role),
		"typ":   TokenTypeRefresh,
		"jti":   uuid.NewString(),
		"iat":   now.Unix(),
		"exp":   refreshExp.Unix(),
	})
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	return model.TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		TokenType:        "Bearer",
		ExpiresIn:        int64(s.accessTTL.Seconds()),
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
		RefreshTTL:       s.refreshTTL,
		User:             user.Public(),
	}, nil
}

func (s *AuthService) AccessTTL() time.Duration {
	return s.accessTTL
}

func signToken(secret []byte, claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func actorOf(user model.User) model.AuditActor {
	return model.AuditActor{UserID: user.ID, Email: user.Email, Role: user.Role}
}
