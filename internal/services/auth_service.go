package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/markdave123-py/researchhub/internal/core"
	"github.com/markdave123-py/researchhub/internal/models"
)

const (
	minUsernameLen = 3
	minPasswordLen = 6
)

type RegisterInput struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	FullName    string `json:"fullName"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Role        string `json:"role"`
	Institution string `json:"institution"`
}

// Claims carried by an access token.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// AuthService registers accounts and issues, verifies and revokes bearer tokens.
type AuthService struct {
	db       core.DbClient
	denylist core.TokenDenylist
	secret   []byte
	ttl      time.Duration
	log      *zap.Logger
	now      func() time.Time
}

func NewAuthService(db core.DbClient, denylist core.TokenDenylist, secret string, ttl time.Duration, log *zap.Logger) *AuthService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &AuthService{db: db, denylist: denylist, secret: []byte(secret), ttl: ttl, log: log.Named("auth"), now: time.Now}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (string, error) {
	in.Username = strings.TrimSpace(in.Username)
	if len(in.Username) < minUsernameLen {
		return "", core.Validation("Register", "username must be at least %d characters", minUsernameLen)
	}
	if len(in.Password) < minPasswordLen {
		return "", core.Validation("Register", "password must be at least %d characters", minPasswordLen)
	}

	existing, err := s.db.GetUserByUsername(ctx, in.Username)
	if err != nil {
		return "", fmt.Errorf("lookup user: %w", err)
	}
	if existing != nil {
		return "", core.Conflict("Register", "username %q is taken", in.Username)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	u := &models.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		PasswordHash: string(hash),
		FullName:     in.FullName,
		Email:        in.Email,
		Phone:        in.Phone,
		Role:         in.Role,
		Institution:  in.Institution,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.db.CreateUser(ctx, u); err != nil {
		return "", err
	}
	s.log.Info("user registered", zap.String("user_id", u.ID))
	return s.issue(u.ID)
}

func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.db.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return "", fmt.Errorf("lookup user: %w", err)
	}
	if u == nil || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", core.Authentication("Login", "invalid username or password")
	}
	return s.issue(u.ID)
}

func (s *AuthService) issue(userID string) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies signature, expiry and revocation.
func (s *AuthService) ParseToken(ctx context.Context, raw string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !tok.Valid {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, core.Authentication("ParseToken", "token expired")
		}
		return nil, core.Authentication("ParseToken", "invalid token")
	}
	if claims.UserID == "" || claims.ID == "" {
		return nil, core.Authentication("ParseToken", "invalid token claims")
	}

	if s.denylist != nil {
		revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return nil, core.Authentication("ParseToken", "token revoked")
		}
	}
	return claims, nil
}

// Logout revokes the token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, claims *Claims) error {
	if claims == nil || s.denylist == nil {
		return nil
	}
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		if left := claims.ExpiresAt.Sub(s.now()); left > 0 {
			ttl = left
		}
	}
	if err := s.denylist.Revoke(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	s.log.Info("user logged out", zap.String("user_id", claims.UserID))
	return nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (*models.User, error) {
	u, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if u == nil {
		return nil, core.Authentication("Me", "account no longer exists")
	}
	return u, nil
}
