package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"shop-service/config"
	"shop-service/internal/models"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// AdminStore looks up back-office accounts
type AdminStore interface {
	GetAdminByUsername(ctx context.Context, username string) (*models.Admin, error)
}

// Claims is the payload of an admin session token
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// AdminID returns the numeric account id carried in the subject claim
func (c *Claims) AdminID() int64 {
	id, _ := strconv.ParseInt(c.Subject, 10, 64)
	return id
}

// Service verifies admin credentials and issues signed session tokens
type Service struct {
	store  AdminStore
	secret []byte
	ttl    time.Duration
	logger *zap.Logger
}

// NewService creates a new auth service. Without a configured secret a random one
// is generated, so tokens do not survive a restart.
func NewService(adminStore AdminStore, cfg config.AuthConfig) *Service {
	logger := util.GetLogger()

	secret := cfg.JWTSecret
	if secret == "" {
		secret = uuid.NewString()
		logger.Warn("JWT_SECRET is not set, using a per-process secret")
	}

	return &Service{
		store:  adminStore,
		secret: []byte(secret),
		ttl:    cfg.TokenTTL,
		logger: logger,
	}
}

// Login checks the password against the stored bcrypt hash and returns a signed token
func (s *Service) Login(ctx context.Context, username, password string) (string, *models.Admin, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Login")
	defer span.End()

	admin, err := s.store.GetAdminByUsername(ctx, username)
	if errors.Is(err, store.ErrAdminNotFound) {
		s.logger.Info("Login for unknown admin", zap.String("username", username))
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to load admin: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		s.logger.Info("Login with wrong password", zap.String("username", username))
		return "", nil, ErrInvalidCredentials
	}

	token, err := s.IssueToken(admin)
	if err != nil {
		return "", nil, err
	}
	return token, admin, nil
}

// IssueToken signs an HS256 token for the admin
func (s *Service) IssueToken(admin *models.Admin) (string, error) {
	now := time.Now()
	claims := &Claims{
		Username: admin.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(admin.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies the signature and expiry of a token
func (s *Service) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// HashPassword returns the bcrypt hash stored for an admin account
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
