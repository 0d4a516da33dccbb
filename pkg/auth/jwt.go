package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/jwalitptl/bp-admin-api/internal/model"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token has been revoked")
)

type JWTService interface {
	GenerateAccessToken(user *model.User) (string, *model.TokenClaims, error)
	ValidateToken(token string) (*model.TokenClaims, error)
	// Revoke rejects the token until it would have expired anyway.
	Revoke(claims *model.TokenClaims)
}

type Config struct {
	Secret string
	Issuer string
	Expiry time.Duration
}

type jwtService struct {
	secret  []byte
	issuer  string
	expiry  time.Duration
	revoked *cache.Cache
	now     func() time.Time
}

func NewJWTService(cfg Config) (JWTService, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if cfg.Expiry <= 0 {
		cfg.Expiry = 12 * time.Hour
	}
	return &jwtService{
		secret:  []byte(cfg.Secret),
		issuer:  cfg.Issuer,
		expiry:  cfg.Expiry,
		revoked: cache.New(cfg.Expiry, 10*time.Minute),
		now:     time.Now,
	}, nil
}

func (s *jwtService) GenerateAccessToken(user *model.User) (string, *model.TokenClaims, error) {
	now := s.now()
	claims := &model.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
		},
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, claims, nil
}

func (s *jwtService) ValidateToken(token string) (*model.TokenClaims, error) {
	claims := &model.TokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if _, revoked := s.revoked.Get(claims.ID); revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}

func (s *jwtService) Revoke(claims *model.TokenClaims) {
	if claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return
	}
	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if ttl <= 0 {
		return
	}
	s.revoked.Set(claims.ID, struct{}{}, ttl)
}
