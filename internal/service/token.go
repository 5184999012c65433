package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"cosmetics-shop-api/internal/cache"
	"cosmetics-shop-api/internal/model"
	"cosmetics-shop-api/pkg/uid"
)

const (
	// DefaultTokenTTL is the default token lifetime (1 hour)
	DefaultTokenTTL = 1 * time.Hour

	// RevokedKeyPrefix is the cache key prefix for revoked token ids
	RevokedKeyPrefix = "auth:revoked:"
)

// Claims are the JWT claims carried by an access token.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenConfig holds configuration for the token service.
type TokenConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// TokenService issues and validates HS256 access tokens. Revoked token ids
// are kept in the cache until the token would have expired anyway.
type TokenService struct {
	secret  []byte
	issuer  string
	ttl     time.Duration
	revoked cache.Cache
	log     logrus.FieldLogger
	now     func() time.Time
}

// NewTokenService creates a new token service. revoked may be nil, in which
// case revocation is not supported.
func NewTokenService(cfg TokenConfig, revoked cache.Cache, log logrus.FieldLogger) *TokenService {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTokenTTL
	}
	return &TokenService{
		secret:  []byte(cfg.Secret),
		issuer:  cfg.Issuer,
		ttl:     cfg.TTL,
		revoked: revoked,
		log:     log.WithField("component", "token"),
		now:     time.Now,
	}
}

// TTL returns the lifetime of issued tokens.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// GenerateToken creates a signed token for an account.
func (s *TokenService) GenerateToken(account *model.UserAccount) (string, *model.TokenData, error) {
	now := s.now().UTC()
	data := &model.TokenData{
		TokenID:   uid.New(),
		UserID:    account.ID,
		Username:  account.Username,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}

	claims := Claims{
		UserID:   data.UserID,
		Username: data.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        data.TokenID,
			Subject:   data.UserID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(data.ExpiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"user_id":  data.UserID,
		"token_id": data.TokenID,
		"expires":  data.ExpiresAt,
	}).Debug("Generated token")

	return signed, data, nil
}

// ValidateToken checks a token's signature, expiry and revocation.
func (s *TokenService) ValidateToken(ctx context.Context, token string) (*model.TokenData, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty token", model.ErrInvalidToken)
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithTimeFunc(s.now),
		jwt.WithIssuer(s.issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidToken, err)
	}
	if claims.ID == "" || claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing claims", model.ErrInvalidToken)
	}

	if s.revoked != nil {
		revoked, err := s.revoked.Exists(ctx, RevokedKeyPrefix+claims.ID)
		if err != nil {
			// A cache outage should not lock every user out.
			s.log.WithError(err).Warn("Failed to check token revocation")
		} else if revoked {
			return nil, fmt.Errorf("%w: token revoked", model.ErrInvalidToken)
		}
	}

	data := &model.TokenData{
		TokenID:  claims.ID,
		UserID:   claims.UserID,
		Username: claims.Username,
	}
	if claims.IssuedAt != nil {
		data.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		data.ExpiresAt = claims.ExpiresAt.Time
	}
	return data, nil
}

// RevokeToken blocks a token until it expires.
func (s *TokenService) RevokeToken(ctx context.Context, data *model.TokenData) error {
	if s.revoked == nil {
		return errors.New("token revocation is not configured")
	}

	ttl := data.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.revoked.Set(ctx, RevokedKeyPrefix+data.TokenID, []byte(data.UserID), ttl); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	s.log.WithFields(logrus.Fields{"user_id": data.UserID, "token_id": data.TokenID}).Info("Token revoked")
	return nil
}
