package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"debtster_routes/internal/models"
	"debtster_routes/internal/ports"
	"debtster_routes/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
	ErrRevokedToken = errors.New("token has been revoked")
)

type TokenRepo interface {
	FindTokenByPlainToken(ctx context.Context, plainToken string) (*repository.PersonalAccessToken, error)
}

// RoleReader returns the role currently stored for a user.
type RoleReader interface {
	RoleOf(ctx context.Context, userID int64) (models.Role, error)
}

type Revocations interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// PATResolver resolves personal access tokens issued by the back office.
type PATResolver struct {
	Tokens TokenRepo
	Roles  RoleReader
	Now    func() time.Time
}

func NewPATResolver(tokens TokenRepo, roles RoleReader) *PATResolver {
	return &PATResolver{Tokens: tokens, Roles: roles, Now: time.Now}
}

func (p *PATResolver) Resolve(ctx context.Context, token string) (models.Session, error) {
	pat, err := p.Tokens.FindTokenByPlainToken(ctx, token)
	if err != nil {
		return models.Session{}, fmt.Errorf("token lookup: %w", err)
	}
	if pat == nil {
		return models.Session{}, ErrInvalidToken
	}
	if pat.ExpiresAt != nil && pat.ExpiresAt.Before(p.Now()) {
		return models.Session{}, ErrExpiredToken
	}
	role, err := p.Roles.RoleOf(ctx, pat.UserID)
	if err != nil {
		return models.Session{}, fmt.Errorf("role of %d: %w", pat.UserID, err)
	}
	return models.Session{UserID: pat.UserID, Role: role, TokenID: "pat:" + strconv.FormatInt(pat.ID, 10)}, nil
}

// Claims carry identity only. The role is never taken from the token.
type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

type JWTManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTManager(secret, issuer string, ttl time.Duration) *JWTManager {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &JWTManager{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue signs a session token for userID and returns it with its id.
func (j *JWTManager) Issue(userID int64) (string, string, error) {
	now := j.now()
	jti := uuid.NewString()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    j.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", "", err
	}
	return signed, jti, nil
}

func (j *JWTManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return j.secret, nil
	}, jwt.WithTimeFunc(j.now), jwt.WithIssuer(j.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == 0 || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// TTLLeft is how long a revocation entry for claims must be kept.
func (j *JWTManager) TTLLeft(c *Claims) time.Duration {
	if c.ExpiresAt == nil {
		return j.ttl
	}
	return c.ExpiresAt.Sub(j.now())
}

type JWTResolver struct {
	JWT     *JWTManager
	Revoked Revocations
	Roles   RoleReader
}

func NewJWTResolver(m *JWTManager, revoked Revocations, roles RoleReader) *JWTResolver {
	return &JWTResolver{JWT: m, Revoked: revoked, Roles: roles}
}

func (r *JWTResolver) Resolve(ctx context.Context, token string) (models.Session, error) {
	claims, err := r.JWT.Validate(token)
	if err != nil {
		return models.Session{}, err
	}
	if r.Revoked != nil {
		revoked, err := r.Revoked.IsRevoked(ctx, claims.ID)
		if err != nil {
			return models.Session{}, ports.StoreError("revocation list", err)
		}
		if revoked {
			return models.Session{}, ErrRevokedToken
		}
	}
	role, err := r.Roles.RoleOf(ctx, claims.UserID)
	if err != nil {
		return models.Session{}, fmt.Errorf("role of %d: %w", claims.UserID, err)
	}
	return models.Session{UserID: claims.UserID, Role: role, TokenID: "jwt:" + claims.ID}, nil
}

// Resolver sends JWT-shaped tokens to the JWT resolver and everything else
// to the personal access token resolver.
type Resolver struct {
	JWT ports.SessionResolver
	PAT ports.SessionResolver
}

var _ ports.SessionResolver = (*Resolver)(nil)

func (r *Resolver) Resolve(ctx context.Context, token string) (models.Session, error) {
	if looksLikeJWT(token) && r.JWT != nil {
		return r.JWT.Resolve(ctx, token)
	}
	if r.PAT == nil {
		return models.Session{}, ErrInvalidToken
	}
	return r.PAT.Resolve(ctx, token)
}

func looksLikeJWT(token string) bool {
	return strings.Count(token, ".") == 2 && !strings.Contains(token, "|")
}
