package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"debtster_routes/internal/config/connections/postgres"
	"debtster_routes/internal/ports"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
)

type PersonalAccessToken struct {
	ID        int64
	TokenHash string
	UserID    int64
	Abilities string
	ExpiresAt *time.Time
}

const userTokenableType = "App\\Infrastructure\\Persistence\\Models\\User"

type PersonalAccessTokenRepository struct {
	pg  *postgres.Postgres
	log *logrus.Logger
	now func() time.Time
}

func NewPersonalAccessTokenRepository(pg *postgres.Postgres, log *logrus.Logger) *PersonalAccessTokenRepository {
	return &PersonalAccessTokenRepository{pg: pg, log: log, now: time.Now}
}

// SplitPlainToken separates an "<id>|<secret>" token. Tokens without an id
// prefix return a nil id.
func SplitPlainToken(plain string) (*int64, string) {
	plain = strings.TrimSpace(plain)
	idx := strings.Index(plain, "|")
	if idx <= 0 {
		return nil, plain
	}
	id, err := strconv.ParseInt(plain[:idx], 10, 64)
	if err != nil {
		return nil, plain[idx+1:]
	}
	return &id, plain[idx+1:]
}

// HashToken is the stored form of a token secret.
func HashToken(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func (r *PersonalAccessTokenRepository) FindTokenByPlainToken(ctx context.Context, plainToken string) (*PersonalAccessToken, error) {
	tokenID, secret := SplitPlainToken(plainToken)
	if secret == "" {
		return nil, errors.New("empty token")
	}
	hash := HashToken(secret)

	var pat PersonalAccessToken
	if tokenID != nil {
		err := r.pg.Pool.QueryRow(ctx, `
			SELECT id, token, tokenable_id, abilities, expires_at
			FROM personal_access_tokens
			WHERE id = $1
			  AND tokenable_type = $2
			  AND (expires_at IS NULL OR expires_at > $3)`,
			*tokenID, userTokenableType, r.now(),
		).Scan(&pat.ID, &pat.TokenHash, &pat.UserID, &pat.Abilities, &pat.ExpiresAt)
		switch {
		case err == nil && pat.TokenHash == hash:
			return &pat, nil
		case err == nil:
			r.log.WithField("token_id", *tokenID).Debug("[TOKEN] hash mismatch")
		case !errors.Is(err, pgx.ErrNoRows):
			return nil, err
		}
	}

	err := r.pg.Pool.QueryRow(ctx, `
		SELECT id, token, tokenable_id, abilities, expires_at
		FROM personal_access_tokens
		WHERE tokenable_type = $1
		  AND token = $2
		  AND (expires_at IS NULL OR expires_at > $3)
		ORDER BY created_at DESC
		LIMIT 1`,
		userTokenableType, hash, r.now(),
	).Scan(&pat.ID, &pat.TokenHash, &pat.UserID, &pat.Abilities, &pat.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("token: %w", ports.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	r.log.WithFields(logrus.Fields{"token_id": pat.ID, "user_id": pat.UserID}).Debug("[TOKEN] found")
	return &pat, nil
}
