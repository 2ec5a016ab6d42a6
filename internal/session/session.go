// Package session issues and resolves login sessions. A session is a signed token
// (HS256) naming a server-side entry in Redis; revoking the entry ends the
// session even while the token itself is still unexpired.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CookieName is the browser cookie carrying the session token
const CookieName = "session"

// ErrNoSession is returned for missing, invalid, expired or revoked tokens
var ErrNoSession = errors.New("no session")

// Claims of a session token
type Claims struct {
	UserID uint `json:"user_id"` // Custom claim for user ID

	// Standard claims, ID holds the session id
	jwt.RegisteredClaims
}

// Manager issues and resolves sessions
type Manager struct {
	rdb    *redis.Client
	secret []byte
	ttl    time.Duration
}

// NewManager creates a session manager
func NewManager(rdb *redis.Client, secret string, ttl time.Duration) *Manager {
	return &Manager{rdb: rdb, secret: []byte(secret), ttl: ttl}
}

// TTL is the lifetime of issued sessions
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

func key(sessionID string) string {
	return "session:" + sessionID
}

// Issue starts a session for userID and returns its token
func (m *Manager) Issue(ctx context.Context, userID uint) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	if err := m.rdb.Set(ctx, key(claims.ID), strconv.FormatUint(uint64(userID), 10), m.ttl).Err(); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

// Resolve validates token and returns its claims if the session is still live
func (m *Manager) Resolve(ctx context.Context, token string) (*Claims, error) {
	claims, err := m.parse(token)
	if err != nil {
		return nil, err
	}
	stored, err := m.rdb.Get(ctx, key(claims.ID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if stored != strconv.FormatUint(uint64(claims.UserID), 10) {
		return nil, ErrNoSession
	}
	return claims, nil
}

// Revoke ends the session named by token. Unknown or invalid tokens are ignored.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	claims, err := m.parse(token)
	if err != nil {
		return nil
	}
	if err := m.rdb.Del(ctx, key(claims.ID)).Err(); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (m *Manager) parse(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrNoSession
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, ErrNoSession
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.ID == "" {
		return nil, ErrNoSession
	}
	return claims, nil
}
