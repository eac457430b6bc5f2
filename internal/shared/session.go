package shared

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionStore maps opaque bearer tokens to user ids in Redis.
type SessionStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewSessionStore constructs a SessionStore.
func NewSessionStore(client *redis.Client, prefix string, ttl time.Duration) *SessionStore {
	if prefix == "" {
		prefix = "hrms:session"
	}
	return &SessionStore{client: client, prefix: prefix, ttl: ttl}
}

// Issue creates a new token bound to userID.
func (s *SessionStore) Issue(ctx context.Context, userID int64) (string, error) {
	if userID <= 0 {
		return "", errors.New("session: invalid user id")
	}
	token := uuid.NewString()
	if err := s.client.Set(ctx, s.key(token), strconv.FormatInt(userID, 10), s.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// IssueFixed binds a caller-chosen token, used by seeders for development logins.
func (s *SessionStore) IssueFixed(ctx context.Context, token string, userID int64) error {
	token = strings.TrimSpace(token)
	if token == "" || userID <= 0 {
		return errors.New("session: token and user id required")
	}
	return s.client.Set(ctx, s.key(token), strconv.FormatInt(userID, 10), s.ttl).Err()
}

// Resolve returns the user id bound to token.
func (s *SessionStore) Resolve(ctx context.Context, token string) (int64, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return 0, ErrUnauthenticated
	}
	raw, err := s.client.Get(ctx, s.key(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrUnauthenticated
		}
		return 0, err
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrUnauthenticated
	}
	return id, nil
}

// Revoke deletes token.
func (s *SessionStore) Revoke(ctx context.Context, token string) error {
	if err := s.client.Del(ctx, s.key(token)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

func (s *SessionStore) key(token string) string {
	return s.prefix + ":" + token
}

// TokenFromRequest extracts a bearer token from the Authorization header.
func TokenFromRequest(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
