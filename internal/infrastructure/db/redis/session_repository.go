package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/botforge/storefront-admin/internal/core/domain"
)

// SessionRepository persists sessions in Redis.
// Key formats:
//
//	session:client:<client_id>   JSON session, expires with the session
//	session:identity:<id>        set of client ids holding a session for id,
//	                             expiring with its longest-lived member
type SessionRepository struct {
	client *redis.Client
	now    func() time.Time
}

// NewSessionRepository creates a SessionRepository wrapping the given Redis client.
func NewSessionRepository(client *redis.Client) *SessionRepository {
	return &SessionRepository{client: client, now: time.Now}
}

// Save stores session under its client id, replacing any previous one. An
// already expired session is removed instead.
func (r *SessionRepository) Save(ctx context.Context, session *domain.Session) error {
	ttl := session.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return r.Delete(ctx, session.ClientID)
	}

	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	previous, err := r.Get(ctx, session.ClientID)
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if previous != nil && previous.Identity != nil && !sameIdentity(previous, session) {
			pipe.SRem(ctx, identityKey(previous.Identity.ID), session.ClientID)
		}
		pipe.Set(ctx, clientKey(session.ClientID), data, ttl)
		if session.Identity != nil {
			idx := identityKey(session.Identity.ID)
			pipe.SAdd(ctx, idx, session.ClientID)
			// The index outlives every session it lists: NX covers a fresh
			// set, GT only ever extends an existing deadline.
			pipe.ExpireNX(ctx, idx, ttl)
			pipe.ExpireGT(ctx, idx, ttl)
		}
		return nil
	})
	if err != nil {
		return unavailable("save session", err)
	}
	return nil
}

// Get returns domain.ErrSessionNotFound when the client has no session.
func (r *SessionRepository) Get(ctx context.Context, clientID string) (*domain.Session, error) {
	data, err := r.client.Get(ctx, clientKey(clientID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, unavailable("get session", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

// Delete removes the client's session and its index entry.
func (r *SessionRepository) Delete(ctx context.Context, clientID string) error {
	previous, err := r.Get(ctx, clientID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil
		}
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, clientKey(clientID))
		if previous.Identity != nil {
			pipe.SRem(ctx, identityKey(previous.Identity.ID), clientID)
		}
		return nil
	})
	if err != nil {
		return unavailable("delete session", err)
	}
	return nil
}

// ClientsFor lists client ids whose live session belongs to identityID.
// Index entries whose session expired are pruned.
func (r *SessionRepository) ClientsFor(ctx context.Context, identityID string) ([]string, error) {
	idx := identityKey(identityID)
	members, err := r.client.SMembers(ctx, idx).Result()
	if err != nil {
		return nil, unavailable("list sessions", err)
	}

	var (
		live  []string
		stale []interface{}
	)
	for _, clientID := range members {
		session, err := r.Get(ctx, clientID)
		switch {
		case errors.Is(err, domain.ErrSessionNotFound):
			stale = append(stale, clientID)
		case err != nil:
			return nil, err
		case session.Identity == nil || session.Identity.ID != identityID:
			stale = append(stale, clientID)
		default:
			live = append(live, clientID)
		}
	}

	if len(stale) > 0 {
		if err := r.client.SRem(ctx, idx, stale...).Err(); err != nil {
			return live, unavailable("prune session index", err)
		}
	}
	return live, nil
}

func sameIdentity(a, b *domain.Session) bool {
	return a.Identity != nil && b.Identity != nil && a.Identity.ID == b.Identity.ID
}

func clientKey(clientID string) string {
	return "session:client:" + clientID
}

func identityKey(identityID string) string {
	return "session:identity:" + identityID
}
