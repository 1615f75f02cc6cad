package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// hostMemberPrefix marks the host's entry in a session's participant set
const hostMemberPrefix = "HOST:"

// snapshotTTL bounds how long a session's last snapshot survives without a
// refresh. Board state is ephemeral; the cache only smooths late joins while
// a session is actually live.
const snapshotTTL = 30 * time.Minute

// ErrNoSnapshot means no cached snapshot exists for the session
var ErrNoSnapshot = errors.New("no cached snapshot")

// BoardSnapshot is the cross-instance copy of a session's current state, so
// a viewer landing on a different node than the host still catches up.
type BoardSnapshot struct {
	SessionID string          `json:"sessionId"`
	Index     int             `json:"index"`
	Strokes   json.RawMessage `json:"strokes"`
	SetID     string          `json:"setId,omitempty"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// RedisClient wraps the Redis client for snapshot caching and session presence
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient creates and pings a new Redis client
func NewRedisClient(addr, password string, db int) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	log.Printf("[Redis] Connected to %s", addr)
	return &RedisClient{client: client}, nil
}

// Client exposes the underlying client (the pub/sub transport shares it)
func (r *RedisClient) Client() *redis.Client {
	return r.client
}

func snapshotKey(sessionID string) string {
	return "board:session:" + sessionID + ":snapshot"
}

func participantsKey(sessionID string) string {
	return "board:session:" + sessionID + ":participants"
}

// SetBoardSnapshot stores the session's latest full state
func (r *RedisClient) SetBoardSnapshot(ctx context.Context, snap *BoardSnapshot) error {
	snap.UpdatedAt = time.Now()

	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, snapshotKey(snap.SessionID), data, snapshotTTL).Err(); err != nil {
		log.Printf("[Redis] Failed to store snapshot for %s: %v", snap.SessionID, err)
		return err
	}
	return nil
}

// GetBoardSnapshot fetches the session's latest full state
func (r *RedisClient) GetBoardSnapshot(ctx context.Context, sessionID string) (*BoardSnapshot, error) {
	data, err := r.client.Get(ctx, snapshotKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoSnapshot
		}
		return nil, err
	}

	var snap BoardSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// DeleteBoardSnapshot removes a session's cached state when it ends
func (r *RedisClient) DeleteBoardSnapshot(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, snapshotKey(sessionID)).Err()
}

// AddParticipant registers a participant and refreshes the set's TTL
func (r *RedisClient) AddParticipant(ctx context.Context, sessionID, participantID string) error {
	key := participantsKey(sessionID)
	if err := r.client.SAdd(ctx, key, participantID).Err(); err != nil {
		return err
	}
	return r.client.Expire(ctx, key, snapshotTTL).Err()
}

// RemoveParticipant unregisters a participant
func (r *RedisClient) RemoveParticipant(ctx context.Context, sessionID, participantID string) error {
	return r.client.SRem(ctx, participantsKey(sessionID), participantID).Err()
}

// ParticipantCount returns how many peers are attached to the session
func (r *RedisClient) ParticipantCount(ctx context.Context, sessionID string) (int64, error) {
	return r.client.SCard(ctx, participantsKey(sessionID)).Result()
}

// HostPresent reports whether any instance has a host attached to the
// session. Members are role-prefixed; the set's TTL bounds how long a
// crashed instance's stale entry can block a re-host.
func (r *RedisClient) HostPresent(ctx context.Context, sessionID string) (bool, error) {
	members, err := r.client.SMembers(ctx, participantsKey(sessionID)).Result()
	if err != nil {
		return false, err
	}
	for _, m := range members {
		if strings.HasPrefix(m, hostMemberPrefix) {
			return true, nil
		}
	}
	return false, nil
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// Health checks if Redis is reachable
func (r *RedisClient) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
